package recovery

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hackingbutlegal/lockbox/cmd/util"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/recovery"
)

func parseRequestID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("request id must be a number: %w", err)
	}
	return id, nil
}

var (
	setupCmd = &cobra.Command{
		Use:   "setup [protocol] [threshold]",
		Short: "Configures social recovery for the vault",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			proto, err := util.ParseProtocol(args[0])
			if err != nil {
				return err
			}
			threshold, err := strconv.ParseUint(args[1], 10, 8)
			if err != nil {
				return fmt.Errorf("threshold must be a number: %w", err)
			}
			delay, _ := cmd.Flags().GetUint64("delay")

			var commitment [32]byte
			if s, _ := cmd.Flags().GetString("secret-commitment"); s != "" {
				if commitment, err = util.ParseHash32(s); err != nil {
					return err
				}
			}

			if err := svc.SetupRecovery(owner, proto, uint8(threshold), delay, commitment); err != nil {
				return err
			}
			fmt.Printf("recovery configured (%s, threshold %d)\n", proto, threshold)
			return util.Persist(svc)
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints the recovery configuration and guardian set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := svc.RecoveryConfig(owner)
			if err != nil {
				return err
			}
			fmt.Printf("protocol:  %s\n", cfg.Protocol)
			fmt.Printf("threshold: %d\n", cfg.Threshold)
			fmt.Printf("delay:     %ds\n", cfg.RecoveryDelay)
			fmt.Printf("guardians: %d (%d active)\n", len(cfg.Guardians), cfg.ActiveGuardianCount())
			for _, g := range cfg.Guardians {
				fmt.Printf("  %-40s share=%-4d %s\n", g.ID, g.ShareIndex, g.Status)
			}
			return nil
		},
	}
	guardianAddCmd = &cobra.Command{
		Use:   "guardian-add [identity] [share-index] [material-hex]",
		Short: "Invites a guardian holding the given share",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			shareIndex, err := strconv.ParseUint(args[1], 10, 8)
			if err != nil {
				return fmt.Errorf("share index must be a number: %w", err)
			}
			material, err := hex.DecodeString(args[2])
			if err != nil {
				return fmt.Errorf("invalid share material: %w", err)
			}
			var nickname []byte
			if s, _ := cmd.Flags().GetString("nickname"); s != "" {
				nickname = []byte(s)
			}
			if err := svc.AddGuardian(owner, core.Identity(args[0]), uint8(shareIndex), material, nickname); err != nil {
				return err
			}
			fmt.Println("guardian invited")
			return util.Persist(svc)
		},
	}
	guardianAcceptCmd = &cobra.Command{
		Use:   "guardian-accept [identity]",
		Short: "Accepts a pending guardianship",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.AcceptGuardianship(owner, core.Identity(args[0])); err != nil {
				return err
			}
			fmt.Println("guardianship accepted")
			return util.Persist(svc)
		},
	}
	guardianRemoveCmd = &cobra.Command{
		Use:   "guardian-remove [identity]",
		Short: "Removes a guardian",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.RemoveGuardian(owner, core.Identity(args[0])); err != nil {
				return err
			}
			fmt.Println("guardian removed")
			return util.Persist(svc)
		},
	}
	initiateCmd = &cobra.Command{
		Use:   "initiate [requester]",
		Short: "Starts a recovery session",
		Long: util.WrapString("Starts a recovery session. The requester must be an active guardian. " +
			"The challenge protocol additionally needs the sealed challenge blob plus its fingerprint " +
			"and binding commitments."),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			challenge, err := challengeFromFlags(cmd)
			if err != nil {
				return err
			}
			newOwner, _ := cmd.Flags().GetString("new-owner")
			reqID, err := svc.InitiateRecovery(owner, core.Identity(args[0]), core.Identity(newOwner), challenge)
			if err != nil {
				return err
			}
			fmt.Printf("recovery session %d initiated\n", reqID)
			return util.Persist(svc)
		},
	}
	statusCmd = &cobra.Command{
		Use:   "status [request-id]",
		Short: "Prints the state of a recovery session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqID, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			sess, err := svc.RecoveryStatus(owner, reqID)
			if err != nil {
				return err
			}
			fmt.Printf("request:   %d\n", sess.RequestID)
			fmt.Printf("protocol:  %s\n", sess.Protocol)
			fmt.Printf("requester: %s\n", sess.Requester)
			if sess.NewOwner != "" {
				fmt.Printf("new owner: %s\n", sess.NewOwner)
			}
			fmt.Printf("status:    %s\n", sess.Status)
			fmt.Printf("ready at:  %d\n", sess.ReadyAt)
			fmt.Printf("expires:   %d\n", sess.ExpiresAt)
			if sess.Protocol == recovery.ProtocolShares {
				fmt.Printf("approvals: %d\n", len(sess.Approvals))
			} else {
				fmt.Printf("confirmations: %d\n", len(sess.Confirmations))
			}
			return nil
		},
	}
	approveCmd = &cobra.Command{
		Use:   "approve [request-id] [guardian] [share-index] [share-hex]",
		Short: "Submits a guardian's share for a session",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqID, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			shareIndex, err := strconv.ParseUint(args[2], 10, 8)
			if err != nil {
				return fmt.Errorf("share index must be a number: %w", err)
			}
			share, err := util.ParseHash32(args[3])
			if err != nil {
				return err
			}
			if err := svc.ApproveRecovery(owner, reqID, core.Identity(args[1]), uint8(shareIndex), share); err != nil {
				return err
			}
			fmt.Println("share submitted")
			return util.Persist(svc)
		},
	}
	confirmCmd = &cobra.Command{
		Use:   "confirm [request-id] [guardian]",
		Short: "Records a guardian's participation confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqID, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			if err := svc.ConfirmParticipation(owner, reqID, core.Identity(args[1])); err != nil {
				return err
			}
			fmt.Println("participation confirmed")
			return util.Persist(svc)
		},
	}
	sharesCmd = &cobra.Command{
		Use:   "shares [request-id] [requester]",
		Short: "Releases the collected shares to the requester",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqID, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			approvals, err := svc.RecoveryShares(owner, reqID, core.Identity(args[1]))
			if err != nil {
				return err
			}
			for _, a := range approvals {
				fmt.Printf("index=%-4d share=%s\n", a.ShareIndex, hex.EncodeToString(a.Share[:]))
			}
			return nil
		},
	}
	completeCmd = &cobra.Command{
		Use:   "complete [request-id] [requester]",
		Short: "Marks a share-based recovery as completed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqID, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			if err := svc.CompleteRecovery(owner, reqID, core.Identity(args[1])); err != nil {
				return err
			}
			fmt.Println("recovery completed")
			return util.Persist(svc)
		},
	}
	completeProofCmd = &cobra.Command{
		Use:   "complete-proof [request-id] [requester] [plaintext-hex] [secret-hex]",
		Short: "Completes a challenge recovery by presenting the proof",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqID, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			plaintext, err := hex.DecodeString(args[2])
			if err != nil {
				return fmt.Errorf("invalid challenge plaintext: %w", err)
			}
			secret, err := hex.DecodeString(args[3])
			if err != nil {
				return fmt.Errorf("invalid master secret: %w", err)
			}
			if err := svc.CompleteRecoveryWithProof(owner, reqID, core.Identity(args[1]), plaintext, secret); err != nil {
				return err
			}
			fmt.Println("recovery completed")
			return util.Persist(svc)
		},
	}
	cancelCmd = &cobra.Command{
		Use:   "cancel [request-id] [by]",
		Short: "Cancels a recovery session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqID, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			if err := svc.CancelRecovery(owner, reqID, core.Identity(args[1])); err != nil {
				return err
			}
			fmt.Println("recovery cancelled")
			return util.Persist(svc)
		},
	}
)

// challengeFromFlags builds the challenge material for ProtocolChallenge
// sessions. Returns nil when no challenge flags were given.
func challengeFromFlags(cmd *cobra.Command) (*recovery.Challenge, error) {
	blobHex, _ := cmd.Flags().GetString("challenge")
	if blobHex == "" {
		return nil, nil
	}

	raw, err := hex.DecodeString(blobHex)
	if err != nil {
		return nil, fmt.Errorf("invalid challenge blob: %w", err)
	}
	if len(raw) != recovery.ChallengeBlobSize {
		return nil, fmt.Errorf("challenge blob must be %d bytes, got %d", recovery.ChallengeBlobSize, len(raw))
	}

	fingerprintHex, _ := cmd.Flags().GetString("fingerprint")
	fingerprint, err := util.ParseHash32(fingerprintHex)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}
	bindingHex, _ := cmd.Flags().GetString("binding")
	binding, err := util.ParseHash32(bindingHex)
	if err != nil {
		return nil, fmt.Errorf("binding: %w", err)
	}

	c := &recovery.Challenge{
		Fingerprint: fingerprint,
		Binding:     binding,
	}
	copy(c.Encrypted[:], raw)
	return c, nil
}

func init() {
	setupCmd.Flags().Uint64("delay", recovery.DefaultDelay, util.WrapString("Time-lock delay in seconds between initiation and share release"))
	setupCmd.Flags().String("secret-commitment", "", util.WrapString("Hex digest of the master secret (challenge protocol)"))
	guardianAddCmd.Flags().String("nickname", "", util.WrapString("Encrypted nickname for the guardian"))
	initiateCmd.Flags().String("new-owner", "", util.WrapString("Identity that takes over the vault on completion (defaults to the requester)"))
	initiateCmd.Flags().String("challenge", "", util.WrapString("Hex-encoded sealed challenge blob (challenge protocol)"))
	initiateCmd.Flags().String("fingerprint", "", util.WrapString("Hex digest of the challenge plaintext"))
	initiateCmd.Flags().String("binding", "", util.WrapString("Hex binding commitment over plaintext and master secret"))
}
