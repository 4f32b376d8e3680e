package emergency

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hackingbutlegal/lockbox/cmd/util"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/emergency"
)

func parsePeriod(name, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number of seconds: %w", name, err)
	}
	return v, nil
}

var (
	setupCmd = &cobra.Command{
		Use:   "setup [inactivity] [grace]",
		Short: "Arms a dead-man switch for the vault",
		Long: util.WrapString("Arms a dead-man switch. After [inactivity] seconds without a check-in " +
			"a contact may trigger it, and after [grace] more seconds the contact may claim access."),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inactivity, err := parsePeriod("inactivity", args[0])
			if err != nil {
				return err
			}
			grace, err := parsePeriod("grace", args[1])
			if err != nil {
				return err
			}
			if err := svc.SetupEmergency(owner, inactivity, grace); err != nil {
				return err
			}
			fmt.Println("emergency switch armed")
			return util.Persist(svc)
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints the emergency switch state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := svc.EmergencySwitch(owner)
			if err != nil {
				return err
			}
			fmt.Printf("state:        %s\n", sw.State)
			fmt.Printf("inactivity:   %ds\n", sw.InactivityPeriod)
			fmt.Printf("grace:        %ds\n", sw.GracePeriod)
			fmt.Printf("last checkin: %d\n", sw.LastCheckIn)
			if sw.State == emergency.StateTriggered {
				fmt.Printf("triggered at: %d by %s\n", sw.TriggeredAt, sw.TriggeredBy)
			}
			for _, c := range sw.Contacts {
				fmt.Printf("  %-40s %-10s %s\n", c.ID, c.Level, c.Status)
			}
			return nil
		},
	}
	contactAddCmd = &cobra.Command{
		Use:   "contact-add [identity] [level]",
		Short: "Adds an emergency contact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := util.ParseAccessLevel(args[1])
			if err != nil {
				return err
			}
			var info []byte
			if s, _ := cmd.Flags().GetString("info"); s != "" {
				info = []byte(s)
			}
			if err := svc.AddEmergencyContact(owner, core.Identity(args[0]), info, level); err != nil {
				return err
			}
			fmt.Println("contact added")
			return util.Persist(svc)
		},
	}
	contactAcceptCmd = &cobra.Command{
		Use:   "contact-accept [identity]",
		Short: "Accepts a pending emergency contact role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.AcceptEmergencyContact(owner, core.Identity(args[0])); err != nil {
				return err
			}
			fmt.Println("contact role accepted")
			return util.Persist(svc)
		},
	}
	contactRemoveCmd = &cobra.Command{
		Use:   "contact-remove [identity]",
		Short: "Removes an emergency contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.RemoveEmergencyContact(owner, core.Identity(args[0])); err != nil {
				return err
			}
			fmt.Println("contact removed")
			return util.Persist(svc)
		},
	}
	checkinCmd = &cobra.Command{
		Use:   "checkin",
		Short: "Proves the owner is alive and resets the countdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.EmergencyCheckIn(owner); err != nil {
				return err
			}
			fmt.Println("checked in")
			return util.Persist(svc)
		},
	}
	periodsCmd = &cobra.Command{
		Use:   "periods [inactivity] [grace]",
		Short: "Updates the inactivity and grace periods",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inactivity, err := parsePeriod("inactivity", args[0])
			if err != nil {
				return err
			}
			grace, err := parsePeriod("grace", args[1])
			if err != nil {
				return err
			}
			if err := svc.UpdateEmergencyPeriods(owner, inactivity, grace); err != nil {
				return err
			}
			fmt.Println("periods updated")
			return util.Persist(svc)
		},
	}
	requestCmd = &cobra.Command{
		Use:   "request [contact]",
		Short: "Triggers the switch after the owner has gone silent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.RequestEmergencyAccess(owner, core.Identity(args[0])); err != nil {
				return err
			}
			fmt.Println("access requested, grace period running")
			return util.Persist(svc)
		},
	}
	claimCmd = &cobra.Command{
		Use:   "claim [contact]",
		Short: "Claims access once the grace period has elapsed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := svc.ClaimEmergencyAccess(owner, core.Identity(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("access granted: %s\n", level)
			return util.Persist(svc)
		},
	}
	cancelCmd = &cobra.Command{
		Use:   "cancel",
		Short: "Cancels a pending trigger without a full check-in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.CancelEmergencyTrigger(owner); err != nil {
				return err
			}
			fmt.Println("trigger cancelled")
			return util.Persist(svc)
		},
	}
)

func init() {
	contactAddCmd.Flags().String("info", "", util.WrapString("Encrypted contact info blob"))
}
