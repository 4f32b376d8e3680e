package recovery

import (
	"github.com/spf13/cobra"

	"github.com/hackingbutlegal/lockbox/cmd/util"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/lockbox"
)

var (
	svc   *lockbox.Service
	owner core.Identity

	// RecoveryCommands represents the recovery command group
	RecoveryCommands = &cobra.Command{
		Use:               "recovery",
		Short:             "Threshold social-recovery operations",
		PersistentPreRunE: setup,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands
	RecoveryCommands.AddCommand(setupCmd)
	RecoveryCommands.AddCommand(infoCmd)
	RecoveryCommands.AddCommand(guardianAddCmd)
	RecoveryCommands.AddCommand(guardianAcceptCmd)
	RecoveryCommands.AddCommand(guardianRemoveCmd)
	RecoveryCommands.AddCommand(initiateCmd)
	RecoveryCommands.AddCommand(statusCmd)
	RecoveryCommands.AddCommand(approveCmd)
	RecoveryCommands.AddCommand(confirmCmd)
	RecoveryCommands.AddCommand(sharesCmd)
	RecoveryCommands.AddCommand(completeCmd)
	RecoveryCommands.AddCommand(completeProofCmd)
	RecoveryCommands.AddCommand(cancelCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	if owner, err = util.GetOwner(); err != nil {
		return err
	}

	svc, err = util.OpenService()
	return err
}
