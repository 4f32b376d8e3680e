package emergency

import (
	"github.com/spf13/cobra"

	"github.com/hackingbutlegal/lockbox/cmd/util"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/lockbox"
)

var (
	svc   *lockbox.Service
	owner core.Identity

	// EmergencyCommands represents the emergency command group
	EmergencyCommands = &cobra.Command{
		Use:               "emergency",
		Short:             "Dead-man emergency access operations",
		PersistentPreRunE: setup,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands
	EmergencyCommands.AddCommand(setupCmd)
	EmergencyCommands.AddCommand(infoCmd)
	EmergencyCommands.AddCommand(contactAddCmd)
	EmergencyCommands.AddCommand(contactAcceptCmd)
	EmergencyCommands.AddCommand(contactRemoveCmd)
	EmergencyCommands.AddCommand(checkinCmd)
	EmergencyCommands.AddCommand(periodsCmd)
	EmergencyCommands.AddCommand(requestCmd)
	EmergencyCommands.AddCommand(claimCmd)
	EmergencyCommands.AddCommand(cancelCmd)
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
