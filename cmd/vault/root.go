package vault

import (
	"github.com/spf13/cobra"

	"github.com/hackingbutlegal/lockbox/cmd/util"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/lockbox"
)

var (
	svc   *lockbox.Service
	owner core.Identity

	// VaultCommands represents the vault command group
	VaultCommands = &cobra.Command{
		Use:               "vault",
		Short:             "Manage vaults and subscription tiers",
		PersistentPreRunE: setup,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands
	VaultCommands.AddCommand(createCmd)
	VaultCommands.AddCommand(infoCmd)
	VaultCommands.AddCommand(closeCmd)
	VaultCommands.AddCommand(upgradeCmd)
	VaultCommands.AddCommand(renewCmd)
	VaultCommands.AddCommand(downgradeCmd)
}

// setup opens the snapshot file and resolves the owner identity
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
