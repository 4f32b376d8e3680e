package category

import (
	"github.com/spf13/cobra"

	"github.com/hackingbutlegal/lockbox/cmd/util"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/lockbox"
)

var (
	svc   *lockbox.Service
	owner core.Identity

	// CategoryCommands represents the category command group
	CategoryCommands = &cobra.Command{
		Use:               "category",
		Short:             "Manage the per-vault category registry",
		PersistentPreRunE: setup,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands
	CategoryCommands.AddCommand(createCmd)
	CategoryCommands.AddCommand(updateCmd)
	CategoryCommands.AddCommand(delCmd)
	CategoryCommands.AddCommand(listCmd)
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
