package entry

import (
	"github.com/spf13/cobra"

	"github.com/hackingbutlegal/lockbox/cmd/util"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/lockbox"
)

var (
	svc   *lockbox.Service
	owner core.Identity

	// EntryCommands represents the entry command group
	EntryCommands = &cobra.Command{
		Use:               "entry",
		Short:             "Perform entry operations",
		PersistentPreRunE: setup,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands
	EntryCommands.AddCommand(addCmd)
	EntryCommands.AddCommand(getCmd)
	EntryCommands.AddCommand(updateCmd)
	EntryCommands.AddCommand(delCmd)
	EntryCommands.AddCommand(listCmd)
	EntryCommands.AddCommand(flagCmd)
	EntryCommands.AddCommand(searchCmd)
	EntryCommands.AddCommand(perfTestCmd)
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
