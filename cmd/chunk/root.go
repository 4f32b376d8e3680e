package chunk

import (
	"github.com/spf13/cobra"

	"github.com/hackingbutlegal/lockbox/cmd/util"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/lockbox"
)

var (
	svc   *lockbox.Service
	owner core.Identity

	// ChunkCommands represents the chunk command group
	ChunkCommands = &cobra.Command{
		Use:               "chunk",
		Short:             "Manage storage chunks",
		PersistentPreRunE: setup,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands
	ChunkCommands.AddCommand(initCmd)
	ChunkCommands.AddCommand(expandCmd)
	ChunkCommands.AddCommand(closeCmd)
	ChunkCommands.AddCommand(forceCloseCmd)
	ChunkCommands.AddCommand(reconcileCmd)
	ChunkCommands.AddCommand(validateCmd)
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
