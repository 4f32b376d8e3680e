package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hackingbutlegal/lockbox/cmd/category"
	"github.com/hackingbutlegal/lockbox/cmd/chunk"
	"github.com/hackingbutlegal/lockbox/cmd/emergency"
	"github.com/hackingbutlegal/lockbox/cmd/entry"
	"github.com/hackingbutlegal/lockbox/cmd/recovery"
	"github.com/hackingbutlegal/lockbox/cmd/util"
	"github.com/hackingbutlegal/lockbox/cmd/vault"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "lockbox",
		Short: "encrypted vault storage engine",
		Long: fmt.Sprintf(`lockbox (v%s)

An encrypted vault storage engine written in Go, with segmented
chunk storage, threshold social recovery and dead-man emergency
access. All entry payloads are opaque ciphertext; encryption
happens on the client.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of lockbox",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lockbox v%s\n", Version)
		},
	}

	// identityCmd generates a fresh owner/guardian/contact identity
	identityCmd = &cobra.Command{
		Use:   "identity",
		Short: "Generate a new identity",
		Long:  `Generate a new random identity usable as a vault owner, guardian or emergency contact.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(uuid.NewString())
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(vault.VaultCommands)
	RootCmd.AddCommand(chunk.ChunkCommands)
	RootCmd.AddCommand(entry.EntryCommands)
	RootCmd.AddCommand(category.CategoryCommands)
	RootCmd.AddCommand(recovery.RecoveryCommands)
	RootCmd.AddCommand(emergency.EmergencyCommands)
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(identityCmd)

	// Add Flags
	key := "codec"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("record codec to use (json, gob, binary)"))
	key = "data"
	RootCmd.PersistentFlags().String(key, "lockbox.db", util.WrapString("path of the snapshot file holding all vault state"))
	key = "owner"
	RootCmd.PersistentFlags().String(key, "", util.WrapString("identity of the vault owner the command acts on"))
	key = "verbose"
	RootCmd.PersistentFlags().Bool(key, false, util.WrapString("log every operation to stderr"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
