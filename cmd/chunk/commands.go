package chunk

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hackingbutlegal/lockbox/cmd/util"
)

// parseIndex parses a chunk index argument
func parseIndex(s string) (uint16, error) {
	idx, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("chunk index must be a number: %w", err)
	}
	return uint16(idx), nil
}

var (
	initCmd = &cobra.Command{
		Use:   "init [capacity] [type]",
		Short: "Initializes a new storage chunk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			capacity, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("capacity must be a number: %w", err)
			}
			typ, err := util.ParseStorageType(args[1])
			if err != nil {
				return err
			}
			c, err := svc.InitializeChunk(owner, uint32(capacity), typ)
			if err != nil {
				return err
			}
			fmt.Printf("chunk %d initialized (%d bytes, %s)\n", c.Index, c.MaxCap, c.Type)
			return util.Persist(svc)
		},
	}
	expandCmd = &cobra.Command{
		Use:   "expand [index] [additional]",
		Short: "Grows a chunk's arena by the given number of bytes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			additional, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("additional must be a number: %w", err)
			}
			if err := svc.ExpandChunk(owner, idx, uint32(additional)); err != nil {
				return err
			}
			fmt.Println("chunk expanded")
			return util.Persist(svc)
		},
	}
	closeCmd = &cobra.Command{
		Use:   "close [index]",
		Short: "Closes an empty chunk (must be the last one)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			if err := svc.CloseChunk(owner, idx); err != nil {
				return err
			}
			fmt.Println("chunk closed")
			return util.Persist(svc)
		},
	}
	forceCloseCmd = &cobra.Command{
		Use:   "force-close [index]",
		Short: "Deletes a chunk record without touching the directory",
		Long: util.WrapString("Deletes a chunk record without updating the directory mirror. " +
			"The mirror is stale afterwards and must be repaired with reconcile. " +
			"All entries in the chunk are lost."),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			if err := svc.ForceCloseChunk(owner, idx); err != nil {
				return err
			}
			fmt.Println("chunk force-closed, run reconcile to repair the directory")
			return util.Persist(svc)
		},
	}
	reconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuilds the directory mirror from the chunk records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := svc.ReconcileMirror(owner)
			if err != nil {
				return err
			}
			fmt.Printf("chunks:    %d -> %d\n", report.ChunksBefore, report.ChunksAfter)
			fmt.Printf("reindexed: %d\n", report.Reindexed)
			fmt.Printf("used:      %d bytes\n", report.StorageUsed)
			fmt.Printf("entries:   %d\n", report.TotalEntries)
			return util.Persist(svc)
		},
	}
	validateCmd = &cobra.Command{
		Use:   "validate [index]",
		Short: "Checks a chunk's internal layout against the directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			if err := svc.ValidateChunk(owner, idx); err != nil {
				return err
			}
			fmt.Println("chunk is consistent")
			return nil
		},
	}
)
