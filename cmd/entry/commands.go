package entry

import (
	"crypto/sha256"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hackingbutlegal/lockbox/cmd/util"
)

func parseChunkIndex(s string) (uint16, error) {
	idx, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("chunk index must be a number: %w", err)
	}
	return uint16(idx), nil
}

func parseEntryID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("entry id must be a number: %w", err)
	}
	return id, nil
}

var (
	addCmd = &cobra.Command{
		Use:   "add [chunk] [type] [payload]",
		Short: "Adds an entry to a chunk",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseChunkIndex(args[0])
			if err != nil {
				return err
			}
			typ, err := util.ParseEntryType(args[1])
			if err != nil {
				return err
			}
			title, _ := cmd.Flags().GetString("title")
			categoryID, _ := cmd.Flags().GetUint32("category")

			var titleHash [32]byte
			if title != "" {
				titleHash = sha256.Sum256([]byte(title))
			}

			id, err := svc.AddEntry(owner, idx, typ, categoryID, titleHash, []byte(args[2]))
			if err != nil {
				return err
			}
			fmt.Printf("entry %d added\n", id)
			return util.Persist(svc)
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [chunk] [id]",
		Short: "Reads an entry's payload",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseChunkIndex(args[0])
			if err != nil {
				return err
			}
			id, err := parseEntryID(args[1])
			if err != nil {
				return err
			}
			payload, hdr, err := svc.GetEntry(owner, idx, id)
			if err != nil {
				return err
			}
			fmt.Printf("id=%d, type=%s, size=%d, reads=%d\n", hdr.EntryID, hdr.Type, hdr.Size, hdr.AccessCount)
			fmt.Printf("%s\n", payload)
			// the read bumped the access counter
			return util.Persist(svc)
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [chunk] [id] [payload]",
		Short: "Replaces an entry's payload in place",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseChunkIndex(args[0])
			if err != nil {
				return err
			}
			id, err := parseEntryID(args[1])
			if err != nil {
				return err
			}
			if err := svc.UpdateEntry(owner, idx, id, []byte(args[2])); err != nil {
				return err
			}
			fmt.Println("entry updated")
			return util.Persist(svc)
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [chunk] [id]",
		Short: "Deletes an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseChunkIndex(args[0])
			if err != nil {
				return err
			}
			id, err := parseEntryID(args[1])
			if err != nil {
				return err
			}
			if err := svc.DeleteEntry(owner, idx, id); err != nil {
				return err
			}
			fmt.Println("entry deleted")
			return util.Persist(svc)
		},
	}
	listCmd = &cobra.Command{
		Use:   "list [chunk]",
		Short: "Lists the entry headers of a chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseChunkIndex(args[0])
			if err != nil {
				return err
			}
			headers, err := svc.ListEntries(owner, idx)
			if err != nil {
				return err
			}
			for _, h := range headers {
				flags := ""
				if h.IsFavorite() {
					flags += " fav"
				}
				if h.IsArchived() {
					flags += " archived"
				}
				fmt.Printf("id=%-6d type=%-14s size=%-8d category=%-4d reads=%d%s\n",
					h.EntryID, h.Type, h.Size, h.CategoryID, h.AccessCount, flags)
			}
			return nil
		},
	}
	flagCmd = &cobra.Command{
		Use:   "flag [chunk] [id]",
		Short: "Sets or clears an entry's favorite and archived flags",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseChunkIndex(args[0])
			if err != nil {
				return err
			}
			id, err := parseEntryID(args[1])
			if err != nil {
				return err
			}

			// only flags given on the command line are touched
			var favorite, archived *bool
			if cmd.Flags().Changed("favorite") {
				v, _ := cmd.Flags().GetBool("favorite")
				favorite = &v
			}
			if cmd.Flags().Changed("archived") {
				v, _ := cmd.Flags().GetBool("archived")
				archived = &v
			}
			if favorite == nil && archived == nil {
				return fmt.Errorf("nothing to change (use --favorite and/or --archived)")
			}

			if err := svc.SetEntryFlags(owner, idx, id, favorite, archived); err != nil {
				return err
			}
			fmt.Println("flags updated")
			return util.Persist(svc)
		},
	}
	searchCmd = &cobra.Command{
		Use:   "search [title]",
		Short: "Finds entries by title fingerprint across all chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			locations, err := svc.SearchByTitleHash(owner, sha256.Sum256([]byte(args[0])))
			if err != nil {
				return err
			}
			if len(locations) == 0 {
				fmt.Println("no matches")
				return nil
			}
			for _, loc := range locations {
				fmt.Printf("chunk=%d, id=%d\n", loc.ChunkIndex, loc.EntryID)
			}
			return nil
		},
	}
)

func init() {
	addCmd.Flags().String("title", "", util.WrapString("Plaintext title, fingerprinted for search (never stored)"))
	addCmd.Flags().Uint32("category", 0, util.WrapString("Category id to file the entry under (0 for none)"))
	flagCmd.Flags().Bool("favorite", false, util.WrapString("Set or clear the favorite flag"))
	flagCmd.Flags().Bool("archived", false, util.WrapString("Set or clear the archived flag"))
}
