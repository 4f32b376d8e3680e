package category

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hackingbutlegal/lockbox/cmd/util"
)

func parseCategoryID(s string) (uint8, error) {
	id, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("category id must be a number: %w", err)
	}
	return uint8(id), nil
}

var (
	createCmd = &cobra.Command{
		Use:   "create [name-ciphertext]",
		Short: "Creates a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			icon, _ := cmd.Flags().GetUint8("icon")
			color, _ := cmd.Flags().GetUint8("color")

			var parent *uint8
			if cmd.Flags().Changed("parent") {
				v, _ := cmd.Flags().GetUint8("parent")
				parent = &v
			}

			id, err := svc.CreateCategory(owner, []byte(args[0]), icon, color, parent)
			if err != nil {
				return err
			}
			fmt.Printf("category %d created\n", id)
			return util.Persist(svc)
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [id]",
		Short: "Updates a category's name, icon, color or parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCategoryID(args[0])
			if err != nil {
				return err
			}

			// only flags given on the command line are touched
			var name []byte
			if cmd.Flags().Changed("name") {
				v, _ := cmd.Flags().GetString("name")
				name = []byte(v)
			}
			var icon, color *uint8
			if cmd.Flags().Changed("icon") {
				v, _ := cmd.Flags().GetUint8("icon")
				icon = &v
			}
			if cmd.Flags().Changed("color") {
				v, _ := cmd.Flags().GetUint8("color")
				color = &v
			}
			reparent := cmd.Flags().Changed("parent")
			var parent *uint8
			if reparent {
				v, _ := cmd.Flags().GetUint8("parent")
				if v != 0 {
					parent = &v
				}
			}

			if err := svc.UpdateCategory(owner, id, name, icon, color, reparent, parent); err != nil {
				return err
			}
			fmt.Println("category updated")
			return util.Persist(svc)
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [id]",
		Short: "Deletes an empty category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCategoryID(args[0])
			if err != nil {
				return err
			}
			if err := svc.DeleteCategory(owner, id); err != nil {
				return err
			}
			fmt.Println("category deleted")
			return util.Persist(svc)
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all categories of the vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := svc.ListCategories(owner)
			if err != nil {
				return err
			}
			for _, c := range categories {
				parent := "-"
				if c.ParentID != nil {
					parent = strconv.Itoa(int(*c.ParentID))
				}
				fmt.Printf("id=%-4d icon=%-4d color=%-4d parent=%-4s entries=%d\n",
					c.ID, c.Icon, c.Color, parent, c.EntryCount)
			}
			return nil
		},
	}
)

func init() {
	createCmd.Flags().Uint8("icon", 0, util.WrapString("Icon index"))
	createCmd.Flags().Uint8("color", 0, util.WrapString("Color index"))
	createCmd.Flags().Uint8("parent", 0, util.WrapString("Parent category id"))
	updateCmd.Flags().String("name", "", util.WrapString("New name ciphertext"))
	updateCmd.Flags().Uint8("icon", 0, util.WrapString("New icon index"))
	updateCmd.Flags().Uint8("color", 0, util.WrapString("New color index"))
	updateCmd.Flags().Uint8("parent", 0, util.WrapString("New parent category id (0 clears the parent)"))
}
