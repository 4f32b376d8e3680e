package vault

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hackingbutlegal/lockbox/cmd/util"
)

var (
	createCmd = &cobra.Command{
		Use:   "create",
		Short: "Creates a vault for the configured owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := svc.CreateVault(owner); err != nil {
				return err
			}
			fmt.Printf("vault created for %s\n", owner)
			return util.Persist(svc)
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints the vault directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := svc.Directory(owner)
			if err != nil {
				return err
			}
			fmt.Printf("owner:        %s\n", d.Owner)
			fmt.Printf("tier:         %s\n", d.Tier)
			if d.SubscriptionExpires != 0 {
				fmt.Printf("expires:      %d\n", d.SubscriptionExpires)
			}
			fmt.Printf("chunks:       %d\n", len(d.Chunks))
			fmt.Printf("capacity:     %d bytes\n", d.TotalCapacity)
			fmt.Printf("used:         %d bytes\n", d.StorageUsed)
			fmt.Printf("entries:      %d\n", d.TotalEntries)
			fmt.Printf("categories:   %d\n", d.CategoriesCount)
			for _, c := range d.Chunks {
				fmt.Printf("  chunk %-4d %-14s %d/%d bytes\n", c.Index, c.Type, c.UsedSize, c.MaxCap)
			}
			return nil
		},
	}
	closeCmd = &cobra.Command{
		Use:   "close",
		Short: "Closes the vault and removes all its records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.CloseVault(owner); err != nil {
				return err
			}
			fmt.Println("vault closed")
			return util.Persist(svc)
		},
	}
	upgradeCmd = &cobra.Command{
		Use:   "upgrade [tier]",
		Short: "Upgrades the vault to a higher subscription tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := util.ParseTier(args[0])
			if err != nil {
				return err
			}
			if err := svc.UpgradeTier(owner, target); err != nil {
				return err
			}
			fmt.Printf("upgraded to %s\n", target)
			return util.Persist(svc)
		},
	}
	renewCmd = &cobra.Command{
		Use:   "renew",
		Short: "Renews the current subscription for one more period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.RenewSubscription(owner); err != nil {
				return err
			}
			fmt.Println("subscription renewed")
			return util.Persist(svc)
		},
	}
	downgradeCmd = &cobra.Command{
		Use:   "downgrade [tier]",
		Short: "Downgrades the vault to a lower subscription tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := util.ParseTier(args[0])
			if err != nil {
				return err
			}
			if err := svc.DowngradeTier(owner, target); err != nil {
				return err
			}
			fmt.Printf("downgraded to %s\n", target)
			return util.Persist(svc)
		},
	}
)
