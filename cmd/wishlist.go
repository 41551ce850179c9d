package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/wishlist"
)

func newWishlistCommand(a *app) *cobra.Command {
	wishlistCmd := &cobra.Command{Use: "wishlist", Short: "Manage the wishlist"}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the wishlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.shopper(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(sess.Wishlist.Entries())
		},
	}

	add := &cobra.Command{
		Use:   "add <productId>",
		Short: "Add a product to the wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			sess, err := a.shopper(c)
			if err != nil {
				return err
			}
			product, err := a.catalog.Product(c, args[0])
			if err != nil {
				return err
			}
			if _, err := sess.Wishlist.Add(c, wishlist.EntryFromProduct(product)); err != nil {
				return err
			}
			return a.print(sess.Wishlist.Entries())
		},
	}

	remove := &cobra.Command{
		Use:   "remove <productId>",
		Short: "Remove a product from the wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			sess, err := a.shopper(c)
			if err != nil {
				return err
			}
			if _, err := sess.Wishlist.Remove(c, args[0]); err != nil {
				return err
			}
			return a.print(sess.Wishlist.Entries())
		},
	}

	var size string
	move := &cobra.Command{
		Use:   "move <productId>",
		Short: "Move a product from the wishlist into the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			sess, err := a.shopper(c)
			if err != nil {
				return err
			}
			product, err := a.catalog.Product(c, args[0])
			if err != nil {
				return err
			}
			outcome, err := sess.Wishlist.MoveToCart(c, sess.Cart, product, size)
			if err != nil {
				return err
			}
			return a.outcome(outcome, sess.Cart.Summary())
		},
	}
	move.Flags().StringVar(&size, "size", "", "size variant")

	wishlistCmd.AddCommand(list, add, remove, move)
	return wishlistCmd
}
