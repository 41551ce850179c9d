package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/cart"
	"github.com/Alturino/storefront/catalog"
	inHttp "github.com/Alturino/storefront/internal/http"
)

// outcome prints the result of a cart change and turns a declined cart change into a command failure so scripts
// can tell it apart.
func (a *app) outcome(outcome cart.Outcome, summary cart.Summary) error {
	if err := a.print(map[string]any{"outcome": outcome, "cart": summary}); err != nil {
		return err
	}
	if !outcome.Accepted {
		return fmt.Errorf("rejected: %s", outcome.Message)
	}
	return nil
}

func newCartCommand(a *app) *cobra.Command {
	cartCmd := &cobra.Command{Use: "cart", Short: "Manage the cart"}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the cart lines and totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.shopper(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(sess.Cart.Summary())
		},
	}

	var size string
	var quantity int
	add := &cobra.Command{
		Use:   "add <productId>",
		Short: "Add a product to the cart",
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
			outcome, err := sess.Cart.Add(c, product, size, quantity)
			if err != nil {
				return err
			}
			return a.outcome(outcome, sess.Cart.Summary())
		},
	}
	add.Flags().StringVar(&size, "size", "", "size variant")
	add.Flags().IntVar(&quantity, "quantity", 1, "units to add")

	remove := &cobra.Command{
		Use:   "remove <productId>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			sess, err := a.shopper(c)
			if err != nil {
				return err
			}
			removed, err := sess.Cart.Remove(c, args[0], size)
			if err != nil {
				return err
			}
			return a.print(map[string]any{"removed": removed, "cart": sess.Cart.Summary()})
		},
	}
	remove.Flags().StringVar(&size, "size", "", "size variant")

	update := &cobra.Command{
		Use:   "update <productId> <quantity>",
		Short: "Set the quantity of a line, 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("failed parsing quantity=%s with error=%w", args[1], err)
			}
			sess, err := a.shopper(c)
			if err != nil {
				return err
			}
			outcome, err := sess.Cart.UpdateQuantity(c, args[0], quantity, size)
			if err != nil {
				return err
			}
			return a.outcome(outcome, sess.Cart.Summary())
		},
	}
	update.Flags().StringVar(&size, "size", "", "size variant")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.shopper(cmd.Context())
			if err != nil {
				return err
			}
			if err := sess.Cart.Clear(cmd.Context()); err != nil {
				return err
			}
			return a.print(sess.Cart.Summary())
		},
	}

	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Refresh the stock of every line from the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			sess, err := a.shopper(c)
			if err != nil {
				return err
			}
			products, err := a.productsInCart(c, sess.Cart.Lines())
			if err != nil {
				return err
			}
			events, err := sess.Cart.Reconcile(c, products)
			if err != nil {
				return err
			}
			return a.print(map[string]any{"events": events, "cart": sess.Cart.Summary()})
		},
	}

	cartCmd.AddCommand(list, add, remove, update, clearCmd, reconcile)
	return cartCmd
}

func (a *app) productsInCart(c context.Context, lines []cart.Line) ([]catalog.Product, error) {
	seen := map[string]struct{}{}
	products := []catalog.Product{}
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		product, err := a.catalog.Product(c, line.ProductID)
		if inHttp.IsNotFound(err) {
			product = catalog.Product{ID: line.ProductID}
		} else if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}
