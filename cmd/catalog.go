package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/catalog"
)

func newCatalogCommand(a *app) *cobra.Command {
	catalogCmd := &cobra.Command{Use: "catalog", Short: "Browse products and categories"}

	filter := catalog.ProductFilter{}
	products := &cobra.Command{
		Use:   "products",
		Short: "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.shopper(cmd.Context()); err != nil {
				return err
			}
			products, err := a.catalog.Products(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return a.print(products)
		},
	}
	products.Flags().StringVar(&filter.Category, "category", "", "category id")
	products.Flags().StringVar(&filter.Search, "search", "", "search text")

	product := &cobra.Command{
		Use:   "product <productId>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.shopper(cmd.Context()); err != nil {
				return err
			}
			product, err := a.catalog.Product(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(product)
		},
	}

	categories := &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.shopper(cmd.Context()); err != nil {
				return err
			}
			categories, err := a.catalog.Categories(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(categories)
		},
	}

	catalogCmd.AddCommand(products, product, categories)
	return catalogCmd
}
