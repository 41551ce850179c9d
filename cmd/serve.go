package cmd

import (
	"github.com/spf13/cobra"

	shop "github.com/Alturino/storefront/shop/cmd"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the shop session server",
		Run: func(cmd *cobra.Command, args []string) {
			shop.RunShopServer(cmd.Context(), a.cfg)
		},
	}
}
