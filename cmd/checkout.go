package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/order"
)

func newCheckoutCommand(a *app) *cobra.Command {
	shipping := order.ShippingAddress{}
	checkoutCmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place a bank transfer order for the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			sess, err := a.shopper(c)
			if err != nil {
				return err
			}
			result, err := sess.Checkout.Submit(c, shipping)
			if err != nil {
				if message := sess.Checkout.Snapshot().Message; message != "" {
					_ = a.print(map[string]any{"message": message})
				}
				return err
			}
			return a.print(result)
		},
	}
	flags := checkoutCmd.Flags()
	flags.StringVar(&shipping.FullName, "full-name", "", "recipient full name")
	flags.StringVar(&shipping.Email, "email", "", "contact email")
	flags.StringVar(&shipping.Phone, "phone", "", "contact phone")
	flags.StringVar(&shipping.Address, "address", "", "street address")
	flags.StringVar(&shipping.City, "city", "", "city")
	flags.StringVar(&shipping.Note, "note", "", "delivery note")
	return checkoutCmd
}
