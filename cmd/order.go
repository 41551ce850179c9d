package cmd

import (
	"github.com/spf13/cobra"
)

func newOrderCommand(a *app) *cobra.Command {
	orderCmd := &cobra.Command{Use: "order", Short: "Track orders"}

	track := &cobra.Command{
		Use:   "track <transactionId>",
		Short: "Look an order up by transaction id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.shopper(cmd.Context())
			if err != nil {
				return err
			}
			_, err = sess.Tracker.Lookup(cmd.Context(), args[0])
			if printErr := a.print(sess.Tracker.View()); printErr != nil {
				return printErr
			}
			return err
		},
	}

	var test bool
	verify := &cobra.Command{
		Use:   "verify <transactionId>",
		Short: "Ask the backend to confirm the bank transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.shopper(cmd.Context())
			if err != nil {
				return err
			}
			o, err := sess.Tracker.VerifyPayment(cmd.Context(), args[0], test)
			if err != nil {
				return err
			}
			return a.print(o)
		},
	}
	verify.Flags().BoolVar(&test, "test", false, "use the sandbox verification endpoint")

	guest := &cobra.Command{
		Use:   "guest",
		Short: "List the orders placed as a guest on this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.shopper(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(sess.GuestOrders.List())
		},
	}

	orderCmd.AddCommand(track, verify, guest)
	return orderCmd
}
