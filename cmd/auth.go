package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/user"
)

// authCommand builds a subcommand that sends req through call and prints
// the backend answer.
func authCommand[T any](
	a *app,
	use string,
	short string,
	req *T,
	call func(*user.Service, context.Context, T) (user.AuthResponse, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.shopper(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := call(sess.Auth, cmd.Context(), *req)
			if err != nil {
				return err
			}
			return a.print(map[string]any{"message": resp.Message, "user": resp.User})
		},
	}
}

func newAuthCommand(a *app) *cobra.Command {
	authCmd := &cobra.Command{Use: "auth", Short: "Sign in, sign up and manage the session"}

	signIn := user.SignIn{}
	signInCmd := authCommand(a, "signin", "Sign in", &signIn, (*user.Service).SignIn)
	signInCmd.Flags().StringVar(&signIn.Email, "email", "", "account email")
	signInCmd.Flags().StringVar(&signIn.Password, "password", "", "account password")

	signUp := user.SignUp{}
	signUpCmd := authCommand(a, "signup", "Create an account", &signUp, (*user.Service).SignUp)
	signUpCmd.Flags().StringVar(&signUp.Name, "name", "", "display name")
	signUpCmd.Flags().StringVar(&signUp.Email, "email", "", "account email")
	signUpCmd.Flags().StringVar(&signUp.Password, "password", "", "account password")

	verifyEmail := user.VerifyEmail{}
	verifyEmailCmd := authCommand(a, "verify-email", "Confirm the email code", &verifyEmail, (*user.Service).VerifyEmail)
	verifyEmailCmd.Flags().StringVar(&verifyEmail.Email, "email", "", "account email")
	verifyEmailCmd.Flags().StringVar(&verifyEmail.Code, "code", "", "code from the email")

	forgot := user.ForgotPassword{}
	forgotCmd := authCommand(a, "forgot-password", "Request a reset code", &forgot, (*user.Service).ForgotPassword)
	forgotCmd.Flags().StringVar(&forgot.Email, "email", "", "account email")

	verifyReset := user.VerifyResetCode{}
	verifyResetCmd := authCommand(a, "verify-reset-code", "Check a reset code", &verifyReset, (*user.Service).VerifyResetCode)
	verifyResetCmd.Flags().StringVar(&verifyReset.Email, "email", "", "account email")
	verifyResetCmd.Flags().StringVar(&verifyReset.Code, "code", "", "reset code")

	reset := user.ResetPassword{}
	resetCmd := authCommand(a, "reset-password", "Set a new password", &reset, (*user.Service).ResetPassword)
	resetCmd.Flags().StringVar(&reset.Email, "email", "", "account email")
	resetCmd.Flags().StringVar(&reset.Code, "code", "", "reset code")
	resetCmd.Flags().StringVar(&reset.NewPassword, "new-password", "", "new password")

	signOut := &cobra.Command{
		Use:   "signout",
		Short: "Forget the signed in user, keeping cart and wishlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.shopper(cmd.Context())
			if err != nil {
				return err
			}
			return sess.Auth.SignOut(cmd.Context())
		},
	}

	guest := &cobra.Command{
		Use:   "guest",
		Short: "Continue as a guest",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.shopper(cmd.Context())
			if err != nil {
				return err
			}
			return sess.Auth.ContinueAsGuest(cmd.Context())
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show who the session belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.shopper(cmd.Context())
			if err != nil {
				return err
			}
			out := map[string]any{
				"authenticated": sess.User.Authenticated(),
				"isGuest":       sess.User.IsGuest(),
			}
			if u, ok := sess.User.User(); ok {
				out["user"] = u
			}
			return a.print(out)
		},
	}

	authCmd.AddCommand(signInCmd, signUpCmd, verifyEmailCmd, forgotCmd, verifyResetCmd, resetCmd, signOut, guest, status)
	return authCmd
}
