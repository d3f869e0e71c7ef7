package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/templui/cortex/internal/model"
	"github.com/templui/cortex/internal/notestore"
)

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a password, or request a magic link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if password == "" {
				password = os.Getenv("CORTEX_PASSWORD")
			}

			client := notestore.NewClient(cfg.ServerURL, cfg.RequestTimeout)
			if password == "" {
				err := client.SendMagicLink(cmd.Context(), email)
				if err != nil {
					return failed("Failed to send sign-in link", err)
				}
				notify.Success("Check your email for the sign-in link")
				fmt.Println("Then run: cortex verify <link>")
				return nil
			}

			session, err := client.SignIn(cmd.Context(), email, password)
			if err != nil {
				return failed("Failed to sign in", err)
			}
			return storeSession(session)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set CORTEX_PASSWORD); omit for a magic link")
	return cmd
}

func verifyCmd() *cobra.Command {
	var tokenType string
	cmd := &cobra.Command{
		Use:   "verify <link-or-token>",
		Short: "Complete sign-in with an emailed link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := notestore.NewClient(cfg.ServerURL, cfg.RequestTimeout)
			session, err := client.Verify(cmd.Context(), args[0], tokenType)
			if err != nil {
				return failed("Failed to verify link", err)
			}
			return storeSession(session)
		},
	}
	cmd.Flags().StringVar(&tokenType, "type", model.TokenTypeMagicLink, "Token type when passing a bare token")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if session, err := loadSession(cfg.SessionPath); err == nil {
				client := notestore.NewClient(cfg.ServerURL, cfg.RequestTimeout)
				client.SetToken(session.AccessToken)
				_ = client.SignOut(cmd.Context())
			}
			err := removeSession(cfg.SessionPath)
			if err != nil {
				return err
			}
			notify.Success("Signed out")
			return nil
		},
	}
}

func storeSession(session *notestore.Session) error {
	err := saveSession(cfg.SessionPath, session)
	if err != nil {
		return err
	}
	who := ""
	if session.User != nil {
		who = " as " + session.User.Email
	}
	notify.Success("Signed in" + who)
	return nil
}
