package main

import (
	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the backend and remember the session",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")
}

func runLogin(cmd *cobra.Command, args []string) error {
	application, _, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	session, err := application.Session.Login(cmd.Context(), loginEmail, loginPassword)
	if err != nil {
		return err
	}

	printSignedIn(cmd.OutOrStdout(), session.User())

	view, err := application.Session.View()
	if err != nil {
		return err
	}
	printView(cmd.OutOrStdout(), view)

	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	application, _, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.Session.Logout(cmd.Context()); err != nil {
		return err
	}

	printSignedOut(cmd.OutOrStdout())
	return nil
}
