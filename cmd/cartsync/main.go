package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "cartsync",
	Short: "Keep a local mirror of your food-ordering cart",
	Long: `cartsync signs in to the food-ordering backend, mirrors the signed-in
user's cart locally and serves it over a small HTTP gateway.

Available commands:
  serve  - Run the local gateway
  login  - Sign in and remember the session
  logout - Forget the session
  cart   - Show and edit the cart`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ./config.yaml)")

	rootCmd.AddCommand(serveCmd, loginCmd, logoutCmd, cartCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
