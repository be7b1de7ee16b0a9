package main

import (
	"context"
	"fmt"
	"strconv"

	"cartsync/internal/app"
	"cartsync/internal/models"

	"github.com/spf13/cobra"
)

var (
	showCached     bool
	addQuantity    int
	addIngredients []string
	deliverTo      models.Address
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show and edit the signed-in user's cart",
	Long: `Show and edit the cart of the stored session.

Available subcommands:
  show     - Reload and print the cart
  add      - Add a food to the cart
  update   - Set the quantity of a cart item
  remove   - Remove a cart item
  clear    - Empty the cart
  checkout - Order the cart for delivery`,
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Reload and print the cart",
	Args:  cobra.NoArgs,
	RunE:  runCartShow,
}

var cartAddCmd = &cobra.Command{
	Use:   "add <foodId>",
	Short: "Add a food to the cart",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartAdd,
}

var cartUpdateCmd = &cobra.Command{
	Use:   "update <cartItemId> <quantity>",
	Short: "Set the quantity of a cart item",
	Args:  cobra.ExactArgs(2),
	RunE:  runCartUpdate,
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <cartItemId>",
	Short: "Remove a cart item",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartRemove,
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	Args:  cobra.NoArgs,
	RunE:  runCartClear,
}

var cartCheckoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Order the cart for delivery and empty it",
	Args:  cobra.NoArgs,
	RunE:  runCartCheckout,
}

func init() {
	cartShowCmd.Flags().BoolVar(&showCached, "cached", false, "print the last recorded cart without contacting the backend")
	cartAddCmd.Flags().IntVar(&addQuantity, "quantity", 1, "how many to add")
	cartAddCmd.Flags().StringSliceVar(&addIngredients, "ingredient", nil, "ingredient to include (repeatable)")

	cartCheckoutCmd.Flags().StringVar(&deliverTo.StreetAddress, "street", "", "delivery street address")
	cartCheckoutCmd.Flags().StringVar(&deliverTo.City, "city", "", "delivery city")
	cartCheckoutCmd.Flags().StringVar(&deliverTo.StateProvince, "state", "", "delivery state or province")
	cartCheckoutCmd.Flags().StringVar(&deliverTo.PostalCode, "postal-code", "", "delivery postal code")
	cartCheckoutCmd.Flags().StringVar(&deliverTo.Country, "country", "", "delivery country")
	_ = cartCheckoutCmd.MarkFlagRequired("street")

	cartCmd.AddCommand(cartShowCmd, cartAddCmd, cartUpdateCmd, cartRemoveCmd, cartClearCmd, cartCheckoutCmd)
}

func runCartShow(cmd *cobra.Command, args []string) error {
	application, _, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	if showCached {
		snapshot, err := application.Session.Cached(cmd.Context())
		if err != nil {
			return err
		}
		printSnapshot(cmd.OutOrStdout(), snapshot, application.Policy())
		return nil
	}

	return withCart(cmd, application, func(ctx context.Context) error {
		_, err := application.Session.Fetch(ctx)
		return err
	})
}

func runCartAdd(cmd *cobra.Command, args []string) error {
	foodId, err := parseID("foodId", args[0])
	if err != nil {
		return err
	}

	application, _, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	return withCart(cmd, application, func(ctx context.Context) error {
		_, err := application.Session.AddItem(ctx, foodId, addQuantity, addIngredients)
		return err
	})
}

func runCartUpdate(cmd *cobra.Command, args []string) error {
	cartItemId, err := parseID("cartItemId", args[0])
	if err != nil {
		return err
	}
	quantity, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("quantity must be an integer: %w", err)
	}

	application, _, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	return withCart(cmd, application, func(ctx context.Context) error {
		_, err := application.Session.UpdateItemQuantity(ctx, cartItemId, quantity)
		return err
	})
}

func runCartRemove(cmd *cobra.Command, args []string) error {
	cartItemId, err := parseID("cartItemId", args[0])
	if err != nil {
		return err
	}

	application, _, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	return withCart(cmd, application, func(ctx context.Context) error {
		_, err := application.Session.RemoveItem(ctx, cartItemId)
		return err
	})
}

func runCartClear(cmd *cobra.Command, args []string) error {
	application, _, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	return withCart(cmd, application, func(ctx context.Context) error {
		_, err := application.Session.Clear(ctx)
		return err
	})
}

func runCartCheckout(cmd *cobra.Command, args []string) error {
	application, _, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := cmd.Context()
	if err := restore(ctx, application); err != nil {
		return err
	}

	order, err := application.Session.Checkout(ctx, deliverTo)
	if err != nil {
		return err
	}

	printOrder(cmd.OutOrStdout(), order)
	return nil
}

// withCart resumes the stored session, runs op and prints the cart left
// behind. A failed op still prints the cart before returning its error.
func withCart(cmd *cobra.Command, application *app.App, op func(ctx context.Context) error) error {
	ctx := cmd.Context()
	if err := restore(ctx, application); err != nil {
		return err
	}

	opErr := op(ctx)

	view, err := application.Session.View()
	if err != nil {
		return err
	}
	printView(cmd.OutOrStdout(), view)

	return opErr
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}
