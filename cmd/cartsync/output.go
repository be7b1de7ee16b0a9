package main

import (
	"fmt"
	"io"
	"strings"

	"cartsync/internal/models"
	"cartsync/internal/pricing"

	"github.com/fatih/color"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	totalColor  = color.New(color.FgGreen, color.Bold)
	noticeColor = color.New(color.FgYellow)
	mutedColor  = color.New(color.Faint)
)

func printView(w io.Writer, view models.CartView) {
	if len(view.Items) == 0 {
		noticeColor.Fprintln(w, "Your cart is empty")
		return
	}

	headerColor.Fprintf(w, "%-6s %-28s %5s %10s\n", "ID", "FOOD", "QTY", "PRICE")
	for _, item := range view.Items {
		fmt.Fprintf(w, "%-6d %-28s %5d %10d\n", item.Id, truncate(item.Food.Name, 28), item.Quantity, item.LineTotal())
		if len(item.Ingredients) > 0 {
			mutedColor.Fprintf(w, "       with %s\n", strings.Join(item.Ingredients, ", "))
		}
	}

	fmt.Fprintf(w, "\n%-41s %10d\n", "Subtotal", view.Subtotal)
	if view.DeliveryFee == 0 {
		fmt.Fprintf(w, "%-41s %10s\n", "Delivery", "free")
	} else {
		fmt.Fprintf(w, "%-41s %10d\n", "Delivery", view.DeliveryFee)
	}
	totalColor.Fprintf(w, "%-41s %10d\n", "Total", view.GrandTotal)

	if view.UntilFreeDelivery > 0 {
		noticeColor.Fprintf(w, "Add %d more for free delivery\n", view.UntilFreeDelivery)
	}
}

func printSnapshot(w io.Writer, snapshot models.CartSnapshot, policy pricing.Policy) {
	mutedColor.Fprintf(w, "Recorded %s for %s\n", snapshot.UpdatedAt.Local().Format("2006-01-02 15:04"), snapshot.Email)
	printView(w, policy.Summarize(snapshot.Cart, false))
}

func printOrder(w io.Writer, order models.Order) {
	totalColor.Fprintf(w, "Order #%d placed", order.Id)
	if order.OrderStatus != "" {
		mutedColor.Fprintf(w, " (%s)", order.OrderStatus)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-41s %10d\n", "Items", order.TotalItem)
	fmt.Fprintf(w, "%-41s %10d\n", "Total", order.TotalPrice)
}

func printSignedIn(w io.Writer, user models.User) {
	totalColor.Fprintf(w, "Signed in as %s", user.Email)
	if user.Role != "" {
		mutedColor.Fprintf(w, " (%s)", user.Role)
	}
	fmt.Fprintln(w)
}

func printSignedOut(w io.Writer) {
	noticeColor.Fprintln(w, "Signed out")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
