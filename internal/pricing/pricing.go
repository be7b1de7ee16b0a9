// Package pricing holds the display-side delivery fee rules. The backend
// computes the authoritative total at checkout.
package pricing

import "cartsync/internal/models"

const (
	DefaultFreeDeliveryThreshold models.Money = 2500
	DefaultFlatDeliveryFee       models.Money = 299
)

type Policy struct {
	FreeDeliveryThreshold models.Money
	FlatDeliveryFee       models.Money
}

func DefaultPolicy() Policy {
	return Policy{
		FreeDeliveryThreshold: DefaultFreeDeliveryThreshold,
		FlatDeliveryFee:       DefaultFlatDeliveryFee,
	}
}

func (p Policy) DeliveryFee(subtotal models.Money) models.Money {
	if subtotal >= p.FreeDeliveryThreshold {
		return 0
	}
	return p.FlatDeliveryFee
}

func (p Policy) UntilFreeDelivery(subtotal models.Money) models.Money {
	if subtotal >= p.FreeDeliveryThreshold {
		return 0
	}
	return p.FreeDeliveryThreshold - subtotal
}

func (p Policy) Summarize(cart models.Cart, loading bool) models.CartView {
	items := cart.Items
	if items == nil {
		items = []models.CartItem{}
	}

	subtotal := cart.Subtotal()
	fee := p.DeliveryFee(subtotal)

	return models.CartView{
		Items:             items,
		ServerTotal:       cart.Total,
		Subtotal:          subtotal,
		DeliveryFee:       fee,
		GrandTotal:        subtotal + fee,
		UntilFreeDelivery: p.UntilFreeDelivery(subtotal),
		ItemCount:         cart.ItemCount(),
		Loading:           loading,
	}
}
