// Package cartshape maps the cart payloads the backend has been seen to
// return onto the canonical models.Cart.
package cartshape

import (
	"bytes"
	"encoding/json"

	"cartsync/internal/models"
)

type Shape int

const (
	ShapeUnknown Shape = iota
	// {"item": [...], "total": n}
	ShapeItem
	// [...]
	ShapeBareArray
	// {"cartItems": [...], "total": n}
	ShapeCartItems
	// {"items": [...], "total": n}
	ShapeItems
	// one cart item object, as returned by add and update
	ShapeSingleItem
)

func (s Shape) String() string {
	switch s {
	case ShapeItem:
		return "item"
	case ShapeBareArray:
		return "bare_array"
	case ShapeCartItems:
		return "cart_items"
	case ShapeItems:
		return "items"
	case ShapeSingleItem:
		return "single_item"
	default:
		return "unknown"
	}
}

// IsCart reports whether the shape carries a whole cart snapshot.
func (s Shape) IsCart() bool {
	switch s {
	case ShapeItem, ShapeBareArray, ShapeCartItems, ShapeItems:
		return true
	default:
		return false
	}
}

type Result struct {
	Shape Shape
	Cart  models.Cart
	// Item is set for ShapeSingleItem only.
	Item *models.CartItem
}

// itemKeys are tried in order when an object carries more than one of them.
var itemKeys = []struct {
	key   string
	shape Shape
}{
	{key: "item", shape: ShapeItem},
	{key: "cartItems", shape: ShapeCartItems},
	{key: "items", shape: ShapeItems},
}

// Parse never fails: anything it cannot recognise comes back as
// ShapeUnknown with an empty cart.
func Parse(raw []byte) Result {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return unknown()
	}

	switch trimmed[0] {
	case '[':
		items, ok := decodeItems(trimmed)
		if !ok {
			return unknown()
		}
		return Result{Shape: ShapeBareArray, Cart: models.Cart{Items: items}}
	case '{':
		return parseObject(trimmed)
	default:
		return unknown()
	}
}

func parseObject(raw []byte) Result {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return unknown()
	}

	for _, k := range itemKeys {
		value, present := fields[k.key]
		if !present || !isArray(value) {
			continue
		}

		items, ok := decodeItems(value)
		if !ok {
			return unknown()
		}

		var total models.Money
		if rawTotal, present := fields["total"]; present {
			if err := json.Unmarshal(rawTotal, &total); err != nil {
				return unknown()
			}
		}

		var id int64
		if rawId, present := fields["id"]; present {
			_ = json.Unmarshal(rawId, &id)
		}

		return Result{Shape: k.shape, Cart: models.Cart{Id: id, Items: items, Total: total}}
	}

	if _, hasFood := fields["food"]; hasFood {
		if _, hasQuantity := fields["quantity"]; hasQuantity {
			var item models.CartItem
			if err := json.Unmarshal(raw, &item); err != nil {
				return unknown()
			}
			return Result{Shape: ShapeSingleItem, Cart: models.EmptyCart(), Item: &item}
		}
	}

	return unknown()
}

func decodeItems(raw []byte) ([]models.CartItem, bool) {
	items := make([]models.CartItem, 0)
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	if items == nil {
		items = make([]models.CartItem, 0)
	}
	return items, true
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func unknown() Result {
	return Result{Shape: ShapeUnknown, Cart: models.EmptyCart()}
}
