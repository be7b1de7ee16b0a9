package urlparser

import (
	"errors"
	"strconv"
	"strings"
)

type Target int

const (
	TargetCart Target = iota
	TargetItems
	TargetItem
	TargetCheckout
)

type PathParams struct {
	Target     Target
	CartItemId int64
}

// ParseCartPath splits /cart, /cart/items, /cart/checkout and
// /cart/items/{cartItemId}.
func ParseCartPath(path string) (PathParams, error) {
	trimmed := strings.Trim(path, "/")
	parts := strings.Split(trimmed, "/")

	params := PathParams{}

	if parts[0] != "cart" {
		return params, errors.New("invalid path, expected /cart")
	}

	switch len(parts) {
	case 1:
		params.Target = TargetCart
		return params, nil
	case 2:
		switch parts[1] {
		case "items":
			params.Target = TargetItems
		case "checkout":
			params.Target = TargetCheckout
		default:
			return params, errors.New("invalid path, expected /cart/items or /cart/checkout")
		}
		return params, nil
	case 3:
		if parts[1] != "items" {
			return params, errors.New("invalid path, expected /cart/items/{cartItemId}")
		}
		cartItemId, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || cartItemId <= 0 {
			return params, errors.New("invalid cartItemId, must be a positive int")
		}
		params.Target = TargetItem
		params.CartItemId = cartItemId
		return params, nil
	default:
		return params, errors.New("wrong url format")
	}
}
