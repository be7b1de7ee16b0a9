package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Money is an amount in backend units. The backend decides whether that is
// cents or whole currency; nothing here converts between them.
type Money int64

func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = 0
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("money: %w", err)
	}

	if i, err := n.Int64(); err == nil {
		*m = Money(i)
		return nil
	}

	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return fmt.Errorf("money: %w", err)
	}
	if f != math.Trunc(f) {
		return fmt.Errorf("money: fractional amount %s", n.String())
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return fmt.Errorf("money: amount %s out of range", n.String())
	}
	*m = Money(f)

	return nil
}

type Restaurant struct {
	Id   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

type Food struct {
	Id          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Price       Money       `json:"price"`
	Images      []string    `json:"images,omitempty"`
	Available   bool        `json:"available"`
	Restaurant  *Restaurant `json:"restaurant,omitempty"`
}

type CartItem struct {
	Id          int64    `json:"id"`
	Food        Food     `json:"food"`
	Quantity    int      `json:"quantity"`
	Ingredients []string `json:"ingredients"`
	TotalPrice  Money    `json:"totalPrice"`
}

// LineTotal prefers the server-computed line price.
func (i CartItem) LineTotal() Money {
	if i.TotalPrice != 0 {
		return i.TotalPrice
	}
	return i.Food.Price * Money(i.Quantity)
}

type Cart struct {
	Id    int64      `json:"id,omitempty"`
	Items []CartItem `json:"items"`
	Total Money      `json:"total"`
}

func EmptyCart() Cart {
	return Cart{Items: []CartItem{}}
}

func (c Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

func (c Cart) Subtotal() Money {
	var total Money
	for _, item := range c.Items {
		total += item.LineTotal()
	}
	return total
}

// Find returns the item with the given cart item id.
func (c Cart) Find(cartItemId int64) (CartItem, bool) {
	for _, item := range c.Items {
		if item.Id == cartItemId {
			return item, true
		}
	}
	return CartItem{}, false
}

type AddItemRequest struct {
	FoodId      int64    `json:"foodId" validate:"required,gt=0"`
	Quantity    int      `json:"quantity" validate:"min=1"`
	Ingredients []string `json:"ingredients"`
}

type UpdateItemRequest struct {
	CartItemId int64 `json:"cartItemId" validate:"required,gt=0"`
	Quantity   int   `json:"quantity" validate:"min=1"`
}

type AdjustItemRequest struct {
	Delta int `json:"delta" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Address struct {
	StreetAddress string `json:"streetAddress" validate:"required"`
	City          string `json:"city"`
	StateProvince string `json:"stateProvince"`
	PostalCode    string `json:"postalCode"`
	Country       string `json:"country"`
}

type OrderRequest struct {
	RestaurantId    int64   `json:"restaurantId,omitempty"`
	DeliveryAddress Address `json:"deliveryAddress"`
}

// Order is the part of the backend's order record the client reads back.
type Order struct {
	Id          int64  `json:"id"`
	OrderStatus string `json:"orderStatus"`
	TotalPrice  Money  `json:"totalPrice"`
	TotalItem   int    `json:"totalItem"`
}

type AuthResponse struct {
	Jwt     string `json:"jwt"`
	Message string `json:"message"`
	Role    string `json:"role"`
}

type User struct {
	Email string `json:"email" db:"email"`
	Role  string `json:"role" db:"role"`
}

// CartView is the render-ready projection of a cart snapshot.
type CartView struct {
	Items             []CartItem `json:"items"`
	ServerTotal       Money      `json:"serverTotal"`
	Subtotal          Money      `json:"subtotal"`
	DeliveryFee       Money      `json:"deliveryFee"`
	GrandTotal        Money      `json:"grandTotal"`
	UntilFreeDelivery Money      `json:"untilFreeDelivery"`
	ItemCount         int        `json:"itemCount"`
	Loading           bool       `json:"loading"`
}

type Session struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Token     string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s Session) User() User {
	return User{Email: s.Email, Role: s.Role}
}

type CartSnapshot struct {
	Email     string    `json:"email"`
	Cart      Cart      `json:"cart"`
	UpdatedAt time.Time `json:"updatedAt"`
}
