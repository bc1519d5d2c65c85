package order

import (
	"errors"
	"time"

	"canteen/internal/meal"
)

// Status is a step on the order lifecycle ladder.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusPrepared  Status = "PREPARED"
	StatusServed    Status = "SERVED"
	StatusCancelled Status = "CANCELLED"
)

// PaymentStatus tracks order payment.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

var (
	// ErrNotFound is returned when no order matches.
	ErrNotFound = errors.New("order not found")
	// ErrBadTransition is returned for an off-ladder status change.
	ErrBadTransition = errors.New("invalid order status transition")
)

// ladder is strictly linear; CANCELLED is reachable from any non-terminal
// step, SERVED and CANCELLED are terminal.
var ladder = map[Status]Status{
	StatusPending:   StatusConfirmed,
	StatusConfirmed: StatusPrepared,
	StatusPrepared:  StatusServed,
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	if to == StatusCancelled {
		return from != StatusServed && from != StatusCancelled
	}
	return ladder[from] == to
}

// Item is one line on an order.
type Item struct {
	MenuItem string  `json:"menu_item"`
	Qty      int     `json:"qty"`
	Price    float64 `json:"price"`
}

// Order is an ad-hoc (non-subscription) meal purchase redeemable by coupon.
type Order struct {
	ID            string        `json:"id"`
	OrderNumber   string        `json:"order_number"`
	CouponCode    string        `json:"coupon_code,omitempty"`
	MealType      meal.Type     `json:"meal_type"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Items         []Item        `json:"items"`
	Total         float64       `json:"total"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
