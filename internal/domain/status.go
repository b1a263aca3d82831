package domain

import (
	"fmt"
	"time"
)

// DefaultTimeUnit is the spacing unit of the lifecycle schedule.
const DefaultTimeUnit = time.Second

type OrderStatus string

const (
	OrderStatusReceived       OrderStatus = "Order Received"
	OrderStatusPreparing      OrderStatus = "Preparing"
	OrderStatusOutForDelivery OrderStatus = "Out for Delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
)

// lifecycle lists the states in the only order an order may pass through them.
var lifecycle = []OrderStatus{
	OrderStatusReceived,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// Transition is one deferred step of the lifecycle, expressed in time units
// after the order was created.
type Transition struct {
	Offset int
	Status OrderStatus
}

var transitions = []Transition{
	{Offset: 3, Status: OrderStatusPreparing},
	{Offset: 6, Status: OrderStatusOutForDelivery},
	{Offset: 9, Status: OrderStatusDelivered},
}

// Transitions returns the non-initial steps of the lifecycle in firing order.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

// Delay converts the transition offset to a duration for the given unit.
func (t Transition) Delay(unit time.Duration) time.Duration {
	return time.Duration(t.Offset) * unit
}

// Statuses returns every lifecycle state in order.
func Statuses() []OrderStatus {
	out := make([]OrderStatus, len(lifecycle))
	copy(out, lifecycle)
	return out
}

func ParseStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

// Rank is the position of the status in the lifecycle, or -1 if unknown.
func (s OrderStatus) Rank() int {
	for i, st := range lifecycle {
		if st == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) Valid() bool {
	return s.Rank() >= 0
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered
}

// Next returns the following state. ok is false for the terminal state.
func (s OrderStatus) Next() (next OrderStatus, ok bool) {
	r := s.Rank()
	if r < 0 || r == len(lifecycle)-1 {
		return "", false
	}
	return lifecycle[r+1], true
}

// Before returns the states that rank strictly below s. A conditional
// advance to s only applies to an order currently in one of them.
func (s OrderStatus) Before() []OrderStatus {
	r := s.Rank()
	if r <= 0 {
		return nil
	}
	out := make([]OrderStatus, r)
	copy(out, lifecycle[:r])
	return out
}

// CanAdvance reports whether moving from s to target goes forward.
func (s OrderStatus) CanAdvance(target OrderStatus) bool {
	return target.Valid() && s.Rank() < target.Rank()
}
