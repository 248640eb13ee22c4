package enums

import "fmt"

// OrderEvent names a vendor-driven progression step on an order.
type OrderEvent string

const (
	OrderEventAccept   OrderEvent = "accept"
	OrderEventDispatch OrderEvent = "dispatch"
	OrderEventComplete OrderEvent = "complete"
)

var validOrderEvents = []OrderEvent{
	OrderEventAccept,
	OrderEventDispatch,
	OrderEventComplete,
}

// String implements fmt.Stringer.
func (o OrderEvent) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderEvent.
func (o OrderEvent) IsValid() bool {
	for _, candidate := range validOrderEvents {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderEvent converts raw input into an OrderEvent.
func ParseOrderEvent(value string) (OrderEvent, error) {
	for _, candidate := range validOrderEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order event %q", value)
}
