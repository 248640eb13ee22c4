package enums

import "fmt"

// InvoiceStatus tracks the billing state of a vendor fee invoice.
type InvoiceStatus string

const (
	InvoiceStatusAwaitingPayment      InvoiceStatus = "awaiting_payment"
	InvoiceStatusAwaitingVerification InvoiceStatus = "awaiting_verification"
	InvoiceStatusPaid                 InvoiceStatus = "paid"
)

var validInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusAwaitingPayment,
	InvoiceStatusAwaitingVerification,
	InvoiceStatusPaid,
}

// String implements fmt.Stringer.
func (i InvoiceStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InvoiceStatus.
func (i InvoiceStatus) IsValid() bool {
	for _, candidate := range validInvoiceStatuses {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInvoiceStatus converts raw input into an InvoiceStatus.
func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	for _, candidate := range validInvoiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}
