package enums

import "fmt"

// ActivityAction identifies an entry in an invoice's audit trail.
type ActivityAction string

const (
	ActivityActionOrderAdded       ActivityAction = "order_added"
	ActivityActionInvoiceCreated   ActivityAction = "invoice_created"
	ActivityActionProofUploaded    ActivityAction = "proof_uploaded"
	ActivityActionPaymentConfirmed ActivityAction = "payment_confirmed"
	ActivityActionProofRejected    ActivityAction = "proof_rejected"
)

var validActivityActions = []ActivityAction{
	ActivityActionOrderAdded,
	ActivityActionInvoiceCreated,
	ActivityActionProofUploaded,
	ActivityActionPaymentConfirmed,
	ActivityActionProofRejected,
}

// String implements fmt.Stringer.
func (a ActivityAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActivityAction.
func (a ActivityAction) IsValid() bool {
	for _, candidate := range validActivityActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActivityAction converts raw input into an ActivityAction.
func ParseActivityAction(value string) (ActivityAction, error) {
	for _, candidate := range validActivityActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity action %q", value)
}
