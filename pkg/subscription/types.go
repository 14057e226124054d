package subscription

// Status represents the current state of a subscription.
type Status string

const (
	StatusActive     Status = "active"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
	StatusIncomplete Status = "incomplete"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPastDue, StatusCanceled, StatusIncomplete:
		return true
	}
	return false
}

// PaymentMethod identifies which channel paid for the subscription.
type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodWeb3   PaymentMethod = "web3"
	PaymentMethodNone   PaymentMethod = "none"
)
