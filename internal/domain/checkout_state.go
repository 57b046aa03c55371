package domain

type CheckoutState string

const (
	CheckoutIdle                  CheckoutState = "IDLE"
	CheckoutValidating            CheckoutState = "VALIDATING"
	CheckoutSubmitting            CheckoutState = "SUBMITTING"
	CheckoutAwaitingMobilePayment CheckoutState = "AWAITING_MOBILE_PAYMENT"
	CheckoutPolling               CheckoutState = "POLLING"
	CheckoutSucceeded             CheckoutState = "SUCCEEDED"
	CheckoutFailed                CheckoutState = "FAILED"
	CheckoutTimedOut              CheckoutState = "TIMED_OUT"
)

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutIdle:                  {CheckoutValidating},
	CheckoutValidating:            {CheckoutIdle, CheckoutSubmitting},
	CheckoutSubmitting:            {CheckoutIdle, CheckoutAwaitingMobilePayment, CheckoutSucceeded},
	CheckoutAwaitingMobilePayment: {CheckoutPolling},
	CheckoutPolling:               {CheckoutSucceeded, CheckoutFailed, CheckoutTimedOut},
}

func CanTransitionTo(from, to CheckoutState) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// String representation (for logging)
func (s CheckoutState) String() string {
	return string(s)
}
