package order

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending      Status = "pending"
	StatusPaid         Status = "paid"
	StatusPaidWhatsApp Status = "paid_whatsapp"
	StatusProcessing   Status = "processing"
	StatusShipped      Status = "shipped"
	StatusDelivered    Status = "delivered"
	StatusCancelled    Status = "cancelled"
)

var allStatuses = map[Status]struct{}{
	StatusPending:      {},
	StatusPaid:         {},
	StatusPaidWhatsApp: {},
	StatusProcessing:   {},
	StatusShipped:      {},
	StatusDelivered:    {},
	StatusCancelled:    {},
}

// paidLike statuses set paidAt the first time one of them is entered.
var paidLike = map[Status]struct{}{
	StatusPaid:         {},
	StatusPaidWhatsApp: {},
	StatusDelivered:    {},
}

// IsValid reports whether s is a recognized status value.
func (s Status) IsValid() bool {
	_, ok := allStatuses[s]
	return ok
}

// IsPaidLike reports whether s counts as paid for paidAt purposes.
func (s Status) IsPaidLike() bool {
	_, ok := paidLike[s]
	return ok
}

// transitionResult classifies a requested status change.
type transitionResult int

const (
	// transitionDenied: the target status is unknown or must go through a
	// dedicated operation (cancellation).
	transitionDenied transitionResult = iota
	// transitionNoop: the change is accepted but leaves the order untouched,
	// either because the target equals the current status or because the
	// order is already cancelled (terminal state).
	transitionNoop
	// transitionApply: the change takes effect and is logged.
	transitionApply
)

// canTransition is the single decision table for the status machine.
// Cancellation is only reachable through Cancel, never through Transition.
func canTransition(current, target Status) transitionResult {
	if !target.IsValid() || target == StatusCancelled {
		return transitionDenied
	}
	if current == StatusCancelled || current == target {
		return transitionNoop
	}
	return transitionApply
}
