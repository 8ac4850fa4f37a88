package order

import "time"

type Status string

const (
	StatusPending           Status = "pending"
	StatusProcessingPayment Status = "processing_payment"
	StatusPaid              Status = "paid"
	StatusPaymentFailed     Status = "payment_failed"
	StatusPickingPacking    Status = "picking_packing"
	StatusShipped           Status = "shipped"
	StatusDelivered         Status = "delivered"
	StatusCancelled         Status = "cancelled"
)

// transitions is the order lifecycle as adjacency data. Delivered and
// Cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending:           {StatusProcessingPayment, StatusCancelled},
	StatusProcessingPayment: {StatusPaid, StatusPaymentFailed, StatusCancelled},
	StatusPaymentFailed:     {StatusProcessingPayment, StatusCancelled},
	StatusPaid:              {StatusPickingPacking, StatusCancelled},
	StatusPickingPacking:    {StatusShipped, StatusCancelled},
	StatusShipped:           {StatusDelivered, StatusCancelled},
	StatusDelivered:         {},
	StatusCancelled:         {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether the table has an edge from -> to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns a copy of the outgoing edges of s.
func AllowedTransitions(s Status) []Status {
	return append([]Status(nil), transitions[s]...)
}

// TransitionTo moves the order to target when the table allows it. A
// rejected transition returns false and leaves the order untouched. Paid,
// Shipped and Delivered stamp their timestamp the first time only.
func (o *Order) TransitionTo(target Status) bool {
	if !CanTransition(o.Status, target) {
		return false
	}

	now := time.Now().UTC()
	switch target {
	case StatusPaid:
		stampOnce(&o.PaidAt, now)
	case StatusShipped:
		stampOnce(&o.ShippedAt, now)
	case StatusDelivered:
		stampOnce(&o.DeliveredAt, now)
	}
	o.Status = target
	o.UpdatedAt = now
	return true
}

func stampOnce(field **time.Time, at time.Time) {
	if *field == nil {
		t := at
		*field = &t
	}
}
