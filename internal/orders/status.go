package orders

import (
	"strings"

	"order-management-service/internal/apperr"
)

type Status string

const (
	StatusPlaced     Status = "PLACED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

var validStatuses = []Status{StatusPlaced, StatusProcessing, StatusShipped, StatusDelivered, StatusCompleted, StatusCancelled}

// ParseStatus accepts any letter case.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range validStatuses {
		if st == v {
			return st, nil
		}
	}
	names := make([]string, len(validStatuses))
	for i, v := range validStatuses {
		names[i] = string(v)
	}
	return "", apperr.Newf(apperr.KindInvalidTransition, "Invalid status %q. Valid statuses are: %s.", s, strings.Join(names, ", "))
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// rank orders the forward path PLACED, PROCESSING, SHIPPED, DELIVERED.
// COMPLETED and CANCELLED sit above every forward state.
func (s Status) rank() int {
	switch s {
	case StatusPlaced:
		return 0
	case StatusProcessing:
		return 1
	case StatusShipped:
		return 2
	case StatusDelivered:
		return 3
	case StatusCompleted, StatusCancelled:
		return 4
	default:
		return -1
	}
}

// CanTransition reports whether an order may move from one status to another.
// Terminal states accept nothing; otherwise the target may not rank below the
// current status. Re-asserting the current status is allowed.
func CanTransition(from, to Status) error {
	if to.rank() < 0 {
		return apperr.Newf(apperr.KindInvalidTransition, "Invalid status %q.", string(to))
	}
	if from.IsTerminal() {
		return apperr.Newf(apperr.KindInvalidTransition, "Cannot update status of a %s order.", from)
	}
	if to.rank() < from.rank() {
		return apperr.Newf(apperr.KindInvalidTransition, "Cannot move an order from %s back to %s.", from, to)
	}
	return nil
}

func CanUnlock(s Status) error {
	if s == StatusDelivered || s == StatusCompleted {
		return apperr.Newf(apperr.KindInvalidTransition, "Cannot unlock a %s order.", s)
	}
	return nil
}
