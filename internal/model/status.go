package model

// Order statuses
const (
	StatusBasket    = "basket"
	StatusNew       = "new"
	StatusConfirmed = "confirmed"
	StatusAssembled = "assembled"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusCanceled  = "canceled"
)

// statusTransitions is the fixed order lifecycle graph. A basket only
// leaves its state through confirmation; delivered and canceled are
// terminal.
var statusTransitions = map[string][]string{
	StatusBasket:    {StatusNew},
	StatusNew:       {StatusConfirmed, StatusCanceled},
	StatusConfirmed: {StatusAssembled, StatusCanceled},
	StatusAssembled: {StatusSent, StatusCanceled},
	StatusSent:      {StatusDelivered, StatusCanceled},
	StatusDelivered: {},
	StatusCanceled:  {},
}

// ValidStatus reports whether s names a known order status
func ValidStatus(s string) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
