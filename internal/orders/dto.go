package orders

import "github.com/bitedash/bitedash-backend/pkg/enums"

// TransitionInput carries one requested status change.
type TransitionInput struct {
	OrderID   int64
	Target    enums.OrderStatus
	ActorID   int64
	ActorRole enums.ActorRole
	Remarks   string
}

// RateInput carries a payer's one-time rating of a delivered order.
type RateInput struct {
	OrderID  int64
	ActorID  int64
	Rating   int
	Feedback *string
}

// VerifyPickupInput carries the proof presented at the counter. Either the
// signed token or the OTP is sufficient.
type VerifyPickupInput struct {
	OrderID   int64
	Token     string
	OTP       string
	ActorID   int64
	ActorRole enums.ActorRole
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status *enums.OrderStatus
	Limit  int
	Offset int
}
