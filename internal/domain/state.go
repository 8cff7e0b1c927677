package domain

// FeedbackState is the lifecycle state of a FeedbackItem. The stored state
// column is the single source of truth for routing and delivery decisions;
// every state change in the repo layer is conditional on the expected current
// value, which is what keeps the polling loop and the admin surface from
// processing the same item twice.
type FeedbackState string

// Lifecycle states, in rough processing order.
const (
	// StateNew is the initial state of an ingested item.
	StateNew FeedbackState = "new"
	// StateAutoEligible marks a routed item cleared for automatic delivery.
	StateAutoEligible FeedbackState = "auto_eligible"
	// StateNeedsReview marks a routed item that requires human approval.
	StateNeedsReview FeedbackState = "needs_review"
	// StateDraftedAuto holds a generated draft on the automatic path.
	StateDraftedAuto FeedbackState = "drafted_auto"
	// StateDraftedPending holds a generated draft awaiting approval.
	StateDraftedPending FeedbackState = "drafted_pending"
	// StateApproved marks a pending draft released by the operator.
	StateApproved FeedbackState = "approved"
	// StateSent means the reply was delivered to the marketplace. Terminal.
	StateSent FeedbackState = "sent"
	// StateSkipped means the item carried no usable rating. Terminal.
	StateSkipped FeedbackState = "skipped"
	// StateFailed records an exhausted or permanent gateway failure. The
	// operator retry edge restores the state stored in FailedFrom.
	StateFailed FeedbackState = "failed"
)

// RoutePath is the routing decision attribute recorded together with the
// transition out of StateNew.
type RoutePath string

const (
	// RouteAuto sends the item down the no-human-gate path.
	RouteAuto RoutePath = "auto"
	// RouteReview parks the draft until the operator approves it.
	RouteReview RoutePath = "review"
)

// transitions is the authoritative edge set of the item state machine.
// StateFailed's outgoing edges model the operator retry, which must also
// match the item's recorded FailedFrom state.
var transitions = map[FeedbackState][]FeedbackState{
	StateNew:            {StateSkipped, StateAutoEligible, StateNeedsReview},
	StateAutoEligible:   {StateDraftedAuto, StateFailed},
	StateNeedsReview:    {StateDraftedPending, StateFailed},
	StateDraftedAuto:    {StateSent, StateFailed},
	StateDraftedPending: {StateApproved},
	StateApproved:       {StateSent, StateFailed},
	StateFailed:         {StateAutoEligible, StateNeedsReview, StateDraftedAuto, StateApproved},
}

// Valid reports whether s is a known lifecycle state.
func (s FeedbackState) Valid() bool {
	switch s {
	case StateNew, StateAutoEligible, StateNeedsReview, StateDraftedAuto,
		StateDraftedPending, StateApproved, StateSent, StateSkipped, StateFailed:
		return true
	}
	return false
}

// Terminal reports whether no pipeline actor will ever move the item again.
// StateFailed is excluded because the operator retry edge re-enters the
// pipeline.
func (s FeedbackState) Terminal() bool {
	return s == StateSent || s == StateSkipped
}

// CanTransition reports whether the edge s -> to exists in the state machine.
func (s FeedbackState) CanTransition(to FeedbackState) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Drafted reports whether the item currently holds an undelivered draft.
func (s FeedbackState) Drafted() bool {
	return s == StateDraftedAuto || s == StateDraftedPending || s == StateApproved
}
