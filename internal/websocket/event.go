package websocket

// Event kinds broadcast to observers. Every externally observable state
// change produces exactly one event.
const (
	KindWeightRecorded      = "weight_recorded"
	KindChatCreated         = "chat_created"
	KindChatUpdated         = "chat_updated"
	KindChatPinned          = "chat_pinned"
	KindChatUnpinned        = "chat_unpinned"
	KindChatHidden          = "chat_hidden"
	KindChatDeleted         = "chat_deleted"
	KindChallengeStatus     = "challenge_status"
	KindSettlementCompleted = "settlement_completed"
)

// Event is one real-time notification. Delivery is best-effort, at-most-once
// per connected observer; a disconnected observer recovers by re-reading
// current state, never by replay.
type Event struct {
	Kind        string         `json:"kind"`
	ChallengeID int64          `json:"challenge_id"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// NewEvent creates an Event for the given challenge.
func NewEvent(kind string, challengeID int64, payload map[string]any) Event {
	return Event{
		Kind:        kind,
		ChallengeID: challengeID,
		Payload:     payload,
	}
}
