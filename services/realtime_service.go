package services

import (
	"log"

	pubnub "github.com/pubnub/go/v7"
)

const seatChannel = "seat-state"

// RealtimeNotifier broadcasts seat-state changes over PubNub so connected
// clients can reconcile their view without polling GET /api/seats on every
// change. Publish failures are logged and swallowed: realtime broadcast is
// a UX convenience, never a source of truth (Snapshot always wins).
type RealtimeNotifier struct {
	pn *pubnub.PubNub
}

func NewRealtimeNotifier(pn *pubnub.PubNub) *RealtimeNotifier {
	return &RealtimeNotifier{pn: pn}
}

func (n *RealtimeNotifier) publish(event string, payload map[string]any) {
	payload["type"] = event
	_, _, err := n.pn.Publish().
		Channel(seatChannel).
		Message(payload).
		Execute()
	if err != nil {
		log.Printf("realtime: publish %s failed: %v", event, err)
	}
}

func (n *RealtimeNotifier) PublishSeatLocked(seatID, userID string) {
	n.publish("seat_locked", map[string]any{
		"seat_id": seatID,
		"user_id": userID,
	})
}

func (n *RealtimeNotifier) PublishSeatReleased(seatID, userID string) {
	n.publish("seat_released", map[string]any{
		"seat_id": seatID,
		"user_id": userID,
	})
}

func (n *RealtimeNotifier) PublishSeatSold(seatID, userID string) {
	n.publish("seat_sold", map[string]any{
		"seat_id": seatID,
		"user_id": userID,
	})
}

func (n *RealtimeNotifier) PublishReset() {
	n.publish("reset", map[string]any{})
}
