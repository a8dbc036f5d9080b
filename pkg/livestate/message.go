package livestate

import (
	"time"

	"github.com/Marenz/spacebot-dash/pkg/api"
	"github.com/google/uuid"
)

const (
	OriginUser      = "user"
	OriginAssistant = "assistant"
)

// ViewMessage is the store's own projection of one conversation message.
// Timestamp is milliseconds since epoch: creation time for messages lifted
// from the durable log, arrival time for live ones. Never mutated after
// insertion, only evicted.
type ViewMessage struct {
	ID        string
	Origin    string
	Sender    string
	Text      string
	Timestamp int64
}

// NewLiveMessage builds a ViewMessage for an event that just arrived over
// the stream. Identity is synthesized (uuid), not derived from any
// server-issued message id; see the merge cutoff notes in store.go for the
// duplication edge this leaves open.
func NewLiveMessage(origin, sender, text string) ViewMessage {
	return ViewMessage{
		ID:        uuid.NewString(),
		Origin:    origin,
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
}

// FromPersisted projects a durable-log row into a ViewMessage
func FromPersisted(msg api.Message) ViewMessage {
	sender := ""
	if msg.SenderName != nil {
		sender = *msg.SenderName
	} else if msg.SenderID != nil {
		sender = *msg.SenderID
	}

	origin := OriginUser
	if msg.Role == api.RoleAssistant {
		origin = OriginAssistant
	}

	return ViewMessage{
		ID:        msg.ID,
		Origin:    origin,
		Sender:    sender,
		Text:      msg.Content,
		Timestamp: msg.CreatedAt.UnixMilli(),
	}
}

// FromPersistedAll projects a history snapshot, preserving its order
func FromPersistedAll(msgs []api.Message) []ViewMessage {
	result := make([]ViewMessage, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, FromPersisted(msg))
	}
	return result
}
