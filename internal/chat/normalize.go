package chat

import (
	"encoding/json"
	"time"

	"github.com/JohnnyCleto/atlaschat/internal/proto"
)

// dateContainer is the alternate created_at shape produced by older
// database exports: {"$date": "..."} or {"$date": <epoch millis>}.
type dateContainer struct {
	Date json.RawMessage `json:"$date"`
}

// Normalize canonicalizes a raw inbound record into a Message.
//
// created_at resolution order: a plain string is kept verbatim, a $date
// container has its embedded value extracted, and an absent timestamp is
// replaced with the current instant. All other fields pass through
// unchanged. Normalizing the same record twice yields an identical result
// whenever the record carries a timestamp.
func Normalize(raw proto.RawRecord) Message {
	return Message{
		ID:        raw.ID,
		Username:  raw.Username,
		Avatar:    raw.Avatar,
		Content:   raw.Content,
		CreatedAt: normalizeCreatedAt(raw.CreatedAt),
	}
}

func normalizeCreatedAt(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Now().UTC().Format(time.RFC3339Nano)
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var wrapped dateContainer
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Date) > 0 {
		var inner string
		if err := json.Unmarshal(wrapped.Date, &inner); err == nil {
			return inner
		}
		var millis int64
		if err := json.Unmarshal(wrapped.Date, &millis); err == nil {
			return time.UnixMilli(millis).UTC().Format(time.RFC3339Nano)
		}
	}

	return time.Now().UTC().Format(time.RFC3339Nano)
}
