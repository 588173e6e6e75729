package chat

import "time"

// Profile identifies the local user. It is read-only input to the session;
// the session never mutates it.
type Profile struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Message is the canonical form of a chat message after normalization.
// It is never mutated afterwards, only rendered or discarded.
type Message struct {
	// ID is empty on legacy records. Empty IDs are never deduplicated.
	ID       string
	Username string
	Avatar   string
	Content  string
	// CreatedAt is an ISO-8601 string and always parses to a valid
	// instant after normalization.
	CreatedAt string
}

// createdAtLayouts covers the timestamp encodings the server has been
// observed to emit: RFC 3339 with and without sub-second precision, and
// naive isoformat strings without a zone (treated as UTC).
var createdAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Time resolves the creation timestamp to an instant.
func (m Message) Time() (time.Time, error) {
	var err error
	for _, layout := range createdAtLayouts {
		var ts time.Time
		ts, err = time.Parse(layout, m.CreatedAt)
		if err == nil {
			return ts, nil
		}
	}
	return time.Time{}, err
}
