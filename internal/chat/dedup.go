package chat

// Rendered tracks which message identities have already been applied to
// the current room view. Its scope is one room: it is reset whenever the
// room changes or a fresh history replay arrives.
type Rendered struct {
	order []string
	seen  map[string]struct{}
}

// NewRendered returns an empty identity set.
func NewRendered() *Rendered {
	return &Rendered{seen: make(map[string]struct{})}
}

// ShouldRender reports whether msg should be appended to the view. A
// repeated identity returns false and records nothing. Messages without
// an identity are legacy records and always render; recording them under
// one shared key would collapse all of them into a single entry.
func (r *Rendered) ShouldRender(msg Message) bool {
	if msg.ID == "" {
		return true
	}
	if _, ok := r.seen[msg.ID]; ok {
		return false
	}
	r.seen[msg.ID] = struct{}{}
	r.order = append(r.order, msg.ID)
	return true
}

// Reset clears the scope.
func (r *Rendered) Reset() {
	r.order = r.order[:0]
	r.seen = make(map[string]struct{})
}

// Len returns the number of recorded identities.
func (r *Rendered) Len() int {
	return len(r.order)
}

// IDs returns recorded identities in the order they were first rendered.
func (r *Rendered) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
