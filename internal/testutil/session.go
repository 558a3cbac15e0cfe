package testutil

// FixedSessionID generates the same session ID every time.
//
// Golden snapshots and CLI output compare byte for byte, so every session a
// test creates shares one ID. Use engine.NewFixedGenerator when a test needs
// distinct IDs in a known order.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedSessionID string

// DefaultSessionID is used when a FixedSessionID is empty.
const DefaultSessionID = "test-session-00000000-0000-0000-0000-000000000001"

// Generate returns the fixed ID, or DefaultSessionID if it is empty.
//
// Implements engine.SessionIDGenerator.
func (id FixedSessionID) Generate() string {
	if id == "" {
		return DefaultSessionID
	}
	return string(id)
}
