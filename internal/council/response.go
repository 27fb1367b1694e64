package council

import (
	"strings"
	"time"
)

// Status is a member response lifecycle state. Transitions are monotonic:
// pending -> streaming -> complete|error, with no regression.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool { return s == StatusComplete || s == StatusError }

// MemberResponse accumulates one council member's output for the duration of
// a debate. It is written exclusively by its owning collector goroutine and
// read by the orchestrator only after every collector has finished, so no
// locking is needed.
type MemberResponse struct {
	ModelID     string
	Status      Status
	text        strings.Builder
	Tokens      int
	Elapsed     time.Duration
	ErrorDetail string
}

func newMemberResponse(modelID string) *MemberResponse {
	return &MemberResponse{ModelID: modelID, Status: StatusPending}
}

func (m *MemberResponse) append(fragment string) {
	m.text.WriteString(fragment)
}

// Text returns the accumulated response text.
func (m *MemberResponse) Text() string { return m.text.String() }
