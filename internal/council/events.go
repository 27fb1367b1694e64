// Package council implements the debate orchestration engine: it fans a
// single question out to several models concurrently, multiplexes their
// streamed output into one ordered event sequence, and has a chairman model
// synthesize the completed responses.
package council

// Event is the closed set of orchestration events streamed to the caller.
// One concrete type per tag; the tag doubles as the SSE event name.
type Event interface {
	Tag() string
}

// DebateStart opens the stream, before any model produces output.
type DebateStart struct {
	DecisionID     string   `json:"decision_id"`
	Query          string   `json:"query"`
	CouncilMembers []string `json:"council_members"`
	Chairman       string   `json:"chairman"`
}

// ModelStart signals that one council member began generating.
type ModelStart struct {
	ModelID string `json:"model_id"`
}

// ModelChunk carries one text fragment from a streaming member.
type ModelChunk struct {
	ModelID string `json:"model_id"`
	Chunk   string `json:"chunk"`
}

// ModelComplete is the success terminal event for one member.
type ModelComplete struct {
	ModelID      string  `json:"model_id"`
	Tokens       int     `json:"tokens"`
	ResponseTime float64 `json:"response_time"`
}

// ModelError is the failure terminal event for one member.
type ModelError struct {
	ModelID string `json:"model_id"`
	Error   string `json:"error"`
}

// SynthesisStart signals that all members are terminal and the chairman
// call is underway.
type SynthesisStart struct{}

// SynthesisComplete carries the parsed chairman output.
type SynthesisComplete struct {
	ConsensusItems []string     `json:"consensus_items"`
	Debates        []DebateItem `json:"debates"`
	SynthesisText  string       `json:"synthesis_text"`
}

// SynthesisError reports a skipped or failed synthesis; the debate still
// completes.
type SynthesisError struct {
	Error string `json:"error"`
}

// DebateComplete closes a debate that ran to its end, successful or not.
type DebateComplete struct{}

// FatalError ends the stream immediately; no events follow it.
type FatalError struct {
	Message string `json:"message"`
}

func (DebateStart) Tag() string       { return "debate_start" }
func (ModelStart) Tag() string        { return "model_start" }
func (ModelChunk) Tag() string        { return "model_chunk" }
func (ModelComplete) Tag() string     { return "model_complete" }
func (ModelError) Tag() string        { return "model_error" }
func (SynthesisStart) Tag() string    { return "synthesis_start" }
func (SynthesisComplete) Tag() string { return "synthesis_complete" }
func (SynthesisError) Tag() string    { return "synthesis_error" }
func (DebateComplete) Tag() string    { return "debate_complete" }
func (FatalError) Tag() string        { return "fatal_error" }
