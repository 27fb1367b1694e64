package council

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mohammad-safakhou/council/internal/provider"
	"github.com/mohammad-safakhou/council/internal/telemetry"
)

// minSuccessful is the synthesis gate: fewer complete member responses than
// this and the chairman is never called.
const minSuccessful = 2

// ErrInvalidRequest marks validation failures, rejected synchronously before
// any task starts.
var ErrInvalidRequest = errors.New("invalid debate request")

// Sink is the persistence boundary. The engine writes debates and terminal
// state through it and never reads back mid-run; durability and schema belong
// to the implementation.
type Sink interface {
	CreateDebate(ctx context.Context, query, chairman string) (string, error)
	RecordResponse(ctx context.Context, debateID, modelID, text string, tokens int, elapsed time.Duration, status Status) error
	RecordSynthesis(ctx context.Context, debateID string, syn Synthesis) error
}

// DebateRequest is the inbound contract: one question, at least two council
// members, one chairman.
type DebateRequest struct {
	Query          string   `json:"query"`
	CouncilMembers []string `json:"council_members"`
	Chairman       string   `json:"chairman"`
}

// Validate rejects malformed requests synchronously, before any task starts.
func (r DebateRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("%w: query must not be empty", ErrInvalidRequest)
	}
	if len(r.CouncilMembers) < minSuccessful {
		return fmt.Errorf("%w: need at least %d council members for debate", ErrInvalidRequest, minSuccessful)
	}
	if strings.TrimSpace(r.Chairman) == "" {
		return fmt.Errorf("%w: chairman must not be empty", ErrInvalidRequest)
	}
	return nil
}

// Options tune an Engine beyond its collaborators.
type Options struct {
	EventBuffer          int
	SynthesisTemperature float64
	Parser               ParserConfig
}

// Engine runs council debates: N collectors fanned out concurrently, their
// events multiplexed into one stream in arrival order, then a single chairman
// synthesis once every member is terminal.
type Engine struct {
	provider  provider.Provider
	sink      Sink
	parser    *SynthesisParser
	logger    *log.Logger
	telemetry *telemetry.Telemetry

	eventBuffer          int
	synthesisTemperature float64
}

// NewEngine wires an Engine. Telemetry may be nil.
func NewEngine(p provider.Provider, sink Sink, logger *log.Logger, tele *telemetry.Telemetry, opts Options) *Engine {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = 64
	}
	temp := opts.SynthesisTemperature
	if temp <= 0 {
		temp = 0.3
	}
	return &Engine{
		provider:             p,
		sink:                 sink,
		parser:               NewSynthesisParser(opts.Parser),
		logger:               logger,
		telemetry:            tele,
		eventBuffer:          buffer,
		synthesisTemperature: temp,
	}
}

// RunDebate validates the request, registers the debate with the sink and
// starts the orchestration run. The returned channel delivers events in
// causal order and is closed when the debate ends, one way or another.
// Cancelling ctx aborts all in-flight generation; the stream then ends with
// a single fatal_error and nothing is persisted for the run.
func (e *Engine) RunDebate(ctx context.Context, req DebateRequest) (<-chan Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	debateID, err := e.sink.CreateDebate(ctx, req.Query, req.Chairman)
	if err != nil {
		return nil, fmt.Errorf("create debate: %w", err)
	}
	e.telemetry.DebateStarted()

	out := make(chan Event, e.eventBuffer)
	go e.run(ctx, debateID, req, out)
	return out, nil
}

func (e *Engine) run(ctx context.Context, debateID string, req DebateRequest, out chan<- Event) {
	defer close(out)

	// emit blocks until the caller takes the event or the debate is
	// cancelled; after a failed emit nothing else may be sent except the
	// final fatal_error.
	emit := func(ev Event) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !emit(DebateStart{
		DecisionID:     debateID,
		Query:          req.Query,
		CouncilMembers: req.CouncilMembers,
		Chairman:       req.Chairman,
	}) {
		e.fatal(out)
		return
	}

	// Fan-out: one collector per member, all writing into a single inner
	// channel. Forwarding order across members is arrival order, so the
	// fastest model's first token is never stuck behind a slower member.
	responses := make([]*MemberResponse, len(req.CouncilMembers))
	inner := make(chan Event, len(req.CouncilMembers)*4)
	var wg sync.WaitGroup
	for i, modelID := range req.CouncilMembers {
		mr := newMemberResponse(modelID)
		responses[i] = mr
		wg.Add(1)
		go func(mr *MemberResponse) {
			defer wg.Done()
			e.runCollector(ctx, debateID, mr, req.Query, inner)
		}(mr)
	}
	go func() {
		wg.Wait()
		close(inner)
	}()

	// Drain inner to the end even after a cancelled emit, so collectors
	// are never blocked on a channel nobody reads.
	forwarding := true
	for ev := range inner {
		if forwarding && !emit(ev) {
			forwarding = false
		}
	}
	if ctx.Err() != nil {
		e.fatal(out)
		return
	}

	e.synthesize(ctx, debateID, req, responses, out, emit)
}

// synthesize runs the gate, the chairman call and the closing events. All
// members are terminal by the time it runs, so reading the response arena
// needs no coordination.
func (e *Engine) synthesize(ctx context.Context, debateID string, req DebateRequest, responses []*MemberResponse, out chan<- Event, emit func(Event) bool) {
	var complete []*MemberResponse
	for _, mr := range responses {
		if mr.Status == StatusComplete {
			complete = append(complete, mr)
		}
	}

	if len(complete) < minSuccessful {
		e.logger.Printf("debate %s: %d/%d members succeeded, skipping synthesis", debateID, len(complete), len(responses))
		e.telemetry.SynthesisFinished("skipped")
		if !emit(SynthesisError{Error: "insufficient successful responses"}) || !emit(DebateComplete{}) {
			e.fatal(out)
		}
		return
	}

	if !emit(SynthesisStart{}) {
		e.fatal(out)
		return
	}

	prompt := buildSynthesisPrompt(req.Query, complete)
	text, _, err := e.provider.Complete(ctx, req.Chairman, userMessage(prompt),
		provider.WithTemperature(e.synthesisTemperature))
	if err != nil {
		if ctx.Err() != nil {
			e.fatal(out)
			return
		}
		e.logger.Printf("debate %s: synthesis call failed: %v", debateID, err)
		e.telemetry.SynthesisFinished("error")
		if !emit(SynthesisError{Error: fmt.Sprintf("synthesis failed: %v", err)}) || !emit(DebateComplete{}) {
			e.fatal(out)
		}
		return
	}

	syn := e.parser.Parse(text)
	if err := e.sink.RecordSynthesis(ctx, debateID, syn); err != nil {
		e.logger.Printf("record synthesis %s: %v", debateID, err)
	}
	e.telemetry.SynthesisFinished("complete")

	if !emit(SynthesisComplete{
		ConsensusItems: syn.ConsensusItems,
		Debates:        syn.Debates,
		SynthesisText:  syn.FullText,
	}) || !emit(DebateComplete{}) {
		e.fatal(out)
	}
}

// fatal makes a best-effort attempt to deliver the terminal fatal_error. The
// consumer may already be gone, so the send never blocks.
func (e *Engine) fatal(out chan<- Event) {
	select {
	case out <- FatalError{Message: "cancelled"}:
	default:
	}
}

func userMessage(content string) []provider.Message {
	return []provider.Message{{Role: "user", Content: content}}
}
