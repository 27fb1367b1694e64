package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/council/internal/council"
	"github.com/mohammad-safakhou/council/internal/search"
)

type fakeRunner struct {
	events []council.Event
	err    error
	got    council.DebateRequest
}

func (f *fakeRunner) RunDebate(ctx context.Context, req council.DebateRequest) (<-chan council.Event, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan council.Event, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func newDebateContext(e *echo.Echo, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/api/council/debate", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestDebateStreamsEventsAsSSE(t *testing.T) {
	runner := &fakeRunner{events: []council.Event{
		council.DebateStart{DecisionID: "d1", Query: "q", CouncilMembers: []string{"m1", "m2"}, Chairman: "boss"},
		council.ModelStart{ModelID: "m1"},
		council.ModelChunk{ModelID: "m1", Chunk: "hello"},
		council.ModelComplete{ModelID: "m1", Tokens: 1, ResponseTime: 0.5},
		council.SynthesisStart{},
		council.SynthesisComplete{SynthesisText: "final"},
		council.DebateComplete{},
	}}
	handler := &CouncilHandler{Engine: runner, Logger: log.New(io.Discard, "", 0)}

	e := echo.New()
	ctx, rec := newDebateContext(e, `{"query":"q","council_members":["m1","m2"],"chairman":"boss"}`)
	if err := handler.debate(ctx); err != nil {
		t.Fatalf("debate: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "text/event-stream" {
		t.Fatalf("expected event-stream content type, got %q", ct)
	}
	if runner.got.Query != "q" || runner.got.Chairman != "boss" {
		t.Fatalf("request not forwarded to engine: %+v", runner.got)
	}

	body := rec.Body.String()
	wantOrder := []string{
		"event: debate_start",
		"event: model_start",
		"event: model_chunk",
		"event: model_complete",
		"event: synthesis_start",
		"event: synthesis_complete",
		"event: debate_complete",
	}
	pos := 0
	for _, want := range wantOrder {
		idx := strings.Index(body[pos:], want)
		if idx < 0 {
			t.Fatalf("missing or misordered frame %q in body:\n%s", want, body)
		}
		pos += idx
	}
	if !strings.Contains(body, `data: {"decision_id":"d1"`) {
		t.Fatalf("debate_start payload missing:\n%s", body)
	}
	if !strings.Contains(body, `"chunk":"hello"`) {
		t.Fatalf("chunk payload missing:\n%s", body)
	}
}

func TestDebateRejectsInvalidRequest(t *testing.T) {
	runner := &fakeRunner{err: fmt.Errorf("%w: query must not be empty", council.ErrInvalidRequest)}
	handler := &CouncilHandler{Engine: runner, Logger: log.New(io.Discard, "", 0)}

	e := echo.New()
	ctx, _ := newDebateContext(e, `{"query":""}`)
	err := handler.debate(ctx)

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestDebateSinkFailureIs500(t *testing.T) {
	runner := &fakeRunner{err: errors.New("create debate: db down")}
	handler := &CouncilHandler{Engine: runner, Logger: log.New(io.Discard, "", 0)}

	e := echo.New()
	ctx, _ := newDebateContext(e, `{"query":"q","council_members":["a","b"],"chairman":"c"}`)
	err := handler.debate(ctx)

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
}

func TestDebateIndexesFinishedDecision(t *testing.T) {
	idx, err := search.Open("")
	if err != nil {
		t.Fatalf("search.Open: %v", err)
	}
	defer idx.Close()

	runner := &fakeRunner{events: []council.Event{
		council.DebateStart{DecisionID: "d42", Query: "which cache?"},
		council.SynthesisComplete{SynthesisText: "use redis"},
		council.DebateComplete{},
	}}
	handler := &CouncilHandler{Engine: runner, Index: idx, Logger: log.New(io.Discard, "", 0)}

	e := echo.New()
	ctx, _ := newDebateContext(e, `{"query":"which cache?","council_members":["a","b"],"chairman":"c"}`)
	if err := handler.debate(ctx); err != nil {
		t.Fatalf("debate: %v", err)
	}

	hits, err := idx.Search("redis", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "d42" {
		t.Fatalf("expected decision d42 indexed, got %v", hits)
	}
}

var _ DebateRunner = (*council.Engine)(nil)
