package council

import (
	"context"
	"time"
)

// runCollector owns one member's generation call for the duration of a
// debate. It emits model_start, zero or more model_chunk, then exactly one
// terminal event, and mutates only its own MemberResponse. A mid-stream
// adapter failure still produces the single model_error terminal; nothing is
// ever emitted after it.
func (e *Engine) runCollector(ctx context.Context, debateID string, mr *MemberResponse, query string, events chan<- Event) {
	start := time.Now()

	events <- ModelStart{ModelID: mr.ModelID}
	mr.Status = StatusStreaming

	stream, err := e.provider.Stream(ctx, mr.ModelID, userMessage(query))
	if err != nil {
		e.finishMemberError(ctx, debateID, mr, start, err, events)
		return
	}
	defer stream.Close()

	for stream.Next() {
		fragment := stream.Current()
		mr.append(fragment)
		events <- ModelChunk{ModelID: mr.ModelID, Chunk: fragment}
		e.telemetry.ChunkForwarded()
	}
	if err := stream.Err(); err != nil {
		e.finishMemberError(ctx, debateID, mr, start, err, events)
		return
	}

	mr.Tokens = stream.Usage().Tokens
	mr.Elapsed = time.Since(start)
	mr.Status = StatusComplete
	e.recordMember(ctx, debateID, mr)
	e.telemetry.MemberTerminal(mr.ModelID, string(StatusComplete), mr.Elapsed)

	events <- ModelComplete{
		ModelID:      mr.ModelID,
		Tokens:       mr.Tokens,
		ResponseTime: mr.Elapsed.Seconds(),
	}
}

func (e *Engine) finishMemberError(ctx context.Context, debateID string, mr *MemberResponse, start time.Time, err error, events chan<- Event) {
	mr.Elapsed = time.Since(start)
	mr.Status = StatusError
	mr.ErrorDetail = err.Error()
	e.recordMember(ctx, debateID, mr)
	e.telemetry.MemberTerminal(mr.ModelID, string(StatusError), mr.Elapsed)

	events <- ModelError{ModelID: mr.ModelID, Error: mr.ErrorDetail}
}

// recordMember writes the terminal row to the sink. Skipped when the debate
// was cancelled: a cancelled run leaves no durable trace. Sink failures are
// logged, never surfaced into the event stream.
func (e *Engine) recordMember(ctx context.Context, debateID string, mr *MemberResponse) {
	if ctx.Err() != nil {
		return
	}
	if err := e.sink.RecordResponse(ctx, debateID, mr.ModelID, mr.Text(), mr.Tokens, mr.Elapsed, mr.Status); err != nil {
		e.logger.Printf("record response %s/%s: %v", debateID, mr.ModelID, err)
	}
}
