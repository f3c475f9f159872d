// ABOUTME: Sequential read loop that drives a Turn from a streamed response body.
// ABOUTME: One goroutine reads lines, parses frames, and dispatches events until the turn ends.
package chat

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/mshokrnezhad/KPI2KVI/sse"
)

// ErrTurnActive reports an attempt to start a turn while one is in progress.
// One active turn at a time is a hard precondition of the accumulator.
var ErrTurnActive = errors.New("chat: a turn is already in progress")

// RunTurn consumes the stream body and drives the turn to a terminal state.
// All store and session mutation happens on this one sequential path.
//
// Malformed frames are logged and skipped; they never abort the turn. A read
// error is a transport failure and aborts the turn with a user-facing
// message, unless the context was cancelled, in which case the turn is
// cancelled without committing anything further. RunTurn always leaves the
// turn terminal with typing cleared.
func RunTurn(ctx context.Context, body io.Reader, turn *Turn, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	scanner := sse.NewScanner(body)

	for {
		if err := ctx.Err(); err != nil {
			turn.Cancel()
			return err
		}

		line, err := scanner.Next()
		if err == io.EOF {
			turn.Finish()
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				turn.Cancel()
				return ctx.Err()
			}
			turn.Abort(GenericErrorText)
			return err
		}

		payload, ok := sse.Payload(line)
		if !ok {
			continue
		}

		ev, err := ParseEvent(payload)
		if err != nil {
			logger.Printf("frame dropped err=%v payload=%q", err, payload)
			continue
		}

		turn.HandleEvent(ev)
		if turn.Terminal() {
			return nil
		}
	}
}
