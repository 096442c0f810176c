package events

import (
	"context"

	"github.com/rs/zerolog"

	"ballot-backend/logging"
)

// LogPublisher writes every event to the log. It is the default when no
// broker is configured.
type LogPublisher struct {
	*logging.Logging
}

func NewLogPublisher(l *logging.Logging) *LogPublisher {
	lp := &LogPublisher{
		Logging: logging.NewLogging(logging.Module("events")),
	}
	if l != nil {
		lp.SetLogging(l)
	}
	return lp
}

func (lp *LogPublisher) Publish(_ context.Context, e Event) error {
	ev := lp.Log().Info().
		Str("event", string(e.Type)).
		Str("op", string(e.Entry.Op)).
		Uint64("sequence", e.Sequence).
		Str("key", e.Key())

	if e.Outcome != nil {
		ev = ev.Dict("outcome", zerolog.Dict().
			Bool("approved", e.Outcome.Approved).
			Uint64("yes", e.Outcome.YesVotes).
			Uint64("no", e.Outcome.NoVotes))
	}

	ev.Msg("notification")
	return nil
}

func (lp *LogPublisher) Close() error {
	return nil
}
