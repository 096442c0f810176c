package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type HasLogger interface {
	Log() *zerolog.Logger
}

type SetLogging interface {
	SetLogging(*Logging) *Logging
}

// Logging holds a logger plus the context function every component applies
// on top of the shared root logger. It starts as a no-op logger.
type Logging struct {
	l    zerolog.Logger
	orig zerolog.Logger
	f    func(zerolog.Context) zerolog.Context
}

func NewLogging(f func(zerolog.Context) zerolog.Context) *Logging {
	nop := zerolog.Nop()
	return &Logging{
		l:    nop,
		orig: nop,
		f:    f,
	}
}

func (lg *Logging) Log() *zerolog.Logger {
	return &lg.l
}

func (lg *Logging) SetLogger(l zerolog.Logger) *Logging {
	lg.orig = l
	if lg.f != nil {
		lg.l = lg.f(lg.orig.With()).Logger()
	} else {
		lg.l = l
	}

	return lg
}

func (lg *Logging) SetLogging(l *Logging) *Logging {
	return lg.SetLogger(l.orig)
}

func Module(name string) func(zerolog.Context) zerolog.Context {
	return func(c zerolog.Context) zerolog.Context {
		return c.Str("module", name)
	}
}

// Setup builds the root logger. format is "json" or "terminal".
func Setup(output io.Writer, level zerolog.Level, format string) *Logging {
	if format == "terminal" {
		var noColor bool
		if f, ok := output.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
			noColor = true
		}

		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339Nano,
			NoColor:    noColor,
		}
	}

	z := zerolog.New(output).With().Timestamp()

	if level <= zerolog.DebugLevel {
		z = z.Caller()
	}

	return NewLogging(nil).SetLogger(z.Logger().Level(level))
}

func ParseLevel(s string) (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "invalid log level %q", s)
	}
	return lvl, nil
}

func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "json", "terminal":
		return f, nil
	default:
		return "", errors.Errorf("unknown log format %q", s)
	}
}
