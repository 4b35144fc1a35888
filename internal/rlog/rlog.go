// Package rlog is the structured logging facade of this module — built on
// the teacher's generic logiface core with its zerolog writer binding,
// never fmt.Println or the standard library's log package. Of the other
// packages only internal/config refers to it (to fill a Registry); none of
// them emits log records itself.
package rlog

import (
	"io"
	"os"

	"github.com/joeycumines/go-utilpkg/logiface"
	zlog "github.com/joeycumines/go-utilpkg/logiface/zerolog"
	"github.com/rs/zerolog"
)

// Logger is the concrete instantiation used throughout this module.
type Logger = logiface.Logger[*zlog.Event]

// Facility names a configured log event stream (spec §6: per-session
// "event.<name>.facility" / "event.<name>.level").
type Facility string

const (
	FacilityPoll       Facility = "poll"
	FacilityDCB        Facility = "dcb"
	FacilityClassifier Facility = "classifier"
	FacilityHint       Facility = "hint"
	FacilityProxy      Facility = "proxy"
)

// New builds a Logger writing newline-delimited JSON to w at the given
// level, via the teacher's zerolog binding.
func New(w io.Writer, level logiface.Level) *Logger {
	z := zerolog.New(w).With().Timestamp().Logger()
	return logiface.New[*zlog.Event](
		zlog.WithZerolog(z),
		logiface.WithLevel[*zlog.Event](level),
	)
}

// NewStderr is New with the common default: human-readable console output
// on stderr at informational level, for interactive/dev use.
func NewStderr() *Logger {
	z := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	return logiface.New[*zlog.Event](
		zlog.WithZerolog(z),
		logiface.WithLevel[*zlog.Event](logiface.LevelInformational),
	)
}

// Registry maps each configured Facility to its own Logger, so a single
// event name's facility/level pair (spec §6) can be reconfigured without
// touching the others.
type Registry struct {
	loggers map[Facility]*Logger
	fallback *Logger
}

// NewRegistry builds a Registry; fallback answers for any Facility not
// explicitly configured via Configure.
func NewRegistry(fallback *Logger) *Registry {
	return &Registry{loggers: make(map[Facility]*Logger), fallback: fallback}
}

// Configure sets (or replaces) the Logger used for one Facility.
func (r *Registry) Configure(f Facility, l *Logger) {
	r.loggers[f] = l
}

// For returns the Logger configured for f, or the registry's fallback.
func (r *Registry) For(f Facility) *Logger {
	if l, ok := r.loggers[f]; ok {
		return l
	}
	return r.fallback
}
