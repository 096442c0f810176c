package models

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies why a command was rejected.
type ErrorKind string

const (
	KindUnauthorized           ErrorKind = "unauthorized"
	KindNotFound               ErrorKind = "not_found"
	KindInvalidPhase           ErrorKind = "invalid_phase"
	KindVotingClosed           ErrorKind = "voting_closed"
	KindVotingStillActive      ErrorKind = "voting_still_active"
	KindAlreadyRegistered      ErrorKind = "already_registered"
	KindDuplicateVote          ErrorKind = "duplicate_vote"
	KindAlreadyResolved        ErrorKind = "already_resolved"
	KindTokenReused            ErrorKind = "token_reused"
	KindInsufficientCandidates ErrorKind = "insufficient_candidates"
	KindInvalidCandidate       ErrorKind = "invalid_candidate"
	KindNoCommitment           ErrorKind = "no_commitment"
	KindCommitmentMismatch     ErrorKind = "commitment_mismatch"
	KindInvalidDuration        ErrorKind = "invalid_duration"
	KindNotInitialized         ErrorKind = "not_initialized"
	KindInvalidGenesis         ErrorKind = "invalid_genesis"
	KindStorage                ErrorKind = "storage"
)

// Error is a rejected command. Two errors match under errors.Is when their
// kinds are equal, so callers compare against the Err* sentinels.
type Error struct {
	Kind ErrorKind
	msg  string
	err  error
}

func NewError(kind ErrorKind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, a...)}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error) // nolint:errorlint
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Wrap keeps the kind and message and attaches a cause.
func (e *Error) Wrap(err error) *Error {
	return &Error{Kind: e.Kind, msg: e.msg, err: errors.WithStack(err)}
}

// Errorf keeps the kind and replaces the message.
func (e *Error) Errorf(format string, a ...interface{}) *Error {
	return &Error{Kind: e.Kind, msg: fmt.Sprintf(format, a...)}
}

var (
	ErrUnauthorized           = NewError(KindUnauthorized, "unauthorized")
	ErrNotFound               = NewError(KindNotFound, "not found")
	ErrInvalidPhase           = NewError(KindInvalidPhase, "invalid phase")
	ErrVotingClosed           = NewError(KindVotingClosed, "voting closed")
	ErrVotingStillActive      = NewError(KindVotingStillActive, "voting still active")
	ErrAlreadyRegistered      = NewError(KindAlreadyRegistered, "already registered")
	ErrDuplicateVote          = NewError(KindDuplicateVote, "duplicate vote")
	ErrAlreadyResolved        = NewError(KindAlreadyResolved, "already resolved")
	ErrTokenReused            = NewError(KindTokenReused, "anti-replay token reused")
	ErrInsufficientCandidates = NewError(KindInsufficientCandidates, "insufficient candidates")
	ErrInvalidCandidate       = NewError(KindInvalidCandidate, "invalid candidate")
	ErrNoCommitment           = NewError(KindNoCommitment, "no commitment")
	ErrCommitmentMismatch     = NewError(KindCommitmentMismatch, "commitment mismatch")
	ErrInvalidDuration        = NewError(KindInvalidDuration, "invalid duration")
	ErrNotInitialized         = NewError(KindNotInitialized, "not initialized")
	ErrInvalidGenesis         = NewError(KindInvalidGenesis, "invalid genesis")
	ErrStorage                = NewError(KindStorage, "storage failure")
)

// KindOf returns the kind of the first *Error in the chain, or "" for
// anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
