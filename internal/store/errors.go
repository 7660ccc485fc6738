// Package store defines the persistence interface for parking sessions and
// the sentinel errors shared by its implementations. The sentinels let the
// lifecycle layer distinguish failure modes without inspecting driver errors:
// for example ErrDuplicateOpenSession signals a second entry attempt for a
// plate that is already parked, while ErrAlreadyPaid makes a repeated
// settlement detectable and therefore harmless.
package store

import "errors"

// ErrNotFound is returned when no session matches the given ID or plate.
var ErrNotFound = errors.New("session not found")

// ErrDuplicateOpenSession is returned by CreateSession when an open session
// already exists for the normalized plate.
var ErrDuplicateOpenSession = errors.New("open session already exists for plate")

// ErrAlreadyPaid is returned by SettleSession when the session is already
// settled. Paid never reverts, so a second settlement is always rejected.
var ErrAlreadyPaid = errors.New("session already paid")

// ErrAlreadyClosed is returned by CloseSession when the session already has
// an exit time. Closure is terminal.
var ErrAlreadyClosed = errors.New("session already closed")

// ErrExitBeforeEntry is returned by CloseSession when the exit time precedes
// the session's entry time.
var ErrExitBeforeEntry = errors.New("exit time before entry time")

// ErrInvalidAmount is returned by SettleSession for a negative amount.
var ErrInvalidAmount = errors.New("payment amount must not be negative")
