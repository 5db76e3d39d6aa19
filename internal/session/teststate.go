package session

import (
	"context"
	"time"
)

// TestState is the bitfield stored in a session's test-state row, reported
// and updated by the polling client as the scan progresses.
type TestState uint32

const (
	// Running marks a test as in progress. It is set when the test-state
	// row is first written and is not cleared by Apply except by Complete.
	Running TestState = 1 << iota
	// Complete signals clean client-side completion; per Apply's contract
	// it overrides every other bit rather than being OR'd in.
	Complete
	HTTPTimeout
	EvalError
	OtherError
	BadComplete
	NavAway
	UnexpChange
	// DatabaseError marks that a read preceding this Apply call returned
	// PORTUNKNOWN where a test-state row was expected.
	DatabaseError
)

// FetchCode is the small integer the polling client reports to describe why
// it is calling back: either successful completion or one of a fixed set of
// client-observed failure modes.
type FetchCode int

const (
	FetchSuccessfulCompletion FetchCode = iota
	FetchHTTPTimeout
	FetchEvalError
	FetchOtherError
	FetchUnsuccessfulCompletion
	FetchNavigateAway
	FetchBadJSON
	FetchUnexpectedChange
)

// Apply folds a client-reported fetch code into the current state, per the
// scanner's historical precedence: FetchSuccessfulCompletion replaces the
// entire bitfield with Complete alone (clearing any prior error bits);
// every other recognized code ORs its corresponding bit into the existing
// state; an unrecognized code ORs in OtherError. databaseError, if true, ORs
// in Running|DatabaseError first (the read that preceded this Apply call
// found no usable row).
func (s TestState) Apply(fetch FetchCode, databaseError bool) TestState {
	next := s
	if databaseError {
		next |= Running | DatabaseError
	}

	switch fetch {
	case FetchSuccessfulCompletion:
		return Complete
	case FetchHTTPTimeout:
		next |= HTTPTimeout
	case FetchEvalError, FetchBadJSON:
		next |= EvalError
	case FetchOtherError:
		next |= OtherError
	case FetchUnsuccessfulCompletion:
		next |= BadComplete
	case FetchNavigateAway:
		next |= NavAway
	case FetchUnexpectedChange:
		next |= UnexpChange
	default:
		next |= OtherError
	}
	return next
}

// Terminal reports whether state signals the scan is done and its rows are
// eligible for deletion: either a clean Complete or a client-reported
// BadComplete.
func (s TestState) Terminal() bool {
	return s == Complete || s&BadComplete != 0
}

// WaitThenDelete polls fetch every pollInterval until it reports a terminal
// state or timeout elapses, then sleeps deleteWait before invoking del. It
// returns the last observed state and any error from fetch or del.
//
// This implements the server-side fallback for sessions whose client never
// reports completion (closed tab, lost network): the scan's rows are
// deleted either when the client signals completion or, failing that, once
// IPSCAN_DELETE_TIMEOUT has elapsed.
func WaitThenDelete(ctx context.Context, timeout, pollInterval, deleteWait time.Duration, fetch func(context.Context) (TestState, error), del func(context.Context) error) (TestState, error) {
	deadline := time.Now().Add(timeout)
	var last TestState

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		state, err := fetch(ctx)
		if err != nil {
			return last, err
		}
		last = state
		if state.Terminal() || time.Now().After(deadline) {
			break
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}

	select {
	case <-ctx.Done():
		return last, ctx.Err()
	case <-time.After(deleteWait):
	}

	if err := del(ctx); err != nil {
		return last, err
	}
	return last, nil
}
