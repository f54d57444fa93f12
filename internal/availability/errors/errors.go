package errors

import "errors"

var (
	ErrMalformedPayload = errors.New("availability payload does not match any known shape")

	ErrSnapshotUnavailable = errors.New("availability snapshot unavailable")

	ErrFeedNotConnected = errors.New("live feed not connected")

	ErrInvalidScope = errors.New("invalid branch/date scope")

	ErrNoScope = errors.New("no scope selected")

	ErrSubmissionRejected = errors.New("booking submission rejected")
)
