package atomics

import "github.com/pkg/errors"

// One-shot channel contract violations. Returned errors wrap these with the
// offending call site; match them with errors.Is.
var (
	// ErrAlreadySent is returned by a second Send.
	ErrAlreadySent = errors.New("atomics: message already sent")
	// ErrNotReady is returned by Receive before a message is available.
	ErrNotReady = errors.New("atomics: no message ready")
	// ErrAlreadyReceived is returned by a second Receive.
	ErrAlreadyReceived = errors.New("atomics: message already received")
	// ErrClosed is returned by operations on a closed channel.
	ErrClosed = errors.New("atomics: channel closed")
)
