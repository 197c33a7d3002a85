package submission

import (
	"video-dedup/internal/fingerprint"
	"video-dedup/internal/sender"
)

// VerdictKind is the outcome of resolving one video submission.
type VerdictKind string

const (
	Accepted         VerdictKind = "accepted"
	DuplicateOfOther VerdictKind = "duplicate_of_other"
	DuplicateOfSelf  VerdictKind = "duplicate_of_self"
	Failed           VerdictKind = "failed"
)

// Verdict is returned for every resolved submission.
type Verdict struct {
	Kind VerdictKind
	// Digest is set for every kind except Failed.
	Digest fingerprint.Digest
	// FirstSubmitter is set for DuplicateOfOther and DuplicateOfSelf.
	FirstSubmitter sender.Identity
	// Err holds the *fingerprint.DecodeError for Failed.
	Err error
}

// Failed implements sender.Outcome.
func (v Verdict) Failed() bool {
	return v.Kind == Failed
}

// TextKind classifies an inbound text message.
type TextKind string

const (
	TextLink         TextKind = "link"
	TextConfirmation TextKind = "confirmation"
	TextIgnored      TextKind = "ignored"
)

// TextOutcome is the result of handling one text message.
type TextOutcome struct {
	Kind  TextKind
	Reply string
}
