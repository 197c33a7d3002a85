package dedup

import (
	"maps"

	"video-dedup/internal/fingerprint"
	"video-dedup/internal/sender"
)

// Entry records who first submitted a given digest. Entries are never
// mutated once created.
type Entry struct {
	Digest         fingerprint.Digest
	FirstSubmitter sender.Identity
}

// Outcome distinguishes the two results of CommitIfAbsent.
type Outcome int

const (
	Committed Outcome = iota + 1
	AlreadyPresent
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case AlreadyPresent:
		return "already_present"
	default:
		return "unknown"
	}
}

// Commit is the result of CommitIfAbsent. Entry is the new entry when
// Outcome is Committed and the pre-existing one when AlreadyPresent.
type Commit struct {
	Outcome Outcome
	Entry   Entry
}

// Snapshot is the whole digest -> first submitter mapping as persisted.
type Snapshot map[fingerprint.Digest]sender.Identity

// Clone returns a shallow copy of s; Identity values are plain data.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return maps.Clone(s)
}
