package sender

import (
	"iter"
	"sort"
	"strings"
	"sync"
)

// confirmationTokens are the texts that close out a pending link.
var confirmationTokens = map[string]struct{}{
	"ad":       {},
	"all done": {},
	"done":     {},
}

// IsConfirmation reports whether text is a recognised confirmation token.
// Matching is case-insensitive and ignores surrounding whitespace.
func IsConfirmation(text string) bool {
	_, ok := confirmationTokens[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// Tracker is the concurrency-safe owner of all sender records and the
// process-wide link counter.
type Tracker struct {
	mu         sync.RWMutex
	records    map[string]*Record
	linked     map[string]struct{}
	totalLinks int
	nextSeq    uint64
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		records: make(map[string]*Record),
		linked:  make(map[string]struct{}),
	}
}

// OnLink records a posted link. The sender is (re)opened as unsafe even if
// they were safe before. The link counter only moves on the sender's first
// link since the last reset.
func (t *Tracker) OnLink(id Identity, link string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, seen := t.linked[id.ID]; !seen {
		t.linked[id.ID] = struct{}{}
		t.totalLinks++
	}

	rec := t.getOrCreateLocked(id)
	rec.Identity = rec.Identity.Merge(id)
	rec.PendingLink = link
	rec.Status = StatusUnsafe
}

// OnConfirmation marks the sender safe when text is a confirmation token and
// a record already exists. It returns true only when the record was updated.
func (t *Tracker) OnConfirmation(senderID, text string) bool {
	if !IsConfirmation(text) {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[senderID]
	if !ok {
		return false
	}
	rec.Status = StatusSafe
	return true
}

// OnVideoVerdict marks the sender safe for any verdict that did not fail.
// Failed verdicts leave prior state untouched.
func (t *Tracker) OnVideoVerdict(id Identity, outcome Outcome) {
	if outcome == nil || outcome.Failed() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.getOrCreateLocked(id)
	rec.Identity = rec.Identity.Merge(id)
	rec.PendingLink = ""
	rec.Status = StatusSafe
}

// Identity returns the best known identity for id: the tracked record's
// display fields fill in whatever id leaves empty.
func (t *Tracker) Identity(id Identity) Identity {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if rec, ok := t.records[id.ID]; ok {
		return rec.Identity.Merge(id)
	}
	return id
}

// Get returns a copy of the sender's record.
func (t *Tracker) Get(senderID string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.records[senderID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// ListUnsafe returns a lazy listing of unsafe senders rendered with
// Identity.Label, oldest record first. Each range over the sequence takes a
// fresh snapshot, so ordering is stable within one iteration.
func (t *Tracker) ListUnsafe() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, rec := range t.unsafeSnapshot() {
			if !yield(rec.Identity.Label()) {
				return
			}
		}
	}
}

// UnsafeCount returns the number of senders currently unsafe.
func (t *Tracker) UnsafeCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, rec := range t.records {
		if rec.Status == StatusUnsafe {
			n++
		}
	}
	return n
}

// TotalLinks returns the number of distinct senders who posted a link since
// the last reset.
func (t *Tracker) TotalLinks() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalLinks
}

// Reset drops every record and zeroes the link counter.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = make(map[string]*Record)
	t.linked = make(map[string]struct{})
	t.totalLinks = 0
	t.nextSeq = 0
}

func (t *Tracker) unsafeSnapshot() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Record, 0, len(t.records))
	for _, rec := range t.records {
		if rec.Status == StatusUnsafe {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// getOrCreateLocked returns the record for id, creating it if needed.
// Caller must hold t.mu in write mode.
func (t *Tracker) getOrCreateLocked(id Identity) *Record {
	if rec, ok := t.records[id.ID]; ok {
		return rec
	}
	t.nextSeq++
	rec := &Record{Identity: id, Status: StatusUnsafe, seq: t.nextSeq}
	t.records[id.ID] = rec
	return rec
}
