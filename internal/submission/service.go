package submission

import (
	"context"
	"iter"
	"log/slog"
	"strings"

	"video-dedup/internal/dedup"
	"video-dedup/internal/fingerprint"
	"video-dedup/internal/sender"
)

// Service is the entry point used by transports: it classifies inbound
// events and routes them to the resolver or the tracker.
type Service struct {
	resolver *Resolver
	index    *dedup.Index
	tracker  *sender.Tracker
	log      *slog.Logger
}

// NewService wires a Service around an index and tracker. decodeConcurrency
// is passed to NewResolver.
func NewService(fp Fingerprinter, index *dedup.Index, tracker *sender.Tracker, decodeConcurrency int, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		resolver: NewResolver(fp, index, tracker, decodeConcurrency, log),
		index:    index,
		tracker:  tracker,
		log:      log,
	}
}

// ResolveSubmission resolves one video submission. See Resolver.Resolve.
func (s *Service) ResolveSubmission(ctx context.Context, submitter sender.Identity, data []byte) (Verdict, error) {
	return s.resolver.Resolve(ctx, submitter, data)
}

// RecordLink registers a posted link for submitter.
func (s *Service) RecordLink(submitter sender.Identity, text string) {
	s.tracker.OnLink(submitter, strings.TrimSpace(text))
	s.log.Info("link recorded", slog.String("sender_id", submitter.ID))
}

// RecordConfirmation applies a confirmation message. It returns true if the
// sender was marked safe.
func (s *Service) RecordConfirmation(submitter sender.Identity, text string) bool {
	ok := s.tracker.OnConfirmation(submitter.ID, text)
	if ok {
		s.log.Info("sender confirmed", slog.String("sender_id", submitter.ID))
	}
	return ok
}

// HandleText classifies a free-text message: anything mentioning "http" is
// a link, everything else is treated as a possible confirmation.
func (s *Service) HandleText(submitter sender.Identity, text string) TextOutcome {
	if strings.Contains(strings.ToLower(text), "http") {
		s.RecordLink(submitter, text)
		return TextOutcome{Kind: TextLink}
	}
	if s.RecordConfirmation(submitter, text) {
		return TextOutcome{Kind: TextConfirmation, Reply: ReplyConfirmed}
	}
	return TextOutcome{Kind: TextIgnored}
}

// ListUnsafeSenders lists senders who still owe a video or confirmation.
func (s *Service) ListUnsafeSenders() iter.Seq[string] {
	return s.tracker.ListUnsafe()
}

// TotalLinksReceived returns the number of distinct senders who posted a link.
func (s *Service) TotalLinksReceived() int {
	return s.tracker.TotalLinks()
}

// Lookup returns the dedup entry for d.
func (s *Service) Lookup(d fingerprint.Digest) (dedup.Entry, bool) {
	return s.index.Lookup(d)
}

// ResetAll clears the dedup index and all sender state. The index is reset
// first; if that fails, sender state is left alone.
func (s *Service) ResetAll(ctx context.Context) error {
	if err := s.index.Reset(ctx); err != nil {
		return err
	}
	s.tracker.Reset()
	s.log.Info("all data reset")
	return nil
}

// UnsafeCount returns the number of unsafe senders.
func (s *Service) UnsafeCount() int {
	return s.tracker.UnsafeCount()
}

// StoredDigests returns the number of digests in the index.
func (s *Service) StoredDigests() int {
	return s.index.Len()
}
