package submission

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"video-dedup/internal/dedup"
	"video-dedup/internal/fingerprint"
	"video-dedup/internal/sender"
)

// DefaultDecodeConcurrency bounds how many submissions are decoded at once.
const DefaultDecodeConcurrency = 4

// Fingerprinter turns raw video bytes into a digest. *fingerprint.Normalizer
// is the production implementation.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, data []byte) (fingerprint.Digest, error)
}

// Resolver runs one submission through fingerprinting and the dedup index
// and reports the verdict to the sender tracker.
type Resolver struct {
	fp      Fingerprinter
	index   *dedup.Index
	tracker *sender.Tracker
	sem     *semaphore.Weighted
	log     *slog.Logger
}

// NewResolver returns a Resolver. At most concurrency submissions are
// decoded in parallel; if concurrency <= 0, DefaultDecodeConcurrency is used.
func NewResolver(fp Fingerprinter, index *dedup.Index, tracker *sender.Tracker, concurrency int, log *slog.Logger) *Resolver {
	if concurrency <= 0 {
		concurrency = DefaultDecodeConcurrency
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		fp:      fp,
		index:   index,
		tracker: tracker,
		sem:     semaphore.NewWeighted(int64(concurrency)),
		log:     log,
	}
}

// Resolve fingerprints data and commits it for submitter.
//
// ctx bounds decoding. Decode failures are not errors: they produce a Failed
// verdict, touch neither the index nor the tracker. A non-nil error means the index could
// not persist a new entry; in that case nothing was recorded either.
func (r *Resolver) Resolve(ctx context.Context, submitter sender.Identity, data []byte) (Verdict, error) {
	submitter = r.tracker.Identity(submitter)

	d, err := r.fingerprint(ctx, data)
	if err != nil {
		r.log.Warn("video decode failed",
			slog.String("sender_id", submitter.ID),
			slog.Int("bytes", len(data)),
			slog.String("error", err.Error()))
		return Verdict{Kind: Failed, Err: err}, nil
	}

	// The deadline bounds decoding only. Once a digest exists the commit
	// must not fail because the caller timed out or went away.
	c, err := r.index.CommitIfAbsent(context.WithoutCancel(ctx), d, submitter)
	if err != nil {
		return Verdict{}, fmt.Errorf("commit %s: %w", d, err)
	}

	v := verdictFor(c, submitter)
	r.tracker.OnVideoVerdict(submitter, v)

	r.log.Info("video resolved",
		slog.String("sender_id", submitter.ID),
		slog.String("digest", d.String()),
		slog.String("verdict", string(v.Kind)))
	return v, nil
}

func (r *Resolver) fingerprint(ctx context.Context, data []byte) (fingerprint.Digest, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return "", &fingerprint.DecodeError{Op: "wait", Err: err}
	}
	defer r.sem.Release(1)

	d, err := r.fp.Fingerprint(ctx, data)
	if err != nil && !fingerprint.IsDecodeError(err) {
		err = &fingerprint.DecodeError{Op: "fingerprint", Err: err}
	}
	return d, err
}

func verdictFor(c dedup.Commit, submitter sender.Identity) Verdict {
	switch {
	case c.Outcome == dedup.Committed:
		return Verdict{Kind: Accepted, Digest: c.Entry.Digest}
	case c.Entry.FirstSubmitter.Same(submitter):
		return Verdict{Kind: DuplicateOfSelf, Digest: c.Entry.Digest, FirstSubmitter: c.Entry.FirstSubmitter}
	default:
		return Verdict{Kind: DuplicateOfOther, Digest: c.Entry.Digest, FirstSubmitter: c.Entry.FirstSubmitter}
	}
}
