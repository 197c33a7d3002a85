package submission

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-dedup/internal/dedup"
	"video-dedup/internal/fingerprint"
	"video-dedup/internal/sender"
)

func TestResolver_verdicts(t *testing.T) {
	f := newFixture(t, nil)
	r := f.svc.resolver
	ctx := context.Background()

	v, err := r.Resolve(ctx, alice, []byte("A"))
	require.NoError(t, err)
	assert.Equal(t, Accepted, v.Kind)
	assert.NotEmpty(t, v.Digest)

	v, err = r.Resolve(ctx, bob, []byte("A"))
	require.NoError(t, err)
	assert.Equal(t, DuplicateOfOther, v.Kind)
	assert.True(t, v.FirstSubmitter.Same(alice))

	v, err = r.Resolve(ctx, alice, []byte("A"))
	require.NoError(t, err)
	assert.Equal(t, DuplicateOfSelf, v.Kind)
	assert.Equal(t, ReplyDuplicateOwn, VerdictReply(v))
}

func TestResolver_same_sender_renamed(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.ResolveSubmission(ctx, alice, []byte("A"))
	require.NoError(t, err)

	renamed := sender.Identity{ID: alice.ID, DisplayName: "Alicia", Handle: "alicia"}
	v, err := f.svc.ResolveSubmission(ctx, renamed, []byte("A"))
	require.NoError(t, err)
	assert.Equal(t, DuplicateOfSelf, v.Kind)
}

func TestResolver_decode_failure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.svc.RecordLink(alice, "http://x")

	for _, data := range [][]byte{nil, []byte("corrupt stream")} {
		v, err := f.svc.ResolveSubmission(ctx, alice, data)
		require.NoError(t, err)
		assert.Equal(t, Failed, v.Kind)
		assert.True(t, fingerprint.IsDecodeError(v.Err))
		assert.Empty(t, v.Digest)
		assert.Equal(t, ReplyDecodeFailed, VerdictReply(v))
	}

	rec, _ := f.tracker.Get(alice.ID)
	assert.Equal(t, sender.StatusUnsafe, rec.Status)
	assert.Equal(t, 0, f.svc.StoredDigests())
}

func TestResolver_decode_failure_does_not_create_record(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.ResolveSubmission(context.Background(), bob, []byte("corrupt"))
	require.NoError(t, err)
	_, ok := f.tracker.Get(bob.ID)
	assert.False(t, ok)
}

func TestResolver_cancelled_context_is_failed(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := f.svc.ResolveSubmission(ctx, alice, []byte("A"))
	require.NoError(t, err)
	assert.Equal(t, Failed, v.Kind)
	assert.ErrorIs(t, v.Err, context.Canceled)
}

func TestResolver_persist_failure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.svc.RecordLink(alice, "http://x")
	f.store.FailSaves(errors.New("read-only filesystem"))

	_, err := f.svc.ResolveSubmission(ctx, alice, []byte("A"))
	require.Error(t, err)
	assert.ErrorIs(t, err, dedup.ErrPersist)

	rec, _ := f.tracker.Get(alice.ID)
	assert.Equal(t, sender.StatusUnsafe, rec.Status, "sender must stay unsafe")
	assert.Equal(t, 0, f.svc.StoredDigests())

	f.store.FailSaves(nil)
	v, err := f.svc.ResolveSubmission(ctx, alice, []byte("A"))
	require.NoError(t, err)
	assert.Equal(t, Accepted, v.Kind, "retry after recovery is a fresh commit")
}

func TestNewResolver_defaults(t *testing.T) {
	f := newFixture(t, nil)
	r := NewResolver(&fakeFingerprinter{}, f.index, f.tracker, 0, nil)
	assert.NotNil(t, r.sem)
	assert.NotNil(t, r.log)

	v, err := r.Resolve(context.Background(), alice, []byte("A"))
	require.NoError(t, err)
	assert.Equal(t, Accepted, v.Kind)
}
