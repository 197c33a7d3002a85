package submission

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"video-dedup/internal/dedup"
	"video-dedup/internal/fingerprint"
	"video-dedup/internal/sender"
)

var (
	alice = sender.Identity{ID: "1", DisplayName: "Alice", Handle: "alice"}
	bob   = sender.Identity{ID: "2", DisplayName: "Bob", Handle: "bob"}
)

// fakeFingerprinter hashes the raw bytes. Inputs starting with "corrupt"
// fail to decode.
type fakeFingerprinter struct {
	calls atomic.Int32
}

func (f *fakeFingerprinter) Fingerprint(ctx context.Context, data []byte) (fingerprint.Digest, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", &fingerprint.DecodeError{Op: "sniff", Err: fingerprint.ErrEmptyInput}
	}
	if bytes.HasPrefix(data, []byte("corrupt")) {
		return "", &fingerprint.DecodeError{Op: "decode", Err: errors.New("bad container")}
	}
	sum := sha256.Sum256(data)
	return fingerprint.NewDigest(sum[:])
}

type fixture struct {
	svc     *Service
	store   *dedup.InMemoryStore
	index   *dedup.Index
	tracker *sender.Tracker
}

func newFixture(t *testing.T, fp Fingerprinter) *fixture {
	t.Helper()
	if fp == nil {
		fp = &fakeFingerprinter{}
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := dedup.NewInMemoryStore()
	index := dedup.NewIndex(store, log)
	tracker := sender.NewTracker()
	return &fixture{
		svc:     NewService(fp, index, tracker, 2, log),
		store:   store,
		index:   index,
		tracker: tracker,
	}
}

var clipPalette = color.Palette{color.Black, color.White, color.RGBA{R: 0xff, A: 0xff}}

// clip encodes a 3-frame 8x8 GIF. delay only changes container metadata,
// so clips with equal frames but different delays decode identically.
func clip(t *testing.T, delay int, order ...uint8) []byte {
	t.Helper()
	if len(order) == 0 {
		order = []uint8{0, 1, 2}
	}
	g := &gif.GIF{Config: image.Config{ColorModel: clipPalette, Width: 8, Height: 8}}
	for _, idx := range order {
		img := image.NewPaletted(image.Rect(0, 0, 8, 8), clipPalette)
		for i := range img.Pix {
			img.Pix[i] = idx
		}
		g.Image = append(g.Image, img)
		g.Delay = append(g.Delay, delay)
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	return buf.Bytes()
}

// slowFingerprinter finishes after delay whatever the context says, like a
// decoder that completes just past its deadline.
type slowFingerprinter struct {
	delay time.Duration
}

func (s slowFingerprinter) Fingerprint(_ context.Context, data []byte) (fingerprint.Digest, error) {
	time.Sleep(s.delay)
	sum := sha256.Sum256(data)
	return fingerprint.NewDigest(sum[:])
}
