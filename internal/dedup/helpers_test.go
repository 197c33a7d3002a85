package dedup

import (
	"bytes"
	"crypto/sha256"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"video-dedup/internal/fingerprint"
	"video-dedup/internal/sender"
)

var (
	alice = sender.Identity{ID: "1", DisplayName: "Alice", Handle: "alice"}
	bob   = sender.Identity{ID: "2", DisplayName: "Bob"}
)

func digestOf(t *testing.T, s string) fingerprint.Digest {
	t.Helper()
	sum := sha256.Sum256([]byte(s))
	d, err := fingerprint.NewDigest(sum[:])
	require.NoError(t, err)
	return d
}

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}
