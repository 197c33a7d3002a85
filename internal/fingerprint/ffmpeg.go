package fingerprint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

var errStopped = errors.New("frame consumer stopped")

// FFmpegDecoder decodes any container ffmpeg understands. The submission is
// spooled to a temporary file (ffmpeg needs to seek in most MP4s) which is
// removed before Decode returns.
type FFmpegDecoder struct {
	// Path is the ffmpeg binary, "ffmpeg" resolves through $PATH.
	Path string
	// TempDir holds the spooled input. Empty means os.TempDir().
	TempDir string
}

// LookupFFmpeg resolves path (a bare name is searched in $PATH) and returns a
// decoder for it, or an error if no executable is found.
func LookupFFmpeg(path, tempDir string) (*FFmpegDecoder, error) {
	if path == "" {
		path = "ffmpeg"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	return &FFmpegDecoder{Path: resolved, TempDir: tempDir}, nil
}

func (d *FFmpegDecoder) Decode(ctx context.Context, data []byte, size int, yield func(Frame) bool) error {
	path, err := d.spool(data)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dim := strconv.Itoa(size)
	cmd := exec.CommandContext(ctx, d.Path,
		"-nostdin", "-v", "error",
		"-i", path,
		"-map", "0:v:0", "-an", "-sn",
		"-fps_mode", "passthrough",
		"-vf", "scale="+dim+":"+dim+",format=gray",
		"-f", "rawvideo", "-pix_fmt", "gray",
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	readErr := readRawFrames(stdout, size, yield)
	if errors.Is(readErr, errStopped) {
		cancel()
		_ = cmd.Wait()
		return nil
	}
	if readErr != nil {
		cancel()
		_ = cmd.Wait()
		return readErr
	}
	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

func (d *FFmpegDecoder) spool(data []byte) (string, error) {
	f, err := os.CreateTemp(d.TempDir, "submission-*.video")
	if err != nil {
		return "", fmt.Errorf("spool video: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("spool video: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("spool video: %w", err)
	}
	return f.Name(), nil
}

// readRawFrames slices a stream of size x size gray8 frames. It returns
// errStopped if yield asked to stop and ErrTruncatedFrame if the stream ends
// partway through a frame.
func readRawFrames(r io.Reader, size int, yield func(Frame) bool) error {
	frameLen := size * size
	for i := 0; ; i++ {
		buf := make([]byte, frameLen)
		_, err := io.ReadFull(r, buf)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			return ErrTruncatedFrame
		case err != nil:
			return fmt.Errorf("read frame %d: %w", i, err)
		}
		if !yield(Frame{Index: i, Width: size, Height: size, Pix: buf}) {
			return errStopped
		}
	}
}
