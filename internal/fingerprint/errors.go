package fingerprint

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFrames is returned when a video decodes to zero frames. An empty
	// video is never treated as matching another empty video.
	ErrNoFrames = errors.New("video has no decodable frames")

	// ErrEmptyInput is returned for a zero-length submission.
	ErrEmptyInput = errors.New("empty video input")

	// ErrUnsupportedFormat is returned when no decoder can handle the input.
	ErrUnsupportedFormat = errors.New("unsupported video format")

	// ErrTruncatedFrame is returned when a raw frame stream ends mid-frame.
	ErrTruncatedFrame = errors.New("truncated frame")
)

// DecodeError reports a video that could not be opened, parsed, or that
// produced no frames. Nothing is committed for a submission that fails with
// a DecodeError.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

func asDecodeError(op string, err error) error {
	if err == nil || IsDecodeError(err) {
		return err
	}
	return &DecodeError{Op: op, Err: err}
}
