package fingerprint

import (
	"context"
	"iter"
	"net/http"
)

// Decoder turns encoded video bytes into normalized frames, pushing each
// frame to yield in temporal order. When yield returns false the decoder must
// stop, release its resources and return nil.
type Decoder interface {
	Decode(ctx context.Context, data []byte, size int, yield func(Frame) bool) error
}

// Normalizer picks a Decoder for a submission and exposes its output as a
// lazy frame sequence. It holds no per-submission state and is safe for
// concurrent use.
type Normalizer struct {
	size  int
	gif   Decoder
	video Decoder
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithFrameSize sets the edge length of normalized frames.
func WithFrameSize(size int) Option {
	return func(n *Normalizer) {
		if size > 0 {
			n.size = size
		}
	}
}

// WithVideoDecoder sets the decoder used for every non-GIF container.
func WithVideoDecoder(d Decoder) Option {
	return func(n *Normalizer) { n.video = d }
}

// NewNormalizer returns a Normalizer that decodes animated GIFs in-process.
// Other containers need WithVideoDecoder, typically an FFmpegDecoder.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{size: DefaultFrameSize, gif: GIFDecoder{}}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// FrameSize returns the configured frame edge length.
func (n *Normalizer) FrameSize() int {
	return n.size
}

// Frames returns the normalized frames of data. Every range over the result
// decodes data again from the start; a range cannot be resumed midway.
// Decoding failures are reported once as a *DecodeError, after which the
// sequence ends.
func (n *Normalizer) Frames(ctx context.Context, data []byte) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		dec, op, err := n.decoderFor(data)
		if err != nil {
			yield(Frame{}, &DecodeError{Op: op, Err: err})
			return
		}

		stopped := false
		err = dec.Decode(ctx, data, n.size, func(f Frame) bool {
			if !yield(f, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(Frame{}, asDecodeError(op, err))
		}
	}
}

// Fingerprint normalizes data and folds the frames into a Digest.
func (n *Normalizer) Fingerprint(ctx context.Context, data []byte) (Digest, error) {
	return Generate(n.Frames(ctx, data))
}

func (n *Normalizer) decoderFor(data []byte) (Decoder, string, error) {
	if len(data) == 0 {
		return nil, "open", ErrEmptyInput
	}
	if http.DetectContentType(data) == "image/gif" {
		return n.gif, "gif", nil
	}
	if n.video == nil {
		return nil, "open", ErrUnsupportedFormat
	}
	return n.video, "video", nil
}
