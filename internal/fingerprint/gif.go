package fingerprint

import (
	"bytes"
	"context"
	"image"
	"image/gif"

	"golang.org/x/image/draw"
)

// GIFDecoder decodes animated GIFs in-process. Each yielded frame is the
// fully composited canvas, so delta-encoded GIFs normalize the same as GIFs
// that store every frame in full.
type GIFDecoder struct{}

func (GIFDecoder) Decode(ctx context.Context, data []byte, size int, yield func(Frame) bool) error {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if len(g.Image) == 0 {
		return ErrNoFrames
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		for _, p := range g.Image {
			bounds = bounds.Union(p.Bounds())
		}
	}
	canvas := image.NewRGBA(bounds)

	for i, p := range g.Image {
		if err := ctx.Err(); err != nil {
			return err
		}

		var disposal byte
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		var saved []byte
		if disposal == gif.DisposalPrevious {
			saved = append([]byte(nil), canvas.Pix...)
		}

		draw.Draw(canvas, p.Bounds(), p, p.Bounds().Min, draw.Over)
		if !yield(normalizeImage(canvas, size, i)) {
			return nil
		}

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, p.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			copy(canvas.Pix, saved)
		}
	}
	return nil
}
