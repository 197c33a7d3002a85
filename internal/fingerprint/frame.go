package fingerprint

import (
	"image"

	"golang.org/x/image/draw"
)

// DefaultFrameSize is the edge length every frame is scaled to.
const DefaultFrameSize = 64

// Frame is one normalized video frame: Width x Height luminance bytes,
// row-major, one byte per pixel.
type Frame struct {
	Index  int
	Width  int
	Height int
	Pix    []byte
}

// normalizeImage scales src to size x size and then reduces it to
// luminance. Scaling happens before the colour reduction.
func normalizeImage(src image.Image, size, index int) Frame {
	rect := image.Rect(0, 0, size, size)

	scaled := image.NewRGBA(rect)
	draw.BiLinear.Scale(scaled, rect, src, src.Bounds(), draw.Src, nil)

	gray := image.NewGray(rect)
	draw.Draw(gray, rect, scaled, image.Point{}, draw.Src)

	return Frame{Index: index, Width: size, Height: size, Pix: gray.Pix}
}
