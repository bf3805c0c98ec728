package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// MaxChunks caps how many screenshot chunks are attached to one AI request.
const MaxChunks = 8

// SliceChunks splits a tall full-page PNG into 16:9 chunks, top to bottom.
// The chunk height derives from the image width (width * 9/16); the final
// chunk keeps whatever height remains. At most MaxChunks chunks are
// returned so an extremely long page cannot blow up the request size.
func SliceChunks(shot []byte) ([][]byte, error) {
	img, err := png.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty screenshot %dx%d", w, h)
	}

	chunkH := w * 9 / 16
	if chunkH < 1 {
		chunkH = 1
	}

	var out [][]byte
	for y := 0; y < h && len(out) < MaxChunks; y += chunkH {
		ch := chunkH
		if y+ch > h {
			ch = h - y
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, ch))
		draw.Draw(dst, dst.Bounds(), img, image.Pt(b.Min.X, b.Min.Y+y), draw.Src)

		var buf bytes.Buffer
		if err := png.Encode(&buf, dst); err != nil {
			return nil, fmt.Errorf("encode chunk at y=%d: %w", y, err)
		}
		out = append(out, buf.Bytes())
	}
	return out, nil
}
