package rehost

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Listing images are normalized to a fixed card resolution so the
// newsletter template can lay them out uniformly.
const (
	listingWidth  = 600
	listingHeight = 400
)

// resizeListing decodes an image, scales it to the listing resolution and
// re-encodes it as JPEG.
func resizeListing(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, listingWidth, listingHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}
