// Package signature keeps a signature drawing server-side and exports it the
// way a browser signature pad does: as a PNG data URL, optionally cropped to
// the inked area.
package signature

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

var (
	ErrNothingToTrim = errors.New("signature: canvas has no ink")
	ErrBadDataURL    = errors.New("signature: malformed data URL")
)

const pngDataURLPrefix = "data:image/png;base64,"

// Canvas is a fixed size drawing buffer. The zero value is not usable; use
// NewCanvas.
type Canvas struct {
	mu     sync.Mutex
	width  int
	height int
	img    *image.NRGBA
}

func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		width:  width,
		height: height,
		img:    imaging.New(width, height, color.Transparent),
	}
}

// Load replaces the drawing with the image carried by a data URL.
func (c *Canvas) Load(dataURL string) error {
	img, err := DecodeDataURL(dataURL)
	if err != nil {
		return err
	}
	c.put(img)
	return nil
}

// LoadImage replaces the drawing with an encoded image (PNG, JPEG, GIF...).
func (c *Canvas) LoadImage(r io.Reader) error {
	img, err := imaging.Decode(r)
	if err != nil {
		return fmt.Errorf("signature: decode image: %w", err)
	}
	c.put(img)
	return nil
}

// put draws img at the top-left corner, shrinking it to fit when it is larger
// than the canvas.
func (c *Canvas) put(img image.Image) {
	b := img.Bounds()
	if b.Dx() > c.width || b.Dy() > c.height {
		img = imaging.Fit(img, c.width, c.height, imaging.Lanczos)
	}
	blank := imaging.New(c.width, c.height, color.Transparent)
	drawn := imaging.Paste(blank, img, image.Pt(0, 0))

	c.mu.Lock()
	c.img = drawn
	c.mu.Unlock()
}

func (c *Canvas) Clear() {
	c.mu.Lock()
	c.img = imaging.New(c.width, c.height, color.Transparent)
	c.mu.Unlock()
}

func (c *Canvas) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := inkBounds(c.img)
	return !ok
}

// Export returns the whole canvas as a PNG data URL.
func (c *Canvas) Export() (string, error) {
	c.mu.Lock()
	img := imaging.Clone(c.img)
	c.mu.Unlock()
	return encodeDataURL(img)
}

// ExportTrimmed returns the inked area only.
func (c *Canvas) ExportTrimmed() (string, error) {
	c.mu.Lock()
	r, ok := inkBounds(c.img)
	var cropped *image.NRGBA
	if ok {
		cropped = imaging.Crop(c.img, r)
	}
	c.mu.Unlock()
	if !ok {
		return "", ErrNothingToTrim
	}
	return encodeDataURL(cropped)
}

// inkBounds finds the smallest rectangle holding every inked pixel. Fully
// transparent and pure white pixels are background.
func inkBounds(img *image.NRGBA) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			p := row[(x-b.Min.X)*4 : (x-b.Min.X)*4+4]
			if p[3] == 0 || (p[0] == 0xff && p[1] == 0xff && p[2] == 0xff) {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

func encodeDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("signature: encode png: %w", err)
	}
	return pngDataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL decodes a base64 image data URL such as the ones produced by
// HTMLCanvasElement.toDataURL.
func DecodeDataURL(dataURL string) (image.Image, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, ErrBadDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDataURL, err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("signature: decode image: %w", err)
	}
	return img, nil
}
