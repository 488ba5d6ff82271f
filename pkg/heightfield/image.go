package heightfield

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// ErrUnsupportedFormat is returned for image extensions other than .png and .bmp.
var ErrUnsupportedFormat = errors.New("heightfield: unsupported image format")

// Image renders the grid as 8-bit grayscale, x to the right and z down.
func (g *Grid) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.size, g.size))
	for i := range g.size {
		for j := range g.size {
			v := clampf(g.cells[i*g.size+j], 0, 1)
			img.SetGray(i, j, color.Gray{Y: uint8(v * 255)})
		}
	}
	return img
}

// WritePNG encodes the grid as a grayscale PNG.
func (g *Grid) WritePNG(w io.Writer) error {
	return png.Encode(w, g.Image())
}

// WriteBMP encodes the grid as a grayscale BMP.
func (g *Grid) WriteBMP(w io.Writer) error {
	return bmp.Encode(w, g.Image())
}

// WriteFile writes the grid to path, picking the encoder from the extension.
func (g *Grid) WriteFile(path string) error {
	var encode func(io.Writer) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		encode = g.WritePNG
	case ".bmp":
		encode = g.WriteBMP
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
