package rom

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"

	"aya/pkg/cpu"
)

// spritePalettes are the two 8-color palettes sprite bitmaps may draw
// from. A packed pixel stores the palette bit in bit 3 and the color
// index in bits 0-2.
var spritePalettes = [16][3]byte{
	// Palette 0.
	{0x00, 0x00, 0x00},
	{0xB3, 0x00, 0x00},
	{0xFF, 0x80, 0x00},
	{0xFF, 0xFF, 0xAA},
	{0x6C, 0xD9, 0x00},
	{0x00, 0x80, 0x00},
	{0x40, 0x40, 0x80},
	{0x88, 0x88, 0x88},
	// Palette 1.
	{0x00, 0x00, 0x00},
	{0x6E, 0xB8, 0xA8},
	{0x2A, 0x58, 0x4F},
	{0x74, 0xA3, 0x3F},
	{0xFC, 0xFF, 0xC0},
	{0xC6, 0x50, 0x5A},
	{0x77, 0x44, 0x48},
	{0xEE, 0x9C, 0x5D},
}

// UnknownColorError reports a bitmap pixel outside the sprite palettes.
type UnknownColorError struct {
	Sprite  string
	X, Y    int
	R, G, B byte
}

func (e *UnknownColorError) Error() string {
	return fmt.Sprintf("color #%02X%02X%02X is not a palette color, found on sprite %s at (%d, %d)",
		e.R, e.G, e.B, e.Sprite, e.X, e.Y)
}

// CompileSprites packs a list of sprite images into the cartridge
// sprite format, two pixels per byte in row order. Every pixel must
// match one of the palette entries exactly.
func CompileSprites(sprites []NamedImage) ([]byte, error) {
	var compiled []byte

	for _, sprite := range sprites {
		bounds := sprite.Image.Bounds()

		pending := -1 // packed high nibble waiting for its pair
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx, ok := paletteIndex(sprite.Image, x, y)
				if !ok {
					r, g, b, _ := sprite.Image.At(x, y).RGBA()
					return nil, &UnknownColorError{
						Sprite: sprite.Name,
						X:      x - bounds.Min.X,
						Y:      y - bounds.Min.Y,
						R:      byte(r >> 8), G: byte(g >> 8), B: byte(b >> 8),
					}
				}
				if pending < 0 {
					pending = int(idx) << 4
				} else {
					compiled = append(compiled, byte(pending)|idx)
					pending = -1
				}
			}
		}
		if pending >= 0 {
			return nil, errors.Errorf("sprite %s has an odd number of pixels", sprite.Name)
		}
	}

	if len(compiled) > cpu.MaxSpriteSize {
		return nil, errors.Errorf("sprites should take at most %d bytes, but the total size is %d",
			cpu.MaxSpriteSize, len(compiled))
	}
	return compiled, nil
}

// NamedImage pairs a decoded sprite with the name used in diagnostics.
type NamedImage struct {
	Name  string
	Image image.Image
}

// LoadSprites decodes a list of bitmap files for CompileSprites.
func LoadSprites(paths []string) ([]NamedImage, error) {
	sprites := make([]NamedImage, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open sprite")
		}
		img, err := bmp.Decode(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "decode sprite %s", path)
		}
		sprites = append(sprites, NamedImage{Name: filepath.Base(path), Image: img})
	}
	return sprites, nil
}

func paletteIndex(img image.Image, x, y int) (byte, bool) {
	r, g, b, _ := img.At(x, y).RGBA()
	for i, c := range spritePalettes {
		if byte(r>>8) == c[0] && byte(g>>8) == c[1] && byte(b>>8) == c[2] {
			// Duplicate black in palette 1 always resolves to
			// palette 0 entry 0, same as a linear scan.
			return byte(i), true
		}
	}
	return 0, false
}
