package cpu

import (
	"image"
	"image/png"
	"os"
)

// Screen geometry: a 30×14 grid of 8×8 tiles.
const (
	TilesWide    = 30
	TilesHigh    = 14
	TileSize     = 8
	BytesPerTile = 32
	ScreenWidth  = TilesWide * TileSize
	ScreenHeight = TilesHigh * TileSize
)

// MaxSprites is the number of movable-sprite attribute slots; each slot
// is 16 bytes (tile index, x, y, flags, rest reserved).
const MaxSprites = 40

// Sprite attribute flag bits.
const (
	SpriteMirrorX byte = 0b00000001
	SpriteMirrorY byte = 0b00000010
)

// Palette is the console's fixed 16-color screen palette in RGBA order.
// Entry 0 is fully transparent so overlay layers show through.
var Palette = [16][4]byte{
	{0x00, 0x00, 0x00, 0x00},
	{0x9D, 0xC1, 0xC0, 0xFF},
	{0x52, 0x5B, 0x80, 0xFF},
	{0x31, 0x21, 0x39, 0xFF},
	{0x12, 0x0E, 0x1F, 0xFF},
	{0x28, 0x46, 0x46, 0xFF},
	{0x62, 0xAB, 0x46, 0xFF},
	{0x95, 0x53, 0x3D, 0xFF},
	{0x6A, 0x24, 0x35, 0xFF},
	{0x65, 0x41, 0x47, 0xFF},
	{0xFF, 0xF1, 0x69, 0xFF},
	{0xD7, 0x79, 0x3F, 0xFF},
	{0xAB, 0x32, 0x29, 0xFF},
	{0x9E, 0x8F, 0x84, 0xFF},
	{0xE0, 0xB5, 0x6D, 0xFF},
	{0xF6, 0x8B, 0x69, 0xFF},
}

// blitTile draws one 8×8 tile from tile memory into pixels at (px, py).
// Tiles pack two pixels per byte, high nibble first. Palette entry 0 is
// skipped so lower layers remain visible.
func (c *CPU) blitTile(pixels []byte, tileIdx byte, px, py int, flags byte) {
	base := int(TileStart) + int(tileIdx)*BytesPerTile
	for byteIdx := 0; byteIdx < BytesPerTile; byteIdx++ {
		b := c.Memory[base+byteIdx]
		x := (byteIdx % 4) * 2
		y := byteIdx / 4
		left := b >> 4
		right := b & 0x0F

		for sub := 0; sub < 2; sub++ {
			idx := left
			if sub == 1 {
				idx = right
			}
			if idx == 0 {
				continue
			}
			tx := x + sub
			ty := y
			if flags&SpriteMirrorX != 0 {
				tx = TileSize - 1 - tx
			}
			if flags&SpriteMirrorY != 0 {
				ty = TileSize - 1 - ty
			}
			sx := px + tx
			sy := py + ty
			if sx < 0 || sx >= ScreenWidth || sy < 0 || sy >= ScreenHeight {
				continue
			}
			off := (sy*ScreenWidth + sx) * 4
			copy(pixels[off:off+4], Palette[idx][:])
		}
	}
}

func (c *CPU) blitCellLayer(pixels []byte, start uint16) {
	for idx := 0; idx < TilesWide*TilesHigh; idx++ {
		tileIdx := c.Memory[int(start)+idx]
		px := idx % TilesWide * TileSize
		py := idx / TilesWide * TileSize
		c.blitTile(pixels, tileIdx, px, py, 0)
	}
}

func (c *CPU) blitSprites(pixels []byte) {
	for i := 0; i < MaxSprites; i++ {
		attr := int(SpriteStart) + i*16
		tileIdx := c.Memory[attr]
		x := int(c.Memory[attr+1])
		y := int(c.Memory[attr+2])
		flags := c.Memory[attr+3]
		c.blitTile(pixels, tileIdx, x, y, flags)
	}
}

// GetFramebufferRGBA composes the background cells, movable sprites,
// and interface cells into one RGBA8888 byte slice of the screen size.
func (c *CPU) GetFramebufferRGBA() []byte {
	pixels := make([]byte, ScreenWidth*ScreenHeight*4)
	c.blitCellLayer(pixels, BgStart)
	c.blitSprites(pixels)
	c.blitCellLayer(pixels, UIStart)
	return pixels
}

// GetFramebufferImage returns the composed screen as an *image.RGBA.
func (c *CPU) GetFramebufferImage() *image.RGBA {
	return &image.RGBA{
		Pix:    c.GetFramebufferRGBA(),
		Stride: ScreenWidth * 4,
		Rect:   image.Rect(0, 0, ScreenWidth, ScreenHeight),
	}
}

// SaveScreenshot encodes the current screen as a PNG and writes it to filename.
func (c *CPU) SaveScreenshot(filename string) error {
	img := c.GetFramebufferImage()
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
