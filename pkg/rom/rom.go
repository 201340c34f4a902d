// Package rom packs and loads AYA cartridge images. A cartridge is a
// 128-byte header followed by the code section and the packed sprite
// sheet; the header records the title and the offset and size of both
// sections so loaders can slice them back out.
package rom

import (
	"bytes"
	"os"

	"github.com/pkg/errors"

	"aya/pkg/cpu"
)

const (
	// HeaderSize is the fixed length of the cartridge header.
	HeaderSize = 128

	// Version is the only container revision this package produces
	// and accepts.
	Version = 1

	// MaxTitleLen is the longest title the header can hold, leaving
	// room for the terminating zero byte.
	MaxTitleLen = 63
)

// Header field offsets.
const (
	offMagic      = 0x00 // 'A' 'Y' 'A'
	offVersion    = 0x04
	offTitle      = 0x05
	offCodeStart  = 0x44
	offCodeSize   = 0x46
	offSpriteOff  = 0x48
	offSpriteSize = 0x4A
)

// ROM is a decoded cartridge.
type ROM struct {
	Title   string
	Code    []byte
	Sprites []byte
}

// Pack builds a cartridge image from an assembled code section and a
// compiled sprite sheet. Section limits match what the console can
// map: 16KiB of code and 4KiB of sprite data.
func Pack(title string, code, sprites []byte) ([]byte, error) {
	if len(title) > MaxTitleLen {
		return nil, errors.Errorf("title %q is %d bytes, the limit is %d", title, len(title), MaxTitleLen)
	}
	if len(code) > cpu.MaxCodeSize {
		return nil, errors.Errorf("code section is %d bytes, the limit is %d", len(code), cpu.MaxCodeSize)
	}
	if len(sprites) > cpu.MaxSpriteSize {
		return nil, errors.Errorf("sprite section is %d bytes, the limit is %d", len(sprites), cpu.MaxSpriteSize)
	}

	header := make([]byte, HeaderSize)
	header[offMagic+0] = 'A'
	header[offMagic+1] = 'Y'
	header[offMagic+2] = 'A'
	header[offVersion] = Version
	copy(header[offTitle:offTitle+MaxTitleLen], title)

	putLE16(header[offCodeStart:], HeaderSize)
	putLE16(header[offCodeSize:], uint16(len(code)))
	putLE16(header[offSpriteOff:], uint16(HeaderSize+len(code)))
	putLE16(header[offSpriteSize:], uint16(len(sprites)))

	image := make([]byte, 0, HeaderSize+len(code)+len(sprites))
	image = append(image, header...)
	image = append(image, code...)
	image = append(image, sprites...)
	return image, nil
}

// Load decodes a cartridge image produced by Pack.
func Load(data []byte) (*ROM, error) {
	if len(data) < HeaderSize {
		return nil, errors.Errorf("cartridge is %d bytes, shorter than the %d byte header", len(data), HeaderSize)
	}
	if data[offMagic] != 'A' || data[offMagic+1] != 'Y' || data[offMagic+2] != 'A' {
		return nil, errors.New("missing AYA signature")
	}
	if v := data[offVersion]; v != Version {
		return nil, errors.Errorf("unsupported cartridge version %d", v)
	}

	codeStart := int(le16(data[offCodeStart:]))
	codeSize := int(le16(data[offCodeSize:]))
	spriteOff := int(le16(data[offSpriteOff:]))
	spriteSize := int(le16(data[offSpriteSize:]))

	if codeStart+codeSize > len(data) {
		return nil, errors.Errorf("code section %d+%d runs past the %d byte image", codeStart, codeSize, len(data))
	}
	if spriteOff+spriteSize > len(data) {
		return nil, errors.Errorf("sprite section %d+%d runs past the %d byte image", spriteOff, spriteSize, len(data))
	}

	title := data[offTitle : offTitle+MaxTitleLen]
	if i := bytes.IndexByte(title, 0); i >= 0 {
		title = title[:i]
	}

	return &ROM{
		Title:   string(title),
		Code:    append([]byte(nil), data[codeStart:codeStart+codeSize]...),
		Sprites: append([]byte(nil), data[spriteOff:spriteOff+spriteSize]...),
	}, nil
}

// ReadFile loads a cartridge from disk.
func ReadFile(path string) (*ROM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read cartridge")
	}
	return Load(data)
}

func putLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
