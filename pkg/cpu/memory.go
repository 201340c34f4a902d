package cpu

import "fmt"

// Memory map. The 64KiB address space is split into fixed regions; the
// code section is loaded at CodeStart and the stack grows down from the
// top of the stack region.
const (
	TileStart   uint16 = 0x0000
	TileEnd     uint16 = 0x1FFF
	SpriteStart uint16 = 0x2000
	SpriteEnd   uint16 = 0x227F
	CodeStart   uint16 = 0x2280
	CodeEnd     uint16 = 0x627F
	BgStart     uint16 = 0x6280
	BgEnd       uint16 = 0x667F
	UIStart     uint16 = 0x6680
	UIEnd       uint16 = 0x6A7F
	OutStart    uint16 = 0x6A80
	OutEnd      uint16 = 0x6AFF
	InputAddr   uint16 = 0x6B00
	StackStart  uint16 = 0xE000
	StackEnd    uint16 = 0xFFFF
)

// MaxCodeSize is the capacity of the code region (16KiB).
const MaxCodeSize = int(CodeEnd-CodeStart) + 1

// MaxSpriteSize is the capacity of a ROM's sprite section (4KiB). The
// tile region holds 8KiB, so a full sheet fills at most half of it.
const MaxSpriteSize = 4 * 1024

// ReadByte returns the byte at addr.
func (c *CPU) ReadByte(addr uint16) byte {
	return c.Memory[addr]
}

// WriteByte stores one byte at addr.
func (c *CPU) WriteByte(addr uint16, b byte) {
	c.Memory[addr] = b
}

// Read16 reads a little-endian uint16 from addr and addr+1.
func (c *CPU) Read16(addr uint16) uint16 {
	lo := uint16(c.Memory[addr])
	hi := uint16(c.Memory[addr+1])
	return lo | hi<<8
}

// Write16 stores val little-endian at addr and addr+1. Word writes into
// the output region are routed to the character device.
func (c *CPU) Write16(addr uint16, val uint16) {
	if addr >= OutStart && addr <= OutEnd {
		c.writeOutput(addr, val)
		return
	}
	c.Memory[addr] = byte(val)
	c.Memory[addr+1] = byte(val >> 8)
}

// LoadCode copies a ROM code section into the code region.
func (c *CPU) LoadCode(code []byte) error {
	if len(code) > MaxCodeSize {
		return fmt.Errorf("code section is %d bytes, the code region holds %d", len(code), MaxCodeSize)
	}
	copy(c.Memory[CodeStart:int(CodeStart)+len(code)], code)
	return nil
}

// LoadTiles copies a ROM sprite section into tile memory.
func (c *CPU) LoadTiles(sprites []byte) error {
	if len(sprites) > MaxSpriteSize {
		return fmt.Errorf("sprite section is %d bytes, the limit is %d", len(sprites), MaxSpriteSize)
	}
	copy(c.Memory[TileStart:int(TileStart)+len(sprites)], sprites)
	return nil
}

// SetInput publishes the frontend's key-status word to the input cell.
func (c *CPU) SetInput(status KeyStatus) {
	c.Memory[InputAddr] = byte(status)
	c.Memory[InputAddr+1] = byte(status >> 8)
}
