package cpu

import "fmt"

// OpCode is the first byte of every encoded instruction.
type OpCode byte

const (
	OpMovRegReg    OpCode = 0x10
	OpMovLitReg    OpCode = 0x11
	OpMovRegMem    OpCode = 0x12
	OpMovMemReg    OpCode = 0x13
	OpMovLitMem    OpCode = 0x14
	OpMovRegPtrReg OpCode = 0x15
	OpMovLitRegPtr OpCode = 0x16

	OpAddRegReg OpCode = 0x20
	OpAddLitReg OpCode = 0x21
	OpSubRegReg OpCode = 0x22
	OpSubLitReg OpCode = 0x23
	OpMulRegReg OpCode = 0x24
	OpMulLitReg OpCode = 0x25
	OpIncReg    OpCode = 0x26
	OpDecReg    OpCode = 0x27

	OpLshRegReg OpCode = 0x30
	OpLshLitReg OpCode = 0x31
	OpRshRegReg OpCode = 0x32
	OpRshLitReg OpCode = 0x33
	OpAndRegReg OpCode = 0x34
	OpAndLitReg OpCode = 0x35
	OpOrRegReg  OpCode = 0x36
	OpOrLitReg  OpCode = 0x37
	OpXorRegReg OpCode = 0x38
	OpXorLitReg OpCode = 0x39
	OpNot       OpCode = 0x3A

	OpPushReg OpCode = 0x40
	OpPushLit OpCode = 0x41
	OpPop     OpCode = 0x42
	OpCall    OpCode = 0x43
	OpRet     OpCode = 0x44

	OpJeqReg OpCode = 0x51
	OpJeqLit OpCode = 0x52
	OpJgtReg OpCode = 0x53
	OpJgtLit OpCode = 0x54
	OpJneReg OpCode = 0x55
	OpJneLit OpCode = 0x56
	OpJgeReg OpCode = 0x57
	OpJgeLit OpCode = 0x58
	OpJleReg OpCode = 0x59
	OpJleLit OpCode = 0x5A
	OpJltReg OpCode = 0x5B
	OpJltLit OpCode = 0x5C
	OpJmp    OpCode = 0x5D

	OpHalt OpCode = 0xFF
)

// Shape is the binary layout of an opcode's operands. Every opcode has
// exactly one shape, so instruction sizes are known before encoding.
type Shape int

const (
	// ShapeLitReg: opcode, register byte, 16-bit literal.
	ShapeLitReg Shape = iota
	// ShapeMemReg: same layout as ShapeLitReg, but the 16-bit value is an address.
	ShapeMemReg
	// ShapeRegReg: opcode, register byte, register byte.
	ShapeRegReg
	// ShapeRegMem: opcode, 16-bit address, register byte.
	ShapeRegMem
	// ShapeLitMem: opcode, 16-bit address, 16-bit literal.
	ShapeLitMem
	// ShapeSingleReg: opcode, register byte.
	ShapeSingleReg
	// ShapeSingleLit: opcode, 16-bit literal.
	ShapeSingleLit
	// ShapeNoArgs: opcode only.
	ShapeNoArgs
)

// Size is the encoded byte width of an instruction with this shape.
func (s Shape) Size() int {
	switch s {
	case ShapeLitReg, ShapeMemReg, ShapeRegMem:
		return 4
	case ShapeRegReg:
		return 3
	case ShapeLitMem:
		return 5
	case ShapeSingleReg:
		return 2
	case ShapeSingleLit:
		return 3
	default:
		return 1
	}
}

var opShapes = map[OpCode]Shape{
	OpMovRegReg:    ShapeRegReg,
	OpMovLitReg:    ShapeLitReg,
	OpMovRegMem:    ShapeRegMem,
	OpMovMemReg:    ShapeMemReg,
	OpMovLitMem:    ShapeLitMem,
	OpMovRegPtrReg: ShapeRegReg,
	OpMovLitRegPtr: ShapeLitReg,

	OpAddRegReg: ShapeRegReg,
	OpAddLitReg: ShapeLitReg,
	OpSubRegReg: ShapeRegReg,
	OpSubLitReg: ShapeLitReg,
	OpMulRegReg: ShapeRegReg,
	OpMulLitReg: ShapeLitReg,
	OpIncReg:    ShapeSingleReg,
	OpDecReg:    ShapeSingleReg,

	OpLshRegReg: ShapeRegReg,
	OpLshLitReg: ShapeLitReg,
	OpRshRegReg: ShapeRegReg,
	OpRshLitReg: ShapeLitReg,
	OpAndRegReg: ShapeRegReg,
	OpAndLitReg: ShapeLitReg,
	OpOrRegReg:  ShapeRegReg,
	OpOrLitReg:  ShapeLitReg,
	OpXorRegReg: ShapeRegReg,
	OpXorLitReg: ShapeLitReg,
	OpNot:       ShapeSingleReg,

	OpPushReg: ShapeSingleReg,
	OpPushLit: ShapeSingleLit,
	OpPop:     ShapeSingleReg,
	OpCall:    ShapeSingleLit,
	OpRet:     ShapeNoArgs,

	OpJeqReg: ShapeRegMem,
	OpJeqLit: ShapeLitMem,
	OpJgtReg: ShapeRegMem,
	OpJgtLit: ShapeLitMem,
	OpJneReg: ShapeRegMem,
	OpJneLit: ShapeLitMem,
	OpJgeReg: ShapeRegMem,
	OpJgeLit: ShapeLitMem,
	OpJleReg: ShapeRegMem,
	OpJleLit: ShapeLitMem,
	OpJltReg: ShapeRegMem,
	OpJltLit: ShapeLitMem,
	OpJmp:    ShapeSingleLit,

	OpHalt: ShapeNoArgs,
}

var opNames = map[OpCode]string{
	OpMovRegReg:    "MovRegReg",
	OpMovLitReg:    "MovLitReg",
	OpMovRegMem:    "MovRegMem",
	OpMovMemReg:    "MovMemReg",
	OpMovLitMem:    "MovLitMem",
	OpMovRegPtrReg: "MovRegPtrReg",
	OpMovLitRegPtr: "MovLitRegPtr",
	OpAddRegReg:    "AddRegReg",
	OpAddLitReg:    "AddLitReg",
	OpSubRegReg:    "SubRegReg",
	OpSubLitReg:    "SubLitReg",
	OpMulRegReg:    "MulRegReg",
	OpMulLitReg:    "MulLitReg",
	OpIncReg:       "IncReg",
	OpDecReg:       "DecReg",
	OpLshRegReg:    "LshRegReg",
	OpLshLitReg:    "LshLitReg",
	OpRshRegReg:    "RshRegReg",
	OpRshLitReg:    "RshLitReg",
	OpAndRegReg:    "AndRegReg",
	OpAndLitReg:    "AndLitReg",
	OpOrRegReg:     "OrRegReg",
	OpOrLitReg:     "OrLitReg",
	OpXorRegReg:    "XorRegReg",
	OpXorLitReg:    "XorLitReg",
	OpNot:          "Not",
	OpPushReg:      "PushReg",
	OpPushLit:      "PushLit",
	OpPop:          "Pop",
	OpCall:         "Call",
	OpRet:          "Ret",
	OpJeqReg:       "JeqReg",
	OpJeqLit:       "JeqLit",
	OpJgtReg:       "JgtReg",
	OpJgtLit:       "JgtLit",
	OpJneReg:       "JneReg",
	OpJneLit:       "JneLit",
	OpJgeReg:       "JgeReg",
	OpJgeLit:       "JgeLit",
	OpJleReg:       "JleReg",
	OpJleLit:       "JleLit",
	OpJltReg:       "JltReg",
	OpJltLit:       "JltLit",
	OpJmp:          "Jmp",
	OpHalt:         "Halt",
}

// Shape returns the operand layout for op, or false for an unknown opcode.
func (op OpCode) Shape() (Shape, bool) {
	s, ok := opShapes[op]
	return s, ok
}

// Valid reports whether op is a defined opcode.
func (op OpCode) Valid() bool {
	_, ok := opShapes[op]
	return ok
}

// Size is the full encoded width of an instruction starting with op,
// including the opcode byte. Unknown opcodes report 0.
func (op OpCode) Size() int {
	s, ok := opShapes[op]
	if !ok {
		return 0
	}
	return s.Size()
}

func (op OpCode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OpCode(0x%02X)", byte(op))
}
