package cpu

import "fmt"

// Instruction is the decoded form of one machine operation. Which
// fields carry meaning depends on the opcode's shape; fields outside
// the shape stay zero, so two instructions are equal exactly when
// their encodings are byte-identical.
//
//	ShapeLitReg     R1, Imm
//	ShapeMemReg     R1, Addr
//	ShapeRegReg     R1, R2
//	ShapeRegMem     Addr, R1
//	ShapeLitMem     Addr, Imm
//	ShapeSingleReg  R1
//	ShapeSingleLit  Imm
//	ShapeNoArgs     -
type Instruction struct {
	Op   OpCode
	R1   Register
	R2   Register
	Imm  uint16
	Addr uint16
}

// InvalidEncodingError reports a byte stream that does not decode into
// an instruction: an unknown opcode, a truncated operand, or an operand
// byte that is not a register index.
type InvalidEncodingError struct {
	Offset int
	Reason string
}

func (e *InvalidEncodingError) Error() string {
	return fmt.Sprintf("invalid encoding at byte %d: %s", e.Offset, e.Reason)
}

// Size is the encoded byte width of the instruction.
func (i Instruction) Size() int {
	return i.Op.Size()
}

func (i Instruction) String() string {
	shape, ok := i.Op.Shape()
	if !ok {
		return i.Op.String()
	}
	switch shape {
	case ShapeLitReg:
		return fmt.Sprintf("%s %s, $%04X", i.Op, i.R1, i.Imm)
	case ShapeMemReg:
		return fmt.Sprintf("%s %s, &[$%04X]", i.Op, i.R1, i.Addr)
	case ShapeRegReg:
		return fmt.Sprintf("%s %s, %s", i.Op, i.R1, i.R2)
	case ShapeRegMem:
		return fmt.Sprintf("%s &[$%04X], %s", i.Op, i.Addr, i.R1)
	case ShapeLitMem:
		return fmt.Sprintf("%s &[$%04X], $%04X", i.Op, i.Addr, i.Imm)
	case ShapeSingleReg:
		return fmt.Sprintf("%s %s", i.Op, i.R1)
	case ShapeSingleLit:
		return fmt.Sprintf("%s $%04X", i.Op, i.Imm)
	default:
		return i.Op.String()
	}
}

// Encode serializes the instruction into its binary form. Literals and
// addresses are little-endian.
func (i Instruction) Encode() ([]byte, error) {
	shape, ok := i.Op.Shape()
	if !ok {
		return nil, fmt.Errorf("cannot encode unknown opcode 0x%02X", byte(i.Op))
	}

	buf := make([]byte, 0, shape.Size())
	buf = append(buf, byte(i.Op))

	switch shape {
	case ShapeLitReg:
		if !i.R1.Valid() {
			return nil, fmt.Errorf("cannot encode %s: invalid register %d", i.Op, byte(i.R1))
		}
		buf = append(buf, byte(i.R1), byte(i.Imm), byte(i.Imm>>8))
	case ShapeMemReg:
		if !i.R1.Valid() {
			return nil, fmt.Errorf("cannot encode %s: invalid register %d", i.Op, byte(i.R1))
		}
		buf = append(buf, byte(i.R1), byte(i.Addr), byte(i.Addr>>8))
	case ShapeRegReg:
		if !i.R1.Valid() || !i.R2.Valid() {
			return nil, fmt.Errorf("cannot encode %s: invalid register operand", i.Op)
		}
		buf = append(buf, byte(i.R1), byte(i.R2))
	case ShapeRegMem:
		if !i.R1.Valid() {
			return nil, fmt.Errorf("cannot encode %s: invalid register %d", i.Op, byte(i.R1))
		}
		buf = append(buf, byte(i.Addr), byte(i.Addr>>8), byte(i.R1))
	case ShapeLitMem:
		buf = append(buf, byte(i.Addr), byte(i.Addr>>8), byte(i.Imm), byte(i.Imm>>8))
	case ShapeSingleReg:
		if !i.R1.Valid() {
			return nil, fmt.Errorf("cannot encode %s: invalid register %d", i.Op, byte(i.R1))
		}
		buf = append(buf, byte(i.R1))
	case ShapeSingleLit:
		buf = append(buf, byte(i.Imm), byte(i.Imm>>8))
	case ShapeNoArgs:
	}

	return buf, nil
}

// Decode reads one instruction from the start of b and returns it along
// with the number of bytes consumed. offset is only used to report the
// absolute position in errors.
func Decode(b []byte, offset int) (Instruction, int, error) {
	if len(b) == 0 {
		return Instruction{}, 0, &InvalidEncodingError{Offset: offset, Reason: "empty instruction stream"}
	}

	op := OpCode(b[0])
	shape, ok := op.Shape()
	if !ok {
		return Instruction{}, 0, &InvalidEncodingError{
			Offset: offset,
			Reason: fmt.Sprintf("unknown opcode 0x%02X", b[0]),
		}
	}

	size := shape.Size()
	if len(b) < size {
		return Instruction{}, 0, &InvalidEncodingError{
			Offset: offset,
			Reason: fmt.Sprintf("%s needs %d bytes, have %d", op, size, len(b)),
		}
	}

	instr := Instruction{Op: op}
	reg := func(idx int) (Register, error) {
		r, err := RegisterFromIndex(b[idx])
		if err != nil {
			return 0, &InvalidEncodingError{Offset: offset + idx, Reason: err.Error()}
		}
		return r, nil
	}
	word := func(idx int) uint16 {
		return uint16(b[idx]) | uint16(b[idx+1])<<8
	}

	var err error
	switch shape {
	case ShapeLitReg:
		if instr.R1, err = reg(1); err != nil {
			return Instruction{}, 0, err
		}
		instr.Imm = word(2)
	case ShapeMemReg:
		if instr.R1, err = reg(1); err != nil {
			return Instruction{}, 0, err
		}
		instr.Addr = word(2)
	case ShapeRegReg:
		if instr.R1, err = reg(1); err != nil {
			return Instruction{}, 0, err
		}
		if instr.R2, err = reg(2); err != nil {
			return Instruction{}, 0, err
		}
	case ShapeRegMem:
		instr.Addr = word(1)
		if instr.R1, err = reg(3); err != nil {
			return Instruction{}, 0, err
		}
	case ShapeLitMem:
		instr.Addr = word(1)
		instr.Imm = word(3)
	case ShapeSingleReg:
		if instr.R1, err = reg(1); err != nil {
			return Instruction{}, 0, err
		}
	case ShapeSingleLit:
		instr.Imm = word(1)
	case ShapeNoArgs:
	}

	return instr, size, nil
}
