package cpu

import (
	"testing"
)

// sampleFor builds an instruction with every shape-relevant field
// populated with distinctive values.
func sampleFor(op OpCode) Instruction {
	instr := Instruction{Op: op}
	shape, _ := op.Shape()
	switch shape {
	case ShapeLitReg:
		instr.R1 = R3
		instr.Imm = 0xBEEF
	case ShapeMemReg:
		instr.R1 = R5
		instr.Addr = 0x1234
	case ShapeRegReg:
		instr.R1 = R1
		instr.R2 = R8
	case ShapeRegMem:
		instr.Addr = 0x6280
		instr.R1 = R2
	case ShapeLitMem:
		instr.Addr = 0x6281
		instr.Imm = 0x00FF
	case ShapeSingleReg:
		instr.R1 = FP
	case ShapeSingleLit:
		instr.Imm = 0x2280
	}
	return instr
}

func allOpcodes() []OpCode {
	var ops []OpCode
	for v := 0; v < 256; v++ {
		if op := OpCode(v); op.Valid() {
			ops = append(ops, op)
		}
	}
	return ops
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, op := range allOpcodes() {
		want := sampleFor(op)
		encoded, err := want.Encode()
		if err != nil {
			t.Fatalf("%s: Encode failed: %v", op, err)
		}
		if len(encoded) != op.Size() {
			t.Errorf("%s: encoded %d bytes, want %d", op, len(encoded), op.Size())
		}

		got, size, err := Decode(encoded, 0)
		if err != nil {
			t.Fatalf("%s: Decode failed: %v", op, err)
		}
		if size != len(encoded) {
			t.Errorf("%s: Decode consumed %d bytes, want %d", op, size, len(encoded))
		}
		if got != want {
			t.Errorf("%s: round trip mismatch: got %+v, want %+v", op, got, want)
		}
	}
}

func TestEncodeLittleEndian(t *testing.T) {
	instr := Instruction{Op: OpMovLitReg, R1: R2, Imm: 0x2280}
	encoded, err := instr.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := []byte{0x11, 0x03, 0x80, 0x22}
	if len(encoded) != len(want) {
		t.Fatalf("encoded %d bytes, want %d", len(encoded), len(want))
	}
	for i := range want {
		if encoded[i] != want[i] {
			t.Errorf("byte %d = 0x%02X, want 0x%02X", i, encoded[i], want[i])
		}
	}
}

func TestEncodeInvalidRegister(t *testing.T) {
	instr := Instruction{Op: OpMovRegReg, R1: R1, R2: Register(12)}
	if _, err := instr.Encode(); err == nil {
		t.Error("expected error encoding register index 12")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
	}{
		{"empty stream", nil},
		{"unknown opcode", []byte{0x00}},
		{"truncated operand", []byte{byte(OpMovLitReg), byte(R1)}},
		{"bad register byte", []byte{byte(OpIncReg), 0xEE}},
	}
	for _, tc := range tests {
		if _, _, err := Decode(tc.b, 0); err == nil {
			t.Errorf("%s: expected decode error", tc.name)
		}
	}
}

func TestDecodeReportsOffset(t *testing.T) {
	_, _, err := Decode([]byte{0x00}, 42)
	encErr, ok := err.(*InvalidEncodingError)
	if !ok {
		t.Fatalf("expected *InvalidEncodingError, got %T", err)
	}
	if encErr.Offset != 42 {
		t.Errorf("Offset = %d, want 42", encErr.Offset)
	}
}
