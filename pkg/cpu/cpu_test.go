package cpu

import (
	"bytes"
	"strings"
	"testing"
)

// loadProgram encodes the instructions and places them at the start of
// the code region.
func loadProgram(t *testing.T, c *CPU, instrs ...Instruction) {
	t.Helper()
	var code []byte
	for _, instr := range instrs {
		encoded, err := instr.Encode()
		if err != nil {
			t.Fatalf("encode %s: %v", instr, err)
		}
		code = append(code, encoded...)
	}
	if err := c.LoadCode(code); err != nil {
		t.Fatalf("LoadCode: %v", err)
	}
}

func runProgram(t *testing.T, instrs ...Instruction) *CPU {
	t.Helper()
	c := NewCPU()
	loadProgram(t, c, instrs...)
	if err := c.Run(10000); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return c
}

func TestPowerOnState(t *testing.T) {
	c := NewCPU()
	if c.Regs[IP] != CodeStart {
		t.Errorf("IP = 0x%04X, want 0x%04X", c.Regs[IP], CodeStart)
	}
	if c.Regs[SP] != StackEnd-1 {
		t.Errorf("SP = 0x%04X, want 0x%04X", c.Regs[SP], StackEnd-1)
	}
	if c.Regs[FP] != StackEnd-1 {
		t.Errorf("FP = 0x%04X, want 0x%04X", c.Regs[FP], StackEnd-1)
	}
	if c.State != Running {
		t.Errorf("State = %v, want %v", c.State, Running)
	}
}

func TestMoves(t *testing.T) {
	c := runProgram(t,
		Instruction{Op: OpMovLitReg, R1: R1, Imm: 0x1234},
		Instruction{Op: OpMovRegReg, R1: R2, R2: R1},
		Instruction{Op: OpMovRegMem, Addr: BgStart, R1: R2},
		Instruction{Op: OpMovMemReg, R1: R3, Addr: BgStart},
		Instruction{Op: OpMovLitMem, Addr: BgStart + 2, Imm: 0x00AA},
		Instruction{Op: OpHalt},
	)
	if c.Regs[R1] != 0x1234 || c.Regs[R2] != 0x1234 || c.Regs[R3] != 0x1234 {
		t.Errorf("registers = %04X %04X %04X, want 0x1234 each", c.Regs[R1], c.Regs[R2], c.Regs[R3])
	}
	if got := c.Read16(BgStart); got != 0x1234 {
		t.Errorf("mem[BgStart] = 0x%04X, want 0x1234", got)
	}
	if got := c.Read16(BgStart + 2); got != 0x00AA {
		t.Errorf("mem[BgStart+2] = 0x%04X, want 0x00AA", got)
	}
}

func TestMovesThroughPointer(t *testing.T) {
	c := runProgram(t,
		Instruction{Op: OpMovLitReg, R1: R1, Imm: BgStart},
		Instruction{Op: OpMovLitReg, R1: R2, Imm: 0x0042},
		Instruction{Op: OpMovRegPtrReg, R1: R1, R2: R2},
		Instruction{Op: OpMovLitRegPtr, R1: R1, Imm: 0x0042},
		Instruction{Op: OpHalt},
	)
	if got := c.Read16(BgStart); got != 0x0042 {
		t.Errorf("mem[BgStart] = 0x%04X, want 0x0042", got)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name  string
		init  uint16
		instr Instruction
		want  uint16
	}{
		{"add reg", 10, Instruction{Op: OpAddRegReg, R1: R1, R2: R2}, 30},
		{"add lit", 10, Instruction{Op: OpAddLitReg, R1: R1, Imm: 7}, 17},
		{"add wraps", 0xFFFF, Instruction{Op: OpAddLitReg, R1: R1, Imm: 2}, 1},
		{"sub reg", 50, Instruction{Op: OpSubRegReg, R1: R1, R2: R2}, 30},
		{"sub lit", 10, Instruction{Op: OpSubLitReg, R1: R1, Imm: 4}, 6},
		{"sub wraps", 0, Instruction{Op: OpSubLitReg, R1: R1, Imm: 1}, 0xFFFF},
		{"mul reg", 7, Instruction{Op: OpMulRegReg, R1: R1, R2: R2}, 140},
		{"mul lit", 300, Instruction{Op: OpMulLitReg, R1: R1, Imm: 300}, 0x5F90},
		{"inc", 41, Instruction{Op: OpIncReg, R1: R1}, 42},
		{"dec", 43, Instruction{Op: OpDecReg, R1: R1}, 42},
	}
	for _, tc := range tests {
		c := NewCPU()
		c.Regs[R1] = tc.init
		c.Regs[R2] = 20
		loadProgram(t, c, tc.instr, Instruction{Op: OpHalt})
		if err := c.Run(10); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if c.Regs[R1] != tc.want {
			t.Errorf("%s: R1 = %d (0x%04X), want %d (0x%04X)", tc.name, c.Regs[R1], c.Regs[R1], tc.want, tc.want)
		}
	}
}

func TestBitwise(t *testing.T) {
	tests := []struct {
		name  string
		init  uint16
		instr Instruction
		want  uint16
	}{
		{"lsh reg", 0b0001, Instruction{Op: OpLshRegReg, R1: R1, R2: R2}, 0b1000},
		{"lsh lit", 0b0001, Instruction{Op: OpLshLitReg, R1: R1, Imm: 4}, 0b10000},
		{"rsh reg", 0b1000, Instruction{Op: OpRshRegReg, R1: R1, R2: R2}, 0b0001},
		{"rsh lit", 0xFF00, Instruction{Op: OpRshLitReg, R1: R1, Imm: 8}, 0x00FF},
		{"and reg", 0b1100, Instruction{Op: OpAndRegReg, R1: R1, R2: R3}, 0b1100 & 0b1010},
		{"and lit", 0xFFFF, Instruction{Op: OpAndLitReg, R1: R1, Imm: 0x0F0F}, 0x0F0F},
		{"or reg", 0b1100, Instruction{Op: OpOrRegReg, R1: R1, R2: R3}, 0b1110},
		{"or lit", 0xF000, Instruction{Op: OpOrLitReg, R1: R1, Imm: 0x000F}, 0xF00F},
		{"xor reg", 0b1100, Instruction{Op: OpXorRegReg, R1: R1, R2: R3}, 0b0110},
		{"xor lit", 0xFFFF, Instruction{Op: OpXorLitReg, R1: R1, Imm: 0x00FF}, 0xFF00},
		{"not", 0x00FF, Instruction{Op: OpNot, R1: R1}, 0xFF00},
	}
	for _, tc := range tests {
		c := NewCPU()
		c.Regs[R1] = tc.init
		c.Regs[R2] = 3
		c.Regs[R3] = 0b1010
		loadProgram(t, c, tc.instr, Instruction{Op: OpHalt})
		if err := c.Run(10); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if c.Regs[R1] != tc.want {
			t.Errorf("%s: R1 = 0x%04X, want 0x%04X", tc.name, c.Regs[R1], tc.want)
		}
	}
}

// Conditional jumps compare their operand against ACC and land on an
// absolute address.
func TestConditionalJumps(t *testing.T) {
	tests := []struct {
		name  string
		op    OpCode
		acc   uint16
		val   uint16
		taken bool
	}{
		{"jeq taken", OpJeqLit, 5, 5, true},
		{"jeq not taken", OpJeqLit, 5, 6, false},
		{"jne taken", OpJneLit, 5, 6, true},
		{"jne not taken", OpJneLit, 5, 5, false},
		{"jgt taken", OpJgtLit, 5, 6, true},
		{"jgt not taken", OpJgtLit, 5, 5, false},
		{"jge taken on equal", OpJgeLit, 5, 5, true},
		{"jge not taken", OpJgeLit, 5, 4, false},
		{"jle taken", OpJleLit, 5, 5, true},
		{"jle not taken", OpJleLit, 5, 6, false},
		{"jlt taken", OpJltLit, 5, 4, true},
		{"jlt not taken", OpJltLit, 5, 5, false},
	}
	for _, tc := range tests {
		// jump over "mov r1, 1" when taken; 5 byte jump + 4 byte mov.
		skipTo := CodeStart + 5 + 4
		c := NewCPU()
		c.Regs[Acc] = tc.acc
		loadProgram(t, c,
			Instruction{Op: tc.op, Addr: skipTo, Imm: tc.val},
			Instruction{Op: OpMovLitReg, R1: R1, Imm: 1},
			Instruction{Op: OpHalt},
		)
		if err := c.Run(10); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		skipped := c.Regs[R1] == 0
		if skipped != tc.taken {
			t.Errorf("%s: jump taken = %v, want %v", tc.name, skipped, tc.taken)
		}
	}
}

func TestConditionalJumpRegisterForm(t *testing.T) {
	skipTo := CodeStart + 4 + 4
	c := NewCPU()
	c.Regs[Acc] = 9
	c.Regs[R2] = 9
	loadProgram(t, c,
		Instruction{Op: OpJeqReg, Addr: skipTo, R1: R2},
		Instruction{Op: OpMovLitReg, R1: R1, Imm: 1},
		Instruction{Op: OpHalt},
	)
	if err := c.Run(10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.Regs[R1] != 0 {
		t.Error("expected JeqReg to skip the mov")
	}
}

// A counting loop: increment R1 until it reaches 5.
func TestLoop(t *testing.T) {
	c := NewCPU()
	c.Regs[Acc] = 5
	loop := CodeStart
	loadProgram(t, c,
		Instruction{Op: OpIncReg, R1: R1},              // 2 bytes
		Instruction{Op: OpJneReg, Addr: loop, R1: R1}, // 4 bytes
		Instruction{Op: OpHalt},
	)
	if err := c.Run(100); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.State != Halted {
		t.Fatalf("State = %v, want halted", c.State)
	}
	if c.Regs[R1] != 5 {
		t.Errorf("R1 = %d, want 5", c.Regs[R1])
	}
}

func TestPushPop(t *testing.T) {
	c := runProgram(t,
		Instruction{Op: OpMovLitReg, R1: R1, Imm: 0xAAAA},
		Instruction{Op: OpPushReg, R1: R1},
		Instruction{Op: OpPushLit, Imm: 0xBBBB},
		Instruction{Op: OpPop, R1: R2},
		Instruction{Op: OpPop, R1: R3},
		Instruction{Op: OpHalt},
	)
	if c.Regs[R2] != 0xBBBB || c.Regs[R3] != 0xAAAA {
		t.Errorf("popped 0x%04X, 0x%04X; want 0xBBBB, 0xAAAA", c.Regs[R2], c.Regs[R3])
	}
	if c.Regs[SP] != StackEnd-1 {
		t.Errorf("SP = 0x%04X, want restored to 0x%04X", c.Regs[SP], StackEnd-1)
	}
}

// Call pushes the return address; Ret pops it back into IP.
func TestCallRet(t *testing.T) {
	sub := CodeStart + 3 + 4 + 1 // call + mov + halt
	c := NewCPU()
	loadProgram(t, c,
		Instruction{Op: OpCall, Imm: sub},             // 3 bytes
		Instruction{Op: OpMovLitReg, R1: R2, Imm: 2}, // 4 bytes, runs after ret
		Instruction{Op: OpHalt},                      // 1 byte
		Instruction{Op: OpMovLitReg, R1: R1, Imm: 1}, // the subroutine
		Instruction{Op: OpRet},
	)
	if err := c.Run(100); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.Regs[R1] != 1 {
		t.Errorf("subroutine did not run: R1 = %d", c.Regs[R1])
	}
	if c.Regs[R2] != 2 {
		t.Errorf("execution did not resume after ret: R2 = %d", c.Regs[R2])
	}
	if c.Regs[SP] != StackEnd-1 {
		t.Errorf("SP = 0x%04X, want balanced stack", c.Regs[SP])
	}
}

func TestStackOverflowFault(t *testing.T) {
	c := NewCPU()
	c.Regs[SP] = StackStart + 1
	loadProgram(t, c, Instruction{Op: OpPushLit, Imm: 1})
	err := c.Run(10)
	fault, ok := err.(*Fault)
	if !ok {
		t.Fatalf("expected *Fault, got %v", err)
	}
	if fault.Kind != FaultStackOverflow {
		t.Errorf("Kind = %v, want stack overflow", fault.Kind)
	}
	if c.State != Faulted {
		t.Errorf("State = %v, want faulted", c.State)
	}
}

func TestStackUnderflowFault(t *testing.T) {
	c := NewCPU()
	loadProgram(t, c, Instruction{Op: OpPop, R1: R1})
	err := c.Run(10)
	fault, ok := err.(*Fault)
	if !ok {
		t.Fatalf("expected *Fault, got %v", err)
	}
	if fault.Kind != FaultStackUnderflow {
		t.Errorf("Kind = %v, want stack underflow", fault.Kind)
	}
}

func TestInvalidOpcodeFault(t *testing.T) {
	c := NewCPU()
	// Code region is zero-filled; 0x00 is not an opcode.
	err := c.Run(10)
	fault, ok := err.(*Fault)
	if !ok {
		t.Fatalf("expected *Fault, got %v", err)
	}
	if fault.Kind != FaultInvalidOpcode {
		t.Errorf("Kind = %v, want invalid opcode", fault.Kind)
	}
	if fault.Addr != CodeStart {
		t.Errorf("Addr = 0x%04X, want 0x%04X", fault.Addr, CodeStart)
	}
}

func TestOutOfBoundsStoreFault(t *testing.T) {
	c := NewCPU()
	loadProgram(t, c, Instruction{Op: OpMovLitMem, Addr: StackEnd, Imm: 1})
	err := c.Run(10)
	fault, ok := err.(*Fault)
	if !ok {
		t.Fatalf("expected *Fault, got %v", err)
	}
	if fault.Kind != FaultOutOfBoundsAddress {
		t.Errorf("Kind = %v, want out of bounds address", fault.Kind)
	}
}

func TestFaultCarriesRegisterSnapshot(t *testing.T) {
	c := NewCPU()
	c.Regs[R4] = 0xCAFE
	loadProgram(t, c, Instruction{Op: OpPop, R1: R1})
	err := c.Run(10)
	fault, ok := err.(*Fault)
	if !ok {
		t.Fatalf("expected *Fault, got %v", err)
	}
	if fault.Regs[R4] != 0xCAFE {
		t.Errorf("snapshot R4 = 0x%04X, want 0xCAFE", fault.Regs[R4])
	}
}

func TestStepAfterHaltIsInert(t *testing.T) {
	c := runProgram(t, Instruction{Op: OpHalt})
	steps := c.Steps
	if err := c.Step(); err != nil {
		t.Fatalf("Step after halt: %v", err)
	}
	if c.Steps != steps {
		t.Error("Step advanced a halted machine")
	}
}

func TestOutputDevice(t *testing.T) {
	var buf bytes.Buffer
	c := NewCPU()
	c.Output = &buf
	loadProgram(t, c,
		Instruction{Op: OpMovLitMem, Addr: OutStart, Imm: uint16('H')},
		Instruction{Op: OpMovLitMem, Addr: OutStart + 1, Imm: uint16('i')},
		Instruction{Op: OpHalt},
	)
	if err := c.Run(10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "\x1b[1;1HH") {
		t.Errorf("output %q missing positioned 'H'", out)
	}
	if !strings.Contains(out, "\x1b[1;2Hi") {
		t.Errorf("output %q missing positioned 'i'", out)
	}
}

func TestOutputClearCommand(t *testing.T) {
	var buf bytes.Buffer
	c := NewCPU()
	c.Output = &buf
	loadProgram(t, c,
		Instruction{Op: OpMovLitMem, Addr: OutStart, Imm: 0xFF00 | uint16(' ')},
		Instruction{Op: OpHalt},
	)
	if err := c.Run(10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[2J") {
		t.Errorf("output %q missing clear sequence", buf.String())
	}
}

func TestInputCell(t *testing.T) {
	c := NewCPU()
	c.SetInput(KeyMain.With(KeyLeft))
	loadProgram(t, c,
		Instruction{Op: OpMovMemReg, R1: R1, Addr: InputAddr},
		Instruction{Op: OpHalt},
	)
	if err := c.Run(10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	status := KeyStatus(c.Regs[R1])
	if !status.Down(KeyMain) || !status.Down(KeyLeft) {
		t.Errorf("status = %016b, want main and left down", status)
	}
	if status.Down(KeyUp) {
		t.Error("KeyUp reads as down")
	}
}
