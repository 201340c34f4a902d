package cpu

import (
	"fmt"
	"io"
	"os"
)

// State is the lifecycle of a single execution engine instance.
type State int

const (
	Running State = iota
	Halted
	Faulted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FaultKind classifies an unrecoverable runtime fault.
type FaultKind int

const (
	FaultStackOverflow FaultKind = iota
	FaultStackUnderflow
	FaultInvalidOpcode
	FaultOutOfBoundsAddress
)

func (k FaultKind) String() string {
	switch k {
	case FaultStackOverflow:
		return "stack overflow"
	case FaultStackUnderflow:
		return "stack underflow"
	case FaultInvalidOpcode:
		return "invalid opcode"
	case FaultOutOfBoundsAddress:
		return "out of bounds address"
	default:
		return fmt.Sprintf("FaultKind(%d)", int(k))
	}
}

// Fault carries the faulting instruction address and a register
// snapshot taken at the moment the fault was raised.
type Fault struct {
	Kind FaultKind
	Addr uint16
	Regs [NumRegisters]uint16
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault: %s at 0x%04X", f.Kind, f.Addr)
}

// stackInit is the word-aligned top of the stack region; SP and FP
// start here and a push decrements SP before writing.
const stackInit uint16 = StackEnd - 1

// CPU is one self-contained execution engine: register file, memory,
// and run state. Instances are independent, so tests can step two
// machines side by side.
type CPU struct {
	Regs   [NumRegisters]uint16
	Memory [65536]byte

	State State
	// Fault is set when State becomes Faulted.
	Fault *Fault

	// Output receives character-device writes. If nil, os.Stdout is used.
	Output io.Writer

	// Steps counts executed instructions, for clocked frontends.
	Steps uint64
}

// NewCPU returns a machine in its power-on state: IP at the code
// region, SP and FP at the top of the stack region, everything else zero.
func NewCPU() *CPU {
	c := &CPU{}
	c.Regs[IP] = CodeStart
	c.Regs[SP] = stackInit
	c.Regs[FP] = stackInit
	return c
}

func (c *CPU) outputSink() io.Writer {
	if c.Output != nil {
		return c.Output
	}
	return os.Stdout
}

// writeOutput implements the character device. The low byte of the word
// is the character, the high byte an optional command; the cell offset
// within the region selects the terminal position.
func (c *CPU) writeOutput(addr uint16, word uint16) {
	w := c.outputSink()
	ch := byte(word)
	command := byte(word >> 8)
	if command == 0xFF {
		fmt.Fprint(w, "\x1b[2J")
	}
	offset := addr - OutStart
	x := offset%50 + 1
	y := offset/50 + 1
	fmt.Fprintf(w, "\x1b[%d;%dH%c", y, x, ch)
}

// Snapshot returns a copy of the register file.
func (c *CPU) Snapshot() [NumRegisters]uint16 {
	return c.Regs
}

func (c *CPU) fault(kind FaultKind, addr uint16) error {
	f := &Fault{Kind: kind, Addr: addr, Regs: c.Regs}
	c.Fault = f
	c.State = Faulted
	return f
}

func (c *CPU) push(val uint16, at uint16) error {
	sp := c.Regs[SP]
	if sp < StackStart+2 {
		return c.fault(FaultStackOverflow, at)
	}
	sp -= 2
	c.Regs[SP] = sp
	c.Write16(sp, val)
	return nil
}

func (c *CPU) pop(at uint16) (uint16, error) {
	sp := c.Regs[SP]
	if sp >= stackInit {
		return 0, c.fault(FaultStackUnderflow, at)
	}
	val := c.Read16(sp)
	c.Regs[SP] = sp + 2
	return val, nil
}

// Step fetches, decodes, and executes one instruction. IP is advanced
// past the instruction before it executes, so jump targets observe the
// address of the next instruction. A fault transitions the machine to
// Faulted and is returned; Halt transitions to Halted with a nil error.
func (c *CPU) Step() error {
	if c.State != Running {
		if c.State == Faulted {
			return c.Fault
		}
		return nil
	}

	at := c.Regs[IP]
	end := int(at) + 5
	if end > len(c.Memory) {
		end = len(c.Memory)
	}
	instr, size, err := Decode(c.Memory[at:end], int(at))
	if err != nil {
		return c.fault(FaultInvalidOpcode, at)
	}
	c.Regs[IP] = at + uint16(size)
	c.Steps++

	return c.execute(instr, at)
}

func (c *CPU) execute(instr Instruction, at uint16) error {
	acc := c.Regs[Acc]

	jump := func(taken bool) {
		if taken {
			c.Regs[IP] = instr.Addr
		}
	}

	switch instr.Op {
	case OpMovLitReg:
		c.Regs[instr.R1] = instr.Imm
	case OpMovRegReg:
		c.Regs[instr.R1] = c.Regs[instr.R2]
	case OpMovRegMem:
		if instr.Addr >= StackEnd {
			return c.fault(FaultOutOfBoundsAddress, at)
		}
		c.Write16(instr.Addr, c.Regs[instr.R1])
	case OpMovMemReg:
		if instr.Addr >= StackEnd {
			return c.fault(FaultOutOfBoundsAddress, at)
		}
		c.Regs[instr.R1] = c.Read16(instr.Addr)
	case OpMovLitMem:
		if instr.Addr >= StackEnd {
			return c.fault(FaultOutOfBoundsAddress, at)
		}
		c.Write16(instr.Addr, instr.Imm)
	case OpMovRegPtrReg:
		addr := c.Regs[instr.R1]
		if addr >= StackEnd {
			return c.fault(FaultOutOfBoundsAddress, at)
		}
		c.Write16(addr, c.Regs[instr.R2])
	case OpMovLitRegPtr:
		addr := c.Regs[instr.R1]
		if addr >= StackEnd {
			return c.fault(FaultOutOfBoundsAddress, at)
		}
		c.Write16(addr, instr.Imm)

	case OpAddRegReg:
		c.Regs[instr.R1] += c.Regs[instr.R2]
	case OpAddLitReg:
		c.Regs[instr.R1] += instr.Imm
	case OpSubRegReg:
		c.Regs[instr.R1] -= c.Regs[instr.R2]
	case OpSubLitReg:
		c.Regs[instr.R1] -= instr.Imm
	case OpMulRegReg:
		c.Regs[instr.R1] *= c.Regs[instr.R2]
	case OpMulLitReg:
		c.Regs[instr.R1] *= instr.Imm
	case OpIncReg:
		c.Regs[instr.R1]++
	case OpDecReg:
		c.Regs[instr.R1]--

	case OpLshRegReg:
		c.Regs[instr.R1] <<= c.Regs[instr.R2]
	case OpLshLitReg:
		c.Regs[instr.R1] <<= instr.Imm
	case OpRshRegReg:
		c.Regs[instr.R1] >>= c.Regs[instr.R2]
	case OpRshLitReg:
		c.Regs[instr.R1] >>= instr.Imm
	case OpAndRegReg:
		c.Regs[instr.R1] &= c.Regs[instr.R2]
	case OpAndLitReg:
		c.Regs[instr.R1] &= instr.Imm
	case OpOrRegReg:
		c.Regs[instr.R1] |= c.Regs[instr.R2]
	case OpOrLitReg:
		c.Regs[instr.R1] |= instr.Imm
	case OpXorRegReg:
		c.Regs[instr.R1] ^= c.Regs[instr.R2]
	case OpXorLitReg:
		c.Regs[instr.R1] ^= instr.Imm
	case OpNot:
		c.Regs[instr.R1] = ^c.Regs[instr.R1]

	case OpJeqLit:
		jump(instr.Imm == acc)
	case OpJeqReg:
		jump(c.Regs[instr.R1] == acc)
	case OpJgtLit:
		jump(instr.Imm > acc)
	case OpJgtReg:
		jump(c.Regs[instr.R1] > acc)
	case OpJneLit:
		jump(instr.Imm != acc)
	case OpJneReg:
		jump(c.Regs[instr.R1] != acc)
	case OpJgeLit:
		jump(instr.Imm >= acc)
	case OpJgeReg:
		jump(c.Regs[instr.R1] >= acc)
	case OpJleLit:
		jump(instr.Imm <= acc)
	case OpJleReg:
		jump(c.Regs[instr.R1] <= acc)
	case OpJltLit:
		jump(instr.Imm < acc)
	case OpJltReg:
		jump(c.Regs[instr.R1] < acc)
	case OpJmp:
		c.Regs[IP] = instr.Imm

	case OpPushReg:
		return c.push(c.Regs[instr.R1], at)
	case OpPushLit:
		return c.push(instr.Imm, at)
	case OpPop:
		val, err := c.pop(at)
		if err != nil {
			return err
		}
		c.Regs[instr.R1] = val
	case OpCall:
		if err := c.push(c.Regs[IP], at); err != nil {
			return err
		}
		c.Regs[IP] = instr.Imm
	case OpRet:
		ret, err := c.pop(at)
		if err != nil {
			return err
		}
		c.Regs[IP] = ret

	case OpHalt:
		c.State = Halted

	default:
		return c.fault(FaultInvalidOpcode, at)
	}

	return nil
}

// Run steps the machine until it halts, faults, or maxSteps elapse.
// maxSteps <= 0 means no limit.
func (c *CPU) Run(maxSteps int) error {
	for steps := 0; c.State == Running; steps++ {
		if maxSteps > 0 && steps >= maxSteps {
			return nil
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}
