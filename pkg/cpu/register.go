package cpu

import "fmt"

// Register identifies one of the machine's 16-bit registers by its
// encoding index. ACC doubles as the return-value register and IP is
// the instruction pointer; both are addressable like any other register.
type Register byte

const (
	Acc Register = 0
	IP  Register = 1
	R1  Register = 2
	R2  Register = 3
	R3  Register = 4
	R4  Register = 5
	R5  Register = 6
	R6  Register = 7
	R7  Register = 8
	R8  Register = 9
	SP  Register = 10
	FP  Register = 11
)

// NumRegisters is the size of the register file.
const NumRegisters = 12

var registerNames = [NumRegisters]string{
	"ACC", "IP", "R1", "R2", "R3", "R4", "R5", "R6", "R7", "R8", "SP", "FP",
}

func (r Register) String() string {
	if int(r) < len(registerNames) {
		return registerNames[r]
	}
	return fmt.Sprintf("R?%d", byte(r))
}

// Valid reports whether r names an actual register.
func (r Register) Valid() bool {
	return r < NumRegisters
}

// RegisterFromIndex converts an operand byte into a Register.
func RegisterFromIndex(idx byte) (Register, error) {
	r := Register(idx)
	if !r.Valid() {
		return 0, fmt.Errorf("value 0x%02X is not a valid register index", idx)
	}
	return r, nil
}

// ParseRegister maps a register name, in either case, to its Register.
func ParseRegister(name string) (Register, error) {
	switch name {
	case "acc", "ACC":
		return Acc, nil
	case "ip", "IP":
		return IP, nil
	case "r1", "R1":
		return R1, nil
	case "r2", "R2":
		return R2, nil
	case "r3", "R3":
		return R3, nil
	case "r4", "R4":
		return R4, nil
	case "r5", "R5":
		return R5, nil
	case "r6", "R6":
		return R6, nil
	case "r7", "R7":
		return R7, nil
	case "r8", "R8":
		return R8, nil
	case "sp", "SP":
		return SP, nil
	case "fp", "FP":
		return FP, nil
	}
	return 0, fmt.Errorf("%q is not a valid register name", name)
}
