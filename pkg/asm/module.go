package asm

import "fmt"

// Mnemonic is a surface instruction name; the assembler picks the
// concrete opcode from the operand kinds after expansion.
type Mnemonic int

const (
	MnMov Mnemonic = iota
	MnAdd
	MnSub
	MnMul
	MnLsh
	MnRsh
	MnAnd
	MnOr
	MnXor
	MnNot
	MnInc
	MnDec
	MnPsh
	MnPop
	MnCall
	MnRet
	MnJeq
	MnJgt
	MnJne
	MnJge
	MnJle
	MnJlt
	MnJmp
	MnHlt
)

var mnemonicNames = map[Mnemonic]string{
	MnMov: "mov", MnAdd: "add", MnSub: "sub", MnMul: "mul",
	MnLsh: "lsh", MnRsh: "rsh", MnAnd: "and", MnOr: "or", MnXor: "xor",
	MnNot: "not", MnInc: "inc", MnDec: "dec",
	MnPsh: "psh", MnPop: "pop", MnCall: "call", MnRet: "ret",
	MnJeq: "jeq", MnJgt: "jgt", MnJne: "jne", MnJge: "jge",
	MnJle: "jle", MnJlt: "jlt", MnJmp: "jmp", MnHlt: "hlt",
}

func (m Mnemonic) String() string {
	if name, ok := mnemonicNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mnemonic(%d)", int(m))
}

// Statement is one item of a module body.
type Statement interface{ statement() }

// Instr is an instruction statement with up to two operands. For the
// conditional jumps Dst is the target and Src the compared operand.
type Instr struct {
	Mn  Mnemonic
	Dst Operand
	Src Operand
}

// Label marks a code position; its resolved address enters the module
// symbol table, and the export table when Exported.
type Label struct {
	Name     string
	Exported bool
}

// DataBlock emits raw values inline in the code image. Size is the
// element width in bits, 8 or 16. The block's start address is bound to
// its name like a label.
type DataBlock struct {
	Name     string
	Size     int
	Values   []Operand
	Exported bool
}

// Constant binds a name to a compile-time value.
type Constant struct {
	Name     string
	Value    uint16
	Exported bool
}

func (Instr) statement()     {}
func (Label) statement()     {}
func (DataBlock) statement() {}
func (Constant) statement()  {}

// Binding is the value bound to an import alias: either an inline
// literal (Module empty) or a reference to another module's export.
type Binding struct {
	Value  uint16
	Module string
	Field  string
}

// Import declares a dependency on another module together with the
// binding block that names the values visible under local aliases.
type Import struct {
	Module   string
	Bindings map[string]Binding
}

// Module is one translation unit: an ordered statement list plus its
// imports. Base and the symbol tables are filled in by Assemble.
type Module struct {
	Name       string
	Statements []Statement
	Imports    []Import

	// Base is the absolute load address assigned by the linker.
	Base uint16

	symbols map[string]uint16
	exports map[string]uint16
}

// Exports returns the module's exported symbol table after assembly.
func (m *Module) Exports() map[string]uint16 {
	return m.exports
}

func (m *Module) bind(name string, value uint16, exported bool) {
	m.symbols[name] = value
	if exported {
		m.exports[name] = value
	}
}

func (m *Module) lookup(name string) (uint16, bool) {
	v, ok := m.symbols[name]
	return v, ok
}
