package asm

import (
	"fmt"

	"aya/pkg/cpu"
)

// operand kind after expansion: every operand is register, register
// indirect, memory address, literal-valued, or absent.
type opKind int

const (
	kNone opKind = iota
	kReg
	kRegPtr
	kMem
	kLit
)

func kindOf(op Operand) (opKind, error) {
	switch v := op.(type) {
	case nil:
		return kNone, nil
	case Reg:
		return kReg, nil
	case RegPtr:
		return kRegPtr, nil
	case Mem:
		return kMem, nil
	case Literal, Sym:
		return kLit, nil
	case Expr:
		if hasRegister(v) {
			return 0, fmt.Errorf("expression %s reached encoding unexpanded", v)
		}
		return kLit, nil
	case AddrExpr:
		if hasRegister(v) {
			return 0, fmt.Errorf("expression %s reached encoding unexpanded", v)
		}
		return kMem, nil
	default:
		return 0, fmt.Errorf("unknown operand %T", op)
	}
}

// binOpcodes maps the two-operand arithmetic mnemonics to their
// register/register and literal/register encodings.
var binOpcodes = map[Mnemonic][2]cpu.OpCode{
	MnAdd: {cpu.OpAddRegReg, cpu.OpAddLitReg},
	MnSub: {cpu.OpSubRegReg, cpu.OpSubLitReg},
	MnMul: {cpu.OpMulRegReg, cpu.OpMulLitReg},
	MnLsh: {cpu.OpLshRegReg, cpu.OpLshLitReg},
	MnRsh: {cpu.OpRshRegReg, cpu.OpRshLitReg},
	MnAnd: {cpu.OpAndRegReg, cpu.OpAndLitReg},
	MnOr:  {cpu.OpOrRegReg, cpu.OpOrLitReg},
	MnXor: {cpu.OpXorRegReg, cpu.OpXorLitReg},
}

var singleRegOpcodes = map[Mnemonic]cpu.OpCode{
	MnNot: cpu.OpNot,
	MnInc: cpu.OpIncReg,
	MnDec: cpu.OpDecReg,
	MnPop: cpu.OpPop,
}

var jumpOpcodes = map[Mnemonic][2]cpu.OpCode{
	MnJeq: {cpu.OpJeqReg, cpu.OpJeqLit},
	MnJgt: {cpu.OpJgtReg, cpu.OpJgtLit},
	MnJne: {cpu.OpJneReg, cpu.OpJneLit},
	MnJge: {cpu.OpJgeReg, cpu.OpJgeLit},
	MnJle: {cpu.OpJleReg, cpu.OpJleLit},
	MnJlt: {cpu.OpJltReg, cpu.OpJltLit},
}

// opcodeFor selects the concrete opcode from the mnemonic and operand
// kinds. Selection never needs operand values, so instruction sizes are
// known before any symbol resolves.
func opcodeFor(in Instr) (cpu.OpCode, error) {
	dk, err := kindOf(in.Dst)
	if err != nil {
		return 0, err
	}
	sk, err := kindOf(in.Src)
	if err != nil {
		return 0, err
	}

	bad := func() (cpu.OpCode, error) {
		return 0, fmt.Errorf("invalid operands for %s: %v, %v", in.Mn, in.Dst, in.Src)
	}

	switch in.Mn {
	case MnMov:
		switch {
		case dk == kReg && sk == kLit:
			return cpu.OpMovLitReg, nil
		case dk == kReg && sk == kReg:
			return cpu.OpMovRegReg, nil
		case dk == kMem && sk == kReg:
			return cpu.OpMovRegMem, nil
		case dk == kReg && sk == kMem:
			return cpu.OpMovMemReg, nil
		case dk == kMem && sk == kLit:
			return cpu.OpMovLitMem, nil
		case dk == kRegPtr && sk == kReg:
			return cpu.OpMovRegPtrReg, nil
		case dk == kRegPtr && sk == kLit:
			return cpu.OpMovLitRegPtr, nil
		}
		return bad()

	case MnAdd, MnSub, MnMul, MnLsh, MnRsh, MnAnd, MnOr, MnXor:
		ops := binOpcodes[in.Mn]
		switch {
		case dk == kReg && sk == kReg:
			return ops[0], nil
		case dk == kReg && (sk == kLit || sk == kMem):
			return ops[1], nil
		}
		return bad()

	case MnNot, MnInc, MnDec, MnPop:
		if dk == kReg && sk == kNone {
			return singleRegOpcodes[in.Mn], nil
		}
		return bad()

	case MnPsh:
		switch {
		case dk == kReg && sk == kNone:
			return cpu.OpPushReg, nil
		case (dk == kLit || dk == kMem) && sk == kNone:
			return cpu.OpPushLit, nil
		}
		return bad()

	case MnCall:
		if (dk == kLit || dk == kMem) && sk == kNone {
			return cpu.OpCall, nil
		}
		return bad()

	case MnJmp:
		if (dk == kLit || dk == kMem) && sk == kNone {
			return cpu.OpJmp, nil
		}
		return bad()

	case MnJeq, MnJgt, MnJne, MnJge, MnJle, MnJlt:
		if dk != kLit && dk != kMem {
			return bad()
		}
		ops := jumpOpcodes[in.Mn]
		switch sk {
		case kReg:
			return ops[0], nil
		case kLit, kMem:
			return ops[1], nil
		}
		return bad()

	case MnRet:
		if dk == kNone && sk == kNone {
			return cpu.OpRet, nil
		}
		return bad()

	case MnHlt:
		if dk == kNone && sk == kNone {
			return cpu.OpHalt, nil
		}
		return bad()
	}

	return 0, fmt.Errorf("unknown mnemonic %v", in.Mn)
}

// statementSize is the encoded byte width of one statement.
func statementSize(st Statement) (int, error) {
	switch v := st.(type) {
	case Instr:
		op, err := opcodeFor(v)
		if err != nil {
			return 0, err
		}
		return op.Size(), nil
	case DataBlock:
		switch v.Size {
		case 8:
			return len(v.Values), nil
		case 16:
			return len(v.Values) * 2, nil
		default:
			return 0, fmt.Errorf("data block %q has element width %d, want 8 or 16", v.Name, v.Size)
		}
	default:
		return 0, nil
	}
}

// eval resolves an operand to its 16-bit value using the module's
// symbol table.
func (m *Module) eval(op Operand) (uint16, error) {
	val, ok := foldConst(op, m.lookup)
	if !ok {
		if name := firstUnresolved(op, m.lookup); name != "" {
			return 0, &UnresolvedSymbolError{Module: m.Name, Symbol: name}
		}
		return 0, fmt.Errorf("operand %v in module %q does not fold to a value", op, m.Name)
	}
	return val, nil
}

// firstUnresolved walks an operand tree and reports the first symbol
// the module cannot resolve, or "" when every leaf is known.
func firstUnresolved(op Operand, resolve func(string) (uint16, bool)) string {
	switch v := op.(type) {
	case Sym:
		if _, ok := resolve(string(v)); !ok {
			return string(v)
		}
	case Expr:
		if name := firstUnresolved(v.L, resolve); name != "" {
			return name
		}
		return firstUnresolved(v.R, resolve)
	case AddrExpr:
		return firstUnresolved(v.Tree, resolve)
	}
	return ""
}

// lower builds the encodable instruction from a fully resolved
// statement.
func (m *Module) lower(in Instr) (cpu.Instruction, error) {
	op, err := opcodeFor(in)
	if err != nil {
		return cpu.Instruction{}, err
	}

	shape, _ := op.Shape()
	instr := cpu.Instruction{Op: op}

	reg := func(o Operand) cpu.Register {
		switch v := o.(type) {
		case Reg:
			return cpu.Register(v)
		case RegPtr:
			return cpu.Register(v)
		}
		return 0
	}

	switch shape {
	case cpu.ShapeLitReg:
		instr.R1 = reg(in.Dst)
		if instr.Imm, err = m.eval(in.Src); err != nil {
			return cpu.Instruction{}, err
		}
	case cpu.ShapeMemReg:
		instr.R1 = reg(in.Dst)
		if instr.Addr, err = m.eval(in.Src); err != nil {
			return cpu.Instruction{}, err
		}
	case cpu.ShapeRegReg:
		instr.R1 = reg(in.Dst)
		instr.R2 = reg(in.Src)
	case cpu.ShapeRegMem:
		// Stores put the address in the destination slot; conditional
		// jumps put the target there. Either way it is the Addr field.
		if instr.Addr, err = m.eval(in.Dst); err != nil {
			return cpu.Instruction{}, err
		}
		instr.R1 = reg(in.Src)
	case cpu.ShapeLitMem:
		if instr.Addr, err = m.eval(in.Dst); err != nil {
			return cpu.Instruction{}, err
		}
		if instr.Imm, err = m.eval(in.Src); err != nil {
			return cpu.Instruction{}, err
		}
	case cpu.ShapeSingleReg:
		instr.R1 = reg(in.Dst)
	case cpu.ShapeSingleLit:
		if instr.Imm, err = m.eval(in.Dst); err != nil {
			return cpu.Instruction{}, err
		}
	case cpu.ShapeNoArgs:
	}

	return instr, nil
}

// Assemble expands, resolves, lays out, and encodes a set of modules
// into one flat code section image starting at the code region's load
// address. Compile errors are collected per module; any error prevents
// emission.
func Assemble(modules []*Module) ([]byte, error) {
	var diags DiagnosticList

	seen := make(map[string]bool, len(modules))
	for _, m := range modules {
		if seen[m.Name] {
			diags = append(diags, Diagnostic{
				Module: m.Name,
				Err:    fmt.Errorf("module name %q defined more than once", m.Name),
			})
		}
		seen[m.Name] = true
	}
	if len(diags) > 0 {
		return nil, diags
	}

	ordered, err := topoSort(modules)
	if err != nil {
		return nil, DiagnosticList{{Err: err}}
	}

	byName := make(map[string]*Module, len(ordered))
	for _, m := range ordered {
		byName[m.Name] = m
		m.symbols = make(map[string]uint16)
		m.exports = make(map[string]uint16)
	}

	// Expression expansion. Sizes are fixed per shape, so this settles
	// every instruction width before any address is assigned.
	for _, m := range ordered {
		expanded, err := expandStatements(m.Statements)
		if err != nil {
			diags = append(diags, Diagnostic{Module: m.Name, Err: err})
			continue
		}
		m.Statements = expanded
	}
	if len(diags) > 0 {
		return nil, diags
	}

	// Layout: walk modules in import order, assign base addresses as a
	// running offset, and bind label, data, and constant symbols.
	offset := cpu.CodeStart
	total := 0
	for _, m := range ordered {
		m.Base = offset
		for _, st := range m.Statements {
			switch v := st.(type) {
			case Label:
				m.bind(v.Name, offset, v.Exported)
			case Constant:
				m.bind(v.Name, v.Value, v.Exported)
			case DataBlock:
				m.bind(v.Name, offset, v.Exported)
			}
			size, err := statementSize(st)
			if err != nil {
				diags = append(diags, Diagnostic{Module: m.Name, Err: err})
				continue
			}
			offset += uint16(size)
			total += size
		}
	}
	if len(diags) > 0 {
		return nil, diags
	}
	if total > cpu.MaxCodeSize {
		return nil, DiagnosticList{{Err: &SectionOverflowError{
			Section: "code",
			Size:    total,
			Max:     cpu.MaxCodeSize,
		}}}
	}

	// Import binding, in topological order over complete export tables.
	for _, m := range ordered {
		if err := bindImports(m, byName); err != nil {
			diags = append(diags, Diagnostic{Module: m.Name, Err: err})
		}
	}
	if len(diags) > 0 {
		return nil, diags
	}

	// Encode.
	image := make([]byte, 0, total)
	for _, m := range ordered {
		for _, st := range m.Statements {
			switch v := st.(type) {
			case Instr:
				instr, err := m.lower(v)
				if err != nil {
					diags = append(diags, Diagnostic{Module: m.Name, Err: err})
					continue
				}
				encoded, err := instr.Encode()
				if err != nil {
					diags = append(diags, Diagnostic{Module: m.Name, Err: err})
					continue
				}
				image = append(image, encoded...)
			case DataBlock:
				for _, value := range v.Values {
					word, err := m.eval(value)
					if err != nil {
						diags = append(diags, Diagnostic{Module: m.Name, Err: err})
						continue
					}
					if v.Size == 8 {
						image = append(image, byte(word))
					} else {
						image = append(image, byte(word), byte(word>>8))
					}
				}
			}
		}
	}
	if len(diags) > 0 {
		return nil, diags
	}

	return image, nil
}
