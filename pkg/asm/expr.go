package asm

import (
	"fmt"

	"aya/pkg/cpu"
)

// hasRegister reports whether a register appears anywhere in the tree.
func hasRegister(op Operand) bool {
	switch v := op.(type) {
	case Reg, RegPtr:
		return true
	case Expr:
		return hasRegister(v.L) || hasRegister(v.R)
	case AddrExpr:
		return hasRegister(v.Tree)
	default:
		return false
	}
}

// signedTerm is a register-free subtree with the sign its position in
// the surrounding add/sub tree gives it.
type signedTerm struct {
	sign int
	op   Operand
}

// exprInfo is the flattened shape of a single-register add/sub tree:
// the register with its sign, and the constant terms in pre-order.
type exprInfo struct {
	reg     cpu.Register
	regSign int
	terms   []signedTerm
}

// analyze validates the register discipline of an expression tree and
// flattens it. A register under Mul, more than one register, or a
// register indirection inside an expression are all rejected.
func analyze(tree Operand, sign int, info *exprInfo) error {
	switch v := tree.(type) {
	case Reg:
		if info.regSign != 0 {
			return &UnsupportedExpressionError{
				Expr:   tree.String(),
				Detail: "more than one register in one expression",
			}
		}
		info.reg = cpu.Register(v)
		info.regSign = sign
		return nil
	case RegPtr:
		return &UnsupportedExpressionError{
			Expr:   tree.String(),
			Detail: "register indirection is not allowed inside an expression",
		}
	case Expr:
		if !hasRegister(v) {
			info.terms = append(info.terms, signedTerm{sign: sign, op: v})
			return nil
		}
		if v.Op == Mul {
			return &UnsupportedExpressionError{
				Expr:   v.String(),
				Detail: "register under multiplication",
			}
		}
		if err := analyze(v.L, sign, info); err != nil {
			return err
		}
		rsign := sign
		if v.Op == Sub {
			rsign = -sign
		}
		return analyze(v.R, rsign, info)
	case AddrExpr:
		if hasRegister(v) {
			return &UnsupportedExpressionError{
				Expr:   v.String(),
				Detail: "computed memory address inside an expression",
			}
		}
		info.terms = append(info.terms, signedTerm{sign: sign, op: v})
		return nil
	default:
		info.terms = append(info.terms, signedTerm{sign: sign, op: tree})
		return nil
	}
}

// foldConst evaluates a register-free tree with 16-bit wraparound.
// resolve maps symbol names to values; a symbol it cannot answer stops
// the fold.
func foldConst(op Operand, resolve func(string) (uint16, bool)) (uint16, bool) {
	switch v := op.(type) {
	case Literal:
		return uint16(v), true
	case Mem:
		return uint16(v), true
	case Sym:
		return resolve(string(v))
	case Expr:
		l, ok := foldConst(v.L, resolve)
		if !ok {
			return 0, false
		}
		r, ok := foldConst(v.R, resolve)
		if !ok {
			return 0, false
		}
		switch v.Op {
		case Add:
			return l + r, true
		case Sub:
			return l - r, true
		default:
			return l * r, true
		}
	case AddrExpr:
		return foldConst(v.Tree, resolve)
	default:
		return 0, false
	}
}

// scratchFor picks the scratch register for an expansion slot. The
// destination slot evaluates in ACC and the source slot in FP, unless
// the instruction's other explicit operand is already that register.
// The expression itself naming the scratch is harmless: the load into
// scratch then reads the register's own live value.
func scratchFor(def, alt cpu.Register, other Operand) cpu.Register {
	switch v := other.(type) {
	case Reg:
		if cpu.Register(v) == def {
			return alt
		}
	case RegPtr:
		if cpu.Register(v) == def {
			return alt
		}
	}
	return def
}

// expansion is the instruction sequence that stands in for one
// expression operand: save and load the scratch register, fold in the
// constant terms, and restore it after the carrying instruction ran.
type expansion struct {
	pre     []Statement
	post    []Statement
	operand Operand
}

// expandSlot rewrites one register-bearing expression into primitive
// instructions evaluating it in scratch.
func expandSlot(scratch cpu.Register, info exprInfo, indirect bool) expansion {
	var pre []Statement
	pre = append(pre, Instr{Mn: MnPsh, Dst: Reg(scratch)})

	if info.regSign > 0 {
		pre = append(pre, Instr{Mn: MnMov, Dst: Reg(scratch), Src: Reg(info.reg)})
		for _, t := range info.terms {
			mn := MnAdd
			if t.sign < 0 {
				mn = MnSub
			}
			pre = append(pre, Instr{Mn: mn, Dst: Reg(scratch), Src: t.op})
		}
	} else {
		// The register contributes negatively: accumulate the constant
		// part first, then subtract the register from it.
		terms := info.terms
		if len(terms) == 0 {
			terms = []signedTerm{{sign: 1, op: Literal(0)}}
		}
		first := terms[0]
		if first.sign > 0 {
			pre = append(pre, Instr{Mn: MnMov, Dst: Reg(scratch), Src: first.op})
		} else {
			pre = append(pre,
				Instr{Mn: MnMov, Dst: Reg(scratch), Src: Literal(0)},
				Instr{Mn: MnSub, Dst: Reg(scratch), Src: first.op},
			)
		}
		for _, t := range terms[1:] {
			mn := MnAdd
			if t.sign < 0 {
				mn = MnSub
			}
			pre = append(pre, Instr{Mn: mn, Dst: Reg(scratch), Src: t.op})
		}
		pre = append(pre, Instr{Mn: MnSub, Dst: Reg(scratch), Src: Reg(info.reg)})
	}

	var operand Operand = Reg(scratch)
	if indirect {
		operand = RegPtr(scratch)
	}

	return expansion{
		pre:     pre,
		post:    []Statement{Instr{Mn: MnPop, Dst: Reg(scratch)}},
		operand: operand,
	}
}

// expandInstr rewrites an instruction whose operands may be compound
// expressions into an equivalent primitive sequence. Register-free
// expressions pass through untouched and fold at encode time. When both
// operands expand, the destination always evaluates in ACC and the
// source in FP; a slot whose expression names the other slot's scratch
// evaluates first, while that register still holds its program value.
func expandInstr(in Instr) ([]Statement, error) {
	type slot struct {
		op       Operand
		needs    bool
		indirect bool
		info     exprInfo
	}

	prepare := func(op Operand, destination bool) (slot, error) {
		s := slot{op: op}
		switch v := op.(type) {
		case Expr:
			if !hasRegister(v) {
				return s, nil
			}
			if err := analyze(v, 1, &s.info); err != nil {
				return s, err
			}
			s.needs = true
		case AddrExpr:
			if !hasRegister(v) {
				return s, nil
			}
			if !destination {
				return s, &UnsupportedExpressionError{
					Expr:   v.String(),
					Detail: "computed memory address can only be a store destination",
				}
			}
			if err := analyze(v.Tree, 1, &s.info); err != nil {
				return s, err
			}
			s.needs = true
			s.indirect = true
		}
		return s, nil
	}

	dst, err := prepare(in.Dst, true)
	if err != nil {
		return nil, err
	}
	src, err := prepare(in.Src, false)
	if err != nil {
		return nil, err
	}

	if !dst.needs && !src.needs {
		return []Statement{in}, nil
	}

	var pre, post []Statement
	expand := func(s *slot, scratch cpu.Register) {
		exp := expandSlot(scratch, s.info, s.indirect)
		s.op = exp.operand
		pre = append(pre, exp.pre...)
		post = append(exp.post, post...)
	}

	switch {
	case dst.needs && src.needs:
		// Both slots expand; the fixed ACC/FP split keeps them apart.
		// A slot whose expression names the other slot's scratch must
		// evaluate first, while that register is still live.
		if src.info.reg == cpu.Acc && dst.info.reg == cpu.FP {
			return nil, &UnsupportedExpressionError{
				Expr:   fmt.Sprintf("%v, %v", in.Dst, in.Src),
				Detail: "each expression names the other's scratch register",
			}
		}
		if src.info.reg == cpu.Acc {
			expand(&src, cpu.FP)
			expand(&dst, cpu.Acc)
		} else {
			expand(&dst, cpu.Acc)
			expand(&src, cpu.FP)
		}
	case dst.needs:
		expand(&dst, scratchFor(cpu.Acc, cpu.FP, in.Src))
	default:
		expand(&src, scratchFor(cpu.FP, cpu.Acc, in.Dst))
	}

	out := make([]Statement, 0, len(pre)+1+len(post))
	out = append(out, pre...)
	out = append(out, Instr{Mn: in.Mn, Dst: dst.op, Src: src.op})
	out = append(out, post...)
	return out, nil
}

// expandStatements runs expression expansion over a module body.
func expandStatements(stmts []Statement) ([]Statement, error) {
	out := make([]Statement, 0, len(stmts))
	for _, st := range stmts {
		in, ok := st.(Instr)
		if !ok {
			out = append(out, st)
			continue
		}
		expanded, err := expandInstr(in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.Mn, err)
		}
		out = append(out, expanded...)
	}
	return out, nil
}
