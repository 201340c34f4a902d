// Package asm turns operand-level parse trees of assembly modules into
// a linked, encoded code section: it folds and expands operand
// expressions, resolves symbols across module imports, lays modules out
// in the code region, and serializes instructions through the shared
// binary encoding in pkg/cpu.
package asm

import (
	"fmt"

	"aya/pkg/cpu"
)

// Operand is one instruction operand as produced by the surface parser.
// Literal, Reg, RegPtr, and Mem are primitive; Sym and the expression
// forms must be resolved or expanded before encoding.
type Operand interface {
	operand()
	String() string
}

// Literal is an immediate 16-bit constant ($1234).
type Literal uint16

// Reg is a register's value (r1).
type Reg cpu.Register

// RegPtr is memory at the address held by a register (&r1).
type RegPtr cpu.Register

// Mem is memory at a fixed address (&[$0100]).
type Mem uint16

// Sym is an unresolved reference to a constant, label, data block, or
// imported variable.
type Sym string

// BinOp is an arithmetic node in an operand expression.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
)

func (op BinOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	default:
		return "*"
	}
}

// Expr is a compound operand ([r2 + $0010]): a binary arithmetic tree
// whose value stands in for the operand. Only Add and Sub nodes may
// carry a register anywhere below them, and at most one register may
// appear in the whole tree.
type Expr struct {
	Op   BinOp
	L, R Operand
}

// AddrExpr is memory at a computed address (&[expr]). When the tree
// folds to a constant it degrades to a plain Mem operand; with a
// register it is only legal as a store destination.
type AddrExpr struct {
	Tree Operand
}

func (Literal) operand()  {}
func (Reg) operand()      {}
func (RegPtr) operand()   {}
func (Mem) operand()      {}
func (Sym) operand()      {}
func (Expr) operand()     {}
func (AddrExpr) operand() {}

func (l Literal) String() string  { return fmt.Sprintf("$%04X", uint16(l)) }
func (r Reg) String() string      { return cpu.Register(r).String() }
func (r RegPtr) String() string   { return "&" + cpu.Register(r).String() }
func (m Mem) String() string      { return fmt.Sprintf("&[$%04X]", uint16(m)) }
func (s Sym) String() string      { return "!" + string(s) }
func (e Expr) String() string     { return fmt.Sprintf("[%s %s %s]", e.L, e.Op, e.R) }
func (a AddrExpr) String() string { return fmt.Sprintf("&[%s]", a.Tree) }
