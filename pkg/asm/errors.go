package asm

import (
	"fmt"
	"strings"
)

// UnsupportedExpressionError rejects operand expressions outside the
// single-register add/sub form.
type UnsupportedExpressionError struct {
	Expr   string
	Detail string
}

func (e *UnsupportedExpressionError) Error() string {
	return fmt.Sprintf("unsupported expression %s: %s", e.Expr, e.Detail)
}

// UnresolvedSymbolError names a symbol that never bound after the full
// import graph was resolved.
type UnresolvedSymbolError struct {
	Module string
	Symbol string
}

func (e *UnresolvedSymbolError) Error() string {
	return fmt.Sprintf("unresolved symbol %q in module %q", e.Symbol, e.Module)
}

// CyclicImportError reports the modules left unordered by the
// topological sort of the import graph.
type CyclicImportError struct {
	Modules []string
}

func (e *CyclicImportError) Error() string {
	return fmt.Sprintf("cyclic import between modules: %s", strings.Join(e.Modules, ", "))
}

// SectionOverflowError reports a section that outgrew its region.
type SectionOverflowError struct {
	Section string
	Size    int
	Max     int
}

func (e *SectionOverflowError) Error() string {
	return fmt.Sprintf("%s section overflow: %d bytes exceed the %d byte maximum", e.Section, e.Size, e.Max)
}

// Diagnostic is one compile error with its module context.
type Diagnostic struct {
	Module string
	Err    error
}

func (d Diagnostic) Error() string {
	if d.Module == "" {
		return d.Err.Error()
	}
	return fmt.Sprintf("module %q: %s", d.Module, d.Err)
}

// DiagnosticList collects every compile error found before emission was
// abandoned. It unwraps to its first entry for errors.Is/As matching.
type DiagnosticList []Diagnostic

func (l DiagnosticList) Error() string {
	msgs := make([]string, len(l))
	for i, d := range l {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "; ")
}

func (l DiagnosticList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, d := range l {
		errs[i] = d.Err
	}
	return errs
}
