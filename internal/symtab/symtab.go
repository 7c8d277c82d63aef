// Package symtab implements the two-scope Symbol Table: a class-level
// scope holding STATIC/FIELD entries and a subroutine-level scope
// holding ARG/LOCAL entries, each with per-kind, contiguous, 0-based
// indices.
package symtab

import (
	"github.com/jacktrans/jackc/internal/jackerr"
	"github.com/jacktrans/jackc/internal/token"
)

// Scope selects which of the table's two maps an operation targets.
type Scope int

const (
	Class Scope = iota
	Subroutine
)

// Entry is one declared name's resolved (type, kind, index) triple.
type Entry struct {
	Type  string
	Kind  token.Kind
	Index int
}

// Table holds the class-scope and subroutine-scope entry maps plus
// their per-kind counters.
type Table struct {
	class           map[string]Entry
	subroutine      map[string]Entry
	classCount      map[token.Kind]int
	subroutineCount map[token.Kind]int
}

// New returns an empty table with both scopes cleared.
func New() *Table {
	t := &Table{}
	t.Reset(Class)
	t.Reset(Subroutine)
	return t
}

// Reset clears exactly one scope and zeroes that scope's per-kind
// counters; the other scope is untouched.
func (t *Table) Reset(scope Scope) {
	switch scope {
	case Class:
		t.class = make(map[string]Entry)
		t.classCount = make(map[token.Kind]int)
	case Subroutine:
		t.subroutine = make(map[string]Entry)
		t.subroutineCount = make(map[token.Kind]int)
	}
}

func (t *Table) tableAndCounts(scope Scope) (map[string]Entry, map[token.Kind]int) {
	if scope == Class {
		return t.class, t.classCount
	}
	return t.subroutine, t.subroutineCount
}

// Define inserts name into scope with the given type and kind. The
// index is assigned as the current count of kind within that scope,
// then the count is incremented. line is the source line of the
// declaration, carried on any resulting error.
func (t *Table) Define(scope Scope, name, typ string, kind token.Kind, line int) error {
	if kind == token.NONE {
		return jackerr.New(jackerr.SyntaxError, line, "invalid kind NONE for symbol %q", name)
	}
	tbl, counts := t.tableAndCounts(scope)
	if _, exists := tbl[name]; exists {
		return jackerr.New(jackerr.Duplicate, line, "name %q already declared in this scope", name)
	}
	idx := counts[kind]
	tbl[name] = Entry{Type: typ, Kind: kind, Index: idx}
	counts[kind] = idx + 1
	return nil
}

// Count returns the number of entries of kind declared in scope.
func (t *Table) Count(scope Scope, kind token.Kind) int {
	_, counts := t.tableAndCounts(scope)
	return counts[kind]
}

// Exists reports whether name is declared in either scope.
func (t *Table) Exists(name string) bool {
	_, ok := t.Resolve(name)
	return ok
}

// Resolve looks name up, subroutine scope first, then class scope,
// so a subroutine-scope declaration shadows a class-scope one of the
// same name.
func (t *Table) Resolve(name string) (Entry, bool) {
	if e, ok := t.subroutine[name]; ok {
		return e, true
	}
	if e, ok := t.class[name]; ok {
		return e, true
	}
	return Entry{}, false
}

// KindOf, TypeOf and IndexOf are pure lookups that fail with
// jackerr.Undefined if name is unknown in either scope.
func (t *Table) KindOf(name string) (token.Kind, error) {
	e, ok := t.Resolve(name)
	if !ok {
		return token.NONE, jackerr.New(jackerr.Undefined, 0, "undefined name %q", name)
	}
	return e.Kind, nil
}

func (t *Table) TypeOf(name string) (string, error) {
	e, ok := t.Resolve(name)
	if !ok {
		return "", jackerr.New(jackerr.Undefined, 0, "undefined name %q", name)
	}
	return e.Type, nil
}

func (t *Table) IndexOf(name string) (int, error) {
	e, ok := t.Resolve(name)
	if !ok {
		return 0, jackerr.New(jackerr.Undefined, 0, "undefined name %q", name)
	}
	return e.Index, nil
}
