package compiler_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/jacktrans/jackc/internal/compiler"
	"github.com/jacktrans/jackc/internal/jackerr"
	"github.com/jacktrans/jackc/internal/lexer"
	"github.com/jacktrans/jackc/internal/vmcode"
)

func compile(t *testing.T, src string) []string {
	t.Helper()
	var buf bytes.Buffer
	lex := lexer.New(strings.NewReader(src))
	w := vmcode.New(&buf)
	c := compiler.New(lex, w)
	require.NoError(t, c.Compile())
	require.NoError(t, w.Flush())

	out := strings.TrimRight(buf.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func compileErr(t *testing.T, src string) error {
	t.Helper()
	var buf bytes.Buffer
	lex := lexer.New(strings.NewReader(src))
	w := vmcode.New(&buf)
	c := compiler.New(lex, w)
	return c.Compile()
}

func assertVM(t *testing.T, src string, want []string) {
	t.Helper()
	got := compile(t, src)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("VM output mismatch for:\n%s\n(-want +got):\n%s", src, diff)
	}
}

// Scenario 1: void function with bare return.
func TestVoidReturn(t *testing.T) {
	assertVM(t, `class Main { function void f() { return; } }`, []string{
		"function Main.f 0",
		"push constant 0",
		"return",
	})
}

// Scenario 2: a single binary operator; both operands are pushed, then the op.
func TestSingleBinaryOperatorExpression(t *testing.T) {
	assertVM(t, `class M { function int g() { return 1+2; } }`, []string{
		"function M.g 0",
		"push constant 1",
		"push constant 2",
		"add",
		"return",
	})
}

// Scenario 3: method assigning "this" to a field.
func TestMethodLetThis(t *testing.T) {
	assertVM(t, `class C { field int x; method void h() { let x = this; return; } }`, []string{
		"function C.h 0",
		"push argument 0",
		"pop pointer 0",
		"push pointer 0",
		"pop this 0",
		"push constant 0",
		"return",
	})
}

// Scenario 4: constructor allocating two fields.
func TestConstructorAllocatesFields(t *testing.T) {
	assertVM(t, `class C { field int a; field int b; constructor C new() { return this; } }`, []string{
		"function C.new 0",
		"push constant 2",
		"call Memory.alloc 1",
		"pop pointer 0",
		"push pointer 0",
		"return",
	})
}

// Scenario 5: if/else with label pairing.
func TestIfElseLabels(t *testing.T) {
	assertVM(t, `class M {
		function void f() {
			var boolean x;
			var int y;
			if (x) { let y = 1; } else { let y = 2; }
			return;
		}
	}`, []string{
		"function M.f 2",
		"push local 0",
		"not",
		"if-goto L0",
		"push constant 1",
		"pop local 1",
		"goto L1",
		"label L0",
		"push constant 2",
		"pop local 1",
		"label L1",
		"push constant 0",
		"return",
	})
}

// Scenario 6: do-statement discards its return value.
func TestDoDiscardsReturnValue(t *testing.T) {
	assertVM(t, `class M { function void f() { do Output.printInt(5); return; } }`, []string{
		"function M.f 0",
		"push constant 5",
		"call Output.printInt 1",
		"pop temp 0",
		"push constant 0",
		"return",
	})
}

func TestMethodWithNoArgsStillPassesReceiver(t *testing.T) {
	assertVM(t, `class Square {
		method void dispose() {
			do Memory.deAlloc(this);
			return;
		}
	}`, []string{
		"function Square.dispose 0",
		"push argument 0",
		"pop pointer 0",
		"push pointer 0",
		"call Memory.deAlloc 1",
		"pop temp 0",
		"push constant 0",
		"return",
	})
}

func TestConstructorWithZeroFields(t *testing.T) {
	assertVM(t, `class Empty { constructor Empty new() { return this; } }`, []string{
		"function Empty.new 0",
		"push constant 0",
		"call Memory.alloc 1",
		"pop pointer 0",
		"push pointer 0",
		"return",
	})
}

func TestEmptyStringLiteralEmitsNoAppendChar(t *testing.T) {
	assertVM(t, `class M { function void f() { do Output.printString(""); return; } }`, []string{
		"function M.f 0",
		"push constant 0",
		"call String.new 1",
		"call Output.printString 1",
		"pop temp 0",
		"push constant 0",
		"return",
	})
}

func TestNestedIfInsideWhileInsideIfLabelsAreUnique(t *testing.T) {
	out := compile(t, `class M {
		function void f() {
			var boolean a, b, c;
			if (a) {
				while (b) {
					if (c) {
						let a = false;
					}
				}
			}
			return;
		}
	}`)
	labels := map[string]int{}
	for _, line := range out {
		if strings.HasPrefix(line, "label ") {
			labels[strings.TrimPrefix(line, "label ")]++
		}
	}
	require.Len(t, labels, 6) // 3 constructs * 2 labels each
	for name, count := range labels {
		require.Equalf(t, 1, count, "label %q emitted more than once", name)
	}
}

func TestLetArrayRHSArrayReadFinishesBeforeLHSPop(t *testing.T) {
	// let a[expr1] = a[expr2]; the RHS array read must fully resolve
	// (including its own pointer 1 detour) before the LHS's pop
	// sequence begins.
	assertVM(t, `class M {
		function void f() {
			var Array a;
			let a[0] = a[1];
			return;
		}
	}`, []string{
		"function M.f 1",
		"push local 0",
		"push constant 0",
		"add",
		"push local 0",
		"push constant 1",
		"add",
		"pop pointer 1",
		"push that 0",
		"pop temp 0",
		"pop pointer 1",
		"push temp 0",
		"pop that 0",
		"push constant 0",
		"return",
	})
}

func TestUndefinedVariableIsFatal(t *testing.T) {
	err := compileErr(t, `class M { function void f() { let y = 1; return; } }`)
	require.Error(t, err)
	require.True(t, jackerr.Is(err, jackerr.Undefined))
}

func TestDuplicateDeclarationIsFatal(t *testing.T) {
	err := compileErr(t, `class M { field int x; field int x; function void f() { return; } }`)
	require.Error(t, err)
	require.True(t, jackerr.Is(err, jackerr.Duplicate))
}

func TestStructuralViolationIsFatal(t *testing.T) {
	err := compileErr(t, `class M { function void f() let x = 1; } }`)
	require.Error(t, err)
	require.True(t, jackerr.Is(err, jackerr.SyntaxError))
}

func TestQualifiedCallOnLocalVariableUsesItsStaticType(t *testing.T) {
	assertVM(t, `class M {
		function void f() {
			var Square s;
			do s.dispose();
			return;
		}
	}`, []string{
		"function M.f 1",
		"push local 0",
		"call Square.dispose 1",
		"pop temp 0",
		"push constant 0",
		"return",
	})
}

func TestKeywordConstants(t *testing.T) {
	assertVM(t, `class M {
		function boolean f() {
			if (true) { return false; }
			return null;
		}
	}`, []string{
		"function M.f 0",
		"push constant 0",
		"not",
		"not",
		"if-goto L0",
		"push constant 0",
		"return",
		"goto L1",
		"label L0",
		"label L1",
		"push constant 0",
		"return",
	})
}
