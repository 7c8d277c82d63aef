// Package compiler implements the Translator: a recursive-descent
// walker whose productions parse the source grammar and emit VM code
// in the same pass, driven by a lexer, a symbol table, and a VM
// emitter.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/jacktrans/jackc/internal/jackerr"
	"github.com/jacktrans/jackc/internal/symtab"
	"github.com/jacktrans/jackc/internal/token"
	"github.com/jacktrans/jackc/internal/vmcode"
)

// TokenSource is the subset of *lexer.Lexer the translator needs; a
// narrow interface keeps the compiler package testable with a fake
// token stream.
type TokenSource interface {
	Advance() error
	Token() token.Token
}

// Compiler is the translator's per-file state: current class name, a
// per-instance label counter, and the two symbol-table scopes.
type Compiler struct {
	lex TokenSource
	sym *symtab.Table
	out *vmcode.Writer

	currentClass string
	labelCounter int
}

// New builds a Compiler around a lexeme source and a VM emitter. A
// fresh symbol table is created; it is not shared across files.
func New(lex TokenSource, out *vmcode.Writer) *Compiler {
	return &Compiler{lex: lex, sym: symtab.New(), out: out}
}

// Compile performs the priming advance and translates one class.
func (c *Compiler) Compile() error {
	if err := c.lex.Advance(); err != nil {
		return err
	}
	return c.compileClass()
}

func (c *Compiler) cur() token.Token { return c.lex.Token() }

func (c *Compiler) advance() error { return c.lex.Advance() }

func (c *Compiler) expect(terminal string) error {
	t := c.cur()
	if !t.Is(terminal) {
		return jackerr.New(jackerr.SyntaxError, t.Line, "expected %q, got %q", terminal, t.Text)
	}
	return c.advance()
}

func (c *Compiler) expectIdentifier() (string, error) {
	t := c.cur()
	if t.Type != token.Identifier {
		return "", jackerr.New(jackerr.SyntaxError, t.Line, "expected identifier, got %q", t.Text)
	}
	if err := c.advance(); err != nil {
		return "", err
	}
	return t.Text, nil
}

// expectType accepts one of int/char/boolean or a class identifier.
// No type checking is performed beyond this grammatical acceptance.
func (c *Compiler) expectType() (string, error) {
	t := c.cur()
	if t.Is("int", "char", "boolean") || t.Type == token.Identifier {
		if err := c.advance(); err != nil {
			return "", err
		}
		return t.Text, nil
	}
	return "", jackerr.New(jackerr.SyntaxError, t.Line, "expected a type, got %q", t.Text)
}

func (c *Compiler) freshLabelPair() (string, string) {
	k := c.labelCounter
	c.labelCounter++
	return fmt.Sprintf("L%d", 2*k), fmt.Sprintf("L%d", 2*k+1)
}

// Class and declarations

func (c *Compiler) compileClass() error {
	if err := c.expect("class"); err != nil {
		return err
	}
	c.sym.Reset(symtab.Class)

	name, err := c.expectIdentifier()
	if err != nil {
		return err
	}
	c.currentClass = name

	if err := c.expect("{"); err != nil {
		return err
	}
	for c.cur().Is("static", "field") {
		if err := c.compileClassVarDec(); err != nil {
			return err
		}
	}
	for c.cur().Is("constructor", "function", "method") {
		if err := c.compileSubroutineDec(); err != nil {
			return err
		}
	}
	return c.expect("}")
}

func (c *Compiler) compileClassVarDec() error {
	kind := token.STATIC
	if c.cur().Is("field") {
		kind = token.FIELD
	}
	if err := c.advance(); err != nil {
		return err
	}
	return c.compileVarSequence(symtab.Class, kind, ";")
}

// compileVarSequence parses "type name (, name)* terminator" and
// declares each name in scope with the given kind. Shared by
// classVarDec and varDec.
func (c *Compiler) compileVarSequence(scope symtab.Scope, kind token.Kind, terminator string) error {
	typ, err := c.expectType()
	if err != nil {
		return err
	}
	for {
		line := c.cur().Line
		name, err := c.expectIdentifier()
		if err != nil {
			return err
		}
		if err := c.sym.Define(scope, name, typ, kind, line); err != nil {
			return err
		}
		if c.cur().Is(",") {
			if err := c.advance(); err != nil {
				return err
			}
			continue
		}
		break
	}
	return c.expect(terminator)
}

func (c *Compiler) compileSubroutineDec() error {
	c.sym.Reset(symtab.Subroutine)

	subroutineType := c.cur().Text
	if err := c.advance(); err != nil {
		return err
	}

	if subroutineType == "method" {
		if err := c.sym.Define(symtab.Subroutine, "this", c.currentClass, token.ARG, c.cur().Line); err != nil {
			return err
		}
	}

	// void | type
	if c.cur().Is("void") {
		if err := c.advance(); err != nil {
			return err
		}
	} else if _, err := c.expectType(); err != nil {
		return err
	}

	name, err := c.expectIdentifier()
	if err != nil {
		return err
	}

	if err := c.expect("("); err != nil {
		return err
	}
	if !c.cur().Is(")") {
		if err := c.compileParameterList(); err != nil {
			return err
		}
	}
	if err := c.expect(")"); err != nil {
		return err
	}

	return c.compileSubroutineBody(name, subroutineType)
}

func (c *Compiler) compileParameterList() error {
	for {
		typ, err := c.expectType()
		if err != nil {
			return err
		}
		line := c.cur().Line
		name, err := c.expectIdentifier()
		if err != nil {
			return err
		}
		if err := c.sym.Define(symtab.Subroutine, name, typ, token.ARG, line); err != nil {
			return err
		}
		if c.cur().Is(",") {
			if err := c.advance(); err != nil {
				return err
			}
			continue
		}
		return nil
	}
}

// Subroutine prologue

func (c *Compiler) compileSubroutineBody(name, subroutineType string) error {
	if err := c.expect("{"); err != nil {
		return err
	}

	nLocals := 0
	for c.cur().Is("var") {
		n, err := c.compileVarDec()
		if err != nil {
			return err
		}
		nLocals += n
	}

	c.out.Function(c.currentClass+"."+name, nLocals)

	switch subroutineType {
	case "constructor":
		nFields := c.sym.Count(symtab.Class, token.FIELD)
		c.out.Push(vmcode.Constant, nFields)
		c.out.Call("Memory.alloc", 1)
		c.out.Pop(vmcode.Pointer, 0)
	case "method":
		c.out.Push(vmcode.Argument, 0)
		c.out.Pop(vmcode.Pointer, 0)
	}

	if err := c.compileStatements(); err != nil {
		return err
	}
	return c.expect("}")
}

func (c *Compiler) compileVarDec() (int, error) {
	if err := c.expect("var"); err != nil {
		return 0, err
	}
	before := map[token.Kind]int{token.LOCAL: c.sym.Count(symtab.Subroutine, token.LOCAL)}
	if err := c.compileVarSequence(symtab.Subroutine, token.LOCAL, ";"); err != nil {
		return 0, err
	}
	return c.sym.Count(symtab.Subroutine, token.LOCAL) - before[token.LOCAL], nil
}

// Statements

func (c *Compiler) compileStatements() error {
	for !c.cur().Is("}") {
		var err error
		switch {
		case c.cur().Is("let"):
			err = c.compileLet()
		case c.cur().Is("if"):
			err = c.compileIf()
		case c.cur().Is("while"):
			err = c.compileWhile()
		case c.cur().Is("do"):
			err = c.compileDo()
		case c.cur().Is("return"):
			err = c.compileReturn()
		default:
			t := c.cur()
			err = jackerr.New(jackerr.SyntaxError, t.Line, "unexpected token %q at start of statement", t.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileLet() error {
	if err := c.expect("let"); err != nil {
		return err
	}
	nameLine := c.cur().Line
	name, err := c.expectIdentifier()
	if err != nil {
		return err
	}

	isArray := false
	if c.cur().Is("[") {
		isArray = true
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.generateArrayElemPointer(name); err != nil {
			return err
		}
		if err := c.expect("]"); err != nil {
			return err
		}
	}

	if err := c.expect("="); err != nil {
		return err
	}
	if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.expect(";"); err != nil {
		return err
	}

	if isArray {
		// RHS value is on top of stack, and beneath it is the element
		// address computed by generateArrayElemPointer; detour
		// through temp 0 so THAT can be pointed at the destination
		// before the value is popped into it.
		c.out.Pop(vmcode.Temp, 0)
		c.out.Pop(vmcode.Pointer, 1)
		c.out.Push(vmcode.Temp, 0)
		c.out.Pop(vmcode.That, 0)
		return nil
	}

	entry, ok := c.sym.Resolve(name)
	if !ok {
		return jackerr.New(jackerr.Undefined, nameLine, "undefined variable %q", name)
	}
	c.out.Pop(vmcode.Segment(entry.Kind.SegmentName()), entry.Index)
	return nil
}

// generateArrayElemPointer compiles "push <base>; compile(index); add",
// leaving the element's address on top of the stack.
func (c *Compiler) generateArrayElemPointer(name string) error {
	entry, ok := c.sym.Resolve(name)
	if !ok {
		return jackerr.New(jackerr.Undefined, c.cur().Line, "undefined variable %q", name)
	}
	c.out.Push(vmcode.Segment(entry.Kind.SegmentName()), entry.Index)
	if err := c.compileExpression(); err != nil {
		return err
	}
	c.out.Arithmetic(vmcode.Add)
	return nil
}

func (c *Compiler) compileIf() error {
	if err := c.expect("if"); err != nil {
		return err
	}
	if err := c.expect("("); err != nil {
		return err
	}
	trueLabel, endLabel := c.freshLabelPair()

	if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.expect(")"); err != nil {
		return err
	}
	c.out.Arithmetic(vmcode.Not)
	c.out.IfGoto(trueLabel)

	if err := c.expect("{"); err != nil {
		return err
	}
	if err := c.compileStatements(); err != nil {
		return err
	}
	if err := c.expect("}"); err != nil {
		return err
	}

	c.out.Goto(endLabel)
	c.out.Label(trueLabel)

	if c.cur().Is("else") {
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.expect("{"); err != nil {
			return err
		}
		if err := c.compileStatements(); err != nil {
			return err
		}
		if err := c.expect("}"); err != nil {
			return err
		}
	}

	c.out.Label(endLabel)
	return nil
}

func (c *Compiler) compileWhile() error {
	if err := c.expect("while"); err != nil {
		return err
	}
	if err := c.expect("("); err != nil {
		return err
	}
	head, exit := c.freshLabelPair()
	c.out.Label(head)

	if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.expect(")"); err != nil {
		return err
	}
	c.out.Arithmetic(vmcode.Not)
	c.out.IfGoto(exit)

	if err := c.expect("{"); err != nil {
		return err
	}
	if err := c.compileStatements(); err != nil {
		return err
	}
	if err := c.expect("}"); err != nil {
		return err
	}

	c.out.Goto(head)
	c.out.Label(exit)
	return nil
}

func (c *Compiler) compileDo() error {
	if err := c.expect("do"); err != nil {
		return err
	}
	if err := c.compileSubroutineCall(""); err != nil {
		return err
	}
	// Every subroutine returns a value; discard it.
	c.out.Pop(vmcode.Temp, 0)
	return c.expect(";")
}

func (c *Compiler) compileReturn() error {
	if err := c.expect("return"); err != nil {
		return err
	}
	if c.cur().Is(";") {
		c.out.Push(vmcode.Constant, 0)
	} else if err := c.compileExpression(); err != nil {
		return err
	}
	c.out.Return()
	return c.expect(";")
}

// Expressions

func (c *Compiler) compileExpression() error {
	if err := c.compileTerm(); err != nil {
		return err
	}
	for isBinaryOp(c.cur()) {
		op := c.cur().Text
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.compileTerm(); err != nil {
			return err
		}
		c.emitBinaryOp(op)
	}
	return nil
}

func (c *Compiler) emitBinaryOp(op string) {
	switch op {
	case "+":
		c.out.Arithmetic(vmcode.Add)
	case "-":
		c.out.Arithmetic(vmcode.Sub)
	case "*":
		c.out.Call("Math.multiply", 2)
	case "/":
		c.out.Call("Math.divide", 2)
	case "&":
		c.out.Arithmetic(vmcode.And)
	case "|":
		c.out.Arithmetic(vmcode.Or)
	case "<":
		c.out.Arithmetic(vmcode.Lt)
	case ">":
		c.out.Arithmetic(vmcode.Gt)
	case "=":
		c.out.Arithmetic(vmcode.Eq)
	}
}

func isBinaryOp(t token.Token) bool {
	return t.Is("+", "-", "*", "/", "&", "|", "<", ">", "=")
}

func isUnaryOp(t token.Token) bool {
	return t.Is("-", "~")
}

func (c *Compiler) compileExpressionList() (int, error) {
	if c.cur().Is(")") {
		return 0, nil
	}
	n := 0
	for {
		if err := c.compileExpression(); err != nil {
			return n, err
		}
		n++
		if c.cur().Is(",") {
			if err := c.advance(); err != nil {
				return n, err
			}
			continue
		}
		return n, nil
	}
}

// Qualified calls

func (c *Compiler) compileSubroutineCall(name string) error {
	if name == "" {
		n, err := c.expectIdentifier()
		if err != nil {
			return err
		}
		name = n
	}

	switch {
	case c.cur().Is("."):
		if err := c.advance(); err != nil {
			return err
		}
		methodName, err := c.expectIdentifier()
		if err != nil {
			return err
		}

		nArgs := 0
		callee := name + "." + methodName
		if entry, ok := c.sym.Resolve(name); ok {
			nArgs = 1 // receiver
			c.out.Push(vmcode.Segment(entry.Kind.SegmentName()), entry.Index)
			callee = entry.Type + "." + methodName
		}

		if err := c.expect("("); err != nil {
			return err
		}
		n, err := c.compileExpressionList()
		if err != nil {
			return err
		}
		nArgs += n
		if err := c.expect(")"); err != nil {
			return err
		}
		c.out.Call(callee, nArgs)
		return nil

	case c.cur().Is("("):
		c.out.Push(vmcode.Pointer, 0)
		if err := c.advance(); err != nil {
			return err
		}
		n, err := c.compileExpressionList()
		if err != nil {
			return err
		}
		if err := c.expect(")"); err != nil {
			return err
		}
		c.out.Call(c.currentClass+"."+name, 1+n)
		return nil

	default:
		t := c.cur()
		return jackerr.New(jackerr.SyntaxError, t.Line, "expected %q or %q after %q, got %q", "(", ".", name, t.Text)
	}
}

// Terms

func (c *Compiler) compileTerm() error {
	t := c.cur()
	switch {
	case t.Type == token.IntConst:
		n, err := strconv.Atoi(t.Text)
		if err != nil {
			return jackerr.New(jackerr.LexError, t.Line, "invalid integer constant %q", t.Text)
		}
		c.out.Push(vmcode.Constant, n)
		return c.advance()

	case t.Type == token.StringConst:
		c.out.String(t.Text)
		return c.advance()

	case t.Type == token.Keyword:
		switch t.Text {
		case "true":
			c.out.Push(vmcode.Constant, 0)
			c.out.Arithmetic(vmcode.Not)
		case "false", "null":
			c.out.Push(vmcode.Constant, 0)
		case "this":
			c.out.Push(vmcode.Pointer, 0)
		default:
			return jackerr.New(jackerr.SyntaxError, t.Line, "unexpected keyword %q in term", t.Text)
		}
		return c.advance()

	case t.Is("("):
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.compileExpression(); err != nil {
			return err
		}
		return c.expect(")")

	case isUnaryOp(t):
		op := vmcode.Neg
		if t.Text == "~" {
			op = vmcode.Not
		}
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.compileTerm(); err != nil {
			return err
		}
		c.out.Arithmetic(op)
		return nil

	case t.Type == token.Identifier:
		return c.compileVarNameSubterm()

	default:
		return jackerr.New(jackerr.SyntaxError, t.Line, "unexpected token %q in term", t.Text)
	}
}

func (c *Compiler) compileVarNameSubterm() error {
	name := c.cur().Text
	if err := c.advance(); err != nil {
		return err
	}

	switch {
	case c.cur().Is("["):
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.generateArrayElemPointer(name); err != nil {
			return err
		}
		if err := c.expect("]"); err != nil {
			return err
		}
		c.out.Pop(vmcode.Pointer, 1)
		c.out.Push(vmcode.That, 0)
		return nil

	case c.cur().Is("(", "."):
		return c.compileSubroutineCall(name)

	default:
		entry, ok := c.sym.Resolve(name)
		if !ok {
			t := c.cur()
			return jackerr.New(jackerr.Undefined, t.Line, "undefined variable %q", name)
		}
		c.out.Push(vmcode.Segment(entry.Kind.SegmentName()), entry.Index)
		return nil
	}
}
