package compiler

import (
	"strconv"

	"github.com/mna/loxvm/lang/scanner"
	"github.com/mna/loxvm/lang/token"
)

const (
	maxLocals    = 256 // locals are addressed by a single byte
	maxUpvalues  = 256
	maxConstants = 256
)

// local is a declared local variable slot, tracked for compile-time name
// resolution (spec section 4.2, "Lexical bookkeeping per compiler").
type local struct {
	name       string
	depth      int // -1 means declared but not yet defined
	isCaptured bool
}

// funcCompiler holds the compile-time state for one function body being
// compiled; funcCompilers nest one per enclosing function, mirroring the
// call stack of functions being compiled (spec section 4.2).
type funcCompiler struct {
	enclosing *funcCompiler

	proto      *Prototype
	fnType     FuncType
	locals     []local
	upvalues   []UpvalueInfo
	scopeDepth int
}

func newFuncCompiler(enclosing *funcCompiler, fnType FuncType, name string) *funcCompiler {
	fc := &funcCompiler{
		enclosing: enclosing,
		fnType:    fnType,
		proto:     &Prototype{Name: name, Type: fnType},
	}
	// Slot 0 is reserved: for methods and initializers it is bound to the
	// receiver ("this"); for plain functions and the top-level script it is
	// unnamed.
	slot0 := local{depth: 0}
	if fnType == FuncMethod || fnType == FuncInitializer {
		slot0.name = "this"
	}
	fc.locals = append(fc.locals, slot0)
	return fc
}

// classCompiler tracks whether the compiler is currently inside a class
// body and whether that class has a superclass, to validate "this"/"super"
// legality (spec section 4.2, "this / super legality").
type classCompiler struct {
	enclosing     *classCompiler
	hasSuperclass bool
}

// Compiler is a single-pass Pratt parser and bytecode emitter: it consumes
// tokens from a Scanner and emits instructions directly into the current
// function's Prototype as it parses (spec section 4.2).
type Compiler struct {
	sc scanner.Scanner

	previous token.Token
	current  token.Token

	panicMode bool
	errs      ErrorList

	fc *funcCompiler
	cc *classCompiler
}

// Compile compiles a complete Lox source string into a top-level script
// Prototype. It returns a non-nil error (an ErrorList) iff any compile
// error occurred, in which case the returned Prototype is nil (spec
// section 4.2, "Error recovery").
func Compile(source string) (*Prototype, error) {
	c := &Compiler{}
	c.sc.Init(source)
	c.fc = newFuncCompiler(nil, FuncScript, "")

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}

	fn := c.endFunction()
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	return fn, nil
}

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.sc.Next()
		if c.current.Kind != token.ILLEGAL {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(k token.Kind) bool { return c.current.Kind == k }

func (c *Compiler) match(k token.Kind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(k token.Kind, msg string) {
	if c.current.Kind == k {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) errorAtPrevious(msg string) { c.errorAt(c.previous, msg) }

func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.errs.add(tok.Line, "%s", atSuffix(tok, msg))
}

func atSuffix(tok token.Token, msg string) string {
	switch tok.Kind {
	case token.EOF:
		return msg + " at end"
	case token.ILLEGAL:
		return msg
	default:
		return msg + " at '" + tok.Lexeme + "'"
	}
}

// synchronize discards tokens until a likely statement boundary, so that a
// single syntax error does not cascade into a flood of spurious ones (spec
// section 4.2, "Error recovery").
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != token.EOF {
		if c.previous.Kind == token.SEMI {
			return
		}
		switch c.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- emission helpers, all attributed to the line of the just-consumed token ---

func (c *Compiler) emitOp(op Opcode) int { return c.fc.proto.writeOp(op, c.previous.Line) }

func (c *Compiler) emitOpByte(op Opcode, operand byte) int {
	return c.fc.proto.writeOpByte(op, operand, c.previous.Line)
}

func (c *Compiler) emitJump(op Opcode) int { return c.fc.proto.writeJump(op, c.previous.Line) }

func (c *Compiler) patchJump(offset int) {
	if err := c.fc.proto.patchJump(offset); err != nil {
		c.errorAtPrevious(err.Error())
	}
}

func (c *Compiler) emitLoop(loopStart int) {
	if err := c.fc.proto.writeLoop(loopStart, c.previous.Line); err != nil {
		c.errorAtPrevious(err.Error())
	}
}

func (c *Compiler) emitReturn() {
	if c.fc.fnType == FuncInitializer {
		c.emitOpByte(GET_LOCAL, 0)
	} else {
		c.emitOp(NIL)
	}
	c.emitOp(RETURN)
}

func (c *Compiler) makeConstant(v any) byte {
	idx, ok := c.fc.proto.addConstant(v)
	if !ok {
		c.errorAtPrevious("Too many constants in one chunk.")
		return 0
	}
	return idx
}

func (c *Compiler) emitConstant(v any) { c.emitOpByte(CONSTANT, c.makeConstant(v)) }

// endFunction finalizes the current funcCompiler's Prototype and pops back
// to the enclosing one.
func (c *Compiler) endFunction() *Prototype {
	c.emitReturn()
	fn := c.fc.proto
	fn.UpvalueCount = len(c.fc.upvalues)
	fn.Upvalues = c.fc.upvalues
	locals := make([]LocalInfo, len(c.fc.locals))
	for i, l := range c.fc.locals {
		locals[i] = LocalInfo{Name: l.name}
	}
	fn.Locals = locals

	c.fc = c.fc.enclosing
	return fn
}

// --- scopes ---

func (c *Compiler) beginScope() { c.fc.scopeDepth++ }

func (c *Compiler) endScope() {
	c.fc.scopeDepth--

	popCount := 0
	flush := func() {
		switch popCount {
		case 0:
		case 1:
			c.emitOp(POP)
		default:
			c.emitOpByte(POPN, byte(popCount))
		}
		popCount = 0
	}

	locals := c.fc.locals
	for len(locals) > 0 && locals[len(locals)-1].depth > c.fc.scopeDepth {
		last := locals[len(locals)-1]
		if last.isCaptured {
			flush()
			c.emitOp(CLOSE_UPVALUE)
		} else {
			popCount++
		}
		locals = locals[:len(locals)-1]
	}
	flush()
	c.fc.locals = locals
}

// --- name resolution ---

func (c *Compiler) identifierConstant(name string) byte { return c.makeConstant(name) }

func (c *Compiler) resolveLocal(fc *funcCompiler, name string) int {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			if fc.locals[i].depth == -1 {
				c.errorAtPrevious("Can't read local variable in its own initialiser.")
			}
			return i
		}
	}
	return -1
}

func (c *Compiler) resolveUpvalue(fc *funcCompiler, name string) int {
	if fc.enclosing == nil {
		return -1
	}
	if local := c.resolveLocal(fc.enclosing, name); local != -1 {
		fc.enclosing.locals[local].isCaptured = true
		return c.addUpvalue(fc, byte(local), true)
	}
	if up := c.resolveUpvalue(fc.enclosing, name); up != -1 {
		return c.addUpvalue(fc, byte(up), false)
	}
	return -1
}

func (c *Compiler) addUpvalue(fc *funcCompiler, index byte, isLocal bool) int {
	for i, up := range fc.upvalues {
		if up.Index == index && up.IsLocal == isLocal {
			return i
		}
	}
	if len(fc.upvalues) >= maxUpvalues {
		c.errorAtPrevious("Too many closure variables in function.")
		return 0
	}
	fc.upvalues = append(fc.upvalues, UpvalueInfo{Index: index, IsLocal: isLocal})
	return len(fc.upvalues) - 1
}

func (c *Compiler) declareVariable(name string) {
	if c.fc.scopeDepth == 0 {
		return // globals are resolved by name at runtime
	}
	for i := len(c.fc.locals) - 1; i >= 0; i-- {
		l := c.fc.locals[i]
		if l.depth != -1 && l.depth < c.fc.scopeDepth {
			break
		}
		if l.name == name {
			c.errorAtPrevious("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name string) {
	if len(c.fc.locals) >= maxLocals {
		c.errorAtPrevious("Too many local variables in function.")
		return
	}
	c.fc.locals = append(c.fc.locals, local{name: name, depth: -1})
}

func (c *Compiler) markInitialized() {
	if c.fc.scopeDepth == 0 {
		return
	}
	c.fc.locals[len(c.fc.locals)-1].depth = c.fc.scopeDepth
}

// parseVariable consumes an identifier, declares it, and returns the
// constant-pool index to use for DEFINE_GLOBAL if it turns out to be a
// global (0 and unused for locals).
func (c *Compiler) parseVariable(errMsg string) byte {
	c.consume(token.IDENT, errMsg)
	name := c.previous.Lexeme
	c.declareVariable(name)
	if c.fc.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(name)
}

func (c *Compiler) defineVariable(global byte) {
	if c.fc.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(DEFINE_GLOBAL, global)
}

// numberLiteral parses the previous NUMBER token's lexeme into a float64.
func numberLiteral(lexeme string) float64 {
	f, _ := strconv.ParseFloat(lexeme, 64)
	return f
}

// stringLiteral strips the surrounding quotes from a STRING token's lexeme,
// preserving every byte in between verbatim (spec section 4.1: no escape
// sequences).
func stringLiteral(lexeme string) string {
	return lexeme[1 : len(lexeme)-1]
}
