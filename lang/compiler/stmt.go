package compiler

import "github.com/mna/loxvm/lang/token"

func (c *Compiler) declaration() {
	switch {
	case c.match(token.CLASS):
		c.classDeclaration()
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMI, "Expect ';' after value.")
	c.emitOp(PRINT)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMI, "Expect ';' after expression.")
	c.emitOp(POP)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(JUMP_IF_FALSE)
	c.emitOp(POP)
	c.statement()

	elseJump := c.emitJump(JUMP)
	c.patchJump(thenJump)
	c.emitOp(POP)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.fc.proto.Code)
	c.consume(token.LPAREN, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(JUMP_IF_FALSE)
	c.emitOp(POP)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(POP)
}

// forStatement desugars the C-style for loop into the equivalent while
// loop, with the increment clause appended just before the loop's back-edge
// (spec section 4.2, "for").
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "Expect '(' after 'for'.")

	switch {
	case c.match(token.SEMI):
		// no initializer
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.fc.proto.Code)
	exitJump := -1
	if !c.match(token.SEMI) {
		c.expression()
		c.consume(token.SEMI, "Expect ';' after loop condition.")
		exitJump = c.emitJump(JUMP_IF_FALSE)
		c.emitOp(POP) // condition
	}

	if !c.match(token.RPAREN) {
		bodyJump := c.emitJump(JUMP)
		incrementStart := len(c.fc.proto.Code)
		c.expression()
		c.emitOp(POP)
		c.consume(token.RPAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(POP) // condition
	}

	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.fc.fnType == FuncScript {
		c.errorAtPrevious("Can't return from top-level code.")
	}
	if c.match(token.SEMI) {
		c.emitReturn()
		return
	}
	if c.fc.fnType == FuncInitializer {
		c.errorAtPrevious("Can't return a value from an initialiser.")
	}
	c.expression()
	c.consume(token.SEMI, "Expect ';' after return value.")
	c.emitOp(RETURN)
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	if c.match(token.EQ) {
		c.expression()
	} else {
		c.emitOp(NIL)
	}
	c.consume(token.SEMI, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(FuncFunction, c.previous.Lexeme)
	c.defineVariable(global)
}

// function compiles a parameter list and body as a new nested funcCompiler,
// then emits a CLOSURE instruction in the enclosing function that builds
// the runtime closure from the resulting Prototype and the upvalue
// descriptors the nested compiler recorded (spec section 4.2, "Functions,
// closures, upvalues").
func (c *Compiler) function(fnType FuncType, name string) {
	enclosing := c.fc
	c.fc = newFuncCompiler(enclosing, fnType, name)
	c.beginScope()

	c.consume(token.LPAREN, "Expect '(' after function name.")
	if !c.check(token.RPAREN) {
		for {
			c.fc.proto.Arity++
			if c.fc.proto.Arity > 255 {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConst := c.parseVariable("Expect parameter name.")
			c.defineVariable(paramConst)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after parameters.")
	c.consume(token.LBRACE, "Expect '{' before function body.")
	c.block()

	fn := c.endFunction()
	idx := c.makeConstant(fn)

	c.emitOpByte(CLOSURE, idx)
	for _, up := range fn.Upvalues {
		isLocal := byte(0)
		if up.IsLocal {
			isLocal = 1
		}
		c.fc.proto.writeByte(isLocal, c.previous.Line)
		c.fc.proto.writeByte(up.Index, c.previous.Line)
	}
}

func (c *Compiler) method() {
	c.consume(token.IDENT, "Expect method name.")
	name := c.previous.Lexeme
	constant := c.identifierConstant(name)

	fnType := FuncMethod
	if name == "init" {
		fnType = FuncInitializer
	}
	c.function(fnType, name)
	c.emitOpByte(METHOD, constant)
}

// classDeclaration compiles "class Name [< Super] { method* }" (spec
// section 4.2, "Classes").
func (c *Compiler) classDeclaration() {
	c.consume(token.IDENT, "Expect class name.")
	className := c.previous
	nameConstant := c.identifierConstant(className.Lexeme)
	c.declareVariable(className.Lexeme)

	c.emitOpByte(CLASS, nameConstant)
	c.defineVariable(nameConstant)

	cc := &classCompiler{enclosing: c.cc}
	c.cc = cc

	if c.match(token.LT) {
		c.consume(token.IDENT, "Expect superclass name.")
		c.variable(false) // pushes the superclass value
		if c.previous.Lexeme == className.Lexeme {
			c.errorAtPrevious("A class can't inherit from itself.")
		}

		c.beginScope()
		c.addLocal("super")
		c.defineVariable(0)

		c.namedVariableByName(className.Lexeme, false) // push subclass
		c.emitOp(INHERIT)
		cc.hasSuperclass = true
	}

	c.namedVariableByName(className.Lexeme, false) // push class to bind methods
	c.consume(token.LBRACE, "Expect '{' before class body.")
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RBRACE, "Expect '}' after class body.")
	c.emitOp(POP) // the class value

	if cc.hasSuperclass {
		c.endScope()
	}
	c.cc = cc.enclosing
}
