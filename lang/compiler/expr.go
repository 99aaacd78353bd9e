package compiler

import "github.com/mna/loxvm/lang/token"

// precedence orders the binding strength of operators from loosest to
// tightest (spec section 4.2, "Pratt table").
type precedence int

//nolint:revive
const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

var rules [64]parseRule // indexed by token.Kind; sized generously above the closed keyword set

func rule(k token.Kind, prefix, infix parseFn, prec precedence) {
	rules[k] = parseRule{prefix: prefix, infix: infix, prec: prec}
}

func init() {
	rule(token.LPAREN, (*Compiler).grouping, (*Compiler).call, precCall)
	rule(token.DOT, nil, (*Compiler).dot, precCall)
	rule(token.MINUS, (*Compiler).unary, (*Compiler).binary, precTerm)
	rule(token.PLUS, nil, (*Compiler).binary, precTerm)
	rule(token.SLASH, nil, (*Compiler).binary, precFactor)
	rule(token.STAR, nil, (*Compiler).binary, precFactor)
	rule(token.BANG, (*Compiler).unary, nil, precNone)
	rule(token.BANG_EQ, nil, (*Compiler).binary, precEquality)
	rule(token.EQ_EQ, nil, (*Compiler).binary, precEquality)
	rule(token.GT, nil, (*Compiler).binary, precComparison)
	rule(token.GT_EQ, nil, (*Compiler).binary, precComparison)
	rule(token.LT, nil, (*Compiler).binary, precComparison)
	rule(token.LT_EQ, nil, (*Compiler).binary, precComparison)
	rule(token.IDENT, (*Compiler).variableExpr, nil, precNone)
	rule(token.STRING, (*Compiler).stringExpr, nil, precNone)
	rule(token.NUMBER, (*Compiler).numberExpr, nil, precNone)
	rule(token.AND, nil, (*Compiler).and, precAnd)
	rule(token.OR, nil, (*Compiler).or, precOr)
	rule(token.FALSE, (*Compiler).literal, nil, precNone)
	rule(token.NIL, (*Compiler).literal, nil, precNone)
	rule(token.TRUE, (*Compiler).literal, nil, precNone)
	rule(token.THIS, (*Compiler).this, nil, precNone)
	rule(token.SUPER, (*Compiler).super, nil, precNone)
}

func getRule(k token.Kind) parseRule { return rules[k] }

func (c *Compiler) expression() { c.parsePrecedence(precAssignment) }

func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefixRule := getRule(c.previous.Kind).prefix
	if prefixRule == nil {
		c.errorAtPrevious("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefixRule(c, canAssign)

	for prec <= getRule(c.current.Kind).prec {
		c.advance()
		infixRule := getRule(c.previous.Kind).infix
		infixRule(c, canAssign)
	}

	if canAssign && c.match(token.EQ) {
		c.errorAtPrevious("Invalid assignment target.")
	}
}

func (c *Compiler) numberExpr(canAssign bool) { c.emitConstant(numberLiteral(c.previous.Lexeme)) }

func (c *Compiler) stringExpr(canAssign bool) { c.emitConstant(stringLiteral(c.previous.Lexeme)) }

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Kind {
	case token.FALSE:
		c.emitOp(FALSE)
	case token.NIL:
		c.emitOp(NIL)
	case token.TRUE:
		c.emitOp(TRUE)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after expression.")
}

// unary compiles a prefix '-' or '!' expression.
func (c *Compiler) unary(canAssign bool) {
	opKind := c.previous.Kind
	c.parsePrecedence(precUnary)
	switch opKind {
	case token.BANG:
		c.emitOp(NOT)
	case token.MINUS:
		c.emitOp(NEGATE)
	}
}

// binary compiles an infix arithmetic/comparison expression. !=, <=, and >=
// are synthesized from their complementary primitive (spec section 4.2,
// "Emission contracts").
func (c *Compiler) binary(canAssign bool) {
	opKind := c.previous.Kind
	r := getRule(opKind)
	c.parsePrecedence(r.prec + 1)

	switch opKind {
	case token.BANG_EQ:
		c.emitOp(EQUAL)
		c.emitOp(NOT)
	case token.EQ_EQ:
		c.emitOp(EQUAL)
	case token.GT:
		c.emitOp(GREATER)
	case token.GT_EQ:
		c.emitOp(LESS)
		c.emitOp(NOT)
	case token.LT:
		c.emitOp(LESS)
	case token.LT_EQ:
		c.emitOp(GREATER)
		c.emitOp(NOT)
	case token.PLUS:
		c.emitOp(ADD)
	case token.MINUS:
		c.emitOp(SUBTRACT)
	case token.STAR:
		c.emitOp(MULTIPLY)
	case token.SLASH:
		c.emitOp(DIVIDE)
	}
}

func (c *Compiler) and(canAssign bool) {
	endJump := c.emitJump(JUMP_IF_FALSE)
	c.emitOp(POP)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or(canAssign bool) {
	elseJump := c.emitJump(JUMP_IF_FALSE)
	endJump := c.emitJump(JUMP)

	c.patchJump(elseJump)
	c.emitOp(POP)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) argumentList() byte {
	var argCount int
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if argCount == 255 {
				c.errorAtPrevious("Can't have more than 255 arguments.")
			}
			argCount++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after arguments.")
	return byte(argCount)
}

func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emitOpByte(CALL, argCount)
}

// dot compiles a property access, fusing it with an immediately-following
// call into INVOKE to avoid allocating a BoundMethod (spec section 4.6,
// "Property access").
func (c *Compiler) dot(canAssign bool) {
	c.consume(token.IDENT, "Expect property name after '.'.")
	name := c.identifierConstant(c.previous.Lexeme)

	switch {
	case canAssign && c.match(token.EQ):
		c.expression()
		c.emitOpByte(SET_PROPERTY, name)
	case c.match(token.LPAREN):
		argCount := c.argumentList()
		c.emitOpByte(INVOKE, name)
		c.fc.proto.writeByte(argCount, c.previous.Line)
	default:
		c.emitOpByte(GET_PROPERTY, name)
	}
}

func (c *Compiler) this(canAssign bool) {
	if c.cc == nil {
		c.errorAtPrevious("Can't use 'this' outside of a class.")
		return
	}
	c.variable(false)
}

// super compiles "super.method" or the fused "super.method(args)" call
// (spec section 4.2, "this / super legality").
func (c *Compiler) super(canAssign bool) {
	switch {
	case c.cc == nil:
		c.errorAtPrevious("Can't use 'super' outside of a class.")
	case !c.cc.hasSuperclass:
		c.errorAtPrevious("Can't use 'super' in a class with no superclass.")
	}

	c.consume(token.DOT, "Expect '.' after 'super'.")
	c.consume(token.IDENT, "Expect superclass method name.")
	name := c.identifierConstant(c.previous.Lexeme)

	c.namedVariableByName("this", false)
	if c.match(token.LPAREN) {
		argCount := c.argumentList()
		c.namedVariableByName("super", false)
		c.emitOpByte(SUPER_INVOKE, name)
		c.fc.proto.writeByte(argCount, c.previous.Line)
	} else {
		c.namedVariableByName("super", false)
		c.emitOpByte(GET_SUPER, name)
	}
}

func (c *Compiler) variableExpr(canAssign bool) { c.namedVariableByName(c.previous.Lexeme, canAssign) }

// variable is like variableExpr but reuses the just-consumed identifier
// token (used for "this" and for the superclass name after '<').
func (c *Compiler) variable(canAssign bool) { c.namedVariableByName(c.previous.Lexeme, canAssign) }

// namedVariableByName resolves name at compile time (local, then upvalue,
// then global) and emits the matching get/set instruction (spec section
// 4.2, "Name resolution at compile time").
func (c *Compiler) namedVariableByName(name string, canAssign bool) {
	var getOp, setOp Opcode
	var arg byte

	if slot := c.resolveLocal(c.fc, name); slot != -1 {
		getOp, setOp, arg = GET_LOCAL, SET_LOCAL, byte(slot)
	} else if slot := c.resolveUpvalue(c.fc, name); slot != -1 {
		getOp, setOp, arg = GET_UPVALUE, SET_UPVALUE, byte(slot)
	} else {
		arg = c.identifierConstant(name)
		getOp, setOp = GET_GLOBAL, SET_GLOBAL
	}

	if canAssign && c.match(token.EQ) {
		c.expression()
		c.emitOpByte(setOp, arg)
	} else {
		c.emitOpByte(getOp, arg)
	}
}
