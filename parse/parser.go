package parse

import (
	"io"
	"strconv"
	"strings"

	"github.com/docql/docql/condition"
	exerrors "github.com/docql/docql/errors"
	"github.com/docql/docql/function"
	"github.com/docql/docql/query"
	"github.com/docql/docql/row"
)

// Parser reads a flat, rewindable token stream and assembles a
// *query.Query (spec section 4.5). Grammar:
//
//	stmt       := SELECT selectList FROM source joinClause*
//	              [WHERE cond] [GROUP BY idents] [HAVING cond]
//	              [ORDER BY orderList] [LIMIT n [OFFSET m] | LIMIT n,m | OFFSET n]
//	selectList := (DISTINCT)? item (',' item)*
//	item       := (expr | fnCall) (AS ident)?
//	source     := fileQuery
//	joinClause := (INNER | LEFT) JOIN fileQuery AS ident ON ident op ident
//	cond       := condTerm ((AND|OR|XOR) condTerm)*
//	condTerm   := ident op literal
//	orderList  := ident (ASC|DESC|NATSORT|SHUFFLE) (',' ...)*
type Parser struct {
	tokens []*Token
	pos    int
}

// Parse tokenizes and parses a full statement, returning the assembled
// query. Unknown keywords or malformed tokens surface as ParseError
// (spec section 4.5: "Unknown keyword in statement position → ParseError
// with the token").
func Parse(r io.Reader) (*query.Query, error) {
	lex := NewLexer(r)
	if err := lex.Run(); err != nil {
		return nil, exerrors.ParseError.New("input", err.Error())
	}
	var tokens []*Token
	for {
		tk := lex.Next()
		if tk == nil {
			break
		}
		tokens = append(tokens, tk)
		if tk.Type == EOFToken {
			break
		}
	}
	p := &Parser{tokens: tokens}
	return p.parseStatement()
}

func (p *Parser) peek() *Token {
	if p.pos >= len(p.tokens) {
		return &Token{Type: EOFToken}
	}
	return p.tokens[p.pos]
}

func (p *Parser) next() *Token {
	tk := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tk
}

// rewind steps back n tokens, implementing the spec's "flat token stream
// with rewind".
func (p *Parser) rewind(n int) {
	p.pos -= n
	if p.pos < 0 {
		p.pos = 0
	}
}

func parseErr(tk *Token) error {
	return exerrors.ParseError.New(tk.Type.String(), tk.Value)
}

func (p *Parser) expectKeyword(kw string) error {
	tk := p.next()
	if tk.Type != KeywordToken || upper(tk.Value) != kw {
		return parseErr(tk)
	}
	return nil
}

func (p *Parser) atKeyword(kw string) bool {
	tk := p.peek()
	return tk.Type == KeywordToken && upper(tk.Value) == kw
}

func (p *Parser) parseStatement() (*query.Query, error) {
	q := query.New()

	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	if p.atKeyword("DISTINCT") {
		p.next()
		q.Distinct()
	}
	if err := p.parseSelectList(q); err != nil {
		return nil, err
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	if err := p.parseFrom(q); err != nil {
		return nil, err
	}

	for p.atKeyword("INNER") || p.atKeyword("LEFT") {
		if err := p.parseJoin(q); err != nil {
			return nil, err
		}
	}

	if p.atKeyword("WHERE") {
		p.next()
		if err := p.parseCond(q, false); err != nil {
			return nil, err
		}
	}

	if p.atKeyword("GROUP") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		if err := p.parseIdentList(func(name string) { q.GroupBy(name) }); err != nil {
			return nil, err
		}
	}

	if p.atKeyword("HAVING") {
		p.next()
		if err := p.parseCond(q, true); err != nil {
			return nil, err
		}
	}

	if p.atKeyword("ORDER") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		if err := p.parseOrderList(q); err != nil {
			return nil, err
		}
	}

	if p.atKeyword("LIMIT") {
		p.next()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		offset := 0
		if p.peek().Type == CommaToken {
			p.next()
			offset = n
			n, err = p.parseIntLiteral()
			if err != nil {
				return nil, err
			}
		} else if p.atKeyword("OFFSET") {
			p.next()
			offset, err = p.parseIntLiteral()
			if err != nil {
				return nil, err
			}
		}
		q.LimitN(n, offset)
	} else if p.atKeyword("OFFSET") {
		p.next()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		q.OffsetN(n)
	}

	if tk := p.peek(); tk.Type != EOFToken {
		return nil, parseErr(tk)
	}
	if q.Err() != nil {
		return nil, q.Err()
	}
	return q, nil
}

// ---------------------------------------------------------------------
// SELECT list
// ---------------------------------------------------------------------

func (p *Parser) parseSelectList(q *query.Query) error {
	for {
		if err := p.parseSelectItem(q); err != nil {
			return err
		}
		if p.peek().Type != CommaToken {
			break
		}
		p.next()
	}
	return nil
}

func (p *Parser) parseSelectItem(q *query.Query) error {
	tk := p.next()
	switch {
	case tk.Type == OpToken && tk.Value == "*":
		q.SelectAll()
	case tk.Type == FuncToken:
		name, args, err := parseFuncToken(tk.Value)
		if err != nil {
			return err
		}
		q.Func(name, args...)
	case tk.Type == IdentifierToken:
		field := p.parseDottedTail(tk.Value)
		q.Select(field)
	default:
		return parseErr(tk)
	}
	if p.atKeyword("AS") {
		p.next()
		alias := p.next()
		if alias.Type != IdentifierToken && alias.Type != KeywordToken {
			return parseErr(alias)
		}
		q.As(alias.Value)
	}
	return nil
}

// parseDottedTail consumes any trailing ('.' ident)* run after an
// already-read leading identifier, returning the joined dotted path
// (spec section 4.1 path grammar).
func (p *Parser) parseDottedTail(first string) string {
	parts := []string{first}
	for p.peek().Type == DotToken {
		p.next()
		tk := p.next()
		parts = append(parts, tk.Value)
	}
	return strings.Join(parts, ".")
}

// parseFuncToken splits a FuncToken's captured "NAME(args)" text into a
// function name and a comma-separated argument list, where each argument
// is either a bare field reference or a literal.
func parseFuncToken(text string) (string, []function.Arg, error) {
	open := strings.IndexByte(text, '(')
	name := text[:open]
	inner := strings.TrimSuffix(text[open+1:], ")")
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return name, nil, nil
	}
	rawArgs := splitArgs(inner)
	args := make([]function.Arg, 0, len(rawArgs))
	for _, raw := range rawArgs {
		raw = strings.TrimSpace(raw)
		if raw == "*" {
			args = append(args, function.FieldArg("*"))
			continue
		}
		if len(raw) >= 2 && (raw[0] == '\'' || raw[0] == '"') && raw[len(raw)-1] == raw[0] {
			args = append(args, function.LitArg(unquote(raw)))
			continue
		}
		if v := row.Coerce(raw); v != row.Value(raw) {
			args = append(args, function.LitArg(v))
			continue
		}
		args = append(args, function.FieldArg(raw))
	}
	return name, args, nil
}

// splitArgs splits a function call's argument text on top-level commas,
// ignoring commas nested inside a quoted string.
func splitArgs(s string) []string {
	var out []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == quote && (i == 0 || s[i-1] != '\\') {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
			cur.WriteByte(c)
		case c == ',':
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	out = append(out, cur.String())
	return out
}

func unquote(s string) string {
	inner := s[1 : len(s)-1]
	inner = strings.ReplaceAll(inner, `\"`, `"`)
	inner = strings.ReplaceAll(inner, `\'`, `'`)
	return inner
}

// ---------------------------------------------------------------------
// FROM / JOIN
// ---------------------------------------------------------------------

func (p *Parser) parseFileQuery() (*query.FileRef, error) {
	if p.peek().Type != LeftParenToken {
		tk := p.next()
		return nil, parseErr(tk)
	}
	p.next()
	var path strings.Builder
	for p.peek().Type != RightParenToken {
		tk := p.next()
		if tk.Type == EOFToken {
			return nil, parseErr(tk)
		}
		path.WriteString(tk.Value)
	}
	p.next() // consume ')'
	if p.peek().Type != DotToken {
		return &query.FileRef{Path: path.String()}, nil
	}
	p.next()
	first := p.next()
	selector := p.parseDottedTail(first.Value)
	return &query.FileRef{Path: path.String(), Selector: selector}, nil
}

func (p *Parser) parseFrom(q *query.Query) error {
	ref, err := p.parseFileQuery()
	if err != nil {
		return err
	}
	q.FromFileRef(ref)
	return nil
}

func (p *Parser) parseJoin(q *query.Query) error {
	left := p.atKeyword("LEFT")
	p.next() // INNER or LEFT
	if err := p.expectKeyword("JOIN"); err != nil {
		return err
	}
	ref, err := p.parseFileQuery()
	if err != nil {
		return err
	}
	if err := p.expectKeyword("AS"); err != nil {
		return err
	}
	alias := p.next()
	if alias.Type != IdentifierToken {
		return parseErr(alias)
	}
	if left {
		q.LeftJoinFileRef(ref, alias.Value)
	} else {
		q.InnerJoinFileRef(ref, alias.Value)
	}
	if err := p.expectKeyword("ON"); err != nil {
		return err
	}
	leftKey := p.next()
	if leftKey.Type != IdentifierToken {
		return parseErr(leftKey)
	}
	leftField := p.parseDottedTail(leftKey.Value)
	op, err := p.parseCompareOp()
	if err != nil {
		return err
	}
	rightKey := p.next()
	if rightKey.Type != IdentifierToken {
		return parseErr(rightKey)
	}
	rightField := p.parseDottedTail(rightKey.Value)
	q.On(leftField, op, rightField)
	return nil
}

// ---------------------------------------------------------------------
// WHERE / HAVING
// ---------------------------------------------------------------------

// parseCond parses condTerm ((AND|OR|XOR) condTerm)* (spec section 4.5:
// nested parenthesized groups in text form are explicitly not required).
func (p *Parser) parseCond(q *query.Query, having bool) error {
	field, op, val, err := p.parseCondTerm()
	if err != nil {
		return err
	}
	if having {
		q.Having(field, op, val)
	} else {
		q.Where(field, op, val)
	}

	for {
		tk := p.peek()
		if tk.Type != KeywordToken {
			break
		}
		link := upper(tk.Value)
		if link != "AND" && link != "OR" && link != "XOR" {
			break
		}
		p.next()
		field, op, val, err = p.parseCondTerm()
		if err != nil {
			return err
		}
		switch link {
		case "AND":
			q.And(field, op, val)
		case "OR":
			q.Or(field, op, val)
		case "XOR":
			q.Xor(field, op, val)
		}
	}
	return nil
}

func (p *Parser) parseCondTerm() (string, condition.CompareOp, row.Value, error) {
	ident := p.next()
	if ident.Type != IdentifierToken {
		return "", 0, nil, parseErr(ident)
	}
	field := p.parseDottedTail(ident.Value)
	op, err := p.parseCompareOp()
	if err != nil {
		return "", 0, nil, err
	}
	val, err := p.parseLiteral(op)
	if err != nil {
		return "", 0, nil, err
	}
	return field, op, val, nil
}

// parseCompareOp recognizes simple operator symbols plus the composite
// keyword forms IS NOT, NOT LIKE, NOT IN (spec section 4.5: "Composite
// operators recognized").
func (p *Parser) parseCompareOp() (condition.CompareOp, error) {
	tk := p.next()
	switch {
	case tk.Type == OpToken:
		switch tk.Value {
		case "=":
			return condition.Eq, nil
		case "!=":
			return condition.Ne, nil
		case "<":
			return condition.Lt, nil
		case "<=":
			return condition.Le, nil
		case ">":
			return condition.Gt, nil
		case ">=":
			return condition.Ge, nil
		}
	case tk.Type == KeywordToken:
		switch upper(tk.Value) {
		case "LIKE":
			return condition.Like, nil
		case "IN":
			return condition.In, nil
		case "IS":
			if p.atKeyword("NOT") {
				p.next()
				return condition.IsNot, nil
			}
			return condition.Is, nil
		case "NOT":
			next := p.next()
			switch upper(next.Value) {
			case "LIKE":
				return condition.NotLike, nil
			case "IN":
				return condition.NotIn, nil
			}
			return 0, parseErr(next)
		}
	}
	return 0, parseErr(tk)
}

// parseLiteral reads a scalar literal, or (for IN/NOT IN) a parenthesized
// comma-separated list materialized as a row.Seq.
func (p *Parser) parseLiteral(op condition.CompareOp) (row.Value, error) {
	if op == condition.In || op == condition.NotIn {
		if p.peek().Type != LeftParenToken {
			tk := p.next()
			return nil, parseErr(tk)
		}
		p.next()
		var seq row.Seq
		for {
			v, err := p.parseScalarLiteral()
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
			if p.peek().Type == CommaToken {
				p.next()
				continue
			}
			break
		}
		if p.peek().Type != RightParenToken {
			tk := p.next()
			return nil, parseErr(tk)
		}
		p.next()
		return seq, nil
	}
	if op == condition.Is || op == condition.IsNot {
		if p.atKeyword("NULL") {
			p.next()
		}
		return nil, nil
	}
	return p.parseScalarLiteral()
}

func (p *Parser) parseScalarLiteral() (row.Value, error) {
	tk := p.next()
	switch tk.Type {
	case StringToken:
		return unquote(tk.Value), nil
	case IntToken:
		n, err := strconv.ParseInt(tk.Value, 10, 64)
		if err != nil {
			return nil, exerrors.TypeError.New(err.Error())
		}
		return n, nil
	case FloatToken:
		f, err := strconv.ParseFloat(tk.Value, 64)
		if err != nil {
			return nil, exerrors.TypeError.New(err.Error())
		}
		return f, nil
	case KeywordToken:
		switch upper(tk.Value) {
		case "TRUE":
			return true, nil
		case "FALSE":
			return false, nil
		case "NULL":
			return nil, nil
		}
	}
	return nil, parseErr(tk)
}

// ---------------------------------------------------------------------
// GROUP BY / ORDER BY
// ---------------------------------------------------------------------

func (p *Parser) parseIdentList(add func(string)) error {
	for {
		tk := p.next()
		if tk.Type != IdentifierToken {
			return parseErr(tk)
		}
		add(p.parseDottedTail(tk.Value))
		if p.peek().Type != CommaToken {
			break
		}
		p.next()
	}
	return nil
}

func (p *Parser) parseOrderList(q *query.Query) error {
	for {
		tk := p.next()
		if tk.Type != IdentifierToken {
			return parseErr(tk)
		}
		field := p.parseDottedTail(tk.Value)
		mode := query.Asc
		if p.peek().Type == KeywordToken {
			switch upper(p.peek().Value) {
			case "ASC":
				mode = query.Asc
				p.next()
			case "DESC":
				mode = query.Desc
				p.next()
			case "NATSORT":
				mode = query.NatSort
				p.next()
			case "SHUFFLE":
				mode = query.Shuffle
				p.next()
			}
		}
		q.OrderBy(field, mode)
		if p.peek().Type != CommaToken {
			break
		}
		p.next()
	}
	return nil
}

func (p *Parser) parseIntLiteral() (int, error) {
	tk := p.next()
	if tk.Type != IntToken {
		return 0, parseErr(tk)
	}
	n, err := strconv.Atoi(tk.Value)
	if err != nil {
		return 0, exerrors.TypeError.New(err.Error())
	}
	return n, nil
}
