package storage

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/bull/logsearch/internal/schema"
)

// Query is a node of the engine's query tree. Build leaves with the
// constructors below and combine them with Boolean.
type Query interface {
	compile(c *compiler) error
}

// MatchAll matches every document.
type MatchAll struct{}

// Term matches documents whose field equals Value exactly.
type Term struct {
	Field string
	Value string
}

// Text is a full-text match against an analyzed field.
type Text struct {
	Field string
	Expr  string // FTS5 expression produced by NewText
	Raw   string
}

// Regex matches documents whose field matches Pattern anywhere.
type Regex struct {
	Field   string
	Pattern *regexp.Regexp
}

// TimeRange matches documents whose time field lies within [From, To].
// A nil bound is open. Documents without a time never match.
type TimeRange struct {
	Field string
	From  *time.Time
	To    *time.Time
}

// Boolean requires every clause in Must to match.
type Boolean struct {
	Must []Query
}

// NewText turns user text into a full-text expression. Bare words must
// all match; "quoted phrases" match in order; a trailing * makes a prefix
// term; OR, AND and NOT in capitals are operators.
func NewText(field, text string) (Text, error) {
	tokens, err := splitText(text)
	if err != nil {
		return Text{}, err
	}

	var (
		parts        []string
		lastOperator = true
		terms        int
	)
	for _, tok := range tokens {
		if !tok.quoted && isOperator(tok.value) {
			if lastOperator {
				return Text{}, fmt.Errorf("%w: misplaced operator %s in %q", ErrInvalidQuery, tok.value, text)
			}
			parts = append(parts, tok.value)
			lastOperator = true
			continue
		}

		term := tok.value
		prefix := false
		if !tok.quoted && strings.HasSuffix(term, "*") {
			term = strings.TrimRight(term, "*")
			prefix = true
		}
		if !hasWordRune(term) {
			continue
		}
		quoted := `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
		if prefix {
			quoted += "*"
		}
		parts = append(parts, quoted)
		lastOperator = false
		terms++
	}
	if terms == 0 {
		return Text{}, fmt.Errorf("%w: no searchable terms in %q", ErrInvalidQuery, text)
	}
	if lastOperator {
		return Text{}, fmt.Errorf("%w: dangling operator in %q", ErrInvalidQuery, text)
	}
	return Text{Field: field, Expr: strings.Join(parts, " "), Raw: text}, nil
}

// NewRegex compiles pattern for matching against field.
func NewRegex(field, pattern string) (Regex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Regex{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return Regex{Field: field, Pattern: re}, nil
}

type textToken struct {
	value  string
	quoted bool
}

func splitText(text string) ([]textToken, error) {
	var (
		tokens []textToken
		cur    strings.Builder
		inQuot bool
	)
	flush := func(quoted bool) {
		if cur.Len() > 0 || quoted {
			tokens = append(tokens, textToken{value: cur.String(), quoted: quoted})
		}
		cur.Reset()
	}
	for _, r := range text {
		switch {
		case r == '"':
			if inQuot {
				flush(true)
			} else {
				flush(false)
			}
			inQuot = !inQuot
		case unicode.IsSpace(r) && !inQuot:
			flush(false)
		default:
			cur.WriteRune(r)
		}
	}
	if inQuot {
		return nil, fmt.Errorf("%w: unbalanced quote in %q", ErrInvalidQuery, text)
	}
	flush(false)
	return tokens, nil
}

func isOperator(s string) bool {
	return s == "AND" || s == "OR" || s == "NOT"
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// compiler accumulates SQL for one query tree.
type compiler struct {
	schema  *schema.Schema
	where   []string
	args    []any
	matches []string
}

func (c *compiler) field(name string, kinds ...schema.Kind) (schema.Field, error) {
	f, ok := c.schema.Field(name)
	if !ok {
		return schema.Field{}, fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, name)
	}
	for _, k := range kinds {
		if f.Kind == k {
			return f, nil
		}
	}
	return schema.Field{}, fmt.Errorf("%w: field %q does not support this query", ErrInvalidQuery, name)
}

func (MatchAll) compile(*compiler) error { return nil }

func (q Term) compile(c *compiler) error {
	f, err := c.field(q.Field, schema.KindKeyword)
	if err != nil {
		return err
	}
	clause := "d." + f.Column + " = ?"
	if f.FoldCase {
		clause += " COLLATE NOCASE"
	}
	c.where = append(c.where, clause)
	c.args = append(c.args, q.Value)
	return nil
}

func (q Text) compile(c *compiler) error {
	if _, err := c.field(q.Field, schema.KindText); err != nil {
		return err
	}
	if q.Expr == "" {
		return fmt.Errorf("%w: empty text expression", ErrInvalidQuery)
	}
	c.matches = append(c.matches, q.Expr)
	return nil
}

func (q Regex) compile(c *compiler) error {
	f, err := c.field(q.Field, schema.KindText, schema.KindKeyword)
	if err != nil {
		return err
	}
	if q.Pattern == nil {
		return fmt.Errorf("%w: nil pattern", ErrInvalidQuery)
	}
	c.where = append(c.where, "d."+f.Column+" REGEXP ?")
	c.args = append(c.args, q.Pattern.String())
	return nil
}

func (q TimeRange) compile(c *compiler) error {
	f, err := c.field(q.Field, schema.KindTime)
	if err != nil {
		return err
	}
	c.where = append(c.where, "d."+f.Column+" IS NOT NULL")
	if q.From != nil {
		c.where = append(c.where, "d."+f.Column+" >= ?")
		c.args = append(c.args, q.From.UnixMicro())
	}
	if q.To != nil {
		c.where = append(c.where, "d."+f.Column+" <= ?")
		c.args = append(c.args, q.To.UnixMicro())
	}
	return nil
}

func (q Boolean) compile(c *compiler) error {
	for _, sub := range q.Must {
		if err := sub.compile(c); err != nil {
			return err
		}
	}
	return nil
}
