package shell

import "fmt"

// QuoteKind records which quote pair, if any, a token was read from.
type QuoteKind int

const (
	Unquoted QuoteKind = iota
	SingleQuoted
	DoubleQuoted
	Backticked
)

var quoteKindNames = [...]string{
	Unquoted:     "none",
	SingleQuoted: "single",
	DoubleQuoted: "double",
	Backticked:   "backtick",
}

func (q QuoteKind) String() string {
	if q < 0 || int(q) >= len(quoteKindNames) {
		return fmt.Sprintf("QuoteKind(%d)", int(q))
	}
	return quoteKindNames[q]
}

// MarshalText implements encoding.TextMarshaler.
func (q QuoteKind) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

func quoteKindOf(c byte) QuoteKind {
	switch c {
	case '\'':
		return SingleQuoted
	case '"':
		return DoubleQuoted
	case '`':
		return Backticked
	default:
		return Unquoted
	}
}

// Token is a single word read from a command line.
//
// Quoted tokens keep their inner whitespace. Glued is set when no separator
// came between this token and the one before it, e.g. the two halves of
// --name="a b"; Stage.Argv joins glued tokens back into one argument.
type Token struct {
	Quote QuoteKind `json:"quote"`
	Text  string    `json:"text"`
	Line  int       `json:"line,omitempty"`
	Glued bool      `json:"glued,omitempty"`
}

// Is reports whether the token is the unquoted text s.
func (t Token) Is(s string) bool {
	return t.Quote == Unquoted && t.Text == s
}

func (t Token) String() string {
	if t.Quote == Unquoted {
		return t.Text
	}
	return fmt.Sprintf("%s(%q)", t.Quote, t.Text)
}

// LineParseResult is the outcome of tokenizing one (possibly multi-line)
// command line.
type LineParseResult struct {
	Tokens []Token `json:"tokens"`

	// Complete is true iff Unmatched and PendingHeredoc are both empty.
	Complete bool `json:"complete"`

	// PendingHeredoc holds the delimiter of a heredoc whose body hasn't been
	// terminated yet.
	PendingHeredoc string `json:"pending_heredoc,omitempty"`

	// Unmatched is the stack of open quote and substitution characters, the
	// most recently opened last.
	Unmatched string `json:"unmatched,omitempty"`
}
