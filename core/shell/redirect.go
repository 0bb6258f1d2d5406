package shell

import (
	"fmt"
	"strconv"
	"strings"
)

// RedirectKind is the form of an output redirection.
type RedirectKind int

const (
	// DupFD is N>&M.
	DupFD RedirectKind = iota
	// Truncate is N>path.
	Truncate
	// Append is N>>path.
	Append
)

var redirectKindNames = [...]string{
	DupFD:    "dup",
	Truncate: "truncate",
	Append:   "append",
}

func (k RedirectKind) String() string {
	if k < 0 || int(k) >= len(redirectKindNames) {
		return fmt.Sprintf("RedirectKind(%d)", int(k))
	}
	return redirectKindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k RedirectKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// MaxFD is the largest descriptor a redirection may name.
const MaxFD = 255

// Redirection describes one output redirection. TargetFD is only meaningful
// for DupFD, TargetPath only for Truncate and Append.
type Redirection struct {
	Kind       RedirectKind `json:"kind"`
	SourceFD   int          `json:"source_fd"`
	TargetFD   int          `json:"target_fd,omitempty"`
	TargetPath string       `json:"target_path,omitempty"`
}

func (r Redirection) String() string {
	switch r.Kind {
	case DupFD:
		return fmt.Sprintf("%d>&%d", r.SourceFD, r.TargetFD)
	case Append:
		return fmt.Sprintf("%d>>%s", r.SourceFD, quote(r.TargetPath))
	default:
		return fmt.Sprintf("%d>%s", r.SourceFD, quote(r.TargetPath))
	}
}

// redirectOp is a redirection operator found inside a token.
type redirectOp struct {
	prefix string // leading text that isn't a descriptor number
	fd     int    // explicit source descriptor or -1
	kind   RedirectKind
	rest   string // operand written inline after the operator
}

// scanRedirect looks for an output redirection operator in an unquoted token.
func scanRedirect(tok Token) (redirectOp, bool) {
	if tok.Quote != Unquoted {
		return redirectOp{}, false
	}
	idx := strings.IndexByte(tok.Text, '>')
	if idx < 0 {
		return redirectOp{}, false
	}

	op := redirectOp{fd: -1}
	if prefix := tok.Text[:idx]; isDigits(prefix) {
		op.fd, _ = strconv.Atoi(prefix)
	} else {
		op.prefix = prefix
	}

	rest := tok.Text[idx+1:]
	switch {
	case strings.HasPrefix(rest, "&"):
		op.kind, op.rest = DupFD, rest[1:]
	case strings.HasPrefix(rest, ">"):
		op.kind, op.rest = Append, rest[1:]
	default:
		op.kind, op.rest = Truncate, rest
	}
	return op, true
}

// ResolveRedirections extracts >&, >> and > forms from a stage's tokens,
// returning the remaining argument tokens and the redirections in order.
//
// A form without an explicit descriptor takes it from the argument right
// before it when that argument is a whole word that is a number, and
// otherwise uses 1. A form
// without an inline operand takes the next token. Quoted tokens are never
// treated as redirections.
func ResolveRedirections(tokens []Token) ([]Token, []Redirection, error) {
	var (
		residual []Token
		redirs   []Redirection
	)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		op, ok := scanRedirect(tok)
		if !ok {
			residual = append(residual, tok)
			continue
		}

		if op.prefix != "" {
			residual = append(residual, Token{Quote: Unquoted, Text: op.prefix, Line: tok.Line, Glued: tok.Glued})
		}

		src := op.fd
		if src < 0 {
			src = 1
			if n := len(residual); op.prefix == "" && n > 0 && !residual[n-1].Glued {
				if fd, ok := parseFD(residual[n-1]); ok {
					src = fd
					residual = residual[:n-1]
				}
			}
		}
		if src > MaxFD {
			return nil, nil, &RedirectionError{Token: tok.Text, Msg: "bad file descriptor"}
		}

		operand := op.rest
		if operand == "" {
			if i+1 >= len(tokens) || isRedirectToken(tokens[i+1]) {
				msg := "missing file name"
				if op.kind == DupFD {
					msg = "missing file descriptor"
				}
				return nil, nil, &RedirectionError{Token: tok.Text, Msg: msg}
			}
			i++
			operand = tokens[i].Text
		}
		for i+1 < len(tokens) && tokens[i+1].Glued {
			i++
			operand += tokens[i].Text
		}

		redir := Redirection{Kind: op.kind, SourceFD: src}
		if op.kind == DupFD {
			fd, err := strconv.Atoi(operand)
			if err != nil || !isDigits(operand) {
				return nil, nil, &RedirectionError{Token: tok.Text, Msg: fmt.Sprintf("%q: file descriptor expected", operand)}
			}
			if fd > MaxFD {
				return nil, nil, &RedirectionError{Token: tok.Text, Msg: "bad file descriptor"}
			}
			redir.TargetFD = fd
		} else {
			redir.TargetPath = operand
		}
		redirs = append(redirs, redir)
	}

	return residual, redirs, nil
}

func parseFD(tok Token) (int, bool) {
	if tok.Quote != Unquoted || !isDigits(tok.Text) {
		return 0, false
	}
	fd, err := strconv.Atoi(tok.Text)
	return fd, err == nil
}

func isRedirectToken(tok Token) bool {
	_, ok := scanRedirect(tok)
	return ok && strings.HasPrefix(tok.Text, ">")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
