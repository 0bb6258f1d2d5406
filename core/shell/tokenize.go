package shell

import "strings"

// Tokenize splits a raw command line into tokens, tracking nested quotes,
// $() and ${} substitutions, heredocs and pipe symbols.
//
// Malformed input never fails: an unterminated quote or substitution leaves
// its characters on Unmatched and the text inside it is not emitted.
func Tokenize(line string) LineParseResult {
	t := &tokenizer{}
	t.run(line)

	res := LineParseResult{
		Tokens:    t.tokens,
		Unmatched: string(t.stack),
	}
	if res.Unmatched == "" {
		res.PendingHeredoc = pendingHeredoc(t.tokens)
	}
	res.Complete = res.Unmatched == "" && res.PendingHeredoc == ""
	return res
}

type tokenizer struct {
	tokens []Token
	stack  []byte
	buf    strings.Builder

	line  int // current line number, zero based
	start int // line the buffered token started on

	glued     bool // the next token touches the previous one
	metDollar bool // the previous character was an unescaped '$'
	scanned   int  // tokens already checked for heredoc openers
}

func (t *tokenizer) top() byte {
	if len(t.stack) == 0 {
		return 0
	}
	return t.stack[len(t.stack)-1]
}

func (t *tokenizer) push(c byte) {
	t.stack = append(t.stack, c)
}

func (t *tokenizer) pop() {
	t.stack = t.stack[:len(t.stack)-1]
}

func (t *tokenizer) write(c byte) {
	if t.buf.Len() == 0 {
		t.start = t.line
	}
	t.buf.WriteByte(c)
}

// emit flushes the buffer as a token of the given kind. Empty buffers are
// dropped, so "" yields no argument.
func (t *tokenizer) emit(q QuoteKind) {
	if t.buf.Len() == 0 {
		return
	}
	t.tokens = append(t.tokens, Token{Quote: q, Text: t.buf.String(), Line: t.start, Glued: t.glued})
	t.buf.Reset()
	t.glued = true
}

// separate ends the current word.
func (t *tokenizer) separate() {
	t.emit(Unquoted)
	t.glued = false
}

func (t *tokenizer) run(line string) {
	for i := 0; i < len(line); i++ {
		c := line[i]
		dollar := t.metDollar
		t.metDollar = false
		top := t.top()

		if c == '\\' && top != '\'' && i+1 < len(line) {
			i++
			t.escape(line[i])
			continue
		}

		switch top {
		case 0:
			if c == '\n' {
				t.separate()
				t.line++
				if delim := t.heredocDelim(); delim != "" {
					i = t.body(line, i+1, delim)
				}
				continue
			}
			t.unquoted(c, dollar)
		case '\'':
			if c == '\'' {
				t.closeQuote(c)
			} else {
				t.write(c)
			}
		case '"':
			t.doubleQuoted(c, dollar)
		default:
			t.nested(c, dollar)
		}

		if c == '\n' {
			t.line++
		}
	}

	if len(t.stack) == 0 {
		t.separate()
	}
}

func (t *tokenizer) escape(c byte) {
	switch t.top() {
	case 0:
		// Backslash-newline joins lines.
		if c == '\n' {
			t.line++
			return
		}
		t.write(c)
	case '"':
		switch c {
		case '\n':
			t.line++
		case '"', '\\', '$', '`':
			t.write(c)
		default:
			t.write('\\')
			t.write(c)
		}
	default:
		t.write('\\')
		t.write(c)
		if c == '\n' {
			t.line++
		}
	}
}

func (t *tokenizer) unquoted(c byte, dollar bool) {
	switch {
	case c == '\'' || c == '"' || c == '`':
		t.emit(Unquoted)
		t.push(c)
		t.start = t.line
	case dollar && (c == '(' || c == '{'):
		t.write(c)
		t.push(c)
	case c == '$':
		t.write(c)
		t.metDollar = true
	case c == '|':
		t.separate()
		t.tokens = append(t.tokens, Token{Quote: Unquoted, Text: "|", Line: t.line})
	case isSpace(c):
		t.separate()
	default:
		t.write(c)
	}
}

func (t *tokenizer) doubleQuoted(c byte, dollar bool) {
	switch {
	case c == '"':
		t.closeQuote(c)
	case c == '`':
		t.write(c)
		t.push(c)
	case dollar && (c == '(' || c == '{'):
		t.write(c)
		t.push(c)
	case c == '$':
		t.write(c)
		t.metDollar = true
	default:
		t.write(c)
	}
}

// nested handles characters inside $(), ${} and backticks.
func (t *tokenizer) nested(c byte, dollar bool) {
	top := t.top()
	switch {
	case top == '`' && c == '`':
		t.closeQuote(c)
	case top == '(' && c == ')', top == '{' && c == '}':
		t.pop()
		t.write(c)
	case c == '\'' || c == '"' || c == '`':
		t.write(c)
		t.push(c)
	case dollar && (c == '(' || c == '{'):
		t.write(c)
		t.push(c)
	case top == '(' && c == '(':
		t.write(c)
		t.push(c)
	case c == '$':
		t.write(c)
		t.metDollar = true
	default:
		t.write(c)
	}
}

// closeQuote pops a quote. A pair closed at the top level becomes its own
// token; one closed inside a substitution stays part of the enclosing text.
func (t *tokenizer) closeQuote(c byte) {
	t.pop()
	if len(t.stack) == 0 {
		t.emit(quoteKindOf(c))
		return
	}
	t.write(c)
}

// heredocDelim returns the delimiter of the first heredoc opened by the tokens
// read since the last call.
func (t *tokenizer) heredocDelim() string {
	defer func() { t.scanned = len(t.tokens) }()
	for i := t.scanned; i < len(t.tokens); i++ {
		if delim, _, ok := heredocAt(t.tokens, i); ok {
			return delim
		}
	}
	return ""
}

// body consumes heredoc body lines starting at pos. The body is not
// tokenized; the terminating line is emitted as a single token. It returns the
// index of the last consumed byte.
func (t *tokenizer) body(line string, pos int, delim string) int {
	for pos < len(line) {
		text, next := line[pos:], len(line)
		end := strings.IndexByte(text, '\n')
		if end >= 0 {
			text, next = text[:end], pos+end+1
		}

		done := strings.TrimSpace(text) == delim
		if done {
			t.tokens = append(t.tokens, Token{Quote: Unquoted, Text: delim, Line: t.line})
			t.scanned = len(t.tokens)
			t.glued = false
		}
		if end >= 0 {
			t.line++
		}
		if done {
			return next - 1
		}
		pos = next
	}
	return pos - 1
}

// heredocAt reports whether tokens[i] opens a heredoc, returning its delimiter
// and the index of the token holding it.
func heredocAt(tokens []Token, i int) (delim string, at int, ok bool) {
	tok := tokens[i]
	if tok.Quote != Unquoted || !strings.HasPrefix(tok.Text, "<<") || strings.HasPrefix(tok.Text, "<<<") {
		return "", i, false
	}
	if delim := tok.Text[2:]; delim != "" {
		return delim, i, true
	}
	if i+1 < len(tokens) {
		return tokens[i+1].Text, i + 1, true
	}
	return "", i, false
}

// heredocEnd returns the index of the token closing the heredoc whose
// delimiter is at tokens[at], or -1.
func heredocEnd(tokens []Token, at int, delim string) int {
	for j := at + 1; j < len(tokens); j++ {
		if tokens[j].Is(delim) && tokens[j].Line > tokens[at].Line {
			return j
		}
	}
	return -1
}

// pendingHeredoc returns the delimiter of the first heredoc unless the last
// token closes it.
func pendingHeredoc(tokens []Token) string {
	for i := range tokens {
		delim, at, ok := heredocAt(tokens, i)
		if !ok {
			continue
		}
		last := len(tokens) - 1
		if last > at && heredocEnd(tokens, at, delim) == last {
			return ""
		}
		return delim
	}
	return ""
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
