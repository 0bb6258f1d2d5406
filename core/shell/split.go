package shell

import (
	"fmt"
	"strings"
)

// Operator is a control operator separating compound commands.
type Operator int

const (
	OpNone Operator = iota
	OpAnd
	OpOr
	OpSeq
	OpBackground
)

var operatorNames = [...]string{
	OpNone:       "",
	OpAnd:        "&&",
	OpOr:         "||",
	OpSeq:        ";",
	OpBackground: "&",
}

func (o Operator) String() string {
	if o < 0 || int(o) >= len(operatorNames) {
		return fmt.Sprintf("Operator(%d)", int(o))
	}
	return operatorNames[o]
}

// MarshalText implements encoding.TextMarshaler.
func (o Operator) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Segment is either a command substring or a control operator.
type Segment struct {
	Op   Operator `json:"op,omitempty"`
	Text string   `json:"text,omitempty"`
}

// IsOperator reports whether the segment is a control operator.
func (s Segment) IsOperator() bool {
	return s.Op != OpNone
}

func (s Segment) String() string {
	if s.IsOperator() {
		return s.Op.String()
	}
	return s.Text
}

// SplitOperators splits a line into command substrings and the &&, ||, ; and
// & operators between them. Operators inside quotes are ignored. Everything
// after the first line of a heredoc is kept verbatim.
func SplitOperators(line string) []Segment {
	var (
		segs    []Segment
		cur     strings.Builder
		stack   []byte
		heredoc bool
	)

	flush := func() {
		if text := strings.TrimSpace(cur.String()); text != "" {
			segs = append(segs, Segment{Text: text})
		}
		cur.Reset()
	}
	emit := func(op Operator) {
		flush()
		segs = append(segs, Segment{Op: op})
		heredoc = false
	}
	next := func(i int) byte {
		if i+1 < len(line) {
			return line[i+1]
		}
		return 0
	}

	for i := 0; i < len(line); i++ {
		c := line[i]

		if n := len(stack); n > 0 {
			cur.WriteByte(c)
			switch {
			case c == '\\' && stack[n-1] != '\'' && i+1 < len(line):
				i++
				cur.WriteByte(line[i])
			case c == stack[n-1]:
				stack = stack[:n-1]
			}
			continue
		}

		switch c {
		case '\\':
			cur.WriteByte(c)
			if i+1 < len(line) {
				i++
				cur.WriteByte(line[i])
			}
		case '\'', '"', '`':
			stack = append(stack, c)
			cur.WriteByte(c)
		case '\n':
			cur.WriteByte(c)
			if heredoc {
				cur.WriteString(line[i+1:])
				i = len(line)
			}
		case '<':
			cur.WriteByte(c)
			if next(i) == '<' {
				heredoc = true
				cur.WriteByte('<')
				i++
			}
		case '&':
			switch {
			case next(i) == '&':
				emit(OpAnd)
				i++
			case i > 0 && (line[i-1] == '>' || line[i-1] == '<'):
				cur.WriteByte(c)
			default:
				emit(OpBackground)
			}
		case '|':
			if next(i) == '|' {
				emit(OpOr)
				i++
			} else {
				cur.WriteByte(c)
			}
		case ';':
			emit(OpSeq)
		default:
			cur.WriteByte(c)
		}
	}
	flush()

	return segs
}

// CheckSplit validates the output of SplitOperators. A leading && or ||, or
// two operators in a row, is a *SyntaxError. A trailing && or || or an
// unfinished heredoc opener asks for more input.
func CheckSplit(segs []Segment) (Continuation, error) {
	if len(segs) == 0 {
		return Complete, nil
	}
	if op := segs[0].Op; op == OpAnd || op == OpOr {
		return Complete, &SyntaxError{Near: op.String()}
	}
	for i := 1; i < len(segs); i++ {
		if segs[i].IsOperator() && segs[i-1].IsOperator() {
			return Complete, &SyntaxError{Near: segs[i].Op.String()}
		}
	}

	last := segs[len(segs)-1]
	switch last.Op {
	case OpAnd:
		return ContinueAnd, nil
	case OpOr:
		return ContinueOr, nil
	case OpNone:
		if strings.HasSuffix(last.Text, "<<") {
			return ContinueHeredoc, nil
		}
	}
	return Complete, nil
}
