package shell

import "fmt"

// Continuation says why a line needs more input before it can run.
type Continuation int

const (
	Complete Continuation = iota
	ContinueQuote
	ContinueBrace
	ContinueSubst
	ContinueHeredoc
	ContinueAnd
	ContinueOr
	ContinueOther
)

var continuationNames = [...]string{
	Complete:        "complete",
	ContinueQuote:   "quote",
	ContinueBrace:   "brace",
	ContinueSubst:   "subst",
	ContinueHeredoc: "heredoc",
	ContinueAnd:     "and",
	ContinueOr:      "or",
	ContinueOther:   "other",
}

func (c Continuation) String() string {
	if c < 0 || int(c) >= len(continuationNames) {
		return fmt.Sprintf("Continuation(%d)", int(c))
	}
	return continuationNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c Continuation) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Classify reports whether line can be submitted, needs another line, or
// must be rejected with a *SyntaxError.
func Classify(line string) (Continuation, error) {
	cont, err := CheckSplit(SplitOperators(line))
	if err != nil || cont != Complete {
		return cont, err
	}

	res := Tokenize(line)
	switch {
	case res.PendingHeredoc != "":
		return ContinueHeredoc, nil
	case res.Unmatched != "":
		switch res.Unmatched[len(res.Unmatched)-1] {
		case '"', '\'', '`':
			return ContinueQuote, nil
		case '{':
			return ContinueBrace, nil
		case '(':
			return ContinueSubst, nil
		}
		return ContinueOther, nil
	case len(res.Tokens) > 0 && res.Tokens[len(res.Tokens)-1].Is("|"):
		return ContinueOther, nil
	}
	return Complete, nil
}
