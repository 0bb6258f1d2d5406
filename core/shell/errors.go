package shell

import "fmt"

// SyntaxError is returned for lines that can never become valid by reading
// more input.
type SyntaxError struct {
	// Near holds the offending operator, if any.
	Near string
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Near != "" {
		return fmt.Sprintf("syntax error near unexpected token `%s'", e.Near)
	}
	return "syntax error: " + e.Msg
}

// RedirectionError is returned when a >&, > or >> form is incomplete.
type RedirectionError struct {
	Token string
	Msg   string
}

func (e *RedirectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Token, e.Msg)
}
