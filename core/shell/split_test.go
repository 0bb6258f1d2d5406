package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seg(text string) Segment { return Segment{Text: text} }
func op(o Operator) Segment   { return Segment{Op: o} }

func TestSplitOperators(t *testing.T) {
	cases := map[string]struct {
		line string
		want []Segment
	}{
		"and":        {"sleep 1 && echo ok", []Segment{seg("sleep 1"), op(OpAnd), seg("echo ok")}},
		"or":         {"false || echo no", []Segment{seg("false"), op(OpOr), seg("echo no")}},
		"seq":        {"a; b;c", []Segment{seg("a"), op(OpSeq), seg("b"), op(OpSeq), seg("c")}},
		"background": {"sleep 5 &", []Segment{seg("sleep 5"), op(OpBackground)}},
		"background then more": {
			"sleep 5 & echo hi",
			[]Segment{seg("sleep 5"), op(OpBackground), seg("echo hi")},
		},
		"pipe is kept":   {"ls | wc -l", []Segment{seg("ls | wc -l")}},
		"dup is kept":    {"cmd 2>&1 | less", []Segment{seg("cmd 2>&1 | less")}},
		"quoted and":     {`echo "a && b" 'c;d'`, []Segment{seg(`echo "a && b" 'c;d'`)}},
		"escaped":        {`echo a\;b`, []Segment{seg(`echo a\;b`)}},
		"leading":        {"&& echo ok", []Segment{op(OpAnd), seg("echo ok")}},
		"trailing":       {"sleep 1 &&", []Segment{seg("sleep 1"), op(OpAnd)}},
		"empty":          {"   ", nil},
		"heredoc body": {
			"cat <<EOF\na && b; c\nEOF",
			[]Segment{seg("cat <<EOF\na && b; c\nEOF")},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, SplitOperators(tc.line))
		})
	}
}

func TestCheckSplit(t *testing.T) {
	cases := map[string]struct {
		line     string
		want     Continuation
		wantNear string
	}{
		"complete":        {line: "sleep 1 && echo ok", want: Complete},
		"leading and":     {line: "&& echo ok", wantNear: "&&"},
		"leading or":      {line: "|| echo ok", wantNear: "||"},
		"consecutive":     {line: "a && || b", wantNear: "||"},
		"consecutive seq": {line: "a ; ; b", wantNear: ";"},
		"trailing and":    {line: "sleep 1 &&", want: ContinueAnd},
		"trailing or":     {line: "false ||", want: ContinueOr},
		"heredoc opener":  {line: "cat <<", want: ContinueHeredoc},
		"trailing seq":    {line: "ls;", want: Complete},
		"empty":           {line: "", want: Complete},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cont, err := CheckSplit(SplitOperators(tc.line))
			if tc.wantNear != "" {
				var syntaxErr *SyntaxError
				assert.ErrorAs(t, err, &syntaxErr)
				assert.Equal(t, tc.wantNear, syntaxErr.Near)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, cont)
		})
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]struct {
		line    string
		want    Continuation
		wantErr bool
	}{
		"complete":         {line: "echo hi | wc", want: Complete},
		"double quote":     {line: `echo "hi`, want: ContinueQuote},
		"single quote":     {line: `echo 'hi`, want: ContinueQuote},
		"brace":            {line: `echo ${HOME`, want: ContinueBrace},
		"subst":            {line: `echo $(date`, want: ContinueSubst},
		"heredoc":          {line: "cat <<EOF\nbody", want: ContinueHeredoc},
		"heredoc operator": {line: "cat <<", want: ContinueHeredoc},
		"and":              {line: "make &&", want: ContinueAnd},
		"or":               {line: "make ||", want: ContinueOr},
		"pipe":             {line: "ls |", want: ContinueOther},
		"invalid":          {line: "; ; ls", wantErr: true},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cont, err := Classify(tc.line)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, cont)
		})
	}
}
