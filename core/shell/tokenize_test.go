package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	cases := map[string]struct {
		line string
		want []Token
	}{
		"quoted words": {
			line: `echo "a b" c`,
			want: []Token{
				{Quote: Unquoted, Text: "echo"},
				{Quote: DoubleQuoted, Text: "a b"},
				{Quote: Unquoted, Text: "c"},
			},
		},
		"single quotes keep everything": {
			line: `printf '%s\n' "$(x)"`,
			want: []Token{
				{Quote: Unquoted, Text: "printf"},
				{Quote: SingleQuoted, Text: `%s\n`},
				{Quote: DoubleQuoted, Text: "$(x)"},
			},
		},
		"pipe is its own token": {
			line: "ls -l|wc -l",
			want: []Token{
				{Quote: Unquoted, Text: "ls"},
				{Quote: Unquoted, Text: "-l"},
				{Quote: Unquoted, Text: "|"},
				{Quote: Unquoted, Text: "wc"},
				{Quote: Unquoted, Text: "-l"},
			},
		},
		"substitution is not split": {
			line: "echo $(ls -a | wc) ${HOME}",
			want: []Token{
				{Quote: Unquoted, Text: "echo"},
				{Quote: Unquoted, Text: "$(ls -a | wc)"},
				{Quote: Unquoted, Text: "${HOME}"},
			},
		},
		"glued quote": {
			line: `--name="a b"`,
			want: []Token{
				{Quote: Unquoted, Text: "--name="},
				{Quote: DoubleQuoted, Text: "a b", Glued: true},
			},
		},
		"empty quotes are dropped": {
			line: `echo ""`,
			want: []Token{
				{Quote: Unquoted, Text: "echo"},
			},
		},
		"escaped space": {
			line: `cat a\ b`,
			want: []Token{
				{Quote: Unquoted, Text: "cat"},
				{Quote: Unquoted, Text: "a b"},
			},
		},
		"escaped quote in double quotes": {
			line: `echo "say \"hi\""`,
			want: []Token{
				{Quote: Unquoted, Text: "echo"},
				{Quote: DoubleQuoted, Text: `say "hi"`},
			},
		},
		"backticks": {
			line: "echo `date`",
			want: []Token{
				{Quote: Unquoted, Text: "echo"},
				{Quote: Backticked, Text: "date"},
			},
		},
		"newline separates and counts lines": {
			line: "a\nb",
			want: []Token{
				{Quote: Unquoted, Text: "a"},
				{Quote: Unquoted, Text: "b", Line: 1},
			},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			res := Tokenize(tc.line)
			assert.True(t, res.Complete)
			assert.Empty(t, res.Unmatched)
			assert.Equal(t, tc.want, res.Tokens)
		})
	}
}

func TestTokenize_balanced(t *testing.T) {
	lines := []string{
		``,
		`echo hi`,
		`echo "it's"`,
		`echo 'say "x"'`,
		`echo "$(echo "nested $(date)")"`,
		`echo ${A:-"x y"}`,
		"echo `ls`",
		`echo $((1 + 2))`,
		"cat <<EOF\nhello\nEOF",
		"cat << 'END' | wc -l\ndon't\nEND",
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			res := Tokenize(line)
			assert.True(t, res.Complete)
			assert.Empty(t, res.Unmatched)
			assert.Empty(t, res.PendingHeredoc)
		})
	}
}

func TestTokenize_unbalanced(t *testing.T) {
	cases := map[string]struct {
		line          string
		wantUnmatched string
	}{
		"double":                {`echo "a b`, `"`},
		"single":                {`echo 'a b`, `'`},
		"backtick":              {"echo `ls", "`"},
		"three double":          {`echo "a" "b`, `"`},
		"subst":                 {`echo $(ls`, `(`},
		"brace":                 {`echo ${HOME`, `{`},
		"quote inside subst":    {`echo "$(echo 'x`, `"('`},
		"subst inside dquote":   {`echo "$(date`, `"(`},
		"escaped quote ignored": {`echo "a\"`, `"`},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			res := Tokenize(tc.line)
			assert.False(t, res.Complete)
			assert.Equal(t, tc.wantUnmatched, res.Unmatched)
		})
	}
}

func TestTokenize_unterminatedQuoteSuppressesToken(t *testing.T) {
	res := Tokenize(`echo "a b`)

	assert.Equal(t, []Token{{Quote: Unquoted, Text: "echo"}}, res.Tokens)
}

func TestTokenize_heredoc(t *testing.T) {
	cases := map[string]struct {
		line        string
		wantPending string
	}{
		"no body":         {"cat <<EOF", "EOF"},
		"spaced":          {"cat << EOF", "EOF"},
		"partial body":    {"cat <<EOF\nline one", "EOF"},
		"terminated":      {"cat <<EOF\nline one\nEOF", ""},
		"same line":       {"cat <<EOF EOF", "EOF"},
		"quoted body":     {"cat <<EOF\nit's\nEOF", ""},
		"quoted delim":    {"cat <<'EOF'\nx\nEOF", ""},
		"indented close":  {"cat <<EOF\nx\n  EOF  ", ""},
		"missing closing": {"cat <<END\nEND2", "END"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			res := Tokenize(tc.line)
			assert.Empty(t, res.Unmatched)
			assert.Equal(t, tc.wantPending, res.PendingHeredoc)
			assert.Equal(t, tc.wantPending == "", res.Complete)
		})
	}
}

func TestQuoteKind_String(t *testing.T) {
	assert.Equal(t, "none", Unquoted.String())
	assert.Equal(t, "single", SingleQuoted.String())
	assert.Equal(t, "double", DoubleQuoted.String())
	assert.Equal(t, "backtick", Backticked.String())
	assert.Equal(t, "QuoteKind(9)", QuoteKind(9).String())
}
