package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPipeline(t *testing.T) {
	cases := map[string]struct {
		line           string
		wantArgv       [][]string
		wantBackground bool
	}{
		"two stages":      {line: "echo hi | wc -l", wantArgv: [][]string{{"echo", "hi"}, {"wc", "-l"}}},
		"background":      {line: "sleep 5 &", wantArgv: [][]string{{"sleep", "5"}}, wantBackground: true},
		"background glued": {line: "sleep 5&", wantArgv: [][]string{{"sleep", "5"}}, wantBackground: true},
		"quoted amp":      {line: `echo '&'`, wantArgv: [][]string{{"echo", "&"}}},
		"quoted pipe":     {line: `echo "a|b" | cat`, wantArgv: [][]string{{"echo", "a|b"}, {"cat"}}},
		"glued argument":  {line: `git commit --message="a b"`, wantArgv: [][]string{{"git", "commit", "--message=a b"}}},
		"three stages":    {line: "a|b|c", wantArgv: [][]string{{"a"}, {"b"}, {"c"}}},
		"empty":           {line: "  "},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			p, err := BuildPipeline(tc.line)
			require.NoError(t, err)

			var argv [][]string
			for _, s := range p.Stages {
				argv = append(argv, s.Argv())
			}
			assert.Equal(t, tc.wantArgv, argv)
			assert.Equal(t, tc.wantBackground, p.Background)
			assert.Equal(t, tc.line, p.Raw)
		})
	}
}

func TestBuildPipeline_redirections(t *testing.T) {
	p, err := BuildPipeline("make 2>&1 >build.log | tee out")
	require.NoError(t, err)
	require.Len(t, p.Stages, 2)

	assert.Equal(t, []string{"make"}, p.Stages[0].Argv())
	assert.Equal(t, []Redirection{
		{Kind: DupFD, SourceFD: 2, TargetFD: 1},
		{Kind: Truncate, SourceFD: 1, TargetPath: "build.log"},
	}, p.Stages[0].Redirections)
	assert.Empty(t, p.Stages[1].Redirections)

	p, err = BuildPipeline(`echo "a"2 > f`)
	require.NoError(t, err)
	require.Len(t, p.Stages, 1)

	assert.Equal(t, []string{"echo", "a2"}, p.Stages[0].Argv())
	assert.Equal(t, []Redirection{{Kind: Truncate, SourceFD: 1, TargetPath: "f"}}, p.Stages[0].Redirections)
}

func TestBuildPipeline_input(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		p, err := BuildPipeline("sort < names.txt")
		require.NoError(t, err)
		require.Len(t, p.Stages, 1)

		assert.Equal(t, []string{"sort"}, p.Stages[0].Argv())
		assert.Equal(t, &Input{Kind: InputFile, Path: "names.txt"}, p.Stages[0].Input)
	})

	t.Run("heredoc", func(t *testing.T) {
		p, err := BuildPipeline("cat <<EOF | wc -l\none\ntwo\nEOF")
		require.NoError(t, err)
		require.Len(t, p.Stages, 2)

		assert.Equal(t, []string{"cat"}, p.Stages[0].Argv())
		assert.Equal(t, &Input{Kind: InputHeredoc, Delimiter: "EOF", Body: []string{"one", "two"}}, p.Stages[0].Input)
		assert.Equal(t, []string{"wc", "-l"}, p.Stages[1].Argv())
		assert.Nil(t, p.Stages[1].Input)
	})
}

func TestBuildPipeline_errors(t *testing.T) {
	cases := map[string]struct {
		line      string
		wantRedir bool
	}{
		"leading pipe":     {line: "| wc"},
		"trailing pipe":    {line: "ls |"},
		"double pipe":      {line: "ls | | wc"},
		"unterminated":     {line: `echo "hi`},
		"bad redirect":     {line: "ls >", wantRedir: true},
		"bad dup":          {line: "ls 2>&", wantRedir: true},
		"missing input":    {line: "sort <", wantRedir: true},
		"heredoc no delim": {line: "cat <<"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			_, err := BuildPipeline(tc.line)
			if tc.wantRedir {
				var redirErr *RedirectionError
				assert.ErrorAs(t, err, &redirErr)
				return
			}
			var syntaxErr *SyntaxError
			assert.ErrorAs(t, err, &syntaxErr)
		})
	}
}

func TestPipeline_String(t *testing.T) {
	p, err := BuildPipeline(`grep -v "a b" log 2>/dev/null | sort &`)
	require.NoError(t, err)

	assert.Equal(t, `grep -v 'a b' log 2>/dev/null | sort &`, p.String())
}

func TestStage_PlainName(t *testing.T) {
	cases := map[string]struct {
		line   string
		want   string
		wantOk bool
	}{
		"plain":  {"cd /tmp", "cd", true},
		"quoted": {`"cd" /tmp`, "", false},
		"glued":  {`c"d" /tmp`, "", false},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			p, err := BuildPipeline(tc.line)
			require.NoError(t, err)

			name, ok := p.Stages[0].PlainName()
			assert.Equal(t, tc.want, name)
			assert.Equal(t, tc.wantOk, ok)
		})
	}
}
