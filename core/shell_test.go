package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/josephlewis42/mumsh/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type testShell struct {
	*Shell
	home   string
	stdout *os.File
	stderr *os.File
}

func newTestShell(t *testing.T, mutate func(*config.Configuration)) *testShell {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(wd) })

	dir := t.TempDir()
	home := filepath.Join(dir, "home")
	require.NoError(t, os.Mkdir(home, 0700))

	stdout, err := os.Create(filepath.Join(dir, "stdout"))
	require.NoError(t, err)
	stderr, err := os.Create(filepath.Join(dir, "stderr"))
	require.NoError(t, err)
	stdin, err := os.Open(os.DevNull)
	require.NoError(t, err)
	t.Cleanup(func() {
		stdout.Close()
		stderr.Close()
		stdin.Close()
	})

	cfg := config.Default()
	cfg.Color = "never"
	if mutate != nil {
		mutate(cfg)
	}

	s, err := NewShell(Options{
		Config: cfg,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		Env:    []string{"PATH=" + os.Getenv("PATH"), "HOME=" + home, "LC_ALL=C"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return &testShell{Shell: s, home: home, stdout: stdout, stderr: stderr}
}

func readAll(t *testing.T, f *os.File) string {
	t.Helper()
	contents, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	return string(contents)
}

func (ts *testShell) out(t *testing.T) string {
	return readAll(t, ts.stdout)
}

func (ts *testShell) err(t *testing.T) string {
	return readAll(t, ts.stderr)
}

func TestShell_RunLine(t *testing.T) {
	cases := map[string]struct {
		line       string
		wantStatus int
		wantOut    string
		wantErr    string
	}{
		"and runs":       {line: "true && echo yes", wantOut: "yes\n"},
		"and skips":      {line: "false && echo yes", wantStatus: 1},
		"or runs":        {line: "false || echo no", wantOut: "no\n"},
		"or skips":       {line: "true || echo no"},
		"and-or chain":   {line: "false && echo a || echo b", wantOut: "b\n"},
		"sequence":       {line: "echo a; echo b", wantOut: "a\nb\n"},
		"last status":    {line: "true; false", wantStatus: 1},
		"quoted ops":     {line: "echo 'a && b; c'", wantOut: "a && b; c\n"},
		"pipe":           {line: "echo hello | tr a-z A-Z", wantOut: "HELLO\n"},
		"not found":      {line: "no-such-command-xyz", wantStatus: 127, wantErr: "no-such-command-xyz: command not found"},
		"leading op":     {line: "&& echo a", wantStatus: 2, wantErr: "syntax error near unexpected token `&&'"},
		"double op":      {line: "echo a ; ; echo b", wantStatus: 2, wantErr: "syntax error near unexpected token `;'"},
		"trailing and":   {line: "echo a &&", wantStatus: 2, wantErr: "unexpected end of file"},
		"empty pipe":     {line: "echo a | | cat", wantStatus: 2, wantErr: "syntax error"},
		"bad redirect":   {line: "echo a >", wantStatus: 1},
		"exit stops":     {line: "exit 3; echo no", wantStatus: 3},
		"status of exit": {line: "false; exit", wantStatus: 1},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			s := newTestShell(t, nil)

			assert.Equal(t, tc.wantStatus, s.RunLine(tc.line))
			assert.Equal(t, tc.wantStatus, s.LastStatus())
			assert.Equal(t, tc.wantOut, s.out(t))
			if tc.wantErr != "" {
				assert.Contains(t, s.err(t), tc.wantErr)
			}
		})
	}
}

func TestShell_exit(t *testing.T) {
	s := newTestShell(t, nil)

	s.RunLine("exit 300")
	assert.True(t, s.Quit)
	assert.Equal(t, 44, s.ExitCode())

	s = newTestShell(t, nil)
	s.RunLine("exit nope")
	assert.True(t, s.Quit)
	assert.Equal(t, 2, s.ExitCode())
	assert.Contains(t, s.err(t), "exit: nope: numeric argument required")
}

func TestShell_aliases(t *testing.T) {
	s := newTestShell(t, func(c *config.Configuration) {
		c.Aliases = map[string]string{
			"say":  "echo hello",
			"loud": "say",
		}
	})

	assert.Equal(t, 0, s.RunLine("say world | tr a-z A-Z"))
	assert.Equal(t, "HELLO WORLD\n", s.out(t))

	// Aliases aren't expanded recursively or when quoted.
	assert.Equal(t, 127, s.RunLine("loud"))
	assert.Equal(t, 127, s.RunLine("'say' x"))
}

func TestShell_suggestion(t *testing.T) {
	s := newTestShell(t, nil)

	assert.Equal(t, 127, s.RunLine("helpp"))
	assert.Contains(t, s.err(t), "helpp: command not found, did you mean help?")
}

func TestShell_RunScript(t *testing.T) {
	s := newTestShell(t, nil)

	script := strings.Join([]string{
		"echo a &&",
		"echo b",
		"echo 'multi",
		"line'",
		"false",
		"",
	}, "\n")

	assert.Equal(t, 1, s.RunScript(strings.NewReader(script)))
	assert.Equal(t, "a\nb\nmulti\nline\n", s.out(t))
}

func TestShell_RunScript_exit(t *testing.T) {
	s := newTestShell(t, nil)

	assert.Equal(t, 4, s.RunScript(strings.NewReader("echo a\nexit 4\necho b\n")))
	assert.Equal(t, "a\n", s.out(t))
}

func TestShell_prompt(t *testing.T) {
	s := newTestShell(t, func(c *config.Configuration) {
		c.Prompt = `\e[1m\u@\h\e[0m:\w\$ `
	})
	s.Env.Setenv(EnvUser, "ada")
	s.Env.Setenv(EnvHostname, "box")
	s.dir = filepath.Join(s.home, "src")

	sign := "$"
	if os.Geteuid() == 0 {
		sign = "#"
	}
	assert.Equal(t, "\033[1mada@box\033[0m:~/src"+sign+" ", s.prompt())

	s.dir = "/opt"
	assert.Equal(t, "\033[1mada@box\033[0m:/opt"+sign+" ", s.prompt())
}

func TestShell_background(t *testing.T) {
	s := newTestShell(t, nil)

	assert.Equal(t, 0, s.RunLine("sleep 30 &"))
	assert.Equal(t, 1, s.Jobs.Len())
	assert.Regexp(t, `^\[1\] \d+\n$`, s.err(t))

	assert.Equal(t, 0, s.RunLine("jobs"))
	assert.Equal(t, "[1]  running  sleep 30 &\n", s.out(t))

	job, ok := s.Jobs.ByID(1)
	require.True(t, ok)
	require.NoError(t, unix.Kill(job.Pids()[0], unix.SIGKILL))

	assert.Eventually(t, func() bool {
		s.Jobs.Poll()
		return s.Jobs.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, s.err(t), "[1]    killed (SIGKILL)")
}

func TestShell_fgNoJob(t *testing.T) {
	s := newTestShell(t, nil)

	assert.Equal(t, 1, s.RunLine("fg"))
	assert.Equal(t, 1, s.RunLine("bg %3"))
	assert.Contains(t, s.err(t), "fg: no current job")
	assert.Contains(t, s.err(t), "bg: %3: no such job")
}

func TestShell_fg(t *testing.T) {
	s := newTestShell(t, nil)

	s.RunLine("sh -c 'exit 5' &")
	assert.Equal(t, 5, s.RunLine("fg %1"))
	assert.Equal(t, "sh -c 'exit 5'\n", s.out(t))
	assert.Equal(t, 0, s.Jobs.Len())
}
