// Package core holds the interactive shell: its state, the read loop and the
// builtin commands. Parsing lives in core/shell and process management in
// core/executor and core/jobs.
package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"sort"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/anmitsu/go-shlex"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/josephlewis42/mumsh/core/config"
	"github.com/josephlewis42/mumsh/core/executor"
	"github.com/josephlewis42/mumsh/core/jobs"
	"github.com/josephlewis42/mumsh/core/logger"
	"github.com/josephlewis42/mumsh/core/shell"
	"github.com/sajari/fuzzy"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// afs is the filesystem configuration is read from.
var afs afero.Fs = afero.NewOsFs()

var promptEscapes = strings.NewReplacer(
	`\033`, "\033",
	`\e`, "\033",
	`\[`, "",
	`\]`, "",
)

// Options configure a new Shell.
type Options struct {
	Config *config.Configuration
	// ConfigPath is watched and reloaded when set.
	ConfigPath string

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Env defaults to os.Environ.
	Env []string
	Log *zap.Logger

	// Interactive traps signals and, if Config.JobControl is set and Stdin is
	// a terminal, enables job control.
	Interactive bool
}

// Shell is the state of a running shell. It is owned by a single goroutine.
type Shell struct {
	Config   *config.Configuration
	Env      *Env
	Jobs     *jobs.Table
	Executor *executor.Executor
	Printer  *logger.Printer
	Log      *zap.Logger

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Set to true to quit the shell
	Quit     bool
	exitCode int
	lastRet  int

	dir     string
	prevDir string

	aliases map[string]string
	model   *fuzzy.Model

	// stdio and stage belong to the running builtin.
	stdio executor.Stdio
	stage *shell.Stage

	Readline   *readline.Instance
	configPath string
	watcher    *config.Watcher
	signals    *signalTrap
	terminal   *executor.Terminal
	toClose    listCloser
}

var _ executor.Builtins = (*Shell)(nil)

// NewShell sets up the environment, job control and signal handling.
func NewShell(opts Options) (*Shell, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	environ := opts.Env
	if environ == nil {
		environ = os.Environ()
	}

	s := &Shell{
		Config:     cfg,
		Env:        NewEnvFromList(environ),
		Log:        log,
		Stdin:      opts.Stdin,
		Stdout:     opts.Stdout,
		Stderr:     opts.Stderr,
		configPath: opts.ConfigPath,
	}
	s.Printer = logger.NewPrinter(s.Stderr, colorize(cfg.Color, s.Stderr))
	s.initEnv()

	if cfg.EnvFile != "" {
		path := config.ExpandHome(cfg.EnvFile, s.Env.Getenv(EnvHome))
		vars, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("env_file: %w", err)
		}
		s.Env.Merge(vars)
	}
	s.setAliases(cfg.Aliases)

	if opts.Interactive {
		if cfg.JobControl {
			// Has to happen before SIGTTIN is trapped.
			t, err := executor.OpenTerminal(s.Stdin, log)
			if err != nil {
				return nil, fmt.Errorf("job control: %w", err)
			}
			s.terminal = t
		}
		s.signals = trapSignals()
		s.toClose = append(s.toClose, s.signals)

		if s.configPath != "" {
			w, err := config.Watch(s.configPath, log)
			if err != nil {
				log.Warn("config watch disabled", zap.Error(err))
			} else {
				s.watcher = w
				s.toClose = append(s.toClose, w)
			}
		}
	}

	s.Jobs = jobs.NewTable(s.Stderr, log)
	s.Executor = &executor.Executor{
		Stdin:    s.Stdin,
		Stdout:   s.Stdout,
		Stderr:   s.Stderr,
		Jobs:     s.Jobs,
		Builtins: s,
		Env:      s.Env,
		Suggest:  s.suggest,
		Printer:  s.Printer,
		Log:      log,
	}
	if s.terminal != nil {
		s.Executor.Terminal = s.terminal
	}

	return s, nil
}

func colorize(mode string, f *os.File) bool {
	switch mode {
	case "always":
		color.NoColor = false
		return true
	case "never":
		return false
	default:
		return term.IsTerminal(int(f.Fd()))
	}
}

// initEnv sets up the variables the prompt and cd depend on.
func (s *Shell) initEnv() {
	if wd, err := os.Getwd(); err == nil {
		s.dir = wd
		s.Env.Setenv(EnvPWD, wd)
	}
	if s.Env.Getenv(EnvHome) == "" {
		if home, err := os.UserHomeDir(); err == nil {
			s.Env.Setenv(EnvHome, home)
		}
	}
	if s.Env.Getenv(EnvUser) == "" {
		if u, err := user.Current(); err == nil {
			s.Env.Setenv(EnvUser, u.Username)
		}
	}
	if s.Env.Getenv(EnvHostname) == "" {
		if host, err := os.Hostname(); err == nil {
			s.Env.Setenv(EnvHostname, host)
		}
	}
}

// setAliases replaces the alias table and retrains the suggestion model on
// builtin and alias names.
func (s *Shell) setAliases(aliases map[string]string) {
	s.aliases = make(map[string]string, len(aliases))
	for k, v := range aliases {
		s.aliases[k] = v
	}

	var words []string
	for name := range AllBuiltins {
		words = append(words, name)
	}
	for name := range s.aliases {
		words = append(words, name)
	}
	sort.Strings(words)

	model := fuzzy.NewModel()
	model.SetThreshold(1)
	model.SetDepth(1)
	model.Train(words)
	s.model = model
}

// suggest proposes a known command name close to name.
func (s *Shell) suggest(name string) string {
	if s.model == nil {
		return ""
	}
	if guess := s.model.SpellCheck(name); guess != name {
		return guess
	}
	return ""
}

// LastStatus returns the status of the last command.
func (s *Shell) LastStatus() int {
	return s.lastRet
}

// ExitCode returns the status the shell should exit with.
func (s *Shell) ExitCode() int {
	if s.Quit {
		return s.exitCode
	}
	return s.lastRet
}

func (s *Shell) prompt() string {
	prompt := s.Config.Prompt
	if prompt == "" {
		prompt = config.Default().Prompt
	}
	prompt = strings.ReplaceAll(prompt, `\u`, s.Env.Getenv(EnvUser))
	prompt = strings.ReplaceAll(prompt, `\h`, s.Env.Getenv(EnvHostname))

	pwd := s.dir
	home := s.Env.Getenv(EnvHome)
	if home != "" && (pwd == home || strings.HasPrefix(pwd, home+"/")) {
		pwd = "~" + strings.TrimPrefix(pwd, home)
	}

	prompt = strings.ReplaceAll(prompt, `\w`, pwd)

	if os.Geteuid() == 0 {
		prompt = strings.ReplaceAll(prompt, `\$`, "#")
	} else {
		prompt = strings.ReplaceAll(prompt, `\$`, "$")
	}

	return promptEscapes.Replace(prompt)
}

// RunLine runs a complete command line: pipelines joined by &&, || and ;,
// each optionally put in the background with &. It returns the status of the
// last command that ran.
func (s *Shell) RunLine(line string) int {
	segs := shell.SplitOperators(line)
	cont, err := shell.CheckSplit(segs)
	if err == nil && cont != shell.Complete {
		err = &shell.SyntaxError{Msg: "unexpected end of file"}
	}
	if err != nil {
		s.Printer.Errorf("%v", err)
		s.lastRet = 2
		return s.lastRet
	}

	prev := shell.OpSeq
	for i, seg := range segs {
		if seg.IsOperator() {
			prev = seg.Op
			continue
		}

		run := true
		switch prev {
		case shell.OpAnd:
			run = s.lastRet == 0
		case shell.OpOr:
			run = s.lastRet != 0
		}
		if !run {
			continue
		}

		text := seg.Text
		if i+1 < len(segs) && segs[i+1].Op == shell.OpBackground {
			text += " &"
		}
		s.lastRet = s.runPipeline(text)

		if s.Quit {
			break
		}
	}
	return s.lastRet
}

func (s *Shell) runPipeline(text string) int {
	p, err := shell.BuildPipeline(text)
	if err != nil {
		s.Printer.Errorf("%v", err)
		var syntaxErr *shell.SyntaxError
		if errors.As(err, &syntaxErr) {
			return 2
		}
		return 1
	}
	if err := s.expandAliases(p); err != nil {
		s.Printer.Errorf("%v", err)
		return 1
	}

	s.Log.Debug("execute", zap.Stringer("pipeline", p))
	return s.Executor.Execute(p)
}

// expandAliases replaces the unquoted first word of each stage with its alias
// value. Alias values aren't expanded again.
func (s *Shell) expandAliases(p *shell.Pipeline) error {
	for _, stage := range p.Stages {
		name, ok := stage.PlainName()
		if !ok {
			continue
		}
		value, ok := s.aliases[name]
		if !ok {
			continue
		}

		words, err := shlex.Split(value, true)
		if err != nil {
			return fmt.Errorf("alias %s: %w", name, err)
		}
		args := make([]shell.Token, 0, len(words)+len(stage.Args)-1)
		for _, w := range words {
			args = append(args, shell.Token{Text: w, Line: stage.Args[0].Line})
		}
		stage.Args = append(args, stage.Args[1:]...)
	}
	return nil
}

// RunBuiltin runs stage if it names a builtin.
func (s *Shell) RunBuiltin(stage *shell.Stage, stdio executor.Stdio) (int, bool) {
	name, ok := stage.PlainName()
	if !ok {
		return 0, false
	}
	builtin, ok := AllBuiltins[name]
	if !ok {
		return 0, false
	}

	prevStdio, prevStage := s.stdio, s.stage
	s.stdio, s.stage = stdio, stage
	defer func() { s.stdio, s.stage = prevStdio, prevStage }()

	return builtin.Main(s, stage.Argv()), true
}

// Reload applies a changed configuration file.
func (s *Shell) Reload() error {
	cfg, err := config.Load(afs, s.configPath)
	if err != nil {
		return err
	}
	s.Config = cfg
	s.setAliases(cfg.Aliases)
	s.Log.Info("config reloaded", zap.String("path", s.configPath))
	return nil
}

// Close releases the terminal and stops background helpers.
func (s *Shell) Close() error {
	if s.terminal != nil {
		_ = s.terminal.Reclaim()
	}
	return s.toClose.Close()
}

type listCloser []io.Closer

func (lc listCloser) Close() error {
	var lastErr error
	for _, v := range lc {
		if err := v.Close(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}
