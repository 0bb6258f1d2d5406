package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/mumsh/core/config"
	"github.com/josephlewis42/mumsh/core/shell"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Run reads and runs commands from the shell's stdin until end of input or
// exit, and returns the shell's exit status. A terminal gets line editing and
// prompts, anything else is read as a script.
func (s *Shell) Run() int {
	if !term.IsTerminal(int(s.Stdin.Fd())) {
		return s.RunScript(s.Stdin)
	}
	return s.runInteractive()
}

func (s *Shell) runInteractive() int {
	cfg := &readline.Config{
		Stdin:                  readline.NewCancelableStdin(s.Stdin),
		Stdout:                 s.Stdout,
		Stderr:                 s.Stderr,
		HistoryFile:            config.ExpandHome(s.Config.HistoryFile, s.Env.Getenv(EnvHome)),
		HistoryLimit:           s.Config.HistoryLimit,
		DisableAutoSaveHistory: true,
		InterruptPrompt:        "^C",
	}
	if err := cfg.Init(); err != nil {
		s.Printer.Errorf("readline: %v", err)
		return 1
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		s.Printer.Errorf("readline: %v", err)
		return 1
	}
	s.Readline = rl
	s.toClose = append(s.toClose, rl)

	for !s.Quit {
		s.beforePrompt()
		line, err := s.readCommand()

		switch {
		case err == io.EOF:
			fmt.Fprintln(s.Stdout, "bye~")
			return 0

		case err == readline.ErrInterrupt:
			// Interrupt clears the line, including any continuation.
			continue

		case err != nil:
			s.Printer.Errorf("readline: %v", err)
			return 1

		case strings.TrimSpace(line) == "":
			continue

		default:
			if err := rl.SaveHistory(line); err != nil {
				s.Log.Debug("history not saved", zap.Error(err))
			}
			s.RunLine(line)
		}
	}
	return s.exitCode
}

// readCommand reads lines until they form a command that can run, switching
// to the matching continuation prompt while more input is needed.
func (s *Shell) readCommand() (string, error) {
	s.Readline.SetPrompt(s.prompt())

	var buf strings.Builder
	for {
		line, err := s.Readline.Readline()
		if err != nil {
			return "", err
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)

		cont, err := shell.Classify(buf.String())
		if err != nil || cont == shell.Complete {
			// Syntax errors are reported when the line runs.
			return buf.String(), nil
		}
		s.Readline.SetPrompt(s.Config.ContinuationPrompts.For(cont))
	}
}

// beforePrompt reports job changes and reloads the configuration if it
// changed since the last prompt.
func (s *Shell) beforePrompt() {
	if s.signals == nil || s.signals.childChanged() {
		s.Jobs.Poll()
	}

	if s.watcher != nil && s.watcher.Changed() {
		if err := s.Reload(); err != nil {
			s.Printer.Errorf("config: %v", err)
		} else {
			s.Printer.Noticef("reloaded %s", config.Path(s.configPath))
		}
	}
}

// RunScript runs the commands read from r without prompts or line editing.
func (s *Shell) RunScript(r io.Reader) int {
	in := bufio.NewReader(r)

	var buf strings.Builder
	for !s.Quit {
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			s.Printer.Errorf("read: %v", err)
			return 1
		}
		eof := err != nil

		line = strings.TrimSuffix(line, "\n")
		if !eof || line != "" {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(line)
		}

		cont, classifyErr := shell.Classify(buf.String())
		if classifyErr != nil || cont == shell.Complete || eof {
			if cmd := buf.String(); strings.TrimSpace(cmd) != "" {
				s.beforePrompt()
				s.RunLine(cmd)
			}
			buf.Reset()
		}
		if eof {
			break
		}
	}
	s.beforePrompt()
	return s.ExitCode()
}
