package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/josephlewis42/mumsh/core/executor"
	"github.com/josephlewis42/mumsh/core/jobs"
	"github.com/josephlewis42/mumsh/core/shell"
	"github.com/pborman/getopt/v2"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// BuiltinNames returns the sorted names of all builtins.
func BuiltinNames() []string {
	var names []string
	for k := range AllBuiltins {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (s *Shell) stdout() io.Writer {
	if s.stdio.Out != nil {
		return s.stdio.Out
	}
	return s.Stdout
}

func (s *Shell) stderr() io.Writer {
	if s.stdio.Err != nil {
		return s.stdio.Err
	}
	return s.Stderr
}

// argQuote returns how the i'th argument of the running builtin started out
// quoted.
func (s *Shell) argQuote(i int) shell.QuoteKind {
	if s.stage == nil {
		return shell.Unquoted
	}
	n := -1
	for _, tok := range s.stage.Args {
		if !tok.Glued || n < 0 {
			n++
		}
		if n == i {
			return tok.Quote
		}
	}
	return shell.Unquoted
}

// Cd is the cd shell builtin
func Cd(s *Shell, args []string) int {
	var (
		target string
		show   bool
	)
	switch len(args) {
	case 1:
		target = s.Env.Getenv(EnvHome)
		if target == "" {
			fmt.Fprintf(s.stderr(), "%s: HOME not set\n", args[0])
			return 1
		}
	case 2:
		target = args[1]
		switch {
		case target == "-":
			if s.prevDir == "" {
				fmt.Fprintf(s.stderr(), "%s: OLDPWD not set\n", args[0])
				return 1
			}
			target, show = s.prevDir, true
		case s.argQuote(1) != shell.SingleQuoted:
			target = s.expandTilde(target)
		}
	case 3:
		if !strings.Contains(s.dir, args[1]) {
			fmt.Fprintf(s.stderr(), "%s: string not in pwd: %s\n", args[0], args[1])
			return 1
		}
		target, show = strings.Replace(s.dir, args[1], args[2], 1), true
	default:
		fmt.Fprintf(s.stderr(), "%s: too many arguments\n", args[0])
		return 1
	}

	dir, viaCDPath := s.resolveDir(target)
	if err := os.Chdir(dir); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			err = pathErr.Err
		}
		fmt.Fprintf(s.stderr(), "%s: %s: %v\n", args[0], target, err)
		return 1
	}

	s.prevDir, s.dir = s.dir, dir
	s.Env.Setenv(EnvOldPWD, s.prevDir)
	s.Env.Setenv(EnvPWD, s.dir)

	if show || viaCDPath {
		fmt.Fprintln(s.stdout(), s.dir)
	}
	return 0
}

func (s *Shell) expandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		return s.Env.Getenv(EnvHome) + path[1:]
	}
	return path
}

// resolveDir makes target absolute. Relative names that don't exist under
// the current directory are looked up in CDPATH.
func (s *Shell) resolveDir(target string) (dir string, viaCDPath bool) {
	if filepath.IsAbs(target) {
		return filepath.Clean(target), false
	}

	local := filepath.Join(s.dir, target)
	if strings.HasPrefix(target, ".") || isDir(local) {
		return local, false
	}

	for _, base := range filepath.SplitList(s.Env.Getenv(EnvCDPath)) {
		if base == "" {
			continue
		}
		if !filepath.IsAbs(base) {
			base = filepath.Join(s.dir, base)
		}
		if candidate := filepath.Join(base, target); isDir(candidate) {
			return candidate, true
		}
	}
	return local, false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Which locates commands the way the shell would run them.
func Which(s *Shell, args []string) int {
	opts := getopt.New()
	all := opts.Bool('a', "print all matches, not just the first")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt || opts.NArgs() == 0 {
		w := s.stderr()
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "usage: which [-a] NAME...")
		fmt.Fprintln(w, "Locate a command.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		if *helpOpt {
			return 0
		}
		return 1
	}

	status := 0
	for _, name := range opts.Args() {
		var found []string
		if value, ok := s.aliases[name]; ok {
			found = append(found, fmt.Sprintf("%s: aliased to %s", name, value))
		}
		if _, ok := AllBuiltins[name]; ok {
			found = append(found, fmt.Sprintf("%s: shell built-in command", name))
		}
		found = append(found, s.lookAll(name)...)

		if len(found) == 0 {
			fmt.Fprintf(s.stderr(), "%s not found\n", name)
			status = 1
			continue
		}
		if !*all {
			found = found[:1]
		}
		for _, line := range found {
			fmt.Fprintln(s.stdout(), line)
		}
	}
	return status
}

// lookAll returns every executable name resolves to on PATH.
func (s *Shell) lookAll(name string) []string {
	if strings.Contains(name, "/") {
		if path, err := executor.LookPath("", name); err == nil {
			return []string{path}
		}
		return nil
	}

	var out []string
	for _, dir := range filepath.SplitList(s.Env.Getenv(EnvPath)) {
		if dir == "" {
			dir = "."
		}
		if path, err := executor.LookPath(dir, name); err == nil {
			out = append(out, path)
		}
	}
	return out
}

// Jobs lists the job table.
func Jobs(s *Shell, args []string) int {
	opts := getopt.New()
	long := opts.Bool('l', "list process IDs")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := s.stderr()
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "usage: jobs [-l]")
		fmt.Fprintln(w, "Display status of jobs.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return 1
	}

	s.Jobs.Poll()
	for _, job := range s.Jobs.Jobs() {
		if *long {
			var pids []string
			for _, pid := range job.Pids() {
				pids = append(pids, strconv.Itoa(pid))
			}
			fmt.Fprintf(s.stdout(), "[%d]  %s  %s  %s\n", job.ID, job.State(), strings.Join(pids, " "), job.Command)
			continue
		}
		fmt.Fprintf(s.stdout(), "[%d]  %s  %s\n", job.ID, job.State(), job.Command)
	}
	return 0
}

// findJob resolves a job spec: empty for the current job, otherwise %N or N.
func (s *Shell) findJob(spec string) (*jobs.Job, error) {
	if spec == "" {
		if job, ok := s.Jobs.Current(); ok {
			return job, nil
		}
		return nil, errors.New("no current job")
	}

	id, err := strconv.Atoi(strings.TrimPrefix(spec, "%"))
	if err != nil {
		return nil, fmt.Errorf("%s: no such job", spec)
	}
	if job, ok := s.Jobs.ByID(id); ok {
		return job, nil
	}
	return nil, fmt.Errorf("%s: no such job", spec)
}

func jobArg(s *Shell, args []string) (*jobs.Job, bool) {
	if len(args) > 2 {
		fmt.Fprintf(s.stderr(), "%s: too many arguments\n", args[0])
		return nil, false
	}
	spec := ""
	if len(args) == 2 {
		spec = args[1]
	}

	job, err := s.findJob(spec)
	if err != nil {
		fmt.Fprintf(s.stderr(), "%s: %v\n", args[0], err)
		return nil, false
	}
	return job, true
}

// Fg continues a job in the foreground.
func Fg(s *Shell, args []string) int {
	job, ok := jobArg(s, args)
	if !ok {
		return 1
	}

	fmt.Fprintln(s.stdout(), strings.TrimSuffix(job.Command, " &"))
	return s.Executor.ResumeForeground(job)
}

// Bg continues a stopped job in the background.
func Bg(s *Shell, args []string) int {
	job, ok := jobArg(s, args)
	if !ok {
		return 1
	}
	if !job.Stopped() {
		fmt.Fprintf(s.stderr(), "%s: job %d already in background\n", args[0], job.ID)
		return 0
	}

	if err := s.Executor.Continue(job); err != nil {
		fmt.Fprintf(s.stderr(), "%s: %v\n", args[0], err)
		return 1
	}
	command := job.Command
	if !strings.HasSuffix(command, " &") {
		command += " &"
	}
	fmt.Fprintf(s.stdout(), "[%d]  %s\n", job.ID, command)
	return 0
}

// Exit quits the shell
func Exit(s *Shell, args []string) int {
	code := s.lastRet
	switch len(args) {
	case 1:
	case 2:
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(s.stderr(), "%s: %s: numeric argument required\n", args[0], args[1])
			code = 2
			break
		}
		code = n & 0xff
	default:
		fmt.Fprintf(s.stderr(), "%s: too many arguments\n", args[0])
		return 1
	}

	s.Quit = true
	s.exitCode = code
	return code
}

// Unset removes variables from the environment.
func Unset(s *Shell, args []string) int {
	opts := getopt.New()
	opts.Bool('v', "treat NAME as a variable")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := s.stderr()
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "usage: unset [-v] [NAME...]")
		fmt.Fprintln(w, "Unset shell variables.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return 1
	}

	for _, name := range opts.Args() {
		s.Env.Unsetenv(name)
	}
	return 0
}

func Help(s *Shell, args []string) int {
	w := s.stdout()
	fmt.Fprintln(w, "mumsh, a small job control shell")
	fmt.Fprintln(w, "These shell commands are defined internally.  Type `help' to see this list.")
	fmt.Fprintln(w, "Use `name --help' to find out more about the command `name'.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Builtins:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Join(BuiltinNames(), "\n"))

	return 0
}

func init() {
	AllBuiltins["bg"] = ShellBuiltinFunc(Bg)
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["fg"] = ShellBuiltinFunc(Fg)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
	AllBuiltins["jobs"] = ShellBuiltinFunc(Jobs)
	AllBuiltins["unset"] = ShellBuiltinFunc(Unset)
	AllBuiltins["which"] = ShellBuiltinFunc(Which)
}
