package shell

import (
	"fmt"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// InputKind is the form of an input redirection.
type InputKind int

const (
	InputFile InputKind = iota + 1
	InputHeredoc
)

func (k InputKind) String() string {
	switch k {
	case InputFile:
		return "file"
	case InputHeredoc:
		return "heredoc"
	}
	return fmt.Sprintf("InputKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k InputKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Input is a parsed input redirection. It is recorded on the stage but is not
// connected to the command's stdin.
type Input struct {
	Kind      InputKind `json:"kind"`
	Path      string    `json:"path,omitempty"`
	Delimiter string    `json:"delimiter,omitempty"`
	Body      []string  `json:"body,omitempty"`
}

func (in *Input) String() string {
	if in.Kind == InputHeredoc {
		return "<<" + quote(in.Delimiter)
	}
	return "<" + quote(in.Path)
}

// Stage is a single command in a pipeline.
type Stage struct {
	Args         []Token       `json:"args"`
	Redirections []Redirection `json:"redirections,omitempty"`
	Input        *Input        `json:"input,omitempty"`
}

// Argv returns the arguments of the stage, joining glued tokens.
func (s *Stage) Argv() []string {
	var argv []string
	for _, tok := range s.Args {
		if tok.Glued && len(argv) > 0 {
			argv[len(argv)-1] += tok.Text
			continue
		}
		argv = append(argv, tok.Text)
	}
	return argv
}

// Name returns argv[0], or the empty string for a stage without arguments.
func (s *Stage) Name() string {
	if argv := s.Argv(); len(argv) > 0 {
		return argv[0]
	}
	return ""
}

// PlainName returns argv[0] if it was written without any quoting, which is
// required for it to name a builtin or alias.
func (s *Stage) PlainName() (string, bool) {
	if len(s.Args) == 0 || s.Args[0].Quote != Unquoted {
		return "", false
	}
	if len(s.Args) > 1 && s.Args[1].Glued {
		return "", false
	}
	return s.Args[0].Text, true
}

// String renders the stage back into shell syntax.
func (s *Stage) String() string {
	var words []string
	for _, arg := range s.Argv() {
		words = append(words, quote(arg))
	}
	if s.Input != nil {
		words = append(words, s.Input.String())
	}
	for _, r := range s.Redirections {
		words = append(words, r.String())
	}
	return strings.Join(words, " ")
}

// Pipeline is a chain of stages connected by pipes.
type Pipeline struct {
	Stages     []*Stage `json:"stages"`
	Raw        string   `json:"raw"`
	Background bool     `json:"background,omitempty"`
}

func (p *Pipeline) String() string {
	var parts []string
	for _, s := range p.Stages {
		parts = append(parts, s.String())
	}
	out := strings.Join(parts, " | ")
	if p.Background {
		out += " &"
	}
	return out
}

// BuildPipeline tokenizes a single command (no &&, || or ;) and assembles it
// into stages split on unquoted pipes. An empty line produces a pipeline with
// no stages.
func BuildPipeline(line string) (*Pipeline, error) {
	res := Tokenize(line)
	if !res.Complete {
		return nil, &SyntaxError{Msg: "unexpected end of file"}
	}

	p := &Pipeline{Raw: line}
	tokens := res.Tokens
	if n := len(tokens); n > 0 {
		last := tokens[n-1]
		switch {
		case last.Is("&"):
			p.Background = true
			tokens = tokens[:n-1]
		case last.Quote == Unquoted && strings.HasSuffix(last.Text, "&") &&
			!strings.HasSuffix(last.Text, "&&") && !strings.HasSuffix(last.Text, ">&"):
			p.Background = true
			last.Text = strings.TrimSuffix(last.Text, "&")
			tokens = append(tokens[:n-1:n-1], last)
		}
	}

	tokens, heredocs, err := extractHeredocs(tokens, strings.Split(line, "\n"))
	if err != nil {
		return nil, err
	}

	var (
		group []Token
		input *Input
	)
	finish := func() error {
		if len(group) == 0 && input == nil {
			return &SyntaxError{Near: "|"}
		}
		stage, err := buildStage(group, input)
		if err != nil {
			return err
		}
		p.Stages = append(p.Stages, stage)
		group, input = nil, nil
		return nil
	}

	if len(tokens) == 0 && len(heredocs) == 0 {
		return p, nil
	}
	for i, tok := range tokens {
		if in, ok := heredocs[i]; ok {
			input = in
		}
		if tok.Is("|") {
			if err := finish(); err != nil {
				return nil, err
			}
			continue
		}
		group = append(group, tok)
	}
	if in, ok := heredocs[len(tokens)]; ok {
		input = in
	}
	if err := finish(); err != nil {
		return nil, err
	}

	return p, nil
}

// extractHeredocs removes heredoc openers, delimiters and terminators from
// tokens. The returned map is keyed by the index, in the returned slice, of
// the token that followed the opener.
func extractHeredocs(tokens []Token, lines []string) ([]Token, map[int]*Input, error) {
	heredocs := make(map[int]*Input)
	skip := make(map[int]bool)
	var out []Token

	for i := 0; i < len(tokens); i++ {
		if skip[i] {
			continue
		}
		delim, at, ok := heredocAt(tokens, i)
		if !ok {
			if tokens[i].Quote == Unquoted && strings.HasPrefix(tokens[i].Text, "<<") && !strings.HasPrefix(tokens[i].Text, "<<<") {
				return nil, nil, &SyntaxError{Near: "newline"}
			}
			out = append(out, tokens[i])
			continue
		}

		end := heredocEnd(tokens, at, delim)
		if end < 0 {
			return nil, nil, &SyntaxError{Msg: fmt.Sprintf("here-document delimited by end-of-file (wanted %s)", strconv.Quote(delim))}
		}
		first, last := tokens[at].Line+1, tokens[end].Line
		var body []string
		if first <= last && last <= len(lines) {
			body = append(body, lines[first:last]...)
		}
		heredocs[len(out)] = &Input{Kind: InputHeredoc, Delimiter: delim, Body: body}
		skip[end] = true
		i = at
	}

	return out, heredocs, nil
}

func buildStage(tokens []Token, input *Input) (*Stage, error) {
	stage := &Stage{Input: input}

	var args []Token
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Quote != Unquoted || !strings.HasPrefix(tok.Text, "<") {
			args = append(args, tok)
			continue
		}
		path := tok.Text[1:]
		if path == "" {
			if i+1 >= len(tokens) {
				return nil, &RedirectionError{Token: tok.Text, Msg: "missing file name"}
			}
			i++
			path = tokens[i].Text
		}
		for i+1 < len(tokens) && tokens[i+1].Glued {
			i++
			path += tokens[i].Text
		}
		stage.Input = &Input{Kind: InputFile, Path: path}
	}

	residual, redirs, err := ResolveRedirections(args)
	if err != nil {
		return nil, err
	}
	stage.Args = residual
	stage.Redirections = redirs

	return stage, nil
}

// quote renders s as a single shell word.
func quote(s string) string {
	if q, err := syntax.Quote(s, syntax.LangBash); err == nil {
		return q
	}
	return strconv.Quote(s)
}
