package cmd

import (
	"fmt"

	"github.com/josephlewis42/mumsh/core/shell"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

type parseReport struct {
	Line         string             `json:"line"`
	Continuation shell.Continuation `json:"continuation"`
	Error        string             `json:"error,omitempty"`
	Segments     []shell.Segment    `json:"segments,omitempty"`
	Commands     []commandReport    `json:"commands,omitempty"`
}

type commandReport struct {
	Text     string          `json:"text"`
	Tokens   []shell.Token   `json:"tokens"`
	Pipeline *shell.Pipeline `json:"pipeline,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// parseLine runs a line through every parsing step without executing it.
func parseLine(line string) parseReport {
	report := parseReport{Line: line}

	cont, err := shell.Classify(line)
	report.Continuation = cont
	report.Segments = shell.SplitOperators(line)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	if cont != shell.Complete {
		return report
	}

	segs := report.Segments
	for i, seg := range segs {
		if seg.IsOperator() {
			continue
		}
		text := seg.Text
		if i+1 < len(segs) && segs[i+1].Op == shell.OpBackground {
			text += " &"
		}

		cmd := commandReport{
			Text:   text,
			Tokens: shell.Tokenize(text).Tokens,
		}
		p, err := shell.BuildPipeline(text)
		if err != nil {
			cmd.Error = err.Error()
		} else {
			cmd.Pipeline = p
		}
		report.Commands = append(report.Commands, cmd)
	}
	return report
}

var parseCmd = &cobra.Command{
	Use:   "parse LINE...",
	Short: "Show how command lines are split, tokenized and built into pipelines.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		var reports []parseReport
		for _, line := range args {
			reports = append(reports, parseLine(line))
		}

		out, err := yaml.Marshal(reports)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), string(out))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
