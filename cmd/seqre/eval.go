package main

import (
	"fmt"

	"github.com/benbjohnson/seqre"
	"github.com/spf13/cobra"
)

// EvalCommand represents a command for simplifying a membership constraint.
type EvalCommand struct{}

// NewEvalCommand returns a new instance of EvalCommand.
func NewEvalCommand() *EvalCommand {
	return &EvalCommand{}
}

// Command returns the cobra command for "eval".
func (c *EvalCommand) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "eval REGEX STRING",
		Short: "simplify the membership of a string in a regex",
		Long: `Eval builds the term (seq.in_re STRING REGEX), simplifies it and prints
the result next to the value computed by the concrete evaluator.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd, args[0], args[1])
		},
	}
}

// Run executes the "eval" subcommand.
func (c *EvalCommand) Run(cmd *cobra.Command, pattern, s string) error {
	rw := newRewriter(cmd)
	a := rw.Arena()

	r, err := ParseRegex(a, pattern)
	if err != nil {
		return err
	}
	e := a.InRe(a.Str(s), r)

	simplified, err := seqre.NewSimplifier(rw).Simplify(e)
	if err != nil {
		return err
	}
	value, err := seqre.NewExprEvaluator(a, nil).Evaluate(e)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "term:       %s\n", e)
	fmt.Fprintf(cmd.OutOrStdout(), "simplified: %s\n", simplified)
	fmt.Fprintf(cmd.OutOrStdout(), "value:      %s\n", value)
	return nil
}
