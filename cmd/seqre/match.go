package main

import (
	"fmt"

	"github.com/benbjohnson/seqre"
	"github.com/spf13/cobra"
)

// MatchCommand represents a command for matching strings against a regex.
type MatchCommand struct{}

// NewMatchCommand returns a new instance of MatchCommand.
func NewMatchCommand() *MatchCommand {
	return &MatchCommand{}
}

// Command returns the cobra command for "match".
func (c *MatchCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match REGEX STRING...",
		Short: "match strings against a regex with derivatives",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd, args[0], args[1:])
		},
	}
	cmd.Flags().Bool("automaton", false, "also match with the compiled symbolic automaton")
	return cmd
}

// Run executes the "match" subcommand.
func (c *MatchCommand) Run(cmd *cobra.Command, pattern string, inputs []string) error {
	rw := newRewriter(cmd)
	a := rw.Arena()

	r, err := ParseRegex(a, pattern)
	if err != nil {
		return err
	}

	var aut *seqre.Automaton
	if GetFlag(cmd, "automaton") {
		if aut, err = seqre.NewRegexCompiler(a, seqre.NewBooleanAlgebra(a, nil)).Compile(r); err != nil {
			return err
		}
	}

	m := seqre.NewMatcher(rw)
	for _, s := range inputs {
		ok, err := m.Match([]rune(s), r)
		if err != nil {
			return fmt.Errorf("match %q: %w", s, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%q\t%v", s, ok)

		if aut != nil {
			accepted, err := aut.Accepts(a, []rune(s))
			if err != nil {
				return fmt.Errorf("accepts %q: %w", s, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\t%v", accepted)
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "states: %d\n", m.NumStates())
	return nil
}
