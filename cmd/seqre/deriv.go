package main

import (
	"fmt"

	"github.com/benbjohnson/seqre"
	"github.com/spf13/cobra"
)

// DerivCommand represents a command for printing symbolic derivatives.
type DerivCommand struct{}

// NewDerivCommand returns a new instance of DerivCommand.
func NewDerivCommand() *DerivCommand {
	return &DerivCommand{}
}

// Command returns the cobra command for "deriv".
func (c *DerivCommand) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "deriv REGEX",
		Short: "print the successors of a regex by a symbolic character",
		Long: `Deriv computes the derivative of REGEX by a character variable x and
prints each reachable residual regex with the condition on x leading to it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd, args[0])
		},
	}
}

// Run executes the "deriv" subcommand.
func (c *DerivCommand) Run(cmd *cobra.Command, pattern string) error {
	rw := newRewriter(cmd)
	a := rw.Arena()

	r, err := ParseRegex(a, pattern)
	if err != nil {
		return err
	}

	x := a.Var("x", seqre.SortChar)
	cofactors, err := rw.Successors(x, r)
	if err != nil {
		return err
	}

	simp := seqre.NewSimplifier(rw)
	for _, cof := range cofactors {
		next, err := simp.Simplify(cof.Re)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", cof.Cond, next)
	}
	return nil
}
