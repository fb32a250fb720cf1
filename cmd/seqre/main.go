package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/benbjohnson/seqre"
	"github.com/benbjohnson/seqre/sat"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// NewRootCommand returns the seqre command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seqre",
		Short: "Seqre simplifies and decides string and regex constraints.",
		Long: `Seqre rewrites string, sequence and regex terms to simpler equivalent
terms and decides regex membership with symbolic derivatives.

Regexes are given in Go regexp syntax and always match the whole string.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if GetFlag(cmd, "verbose") {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	cmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
	cmd.PersistentFlags().Bool("no-coalesce", false, "keep string literals as concatenations of units")
	cmd.PersistentFlags().Int("max-cache", seqre.DefaultMaxCacheSize, "maximum number of memoized results")
	cmd.PersistentFlags().Int("max-steps", seqre.DefaultMaxSteps, "maximum number of rewrite steps per term")

	cmd.AddCommand(NewEvalCommand().Command())
	cmd.AddCommand(NewMatchCommand().Command())
	cmd.AddCommand(NewDerivCommand().Command())
	return cmd
}

// newRewriter returns a rewriter configured from the persistent flags.
func newRewriter(cmd *cobra.Command) *seqre.Rewriter {
	config := seqre.DefaultConfig()
	config.CoalesceChars = !GetFlag(cmd, "no-coalesce")
	config.MaxCacheSize = GetInt(cmd, "max-cache")
	config.MaxSteps = GetInt(cmd, "max-steps")

	a := seqre.NewArena()
	return seqre.NewRewriter(a, sat.NewSolver(a), config).WithContext(cmd.Context())
}

// GetFlag gets an expected boolean flag, or panics if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		panic(err)
	}
	return r
}

// GetInt gets an expected integer flag, or panics if an error arises.
func GetInt(cmd *cobra.Command, flag string) int {
	r, err := cmd.Flags().GetInt(flag)
	if err != nil {
		panic(err)
	}
	return r
}
