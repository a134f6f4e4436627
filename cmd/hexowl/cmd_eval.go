package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hexowl/internal/host"
	"hexowl/internal/solver"
)

var (
	programPath string
	callTexts   []string
	showPreds   []string
	watch       bool
)

var evalCmd = &cobra.Command{
	Use:   "eval --program <file.mg> --call <atom(...)> [--call ...]",
	Short: "Run a Mangle program that consumes external atom outputs",
	Long: `Loads a Mangle program, evaluates the given external atom calls against
the facts it derives, feeds their outputs back as ext_<atom> facts and
prints the requested predicates.

  hexowl eval --program zoo.mg --call 'dl_consistent("zoo.json",delta,s1)' --show ok`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVarP(&programPath, "program", "p", "", "Mangle program")
	evalCmd.Flags().StringArrayVar(&callTexts, "call", nil, "External atom call (repeatable)")
	evalCmd.Flags().StringArrayVar(&showPreds, "show", nil, "Predicate to print after evaluation (repeatable)")
	evalCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-run the calls whenever the program file changes")
	_ = evalCmd.MarkFlagRequired("program")
}

func runEval(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	h, err := host.New(rt.catalogue, rt.journal, host.Options{
		FactLimit:    cfg.Host.FactLimit,
		ReuseNogoods: cfg.Host.ReuseNogoods,
		Tag:          rt.registry.Tag,
	})
	if err != nil {
		return err
	}
	if err := h.LoadProgramFile(programPath); err != nil {
		return err
	}

	calls := make([]solver.Instance, 0, len(callTexts))
	for _, text := range callTexts {
		call, err := parseCall(text)
		if err != nil {
			return err
		}
		calls = append(calls, call)
	}
	out := cmd.OutOrStdout()
	if err := evaluateCalls(cmd.Context(), out, h, calls); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	pw, err := host.NewProgramWatcher(h, programPath, func(err error) {
		if err != nil {
			fmt.Fprintf(out, "reload failed: %v\n", err)
			return
		}
		if err := evaluateCalls(ctx, out, h, calls); err != nil {
			fmt.Fprintf(out, "evaluation failed: %v\n", err)
		}
	})
	if err != nil {
		return err
	}
	if err := pw.Start(ctx); err != nil {
		return err
	}
	defer pw.Stop()
	<-ctx.Done()
	return nil
}

func evaluateCalls(ctx context.Context, out io.Writer, h *host.Host, calls []solver.Instance) error {
	answers, err := h.EvaluateAll(ctx, calls)
	if err != nil {
		return err
	}
	for i, ans := range answers {
		fmt.Fprintf(out, "&%s%s: %d tuples\n", calls[i].Predicate, solver.TupleKey(calls[i].Inputs), len(ans.Tuples))
		printAnswer(out, ans)
	}
	for _, pred := range showPreds {
		for _, a := range h.Facts(pred) {
			fmt.Fprintln(out, a)
		}
	}
	return nil
}

// parseCall reads pred(arg, ...). The first argument is the metadata file and
// is kept as a quoted string whether or not it was written with quotes.
func parseCall(text string) (solver.Instance, error) {
	s, err := solver.ParseSymbol(text)
	if err != nil {
		return solver.Instance{}, fmt.Errorf("bad call %q: %w", text, err)
	}
	if !s.IsCompound() {
		return solver.Instance{}, fmt.Errorf("bad call %q: expected atom(inputs...)", text)
	}
	inputs := append([]solver.Symbol(nil), s.Args()...)
	inputs[0] = solver.Quoted(inputs[0].Unquoted())
	return solver.Instance{Predicate: s.Name(), Inputs: inputs}, nil
}
