package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"hexowl/internal/atoms"
	"hexowl/internal/solver"
)

var (
	trueAtoms   []string
	falseAtoms  []string
	showLearned bool
)

var queryCmd = &cobra.Command{
	Use:   "query <atom> <metadata.json> [inputs...]",
	Short: "Evaluate one external atom",
	Long: `Evaluates one external atom and prints its output tuples.

The first input of every atom is the metadata file. Mutation atoms read the
solver assignment from --true and --false, for example:

  hexowl query dl_c_m zoo.json delta s1 ex:Dog --true 'delta(s1,addc(ex:Dog,ex:tom))'`,
	Args: cobra.MinimumNArgs(2),
	RunE: runQuery,
}

var simplifyCmd = &cobra.Command{
	Use:   "simplify <metadata.json> <iri>",
	Short: "Shorten an IRI with the store's namespaces",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return evaluateAndPrint(cmd, "dl_simplify", args)
	},
}

func init() {
	queryCmd.Flags().StringArrayVar(&trueAtoms, "true", nil, "Atom assigned true (repeatable)")
	queryCmd.Flags().StringArrayVar(&falseAtoms, "false", nil, "Atom assigned false (repeatable)")
	queryCmd.Flags().BoolVar(&showLearned, "learned", false, "Print learned nogoods")
}

func runQuery(cmd *cobra.Command, args []string) error {
	return evaluateAndPrint(cmd, args[0], args[1:])
}

func evaluateAndPrint(cmd *cobra.Command, predicate string, args []string) error {
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	inputs, err := parseInputs(args)
	if err != nil {
		return err
	}
	ctx := solver.NewMemoryContext()
	if err := assign(ctx, trueAtoms, solver.True); err != nil {
		return err
	}
	if err := assign(ctx, falseAtoms, solver.False); err != nil {
		return err
	}
	ctx.AddInstance(predicate, inputs...)

	ans, err := rt.catalogue.Evaluate(ctx, predicate, inputs)
	if err != nil {
		return err
	}
	printAnswer(cmd.OutOrStdout(), ans)
	if showLearned {
		for _, ng := range ans.Learned {
			fmt.Fprintf(cmd.OutOrStdout(), "nogood %s\n", ng)
		}
	}
	return nil
}

// parseInputs keeps the metadata path as written and parses the rest as terms.
func parseInputs(args []string) ([]solver.Symbol, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing metadata file")
	}
	inputs := []solver.Symbol{solver.Quoted(args[0])}
	for _, a := range args[1:] {
		s, err := solver.ParseSymbol(a)
		if err != nil {
			return nil, fmt.Errorf("bad input %q: %w", a, err)
		}
		inputs = append(inputs, s)
	}
	return inputs, nil
}

func assign(ctx *solver.MemoryContext, atomsText []string, t solver.Truth) error {
	for _, text := range atomsText {
		s, err := solver.ParseSymbol(text)
		if err != nil {
			return fmt.Errorf("bad atom %q: %w", text, err)
		}
		ctx.Set(solver.NewAtom(s.Name(), s.Args()...), t)
	}
	return nil
}

func printAnswer(w io.Writer, ans *atoms.Answer) {
	if ans.Inconsistent {
		fmt.Fprintln(w, "# store inconsistent under this scenario")
	}
	for _, tuple := range ans.Tuples {
		fmt.Fprintln(w, solver.TupleKey(tuple))
	}
}
