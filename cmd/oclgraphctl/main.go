// Command oclgraphctl runs a couple of hard-coded demonstration graphs
// through the evaluator and prints their compute_history, the same kind
// of small cobra-driven inspection tool ollama's CLI layer builds on top
// of its own request/response core.
package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/tensorwave/oclgraph/dtype"
	"github.com/tensorwave/oclgraph/eval"
	"github.com/tensorwave/oclgraph/graphir"
	"github.com/tensorwave/oclgraph/metrics"
	"github.com/tensorwave/oclgraph/resultreader"
	"github.com/tensorwave/oclgraph/session"
	"github.com/tensorwave/oclgraph/shape"
)

func main() {
	root := &cobra.Command{
		Use:   "oclgraphctl",
		Short: "Run demonstration dataflow graphs through the evaluator core",
	}
	root.AddCommand(runCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var scenario string
	var kernelsDir string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a named demonstration graph and print its compute_history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(scenario, kernelsDir)
		},
	}
	cmd.Flags().StringVar(&scenario, "scenario", "linear", "one of: linear, matmul, variable")
	cmd.Flags().StringVar(&kernelsDir, "kernels-dir", "", "resource directory of .cl kernel sources (empty: builtin programs only)")
	return cmd
}

func runScenario(scenario, kernelsDir string) error {
	cache := session.New(kernelsDir, metrics.New(prometheus.NewRegistry()))
	evaluator := eval.New(cache)
	ctx := session.NewContext(cache)
	reader := &resultreader.Reader{Queue: cache.Queue}

	var root graphir.Node
	switch scenario {
	case "linear":
		root = linearScenario()
	case "matmul":
		root = matmulScenario()
	case "variable":
		root = variableScenario()
	default:
		return fmt.Errorf("oclgraphctl: unknown scenario %q", scenario)
	}

	result, err := evaluator.Run(ctx, root)
	if err != nil {
		return err
	}
	host, err := reader.Read(result)
	if err != nil {
		return err
	}
	klog.Infof("scenario %q result: %v", scenario, host)

	printHistory(ctx.History)
	return nil
}

// linearScenario computes sigmoid(w*x + b) over scalars, the textbook
// single-neuron forward pass.
func linearScenario() graphir.Node {
	w := graphir.NewConst("w", dtype.Float32, shape.Scalar(), float32(0.5))
	x := graphir.NewConst("x", dtype.Float32, shape.Scalar(), float32(2.0))
	b := graphir.NewConst("b", dtype.Float32, shape.Scalar(), float32(0.1))
	wx := graphir.NewOp("wx", graphir.OpMul, dtype.Float32, shape.Scalar(), w, x)
	z := graphir.NewOp("z", graphir.OpAdd, dtype.Float32, shape.Scalar(), wx, b)
	return graphir.NewOp("activation", graphir.OpSigmoid, dtype.Float32, shape.Scalar(), z)
}

func matmulScenario() graphir.Node {
	a := graphir.NewConst("a", dtype.Float32, shape.Make(2, 3), []float32{1, 2, 3, 4, 5, 6})
	b := graphir.NewConst("b", dtype.Float32, shape.Make(3, 1), []float32{1, 0, 1})
	return graphir.NewOp("product", graphir.OpMatMul, dtype.Float32, shape.Make(2, 1), a, b)
}

func variableScenario() graphir.Node {
	v := graphir.NewVariable("counter", dtype.Float32, shape.Scalar(), nil)
	zero := graphir.NewConst("zero", dtype.Float32, shape.Scalar(), float32(0))
	one := graphir.NewConst("one", dtype.Float32, shape.Scalar(), float32(1))
	init := graphir.NewOp("init", graphir.OpAssign, dtype.Float32, shape.Scalar(), v, zero)
	increment := graphir.NewOp("increment", graphir.OpAssignAdd, dtype.Float32, shape.Scalar(), v, one)
	return graphir.NewOp("program", graphir.OpFlowGroup, dtype.Float32, shape.Scalar(), init, increment)
}

func printHistory(rows []session.HistoryEntry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Node", "Op", "Shape"})
	for _, row := range rows {
		table.Append([]string{row.NodeName, row.Op, row.Shape})
	}
	table.Render()
}
