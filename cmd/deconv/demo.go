package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/deconv/engine"
	"github.com/born-ml/deconv/ops"
	"github.com/born-ml/deconv/tensor"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the canonical 2x2 -> 3x3 scatter example",
		Long: `Scatters a 2x2 all-ones input through a 2x2 all-ones filter at
stride 1 into a 3x3 output. The center cell receives four overlapping
taps, the edges two, and the corners one.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			host := engine.New()

			spec, err := tensor.FromSlice([]int32{1, 3, 3, 1}, tensor.Shape{4})
			if err != nil {
				return err
			}
			spec.SetConstant(true)

			filter, err := tensor.FromSlice([]float32{1, 1, 1, 1}, tensor.Shape{1, 2, 2, 1})
			if err != nil {
				return err
			}
			input, err := tensor.FromSlice([]float32{1, 1, 1, 1}, tensor.Shape{1, 2, 2, 1})
			if err != nil {
				return err
			}

			args := ops.Args{
				OutputShape: host.Put(spec),
				Filter:      host.Put(filter),
				Input:       host.Put(input),
				Output:      host.AddTensor(tensor.Float32),
			}

			op := ops.NewTransposeConv(host, ops.Config{
				StrideHeight: 1,
				StrideWidth:  1,
				Padding:      ops.PaddingValid,
			}, ops.KernelGenericOptimized)

			if err := op.Prepare(args); err != nil {
				return err
			}
			if err := op.Eval(args); err != nil {
				return err
			}

			output := host.Tensor(args.Output)
			data := output.AsFloat32()
			rows := output.Shape()[1]
			cols := output.Shape()[2]
			for y := 0; y < rows; y++ {
				for x := 0; x < cols; x++ {
					fmt.Fprintf(cmd.OutOrStdout(), "%5.1f", data[y*cols+x])
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
}
