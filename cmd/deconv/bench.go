package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/born-ml/deconv/engine"
	"github.com/born-ml/deconv/ops"
	"github.com/born-ml/deconv/tensor"
)

type benchOptions struct {
	height   int
	width    int
	channels int
	filters  int
	kernel   int
	stride   int
	iters    int
}

func newBenchCmd() *cobra.Command {
	opts := benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time both kernel variants over a synthetic upsample",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.height, "height", 32, "Input height")
	cmd.Flags().IntVar(&opts.width, "width", 32, "Input width")
	cmd.Flags().IntVar(&opts.channels, "channels", 8, "Input channels")
	cmd.Flags().IntVar(&opts.filters, "filters", 8, "Output channels")
	cmd.Flags().IntVar(&opts.kernel, "kernel", 3, "Filter spatial size")
	cmd.Flags().IntVar(&opts.stride, "stride", 2, "Stride (both axes)")
	cmd.Flags().IntVar(&opts.iters, "iters", 10, "Eval iterations per variant")

	return cmd
}

func runBench(cmd *cobra.Command, opts benchOptions) error {
	outH := opts.height * opts.stride
	outW := opts.width * opts.stride

	rng := rand.New(rand.NewSource(42))

	inputData := make([]float32, opts.height*opts.width*opts.channels)
	for i := range inputData {
		inputData[i] = rng.Float32()*2 - 1
	}
	filterData := make([]float32, opts.filters*opts.kernel*opts.kernel*opts.channels)
	for i := range filterData {
		filterData[i] = rng.Float32()*2 - 1
	}

	variants := []struct {
		name string
		kind ops.Kernel
	}{
		{"reference", ops.KernelReference},
		{"generic-optimized", ops.KernelGenericOptimized},
	}

	for _, variant := range variants {
		host := engine.New()

		spec, err := tensor.FromSlice(
			[]int32{1, int32(outH), int32(outW), int32(opts.filters)}, tensor.Shape{4})
		if err != nil {
			return err
		}
		spec.SetConstant(true)

		filter, err := tensor.FromSlice(filterData,
			tensor.Shape{opts.filters, opts.kernel, opts.kernel, opts.channels})
		if err != nil {
			return err
		}
		input, err := tensor.FromSlice(inputData,
			tensor.Shape{1, opts.height, opts.width, opts.channels})
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
			StrideHeight: opts.stride,
			StrideWidth:  opts.stride,
			Padding:      ops.PaddingSame,
		}, variant.kind)

		if err := op.Prepare(args); err != nil {
			return err
		}

		start := time.Now()
		for i := 0; i < opts.iters; i++ {
			if err := op.Eval(args); err != nil {
				return err
			}
		}
		elapsed := time.Since(start)

		fmt.Fprintf(cmd.OutOrStdout(), "%-18s %dx%dx%d -> %dx%dx%d  %v/eval\n",
			variant.name, opts.height, opts.width, opts.channels,
			outH, outW, opts.filters, elapsed/time.Duration(opts.iters))
	}
	return nil
}
