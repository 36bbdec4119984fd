package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/linreg/linear"
)

func newInspectCmd(a *app) *cobra.Command {
	var modelPath string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the parameters of a saved model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := linear.LoadModel(modelPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return linear.SaveModelToWriter(m, out)
			}

			fmt.Fprintf(out, "Model:    %s\n", linear.ModelType)
			fmt.Fprintf(out, "Inputs:   %d\n", m.NumInputs())
			fmt.Fprintf(out, "Targets:  %d\n", m.NumTargets())
			fmt.Fprintf(out, "Scaling:  %t\n", m.ScalingEnabled())
			w := m.Weights()
			for j := 0; j < m.NumTargets(); j++ {
				fmt.Fprintf(out, "Weights[%d]: %s\n", j, joinFloats(w.RawRowView(j)))
			}
			fmt.Fprintf(out, "Bias:     %s\n", joinFloats(m.Bias()))
			if p := m.ScalingParams(); p != nil {
				fmt.Fprintf(out, "Input min:  %s\n", joinFloats(p.InputMin))
				fmt.Fprintf(out, "Input max:  %s\n", joinFloats(p.InputMax))
				fmt.Fprintf(out, "Target min: %s\n", joinFloats(p.TargetMin))
				fmt.Fprintf(out, "Target max: %s\n", joinFloats(p.TargetMax))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", linear.DefaultModelPath, "saved model file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the signed model record as JSON")
	return cmd
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, " ")
}
