package main

import (
	"bufio"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/linreg/dataset"
	"github.com/YuminosukeSato/linreg/linear"
	"github.com/YuminosukeSato/linreg/pkg/errors"
	"github.com/YuminosukeSato/linreg/pkg/log"
)

func newPredictCmd(a *app) *cobra.Command {
	var modelPath, inputPath string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict targets for a CSV file of input vectors",
		Long: `Applies a saved model to every row of a headerless CSV file holding
only input values, and prints one CSV row of predicted targets per input row.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := linear.LoadModel(modelPath)
			if err != nil {
				return err
			}
			X, err := dataset.LoadInputs(inputPath, m.NumInputs())
			if err != nil {
				return err
			}
			pred, err := m.PredictBatchContext(cmd.Context(), X)
			if err != nil {
				return err
			}
			rows, _ := pred.Dims()
			a.logger.Info("Predictions computed",
				log.OperationKey, log.OperationPredict,
				log.PathKey, inputPath,
				log.PredsKey, rows,
			)

			w := bufio.NewWriter(cmd.OutOrStdout())
			buf := make([]byte, 0, 32)
			for i := 0; i < rows; i++ {
				for j, v := range pred.RawRowView(i) {
					if j > 0 {
						w.WriteByte(',')
					}
					buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
					w.Write(buf)
				}
				w.WriteByte('\n')
			}
			if err := w.Flush(); err != nil {
				return errors.NewIOError("predict", "<stdout>", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", linear.DefaultModelPath, "saved model file")
	cmd.Flags().StringVarP(&inputPath, "file", "f", "", "CSV file of input vectors")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
