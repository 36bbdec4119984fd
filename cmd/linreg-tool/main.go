// Command linreg-tool trains multivariate linear regression models with
// gradient descent and applies them to new inputs.
//
//	linreg-tool train -f data.csv -n 3 -t 1 --model model.json
//	linreg-tool predict --model model.json -f inputs.csv
//	linreg-tool inspect --model model.json
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
