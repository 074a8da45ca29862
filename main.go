package main

import (
	"errors"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// The report has already been printed; only the exit code is left.
		if errors.Is(err, errProvisionFailed) || errors.Is(err, errVerifyFailed) {
			os.Exit(1)
		}

		exitOnError(err)
	}
}
