package main

import (
	"fmt"
	"os"

	"deal-matching-service/cmd/dealmatch/cmd"
	apperrors "deal-matching-service/pkg/errors"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if matcherErr, ok := apperrors.AsMatcherError(err); ok {
			os.Exit(matcherErr.GetExitCode())
		}
		os.Exit(1)
	}
}
