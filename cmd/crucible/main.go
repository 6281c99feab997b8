package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess       = 0 // Session completed
	ExitQualityFailed = 1 // Session completed below the quality gate
	ExitError         = 2 // Configuration or runtime error
)

// QualityGateError indicates that the session ran to completion, but a
// carried-forward score missed the threshold requested with --strict.
type QualityGateError struct {
	Message string
}

func (e *QualityGateError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var gateErr *QualityGateError
		if errors.As(err, &gateErr) {
			os.Exit(ExitQualityFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
