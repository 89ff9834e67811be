package main

import (
	"os"

	"github.com/msgkit/genlisp/cmd"
	"github.com/msgkit/genlisp/internal/exitcode"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(exitcode.FromError(err))
	}
}
