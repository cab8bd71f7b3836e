package fmtt

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// FprintErrChain walks an error chain and writes each layer with its
// type, one per line.
func FprintErrChain(w io.Writer, err error) {
	if err == nil {
		fmt.Fprintln(w, "<nil>")
		return
	}

	i := 0
	for e := err; e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(w, "[%d] %T: %v\n", i, e, e)
		i++
	}
}

// PrintErrChain writes the chain to stderr.
func PrintErrChain(err error) {
	FprintErrChain(os.Stderr, err)
}
