package config

import (
	"fmt"
	"io"
	"os"
)

// Exitf writes a formatted error message to stderr and exits with code 1.
// Command mains use it for configuration failures found before logging is set up.
func Exitf(format string, args ...any) {
	writeExit(os.Stderr, format, args...)
	os.Exit(1)
}

func writeExit(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "fairscore: "+format+"\n", args...)
}
