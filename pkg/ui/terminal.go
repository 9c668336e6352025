package ui

import (
	"fmt"
	"io"
	"os"
)

// ASCIILogo is printed at the start of interactive commands
const ASCIILogo = `
   ┌─────────────────────────────────────────────┐
   │  r e d d i t s a v e r                      │
   │  saved posts, images, galleries and videos  │
   └─────────────────────────────────────────────┘
`

// Output is where the Print helpers write; tests may swap it
var Output io.Writer = os.Stdout

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo
func PrintLogo() {
	fmt.Fprint(Output, Cyan(ASCIILogo))
}

// PrintError prints msg in red, followed by the first detail if given
func PrintError(msg string, details ...interface{}) {
	if len(details) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, details[0])
	}
	fmt.Fprintln(Output, Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints msg in yellow, followed by the first detail if given
func PrintWarning(msg string, details ...interface{}) {
	if len(details) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, details[0])
	}
	fmt.Fprintln(Output, Yellow(msg))
}
