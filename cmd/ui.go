package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

var (
	successText = color.New(color.FgGreen)
	errorText   = color.New(color.FgRed)
	warnText    = color.New(color.FgYellow)
	infoText    = color.New(color.FgCyan)
	codeText    = color.New(color.FgHiWhite, color.Bold)
	mutedText   = color.New(color.Faint)
)

// startSpinner shows a busy indicator on stderr while key derivation runs.
// The returned func stops it; calling it more than once is harmless.
func startSpinner(message string) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}

func printSuccess(w io.Writer, format string, args ...any) {
	successText.Fprint(w, "✓ ")
	fmt.Fprintf(w, format+"\n", args...)
}

func printWarning(w io.Writer, format string, args ...any) {
	warnText.Fprint(w, "⚠ ")
	fmt.Fprintf(w, format+"\n", args...)
}

func printHint(w io.Writer, format string, args ...any) {
	infoText.Fprint(w, "→ ")
	fmt.Fprintf(w, format+"\n", args...)
}
