package cli

import (
	"fmt"
	"io"
)

// IO is the output side of one command run.
//
// Problems that do not stop a command, such as an input whose bead is in no
// box, are collected as warnings. They go to stderr before the next line of
// regular output and again when the command finishes, so a long status or
// graph on stdout cannot bury them. A run with warnings exits 1.
type IO struct {
	out    io.Writer
	errOut io.Writer

	warnings []warning
	// reported is how many warnings were already shown ahead of output.
	reported int
}

type warning struct {
	issue string
	hint  string
}

func (w warning) String() string {
	return "warning: " + w.issue + ": " + w.hint
}

// NewIO creates a new IO instance.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Warn records issue together with a hint on how to resolve it.
func (o *IO) Warn(issue string, hint string) {
	o.warnings = append(o.warnings, warning{issue: issue, hint: hint})
}

// Println writes to stdout after any pending warnings.
func (o *IO) Println(a ...any) {
	o.reportPending()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout after any pending warnings.
func (o *IO) Printf(format string, a ...any) {
	o.reportPending()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish repeats every warning on stderr and returns the exit code for the
// run: 1 with warnings, 0 otherwise.
func (o *IO) Finish() int {
	if len(o.warnings) == 0 {
		return 0
	}

	o.reportPending()

	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, w)
	}

	return 1
}

func (o *IO) reportPending() {
	for _, w := range o.warnings[o.reported:] {
		_, _ = fmt.Fprintln(o.errOut, w)
	}

	o.reported = len(o.warnings)
}
