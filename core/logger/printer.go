package logger

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Name prefixes every diagnostic.
const Name = "mumsh"

// PrintFunc has the signature of fmt.Fprintf.
type PrintFunc func(io.Writer, string, ...interface{})

func Red() PrintFunc {
	return color.New(color.FgRed).FprintfFunc()
}

func Yellow() PrintFunc {
	return color.New(color.FgYellow).FprintfFunc()
}

func plain(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
}

// Printer writes single line user facing diagnostics.
type Printer struct {
	w      io.Writer
	errorf PrintFunc
	notef  PrintFunc
}

// NewPrinter creates a printer writing to w, colored if colorize is set.
func NewPrinter(w io.Writer, colorize bool) *Printer {
	p := &Printer{w: w, errorf: plain, notef: plain}
	if colorize {
		p.errorf, p.notef = Red(), Yellow()
	}
	return p
}

// Errorf reports a failed operation.
func (p *Printer) Errorf(format string, args ...interface{}) {
	p.errorf(p.w, Name+": "+format+"\n", args...)
}

// Noticef reports something the user should know that isn't a failure.
func (p *Printer) Noticef(format string, args ...interface{}) {
	p.notef(p.w, Name+": "+format+"\n", args...)
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}
