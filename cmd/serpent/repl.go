package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"github.com/chazu/serpent/compiler"
	"github.com/chazu/serpent/pkg/bytecode"
	"github.com/chazu/serpent/vm"
)

// lineReader reads one line of shell input after showing a prompt. It
// returns io.EOF at end of input; other errors abandon the current entry.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Interactive() bool
	Close() error
}

// newLineReader uses liner for line editing and history when stdin and
// stdout are terminals, and a plain buffered reader otherwise.
func newLineReader(stdin io.Reader, stdout io.Writer, history string) lineReader {
	in, inOK := stdin.(*os.File)
	out, outOK := stdout.(*os.File)
	if inOK && outOK && isatty.IsTerminal(in.Fd()) && isatty.IsTerminal(out.Fd()) && liner.TerminalSupported() {
		return newLinerReader(history)
	}
	return &plainReader{r: bufio.NewReader(stdin), w: stdout}
}

// plainReader reads lines from a non-interactive stream.
type plainReader struct {
	r *bufio.Reader
	w io.Writer
}

func (p *plainReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.w, prompt)
	line, err := p.r.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *plainReader) Interactive() bool { return false }
func (p *plainReader) Close() error      { return nil }

// linerReader adds line editing and a persistent history file.
type linerReader struct {
	state   *liner.State
	history string
}

func newLinerReader(history string) *linerReader {
	st := liner.NewLiner()
	st.SetCtrlCAborts(true)
	if history != "" {
		if f, err := os.Open(history); err == nil {
			if _, err := st.ReadHistory(f); err != nil {
				log.Warningf("reading history %s: %v", history, err)
			}
			f.Close()
		}
	}
	return &linerReader{state: st, history: history}
}

func (l *linerReader) ReadLine(prompt string) (string, error) {
	line, err := l.state.Prompt(prompt)
	if err != nil {
		if errors.Is(err, io.EOF) {
			fmt.Println()
		}
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		l.state.AppendHistory(line)
	}
	return line, nil
}

func (l *linerReader) Interactive() bool { return true }

func (l *linerReader) Close() error {
	if l.history != "" {
		if f, err := os.Create(l.history); err == nil {
			if _, err := l.state.WriteHistory(f); err != nil {
				log.Warningf("writing history %s: %v", l.history, err)
			}
			f.Close()
		}
	}
	return l.state.Close()
}

// startShell greets a terminal user with the version, then runs the shell.
func startShell(v *vm.VM, r lineReader, stdout, stderr io.Writer) int {
	if r.Interactive() {
		fmt.Fprintf(stdout, "serpent %s\n", version)
	}
	return runShell(v, r, stderr)
}

// runShell is the interactive loop. Each entry compiles in single mode so
// expression results echo. Input that ends while a construct is still open
// switches to continuation lines until a blank line, then the whole entry
// compiles again, prompting for more while it is still incomplete. Errors are reported and the loop goes on; end of input
// ends the shell with status 0.
func runShell(v *vm.VM, r lineReader, stderr io.Writer) int {
	scope := v.NewModuleScope()
	defer v.Unpin(scope)

	for {
		line, err := r.ReadLine(v.Prompt(false))
		if errors.Is(err, io.EOF) {
			return 0
		}
		if err != nil {
			continue
		}

		source := line + "\n"
		code, err := v.Compile(source, bytecode.ModeSingle, "<stdin>")
		for incompleteInput(err) {
			var eof bool
			source, eof = readContinuation(v, r, source)
			if eof {
				return 0
			}
			code, err = v.Compile(source, bytecode.ModeSingle, "<stdin>")
		}
		if err != nil {
			fmt.Fprint(stderr, v.FormatException(err))
			continue
		}

		if _, err := v.RunCode(code, scope); err != nil {
			fmt.Fprint(stderr, v.FormatException(err))
		}
	}
}

// readContinuation appends lines to source until a blank line. It reports
// eof when input ends first.
func readContinuation(v *vm.VM, r lineReader, source string) (string, bool) {
	var b strings.Builder
	b.WriteString(source)
	for {
		line, err := r.ReadLine(v.Prompt(true))
		if errors.Is(err, io.EOF) {
			return "", true
		}
		if err != nil {
			// An aborted continuation drops the entry; an empty source
			// compiles to nothing.
			return "\n", false
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return b.String(), false
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

func incompleteInput(err error) bool {
	var exc *vm.ExceptionObject
	return errors.As(err, &exc) && exc.Message() == compiler.MsgUnexpectedEOF
}
