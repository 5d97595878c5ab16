package compiler

import "fmt"

// MsgUnexpectedEOF is the message of errors caused by input that ends
// while a construct is still open. The interactive shell keys on it to
// switch to continuation lines.
const MsgUnexpectedEOF = "Unexpected end of input."

// Error is a compile failure with its source position.
type Error struct {
	Msg        string
	Filename   string
	Line       int
	Column     int
	Incomplete bool // input ended before the construct was closed
}

func (e *Error) Error() string {
	if e.Incomplete {
		return e.Msg
	}
	file := e.Filename
	if file == "" {
		file = "<string>"
	}
	return fmt.Sprintf("%s:%d:%d: %s", file, e.Line, e.Column, e.Msg)
}

// Message returns the bare message without position.
func (e *Error) Message() string { return e.Msg }

// Location returns the 1-based line and column of the error.
func (e *Error) Location() (line, column int) { return e.Line, e.Column }

// bailout is panicked to abandon parsing or code generation after the
// first error; Parse and Compile recover it.
type bailout struct{}
