package compiler

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/serpent/pkg/bytecode"
)

var log = commonlog.GetLogger("serpent.compiler")

// Compile translates source text into a code object. path names the source
// in error messages and tracebacks; an empty path is shown as "<string>".
// Failures are returned as *Error.
func Compile(source string, mode bytecode.Mode, path string) (*bytecode.CodeObject, error) {
	filename := path
	if filename == "" {
		filename = "<string>"
	}

	p := NewParser(source, filename)
	c := NewCompiler(filename, mode)

	var (
		code *bytecode.CodeObject
		err  error
	)
	if mode == bytecode.ModeEval {
		var expr Expr
		if expr, err = p.ParseExpression(); err == nil {
			code, err = c.CompileExpression(expr)
		}
	} else {
		var mod *Module
		if mod, err = p.ParseModule(); err == nil {
			code, err = c.CompileModule(mod)
		}
	}
	if err != nil {
		log.Debugf("compile %s (%s): %v", filename, mode, err)
		return nil, err
	}
	log.Debugf("compiled %s (%s): %d bytes of code", filename, mode, len(code.Code))
	return code, nil
}

// Parse parses source text without generating code. It is used by the
// language server for diagnostics.
func Parse(source, path string) (*Module, error) {
	return NewParser(source, path).ParseModule()
}
