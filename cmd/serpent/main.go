// Serpent CLI - runs scripts, modules and the interactive shell
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/chazu/serpent/codecache"
	"github.com/chazu/serpent/compiler"
	"github.com/chazu/serpent/manifest"
	"github.com/chazu/serpent/pkg/bytecode"
	"github.com/chazu/serpent/server"
	"github.com/chazu/serpent/vm"

	_ "github.com/tliron/commonlog/simple"
)

var version = "0.1.0"

var log = commonlog.GetLogger("serpent.cli")

// verbosity is a repeatable -v flag.
type verbosity int

func (v *verbosity) String() string   { return fmt.Sprint(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }
func (v *verbosity) Set(s string) error {
	switch s {
	case "true":
		*v++
	case "false":
	default:
		return fmt.Errorf("invalid verbosity %q", s)
	}
	return nil
}

type options struct {
	command     string
	module      string
	verbose     verbosity
	configPath  string
	dis         bool
	noCache     bool
	lsp         bool
	showVersion bool
	args        []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("serpent", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.command, "c", "", "Run the given program text")
	fs.StringVar(&opts.module, "m", "", "Run a module found on the search path as __main__")
	fs.Var(&opts.verbose, "v", "Increase log verbosity (repeatable)")
	fs.StringVar(&opts.configPath, "config", "", "Path to a serpent.toml (default: search upward from the working directory)")
	fs.BoolVar(&opts.dis, "dis", false, "Print the disassembly instead of running")
	fs.BoolVar(&opts.noCache, "no-cache", false, "Do not use the compiled-code cache")
	fs.BoolVar(&opts.lsp, "lsp", false, "Run the language server on stdio")
	fs.BoolVar(&opts.showVersion, "version", false, "Print the version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: serpent [options] [script [args...]]\n\n")
		fmt.Fprintf(stderr, "Runs a script, a module or -c text. With none of them, starts the interactive shell.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  serpent                     # Interactive shell\n")
		fmt.Fprintf(stderr, "  serpent prog.py a b         # Run prog.py with sys.argv = ['prog.py', 'a', 'b']\n")
		fmt.Fprintf(stderr, "  serpent -c 'print(1 + 2)'   # Run program text\n")
		fmt.Fprintf(stderr, "  serpent -m tool             # Run tool.py from the search path\n")
		fmt.Fprintf(stderr, "  serpent -dis prog.py        # Show bytecode\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.args = fs.Args()
	return opts, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is the whole CLI and returns the process exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "serpent %s\n", version)
		return 0
	}

	m, err := loadManifest(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "serpent: %v\n", err)
		return 1
	}

	var logPath *string
	if f := m.LogFile(); f != "" {
		logPath = &f
	}
	commonlog.Configure(int(opts.verbose)+m.Log.Verbosity, logPath)

	rt := newRuntime(m, !opts.noCache, stdout)
	defer rt.close()

	switch {
	case opts.lsp:
		if err := server.NewLSP(rt.vm, version).Run(); err != nil {
			fmt.Fprintf(stderr, "serpent: language server: %v\n", err)
			return 1
		}
		return 0

	case opts.command != "":
		rt.vm.SetArgv(append([]string{"-c"}, opts.args...))
		cwd, _ := os.Getwd()
		rt.vm.AddSearchPath(cwd)
		return rt.runSource(opts.command+"\n", "<string>", opts.dis, stderr)

	case opts.module != "":
		rt.vm.SetArgv(append([]string{opts.module}, opts.args...))
		cwd, _ := os.Getwd()
		rt.vm.AddSearchPath(cwd)
		return rt.runModule(opts.module, opts.dis, stderr)

	case len(opts.args) > 0:
		script := opts.args[0]
		rt.vm.SetArgv(opts.args)
		return rt.runScript(script, opts.dis, stderr)
	}

	reader := newLineReader(stdin, stdout, m.HistoryPath())
	defer reader.Close()
	return startShell(rt.vm, reader, stdout, stderr)
}

// loadManifest reads an explicit configuration file, or searches upward
// from the working directory, falling back to the defaults.
func loadManifest(path string) (*manifest.Manifest, error) {
	if path != "" {
		return manifest.LoadFile(path)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	return m, nil
}

// runtime is a configured VM plus the resources it holds.
type runtime struct {
	vm       *vm.VM
	importer *vm.FileImporter
	cache    *codecache.Store
	status   int // exit status after an uncaught exception
}

func newRuntime(m *manifest.Manifest, useCache bool, stdout io.Writer) *runtime {
	rt := &runtime{
		vm:       vm.NewVM(),
		importer: vm.NewFileImporter(m.ImportDirs()...),
		status:   m.Run.RuntimeErrorStatus,
	}
	rt.vm.Stdout = stdout
	rt.vm.UseImporter(rt.importer)
	rt.vm.SetPrompts(m.Shell.PS1, m.Shell.PS2)

	front := vm.CompileFunc(compiler.Compile)
	if useCache && m.CacheEnabled() {
		if store, err := openCache(m); err != nil {
			log.Warningf("code cache disabled: %v", err)
		} else {
			rt.cache = store
			front = store.Wrap(compiler.Compile)
		}
	}
	rt.vm.UseCompiler(front)
	return rt
}

func openCache(m *manifest.Manifest) (*codecache.Store, error) {
	path, err := m.CachePath()
	if err != nil {
		return nil, err
	}
	return codecache.Open(path)
}

func (rt *runtime) close() {
	if rt.cache != nil {
		hits, misses := rt.cache.Stats()
		log.Debugf("code cache %s: %d hits, %d misses", rt.cache.Path(), hits, misses)
		rt.cache.Close()
	}
}

// runScript runs a file as __main__. The script directory joins the
// search path so sibling modules import.
func (rt *runtime) runScript(path string, dis bool, stderr io.Writer) int {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Errorf("cannot read script: %v", err)
		fmt.Fprintf(stderr, "serpent: can't open file '%s': %v\n", path, err)
		return 1
	}
	if dir, err := filepath.Abs(filepath.Dir(path)); err == nil {
		rt.vm.AddSearchPath(dir)
	}
	return rt.runSource(string(data), path, dis, stderr)
}

// runModule locates a module on the search path and runs it as __main__.
func (rt *runtime) runModule(name string, dis bool, stderr io.Writer) int {
	path, source, err := rt.importer.Find(rt.vm, name)
	if err != nil {
		if errors.Is(err, vm.ErrModuleNotFound) {
			fmt.Fprintf(stderr, "serpent: No module named %s\n", name)
		} else {
			fmt.Fprintf(stderr, "serpent: %v\n", err)
		}
		log.Errorf("cannot load module %s: %v", name, err)
		return 1
	}
	return rt.runSource(source, path, dis, stderr)
}

// runSource compiles source in exec mode and runs it in a fresh module
// scope. A compile failure exits with status 1; an uncaught exception
// with the configured runtime error status.
func (rt *runtime) runSource(source, path string, dis bool, stderr io.Writer) int {
	code, err := rt.vm.Compile(source, bytecode.ModeExec, path)
	if err != nil {
		log.Errorf("compile failed for %s", path)
		fmt.Fprint(stderr, rt.vm.FormatException(err))
		return 1
	}
	if dis {
		fmt.Fprint(rt.vm.Stdout, code.Disassemble())
		return 0
	}

	scope := rt.vm.NewModuleScope()
	defer rt.vm.Unpin(scope)
	if _, err := rt.vm.RunCode(code, scope); err != nil {
		fmt.Fprint(stderr, rt.vm.FormatException(err))
		return rt.status
	}
	return 0
}
