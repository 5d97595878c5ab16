package vm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/chazu/serpent/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Import mechanism
// ---------------------------------------------------------------------------

// ErrModuleNotFound is returned by an Importer that has no source for a
// module.
var ErrModuleNotFound = errors.New("module not found")

// Importer locates module source text.
type Importer interface {
	// Find returns the path and source of module name, or
	// ErrModuleNotFound.
	Find(vm *VM, name string) (path, source string, err error)
}

// FileImporter looks for <dir>/<name>.py in sys.path, then in Paths.
type FileImporter struct {
	Paths []string
}

// NewFileImporter creates an importer with extra search directories.
func NewFileImporter(paths ...string) *FileImporter {
	return &FileImporter{Paths: paths}
}

// Find implements Importer.
func (fi *FileImporter) Find(vm *VM, name string) (string, string, error) {
	dirs := append(vm.SearchPath(), fi.Paths...)
	for _, dir := range dirs {
		path := filepath.Join(dir, name+".py")
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("read module %s: %w", name, err)
		}
		return path, string(data), nil
	}
	return "", "", ErrModuleNotFound
}

// UseImporter installs the importer consulted after the built-in modules.
func (vm *VM) UseImporter(imp Importer) {
	vm.importer = imp
}

// Import returns the module called name, loading and running it on first
// use. Built-in and already imported modules come from the module table.
func (vm *VM) Import(name string) (Value, error) {
	if m, ok := vm.modules[name]; ok {
		return m, nil
	}
	if vm.importer == nil {
		return None, vm.Errorf(vm.ImportErrorType, "No module named '%s'", name)
	}
	path, source, err := vm.importer.Find(vm, name)
	if errors.Is(err, ErrModuleNotFound) {
		return None, vm.Errorf(vm.ImportErrorType, "No module named '%s'", name)
	}
	if err != nil {
		return None, vm.Errorf(vm.ImportErrorType, "%s", err.Error())
	}

	mod := vm.newModule(name, path)
	vm.modules[name] = mod
	if err := vm.runModuleSource(mod, source, path); err != nil {
		delete(vm.modules, name)
		return None, err
	}
	log.Debugf("imported module %s from %s", name, path)
	return mod, nil
}

// RunModule finds module name through the importer and runs it as the
// main module, for "serpent -m".
func (vm *VM) RunModule(name string) (Value, error) {
	if vm.importer == nil {
		return None, vm.Errorf(vm.ImportErrorType, "No module named '%s'", name)
	}
	path, source, err := vm.importer.Find(vm, name)
	if errors.Is(err, ErrModuleNotFound) {
		return None, vm.Errorf(vm.ImportErrorType, "No module named '%s'", name)
	}
	if err != nil {
		return None, err
	}
	scope := vm.NewModuleScope()
	defer vm.Unpin(scope)
	return vm.RunStringInScope(source, bytecode.ModeExec, path, scope)
}

// runModuleSource compiles and runs an imported module's body in its own
// scope. The collector is held off for the duration, since the importing
// instruction is still in progress.
func (vm *VM) runModuleSource(mod Value, source, path string) error {
	code, err := vm.Compile(source, bytecode.ModeExec, path)
	if err != nil {
		return err
	}
	vm.nativeDepth++
	defer func() { vm.nativeDepth-- }()
	_, err = vm.execute(vm.newFrame(code, nil, vm.moduleScope(mod)))
	return err
}
