package vm

import (
	"errors"
	"os"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/chazu/serpent/pkg/bytecode"
)

type scenario struct {
	Name    string `yaml:"name"`
	Source  string `yaml:"source"`
	Stdout  string `yaml:"stdout"`
	Error   string `yaml:"error"`
	Message string `yaml:"message"`
}

func loadScenarios(t *testing.T, path string) []scenario {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var out []scenario
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	if len(out) == 0 {
		t.Fatalf("%s has no scenarios", path)
	}
	return out
}

func TestScenarios(t *testing.T) {
	for _, sc := range loadScenarios(t, "testdata/scenarios.yaml") {
		t.Run(sc.Name, func(t *testing.T) {
			vm, out := newTestVM(t)
			_, err := vm.RunString(sc.Source, bytecode.ModeExec, "<scenario>")

			if sc.Error == "" {
				if err != nil {
					t.Fatalf("unexpected error:\n%s", vm.FormatException(err))
				}
			} else {
				var exc *ExceptionObject
				if !errors.As(err, &exc) {
					t.Fatalf("expected %s, got %v", sc.Error, err)
				}
				if exc.TypeName() != sc.Error {
					t.Errorf("exception = %s, want %s", exc.Error(), sc.Error)
				}
				if sc.Message != "" && exc.Message() != sc.Message {
					t.Errorf("message = %q, want %q", exc.Message(), sc.Message)
				}
			}
			if out.String() != sc.Stdout {
				t.Errorf("stdout = %q, want %q", out.String(), sc.Stdout)
			}
		})
	}
}
