package server

import (
	"os"
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/serpent/compiler"
	"github.com/chazu/serpent/vm"
)

var testWorker *VMWorker

func TestMain(m *testing.M) {
	v := vm.NewVM()
	v.UseCompiler(compiler.Compile)
	testWorker = NewVMWorker(v)

	code := m.Run()

	testWorker.Stop()
	os.Exit(code)
}

func newTestLSP() *LspServer {
	return &LspServer{worker: testWorker, docs: make(map[string]string)}
}

func hoverText(t *testing.T, h *protocol.Hover) string {
	t.Helper()
	if h == nil {
		t.Fatal("expected a hover result")
	}
	mc, ok := h.Contents.(protocol.MarkupContent)
	if !ok {
		t.Fatal("hover contents should be MarkupContent")
	}
	if mc.Kind != protocol.MarkupKindMarkdown {
		t.Errorf("markup kind = %q", mc.Kind)
	}
	return mc.Value
}

// ---------------------------------------------------------------------------
// Text extraction
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		text string
		pos  protocol.Position
		want string
	}{
		{"x = pri", protocol.Position{Line: 0, Character: 7}, "pri"},
		{"first\nsecond\nlen", protocol.Position{Line: 2, Character: 3}, "len"},
		{"obj.attr_na", protocol.Position{Line: 0, Character: 11}, "attr_na"},
		{"", protocol.Position{Line: 0, Character: 0}, ""},
		{"hello", protocol.Position{Line: 0, Character: 0}, ""},
		{"single", protocol.Position{Line: 4, Character: 0}, ""},
		{"short", protocol.Position{Line: 0, Character: 40}, "short"},
	}
	for _, tt := range tests {
		if got := extractPrefix(tt.text, tt.pos); got != tt.want {
			t.Errorf("extractPrefix(%q, %v) = %q, want %q", tt.text, tt.pos, got, tt.want)
		}
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		text string
		pos  protocol.Position
		want string
	}{
		{"hello world", protocol.Position{Line: 0, Character: 3}, "hello"},
		{"hello world", protocol.Position{Line: 0, Character: 5}, "hello"},
		{"hello world", protocol.Position{Line: 0, Character: 8}, "world"},
		{"first\nmy_var = 1", protocol.Position{Line: 1, Character: 2}, "my_var"},
		{"f(a, b)", protocol.Position{Line: 0, Character: 1}, "f"},
		{"", protocol.Position{Line: 0, Character: 0}, ""},
		{"single", protocol.Position{Line: 5, Character: 0}, ""},
	}
	for _, tt := range tests {
		if got := extractWord(tt.text, tt.pos); got != tt.want {
			t.Errorf("extractWord(%q, %v) = %q, want %q", tt.text, tt.pos, got, tt.want)
		}
	}
}

func TestURIPath(t *testing.T) {
	if got := uriPath("file:///tmp/proj/main.py"); got != "/tmp/proj/main.py" {
		t.Errorf("uriPath = %q", got)
	}
	if got := uriPath("untitled:Untitled-1"); got != "untitled:Untitled-1" {
		t.Errorf("non-file uri = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestDiagnoseClean(t *testing.T) {
	diags := diagnose("def f(a):\n    return a\n", "ok.py")
	if diags == nil || len(diags) != 0 {
		t.Errorf("diagnostics = %+v, want empty", diags)
	}
}

func TestDiagnoseSyntaxError(t *testing.T) {
	diags := diagnose("x = 1\ny = = 2\n", "bad.py")
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics", len(diags))
	}
	d := diags[0]
	if d.Range.Start.Line != 1 {
		t.Errorf("line = %d, want 1", d.Range.Start.Line)
	}
	if d.Message != "invalid syntax" {
		t.Errorf("message = %q", d.Message)
	}
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
		t.Error("severity should be Error")
	}
	if d.Source == nil || *d.Source != lspName {
		t.Error("source should name the server")
	}
}

func TestDiagnoseIncompleteInput(t *testing.T) {
	diags := diagnose("if True:\n", "open.py")
	if len(diags) != 1 || diags[0].Message != compiler.MsgUnexpectedEOF {
		t.Errorf("diagnostics = %+v", diags)
	}
}

// ---------------------------------------------------------------------------
// Completion, hover and definition
// ---------------------------------------------------------------------------

func findItem(items []protocol.CompletionItem, label string) *protocol.CompletionItem {
	for i := range items {
		if items[i].Label == label {
			return &items[i]
		}
	}
	return nil
}

func TestCompleteBuiltinsAndKeywords(t *testing.T) {
	lsp := newTestLSP()

	items, err := lsp.complete("", "pri")
	if err != nil {
		t.Fatal(err)
	}
	item := findItem(items, "print")
	if item == nil || item.Kind == nil || *item.Kind != protocol.CompletionItemKindFunction {
		t.Errorf("print completion = %+v", item)
	}

	items, err = lsp.complete("", "ret")
	if err != nil {
		t.Fatal(err)
	}
	item = findItem(items, "return")
	if item == nil || *item.Kind != protocol.CompletionItemKindKeyword {
		t.Errorf("return completion = %+v", item)
	}

	items, err = lsp.complete("", "Zero")
	if err != nil {
		t.Fatal(err)
	}
	item = findItem(items, "ZeroDivisionError")
	if item == nil || *item.Kind != protocol.CompletionItemKindClass {
		t.Errorf("ZeroDivisionError completion = %+v", item)
	}

	for _, it := range items {
		if !strings.HasPrefix(it.Label, "Zero") {
			t.Errorf("%q does not match prefix", it.Label)
		}
	}
}

func TestCompleteDocumentNames(t *testing.T) {
	lsp := newTestLSP()
	text := "def compute(a, b=1):\n    return a\n\nclass Computer:\n    pass\n"
	items, err := lsp.complete(text, "comp")
	if err != nil {
		t.Fatal(err)
	}
	fn := findItem(items, "compute")
	if fn == nil || fn.Detail == nil || *fn.Detail != "def compute(a, b=...)" {
		t.Errorf("compute completion = %+v", fn)
	}
	if findItem(items, "Computer") != nil {
		t.Error("completion is case sensitive")
	}
}

func TestHoverBuiltinType(t *testing.T) {
	h, err := newTestLSP().hover("", "bool")
	if err != nil {
		t.Fatal(err)
	}
	got := hoverText(t, h)
	if !strings.Contains(got, "class bool") || !strings.Contains(got, "bool → int → object") {
		t.Errorf("hover = %q", got)
	}
}

func TestHoverBuiltinFunction(t *testing.T) {
	h, err := newTestLSP().hover("", "len")
	if err != nil {
		t.Fatal(err)
	}
	if got := hoverText(t, h); !strings.Contains(got, "built-in function") {
		t.Errorf("hover = %q", got)
	}
}

func TestHoverDocumentDefinitionAndKeyword(t *testing.T) {
	text := "x = 1\ndef area(w, h):\n    return w * h\n"
	h, err := newTestLSP().hover(text, "area")
	if err != nil {
		t.Fatal(err)
	}
	got := hoverText(t, h)
	if !strings.Contains(got, "def area(w, h)") || !strings.Contains(got, "line 2") {
		t.Errorf("hover = %q", got)
	}

	h, err = newTestLSP().hover(text, "while")
	if err != nil {
		t.Fatal(err)
	}
	if got := hoverText(t, h); !strings.Contains(got, "keyword") {
		t.Errorf("keyword hover = %q", got)
	}
}

func TestHoverUnknownWord(t *testing.T) {
	h, err := newTestLSP().hover("", "no_such_name_99")
	if err != nil {
		t.Fatal(err)
	}
	if h != nil {
		t.Errorf("hover = %+v, want nil", h)
	}
}

func TestFindDefinitionNested(t *testing.T) {
	text := "if True:\n    class Shape:\n        def area(self):\n            return 0\n"
	d := findDefinition(text, "", "area")
	if d == nil {
		t.Fatal("area not found")
	}
	if d.kind != "def" || d.span.Start.Line != 3 {
		t.Errorf("definition = %+v", d)
	}
	r := spanRange(d.span)
	if r.Start.Line != 2 {
		t.Errorf("range start line = %d, want 2", r.Start.Line)
	}

	if findDefinition(text, "", "missing") != nil {
		t.Error("unexpected definition for missing name")
	}
	if findDefinition("def broken(:\n", "", "broken") != nil {
		t.Error("a document that does not parse has no definitions")
	}
}

func TestDocumentStore(t *testing.T) {
	lsp := newTestLSP()
	uri := protocol.DocumentUri("file:///test.py")
	lsp.setDoc(uri, "print(1)\n")
	if text, ok := lsp.doc(uri); !ok || text != "print(1)\n" {
		t.Errorf("doc = %q, %v", text, ok)
	}
	lsp.mu.Lock()
	delete(lsp.docs, string(uri))
	lsp.mu.Unlock()
	if _, ok := lsp.doc(uri); ok {
		t.Error("document should be removed")
	}
}
