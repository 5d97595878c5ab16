// Package server implements the serpent language server.
package server

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/serpent/compiler"
	"github.com/chazu/serpent/pkg/bytecode"
	"github.com/chazu/serpent/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "serpent-lsp"

var (
	log              = commonlog.GetLogger("serpent.server")
	errWorkerStopped = errors.New("vm worker stopped")
)

// LspServer answers editor requests for serpent source files. Builtin
// information comes from a VM reached only through its VMWorker.
type LspServer struct {
	worker *VMWorker

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a language server backed by v.
func NewLSP(v *vm.VM, version string) *LspServer {
	s := &LspServer{
		worker:  NewVMWorker(v),
		docs:    make(map[string]string),
		version: version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)
	return s
}

// Run serves LSP on stdio until the client disconnects.
func (s *LspServer) Run() error {
	defer s.worker.Stop()
	return s.server.RunStdio()
}

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("%s %s initializing", lspName, s.version)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.setDoc(uri, params.TextDocument.Text)
	s.publishDiagnostics(ctx, uri, params.TextDocument.Text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// Full sync: the last event carries the whole text.
	last := params.ContentChanges[len(params.ContentChanges)-1]
	if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
		s.setDoc(params.TextDocument.URI, whole.Text)
		s.publishDiagnostics(ctx, params.TextDocument.URI, whole.Text)
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) setDoc(uri protocol.DocumentUri, text string) {
	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()
}

func (s *LspServer) doc(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.doc(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return s.complete(text, prefix)
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.doc(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.hover(text, word)
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	text, ok := s.doc(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	def := findDefinition(text, uriPath(uri), word)
	if def == nil {
		return nil, nil
	}
	return []protocol.Location{{URI: uri, Range: spanRange(def.span)}}, nil
}

// complete gathers keywords, builtin names and names defined in the
// document that start with prefix.
func (s *LspServer) complete(text, prefix string) ([]protocol.CompletionItem, error) {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if seen[label] || !strings.HasPrefix(label, prefix) {
			return
		}
		seen[label] = true
		d := detail
		items = append(items, protocol.CompletionItem{
			Label:  label,
			Kind:   &kind,
			Detail: &d,
		})
	}

	for _, kw := range compiler.Keywords() {
		add(kw, protocol.CompletionItemKindKeyword, "keyword")
	}

	for _, d := range documentDefinitions(text, "") {
		kind := protocol.CompletionItemKindFunction
		if d.kind == "class" {
			kind = protocol.CompletionItemKindClass
		}
		add(d.name, kind, d.signature)
	}

	result, err := s.worker.Do(func(v *vm.VM) any {
		return builtinEntries(v)
	})
	if err != nil {
		return nil, err
	}
	for _, b := range result.([]builtinEntry) {
		kind := protocol.CompletionItemKindFunction
		switch b.kind {
		case "class":
			kind = protocol.CompletionItemKindClass
		case "value":
			kind = protocol.CompletionItemKindConstant
		}
		add(b.name, kind, b.detail)
	}

	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items, nil
}

func (s *LspServer) hover(text, word string) (*protocol.Hover, error) {
	var body string
	if d := findDefinition(text, "", word); d != nil {
		body = fmt.Sprintf("```\n%s\n```\n\nDefined on line %d", d.signature, d.span.Start.Line)
	} else if isKeyword(word) {
		body = fmt.Sprintf("**%s** keyword", word)
	} else {
		result, err := s.worker.Do(func(v *vm.VM) any {
			return describeBuiltin(v, word)
		})
		if err != nil {
			return nil, err
		}
		body = result.(string)
	}
	if body == "" {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: body,
		},
	}, nil
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnose(text, uriPath(uri)),
	})
}

// diagnose compiles text and reports the compile failure, if any, at the
// position the front end gives.
func diagnose(text, path string) []protocol.Diagnostic {
	_, err := compiler.Compile(text, bytecode.ModeExec, path)
	if err == nil {
		return []protocol.Diagnostic{}
	}

	var cerr *compiler.Error
	pos := protocol.Position{}
	msg := err.Error()
	if errors.As(err, &cerr) {
		msg = cerr.Message()
		line, col := cerr.Location()
		if line > 0 {
			pos.Line = protocol.UInteger(line - 1)
		}
		if col > 0 {
			pos.Character = protocol.UInteger(col - 1)
		}
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	return []protocol.Diagnostic{{
		Range:    protocol.Range{Start: pos, End: pos},
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}}
}

// --- VM-backed lookups (run on the worker goroutine) ---

type builtinEntry struct {
	name   string
	kind   string // "class", "function" or "value"
	detail string
}

func builtinEntries(v *vm.VM) []builtinEntry {
	names := v.ScopeNames(v.Builtins)
	sort.Strings(names)
	out := make([]builtinEntry, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, "__") {
			continue
		}
		val, _ := v.LookupName(v.Builtins, name)
		e := builtinEntry{name: name, kind: "value", detail: "builtin " + v.TypeName(val)}
		if v.IsType(val) {
			e.kind = "class"
			e.detail = "class " + name
		} else if k, ok := v.KindOf(val); ok && k == vm.KindNative {
			e.kind = "function"
			e.detail = "built-in function " + name
		}
		out = append(out, e)
	}
	return out
}

func describeBuiltin(v *vm.VM, name string) string {
	val, ok := v.LookupName(v.Builtins, name)
	if !ok || strings.HasPrefix(name, "__") {
		return ""
	}
	if v.IsType(val) {
		mro := v.MRONames(val)
		return fmt.Sprintf("**class %s**\n\nMRO: %s", name, strings.Join(mro, " → "))
	}
	if k, ok := v.KindOf(val); ok && k == vm.KindNative {
		return fmt.Sprintf("**%s** built-in function", name)
	}
	r, err := v.Repr(val)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("**%s** = `%s`", name, r)
}

// --- Document analysis ---

type definition struct {
	name      string
	kind      string // "def" or "class"
	signature string
	span      compiler.Span
}

// documentDefinitions lists every def and class statement in text. A
// document that does not parse yields nothing.
func documentDefinitions(text, path string) []definition {
	mod, err := compiler.Parse(text, path)
	if err != nil {
		return nil
	}
	var out []definition
	collectDefinitions(mod.Body, &out)
	return out
}

func collectDefinitions(body []compiler.Stmt, out *[]definition) {
	for _, st := range body {
		switch n := st.(type) {
		case *compiler.FuncDef:
			params := make([]string, len(n.Params))
			for i, p := range n.Params {
				params[i] = p.Name
				if p.Default != nil {
					params[i] += "=..."
				}
			}
			*out = append(*out, definition{
				name:      n.Name,
				kind:      "def",
				signature: fmt.Sprintf("def %s(%s)", n.Name, strings.Join(params, ", ")),
				span:      n.Span(),
			})
			collectDefinitions(n.Body, out)
		case *compiler.ClassDef:
			*out = append(*out, definition{
				name:      n.Name,
				kind:      "class",
				signature: "class " + n.Name,
				span:      n.Span(),
			})
			collectDefinitions(n.Body, out)
		case *compiler.If:
			collectDefinitions(n.Body, out)
			collectDefinitions(n.OrElse, out)
		case *compiler.While:
			collectDefinitions(n.Body, out)
			collectDefinitions(n.OrElse, out)
		case *compiler.For:
			collectDefinitions(n.Body, out)
			collectDefinitions(n.OrElse, out)
		case *compiler.Try:
			collectDefinitions(n.Body, out)
			for _, h := range n.Handlers {
				collectDefinitions(h.Body, out)
			}
			collectDefinitions(n.OrElse, out)
			collectDefinitions(n.Finally, out)
		}
	}
}

// findDefinition returns the first definition of name in text.
func findDefinition(text, path, name string) *definition {
	for _, d := range documentDefinitions(text, path) {
		if d.name == name {
			return &d
		}
	}
	return nil
}

func isKeyword(word string) bool {
	kws := compiler.Keywords()
	i := sort.SearchStrings(kws, word)
	return i < len(kws) && kws[i] == word
}

func spanRange(sp compiler.Span) protocol.Range {
	toPos := func(p compiler.Position) protocol.Position {
		var out protocol.Position
		if p.Line > 0 {
			out.Line = protocol.UInteger(p.Line - 1)
		}
		if p.Column > 0 {
			out.Character = protocol.UInteger(p.Column - 1)
		}
		return out
	}
	return protocol.Range{Start: toPos(sp.Start), End: toPos(sp.End)}
}

// uriPath turns a file:// URI into the path used in compile errors.
func uriPath(uri protocol.DocumentUri) string {
	u, err := url.Parse(string(uri))
	if err != nil || u.Scheme != "file" {
		return string(uri)
	}
	return u.Path
}

// --- Text extraction helpers ---

func isIdentChar(ch byte) bool {
	r := rune(ch)
	return unicode.IsLetter(r) || unicode.IsDigit(r) || ch == '_'
}

// extractPrefix returns the identifier fragment before the cursor.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := min(int(pos.Character), len(line))

	start := col
	for start > 0 && isIdentChar(line[start-1]) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := min(int(pos.Character), len(line))

	start := col
	for start > 0 && isIdentChar(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isIdentChar(line[end]) {
		end++
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
