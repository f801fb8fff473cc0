// Package quillmark implements the Quillmark engine: registration of
// backends and quills, and workflow creation from either. Grounded on
// orchestration/engine.rs's Quillmark struct (the newer Plate-terminology
// engine, translated back to this module's Quill terminology).
package quillmark

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/quillmark-go/quillmark/backend"
	"github.com/quillmark-go/quillmark/diag"
	"github.com/quillmark-go/quillmark/parse"
	"github.com/quillmark-go/quillmark/quill"
	"github.com/quillmark-go/quillmark/typst"
	"github.com/quillmark-go/quillmark/value"
)

// DefaultQuillName is the name under which a backend's built-in default
// quill is auto-registered, mirroring engine.rs's "__default__" sentinel.
const DefaultQuillName = "__default__"

// Engine orchestrates backends and quills and creates Workflows from them.
type Engine struct {
	backends map[string]backend.Backend
	quills   map[string]*quill.Quill
	log      *slog.Logger
}

// New creates an Engine. By default the built-in Typst backend is
// auto-registered, mirroring Quillmark::new()'s feature-gated registration.
func New(opts ...Option) *Engine {
	cfg := &engineConfig{}
	for _, o := range opts {
		o(cfg)
	}

	e := &Engine{
		backends: make(map[string]backend.Backend),
		quills:   make(map[string]*quill.Quill),
		log:      slog.Default(),
	}

	if !cfg.noAutoBackends {
		e.RegisterBackend(&typst.Backend{})
	}

	return e
}

// RegisterBackend registers a backend by its ID. If the backend provides a
// default quill (via backend.OptionalDefaultQuill) and no quill named
// DefaultQuillName is registered yet, the default quill is registered
// best-effort: a failure is logged, not returned, matching register_backend's
// "Warning: Failed to register default Plate" behavior.
func (e *Engine) RegisterBackend(b backend.Backend) {
	id := b.ID()
	defaultQuill := backend.DefaultQuill(b)

	e.backends[id] = b

	if defaultQuill != nil {
		if _, exists := e.quills[DefaultQuillName]; !exists {
			if err := e.RegisterQuill(defaultQuill); err != nil {
				e.log.Warn("failed to register default quill from backend", "backend", id, "error", err)
			}
		}
	}
}

// RegisterQuill registers a quill template with the engine by name,
// validating it against its declared backend: the backend must be
// registered, the glue file's extension must be accepted by that backend
// (or the backend must allow auto-glue), and the quill's name must not
// collide with an already-registered quill.
func (e *Engine) RegisterQuill(q *quill.Quill) error {
	name := q.Name

	if _, exists := e.quills[name]; exists {
		return &diag.QuillConfig{
			Diag: diag.New(diag.Error, fmt.Sprintf("quill %q is already registered", name)).
				WithCode("quill::name_collision").
				WithHint("each quill must have a unique name"),
		}
	}

	b, ok := e.backends[q.Backend]
	if !ok {
		return &diag.QuillConfig{
			Diag: diag.New(diag.Error, fmt.Sprintf("backend %q specified in quill %q is not registered", q.Backend, name)).
				WithCode("quill::backend_not_found").
				WithHint(fmt.Sprintf("available backends: %s", joinKeys(e.backends))),
		}
	}

	if q.GlueFile != "" {
		ext := filepath.Ext(q.GlueFile)
		if !containsStr(b.GlueExtensionTypes(), ext) {
			return &diag.QuillConfig{
				Diag: diag.New(diag.Error, fmt.Sprintf("glue file %q has extension %q which is not supported by backend %q", q.GlueFile, ext, q.Backend)).
					WithCode("quill::glue_extension_mismatch").
					WithHint(fmt.Sprintf("supported extensions for %q backend: %v", q.Backend, b.GlueExtensionTypes())),
			}
		}
	} else if !b.AllowAutoGlue() {
		return &diag.QuillConfig{
			Diag: diag.New(diag.Error, fmt.Sprintf("backend %q does not support automatic glue generation, but quill %q does not specify a glue file", q.Backend, name)).
				WithCode("quill::auto_glue_not_allowed").
				WithHint(fmt.Sprintf("add a glue file with one of these extensions: %v", b.GlueExtensionTypes())),
		}
	}

	e.quills[name] = q
	return nil
}

// UnregisterQuill removes a quill by name, reporting whether it was present.
func (e *Engine) UnregisterQuill(name string) bool {
	if _, ok := e.quills[name]; !ok {
		return false
	}
	delete(e.quills, name)
	return true
}

// Workflow creates a Workflow from a quill reference: a registered quill's
// name, a *quill.Quill object (need not be registered), or a
// *parse.ParsedDocument (whose QuillTag names the quill to look up).
// Mirrors engine.rs's workflow(PlateRef) polymorphic lookup.
func (e *Engine) Workflow(ref any) (*Workflow, error) {
	var q *quill.Quill

	switch v := ref.(type) {
	case string:
		found, ok := e.quills[v]
		if !ok {
			return nil, &diag.QuillNotFound{
				Diag: diag.New(diag.Error, fmt.Sprintf("quill %q not registered", v)).
					WithCode("engine::quill_not_found").
					WithHint(fmt.Sprintf("available quills: %s", joinQuillKeys(e.quills))),
			}
		}
		q = found

	case *quill.Quill:
		q = v

	case *parse.ParsedDocument:
		tag := v.QuillTag()
		found, ok := e.quills[tag]
		if !ok {
			return nil, &diag.QuillNotFound{
				Diag: diag.New(diag.Error, fmt.Sprintf("quill %q not registered", tag)).
					WithCode("engine::quill_not_found").
					WithHint(fmt.Sprintf("available quills: %s", joinQuillKeys(e.quills))),
			}
		}
		q = found

	default:
		return nil, fmt.Errorf("quillmark: unsupported quill reference type %T", ref)
	}

	backendID, ok := quillBackendID(q)
	if !ok {
		return nil, &diag.QuillConfig{
			Diag: diag.New(diag.Error, fmt.Sprintf("quill %q does not specify a backend", q.Name)).
				WithCode("engine::missing_backend").
				WithHint(`add backend = "typst" to the [Quill] section of Quill.toml`),
		}
	}

	b, ok := e.backends[backendID]
	if !ok {
		return nil, &diag.UnsupportedBackend{
			Diag: diag.New(diag.Error, fmt.Sprintf("backend %q not registered or not enabled", backendID)).
				WithCode("engine::backend_not_found").
				WithHint(fmt.Sprintf("available backends: %s", joinKeys(e.backends))),
		}
	}

	return newWorkflow(b, q), nil
}

// RegisteredBackends lists the IDs of all registered backends, sorted.
func (e *Engine) RegisteredBackends() []string {
	keys := make([]string, 0, len(e.backends))
	for k := range e.backends {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RegisteredQuills lists the names of all registered quills, sorted.
func (e *Engine) RegisteredQuills() []string {
	keys := make([]string, 0, len(e.quills))
	for k := range e.quills {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetQuill returns a registered quill by name.
func (e *Engine) GetQuill(name string) (*quill.Quill, bool) {
	q, ok := e.quills[name]
	return q, ok
}

// GetQuillMetadata returns a registered quill's metadata by name.
func (e *Engine) GetQuillMetadata(name string) (*value.OrderedMap, bool) {
	q, ok := e.quills[name]
	if !ok {
		return nil, false
	}
	return q.Metadata, true
}

func quillBackendID(q *quill.Quill) (string, bool) {
	if q.Backend != "" {
		return q.Backend, true
	}
	return "", false
}

func containsStr(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func joinKeys(m map[string]backend.Backend) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += k
	}
	return out
}

func joinQuillKeys(m map[string]*quill.Quill) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += k
	}
	return out
}
