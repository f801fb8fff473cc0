package quillmark

import (
	"fmt"
	"sort"

	"github.com/quillmark-go/quillmark/backend"
	"github.com/quillmark-go/quillmark/diag"
	"github.com/quillmark-go/quillmark/filetree"
	"github.com/quillmark-go/quillmark/glue"
	"github.com/quillmark-go/quillmark/parse"
	"github.com/quillmark-go/quillmark/quill"
	"github.com/quillmark-go/quillmark/schema"
	"github.com/quillmark-go/quillmark/value"
)

const (
	dynamicAssetPrefix = "assets/DYNAMIC_ASSET__"
	dynamicFontPrefix  = "assets/DYNAMIC_FONT__"
)

// Workflow renders Markdown documents through one backend/quill pairing.
// Grounded on orchestration.rs's Workflow: it owns its dynamic asset/font
// overlays and exposes render at three levels (full render, pre-composed
// content render, glue-only composition).
type Workflow struct {
	b             backend.Backend
	q             *quill.Quill
	dynamicAssets map[string][]byte
	dynamicFonts  map[string][]byte
}

func newWorkflow(b backend.Backend, q *quill.Quill) *Workflow {
	return &Workflow{
		b:             b,
		q:             q,
		dynamicAssets: make(map[string][]byte),
		dynamicFonts:  make(map[string][]byte),
	}
}

// BackendID returns the backend identifier (e.g. "typst").
func (w *Workflow) BackendID() string { return w.b.ID() }

// SupportedFormats returns the output formats this workflow's backend supports.
func (w *Workflow) SupportedFormats() []backend.OutputFormat { return w.b.SupportedFormats() }

// QuillName returns the quill name used by this workflow.
func (w *Workflow) QuillName() string { return w.q.Name }

// DynamicAssetNames lists the dynamic asset filenames added via WithAsset/WithAssets.
func (w *Workflow) DynamicAssetNames() []string {
	return sortedKeysOf(w.dynamicAssets)
}

// WithAsset adds a dynamic asset to the workflow (builder pattern), returning
// a new *Workflow sharing the same backend/quill. Filenames must be unique.
func (w *Workflow) WithAsset(filename string, contents []byte) (*Workflow, error) {
	if _, exists := w.dynamicAssets[filename]; exists {
		return nil, &diag.DynamicAssetCollision{
			Filename: filename,
			Diag: diag.New(diag.Error, fmt.Sprintf("dynamic asset %q already exists", filename)).
				WithCode("workflow::dynamic_asset_collision").
				WithHint("each asset filename must be unique"),
		}
	}
	next := w.clone()
	next.dynamicAssets[filename] = contents
	return next, nil
}

// WithAssets adds multiple dynamic assets at once (builder pattern).
func (w *Workflow) WithAssets(assets map[string][]byte) (*Workflow, error) {
	next := w
	for _, name := range sortedKeysOf(assets) {
		var err error
		next, err = next.WithAsset(name, assets[name])
		if err != nil {
			return nil, err
		}
	}
	return next, nil
}

// ClearAssets drops all dynamic assets (builder pattern).
func (w *Workflow) ClearAssets() *Workflow {
	next := w.clone()
	next.dynamicAssets = make(map[string][]byte)
	return next
}

// DynamicFontNames lists the dynamic font filenames added via WithFont/WithFonts.
func (w *Workflow) DynamicFontNames() []string {
	return sortedKeysOf(w.dynamicFonts)
}

// WithFont adds a dynamic font to the workflow (builder pattern). Fonts are
// saved under assets/ with a DYNAMIC_FONT__ prefix, mirroring
// prepare_quill_with_assets.
func (w *Workflow) WithFont(filename string, contents []byte) (*Workflow, error) {
	if _, exists := w.dynamicFonts[filename]; exists {
		return nil, &diag.DynamicFontCollision{
			Filename: filename,
			Diag: diag.New(diag.Error, fmt.Sprintf("dynamic font %q already exists", filename)).
				WithCode("workflow::dynamic_font_collision").
				WithHint("each font filename must be unique"),
		}
	}
	next := w.clone()
	next.dynamicFonts[filename] = contents
	return next, nil
}

// WithFonts adds multiple dynamic fonts at once (builder pattern).
func (w *Workflow) WithFonts(fonts map[string][]byte) (*Workflow, error) {
	next := w
	for _, name := range sortedKeysOf(fonts) {
		var err error
		next, err = next.WithFont(name, fonts[name])
		if err != nil {
			return nil, err
		}
	}
	return next, nil
}

// ClearFonts drops all dynamic fonts (builder pattern).
func (w *Workflow) ClearFonts() *Workflow {
	next := w.clone()
	next.dynamicFonts = make(map[string][]byte)
	return next
}

func (w *Workflow) clone() *Workflow {
	next := &Workflow{
		b:             w.b,
		q:             w.q,
		dynamicAssets: make(map[string][]byte, len(w.dynamicAssets)),
		dynamicFonts:  make(map[string][]byte, len(w.dynamicFonts)),
	}
	for k, v := range w.dynamicAssets {
		next.dynamicAssets[k] = v
	}
	for k, v := range w.dynamicFonts {
		next.dynamicFonts[k] = v
	}
	return next
}

// ProcessGlue parses markdown, applies the quill's schema (defaults,
// coercion, validation), runs any backend field transform, and composes the
// glue template, returning the backend-specific rendered source without
// compiling it. Grounded on process_glue.
func (w *Workflow) ProcessGlue(markdown string) (string, error) {
	out, _, err := w.processGlueWithWarnings(markdown)
	return out, err
}

// CompileData runs markdown through parsing, defaults, coercion,
// validation, and any backend field transform, and returns the resulting
// field map without composing the glue template or compiling anything.
// Grounded on the wasm bindings' Workflow::compile_data (crates/bindings/
// wasm/src/engine.rs): "the intermediate data structure that would be
// passed to the backend. Useful for debugging and validation."
func (w *Workflow) CompileData(markdown string) (*value.OrderedMap, error) {
	fields, _, err := w.compileFields(markdown)
	return fields, err
}

func (w *Workflow) compileFields(markdown string) (*value.OrderedMap, []diag.Diagnostic, error) {
	doc, err := parse.Decompose(markdown)
	if err != nil {
		return nil, nil, err
	}

	fields := doc.Fields()
	fields = schema.ApplyDefaults(fields, w.q.Schema)
	fields, warnings := schema.CoerceDocumentWithWarnings(fields, w.q.Schema)
	if err := schema.ValidateDocument(fields, w.q.Schema); err != nil {
		return nil, nil, err
	}
	fields = backend.TransformFields(w.b, fields, w.q.Schema)
	return fields, warnings, nil
}

func (w *Workflow) processGlueWithWarnings(markdown string) (string, []diag.Diagnostic, error) {
	fields, warnings, err := w.compileFields(markdown)
	if err != nil {
		return "", nil, err
	}

	g := glue.New(w.q.GlueTemplate)
	w.b.RegisterFilters(g)

	out, err := g.Render(fields)
	if err != nil {
		return "", nil, &diag.TemplateFailed{
			Diag: diag.New(diag.Error, fmt.Sprintf("glue composition failed: %v", err)).
				WithCode("workflow::glue_failed"),
			Err: err,
		}
	}
	return out, warnings, nil
}

// DryRun runs the pipeline through defaults/coercion/validation/glue
// composition but never calls the backend's Compile, grounded on
// crates/quillmark/tests/dry_run_test.rs: useful for validating a document
// against its quill's schema without producing artifacts.
func (w *Workflow) DryRun(markdown string) (string, error) {
	return w.ProcessGlue(markdown)
}

// Render parses markdown, composes the glue template, and compiles the
// result via the backend, returning the final artifacts. Grounded on
// Workflow::render.
func (w *Workflow) Render(markdown string, opts backend.RenderOptions) (backend.RenderResult, error) {
	glued, warnings, err := w.processGlueWithWarnings(markdown)
	if err != nil {
		return backend.RenderResult{}, err
	}
	result, err := w.renderSourceWithQuill(glued, opts)
	if err != nil {
		return result, err
	}
	result.Warnings = append(append([]diag.Diagnostic{}, warnings...), result.Warnings...)
	return result, nil
}

// RenderSource compiles pre-composed glue content directly, skipping
// markdown parsing and template composition. Grounded on Workflow::render_source.
func (w *Workflow) RenderSource(content string, opts backend.RenderOptions) (backend.RenderResult, error) {
	return w.renderSourceWithQuill(content, opts)
}

func (w *Workflow) renderSourceWithQuill(content string, opts backend.RenderOptions) (backend.RenderResult, error) {
	if opts.Format == "" {
		if supported := w.b.SupportedFormats(); len(supported) > 0 {
			opts.Format = supported[0]
		}
	}

	preparedQuill := w.prepareQuillWithAssets()
	return w.b.Compile(content, preparedQuill, opts)
}

// prepareQuillWithAssets clones the workflow's quill and overlays its
// dynamic assets/fonts into the clone's file tree, grounded on
// prepare_quill_with_assets.
func (w *Workflow) prepareQuillWithAssets() *quill.Quill {
	if len(w.dynamicAssets) == 0 && len(w.dynamicFonts) == 0 {
		return w.q
	}

	clonedFiles := w.q.Files
	if clonedFiles != nil {
		clonedFiles = clonedFiles.Clone()
	} else {
		clonedFiles = filetree.NewDir()
	}

	for _, name := range sortedKeysOf(w.dynamicAssets) {
		clonedFiles.Insert(dynamicAssetPrefix+name, w.dynamicAssets[name])
	}
	for _, name := range sortedKeysOf(w.dynamicFonts) {
		clonedFiles.Insert(dynamicFontPrefix+name, w.dynamicFonts[name])
	}

	cp := *w.q
	cp.Files = clonedFiles
	return &cp
}

func sortedKeysOf(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
