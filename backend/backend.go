// Package backend defines Quillmark's C9 backend contract: the interface a
// concrete output-format implementation (Typst, LaTeX, ...) must satisfy to
// plug into the engine. Grounded on
// original_source/crates/core/src/backend.rs, adapted from a Rust trait
// with default methods into a Go interface plus small free functions that
// stand in for the "default implementation" behavior a Go interface cannot
// express directly.
package backend

import (
	"github.com/quillmark-go/quillmark/diag"
	"github.com/quillmark-go/quillmark/glue"
	"github.com/quillmark-go/quillmark/quill"
	"github.com/quillmark-go/quillmark/value"
)

// OutputFormat enumerates artifact kinds a backend can produce.
type OutputFormat string

const (
	FormatPDF OutputFormat = "pdf"
	FormatSVG OutputFormat = "svg"
	FormatTXT OutputFormat = "txt"
)

// Artifact is one compiled output document plus its format tag.
type Artifact struct {
	Bytes        []byte
	OutputFormat OutputFormat
}

// RenderOptions carries per-render knobs. Format selects the output format
// and TraceID an optional trace id. Assets, Fonts and DryRun are carried as
// given; neither Workflow.Render nor the Typst backend reads them (dynamic
// assets and fonts go through Workflow.WithAsset/WithFont, and a dry run
// through Workflow.DryRun).
type RenderOptions struct {
	Format  OutputFormat
	Assets  map[string][]byte
	Fonts   map[string][]byte
	DryRun  bool
	TraceID string
}

// RenderResult is a successful compile's output: one or more artifacts
// (backends that page-split may return several) plus warnings collected
// along the way.
type RenderResult struct {
	Artifacts []Artifact
	Warnings  []diag.Diagnostic
}

func NewRenderResult(artifacts []Artifact, warnings []diag.Diagnostic) RenderResult {
	return RenderResult{Artifacts: artifacts, Warnings: warnings}
}

// Backend is the interface a concrete output format implements.
type Backend interface {
	// ID is a unique backend identifier, e.g. "typst".
	ID() string

	// SupportedFormats lists the OutputFormat values this backend can produce.
	SupportedFormats() []OutputFormat

	// GlueExtensionTypes lists the file extensions (e.g. ".typ") this
	// backend recognizes as its glue template. An empty slice disables
	// custom glue files for this backend.
	GlueExtensionTypes() []string

	// AllowAutoGlue reports whether automatic JSON-glue generation is
	// permitted when a Quill supplies no glue template of its own.
	AllowAutoGlue() bool

	// RegisterFilters installs backend-specific template filters before
	// the glue template is rendered.
	RegisterFilters(g *glue.Glue)

	// Compile turns glued source text into final artifacts.
	Compile(glued string, q *quill.Quill, opts RenderOptions) (RenderResult, error)
}

// OptionalDefaultQuill is implemented by backends that embed a fallback
// Quill (registered as "__default__" if no default already exists).
type OptionalDefaultQuill interface {
	DefaultQuill() *quill.Quill
}

// OptionalFieldTransformer is implemented by backends that rewrite field
// values ahead of JSON serialization (e.g. markdown-to-backend-markup).
type OptionalFieldTransformer interface {
	TransformFields(fields *value.OrderedMap, schema value.Value) *value.OrderedMap
}

// OptionalDataCompiler is implemented by backends that can inject document
// data as a side channel (e.g. a virtual package) rather than only via the
// glued text. CompileWithData falls back to Compile when absent.
type OptionalDataCompiler interface {
	CompileWithData(glued string, q *quill.Quill, opts RenderOptions, jsonData string) (RenderResult, error)
}

// CompileWithData invokes a backend's CompileWithData if it implements
// OptionalDataCompiler, otherwise falls back to plain Compile — the Go
// stand-in for the Rust trait's default method body.
func CompileWithData(b Backend, glued string, q *quill.Quill, opts RenderOptions, jsonData string) (RenderResult, error) {
	if dc, ok := b.(OptionalDataCompiler); ok {
		return dc.CompileWithData(glued, q, opts, jsonData)
	}
	return b.Compile(glued, q, opts)
}

// DefaultQuill returns a backend's embedded default Quill, or nil.
func DefaultQuill(b Backend) *quill.Quill {
	if dq, ok := b.(OptionalDefaultQuill); ok {
		return dq.DefaultQuill()
	}
	return nil
}

// TransformFields returns a backend's field transformation, or fields
// unchanged if the backend doesn't implement OptionalFieldTransformer.
func TransformFields(b Backend, fields *value.OrderedMap, schema value.Value) *value.OrderedMap {
	if ft, ok := b.(OptionalFieldTransformer); ok {
		return ft.TransformFields(fields, schema)
	}
	return fields.Clone()
}

// SupportsFormat reports whether b can produce the given format.
func SupportsFormat(b Backend, f OutputFormat) bool {
	for _, sf := range b.SupportedFormats() {
		if sf == f {
			return true
		}
	}
	return false
}
