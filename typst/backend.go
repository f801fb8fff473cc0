package typst

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/quillmark-go/quillmark/backend"
	"github.com/quillmark-go/quillmark/diag"
	"github.com/quillmark-go/quillmark/glue"
	"github.com/quillmark-go/quillmark/quill"
	"github.com/quillmark-go/quillmark/value"
)

// Backend is the reference Typst implementation of backend.Backend, grounded
// on crates/backends/typst/src/lib.rs's TypstBackend. The actual Typst
// compilation step (glued source -> PDF/SVG bytes) is explicitly out of
// scope per spec.md's Non-goals ("the embedded typesetter itself"); Compile
// therefore returns a single artifact whose bytes are the glued source text
// tagged with the requested format, standing in for a real compiler call.
type Backend struct{}

var _ backend.Backend = (*Backend)(nil)
var _ backend.OptionalFieldTransformer = (*Backend)(nil)

func (b *Backend) ID() string { return "typst" }

func (b *Backend) SupportedFormats() []backend.OutputFormat {
	return []backend.OutputFormat{backend.FormatPDF, backend.FormatSVG}
}

func (b *Backend) GlueExtensionTypes() []string { return []string{".typ"} }

func (b *Backend) AllowAutoGlue() bool { return true }

func (b *Backend) RegisterFilters(g *glue.Glue) { registerFilters(g) }

// Compile stands in for a real Typst-to-PDF/SVG compiler invocation: it
// validates the requested format and packages the glued source as a single
// artifact. A trace id is generated when opts.TraceID is empty, but it is not
// attached to the artifact or the result.
func (b *Backend) Compile(glued string, q *quill.Quill, opts backend.RenderOptions) (backend.RenderResult, error) {
	format := opts.Format
	if format == "" {
		format = backend.FormatPDF
	}
	if !backend.SupportsFormat(b, format) {
		return backend.RenderResult{}, &diag.FormatNotSupported{
			Backend: b.ID(),
			Format:  string(format),
			Diag: diag.New(diag.Error, fmt.Sprintf("%s not supported by %s backend", format, b.ID())).
				WithCode("backend::format_not_supported").
				WithHint(fmt.Sprintf("supported formats: %v", b.SupportedFormats())),
		}
	}

	traceID := opts.TraceID
	if traceID == "" {
		traceID = uuid.New().String()
	}

	artifact := backend.Artifact{
		Bytes:        []byte(glued),
		OutputFormat: format,
	}
	return backend.NewRenderResult([]backend.Artifact{artifact}, nil), nil
}

// TransformFields is a no-op for the reference backend: markdown-valued
// fields are converted to Typst markup by the "Content" glue filter at
// render time rather than ahead of JSON serialization.
func (b *Backend) TransformFields(fields *value.OrderedMap, schema value.Value) *value.OrderedMap {
	return fields.Clone()
}
