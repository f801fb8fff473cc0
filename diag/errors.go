package diag

import "fmt"

// RenderError is the sum type of render-pipeline failures. Each concrete
// type below implements error and carries a Diagnostic (or in the
// CompilationFailed case, several).

// InputTooLarge reports a source document over the 10 MiB limit.
type InputTooLarge struct{ Diag Diagnostic }

func (e *InputTooLarge) Error() string { return e.Diag.Message }

// YamlTooLarge reports a frontmatter block over the 1 MiB YAML limit.
type YamlTooLarge struct{ Diag Diagnostic }

func (e *YamlTooLarge) Error() string { return e.Diag.Message }

// NestingTooDeep reports Markdown nesting exceeding the depth limit.
type NestingTooDeep struct {
	Depth, Max int
	Diag       Diagnostic
}

func (e *NestingTooDeep) Error() string {
	return fmt.Sprintf("nesting too deep: depth %d exceeds max %d", e.Depth, e.Max)
}

// OutputTooLarge reports a backend artifact over an implementation-defined cap.
type OutputTooLarge struct{ Diag Diagnostic }

func (e *OutputTooLarge) Error() string { return e.Diag.Message }

// InvalidFrontmatter reports a C2 parse failure.
type InvalidFrontmatter struct {
	Diag Diagnostic
	Err  error
}

func (e *InvalidFrontmatter) Error() string { return e.Diag.Message }
func (e *InvalidFrontmatter) Unwrap() error  { return e.Err }

// MissingCardDirective reports a malformed SCOPE block.
type MissingCardDirective struct{ Diag Diagnostic }

func (e *MissingCardDirective) Error() string { return e.Diag.Message }

// QuillConfig reports a Quill registration failure (name collision, bad
// backend reference, glue extension mismatch, auto-glue disallowed).
type QuillConfig struct{ Diag Diagnostic }

func (e *QuillConfig) Error() string { return e.Diag.Message }

// QuillNotFound reports a lookup miss by name.
type QuillNotFound struct{ Diag Diagnostic }

func (e *QuillNotFound) Error() string { return e.Diag.Message }

// VersionNotFound reports a missing name@version selector.
type VersionNotFound struct{ Diag Diagnostic }

func (e *VersionNotFound) Error() string { return e.Diag.Message }

// TemplateFailed reports a C7 glue rendering error.
type TemplateFailed struct {
	Diag Diagnostic
	Err  error
}

func (e *TemplateFailed) Error() string { return e.Diag.Message }
func (e *TemplateFailed) Unwrap() error  { return e.Err }

// ValidationFailed reports a C6 schema mismatch.
type ValidationFailed struct{ Diag Diagnostic }

func (e *ValidationFailed) Error() string { return e.Diag.Message }

// CompilationFailed reports a backend compile() call surfacing one or more
// structured diagnostics.
type CompilationFailed struct {
	Count       int
	Diagnostics []Diagnostic
}

func (e *CompilationFailed) Error() string {
	return fmt.Sprintf("backend compilation failed with %d error(s)", e.Count)
}

// FormatNotSupported reports a backend/format capability mismatch.
type FormatNotSupported struct {
	Backend, Format string
	Diag            Diagnostic
}

func (e *FormatNotSupported) Error() string { return e.Diag.Message }

// UnsupportedBackend reports a backend id not registered with the engine.
type UnsupportedBackend struct{ Diag Diagnostic }

func (e *UnsupportedBackend) Error() string { return e.Diag.Message }

// DynamicAssetCollision reports a duplicate dynamic asset filename.
type DynamicAssetCollision struct {
	Filename string
	Diag     Diagnostic
}

func (e *DynamicAssetCollision) Error() string { return e.Diag.Message }

// DynamicFontCollision reports a duplicate dynamic font filename.
type DynamicFontCollision struct {
	Filename string
	Diag     Diagnostic
}

func (e *DynamicFontCollision) Error() string { return e.Diag.Message }

// PrintErrors writes each diagnostic's pretty form using fn (typically
// a thin wrapper over fmt.Fprintln(os.Stderr, ...)).
func PrintErrors(err error, fn func(string)) {
	switch e := err.(type) {
	case *CompilationFailed:
		for _, d := range e.Diagnostics {
			fn(d.FmtPretty())
		}
	case *TemplateFailed:
		fn(e.Diag.FmtPretty())
	case *InvalidFrontmatter:
		fn(e.Diag.FmtPretty())
	case *ValidationFailed:
		fn(e.Diag.FmtPretty())
	default:
		fn(err.Error())
	}
}
