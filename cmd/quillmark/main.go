// Command quillmark is a thin demonstration CLI over the quillmark engine,
// grounded on the teacher's cmd/main.go + app.Main() (go-arg driven flag
// parsing). CLI argument parsing is out of scope for the core library per
// spec.md's Non-goals, but every repo in the example pack ships a cmd/ or
// main.go entry point, so this binary demonstrates render/validate end to
// end.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alexflint/go-arg"

	"github.com/quillmark-go/quillmark"
	"github.com/quillmark-go/quillmark/backend"
	"github.com/quillmark-go/quillmark/diag"
	"github.com/quillmark-go/quillmark/quill"
)

type renderCmd struct {
	Quill    string `arg:"positional,required" help:"path to the quill directory"`
	Markdown string `arg:"positional,required" help:"path to the markdown document, or - for stdin"`
	Format   string `arg:"--format" default:"pdf" help:"output format: pdf, svg, or txt"`
	Out      string `arg:"--out" help:"output file path; defaults to stdout"`
}

type validateCmd struct {
	Quill    string `arg:"positional,required" help:"path to the quill directory"`
	Markdown string `arg:"positional,required" help:"path to the markdown document, or - for stdin"`
}

type args struct {
	Render   *renderCmd   `arg:"subcommand:render" help:"render a markdown document through a quill"`
	Validate *validateCmd `arg:"subcommand:validate" help:"validate a markdown document against a quill's schema without compiling"`
}

func (args) Description() string {
	return "quillmark renders Markdown documents through reusable quill templates."
}

func main() {
	var a args
	p := arg.MustParse(&a)

	var err error
	switch {
	case a.Render != nil:
		err = runRender(a.Render)
	case a.Validate != nil:
		err = runValidate(a.Validate)
	default:
		p.WriteHelp(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		diag.PrintErrors(err, func(s string) { fmt.Fprintln(os.Stderr, s) })
		os.Exit(1)
	}
}

func loadWorkflow(quillPath string) (*quillmark.Workflow, error) {
	q, err := quill.FromPath(quillPath)
	if err != nil {
		return nil, err
	}
	engine := quillmark.New()
	return engine.Workflow(q)
}

func readMarkdown(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func runRender(c *renderCmd) error {
	wf, err := loadWorkflow(c.Quill)
	if err != nil {
		return err
	}
	markdown, err := readMarkdown(c.Markdown)
	if err != nil {
		return err
	}

	result, err := wf.Render(markdown, backend.RenderOptions{Format: backend.OutputFormat(c.Format)})
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		fmt.Fprintln(os.Stderr, w.FmtPretty())
	}
	if len(result.Artifacts) == 0 {
		return fmt.Errorf("quillmark: render produced no artifacts")
	}

	if c.Out == "" {
		_, err := os.Stdout.Write(result.Artifacts[0].Bytes)
		return err
	}
	return os.WriteFile(c.Out, result.Artifacts[0].Bytes, 0o644)
}

func runValidate(c *validateCmd) error {
	wf, err := loadWorkflow(c.Quill)
	if err != nil {
		return err
	}
	markdown, err := readMarkdown(c.Markdown)
	if err != nil {
		return err
	}
	if _, err := wf.DryRun(markdown); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}
