package quillmark

import (
	"strings"
	"testing"

	"github.com/quillmark-go/quillmark/backend"
)

func TestWorkflowProcessGlueAppliesDefaultsAndRenders(t *testing.T) {
	e := New()
	q := buildLetterQuill(t, "letter")
	wf, err := e.Workflow(q)
	if err != nil {
		t.Fatal(err)
	}

	out, err := wf.ProcessGlue("---\ntitle: Hello\n---\nBody text")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Hello") {
		t.Fatalf("unexpected glue output: %q", out)
	}
}

func TestWorkflowProcessGlueMissingRequiredFieldFails(t *testing.T) {
	e := New()
	q := buildLetterQuill(t, "letter2")
	wf, err := e.Workflow(q)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := wf.ProcessGlue("No frontmatter here"); err == nil {
		t.Fatal("expected validation error for missing required title")
	}
}

func TestWorkflowCompileDataReturnsPostTransformFields(t *testing.T) {
	e := New()
	q := buildLetterQuill(t, "letter-compile-data")
	wf, err := e.Workflow(q)
	if err != nil {
		t.Fatal(err)
	}

	fields, err := wf.CompileData("---\ntitle: Hello\n---\nBody text")
	if err != nil {
		t.Fatal(err)
	}
	v, ok := fields.Get("title")
	if !ok || v.String() != "Hello" {
		t.Fatalf("expected compiled title field, got %+v", fields)
	}
}

func TestWorkflowCompileDataFailsValidationLikeProcessGlue(t *testing.T) {
	e := New()
	q := buildLetterQuill(t, "letter-compile-data-invalid")
	wf, err := e.Workflow(q)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := wf.CompileData("No frontmatter here"); err == nil {
		t.Fatal("expected validation error for missing required title")
	}
}

func TestWorkflowRenderDefaultsToFirstSupportedFormat(t *testing.T) {
	e := New()
	q := buildLetterQuill(t, "letter3")
	wf, err := e.Workflow(q)
	if err != nil {
		t.Fatal(err)
	}

	res, err := wf.Render("---\ntitle: Report\n---\nBody", backend.RenderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Artifacts) != 1 || res.Artifacts[0].OutputFormat != backend.FormatPDF {
		t.Fatalf("unexpected render result: %+v", res)
	}
}

func TestWorkflowWithAssetCollision(t *testing.T) {
	e := New()
	q := buildLetterQuill(t, "letter4")
	wf, err := e.Workflow(q)
	if err != nil {
		t.Fatal(err)
	}

	wf2, err := wf.WithAsset("logo.png", []byte("png-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wf2.WithAsset("logo.png", []byte("other")); err == nil {
		t.Fatal("expected dynamic asset collision error")
	}
	if names := wf2.DynamicAssetNames(); len(names) != 1 || names[0] != "logo.png" {
		t.Fatalf("unexpected asset names: %v", names)
	}
	// original workflow is untouched (builder pattern)
	if len(wf.DynamicAssetNames()) != 0 {
		t.Fatalf("expected original workflow to have no assets, got %v", wf.DynamicAssetNames())
	}
}

func TestWorkflowClearAssetsAndFonts(t *testing.T) {
	e := New()
	q := buildLetterQuill(t, "letter5")
	wf, err := e.Workflow(q)
	if err != nil {
		t.Fatal(err)
	}

	wf, err = wf.WithAsset("a.png", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	wf, err = wf.WithFont("f.ttf", []byte("y"))
	if err != nil {
		t.Fatal(err)
	}
	wf = wf.ClearAssets().ClearFonts()
	if len(wf.DynamicAssetNames()) != 0 || len(wf.DynamicFontNames()) != 0 {
		t.Fatal("expected assets/fonts cleared")
	}
}
