package quillmark

import (
	"testing"

	"github.com/quillmark-go/quillmark/filetree"
	"github.com/quillmark-go/quillmark/quill"
)

func buildLetterQuill(t *testing.T, name string) *quill.Quill {
	t.Helper()
	root := filetree.NewDir()
	root.Insert("Quill.toml", []byte(`
[Quill]
name = "`+name+`"
backend = "typst"
glue = "glue.typ"

[fields.title]
type = "str"
required = true
`))
	root.Insert("glue.typ", []byte("= {{.title | String}}"))
	q, err := quill.FromTree(root, "/tmp/"+name, name)
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func TestEngineAutoRegistersTypstBackend(t *testing.T) {
	e := New()
	backends := e.RegisteredBackends()
	if len(backends) != 1 || backends[0] != "typst" {
		t.Fatalf("unexpected registered backends: %v", backends)
	}
}

func TestWithoutAutoBackends(t *testing.T) {
	e := New(WithoutAutoBackends())
	if backends := e.RegisteredBackends(); len(backends) != 0 {
		t.Fatalf("expected no backends, got %v", backends)
	}
}

func TestRegisterQuillAndWorkflowByName(t *testing.T) {
	e := New()
	q := buildLetterQuill(t, "letter")
	if err := e.RegisterQuill(q); err != nil {
		t.Fatal(err)
	}

	wf, err := e.Workflow("letter")
	if err != nil {
		t.Fatal(err)
	}
	if wf.BackendID() != "typst" || wf.QuillName() != "letter" {
		t.Fatalf("unexpected workflow: backend=%s quill=%s", wf.BackendID(), wf.QuillName())
	}
}

func TestRegisterQuillNameCollision(t *testing.T) {
	e := New()
	if err := e.RegisterQuill(buildLetterQuill(t, "dup")); err != nil {
		t.Fatal(err)
	}
	err := e.RegisterQuill(buildLetterQuill(t, "dup"))
	if err == nil {
		t.Fatal("expected name collision error")
	}
}

func TestRegisterQuillUnknownBackend(t *testing.T) {
	e := New(WithoutAutoBackends())
	err := e.RegisterQuill(buildLetterQuill(t, "orphan"))
	if err == nil {
		t.Fatal("expected backend-not-found error")
	}
}

func TestWorkflowByObjectNeedNotBeRegistered(t *testing.T) {
	e := New()
	q := buildLetterQuill(t, "unregistered")
	wf, err := e.Workflow(q)
	if err != nil {
		t.Fatal(err)
	}
	if wf.QuillName() != "unregistered" {
		t.Fatalf("unexpected quill name %q", wf.QuillName())
	}
}

func TestWorkflowUnknownNameReturnsQuillNotFound(t *testing.T) {
	e := New()
	if _, err := e.Workflow("missing"); err == nil {
		t.Fatal("expected quill-not-found error")
	}
}
