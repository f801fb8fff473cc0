package quill

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/quillmark-go/quillmark/filetree"
)

func buildSampleTree() *filetree.Node {
	root := filetree.NewDir()
	root.Insert("Quill.toml", []byte(`
[Quill]
name = "letter"
backend = "typst"
glue = "glue.typ"

[fields.title]
type = "str"
required = true

[fields.author]
type = "str"
default = "Anonymous"
`))
	root.Insert("glue.typ", []byte("Hello {{.title}}"))
	return root
}

func TestFromTreeBasics(t *testing.T) {
	root := buildSampleTree()
	q, err := FromTree(root, "/tmp/letter", "letter")
	if err != nil {
		t.Fatal(err)
	}
	if q.Name != "letter" || q.Backend != "typst" {
		t.Fatalf("unexpected quill %+v", q)
	}
	if q.GlueTemplate != "Hello {{.title}}" {
		t.Fatalf("unexpected glue template %q", q.GlueTemplate)
	}
	obj, ok := q.Schema.AsObject()
	if !ok {
		t.Fatal("expected object schema")
	}
	if _, ok := obj.Get("properties"); !ok {
		t.Fatal("expected properties in schema")
	}
}

func TestFromTreeMissingGlue(t *testing.T) {
	root := filetree.NewDir()
	root.Insert("Quill.toml", []byte(`
[Quill]
name = "broken"
glue = "missing.typ"
`))
	if _, err := FromTree(root, "/tmp/broken", "broken"); err == nil {
		t.Fatal("expected error for missing glue file")
	}
}

func TestFromTreeMissingManifest(t *testing.T) {
	root := filetree.NewDir()
	if _, err := FromTree(root, "/tmp/x", "x"); err == nil {
		t.Fatal("expected error for missing Quill.toml")
	}
}

func TestFromFSUsesAferoFilesystem(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/quills/letter/Quill.toml", []byte(`
[Quill]
name = "letter"
backend = "typst"
glue = "glue.typ"
`), 0o644)
	afero.WriteFile(fs, "/quills/letter/glue.typ", []byte("Hello {{.title}}"), 0o644)

	q, err := FromFS(fs, "/quills/letter")
	if err != nil {
		t.Fatal(err)
	}
	if q.Name != "letter" || q.GlueTemplate != "Hello {{.title}}" {
		t.Fatalf("unexpected quill loaded from memmap fs: %+v", q)
	}
}
