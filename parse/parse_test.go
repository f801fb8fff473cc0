package parse

import "testing"

func mustStr(t *testing.T, d *ParsedDocument, key string) string {
	t.Helper()
	v, ok := d.Get(key)
	if !ok {
		t.Fatalf("missing field %q", key)
	}
	s, ok := v.AsStr()
	if !ok {
		t.Fatalf("field %q is not a string", key)
	}
	return s
}

func TestNoFrontmatter(t *testing.T) {
	d, err := Decompose("# Hello")
	if err != nil {
		t.Fatal(err)
	}
	if d.QuillTag() != "__default__" {
		t.Fatalf("unexpected quill tag %q", d.QuillTag())
	}
	if mustStr(t, d, BodyField) != "# Hello" {
		t.Fatalf("unexpected body %q", mustStr(t, d, BodyField))
	}
}

func TestBasicFrontmatter(t *testing.T) {
	src := "---\ntitle: T\nauthor: A\n---\n\n# H\n"
	d, err := Decompose(src)
	if err != nil {
		t.Fatal(err)
	}
	if mustStr(t, d, "title") != "T" || mustStr(t, d, "author") != "A" {
		t.Fatalf("unexpected fields")
	}
	if mustStr(t, d, BodyField) != "\n# H\n" {
		t.Fatalf("unexpected body %q", mustStr(t, d, BodyField))
	}
	if d.QuillTag() != "__default__" {
		t.Fatalf("unexpected quill tag %q", d.QuillTag())
	}
}

func TestQuillDirective(t *testing.T) {
	src := "---\nQUILL: my_quill\ntitle: T\n---\nbody"
	d, err := Decompose(src)
	if err != nil {
		t.Fatal(err)
	}
	if d.QuillTag() != "my_quill" {
		t.Fatalf("unexpected quill tag %q", d.QuillTag())
	}
	if mustStr(t, d, "title") != "T" {
		t.Fatalf("expected title field from QUILL block")
	}
}

func TestScopeMerge(t *testing.T) {
	src := "---\nitems:\n  - name: G1\n---\n\n---\nSCOPE: items\nname: S1\n---\nbody1"
	d, err := Decompose(src)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := d.Get("items")
	if !ok {
		t.Fatal("missing items field")
	}
	arr, ok := v.AsArray()
	if !ok || len(arr) != 2 {
		t.Fatalf("expected array of length 2, got %+v", v)
	}
	obj0, _ := arr[0].AsObject()
	if n, _ := obj0.Get("name"); n.String() != "G1" {
		t.Fatalf("unexpected first item %+v", arr[0])
	}
	obj1, _ := arr[1].AsObject()
	name, _ := obj1.Get("name")
	body, _ := obj1.Get("body")
	if name.String() != "S1" || body.String() != "body1" {
		t.Fatalf("unexpected second item %+v", arr[1])
	}
}

func TestGuillemetInBodyAndCode(t *testing.T) {
	src := "Use <<raw>> and `<<keep>>`"
	d, err := Decompose(src)
	if err != nil {
		t.Fatal(err)
	}
	want := "Use «raw» and `<<keep>>`"
	if got := mustStr(t, d, BodyField); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInvalidScopeBodyReserved(t *testing.T) {
	src := "---\nSCOPE: body\n---\nx"
	if _, err := Decompose(src); err == nil {
		t.Fatal("expected error for reserved SCOPE tag \"body\"")
	}
}

func TestMultipleGlobalBlocksRejected(t *testing.T) {
	src := "---\na: 1\n---\n\n---\nb: 2\n---\nbody"
	if _, err := Decompose(src); err == nil {
		t.Fatal("expected error for multiple global frontmatter blocks")
	}
}
