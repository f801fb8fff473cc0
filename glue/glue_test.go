package glue

import (
	"strings"
	"testing"

	"github.com/quillmark-go/quillmark/value"
)

func TestRenderSimple(t *testing.T) {
	fields := value.NewOrderedMap()
	fields.Set("name", value.String("World"))
	fields.Set("body", value.String("Hello content"))

	g := New("Hello {{.name}}! Body: {{.body}}")
	out, err := g.Render(fields)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Hello World!") || !strings.Contains(out, "Body: Hello content") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRenderWithFilters(t *testing.T) {
	fields := value.NewOrderedMap()
	fields.Set("title", value.String("Test Title"))
	fields.Set("count", value.Int(42))

	g := New("{{.title | String}} - {{.count | Int}}")
	out, err := g.Render(fields)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Test Title - 42" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestDashNormalization(t *testing.T) {
	fields := value.NewOrderedMap()
	fields.Set("letterhead-title", value.String("DEPARTMENT"))

	g := New("{{.letterhead_title | String}}")
	out, err := g.Render(fields)
	if err != nil {
		t.Fatal(err)
	}
	if out != "DEPARTMENT" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRewriteJinjaControlTags(t *testing.T) {
	src := "{% if cond %}yes{% else %}no{% endif %}"
	got := RewriteJinjaControlTags(src)
	want := "{{if cond}}yes{{else}}no{{end}}"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderForLoop(t *testing.T) {
	fields := value.NewOrderedMap()
	fields.Set("items", value.Array([]value.Value{value.String("a"), value.String("b")}))

	g := New("{% for item in .items %}[{{$item}}]{% endfor %}")
	out, err := g.Render(fields)
	if err != nil {
		t.Fatal(err)
	}
	if out != "[a][b]" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestChainedUndefinedAccessRendersEmpty(t *testing.T) {
	fields := value.NewOrderedMap()
	fields.Set("title", value.String("Report"))

	g := New("[{{.title}}][{{.author.name}}]")
	out, err := g.Render(fields)
	if err != nil {
		t.Fatal(err)
	}
	if out != "[Report][]" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestChainedAccessThroughPresentNestedMap(t *testing.T) {
	fields := value.NewOrderedMap()
	author := value.NewOrderedMap()
	author.Set("name", value.String("Ada"))
	fields.Set("author", value.Object(author))

	g := New("{{.author.name}}")
	out, err := g.Render(fields)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Ada" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCustomFilterRegistration(t *testing.T) {
	fields := value.NewOrderedMap()
	fields.Set("x", value.Int(2))

	g := New("{{.x | Double}}")
	g.RegisterFilter("Double", func(v int64) int64 { return v * 2 })
	out, err := g.Render(fields)
	if err != nil {
		t.Fatal(err)
	}
	if out != "4" {
		t.Fatalf("unexpected output: %q", out)
	}
}
