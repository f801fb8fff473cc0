package typst

import (
	"strings"
	"testing"
)

func TestEscapeMarkupBackslashFirst(t *testing.T) {
	if got := EscapeMarkup(`C:\Users\file`); got != `C:\\Users\\file` {
		t.Fatalf("got %q", got)
	}
}

func TestEscapeMarkupSpecialChars(t *testing.T) {
	if got := EscapeMarkup("#function"); got != `\#function` {
		t.Fatalf("got %q", got)
	}
	if got := EscapeMarkup("$math$"); got != `\$math\$` {
		t.Fatalf("got %q", got)
	}
}

func TestEscapeStringControlChars(t *testing.T) {
	if got := EscapeString("\x00"); got != `\u{0}` {
		t.Fatalf("got %q", got)
	}
	if got := EscapeString("line\nbreak"); got != `line\nbreak` {
		t.Fatalf("got %q", got)
	}
}

func TestMarkToTypstBasicFormatting(t *testing.T) {
	out, err := MarkToTypst("This is **bold**, _italic_, and ~~strikethrough~~ text.")
	if err != nil {
		t.Fatal(err)
	}
	want := "This is *bold*, _italic_, and #strike[strikethrough] text.\n\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestMarkToTypstUnderline(t *testing.T) {
	out, err := MarkToTypst("This is __under__ text.")
	if err != nil {
		t.Fatal(err)
	}
	want := "This is #underline[under] text.\n\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestMarkToTypstWordBoundaryAfterBold(t *testing.T) {
	out, err := MarkToTypst("**bold**text.")
	if err != nil {
		t.Fatal(err)
	}
	want := "*bold*#{}text.\n\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestMarkToTypstWordBoundaryAfterEmphasis(t *testing.T) {
	out, err := MarkToTypst("*em*text.")
	if err != nil {
		t.Fatal(err)
	}
	want := "_em_#{}text.\n\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestMarkToTypstHeading(t *testing.T) {
	out, err := MarkToTypst("# Title")
	if err != nil {
		t.Fatal(err)
	}
	if out != "= Title\n\n" {
		t.Fatalf("got %q", out)
	}
}

func TestMarkToTypstList(t *testing.T) {
	out, err := MarkToTypst("- a\n- b\n")
	if err != nil {
		t.Fatal(err)
	}
	want := "- a\n- b\n\n"
	if out != want {
		t.Fatalf("got %q", out)
	}
}

func TestMarkToTypstLink(t *testing.T) {
	out, err := MarkToTypst("[go](https://go.dev)")
	if err != nil {
		t.Fatal(err)
	}
	want := `#link("https:\/\/go.dev")[go]` + "\n\n"
	if out != want {
		t.Fatalf("got %q", out)
	}
}

func TestMarkToTypstInlineCode(t *testing.T) {
	out, err := MarkToTypst("Use `<<keep>>` literally.")
	if err != nil {
		t.Fatal(err)
	}
	want := "Use `<<keep>>` literally.\n\n"
	if out != want {
		t.Fatalf("got %q", out)
	}
}

func TestMarkToTypstFencedCodeRecognizedLanguage(t *testing.T) {
	out, err := MarkToTypst("```go\nfmt.Println(1)\n```\n")
	if err != nil {
		t.Fatal(err)
	}
	want := `#raw("fmt.Println(1)\n", lang: "go")` + "\n\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestMarkToTypstFencedCodeUnknownLanguageFallsBack(t *testing.T) {
	out, err := MarkToTypst("```notalanguage\nsome text\n```\n")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "#raw(") {
		t.Fatalf("expected plain passthrough for unrecognized language, got %q", out)
	}
}
