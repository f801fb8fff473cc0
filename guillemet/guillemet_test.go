package guillemet

import "testing"

func TestPreprocessPlainNearestMatch(t *testing.T) {
	got := PreprocessPlain("<<outer <<inner>> text>>")
	want := "«outer <<inner» text>>"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPreprocessPlainNoOp(t *testing.T) {
	s := "plain string without any markers"
	if got := PreprocessPlain(s); got != s {
		t.Fatalf("expected unchanged, got %q", got)
	}
}

func TestPreprocessPlainOversize(t *testing.T) {
	huge := make([]byte, MaxGuillemetLength+1)
	for i := range huge {
		huge[i] = 'a'
	}
	s := "<<" + string(huge) + ">>"
	if got := PreprocessPlain(s); got != s {
		t.Fatalf("expected oversize content left verbatim")
	}
}

func TestPreprocessMarkdownSkipsFence(t *testing.T) {
	src := "before <<x>>\n```\n<<keep>>\n```\nafter <<y>>"
	got, ranges := PreprocessMarkdown(src)
	if got != "before «x»\n```\n<<keep>>\n```\nafter «y»" {
		t.Fatalf("unexpected output: %q", got)
	}
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(ranges))
	}
}

func TestPreprocessMarkdownSkipsInlineCode(t *testing.T) {
	src := "Use <<raw>> and `<<keep>>`"
	got, _ := PreprocessMarkdown(src)
	want := "Use «raw» and `<<keep>>`"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPreprocessMarkdownSkipsIndentedCodeBlock(t *testing.T) {
	src := "para\n\n    <<keep>>\n\npara2 <<rw>>"
	got, _ := PreprocessMarkdown(src)
	want := "para\n\n    <<keep>>\n\npara2 «rw»"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInRange(t *testing.T) {
	_, ranges := PreprocessMarkdown("say <<hi>> now")
	if len(ranges) != 1 {
		t.Fatalf("expected 1 range, got %d", len(ranges))
	}
	r := ranges[0]
	if !InRange(ranges, r.Start) || InRange(ranges, r.End) {
		t.Fatalf("range membership check incorrect: %+v", r)
	}
}
