package typst

import (
	"testing"

	"github.com/quillmark-go/quillmark/backend"
)

func TestBackendCompileDefaultsToPDF(t *testing.T) {
	b := &Backend{}
	res, err := b.Compile("content", nil, backend.RenderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Artifacts) != 1 || res.Artifacts[0].OutputFormat != backend.FormatPDF {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestBackendCompileRejectsUnsupportedFormat(t *testing.T) {
	b := &Backend{}
	_, err := b.Compile("content", nil, backend.RenderOptions{Format: backend.FormatTXT})
	if err == nil {
		t.Fatal("expected format-not-supported error")
	}
}

func TestAssetFilterRejectsTraversal(t *testing.T) {
	if _, err := assetFilter("../etc/passwd"); err == nil {
		t.Fatal("expected traversal rejection")
	}
	if _, err := assetFilter("logo.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
