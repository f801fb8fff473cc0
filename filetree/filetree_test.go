package filetree

import "testing"

func TestInsertAndGet(t *testing.T) {
	root := NewDir()
	if err := root.Insert("assets/logo.png", []byte("PNG")); err != nil {
		t.Fatal(err)
	}
	contents, ok := root.GetFile("assets/logo.png")
	if !ok || string(contents) != "PNG" {
		t.Fatalf("unexpected get result: %v %v", contents, ok)
	}
	if !root.DirExists("assets") {
		t.Fatal("expected assets dir to exist")
	}
}

func TestListFiles(t *testing.T) {
	root := NewDir()
	root.Insert("a.txt", []byte("a"))
	root.Insert("sub/b.txt", []byte("b"))
	files := root.ListFiles()
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %v", files)
	}
}

func TestIgnoreDefaultPatterns(t *testing.T) {
	ig := NewIgnore(DefaultIgnorePatterns)
	if !ig.Matches(".git/config", false) {
		t.Fatal("expected .git/ to be ignored")
	}
	if ig.Matches("Quill.toml", false) {
		t.Fatal("did not expect Quill.toml to be ignored")
	}
}

func TestIgnoreGlob(t *testing.T) {
	ig := NewIgnore([]string{"*.log"})
	if !ig.Matches("debug.log", false) {
		t.Fatal("expected *.log match")
	}
}
