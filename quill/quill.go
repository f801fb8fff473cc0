// Package quill implements Quillmark's C5 Quill loader: reading a Quill.toml
// manifest plus its bundled file tree into a Quill bundle, and building its
// JSON-Schema from the manifest's [fields]/[cards] tables. Grounded on
// original_source/quillmark-core/src/quill.rs (Quill::from_path,
// Quill::from_tree, Quill::from_json, QuillIgnore) with schema assembly
// delegated to the schema package (grounded on validation.rs).
package quill

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"

	"github.com/quillmark-go/quillmark/diag"
	"github.com/quillmark-go/quillmark/filetree"
	"github.com/quillmark-go/quillmark/schema"
	"github.com/quillmark-go/quillmark/value"
)

const defaultGlueFile = "glue.typ"

// Quill is a loaded template bundle: its glue template, declared metadata,
// computed JSON-Schema, and the in-memory file tree backing assets/fonts/
// packages lookups.
type Quill struct {
	Name         string
	Backend      string
	GlueFile     string
	GlueTemplate string
	TemplateFile string
	Template     string
	Metadata     *value.OrderedMap
	Schema       value.Value
	BasePath     string
	Files        *filetree.Node
}

// FromPath loads a Quill from a directory on disk, honoring a .quillignore
// file if present, else filetree.DefaultIgnorePatterns. Reads go through
// afero.Fs (defaulting to the real OS filesystem) the same way the teacher's
// instance.go backs TemplatesFS/ContextFS with afero, so tests can load a
// Quill from afero.NewMemMapFs() without touching disk.
func FromPath(path string) (*Quill, error) {
	return FromFS(afero.NewOsFs(), path)
}

// FromFS loads a Quill from path as seen through fs, enabling in-memory
// Quill loading in tests via afero.NewMemMapFs().
func FromFS(fs afero.Fs, path string) (*Quill, error) {
	name := filepath.Base(path)

	var ignore *filetree.Ignore
	ignoreContent, err := afero.ReadFile(fs, filepath.Join(path, ".quillignore"))
	if err == nil {
		ignore = filetree.ParseIgnoreFile(string(ignoreContent))
	} else {
		ignore = filetree.NewIgnore(filetree.DefaultIgnorePatterns)
	}

	root := filetree.NewDir()
	if err := loadDirectoryAsTree(fs, path, path, ignore, root); err != nil {
		return nil, err
	}
	return FromTree(root, path, name)
}

func loadDirectoryAsTree(fs afero.Fs, currentDir, baseDir string, ignore *filetree.Ignore, root *filetree.Node) error {
	entries, err := afero.ReadDir(fs, currentDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, entry := range entries {
		full := filepath.Join(currentDir, entry.Name())
		rel, err := filepath.Rel(baseDir, full)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %q: %w", full, err)
		}
		rel = filepath.ToSlash(rel)
		if ignore.Matches(rel, entry.IsDir()) {
			continue
		}
		if entry.IsDir() {
			if err := loadDirectoryAsTree(fs, full, baseDir, ignore, root); err != nil {
				return err
			}
			continue
		}
		contents, err := afero.ReadFile(fs, full)
		if err != nil {
			return fmt.Errorf("failed to read file %q: %w", full, err)
		}
		if err := root.Insert(rel, contents); err != nil {
			return err
		}
	}
	return nil
}

// FromTree is the authoritative constructor: it reads Quill.toml from an
// already-populated file tree, extracts manifest fields and schema, and
// validates the result.
func FromTree(root *filetree.Node, basePath, defaultName string) (*Quill, error) {
	tomlBytes, ok := root.GetFile("Quill.toml")
	if !ok {
		return nil, &diag.QuillConfig{Diag: diag.New(diag.Error, "Quill.toml not found in file tree").WithCode("quill::missing_manifest")}
	}

	var manifest map[string]any
	if _, err := toml.Decode(string(tomlBytes), &manifest); err != nil {
		return nil, &diag.QuillConfig{Diag: diag.New(diag.Error, fmt.Sprintf("failed to parse Quill.toml: %v", err)).WithCode("quill::invalid_manifest")}
	}

	q := &Quill{
		Name:     defaultName,
		GlueFile: defaultGlueFile,
		Metadata: value.NewOrderedMap(),
		BasePath: basePath,
		Files:    root,
	}
	if q.Name == "" {
		q.Name = "unnamed"
	}

	var fieldNames []string
	fieldSchemas := map[string]schema.FieldSchema{}

	if section, ok := manifest["Quill"].(map[string]any); ok {
		if name, ok := section["name"].(string); ok {
			q.Name = name
		}
		if backend, ok := section["backend"].(string); ok {
			q.Backend = backend
		}
		if glue, ok := section["glue"].(string); ok {
			q.GlueFile = glue
		}
		if tpl, ok := section["template"].(string); ok {
			q.TemplateFile = tpl
		}
		for key, v := range section {
			switch key {
			case "name", "backend", "glue", "template", "version":
				continue
			default:
				q.Metadata.Set(key, value.FromAny(v))
			}
		}
	}

	if typstSection, ok := manifest["typst"].(map[string]any); ok {
		for key, v := range typstSection {
			q.Metadata.Set("typst_"+key, value.FromAny(v))
		}
	}

	if fieldsSection, ok := manifest["fields"].(map[string]any); ok {
		fieldNames = sortedKeys(fieldsSection)
		for _, name := range fieldNames {
			def, _ := fieldsSection[name].(map[string]any)
			fieldSchemas[name] = parseFieldSchema(def)
		}
	}
	if cardsSection, ok := manifest["cards"].(map[string]any); ok {
		for _, name := range sortedKeys(cardsSection) {
			def, _ := cardsSection[name].(map[string]any)
			fieldNames = append(fieldNames, name)
			fieldSchemas[name] = parseCardSchema(def)
		}
	}

	builtSchema, err := schema.BuildSchema(fieldNames, fieldSchemas)
	if err != nil {
		return nil, err
	}
	q.Schema = builtSchema

	glueBytes, ok := root.GetFile(q.GlueFile)
	if !ok {
		return nil, &diag.QuillConfig{Diag: diag.New(diag.Error, fmt.Sprintf("glue file %q not found in file tree", q.GlueFile)).WithCode("quill::missing_glue")}
	}
	q.GlueTemplate = string(glueBytes)

	if q.TemplateFile != "" {
		if tplBytes, ok := root.GetFile(q.TemplateFile); ok {
			q.Template = string(tplBytes)
		}
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseFieldSchema(def map[string]any) schema.FieldSchema {
	fs := schema.FieldSchema{}
	if t, ok := def["type"].(string); ok {
		fs.Type = t
	} else {
		fs.Type = "str"
	}
	if desc, ok := def["description"].(string); ok {
		fs.Description = desc
	}
	if req, ok := def["required"].(bool); ok {
		fs.Required = req
	}
	if def, ok := def["default"]; ok {
		v := value.FromAny(def)
		fs.Default = &v
	}
	if enumRaw, ok := def["enum"].([]any); ok {
		for _, e := range enumRaw {
			fs.Enum = append(fs.Enum, value.FromAny(e))
		}
	}
	if ex, ok := def["example"]; ok {
		v := value.FromAny(ex)
		fs.Example = &v
	}
	if exs, ok := def["examples"].([]any); ok {
		for _, e := range exs {
			fs.Examples = append(fs.Examples, value.FromAny(e))
		}
	}
	if ui, ok := def["x-ui"]; ok {
		v := value.FromAny(ui)
		fs.UI = &v
	}
	return fs
}

func parseCardSchema(def map[string]any) schema.FieldSchema {
	fs := parseFieldSchema(def)
	fs.Type = "array"
	return fs
}

// FromJSON builds a Quill from the JSON tree envelope described in
// spec.md section 6 (top-level "name"/"base_path" plus a nested file tree).
func FromJSON(raw any) (*Quill, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("quill: expected a JSON object at the root")
	}
	basePath, _ := obj["base_path"].(string)
	name, _ := obj["name"].(string)

	rootFiles := map[string]any{}
	for k, v := range obj {
		if k == "name" || k == "base_path" {
			continue
		}
		rootFiles[k] = v
	}

	tree, err := filetree.FromJSONValue(rootFiles)
	if err != nil {
		return nil, err
	}
	return FromTree(tree, basePath, name)
}

// Validate confirms the glue file declared in the manifest is actually
// present in the loaded file tree.
func (q *Quill) Validate() error {
	if !q.Files.FileExists(q.GlueFile) {
		return &diag.QuillConfig{Diag: diag.New(diag.Error, fmt.Sprintf("glue file %q does not exist", q.GlueFile)).WithCode("quill::missing_glue")}
	}
	return nil
}

func (q *Quill) AssetsPath() string   { return joinPath(q.BasePath, "assets") }
func (q *Quill) PackagesPath() string { return joinPath(q.BasePath, "packages") }
func (q *Quill) GluePath() string     { return joinPath(q.BasePath, q.GlueFile) }

func joinPath(base, rel string) string {
	if base == "" {
		return rel
	}
	return strings.TrimSuffix(base, "/") + "/" + rel
}

// TypstPackages returns the typst_packages list declared in Quill.toml's
// [typst] section, if any.
func (q *Quill) TypstPackages() []string {
	v, ok := q.Metadata.Get("typst_packages")
	if !ok {
		return nil
	}
	arr, ok := v.AsArray()
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.AsStr(); ok {
			out = append(out, s)
		}
	}
	return out
}

// GetFile reads a file relative to the quill root from the in-memory tree.
func (q *Quill) GetFile(path string) ([]byte, bool) { return q.Files.GetFile(path) }

// FileExists reports whether path exists in the in-memory tree.
func (q *Quill) FileExists(path string) bool { return q.Files.FileExists(path) }

// FindFiles returns file paths under the quill matching a simple glob.
func (q *Quill) FindFiles(pattern string) []string { return q.Files.FindFiles(pattern) }
