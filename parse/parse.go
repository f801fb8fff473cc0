// Package parse implements Quillmark's C2 extended frontmatter parser,
// producing a ParsedDocument from raw Markdown-with-YAML-frontmatter
// source. Grounded on original_source/crates/core/src/parse.rs.
package parse

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quillmark-go/quillmark/diag"
	"github.com/quillmark-go/quillmark/guillemet"
	"github.com/quillmark-go/quillmark/value"
)

const (
	// BodyField is the reserved field name carrying the document body.
	BodyField = "body"
	// MaxInputSize bounds the total source size accepted by decompose.
	MaxInputSize = 10 * 1024 * 1024
	// MaxYAMLSize bounds a single frontmatter block's raw YAML content.
	MaxYAMLSize = 1 * 1024 * 1024
)

var namePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func isValidName(s string) bool { return namePattern.MatchString(s) }

// ParsedDocument is the immutable result of decompose. WithFields returns a
// new instance rather than modifying the receiver.
type ParsedDocument struct {
	fields   *value.OrderedMap
	quillTag string
}

// New wraps a pre-built field map and quill tag (used by callers that
// construct synthetic documents, e.g. tests or JSON Quill envelopes).
func New(fields *value.OrderedMap, quillTag string) *ParsedDocument {
	if quillTag == "" {
		quillTag = "__default__"
	}
	return &ParsedDocument{fields: fields, quillTag: quillTag}
}

func (d *ParsedDocument) QuillTag() string { return d.quillTag }

func (d *ParsedDocument) Fields() *value.OrderedMap { return d.fields }

func (d *ParsedDocument) Get(name string) (value.Value, bool) { return d.fields.Get(name) }

// Body returns the reserved "body" field, always present per invariant.
func (d *ParsedDocument) Body() string {
	v, ok := d.fields.Get(BodyField)
	if !ok {
		return ""
	}
	s, _ := v.AsStr()
	return s
}

// WithFields returns a new ParsedDocument sharing the quill tag but
// replacing the field map, leaving the receiver unchanged.
func (d *ParsedDocument) WithFields(fields *value.OrderedMap) *ParsedDocument {
	return &ParsedDocument{fields: fields, quillTag: d.quillTag}
}

type metadataBlock struct {
	openLine, closeLine int
	fields              *value.OrderedMap
	tag                 string
	quillName           string
}

type lineSpan struct {
	start, end int
	hasNL      bool
}

func splitLines(s string) []lineSpan {
	var lines []lineSpan
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, lineSpan{start: start, end: i, hasNL: true})
			start = i + 1
		}
	}
	lines = append(lines, lineSpan{start: start, end: len(s), hasNL: false})
	return lines
}

func isBlankLine(s string, l lineSpan) bool {
	return strings.TrimSpace(s[l.start:l.end]) == ""
}

// lineEndByte returns the byte offset just past this line's content,
// including its trailing newline if present.
func lineEndByte(l lineSpan) int {
	if l.hasNL {
		return l.end + 1
	}
	return l.end
}

// Decompose parses source into a ParsedDocument, per spec.md section 4.2.
func Decompose(source string) (*ParsedDocument, error) {
	if len(source) > MaxInputSize {
		return nil, &diag.InputTooLarge{Diag: diag.New(diag.Error,
			fmt.Sprintf("input size %d exceeds max %d", len(source), MaxInputSize)).
			WithCode("parse::input_too_large")}
	}

	lines := splitLines(source)
	var blocks []metadataBlock

	i := 0
	for i < len(lines) {
		line := lines[i]
		if strings.TrimSpace(source[line.start:line.end]) == "---" {
			nextBlank := i == len(lines)-1 || isBlankLine(source, lines[i+1])
			if !nextBlank {
				j := i + 1
				for ; j < len(lines); j++ {
					if strings.TrimSpace(source[lines[j].start:lines[j].end]) == "---" {
						break
					}
				}
				if j == len(lines) {
					return nil, &diag.InvalidFrontmatter{Diag: diag.New(diag.Error,
						"unclosed frontmatter block").WithCode("parse::yaml_error")}
				}
				yamlStart := lineEndByte(lines[i])
				yamlEnd := lines[j].start
				raw := source[yamlStart:yamlEnd]
				if len(raw) > MaxYAMLSize {
					return nil, &diag.YamlTooLarge{Diag: diag.New(diag.Error,
						fmt.Sprintf("yaml block size %d exceeds max %d", len(raw), MaxYAMLSize)).
						WithCode("parse::yaml_error")}
				}
				fields, quillName, tag, err := parseBlockYAML(raw)
				if err != nil {
					return nil, &diag.InvalidFrontmatter{Diag: diag.New(diag.Error,
						fmt.Sprintf("invalid YAML frontmatter: %v", err)).
						WithCode("parse::yaml_error"), Err: err}
				}
				blocks = append(blocks, metadataBlock{
					openLine: i, closeLine: j, fields: fields, tag: tag, quillName: quillName,
				})
				i = j + 1
				continue
			}
		}
		i++
	}

	// Fast path: no frontmatter at all.
	if len(blocks) == 0 {
		body, _ := guillemet.PreprocessMarkdown(source)
		fields := value.NewOrderedMap()
		fields.Set(BodyField, value.String(body))
		return &ParsedDocument{fields: fields, quillTag: "__default__"}, nil
	}

	globalCount, quillCount := 0, 0
	for _, b := range blocks {
		if b.tag == "" && b.quillName == "" {
			globalCount++
		}
		if b.quillName != "" {
			quillCount++
			if !isValidName(b.quillName) {
				return nil, invalidName("quill", b.quillName)
			}
		}
		if b.tag != "" {
			if b.tag == BodyField {
				return nil, &diag.InvalidFrontmatter{Diag: diag.New(diag.Error,
					"SCOPE tag cannot be the reserved name \"body\"").WithCode("parse::yaml_error")}
			}
			if !isValidName(b.tag) {
				return nil, invalidName("SCOPE tag", b.tag)
			}
		}
	}
	if globalCount > 1 {
		return nil, &diag.InvalidFrontmatter{Diag: diag.New(diag.Error,
			"multiple global frontmatter blocks").WithCode("parse::yaml_error")}
	}
	if quillCount > 1 {
		return nil, &diag.InvalidFrontmatter{Diag: diag.New(diag.Error,
			"multiple QUILL directives").WithCode("parse::yaml_error")}
	}

	fields := value.NewOrderedMap()
	quillTag := "__default__"
	type taggedGroup struct {
		tag   string
		items []value.Value
	}
	var groups []taggedGroup
	groupIdx := map[string]int{}

	var firstNonScopeBlock *metadataBlock
	var firstScopeBlock *metadataBlock

	for idx := range blocks {
		b := &blocks[idx]
		if b.tag == "" && firstNonScopeBlock == nil {
			firstNonScopeBlock = b
		}
		if b.tag != "" && firstScopeBlock == nil {
			firstScopeBlock = b
		}

		switch {
		case b.tag == "" && b.quillName == "":
			for _, k := range b.fields.Keys() {
				v, _ := b.fields.Get(k)
				fields.Set(k, v)
			}
		case b.quillName != "":
			quillTag = b.quillName
			for _, k := range b.fields.Keys() {
				if _, exists := fields.Get(k); exists {
					return nil, &diag.InvalidFrontmatter{Diag: diag.New(diag.Error,
						fmt.Sprintf("QUILL block field %q collides with an existing field", k)).
						WithCode("parse::yaml_error")}
				}
				v, _ := b.fields.Get(k)
				fields.Set(k, v)
			}
		default: // SCOPE block
			bodyStart := lineEndByte(lines[b.closeLine])
			bodyEnd := len(source)
			if idx+1 < len(blocks) {
				bodyEnd = lines[blocks[idx+1].openLine].start
			}
			rawBody := source[bodyStart:bodyEnd]
			bodyText, _ := guillemet.PreprocessMarkdown(rawBody)

			obj := b.fields.Clone()
			obj.Set(BodyField, value.String(bodyText))

			gi, ok := groupIdx[b.tag]
			if !ok {
				gi = len(groups)
				groupIdx[b.tag] = gi
				groups = append(groups, taggedGroup{tag: b.tag})
			}
			groups[gi].items = append(groups[gi].items, value.Object(obj))
		}
	}

	for _, g := range groups {
		if existing, ok := fields.Get(g.tag); ok {
			existingArr, isArr := existing.AsArray()
			if !isArr {
				return nil, &diag.InvalidFrontmatter{Diag: diag.New(diag.Error,
					fmt.Sprintf("global field %q conflicts with SCOPE: %s (existing field is not an array)", g.tag, g.tag)).
					WithCode("parse::yaml_error")}
			}
			merged := append(append([]value.Value{}, existingArr...), g.items...)
			fields.Set(g.tag, value.Array(merged))
		} else {
			fields.Set(g.tag, value.Array(g.items))
		}
	}

	bodyStart := 0
	if firstNonScopeBlock != nil {
		bodyStart = lineEndByte(lines[firstNonScopeBlock.closeLine])
	}
	bodyEnd := len(source)
	if firstScopeBlock != nil {
		bodyEnd = lines[firstScopeBlock.openLine].start
	}
	globalBody, _ := guillemet.PreprocessMarkdown(source[bodyStart:bodyEnd])
	fields.Set(BodyField, value.String(globalBody))

	return &ParsedDocument{fields: fields, quillTag: quillTag}, nil
}

func invalidName(kind, name string) error {
	return &diag.InvalidFrontmatter{Diag: diag.New(diag.Error,
		fmt.Sprintf("invalid %s name %q: must match [a-z_][a-z0-9_]*", kind, name)).
		WithCode("parse::yaml_error")}
}

// parseBlockYAML parses one frontmatter block's raw YAML, extracting and
// stripping the reserved QUILL/SCOPE keys.
func parseBlockYAML(raw string) (fields *value.OrderedMap, quillName, tag string, err error) {
	fields = value.NewOrderedMap()
	if strings.TrimSpace(raw) == "" {
		return fields, "", "", nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &node); err != nil {
		return nil, "", "", err
	}
	if len(node.Content) == 0 {
		return fields, "", "", nil
	}
	mapping := node.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, "", "", fmt.Errorf("frontmatter block must be a YAML mapping")
	}

	var hasQuill, hasScope bool
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode := mapping.Content[i]
		valNode := mapping.Content[i+1]
		key := keyNode.Value

		switch key {
		case "QUILL":
			hasQuill = true
			quillName = strings.TrimSpace(valNode.Value)
			continue
		case "SCOPE":
			hasScope = true
			tag = strings.TrimSpace(valNode.Value)
			continue
		}

		v, err := nodeToValue(valNode)
		if err != nil {
			return nil, "", "", err
		}
		fields.Set(key, v)
	}

	if hasQuill && hasScope {
		return nil, "", "", fmt.Errorf("a frontmatter block cannot declare both QUILL and SCOPE")
	}
	return fields, quillName, tag, nil
}

// nodeToValue converts a yaml.v3 node into a value.Value, applying plain-
// mode guillemet preprocessing to every string scalar encountered.
func nodeToValue(n *yaml.Node) (value.Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!null":
			return value.Null(), nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return value.Value{}, err
			}
			return value.Bool(b), nil
		case "!!int":
			var i int64
			if err := n.Decode(&i); err != nil {
				return value.Value{}, err
			}
			return value.Int(i), nil
		case "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return value.Value{}, err
			}
			return value.Float(f), nil
		default:
			return value.String(guillemet.PreprocessPlain(n.Value)), nil
		}
	case yaml.SequenceNode:
		items := make([]value.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeToValue(c)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, v)
		}
		return value.Array(items), nil
	case yaml.MappingNode:
		m := value.NewOrderedMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i].Value
			v, err := nodeToValue(n.Content[i+1])
			if err != nil {
				return value.Value{}, err
			}
			m.Set(k, v)
		}
		return value.Object(m), nil
	case yaml.AliasNode:
		return nodeToValue(n.Alias)
	default:
		return value.Null(), nil
	}
}
