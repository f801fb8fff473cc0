// Package typst implements Quillmark's C8 markdown-to-Typst converter and a
// reference Backend (C9) built on it. Grounded on
// original_source/crates/backends/typst/src/convert.rs, which walks
// pulldown_cmark's event stream; this port walks a goldmark AST instead,
// since goldmark is the markdown parser carried by the example pack
// (facundoolano-blorg's markup/templates.go, among others). The embedded
// typesetter itself (Typst compilation to PDF/SVG) is out of spec scope —
// Backend.Compile returns a black-box stub artifact.
package typst

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/quillmark-go/quillmark/guillemet"
)

// MaxNestingDepth bounds markdown structure nesting, guarding against
// pathological/adversarial input (denial-of-service via deep recursion).
const MaxNestingDepth = 100

// NestingTooDeepError reports that MaxNestingDepth was exceeded during conversion.
type NestingTooDeepError struct {
	Depth, Max int
}

func (e *NestingTooDeepError) Error() string {
	return fmt.Sprintf("nesting too deep: %d levels (max: %d levels)", e.Depth, e.Max)
}

// EscapeMarkup escapes text for safe use in Typst markup context. All
// replacements happen in a single pass (strings.Replacer), so a backslash
// introduced by one escape is never escaped again.
func EscapeMarkup(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`//`, `\/\/`,
		`*`, `\*`,
		`_`, `\_`,
		"`", "\\`",
		`#`, `\#`,
		`[`, `\[`,
		`]`, `\]`,
		`$`, `\$`,
		`<`, `\<`,
		`>`, `\>`,
		`@`, `\@`,
	)
	return r.Replace(s)
}

// EscapeString escapes text for embedding in a Typst string literal.
func EscapeString(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			out.WriteString(`\\`)
		case '"':
			out.WriteString(`\"`)
		case '\n':
			out.WriteString(`\n`)
		case '\r':
			out.WriteString(`\r`)
		case '\t':
			out.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&out, "\\u{%x}", r)
			} else {
				out.WriteRune(r)
			}
		}
	}
	return out.String()
}

var md = goldmark.New(goldmark.WithExtensions(extension.Strikethrough))

// MarkToTypst converts CommonMark markdown to Typst markup, guillemet-aware:
// <<...>> spans are preprocessed to «...» before parsing, and conversion
// inside a guillemet span suppresses a second, redundant bold marker when a
// prior **bold** run already appeared in the same paragraph (mirroring the
// original's "skip_strong_stack" heuristic for guillemet-wrapped emphasis)
// and prefers string-literal escaping over markup escaping for link
// destinations found inside a guillemet. Level-2 emphasis whose opening
// delimiter is "__" renders as #underline[...] instead of *bold*, by peeking
// the two source bytes before the node's content starts; a closed */_ marker
// immediately followed by alphanumeric text gets a trailing #{} so the glyph
// doesn't fuse with the next word.
func MarkToTypst(markdown string) (string, error) {
	preprocessed, ranges := guillemet.PreprocessMarkdown(markdown)
	source := []byte(preprocessed)

	doc := md.Parser().Parse(text.NewReader(source))

	c := &converter{source: source, ranges: ranges, endNewline: true}
	if err := c.walk(doc, 0); err != nil {
		return "", err
	}
	return c.out.String(), nil
}

type converter struct {
	out                  strings.Builder
	source               []byte
	ranges               []guillemet.Range
	endNewline           bool
	listOrdered          []bool
	listDepth            int
	inListItem           bool
	hadStrongInParagraph bool
	skipStrongStack      []bool
}

func (c *converter) inGuillemet(pos int) bool {
	return guillemet.InRange(c.ranges, pos)
}

func (c *converter) walk(n ast.Node, depth int) error {
	if depth > MaxNestingDepth {
		return &NestingTooDeepError{Depth: depth, Max: MaxNestingDepth}
	}
	switch node := n.(type) {
	case *ast.Document:
		return c.walkChildren(node, depth)

	case *ast.Paragraph:
		if !c.inListItem {
			if !c.endNewline {
				c.out.WriteByte('\n')
				c.endNewline = true
			}
		}
		c.hadStrongInParagraph = false
		if err := c.walkChildren(node, depth+1); err != nil {
			return err
		}
		if !c.inListItem {
			c.out.WriteString("\n\n")
			c.endNewline = true
		}
		return nil

	case *ast.Heading:
		if !c.endNewline {
			c.out.WriteByte('\n')
		}
		c.out.WriteString(strings.Repeat("=", node.Level))
		c.out.WriteByte(' ')
		c.endNewline = false
		if err := c.walkChildren(node, depth+1); err != nil {
			return err
		}
		c.out.WriteString("\n\n")
		c.endNewline = true
		return nil

	case *ast.List:
		if !c.endNewline {
			c.out.WriteByte('\n')
			c.endNewline = true
		}
		ordered := node.Marker == '.' || node.Marker == ')'
		c.listOrdered = append(c.listOrdered, ordered)
		if err := c.walkChildren(node, depth+1); err != nil {
			return err
		}
		c.listOrdered = c.listOrdered[:len(c.listOrdered)-1]
		if len(c.listOrdered) == 0 {
			c.out.WriteByte('\n')
			c.endNewline = true
		}
		return nil

	case *ast.ListItem:
		c.inListItem = true
		if len(c.listOrdered) > 0 {
			indent := strings.Repeat("  ", len(c.listOrdered)-1)
			if c.listOrdered[len(c.listOrdered)-1] {
				c.out.WriteString(indent + "+ ")
			} else {
				c.out.WriteString(indent + "- ")
			}
			c.endNewline = false
		}
		if err := c.walkChildren(node, depth+1); err != nil {
			return err
		}
		c.inListItem = false
		if !c.endNewline {
			c.out.WriteByte('\n')
			c.endNewline = true
		}
		return nil

	case *ast.Emphasis:
		nextAlnum := nextSiblingTextStartsAlnum(node, c.source)
		if node.Level >= 2 {
			pos := nodeStart(node, c.source)
			underline := pos >= 2 && string(c.source[pos-2:pos]) == "__"
			inGuillemet := c.inGuillemet(pos)
			// Skip handling (suppressing a redundant nested bold marker inside
			// a guillemet span) is a bold-only concern, per convert.rs's
			// StrongKind::Bold arm.
			skip := inGuillemet && c.hadStrongInParagraph && !underline
			c.hadStrongInParagraph = true
			c.skipStrongStack = append(c.skipStrongStack, skip)
			if underline {
				c.out.WriteString("#underline[")
			} else if !skip {
				c.out.WriteByte('*')
			}
			if err := c.walkChildren(node, depth+1); err != nil {
				return err
			}
			skip = c.skipStrongStack[len(c.skipStrongStack)-1]
			c.skipStrongStack = c.skipStrongStack[:len(c.skipStrongStack)-1]
			if underline {
				if !skip {
					c.out.WriteByte(']')
				}
			} else if !skip {
				c.out.WriteByte('*')
				// Word-boundary handling only applies to bold, per convert.rs.
				if nextAlnum {
					c.out.WriteString("#{}")
				}
			}
		} else {
			c.out.WriteByte('_')
			if err := c.walkChildren(node, depth+1); err != nil {
				return err
			}
			c.out.WriteByte('_')
			if nextAlnum {
				c.out.WriteString("#{}")
			}
		}
		c.endNewline = false
		return nil

	case *east.Strikethrough:
		c.out.WriteString("#strike[")
		if err := c.walkChildren(node, depth+1); err != nil {
			return err
		}
		c.out.WriteByte(']')
		c.endNewline = false
		return nil

	case *ast.Link:
		pos := nodeStart(node, c.source)
		inGuillemet := c.inGuillemet(pos)
		c.out.WriteString("#link(\"")
		if inGuillemet {
			c.out.WriteString(EscapeString(string(node.Destination)))
		} else {
			c.out.WriteString(EscapeMarkup(string(node.Destination)))
		}
		c.out.WriteString("\")[")
		if err := c.walkChildren(node, depth+1); err != nil {
			return err
		}
		c.out.WriteByte(']')
		c.endNewline = false
		return nil

	case *ast.AutoLink:
		dest := string(node.URL(c.source))
		c.out.WriteString("#link(\"")
		c.out.WriteString(EscapeMarkup(dest))
		c.out.WriteString("\")[")
		c.out.WriteString(EscapeMarkup(dest))
		c.out.WriteByte(']')
		c.endNewline = false
		return nil

	case *ast.CodeSpan:
		c.out.WriteByte('`')
		var buf bytes.Buffer
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			if t, ok := child.(*ast.Text); ok {
				buf.Write(t.Segment.Value(c.source))
			}
		}
		c.out.Write(buf.Bytes())
		c.out.WriteByte('`')
		c.endNewline = false
		return nil

	case *ast.FencedCodeBlock:
		lang := recognizedLanguage(node.Language(c.source))
		if lang == "" {
			writeRawLines(&c.out, node.Lines(), c.source)
			c.endNewline = true
			return nil
		}
		var buf bytes.Buffer
		writeRawLines(&buf, node.Lines(), c.source)
		fmt.Fprintf(&c.out, "#raw(\"%s\", lang: \"%s\")", EscapeString(buf.String()), EscapeString(lang))
		c.out.WriteString("\n\n")
		c.endNewline = true
		return nil

	case *ast.CodeBlock:
		writeRawLines(&c.out, node.Lines(), c.source)
		c.endNewline = true
		return nil

	case *ast.HTMLBlock:
		return nil

	case *ast.RawHTML:
		return nil

	case *ast.Text:
		text := string(node.Segment.Value(c.source))
		escaped := EscapeMarkup(text)
		c.out.WriteString(escaped)
		if node.HardLineBreak() {
			c.out.WriteByte('\n')
			c.endNewline = true
		} else if node.SoftLineBreak() {
			c.out.WriteByte(' ')
			c.endNewline = false
		} else {
			c.endNewline = strings.HasSuffix(escaped, "\n")
		}
		return nil

	default:
		return c.walkChildren(n, depth+1)
	}
}

func (c *converter) walkChildren(n ast.Node, depth int) error {
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if err := c.walk(child, depth); err != nil {
			return err
		}
	}
	return nil
}

// recognizedLanguage reports chroma's canonical lexer name for a declared
// fenced-code-block language tag, or "" if chroma has no matching lexer
// (in which case the caller falls back to plain, untagged passthrough, the
// original's behavior). A light touch: chroma is used only to validate and
// canonicalize the language name, never to tokenize or colorize, since
// Typst does its own highlighting once tagged with #raw(lang: ...).
func recognizedLanguage(lang []byte) string {
	if len(lang) == 0 {
		return ""
	}
	lexer := lexers.Get(string(lang))
	if lexer == nil {
		return ""
	}
	config := lexer.Config()
	if config == nil || len(config.Aliases) == 0 {
		return string(lang)
	}
	return config.Aliases[0]
}

func writeRawLines(out interface{ Write([]byte) (int, error) }, lines *text.Segments, source []byte) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out.Write(seg.Value(source))
	}
}

// nextSiblingTextStartsAlnum reports whether n's next sibling is a Text node
// whose first rune is alphanumeric, grounded on convert.rs's TagEnd::Emphasis
// / TagEnd::Strong word-boundary peek: Typst requires #{} between a closed
// emphasis/strong marker and immediately-following alphanumeric text, or the
// marker glyph fuses with the word instead of terminating it.
func nextSiblingTextStartsAlnum(n ast.Node, source []byte) bool {
	t, ok := n.NextSibling().(*ast.Text)
	if !ok {
		return false
	}
	val := t.Segment.Value(source)
	if len(val) == 0 {
		return false
	}
	r, _ := utf8.DecodeRune(val)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// nodeStart returns the byte offset of a node's first text descendant in
// source, used to test whether the node sits inside a guillemet range. Nodes
// with no text descendant (e.g. an empty link) report -1.
func nodeStart(n ast.Node, source []byte) int {
	if t, ok := n.(*ast.Text); ok {
		return t.Segment.Start
	}
	if t := firstDescendantText(n); t != nil {
		return t.Segment.Start
	}
	return -1
}

func firstDescendantText(n ast.Node) *ast.Text {
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if t, ok := child.(*ast.Text); ok {
			return t
		}
		if found := firstDescendantText(child); found != nil {
			return found
		}
	}
	return nil
}
