// Package glue implements Quillmark's C7 template engine: a Jinja-flavored
// glue template is rendered against a document's fields to produce backend
// source text (e.g. Typst markup). The original implementation embeds Tera
// (github.com/Keats/tera, a Jinja2 dialect); no Go Jinja engine appears
// anywhere in the example pack, so this is built on the standard library's
// text/template plus Masterminds/sprig/v3 for the general-purpose filter
// library, per SPEC_FULL.md's DOMAIN STACK decision. A thin preprocessing
// pass rewrites the small set of Jinja control-flow tags this corpus
// actually uses ({% if/elif/else/endif %}, {% for/endfor %}) into Go
// template actions; expression syntax ({{ x }}, {{ x | Filter }}) already
// matches between the two languages since both use pipe-style filters. A
// second pass rewrites root-rooted dotted field chains (.a.b.c) into dget
// calls so a missing intermediate field renders as "" instead of making
// text/template error out partway through the chain, matching Tera's
// always-indexable context values.
package glue

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/dustin/go-humanize"

	"github.com/quillmark-go/quillmark/value"
)

// SafeString marks a value as already escaped/safe for direct backend
// output, mirroring Tera's "safe" filter semantics.
type SafeString string

func (s SafeString) String() string { return string(s) }

// Glue owns a template source string and a mutable filter registry. Backends
// register additional filters via RegisterFilter before Render is called.
type Glue struct {
	source  string
	filters map[string]any
}

// New creates a Glue from template source, pre-populated with the built-in
// filters (String, List, Array, Int, Bool, Date, DateTime, Dict, Body)
// grounded on quillmark-core/src/templating.rs's register_filter calls, plus
// Safe and the go-humanize based Bytes and Comma.
func New(source string) *Glue {
	g := &Glue{source: source, filters: map[string]any{}}
	g.RegisterFilter("String", stringFilter)
	g.RegisterFilter("List", listFilter)
	g.RegisterFilter("Array", listFilter)
	g.RegisterFilter("Int", intFilter)
	g.RegisterFilter("Bool", boolFilter)
	g.RegisterFilter("Date", dateFilter)
	g.RegisterFilter("DateTime", dateFilter)
	g.RegisterFilter("Dict", dictFilter)
	g.RegisterFilter("Body", bodyFilter)
	g.RegisterFilter("Safe", func(v any) SafeString { return SafeString(fmt.Sprint(v)) })
	g.RegisterFilter("Bytes", bytesFilter)
	g.RegisterFilter("Comma", commaFilter)
	return g
}

// RegisterFilter adds or replaces a named filter, callable from the
// template as a pipeline stage: {{ value | Name }}.
func (g *Glue) RegisterFilter(name string, fn any) {
	g.filters[name] = fn
}

// Render executes the glue template against fields, normalizing field names
// (dashes to underscores, per templating.rs) and exposing both forms.
func (g *Glue) Render(fields *value.OrderedMap) (string, error) {
	data := map[string]any{}
	for _, key := range fields.Keys() {
		v, _ := fields.Get(key)
		raw := v.ToAny()
		data[key] = raw
		normalized := strings.ReplaceAll(key, "-", "_")
		if normalized != key {
			data[normalized] = raw
		}
	}

	funcMap := sprig.FuncMap()
	for name, fn := range g.filters {
		funcMap[name] = fn
	}
	funcMap["dget"] = dget

	rewritten := RewriteJinjaControlTags(g.source)
	rewritten = rewriteChainedAccess(rewritten)

	tpl, err := template.New("glue").Funcs(funcMap).Option("missingkey=zero").Parse(rewritten)
	if err != nil {
		return "", fmt.Errorf("glue: template parse failed: %w", err)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("glue: template execution failed: %w", err)
	}
	return buf.String(), nil
}

var (
	reIf     = regexp.MustCompile(`\{%-?\s*if\s+(.*?)\s*-?%\}`)
	reElif   = regexp.MustCompile(`\{%-?\s*elif\s+(.*?)\s*-?%\}`)
	reElse   = regexp.MustCompile(`\{%-?\s*else\s*-?%\}`)
	reEndif  = regexp.MustCompile(`\{%-?\s*endif\s*-?%\}`)
	reFor    = regexp.MustCompile(`\{%-?\s*for\s+(\w+)\s+in\s+(.*?)\s*-?%\}`)
	reEndfor = regexp.MustCompile(`\{%-?\s*endfor\s*-?%\}`)
	reSet    = regexp.MustCompile(`\{%-?\s*set\s+(\w+)\s*=\s*(.*?)\s*-?%\}`)
	reComm   = regexp.MustCompile(`\{#.*?#\}`)
)

// RewriteJinjaControlTags translates the Jinja-style control tags this
// corpus's glue templates use into Go template actions. Expression tags
// ({{ ... }}) are left untouched: Go template pipe syntax already matches
// Tera's {{ value | Filter }} convention.
func RewriteJinjaControlTags(src string) string {
	src = reComm.ReplaceAllString(src, "")
	src = reIf.ReplaceAllString(src, "{{if $1}}")
	src = reElif.ReplaceAllString(src, "{{else if $1}}")
	src = reElse.ReplaceAllString(src, "{{else}}")
	src = reEndif.ReplaceAllString(src, "{{end}}")
	src = reSet.ReplaceAllString(src, "{{$$$1 := $2}}")
	src = reFor.ReplaceAllStringFunc(src, func(m string) string {
		parts := reFor.FindStringSubmatch(m)
		return fmt.Sprintf("{{range $%s := %s}}", parts[1], parts[2])
	})
	src = reEndfor.ReplaceAllString(src, "{{end}}")
	return src
}

var (
	reAction = regexp.MustCompile(`\{\{.*?\}\}`)
	reChain  = regexp.MustCompile(`([^$A-Za-z0-9_).])(\.[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)+)`)
)

// rewriteChainedAccess rewrites dot-rooted field chains (.a.b.c) found
// inside {{ }} actions into calls to dget, so that a missing intermediate
// field renders as the empty string instead of making text/template's
// evalField panic with "nil pointer evaluating interface {}.field". This
// delivers the "undefined participates in chained access" contract for
// templating.rs's Tera-style graceful-undefined behavior (Tera's context
// values are always indexable; text/template's missingkey=zero only
// covers a single top-level lookup, not a chain). Chains rooted at a
// range/with variable ($x.a.b) are not rewritten and still require the
// variable itself to be bound; that narrower case is left to template
// authors, since it is far less common in this corpus's glue templates
// than root-field chains.
func rewriteChainedAccess(src string) string {
	return reAction.ReplaceAllStringFunc(src, func(action string) string {
		return reChain.ReplaceAllStringFunc(action, func(match string) string {
			// match[0] is the byte before the chain; a chain that follows a
			// variable, identifier or closing paren is never matched.
			sub := reChain.FindStringSubmatch(match)
			parts := strings.Split(strings.TrimPrefix(sub[2], "."), ".")
			quoted := make([]string, len(parts))
			for i, p := range parts {
				quoted[i] = `"` + p + `"`
			}
			return sub[1] + "(dget . " + strings.Join(quoted, " ") + ")"
		})
	})
}

// dget traverses a chain of map keys starting at root, returning "" as soon
// as a key is missing or an intermediate value isn't itself a map, rather
// than erroring. root is typically "." (the current template context).
func dget(root any, keys ...string) any {
	cur := root
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		v, exists := m[k]
		if !exists {
			return ""
		}
		cur = v
	}
	return cur
}

func stringFilter(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func listFilter(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case string:
		lines := strings.Split(x, "\n")
		out := make([]any, 0, len(lines))
		for _, l := range lines {
			out = append(out, strings.TrimSpace(l))
		}
		return out
	case nil:
		return nil
	default:
		return []any{x}
	}
}

func intFilter(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	case string:
		if i, err := strconv.ParseInt(x, 10, 64); err == nil {
			return i
		}
		return 0
	default:
		return 0
	}
}

func boolFilter(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		lower := strings.ToLower(x)
		return lower == "true" || lower == "yes" || lower == "1"
	case int64:
		return x != 0
	case float64:
		return x != 0
	default:
		return false
	}
}

func dateFilter(v any) string {
	return stringFilter(v)
}

func dictFilter(v any) any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{"value": v}
}

func bodyFilter(v any) string {
	return stringFilter(v)
}

// bytesFilter renders a numeric field as a human-readable byte size (e.g.
// "3.4 MB"), grounded on go-humanize's Bytes, per funcs.go's "humanize"
// FuncMap entry in the teacher.
func bytesFilter(v any) string {
	return humanize.Bytes(uint64(intFilter(v)))
}

// commaFilter renders a numeric field with thousands separators (e.g.
// "12,345"), grounded on go-humanize's Comma.
func commaFilter(v any) string {
	return humanize.Comma(intFilter(v))
}
