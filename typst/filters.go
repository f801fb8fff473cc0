package typst

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/quillmark-go/quillmark/glue"
)

// injectJSON wraps a JSON-encoded payload as a Typst bytes-to-json call,
// grounded on filters.rs's inject_json helper.
func injectJSON(jsonStr string) string {
	return fmt.Sprintf("json(bytes(%q))", jsonStr)
}

func stringFilter(v any) glue.SafeString {
	s := fmt.Sprint(v)
	encoded, _ := json.Marshal(s)
	return glue.SafeString(injectJSON(string(encoded)))
}

func linesFilter(v any) (glue.SafeString, error) {
	var items []string
	switch x := v.(type) {
	case []any:
		for _, el := range x {
			s, ok := el.(string)
			if !ok {
				return "", fmt.Errorf("typst: Lines element is not a string: %v", el)
			}
			items = append(items, s)
		}
	case string:
		items = []string{x}
	default:
		return "", fmt.Errorf("typst: Lines value is not an array of strings or a string: %v", v)
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return glue.SafeString(injectJSON(string(encoded))), nil
}

func dateFilter(v any) (glue.SafeString, error) {
	s := fmt.Sprint(v)
	if s == "" || s == "<nil>" {
		s = time.Now().UTC().Format("2006-01-02")
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", fmt.Errorf("typst: not ISO date (YYYY-MM-DD): %s", s)
	}
	return glue.SafeString(fmt.Sprintf("datetime(year: %d, month: %d, day: %d)", t.Year(), int(t.Month()), t.Day())), nil
}

func dictFilter(v any) (glue.SafeString, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", fmt.Errorf("typst: Dict value is not a dict<string,string>: %v", v)
	}
	encoded, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return glue.SafeString(injectJSON(string(encoded))), nil
}

func contentFilter(v any) (glue.SafeString, error) {
	var content string
	switch x := v.(type) {
	case nil:
		content = ""
	case string:
		content = x
	default:
		content = fmt.Sprint(x)
	}
	markup, err := MarkToTypst(content)
	if err != nil {
		return "", fmt.Errorf("typst: markdown conversion failed: %w", err)
	}
	return glue.SafeString(fmt.Sprintf("eval(%q, mode: \"markup\")", EscapeString(markup))), nil
}

// assetFilter validates a bare filename against path traversal, grounded on
// filters.rs's asset_filter security checks.
func assetFilter(v any) (string, error) {
	filename := fmt.Sprint(v)
	if strings.Contains(filename, "\x00") {
		return "", fmt.Errorf("typst: asset filename cannot contain null bytes")
	}
	lower := strings.ToLower(filename)
	if strings.Contains(lower, "%2f") || strings.Contains(lower, "%5c") || strings.Contains(lower, "%00") {
		return "", fmt.Errorf("typst: asset filename cannot contain URL-encoded path separators: %q", filename)
	}
	if strings.Contains(lower, "%25") {
		return "", fmt.Errorf("typst: asset filename cannot contain double URL-encoded characters: %q", filename)
	}
	if strings.ContainsAny(filename, "/\\") {
		return "", fmt.Errorf("typst: asset filename cannot contain path separators: %q", filename)
	}
	if strings.Contains(filename, "..") {
		return "", fmt.Errorf("typst: asset filename cannot contain path traversal sequences: %q", filename)
	}
	return filename, nil
}

func jsonFilter(v any) (glue.SafeString, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return glue.SafeString(injectJSON(string(encoded))), nil
}

// registerFilters installs the Typst-flavored template filters, grounded on
// lib.rs's register_filters.
func registerFilters(g *glue.Glue) {
	g.RegisterFilter("String", stringFilter)
	g.RegisterFilter("Lines", linesFilter)
	g.RegisterFilter("Date", dateFilter)
	g.RegisterFilter("Dict", dictFilter)
	g.RegisterFilter("Content", contentFilter)
	g.RegisterFilter("Asset", assetFilter)
	g.RegisterFilter("Json", jsonFilter)
}
