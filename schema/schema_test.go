package schema

import (
	"testing"

	"github.com/quillmark-go/quillmark/value"
)

func strPtr(s string) *value.Value {
	v := value.String(s)
	return &v
}

func TestBuildSchemaRequiredRule(t *testing.T) {
	fields := map[string]FieldSchema{
		"title":  {Type: "string", Required: true},
		"author": {Type: "string", Required: true, Default: strPtr("Anonymous")},
		"notes":  {Type: "string"},
	}
	s, err := BuildSchema([]string{"title", "author", "notes"}, fields)
	if err != nil {
		t.Fatal(err)
	}
	obj, _ := s.AsObject()
	reqVal, ok := obj.Get("required")
	if !ok {
		t.Fatal("expected required key")
	}
	req, _ := reqVal.AsArray()
	if len(req) != 1 || req[0].String() != "title" {
		t.Fatalf("expected only title required, got %+v", req)
	}
}

func TestApplyDefaultsAndValidate(t *testing.T) {
	fields := map[string]FieldSchema{
		"title":  {Type: "string", Required: true},
		"author": {Type: "string", Default: strPtr("Anonymous")},
	}
	s, _ := BuildSchema([]string{"title", "author"}, fields)

	doc := value.NewOrderedMap()
	doc.Set("title", value.String("Hi"))
	doc = ApplyDefaults(doc, s)

	if v, ok := doc.Get("author"); !ok || v.String() != "Anonymous" {
		t.Fatalf("expected default author, got %+v", v)
	}
	if err := ValidateDocument(doc, s); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateMissingRequired(t *testing.T) {
	fields := map[string]FieldSchema{
		"title": {Type: "string", Required: true},
	}
	s, _ := BuildSchema([]string{"title"}, fields)
	doc := value.NewOrderedMap()
	if err := ValidateDocument(doc, s); err == nil {
		t.Fatal("expected missing-required error")
	}
}

func TestCoerceArrayWrap(t *testing.T) {
	fields := map[string]FieldSchema{
		"tags": {Type: "array"},
	}
	s, _ := BuildSchema([]string{"tags"}, fields)
	doc := value.NewOrderedMap()
	doc.Set("tags", value.String("solo"))
	doc = CoerceDocument(doc, s)
	v, _ := doc.Get("tags")
	arr, ok := v.AsArray()
	if !ok || len(arr) != 1 || arr[0].String() != "solo" {
		t.Fatalf("expected wrapped array, got %+v", v)
	}
}

func TestCoerceDocumentWithWarningsReportsCoercedFields(t *testing.T) {
	fields := map[string]FieldSchema{
		"tags": {Type: "array"},
		"name": {Type: "string"},
	}
	s, _ := BuildSchema([]string{"tags", "name"}, fields)
	doc := value.NewOrderedMap()
	doc.Set("tags", value.String("solo"))
	doc.Set("name", value.String("Ada"))

	_, warnings := CoerceDocumentWithWarnings(doc, s)
	if len(warnings) != 1 {
		t.Fatalf("expected exactly 1 warning (tags coerced), got %d: %+v", len(warnings), warnings)
	}
}

func TestStripSchemaFields(t *testing.T) {
	ui := value.String("textarea")
	fields := map[string]FieldSchema{
		"body": {Type: "string", UI: &ui},
	}
	s, _ := BuildSchema([]string{"body"}, fields)
	stripped := StripSchemaFields(s)
	obj, _ := stripped.AsObject()
	props, _ := obj.Get("properties")
	propsObj, _ := props.AsObject()
	bodyProp, _ := propsObj.Get("body")
	bodyObj, _ := bodyProp.AsObject()
	if _, ok := bodyObj.Get("x-ui"); ok {
		t.Fatal("expected x-ui stripped")
	}
}
