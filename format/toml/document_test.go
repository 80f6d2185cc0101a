package toml

import (
	"errors"
	"testing"

	"github.com/yacchi/assigner/doctest"
	"github.com/yacchi/assigner/document"
)

func TestDocument_Compliance(t *testing.T) {
	doctest.NewDocumentTester(t, New(),
		doctest.SkipNullTest("TOML has no null value"),
	).TestAll()
}

func TestDocument_Get(t *testing.T) {
	data := []byte(`
version = 2
namespace = "ns"

[backend]
name = "gitlab"
token = "abc"
host = "https://git.example.com"

[[roster]]
name = "Ada Lovelace"
username = "ada"
section = "A"
id = 7
`)

	got, err := New().Get(data)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got["version"] != 2 {
		t.Errorf("version = %#v, want int 2", got["version"])
	}
	roster, ok := got["roster"].([]any)
	if !ok || len(roster) != 1 {
		t.Fatalf("roster = %#v, want one entry", got["roster"])
	}
	if id := roster[0].(map[string]any)["id"]; id != 7 {
		t.Errorf("roster[0].id = %#v, want int 7", id)
	}
}

func TestDocument_Marshal_NilPath(t *testing.T) {
	_, err := New().Marshal(map[string]any{
		"roster": []any{map[string]any{"name": nil}},
	})

	var unsupported *document.UnsupportedStructureError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Marshal() error = %v, want UnsupportedStructureError", err)
	}
	if unsupported.Path != "/roster/0/name" {
		t.Errorf("Path = %q, want /roster/0/name", unsupported.Path)
	}
}

func TestDocument_Get_Invalid(t *testing.T) {
	_, err := New().Get([]byte("version = = 2"))
	var pe *document.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Get() error = %v, want ParseError", err)
	}
	if pe.Format != document.FormatTOML {
		t.Errorf("Format = %v, want toml", pe.Format)
	}
}
