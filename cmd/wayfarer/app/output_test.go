package app

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("NewFormatter(json) did not return a JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML).(*YAMLFormatter); !ok {
		t.Error("NewFormatter(yaml) did not return a YAMLFormatter")
	}
	if _, ok := NewFormatter(FormatTable).(*TableFormatter); !ok {
		t.Error("NewFormatter(table) did not return a TableFormatter")
	}
	// Unknown formats fall back to table.
	if _, ok := NewFormatter(Format("bogus")).(*TableFormatter); !ok {
		t.Error("NewFormatter(bogus) did not fall back to TableFormatter")
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &JSONFormatter{Indent: "  "}
	if err := f.Format(&buf, map[string]int{"replayed": 2}); err != nil {
		t.Fatalf("Format() failed: %v", err)
	}

	var out map[string]int
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if out["replayed"] != 2 {
		t.Errorf("replayed = %d, want 2", out["replayed"])
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &YAMLFormatter{}
	if err := f.Format(&buf, map[string]string{"name": "Cafe Luna"}); err != nil {
		t.Fatalf("Format() failed: %v", err)
	}
	if !strings.Contains(buf.String(), "name: Cafe Luna") {
		t.Errorf("unexpected YAML output: %q", buf.String())
	}
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{}
	err := f.Format(&buf, TableData{
		Headers: []string{"external_id", "name"},
		Rows:    [][]string{{"prov-1", "Cafe Luna"}},
	})
	if err != nil {
		t.Fatalf("Format() failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "External Id") {
		t.Errorf("header not title-cased: %q", out)
	}
	if !strings.Contains(out, "Cafe Luna") {
		t.Errorf("row missing from output: %q", out)
	}
}

// TestTableFormatter_Fallback verifies non-tabular data falls back to JSON.
func TestTableFormatter_Fallback(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{}
	if err := f.Format(&buf, map[string]bool{"online": true}); err != nil {
		t.Fatalf("Format() failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"online": true`) {
		t.Errorf("fallback output not JSON: %q", buf.String())
	}
}

func TestReadRawRecords(t *testing.T) {
	dir := t.TempDir()

	one := filepath.Join(dir, "one.json")
	if err := os.WriteFile(one, []byte(`{"place_id": "prov-1", "name": "Cafe Luna"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	records, err := readRawRecords(one)
	if err != nil {
		t.Fatalf("readRawRecords() failed: %v", err)
	}
	if len(records) != 1 || records[0]["place_id"] != "prov-1" {
		t.Errorf("unexpected records: %v", records)
	}

	many := filepath.Join(dir, "many.json")
	if err := os.WriteFile(many, []byte(`[{"name": "a"}, {"name": "b"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	records, err = readRawRecords(many)
	if err != nil {
		t.Fatalf("readRawRecords() failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`"just a string"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readRawRecords(bad); err == nil {
		t.Error("expected error for non-object JSON")
	}
}

func TestFlagMark(t *testing.T) {
	if flagMark(true) != "yes" {
		t.Errorf("flagMark(true) = %s, want yes", flagMark(true))
	}
	if flagMark(false) != "-" {
		t.Errorf("flagMark(false) = %s, want -", flagMark(false))
	}
}
