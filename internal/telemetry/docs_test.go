package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func docsFixture() *Docs {
	return NewDocs(map[string]DocEntry{
		"GPS": {
			Columns:      []string{"Alt", "Status"},
			Units:        []string{"m", ""},
			Descriptions: []string{"Altitude above mean sea level", "GPS fix status"},
		},
	})
}

func TestBuildDocumentationHeaderListsTables(t *testing.T) {
	tables := map[string]*Table{
		"GPS_0": {Name: "GPS_0", Columns: []Column{{Name: "Alt", Dtype: DtypeReal}}},
		"ATT":   {Name: "ATT", Columns: []Column{{Name: "Roll", Dtype: DtypeReal}}},
	}
	doc := docsFixture().BuildDocumentation(tables)

	if !strings.HasPrefix(doc, "Available tables in the documentation: ATT, GPS_0") {
		t.Errorf("header wrong:\n%s", doc)
	}
}

func TestBuildDocumentationDocumentedType(t *testing.T) {
	tables := map[string]*Table{
		"GPS_0": {Name: "GPS_0", Columns: []Column{
			{Name: "Alt", Dtype: DtypeReal},
			{Name: "Status", Dtype: DtypeInteger},
		}},
	}
	doc := docsFixture().BuildDocumentation(tables)

	if !strings.Contains(doc, "GPS Documentation(Found in table GPS_0)") {
		t.Errorf("single-instance header missing:\n%s", doc)
	}
	if !strings.Contains(doc, "  - Alt (m) [REAL]: Altitude above mean sea level") {
		t.Errorf("Alt line missing:\n%s", doc)
	}
	if !strings.Contains(doc, "  - Status () [INTEGER]: GPS fix status") {
		t.Errorf("Status line missing:\n%s", doc)
	}
}

func TestBuildDocumentationMultipleInstances(t *testing.T) {
	tables := map[string]*Table{
		"GPS_0": {Name: "GPS_0", Columns: []Column{{Name: "Alt", Dtype: DtypeReal}}},
		"GPS_1": {Name: "GPS_1", Columns: []Column{{Name: "Alt", Dtype: DtypeReal}}},
	}
	doc := docsFixture().BuildDocumentation(tables)

	if !strings.Contains(doc, "GPS Documentation (Found in tables: GPS_0, GPS_1)") {
		t.Errorf("multi-instance header missing:\n%s", doc)
	}
}

func TestBuildDocumentationUndocumentedType(t *testing.T) {
	tables := map[string]*Table{
		"XKF1_0": {Name: "XKF1_0", Columns: []Column{{Name: "VN", Dtype: DtypeReal}}},
	}
	doc := docsFixture().BuildDocumentation(tables)

	if !strings.Contains(doc, "XKF1:\n  No documentation available.") {
		t.Errorf("undocumented stub missing:\n%s", doc)
	}
}

func TestBuildDocumentationUndocumentedColumn(t *testing.T) {
	tables := map[string]*Table{
		"GPS_0": {Name: "GPS_0", Columns: []Column{{Name: "Spd", Dtype: DtypeReal}}},
	}
	doc := docsFixture().BuildDocumentation(tables)

	if !strings.Contains(doc, "  - Spd () [REAL]: No description available.") {
		t.Errorf("undocumented column default missing:\n%s", doc)
	}
}

func TestLoadDocs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "documentation.json")
	payload := `{"GPS": {"columns": ["Alt"], "units": ["m"], "descriptions": ["Altitude"]}}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	docs, err := LoadDocs(path)
	if err != nil {
		t.Fatalf("LoadDocs() error = %v", err)
	}
	doc := docs.BuildDocumentation(map[string]*Table{
		"GPS_0": {Name: "GPS_0", Columns: []Column{{Name: "Alt", Dtype: DtypeReal}}},
	})
	if !strings.Contains(doc, "Altitude") {
		t.Errorf("loaded description missing:\n%s", doc)
	}
}

func TestLoadDocsMissingFile(t *testing.T) {
	if _, err := LoadDocs(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("LoadDocs() should fail on a missing file")
	}
}
