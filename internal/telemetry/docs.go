package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// DocEntry holds the three parallel sequences documenting one message
// type: column names, units, and human descriptions.
type DocEntry struct {
	Columns      []string `json:"columns"`
	Units        []string `json:"units"`
	Descriptions []string `json:"descriptions"`
}

// Docs maps message-type names to column documentation scraped from the
// ArduPilot log-message reference. Read-only after construction.
type Docs struct {
	entries map[string]DocEntry
}

// NewDocs creates a documentation index from an in-memory mapping.
func NewDocs(entries map[string]DocEntry) *Docs {
	if entries == nil {
		entries = make(map[string]DocEntry)
	}
	return &Docs{entries: entries}
}

// LoadDocs reads the persisted documentation mapping from a JSON file.
func LoadDocs(path string) (*Docs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read documentation file: %w", err)
	}
	var entries map[string]DocEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse documentation file: %w", err)
	}
	return NewDocs(entries), nil
}

// BuildDocumentation composes one documentation text blob for the given
// table set: per message type, the union of columns seen across all
// instances of that type, each with unit, description, and an inferred
// dtype hint, sorted by column name. A type with no documentation entry
// yields a flagged stub instead of failing.
func (d *Docs) BuildDocumentation(tables map[string]*Table) string {
	tableNames := make([]string, 0, len(tables))
	for name := range tables {
		tableNames = append(tableNames, name)
	}
	sort.Strings(tableNames)

	instancesPerType := make(map[string][]string)
	columnsPerType := make(map[string]map[string]struct{})
	dtypeHint := make(map[string]string) // "TYPE.col" -> dtype

	for _, name := range tableNames {
		base := BaseType(name)
		instancesPerType[base] = append(instancesPerType[base], name)
		if columnsPerType[base] == nil {
			columnsPerType[base] = make(map[string]struct{})
		}
		for _, col := range tables[name].Columns {
			columnsPerType[base][col.Name] = struct{}{}
			key := base + "." + col.Name
			if _, seen := dtypeHint[key]; !seen {
				dtypeHint[key] = col.Dtype
			}
		}
	}

	baseTypes := make([]string, 0, len(instancesPerType))
	for base := range instancesPerType {
		baseTypes = append(baseTypes, base)
	}
	sort.Strings(baseTypes)

	var out []string
	out = append(out, "Available tables in the documentation: "+strings.Join(tableNames, ", ")+"\n")

	for _, base := range baseTypes {
		instances := instancesPerType[base]
		entry, ok := d.entries[base]
		if !ok {
			slog.Warn("No documentation found for message type", "type", base)
			out = append(out, fmt.Sprintf("\n%s:\n  No documentation available.", base))
			continue
		}

		fromDoc := make(map[string][2]string, len(entry.Columns))
		for i, col := range entry.Columns {
			unit, desc := "", ""
			if i < len(entry.Units) {
				unit = entry.Units[i]
			}
			if i < len(entry.Descriptions) {
				desc = entry.Descriptions[i]
			}
			fromDoc[col] = [2]string{unit, desc}
		}

		header := fmt.Sprintf("\n%s Documentation", base)
		if len(instances) > 1 {
			header += fmt.Sprintf(" (Found in tables: %s)", strings.Join(instances, ", "))
		} else {
			header += fmt.Sprintf("(Found in table %s)", instances[0])
		}
		lines := []string{header}

		cols := make([]string, 0, len(columnsPerType[base]))
		for col := range columnsPerType[base] {
			cols = append(cols, col)
		}
		sort.Strings(cols)

		for _, col := range cols {
			unit, desc := "", "No description available."
			if ud, found := fromDoc[col]; found {
				unit, desc = ud[0], ud[1]
			}
			dtype := dtypeHint[base+"."+col]
			if dtype == "" {
				dtype = "unknown"
			}
			lines = append(lines, fmt.Sprintf("  - %s (%s) [%s]: %s", col, unit, dtype, desc))
		}
		out = append(out, strings.Join(lines, "\n"))
	}

	return strings.Join(out, "\n")
}
