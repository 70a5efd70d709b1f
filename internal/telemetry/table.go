// Package telemetry turns parsed flight-log messages into typed columnar
// tables and builds the per-table documentation used to ground generation.
package telemetry

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
)

// Column dtypes, reported in documentation and used when loading tables
// into the query engine.
const (
	DtypeInteger = "INTEGER"
	DtypeReal    = "REAL"
	DtypeText    = "TEXT"
)

// Column is one named, typed value sequence within a table.
type Column struct {
	Name   string
	Dtype  string
	Values []any
}

// Numeric reports whether the column holds numeric telemetry.
func (c *Column) Numeric() bool {
	return c.Dtype == DtypeInteger || c.Dtype == DtypeReal
}

// Float64s returns the column's non-missing values as floats.
func (c *Column) Float64s() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		switch x := v.(type) {
		case float64:
			out = append(out, x)
		case int64:
			out = append(out, float64(x))
		case int:
			out = append(out, float64(x))
		case bool:
			if x {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}

// Table is a named, immutable columnar dataset. Columns are kept sorted
// by name so output is deterministic.
type Table struct {
	Name    string
	Columns []Column
}

// RowCount returns the number of rows in the table.
func (t *Table) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// DefaultExcludedTypes are message types skipped during ingestion: file
// metadata and parameter dumps carry no time-series telemetry.
var DefaultExcludedTypes = map[string]struct{}{
	"FILE": {},
	"PARM": {},
}

var instanceSuffix = regexp.MustCompile(`^(.+)\[(\d+)\]$`)

// FromParsedMessages converts a nested parsed-message mapping
// (message type -> field name -> values) into the session's table set.
// Message types in the excluded set are skipped, a bracketed instance
// index is folded into the table name (TYPE[n] -> TYPE_n), and per-type
// failures are logged and skipped rather than failing ingestion.
func FromParsedMessages(parsed map[string]any, excluded map[string]struct{}) map[string]*Table {
	tables := make(map[string]*Table)
	for msgType, msgData := range parsed {
		if _, skip := excluded[msgType]; skip {
			continue
		}
		fields, ok := msgData.(map[string]any)
		if !ok {
			slog.Debug("Skipping non-mapping message type", "type", msgType)
			continue
		}
		table, err := tableFromFields(normalizeTypeName(msgType), fields)
		if err != nil {
			slog.Warn("Error processing message type", "type", msgType, "error", err)
			continue
		}
		if table != nil {
			tables[table.Name] = table
		}
	}
	return tables
}

// normalizeTypeName folds a bracketed instance index into the name:
// GPS[0] -> GPS_0.
func normalizeTypeName(msgType string) string {
	if m := instanceSuffix.FindStringSubmatch(msgType); m != nil {
		return m[1] + "_" + m[2]
	}
	return msgType
}

// BaseType strips the instance suffix from a table name: GPS_0 -> GPS.
func BaseType(tableName string) string {
	for i := 0; i < len(tableName); i++ {
		if tableName[i] == '_' {
			return tableName[:i]
		}
	}
	return tableName
}

func tableFromFields(name string, fields map[string]any) (*Table, error) {
	columns := make([]Column, 0, len(fields))
	rows := -1
	for fieldName, raw := range fields {
		var values []any
		switch v := raw.(type) {
		case []any:
			values = v
		case map[string]any:
			values = mapValues(v)
		default:
			// Scalar fields carry no series data.
			continue
		}
		if rows == -1 {
			rows = len(values)
		} else if len(values) != rows {
			return nil, fmt.Errorf("field %q has %d values, expected %d", fieldName, len(values), rows)
		}
		columns = append(columns, Column{
			Name:   fieldName,
			Dtype:  inferDtype(values),
			Values: values,
		})
	}
	if len(columns) == 0 {
		return nil, nil
	}
	sort.Slice(columns, func(i, j int) bool { return columns[i].Name < columns[j].Name })
	return &Table{Name: name, Columns: columns}, nil
}

// mapValues flattens a nested value map into its values, ordered by key
// (numerically when the keys are numeric).
func mapValues(m map[string]any) []any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aerr := strconv.ParseFloat(keys[i], 64)
		b, berr := strconv.ParseFloat(keys[j], 64)
		if aerr == nil && berr == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	values := make([]any, 0, len(m))
	for _, k := range keys {
		values = append(values, m[k])
	}
	return values
}

func inferDtype(values []any) string {
	sawValue := false
	integral := true
	for _, v := range values {
		switch x := v.(type) {
		case nil:
			continue
		case bool:
			sawValue = true
		case float64:
			sawValue = true
			if x != float64(int64(x)) {
				integral = false
			}
		case int, int64:
			sawValue = true
		default:
			return DtypeText
		}
	}
	if !sawValue {
		return DtypeText
	}
	if integral {
		return DtypeInteger
	}
	return DtypeReal
}
