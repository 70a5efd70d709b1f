package agent

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/pimwelt1/UAVLogViewer/internal/telemetry"
)

// analysisCacheCapacity bounds the per-session analysis cache.
const analysisCacheCapacity = 20

// Analyzer computes and caches descriptive statistics per table.
type Analyzer struct {
	tables map[string]*telemetry.Table
	cache  *fifoCache
}

// NewAnalyzer creates an analyzer over the session's table set.
func NewAnalyzer(tables map[string]*telemetry.Table) *Analyzer {
	return &Analyzer{
		tables: tables,
		cache:  newFIFOCache(analysisCacheCapacity),
	}
}

// Analyze returns a statistical summary of the named table. Unknown
// table names produce (and cache) an error message listing the loaded
// tables; this is an ordinary result, not a fault. Tables with no
// numeric columns produce a fixed, uncached message.
func (a *Analyzer) Analyze(tableName string) string {
	if cached, ok := a.cache.Get(tableName); ok {
		return cached
	}

	table, ok := a.tables[tableName]
	if !ok {
		msg := fmt.Sprintf("Error: Table '%s' not found. Available tables: [%s]",
			tableName, strings.Join(a.tableNames(), ", "))
		a.cache.Put(tableName, msg)
		return msg
	}

	var lines []string
	for i := range table.Columns {
		col := &table.Columns[i]
		if !col.Numeric() {
			continue
		}
		values := col.Float64s()
		if len(values) == 0 {
			continue
		}
		lines = append(lines, describeColumn(col.Name, values))
	}
	if lines == nil {
		return fmt.Sprintf("Table %s has no numeric telemetry data.", tableName)
	}

	slog.Debug("Analyzed table", "table", tableName, "columns", len(lines))
	summary := fmt.Sprintf("Summary of `%s` Table\n", tableName) + "\n" + strings.Join(lines, "\n")
	a.cache.Put(tableName, summary)
	return summary
}

func (a *Analyzer) tableNames() []string {
	names := make([]string, 0, len(a.tables))
	for name := range a.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func describeColumn(name string, values []float64) string {
	st := describe(values)

	var notes []string
	switch {
	case st.unique == 1:
		notes = append(notes, "constant")
	case st.std > 2*math.Abs(st.mean):
		notes = append(notes, "high variance")
	case st.std == 0:
		notes = append(notes, "no variation")
	}
	if math.Abs(st.skew) > 2 {
		notes = append(notes, "strongly skewed")
	}
	if math.Abs(st.kurt) > 10 {
		notes = append(notes, "peaked or heavy tails")
	}

	line := fmt.Sprintf("- **%s**: min=%.2f, max=%.2f, mean=%.2f, std=%.2f, skew=%.2f, kurtosis=%.2f, unique=%d",
		name, st.min, st.max, st.mean, st.std, st.skew, st.kurt, st.unique)
	if len(notes) > 0 {
		line += fmt.Sprintf(" — _%s_", strings.Join(notes, " | "))
	}
	return line
}

type columnStats struct {
	min, max, mean, std, skew, kurt float64
	unique                          int
}

// describe computes sample statistics: standard deviation with one
// delta degree of freedom, adjusted Fisher-Pearson skewness, and
// adjusted excess kurtosis. Skewness needs at least 3 values and
// kurtosis at least 4; below that (or with zero variance) they are 0
// rather than undefined.
func describe(values []float64) columnStats {
	n := float64(len(values))
	st := columnStats{min: values[0], max: values[0]}

	distinct := make(map[float64]struct{}, len(values))
	var sum float64
	for _, v := range values {
		sum += v
		if v < st.min {
			st.min = v
		}
		if v > st.max {
			st.max = v
		}
		distinct[v] = struct{}{}
	}
	st.unique = len(distinct)
	st.mean = sum / n

	var m2, m3, m4 float64
	for _, v := range values {
		d := v - st.mean
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	if n > 1 {
		st.std = math.Sqrt(m2 / (n - 1))
	}
	m2 /= n
	m3 /= n
	m4 /= n

	if n >= 3 && m2 > 0 {
		g1 := m3 / math.Pow(m2, 1.5)
		st.skew = g1 * math.Sqrt(n*(n-1)) / (n - 2)
	}
	if n >= 4 && m2 > 0 {
		g2 := m4/(m2*m2) - 3
		st.kurt = ((n+1)*g2 + 6) * (n - 1) / ((n - 2) * (n - 3))
	}
	return st
}
