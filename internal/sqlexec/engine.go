package sqlexec

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pimwelt1/UAVLogViewer/internal/telemetry"
	_ "modernc.org/sqlite"
)

// maxResultRows caps how many rows a query result may carry back into
// the agent loop.
const maxResultRows = 100

// Engine runs read-only queries over a session's telemetry tables,
// loaded once into an in-memory SQLite database.
type Engine struct {
	db *sql.DB
}

// NewEngine creates an in-memory database and loads every table into it.
func NewEngine(tables map[string]*telemetry.Table) (*Engine, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	// A second pool connection would see its own empty in-memory
	// database, so the pool must stay on a single connection.
	db.SetMaxOpenConns(1)

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := loadTable(db, tables[name]); err != nil {
			db.Close()
			return nil, fmt.Errorf("load table %s: %w", name, err)
		}
	}
	return &Engine{db: db}, nil
}

// Execute runs the safety filter and then the query. On success the
// result is truncated to the first 100 rows and serialized as an
// indented JSON array of row records. A rejected query is reported as
// an execution error, never run.
func (e *Engine) Execute(ctx context.Context, query string) (string, error) {
	if !IsSafe(query) {
		return "", fmt.Errorf("The query %s is not safe to execute.", query)
	}

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}

	records := make([]map[string]any, 0, 16)
	for len(records) < maxResultRows && rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}
		record := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = vals[i]
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Close releases the in-memory database.
func (e *Engine) Close() error {
	return e.db.Close()
}

func loadTable(db *sql.DB, table *telemetry.Table) error {
	colDefs := make([]string, len(table.Columns))
	colNames := make([]string, len(table.Columns))
	placeholders := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		colDefs[i] = quoteIdent(col.Name) + " " + col.Dtype
		colNames[i] = quoteIdent(col.Name)
		placeholders[i] = "?"
	}

	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table.Name), strings.Join(colDefs, ", "))
	if _, err := db.Exec(createStmt); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin load transaction: %w", err)
	}
	defer tx.Rollback()

	insertStmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table.Name), strings.Join(colNames, ", "), strings.Join(placeholders, ", "))
	stmt, err := tx.Prepare(insertStmt)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for row := 0; row < table.RowCount(); row++ {
		args := make([]any, len(table.Columns))
		for i, col := range table.Columns {
			if row < len(col.Values) {
				args[i] = col.Values[row]
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert row %d: %w", row, err)
		}
	}
	return tx.Commit()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
