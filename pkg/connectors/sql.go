// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package connectors

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/tool"
)

// SQLTable describes one table the connector exposes.
type SQLTable struct {
	Name       string
	Columns    []SQLColumn
	PrimaryKey []string
}

// SQLColumn describes one column of an exposed table.
type SQLColumn struct {
	Name     string
	Type     string
	Nullable bool
	Primary  bool
}

// SQLConnector derives CRUD tools from a database schema. Each table
// yields list and get tools, plus insert, update and delete unless the
// connector is read only.
type SQLConnector struct {
	db       *sql.DB
	driver   string
	tables   map[string]*SQLTable
	prefix   string
	readOnly bool
}

// SQLOption configures a SQLConnector.
type SQLOption func(*SQLConnector)

// WithSQLToolPrefix prefixes generated tool names.
func WithSQLToolPrefix(prefix string) SQLOption {
	return func(c *SQLConnector) { c.prefix = prefix }
}

// WithSQLReadOnly limits the connector to list and get tools.
func WithSQLReadOnly() SQLOption {
	return func(c *SQLConnector) { c.readOnly = true }
}

// NewSQLConnector introspects db's schema. Supported drivers are
// sqlite, postgres and mysql.
func NewSQLConnector(ctx context.Context, db *sql.DB, driver string, opts ...SQLOption) (*SQLConnector, error) {
	if db == nil {
		return nil, errors.New(errors.CodeProtocol, "database handle is nil")
	}
	c := &SQLConnector{db: db, driver: driver, tables: make(map[string]*SQLTable)}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.introspect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *SQLConnector) introspect(ctx context.Context) error {
	switch c.driver {
	case "sqlite", "sqlite3":
		return c.introspectSQLite(ctx)
	case "postgres", "postgresql", "mysql":
		return c.introspectInformationSchema(ctx)
	default:
		return errors.Newf(errors.CodeProtocol, "unsupported SQL driver %q", c.driver)
	}
}

func (c *SQLConnector) introspectSQLite(ctx context.Context) error {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return errors.Wrap(errors.CodeStorage, "list tables", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return errors.Wrap(errors.CodeStorage, "scan table name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(errors.CodeStorage, "list tables", err)
	}

	for _, name := range names {
		table := &SQLTable{Name: name}
		info, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", name))
		if err != nil {
			return errors.Wrap(errors.CodeStorage, "table info for "+name, err)
		}
		for info.Next() {
			var cid, notNull, pk int
			var colName, colType string
			var dflt sql.NullString
			if err := info.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
				info.Close()
				return errors.Wrap(errors.CodeStorage, "scan column info", err)
			}
			col := SQLColumn{Name: colName, Type: colType, Nullable: notNull == 0, Primary: pk > 0}
			table.Columns = append(table.Columns, col)
			if col.Primary {
				table.PrimaryKey = append(table.PrimaryKey, colName)
			}
		}
		info.Close()
		if err := info.Err(); err != nil {
			return errors.Wrap(errors.CodeStorage, "table info for "+name, err)
		}
		c.tables[name] = table
	}
	return nil
}

func (c *SQLConnector) introspectInformationSchema(ctx context.Context) error {
	scope := `table_schema = 'public'`
	if c.driver == "mysql" {
		scope = `table_schema = DATABASE()`
	}
	query := fmt.Sprintf(`SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns WHERE %s
		ORDER BY table_name, ordinal_position`, scope)

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return errors.Wrap(errors.CodeStorage, "query information_schema", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, colName, colType, nullable string
		if err := rows.Scan(&tableName, &colName, &colType, &nullable); err != nil {
			return errors.Wrap(errors.CodeStorage, "scan column row", err)
		}
		table, ok := c.tables[tableName]
		if !ok {
			table = &SQLTable{Name: tableName}
			c.tables[tableName] = table
		}
		table.Columns = append(table.Columns, SQLColumn{
			Name:     colName,
			Type:     colType,
			Nullable: strings.EqualFold(nullable, "YES"),
		})
	}
	return rows.Err()
}

// Tables returns the introspected tables keyed by name.
func (c *SQLConnector) Tables() map[string]*SQLTable { return c.tables }

// Tools implements Connector.
func (c *SQLConnector) Tools() []tool.Tool {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	var tools []tool.Tool
	for _, name := range names {
		table := c.tables[name]
		tools = append(tools, c.listTool(table), c.getTool(table))
		if !c.readOnly {
			tools = append(tools, c.insertTool(table), c.updateTool(table), c.deleteTool(table))
		}
	}
	return tools
}

func (c *SQLConnector) toolName(op, table string) string {
	name := op + "_" + strings.ToLower(table)
	if c.prefix != "" {
		name = c.prefix + "_" + name
	}
	return name
}

func (c *SQLConnector) columnProperties(table *SQLTable) map[string]any {
	props := make(map[string]any, len(table.Columns))
	for _, col := range table.Columns {
		props[col.Name] = columnSchema(col)
	}
	return props
}

func (c *SQLConnector) keyColumns(table *SQLTable) []string {
	if len(table.PrimaryKey) > 0 {
		return table.PrimaryKey
	}
	return []string{"id"}
}

func (c *SQLConnector) listTool(table *SQLTable) tool.Tool {
	properties := map[string]any{
		"filters": map[string]any{
			"type":        "object",
			"description": "column to value equality filters",
			"properties":  c.columnProperties(table),
		},
		"limit": map[string]any{"type": "integer", "description": "maximum rows to return", "default": 100},
	}
	return &connectorTool{
		name:        c.toolName("list", table.Name),
		description: fmt.Sprintf("List rows of %s with optional equality filters", table.Name),
		parameters:  objectSchema(properties, nil),
		exec: func(ctx context.Context, args map[string]any) (any, error) {
			return c.runList(ctx, table, args)
		},
	}
}

func (c *SQLConnector) getTool(table *SQLTable) tool.Tool {
	keys := c.keyColumns(table)
	properties := make(map[string]any, len(keys))
	for _, key := range keys {
		properties[key] = map[string]any{"type": "string"}
	}
	return &connectorTool{
		name:        c.toolName("get", table.Name),
		description: fmt.Sprintf("Fetch one row of %s by primary key", table.Name),
		parameters:  objectSchema(properties, keys),
		exec: func(ctx context.Context, args map[string]any) (any, error) {
			return c.runGet(ctx, table, args)
		},
	}
}

func (c *SQLConnector) insertTool(table *SQLTable) tool.Tool {
	var required []string
	for _, col := range table.Columns {
		if !col.Nullable && !col.Primary {
			required = append(required, col.Name)
		}
	}
	return &connectorTool{
		name:        c.toolName("insert", table.Name),
		description: fmt.Sprintf("Insert a row into %s", table.Name),
		parameters:  objectSchema(c.columnProperties(table), required),
		exec: func(ctx context.Context, args map[string]any) (any, error) {
			return c.runInsert(ctx, table, args)
		},
	}
}

func (c *SQLConnector) updateTool(table *SQLTable) tool.Tool {
	return &connectorTool{
		name:        c.toolName("update", table.Name),
		description: fmt.Sprintf("Update a row of %s identified by primary key", table.Name),
		parameters:  objectSchema(c.columnProperties(table), c.keyColumns(table)),
		exec: func(ctx context.Context, args map[string]any) (any, error) {
			return c.runUpdate(ctx, table, args)
		},
	}
}

func (c *SQLConnector) deleteTool(table *SQLTable) tool.Tool {
	keys := c.keyColumns(table)
	properties := make(map[string]any, len(keys))
	for _, key := range keys {
		properties[key] = map[string]any{"type": "string"}
	}
	return &connectorTool{
		name:        c.toolName("delete", table.Name),
		description: fmt.Sprintf("Delete a row of %s by primary key", table.Name),
		parameters:  objectSchema(properties, keys),
		exec: func(ctx context.Context, args map[string]any) (any, error) {
			return c.runDelete(ctx, table, args)
		},
	}
}

func (c *SQLConnector) runList(ctx context.Context, table *SQLTable, args map[string]any) (any, error) {
	query := "SELECT * FROM " + c.quote(table.Name)
	var values []any
	if filters, ok := args["filters"].(map[string]any); ok && len(filters) > 0 {
		clauses, vals, err := c.equalityClauses(table, filters)
		if err != nil {
			return nil, err
		}
		query += " WHERE " + strings.Join(clauses, " AND ")
		values = vals
	}
	limit := 100
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := c.db.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "list query failed", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (c *SQLConnector) runGet(ctx context.Context, table *SQLTable, args map[string]any) (any, error) {
	clauses, values, err := c.keyClauses(table, args)
	if err != nil {
		return nil, err
	}
	query := "SELECT * FROM " + c.quote(table.Name) + " WHERE " + strings.Join(clauses, " AND ") + " LIMIT 1"
	rows, err := c.db.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "get query failed", err)
	}
	defer rows.Close()
	results, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, errors.New(errors.CodeStorage, "row not found")
	}
	return results[0], nil
}

func (c *SQLConnector) runInsert(ctx context.Context, table *SQLTable, args map[string]any) (any, error) {
	if len(args) == 0 {
		return nil, errors.New(errors.CodeProtocol, "no columns to insert")
	}
	names := c.knownColumns(table, args)
	if len(names) == 0 {
		return nil, errors.New(errors.CodeProtocol, "no known columns in arguments")
	}
	quoted := make([]string, len(names))
	placeholders := make([]string, len(names))
	values := make([]any, len(names))
	for i, name := range names {
		quoted[i] = c.quote(name)
		placeholders[i] = c.placeholder(i + 1)
		values[i] = args[name]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.quote(table.Name), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	result, err := c.db.ExecContext(ctx, query, values...)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "insert failed", err)
	}
	affected, _ := result.RowsAffected()
	return map[string]any{"rows_affected": affected}, nil
}

func (c *SQLConnector) runUpdate(ctx context.Context, table *SQLTable, args map[string]any) (any, error) {
	keys := make(map[string]bool)
	for _, key := range c.keyColumns(table) {
		keys[key] = true
	}
	var setNames []string
	for _, name := range c.knownColumns(table, args) {
		if !keys[name] {
			setNames = append(setNames, name)
		}
	}
	if len(setNames) == 0 {
		return nil, errors.New(errors.CodeProtocol, "no columns to update")
	}

	var clauses []string
	var values []any
	for _, name := range setNames {
		clauses = append(clauses, fmt.Sprintf("%s = %s", c.quote(name), c.placeholder(len(values)+1)))
		values = append(values, args[name])
	}
	where, whereValues, err := c.keyClausesOffset(table, args, len(values))
	if err != nil {
		return nil, err
	}
	values = append(values, whereValues...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		c.quote(table.Name), strings.Join(clauses, ", "), strings.Join(where, " AND "))
	result, err := c.db.ExecContext(ctx, query, values...)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "update failed", err)
	}
	affected, _ := result.RowsAffected()
	return map[string]any{"rows_affected": affected}, nil
}

func (c *SQLConnector) runDelete(ctx context.Context, table *SQLTable, args map[string]any) (any, error) {
	clauses, values, err := c.keyClauses(table, args)
	if err != nil {
		return nil, err
	}
	query := "DELETE FROM " + c.quote(table.Name) + " WHERE " + strings.Join(clauses, " AND ")
	result, err := c.db.ExecContext(ctx, query, values...)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "delete failed", err)
	}
	affected, _ := result.RowsAffected()
	return map[string]any{"rows_affected": affected}, nil
}

// knownColumns returns the table's column names present in args, in
// column order so queries stay deterministic.
func (c *SQLConnector) knownColumns(table *SQLTable, args map[string]any) []string {
	var names []string
	for _, col := range table.Columns {
		if _, ok := args[col.Name]; ok {
			names = append(names, col.Name)
		}
	}
	return names
}

func (c *SQLConnector) equalityClauses(table *SQLTable, filters map[string]any) ([]string, []any, error) {
	names := c.knownColumns(table, filters)
	if len(names) != len(filters) {
		return nil, nil, errors.New(errors.CodeProtocol, "filter references unknown column")
	}
	clauses := make([]string, len(names))
	values := make([]any, len(names))
	for i, name := range names {
		clauses[i] = fmt.Sprintf("%s = %s", c.quote(name), c.placeholder(i+1))
		values[i] = filters[name]
	}
	return clauses, values, nil
}

func (c *SQLConnector) keyClauses(table *SQLTable, args map[string]any) ([]string, []any, error) {
	return c.keyClausesOffset(table, args, 0)
}

func (c *SQLConnector) keyClausesOffset(table *SQLTable, args map[string]any, offset int) ([]string, []any, error) {
	keys := c.keyColumns(table)
	clauses := make([]string, 0, len(keys))
	values := make([]any, 0, len(keys))
	for _, key := range keys {
		value, ok := args[key]
		if !ok {
			return nil, nil, errors.Newf(errors.CodeProtocol, "missing primary key column %q", key)
		}
		clauses = append(clauses, fmt.Sprintf("%s = %s", c.quote(key), c.placeholder(offset+len(values)+1)))
		values = append(values, value)
	}
	return clauses, values, nil
}

func (c *SQLConnector) quote(name string) string {
	if c.driver == "mysql" {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

func (c *SQLConnector) placeholder(n int) string {
	if c.driver == "postgres" || c.driver == "postgresql" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func columnSchema(col SQLColumn) map[string]any {
	upper := strings.ToUpper(col.Type)
	switch {
	case strings.Contains(upper, "INT"):
		return map[string]any{"type": "integer"}
	case strings.Contains(upper, "REAL"), strings.Contains(upper, "FLOAT"),
		strings.Contains(upper, "DOUBLE"), strings.Contains(upper, "NUMERIC"),
		strings.Contains(upper, "DECIMAL"):
		return map[string]any{"type": "number"}
	case strings.Contains(upper, "BOOL"):
		return map[string]any{"type": "boolean"}
	default:
		return map[string]any{"type": "string"}
	}
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "read column names", err)
	}
	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.Wrap(errors.CodeStorage, "scan row", err)
		}
		row := make(map[string]any, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
