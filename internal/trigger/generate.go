package trigger

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/undoredo/internal/store"
)

// validIdentifier matches table names that can be embedded in trigger names
// and SQL text without quoting.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// engineTrigger matches the names produced by Names.
var engineTrigger = regexp.MustCompile(`^_.*_(i|u|d)t$`)

// Set holds the three CREATE TRIGGER statements for one table.
type Set struct {
	Table  string
	Insert string
	Update string
	Delete string
}

// Statements returns the statements in installation order.
func (s Set) Statements() []string {
	return []string{s.Insert, s.Update, s.Delete}
}

// ValidTable reports whether name can be watched.
func ValidTable(name string) bool {
	return validIdentifier.MatchString(name)
}

// Names returns the insert, update and delete trigger names for a table.
func Names(table string) (insert, update, del string) {
	return "_" + table + "_it", "_" + table + "_ut", "_" + table + "_dt"
}

// IsEngineTrigger reports whether a trigger name follows the naming
// convention used by Generate.
func IsEngineTrigger(name string) bool {
	return engineTrigger.MatchString(name)
}

// Generate builds the trigger statements for a table with the given columns.
// Columns must be in declaration order.
func Generate(table string, columns []string) (Set, error) {
	if !ValidTable(table) {
		return Set{}, fmt.Errorf("invalid table name %q: must match pattern %s", table, validIdentifier.String())
	}
	if len(columns) == 0 {
		return Set{}, fmt.Errorf("table %s has no columns", table)
	}

	it, ut, dt := Names(table)
	return Set{
		Table:  table,
		Insert: insertTrigger(it, table),
		Update: updateTrigger(ut, table, columns),
		Delete: deleteTrigger(dt, table, columns),
	}, nil
}

func insertTrigger(name, table string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TEMP TRIGGER %s AFTER INSERT ON %s BEGIN\n", name, table)
	fmt.Fprintf(&b, "  INSERT INTO %s VALUES(NULL,", store.LogTable)
	fmt.Fprintf(&b, "'DELETE FROM %s WHERE rowid='||new.rowid);\nEND;", table)
	return b.String()
}

func updateTrigger(name, table string, columns []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TEMP TRIGGER %s AFTER UPDATE ON %s BEGIN\n", name, table)
	fmt.Fprintf(&b, "  INSERT INTO %s VALUES(NULL,", store.LogTable)
	fmt.Fprintf(&b, "'UPDATE %s ", table)
	sep := "SET "
	for _, col := range columns {
		fmt.Fprintf(&b, "%s%s='||quote(old.%s)||'", sep, literalIdent(col), quoteIdent(col))
		sep = ","
	}
	b.WriteString(" WHERE rowid='||old.rowid);\nEND;")
	return b.String()
}

func deleteTrigger(name, table string, columns []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TEMP TRIGGER %s BEFORE DELETE ON %s BEGIN\n", name, table)
	fmt.Fprintf(&b, "  INSERT INTO %s VALUES(NULL,", store.LogTable)
	fmt.Fprintf(&b, "'INSERT INTO %s(rowid", table)
	for _, col := range columns {
		b.WriteString("," + literalIdent(col))
	}
	b.WriteString(") VALUES('||old.rowid||'")
	for _, col := range columns {
		fmt.Fprintf(&b, ",'||quote(old.%s)||'", quoteIdent(col))
	}
	b.WriteString(")');\nEND;")
	return b.String()
}

// quoteIdent double-quotes a column name for use in the trigger body.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// literalIdent quotes a column name for embedding inside the single-quoted
// SQL text that the trigger writes to the log.
func literalIdent(name string) string {
	return strings.ReplaceAll(quoteIdent(name), "'", "''")
}
