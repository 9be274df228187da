package store

import (
	"embed"
	"fmt"
	"os"
	"strings"

	generrors "github.com/arkilian/telemetrygen/internal/errors"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// LoadSchema returns the DDL script for driver. An empty path selects the
// embedded default; a path that cannot be read aborts with a SCHEMA error.
func LoadSchema(driver, path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", generrors.NewSchemaError(generrors.CodeSchemaMissing,
				fmt.Sprintf("schema file %s not readable", path), err)
		}
		return string(data), nil
	}

	var name string
	switch driver {
	case DriverSQLite:
		name = "schema/sqlite.sql"
	case DriverPostgres:
		name = "schema/postgres.sql"
	default:
		return "", generrors.NewSchemaError(generrors.CodeSchemaMissing,
			fmt.Sprintf("no embedded schema for driver %q", driver), nil)
	}
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		return "", generrors.NewInternalError("embedded schema missing", err)
	}
	return string(data), nil
}

// SplitStatements splits a DDL script on semicolons, dropping blanks and
// line comments.
func SplitStatements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}
