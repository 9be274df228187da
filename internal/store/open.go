package store

import (
	"context"
	"fmt"

	generrors "github.com/arkilian/telemetrygen/internal/errors"
)

// Options selects and configures a sink.
type Options struct {
	Driver     string
	Path       string
	DSN        string
	SchemaPath string
}

// Open creates the sink named by opts.Driver. The schema is resolved before
// any connection is made, so a missing schema file leaves no partial output.
func Open(ctx context.Context, opts Options) (Sink, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemorySink(), nil
	case DriverSQLite, DriverPostgres:
	default:
		return nil, generrors.NewConfigError(generrors.CodeInvalidValue, fmt.Sprintf("unknown store driver %q", opts.Driver))
	}

	schema, err := LoadSchema(opts.Driver, opts.SchemaPath)
	if err != nil {
		return nil, err
	}

	if opts.Driver == DriverPostgres {
		pg, err := OpenPostgres(ctx, opts.DSN, schema)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	lite, err := OpenSQLite(ctx, opts.Path, schema)
	if err != nil {
		return nil, err
	}
	return lite, nil
}
