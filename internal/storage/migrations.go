package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// schemaStep is one numbered schema file, e.g. 001_initial.sql is version 1.
type schemaStep struct {
	version int
	name    string
	sql     string
}

// RunMigrations brings the schema up to the newest step. The applied version
// lives in SQLite's user_version pragma, so each step and its version bump
// commit together.
func RunMigrations(db *DB, log *zap.Logger) error {
	ctx := context.Background()

	steps, err := loadSchemaSteps()
	if err != nil {
		return fmt.Errorf("reading schema steps: %w", err)
	}

	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, st := range steps {
		if st.version <= current {
			continue
		}

		err := db.Transaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, st.sql); err != nil {
				return fmt.Errorf("executing %s: %w", st.name, err)
			}
			// pragma arguments cannot be bound
			_, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", st.version))
			return err
		})
		if err != nil {
			return fmt.Errorf("applying schema version %d: %w", st.version, err)
		}
		log.Info("schema migrated", zap.Int("version", st.version), zap.String("file", st.name))
	}

	return nil
}

// SchemaVersion returns the last applied schema step, 0 for a new database.
func SchemaVersion(ctx context.Context, db *DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

func loadSchemaSteps() ([]schemaStep, error) {
	files, err := fs.Glob(schemaFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}

	steps := make([]schemaStep, 0, len(files))
	seen := make(map[int]string, len(files))
	for _, file := range files {
		name := path.Base(file)
		prefix, _, ok := strings.Cut(name, "_")
		version, err := strconv.Atoi(prefix)
		if !ok || err != nil || version < 1 {
			return nil, fmt.Errorf("%s has no positive numeric prefix", name)
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("%s and %s share version %d", other, name, version)
		}
		seen[version] = name

		content, err := schemaFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		steps = append(steps, schemaStep{version: version, name: name, sql: string(content)})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}
