package shared

import (
	"cmp"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migration is one versioned change to the import history schema, read from a
// NNNN_name_up.sql and NNNN_name_down.sql pair.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

func (m Migration) String() string {
	return fmt.Sprintf("%04d_%s", m.Version, m.Name)
}

func loadMigrations() ([]Migration, error) {
	files, err := fs.Glob(migrationFiles, "sql/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, file := range files {
		prefix, rest, ok := strings.Cut(strings.TrimSuffix(path.Base(file), ".sql"), "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}

		var name string
		var up bool
		if n, found := strings.CutSuffix(rest, "_up"); found {
			name, up = n, true
		} else if n, found := strings.CutSuffix(rest, "_down"); found {
			name = n
		} else {
			continue
		}

		content, err := migrationFiles.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if up {
			m.Up = string(content)
		} else {
			m.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("%w: migration %s needs both an up and a down script", ErrInvalidConfig, m)
		}
		migrations = append(migrations, *m)
	}
	slices.SortFunc(migrations, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return migrations, nil
}

// RunMigrations applies every migration that is not yet recorded in schema_migrations and
// returns the ones it applied, in order.
func RunMigrations(db *sql.DB) ([]Migration, error) {
	migrations, err := loadMigrations()
	if err != nil {
		return nil, err
	}

	applied, err := AppliedMigrations(db)
	if err != nil {
		return nil, err
	}

	var ran []Migration
	for _, m := range migrations {
		if slices.Contains(applied, m.Version) {
			continue
		}
		err := runScript(db, m.Up, func(tx *sql.Tx) error {
			_, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Version, m.Name)
			return err
		})
		if err != nil {
			return ran, fmt.Errorf("failed to apply migration %s: %w", m, err)
		}
		ran = append(ran, m)
	}
	return ran, nil
}

// RollbackMigration reverts the most recently applied migration and returns it.
func RollbackMigration(db *sql.DB) (Migration, error) {
	migrations, err := loadMigrations()
	if err != nil {
		return Migration{}, err
	}

	applied, err := AppliedMigrations(db)
	if err != nil {
		return Migration{}, err
	}
	if len(applied) == 0 {
		return Migration{}, fmt.Errorf("%w: no migrations to roll back", ErrInvalidArgument)
	}

	current := applied[len(applied)-1]
	i := slices.IndexFunc(migrations, func(m Migration) bool { return m.Version == current })
	if i < 0 {
		return Migration{}, fmt.Errorf("%w: applied migration %d is unknown to this build", ErrInvalidConfig, current)
	}

	m := migrations[i]
	err = runScript(db, m.Down, func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM schema_migrations WHERE version = ?", m.Version)
		return err
	})
	if err != nil {
		return Migration{}, fmt.Errorf("failed to roll back migration %s: %w", m, err)
	}
	return m, nil
}

// AppliedMigrations returns the recorded migration versions in ascending order.
func AppliedMigrations(db *sql.DB) ([]int, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// runScript executes each statement of script and then record in one transaction.
func runScript(db *sql.DB, script string, record func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(script) {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%w\nStatement: %s", err, stmt)
		}
	}
	if err := record(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// splitStatements drops -- comments and blank lines and splits script on semicolons.
func splitStatements(script string) []string {
	var lines []string
	for line := range strings.Lines(script) {
		if i := strings.Index(line, "--"); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	var stmts []string
	for stmt := range strings.SplitSeq(strings.Join(lines, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
