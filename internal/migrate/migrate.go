// Package migrate applies the numbered SQL files under migrations/ and
// tracks them in schema_migrations.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Migration represents a database migration
type Migration struct {
	Version   int
	Name      string
	FilePath  string
	DownPath  string
	Applied   bool
	AppliedAt *time.Time
}

// Pattern: 001_name.sql, rolled back by 001_name.down.sql
var (
	upPattern   = regexp.MustCompile(`^(\d{3})_(.+)\.sql$`)
	downPattern = regexp.MustCompile(`\.down\.sql$`)
)

// Migrator runs migrations from a directory
type Migrator struct {
	db     *sql.DB
	dir    string
	logger logrus.FieldLogger
}

// New creates a Migrator reading files from dir
func New(db *sql.DB, dir string, logger logrus.FieldLogger) *Migrator {
	return &Migrator{db: db, dir: dir, logger: logger}
}

// Init creates the schema_migrations tracking table
func (m *Migrator) Init(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]Migration, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version, name, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]Migration)
	for rows.Next() {
		var mig Migration
		if err := rows.Scan(&mig.Version, &mig.Name, &mig.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		mig.Applied = true
		applied[mig.Version] = mig
	}
	return applied, rows.Err()
}

// Files lists the migrations found in dir, sorted by version
func Files(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || downPattern.MatchString(entry.Name()) {
			continue
		}
		matches := upPattern.FindStringSubmatch(entry.Name())
		if len(matches) != 3 {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		mig := Migration{
			Version:  version,
			Name:     matches[2],
			FilePath: filepath.Join(dir, entry.Name()),
		}
		down := filepath.Join(dir, fmt.Sprintf("%s_%s.down.sql", matches[1], matches[2]))
		if _, err := os.Stat(down); err == nil {
			mig.DownPath = down
		}
		migrations = append(migrations, mig)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Up applies every pending migration and returns how many ran
func (m *Migrator) Up(ctx context.Context) (int, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}
	migrations, err := Files(m.dir)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return count, fmt.Errorf("failed to apply migration %03d_%s: %w", mig.Version, mig.Name, err)
		}
		count++
	}
	return count, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	content, err := os.ReadFile(mig.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	err = m.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", mig.Version, mig.Name); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.WithFields(logrus.Fields{"version": mig.Version, "name": mig.Name}).Info("migration applied")
	return nil
}

// Down rolls back the most recently applied migration. It returns false
// when nothing was applied.
func (m *Migrator) Down(ctx context.Context) (bool, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return false, err
	}
	if len(applied) == 0 {
		return false, nil
	}

	last := 0
	for version := range applied {
		if version > last {
			last = version
		}
	}
	return true, m.rollback(ctx, last)
}

func (m *Migrator) rollback(ctx context.Context, version int) error {
	migrations, err := Files(m.dir)
	if err != nil {
		return err
	}

	var target *Migration
	for i := range migrations {
		if migrations[i].Version == version {
			target = &migrations[i]
			break
		}
	}
	if target == nil || target.DownPath == "" {
		return fmt.Errorf("no rollback defined for migration version %d", version)
	}

	content, err := os.ReadFile(target.DownPath)
	if err != nil {
		return fmt.Errorf("failed to read rollback file: %w", err)
	}

	err = m.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute rollback SQL: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = $1", version); err != nil {
			return fmt.Errorf("failed to remove migration record: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.WithField("version", version).Info("migration rolled back")
	return nil
}

// Reset rolls back every applied migration, newest first, then reapplies all
func (m *Migrator) Reset(ctx context.Context) (int, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	versions := make([]int, 0, len(applied))
	for version := range applied {
		versions = append(versions, version)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(versions)))

	for _, version := range versions {
		if err := m.rollback(ctx, version); err != nil {
			return 0, err
		}
	}
	return m.Up(ctx)
}

// Status returns every migration file with its applied state
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	migrations, err := Files(m.dir)
	if err != nil {
		return nil, err
	}

	for i := range migrations {
		if mig, ok := applied[migrations[i].Version]; ok {
			migrations[i].Applied = true
			migrations[i].AppliedAt = mig.AppliedAt
		}
	}
	return migrations, nil
}

// Seed runs the SQL files under dir/seed. Seeds are not tracked and must
// be idempotent.
func (m *Migrator) Seed(ctx context.Context) (int, error) {
	seeds, err := Files(filepath.Join(m.dir, "seed"))
	if err != nil {
		return 0, err
	}

	for i, seed := range seeds {
		content, err := os.ReadFile(seed.FilePath)
		if err != nil {
			return i, fmt.Errorf("failed to read seed file: %w", err)
		}
		if _, err := m.db.ExecContext(ctx, string(content)); err != nil {
			return i, fmt.Errorf("failed to execute seed %03d_%s: %w", seed.Version, seed.Name, err)
		}
		m.logger.WithField("seed", seed.Name).Info("seed applied")
	}
	return len(seeds), nil
}

func (m *Migrator) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FormatStatus renders a status table
func FormatStatus(migrations []Migration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-40s %-12s %-20s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	b.WriteString(strings.Repeat("-", 85) + "\n")

	applied := 0
	for _, mig := range migrations {
		status, appliedAt := "pending", "-"
		if mig.Applied {
			applied++
			status = "applied"
			if mig.AppliedAt != nil {
				appliedAt = mig.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(&b, "%-10s %-40s %-12s %-20s\n", fmt.Sprintf("%03d", mig.Version), mig.Name, status, appliedAt)
	}

	b.WriteString(strings.Repeat("-", 85) + "\n")
	fmt.Fprintf(&b, "Summary: %d/%d migrations applied\n", applied, len(migrations))
	return b.String()
}
