package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"
	productwebhook "github.com/goliatone/go-productwebhook"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// SourceLabel identifies these migrations to hosts that merge several
// migration sources.
const SourceLabel = "go-productwebhook"

const rootDir = "data/sql/migrations"

// Set is the migration directory of one dialect.
type Set struct {
	Dialect string
	Dir     string
	FS      fs.FS
}

// RegisterFunc receives one Set per selected dialect.
type RegisterFunc func(ctx context.Context, label string, set Set) error

// Sets returns the postgres and sqlite migration sets found under root.
// A nil root means the embedded migrations.
func Sets(root fs.FS) ([]Set, error) {
	if root == nil {
		root = productwebhook.GetMigrationsFS()
	}
	base, err := fs.Sub(root, rootDir)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", rootDir, err)
	}
	sqliteFS, err := fs.Sub(base, DialectSQLite)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite migrations: %w", err)
	}
	sets := []Set{
		{Dialect: DialectPostgres, Dir: rootDir, FS: base},
		{Dialect: DialectSQLite, Dir: rootDir + "/" + DialectSQLite, FS: sqliteFS},
	}
	for _, set := range sets {
		ups, globErr := fs.Glob(set.FS, "*.up.sql")
		if globErr != nil {
			return nil, fmt.Errorf("migrations: glob %s: %w", set.Dir, globErr)
		}
		if len(ups) == 0 {
			return nil, fmt.Errorf("migrations: %s has no *.up.sql files", set.Dir)
		}
	}
	return sets, nil
}

// SetFor returns the embedded migration set of dialect.
func SetFor(dialect string) (Set, error) {
	dialect = normalizeDialect(dialect)
	sets, err := Sets(nil)
	if err != nil {
		return Set{}, err
	}
	for _, set := range sets {
		if set.Dialect == dialect {
			return set, nil
		}
	}
	return Set{}, fmt.Errorf("migrations: unsupported dialect %q", dialect)
}

// Register hands the embedded sets to fn. With no dialects every set is
// registered.
func Register(ctx context.Context, fn RegisterFunc, dialects ...string) error {
	if fn == nil {
		return fmt.Errorf("migrations: register function is required")
	}
	sets, err := Sets(nil)
	if err != nil {
		return err
	}
	wanted := map[string]bool{}
	for _, dialect := range dialects {
		if normalized := normalizeDialect(dialect); normalized != "" {
			wanted[normalized] = true
		}
	}
	for _, set := range sets {
		if len(wanted) > 0 && !wanted[set.Dialect] {
			continue
		}
		if err := fn(ctx, SourceLabel, set); err != nil {
			return fmt.Errorf("migrations: register %s: %w", set.Dialect, err)
		}
	}
	return nil
}

// Apply registers the migrations of dialect on client and runs them.
func Apply(ctx context.Context, client *persistence.Client, dialect string) error {
	if client == nil {
		return fmt.Errorf("migrations: persistence client is required")
	}
	set, err := SetFor(dialect)
	if err != nil {
		return err
	}
	client.RegisterSQLMigrations(set.FS)
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("migrations: migrate %s: %w", set.Dialect, err)
	}
	return nil
}

func normalizeDialect(dialect string) string {
	dialect = strings.TrimSpace(strings.ToLower(dialect))
	if dialect == "sqlite3" {
		return DialectSQLite
	}
	return dialect
}
