package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	Checksum  string
	AppliedAt time.Time
}

var (
	dsn           = flag.String("dsn", os.Getenv("CLOUDSPEND_DB_DSN"), "PostgreSQL DSN (or set CLOUDSPEND_DB_DSN env)")
	migrationsDir = flag.String("migrations", "migrations/postgres", "Path to migrations directory")
	statusOnly    = flag.Bool("status", false, "Print migration status without applying anything")
	seedAdmin     = flag.Bool("seed-admin", false, "Create the initial admin user after migrating")
	adminUser     = flag.String("admin-user", "admin", "Username for the seeded admin")
	adminPassword = flag.String("admin-password", os.Getenv("CLOUDSPEND_ADMIN_PASSWORD"), "Password for the seeded admin (or set CLOUDSPEND_ADMIN_PASSWORD env)")
)

// migrationPattern matches migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

func main() {
	flag.Parse()

	if *dsn == "" {
		log.Fatal("Error: -dsn flag is required. Please specify the PostgreSQL DSN.")
	}

	ctx := context.Background()

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to reach database: %v", err)
	}

	log.Println("Connected to PostgreSQL")

	// Ensure schema_migrations table exists
	if err := ensureSchemaMigrationsTable(ctx, db); err != nil {
		log.Fatalf("Failed to ensure schema_migrations table: %v", err)
	}

	// Read migration files
	dir, err := resolveMigrationsDir(*migrationsDir)
	if err != nil {
		log.Fatalf("Failed to locate migrations: %v", err)
	}
	migrations, err := readMigrations(dir)
	if err != nil {
		log.Fatalf("Failed to read migrations: %v", err)
	}

	log.Printf("Found %d migration files", len(migrations))

	// Get applied migrations
	applied, err := getAppliedMigrations(ctx, db)
	if err != nil {
		log.Fatalf("Failed to get applied migrations: %v", err)
	}

	log.Printf("Found %d already applied migrations", len(applied))

	// A file that changed after being applied is a bug somewhere; refuse to
	// continue until it is resolved.
	if err := verifyChecksums(migrations, applied); err != nil {
		log.Fatalf("Checksum verification failed: %v", err)
	}

	if *statusOnly {
		printStatus(migrations, applied)
		return
	}

	// Apply pending migrations
	appliedCount := 0
	for _, migration := range migrations {
		if _, ok := applied[migration.Version]; ok {
			log.Printf("  [SKIP] %04d_%s (already applied)", migration.Version, migration.Name)
			continue
		}

		log.Printf("  [RUN]  %04d_%s", migration.Version, migration.Name)

		if err := applyMigration(ctx, db, migration); err != nil {
			log.Fatalf("Failed to apply migration %04d_%s: %v", migration.Version, migration.Name, err)
		}

		log.Printf("  [OK]   %04d_%s", migration.Version, migration.Name)
		appliedCount++
	}

	if appliedCount == 0 {
		log.Println("No new migrations to apply. Database is up to date.")
	} else {
		log.Printf("Successfully applied %d migration(s)", appliedCount)
	}

	if *seedAdmin {
		if err := seedAdminUser(ctx, db, *adminUser, *adminPassword); err != nil {
			log.Fatalf("Failed to seed admin user: %v", err)
		}
	}
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist
func ensureSchemaMigrationsTable(ctx context.Context, db *sql.DB) error {
	const query = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			checksum   TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}
	return nil
}

// resolveMigrationsDir finds the migrations directory, trying the repo root
// in case the tool runs from cmd/migrate.
func resolveMigrationsDir(dir string) (string, error) {
	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	}
	fallback := filepath.Join("..", "..", dir)
	if _, err := os.Stat(fallback); err == nil {
		return fallback, nil
	}
	return "", fmt.Errorf("migrations directory not found: %s", dir)
}

// readMigrations reads all migration files from the migrations directory
func readMigrations(dir string) ([]Migration, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		matches := migrationPattern.FindStringSubmatch(file.Name())
		if matches == nil {
			log.Printf("Skipping file with invalid format: %s", file.Name())
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			log.Printf("Skipping file with invalid version: %s", file.Name())
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: file.Name(),
			SQL:      string(content),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	// Sort by version
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// getAppliedMigrations retrieves the already applied migrations keyed by
// version.
func getAppliedMigrations(ctx context.Context, db *sql.DB) (map[int]AppliedMigration, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT version, name, checksum, applied_at
		FROM schema_migrations
		ORDER BY version ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]AppliedMigration)
	for rows.Next() {
		var am AppliedMigration
		if err := rows.Scan(&am.Version, &am.Name, &am.Checksum, &am.AppliedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		applied[am.Version] = am
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return applied, nil
}

// verifyChecksums compares on-disk files against what schema_migrations
// recorded when they were applied.
func verifyChecksums(migrations []Migration, applied map[int]AppliedMigration) error {
	for _, migration := range migrations {
		am, ok := applied[migration.Version]
		if !ok {
			continue
		}
		if am.Checksum != migration.Checksum {
			return fmt.Errorf("migration %04d_%s changed after being applied (recorded %.8s..., file %.8s...)",
				migration.Version, migration.Name, am.Checksum, migration.Checksum)
		}
	}
	return nil
}

// applyMigration runs one migration and records it, both inside a single
// transaction so a failed migration leaves no trace.
func applyMigration(ctx context.Context, db *sql.DB, migration Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, checksum) VALUES ($1, $2, $3)`,
		migration.Version, migration.Name, migration.Checksum,
	)
	if err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// printStatus lists every migration with its applied timestamp, if any.
func printStatus(migrations []Migration, applied map[int]AppliedMigration) {
	for _, migration := range migrations {
		if am, ok := applied[migration.Version]; ok {
			log.Printf("  [applied %s] %04d_%s", am.AppliedAt.UTC().Format("2006-01-02 15:04:05"), migration.Version, migration.Name)
		} else {
			log.Printf("  [pending]             %04d_%s", migration.Version, migration.Name)
		}
	}
}

// seedAdminUser creates the initial admin account. An existing username is
// left untouched.
func seedAdminUser(ctx context.Context, db *sql.DB, username, password string) error {
	if password == "" {
		return fmt.Errorf("admin password is required (set -admin-password or CLOUDSPEND_ADMIN_PASSWORD)")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role)
		VALUES ($1, $2, $3, 'admin')
		ON CONFLICT (username) DO NOTHING
	`, uuid.New().String(), username, string(hash))
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking result: %w", err)
	}
	if rows == 0 {
		log.Printf("Admin user %q already exists, leaving it untouched", username)
	} else {
		log.Printf("Created admin user %q", username)
	}
	return nil
}
