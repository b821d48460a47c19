package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Applies migrations/*.sql in filename order, recording each in
// schema_migrations so reruns are no-ops.
func main() {
	var dirFlag string
	flag.StringVar(&dirFlag, "dir", "migrations", "directory containing .sql migration files")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(fmt.Errorf("DATABASE_URL is required"))
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("open database: %w", err))
	}
	defer db.Close()
	db.SetConnMaxLifetime(time.Minute)

	if _, err := db.Exec(`create table if not exists schema_migrations (
		version text primary key,
		applied_at timestamptz not null default now()
	)`); err != nil {
		exitWithError(fmt.Errorf("ensure schema_migrations: %w", err))
	}

	files, err := filepath.Glob(filepath.Join(dirFlag, "*.sql"))
	if err != nil {
		exitWithError(fmt.Errorf("list migrations: %w", err))
	}
	if len(files) == 0 {
		exitWithError(fmt.Errorf("no migrations found in %s", dirFlag))
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		version := filepath.Base(file)

		var exists bool
		if err := db.QueryRow(`select exists(select 1 from schema_migrations where version = $1)`, version).Scan(&exists); err != nil {
			exitWithError(fmt.Errorf("check %s: %w", version, err))
		}
		if exists {
			continue
		}

		raw, err := os.ReadFile(file)
		if err != nil {
			exitWithError(fmt.Errorf("read %s: %w", version, err))
		}

		tx, err := db.Begin()
		if err != nil {
			exitWithError(fmt.Errorf("begin %s: %w", version, err))
		}
		if _, err := tx.Exec(string(raw)); err != nil {
			_ = tx.Rollback()
			exitWithError(fmt.Errorf("apply %s: %w", version, err))
		}
		if _, err := tx.Exec(`insert into schema_migrations (version) values ($1)`, version); err != nil {
			_ = tx.Rollback()
			exitWithError(fmt.Errorf("record %s: %w", version, err))
		}
		if err := tx.Commit(); err != nil {
			exitWithError(fmt.Errorf("commit %s: %w", version, err))
		}

		fmt.Printf("applied %s\n", version)
		applied++
	}

	if applied == 0 {
		fmt.Println("database up to date")
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
