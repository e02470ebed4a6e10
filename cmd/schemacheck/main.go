// cmd/schemacheck checks stored records against the entity schema.
//
// Phase 1 loads the schema (embedded, or -schema for an operator file) and
// fails on any definition error. Phase 2 runs data validation over every
// collection in the SQLite database and prints each finding. The exit code
// is 1 when errors are found; warnings alone pass.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/mfperdi/parishliturgyplanner/internal/automation"
	"github.com/mfperdi/parishliturgyplanner/internal/config"
	"github.com/mfperdi/parishliturgyplanner/internal/logging"
	"github.com/mfperdi/parishliturgyplanner/internal/record"
	"github.com/mfperdi/parishliturgyplanner/internal/schema"
)

func main() {
	schemaPath := flag.String("schema", "", "CUE entity definitions (default: embedded)")
	dsn := flag.String("db", "", "SQLite database (default: DATABASE_URL or the built-in default)")
	flag.Parse()

	log := logging.New(os.Stderr, "warn", true)
	cfg := config.Default()
	if err := config.ApplyEnvOverrides(&cfg, os.Getenv); err != nil {
		log.Fatal().Err(err).Msg("schemacheck: environment")
	}
	if *dsn != "" {
		cfg.Database.URL = *dsn
	}

	fmt.Println("Phase 1: Loading entity schema...")
	var (
		reg *schema.Registry
		err error
	)
	if *schemaPath != "" {
		reg, err = schema.LoadFile(*schemaPath)
	} else {
		reg, err = schema.Default()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("schemacheck: schema is invalid")
	}
	fmt.Printf("  %d entities load.\n", len(reg.EntityIDs()))

	fmt.Println("Phase 2: Validating stored records...")
	db, err := sql.Open("sqlite", cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("schemacheck: opening database")
	}
	defer db.Close()

	ctx := context.Background()
	store := record.NewSQLStore(db)
	if err := store.CreateTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("schemacheck: records table")
	}
	report, err := automation.NewLocal(store, reg, log).ValidateData(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("schemacheck: validation")
	}

	for _, e := range report.Errors {
		fmt.Println("  ERROR:", e)
	}
	for _, w := range report.Warnings {
		fmt.Println("  WARNING:", w)
	}
	fmt.Printf("\nschemacheck: %s\n", report.Summary())
	if len(report.Errors) > 0 {
		os.Exit(1)
	}
}
