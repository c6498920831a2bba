// Command migrate applies the schema migrations for the rule catalog
// database.
//
//	migrate -database postgres://... [-path migrations] up|down|version|force <v>
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var databaseURL, migrationsPath string
	flag.StringVar(&databaseURL, "database", "", "database URL (or DATABASE_URL env)")
	flag.StringVar(&migrationsPath, "path", "migrations", "path to migrations directory")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		log.Fatal("database URL is required: use -database or DATABASE_URL")
	}

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	if err := run(databaseURL, migrationsPath, command, flag.Arg(1)); err != nil {
		log.Fatal(err)
	}
}

func run(databaseURL, migrationsPath, command, arg string) error {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	switch command {
	case "up":
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("database is up to date")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		log.Println("migrations applied")

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		log.Println("migrations rolled back")

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		log.Printf("version %d (dirty: %v)", version, dirty)

	case "force":
		version, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("force requires a version number: %w", err)
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		log.Printf("forced version to %d", version)

	default:
		return fmt.Errorf("unknown command %q (use: up, down, version, force)", command)
	}
	return nil
}
