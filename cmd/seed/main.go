// Command seed loads a YAML rule catalog into the database, replacing
// existing rules with the same ID.
//
//	seed -database postgres://... -catalog catalog/seed/catalog.yaml
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/claimgate/compliance/catalog"
	"github.com/claimgate/compliance/rules"
)

func main() {
	var databaseURL, catalogPath string
	flag.StringVar(&databaseURL, "database", "", "database URL (or DATABASE_URL env)")
	flag.StringVar(&catalogPath, "catalog", "catalog/seed/catalog.yaml", "path to catalog YAML file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		log.Fatal("database URL is required: use -database or DATABASE_URL")
	}

	loaded, err := catalog.Load(catalogPath)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	store := rules.NewPostgresRuleStore(db)
	ctx := context.Background()

	created, updated := 0, 0
	for _, rule := range loaded {
		err := store.Add(ctx, rule)
		if err == nil {
			created++
			continue
		}
		// Existing rule: replace it so re-seeding is idempotent.
		if updateErr := store.Update(ctx, rule); updateErr != nil {
			if errors.Is(updateErr, rules.ErrNotFound) {
				log.Fatalf("seed rule %s: %v", rule.ID, err)
			}
			log.Fatalf("update rule %s: %v", rule.ID, updateErr)
		}
		updated++
	}

	log.Printf("seeded %d rules (%d created, %d updated)", len(loaded), created, updated)
}
