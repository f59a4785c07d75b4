package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/pilartoda/trikeride/internal/adapters/postgres"
	"github.com/pilartoda/trikeride/internal/pkg/config"
	"github.com/pilartoda/trikeride/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|list>")
	}

	files, err := migrations.Files()
	if err != nil {
		log.Fatalf("migrations: %v", err)
	}

	switch os.Args[1] {
	case "list":
		for _, f := range files {
			fmt.Println(f)
		}
		return
	case "up":
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}

	cfg, err := config.Load("trikeride-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 2)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	runMigrations(ctx, db, files)
}

// runMigrations applies every file in order. The SQL is idempotent so
// re-running up is safe.
func runMigrations(ctx context.Context, db *postgres.DB, files []string) {
	for _, f := range files {
		data, err := migrations.Read(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}

	log.Println("all migrations applied")
}
