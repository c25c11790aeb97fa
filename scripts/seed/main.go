// Seed adds sample todos to the postgres store. Run from project root: go run ./scripts/seed [-n 10000]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"todo-api/internal/config"
	"todo-api/internal/database"
	"todo-api/internal/models"
	"todo-api/internal/repository"
)

func main() {
	total := flag.Int("n", 10_000, "number of todos to insert")
	everyDone := flag.Int("done-every", 3, "toggle every Nth todo to completed (0 disables)")
	flag.Parse()

	config.LoadDotEnv(".env")

	ctx := context.Background()
	db := database.DB(ctx)
	if db == nil {
		fmt.Fprintln(os.Stderr, "DATABASE_URL not set or DB connection failed")
		os.Exit(1)
	}
	if err := database.MigrateOrCreateSchema(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Schema failed:", err)
		os.Exit(1)
	}

	store := repository.NewPostgresStore(db)
	start := time.Now()
	for i := 1; i <= *total; i++ {
		desc := fmt.Sprintf("Description for todo %d", i)
		t, err := store.Create(ctx, models.TodoCreate{Title: fmt.Sprintf("Todo %d", i), Description: &desc})
		if err != nil {
			fmt.Fprintln(os.Stderr, "\nInsert failed:", err)
			os.Exit(1)
		}
		if *everyDone > 0 && i%*everyDone == 0 {
			if _, err := store.Toggle(ctx, t.ID); err != nil {
				fmt.Fprintln(os.Stderr, "\nToggle failed:", err)
				os.Exit(1)
			}
		}
		if i%500 == 0 || i == *total {
			fmt.Printf("\rInserted %d / %d", i, *total)
		}
	}

	fmt.Printf("\nDone: %d todos in %v\n", *total, time.Since(start))
}
