package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/seedslabs/gratibot-backend/pkg/config"
	"github.com/seedslabs/gratibot-backend/pkg/db"
	"github.com/seedslabs/gratibot-backend/pkg/logger"
	"github.com/seedslabs/gratibot-backend/pkg/migrate"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	results, err := migrate.NewEngine(dbClient, logg).Run(ctx)
	requireResource(ctx, logg, "schema upkeep", err)

	for _, res := range results {
		if res.Skipped {
			fmt.Printf("step %d %q: skipped (already recorded)\n", res.Ordinal, res.Step)
			continue
		}
		fmt.Printf("step %d %q: applied\n", res.Ordinal, res.Step)
		for _, op := range res.Ops {
			if op.Err != nil {
				fmt.Printf("  op %q: %v\n", op.Name, op.Err)
			} else {
				fmt.Printf("  op %q: ok\n", op.Name)
			}
		}
		if res.MarkerErr != nil {
			fmt.Printf("  marker: %v\n", res.MarkerErr)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "resource", name), "bootstrap failed", err)
	os.Exit(1)
}
