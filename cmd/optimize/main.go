package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/andresuchdata/replenish/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/replenish/backend-go/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

type contextKey string

const dbKey contextKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newTenantFlag() *cli.Int64Flag {
	return &cli.Int64Flag{
		Name:     "tenant",
		Usage:    "Tenant the data belongs to",
		Required: true,
		EnvVars:  []string{"TENANT_ID"},
	}
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, postgres.Wrap(db, "pgx"))
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) (*postgres.DB, error) {
	db, ok := c.Context.Value(dbKey).(*postgres.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database connection not initialised")
	}
	return db, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	app := &cli.App{
		Name:  "optimize",
		Usage: "Run inventory and distribution optimisations from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			inventoryCommand(),
			demandCommand(),
			routingCommand(),
			{
				Name:   "batch",
				Usage:  "Optimise many SKUs of a tenant against the database and ERP",
				Flags:  batchFlags(),
				Before: initDB,
				After:  closeDB,
				Action: runBatch,
			},
			{
				Name:  "seed",
				Usage: "Load locations, routes and vehicles CSV files for a tenant",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newTenantFlag(),
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory containing locations.csv, routes.csv and vehicles.csv",
						Value:   "./data/seeds/network",
						EnvVars: []string{"SEED_DATA_DIR"},
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runSeed,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("optimize failed")
	}
}
