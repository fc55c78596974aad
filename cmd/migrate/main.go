package main

import (
	"flag"
	"os"

	pgstore "github.com/pendulum-chain/vortex-sub005/internal/store/postgres"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/config"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

func main() {
	dir := flag.String("dir", pgstore.DefaultMigrationDir, "migration directory")
	flag.Parse()

	appConfig := config.New()
	logger := logger.New(appConfig.Environment)

	db := pgstore.New(appConfig, logger)

	if err := pgstore.Migrate(db, *dir); err != nil {
		logger.Error("[main][Migrate] failed to run migrations", map[string]string{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	logger.Info("Migrations completed successfully")
}
