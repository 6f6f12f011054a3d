package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/pageza/nutrichef/backend/config"
	"github.com/pageza/nutrichef/backend/internal/database"
	"github.com/pageza/nutrichef/backend/internal/logging"
	"github.com/pageza/nutrichef/backend/internal/repository"
	"github.com/pageza/nutrichef/backend/internal/service"
)

func main() {
	path := flag.String("file", "data/catalog.json", "Catalog seed file")
	demoEmail := flag.String("demo-user", "", "Create this user and print an access token for it")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(db, cfg.Database.MigrationsDir, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	file, err := os.Open(*path)
	if err != nil {
		logger.Fatal("failed to open catalog file", zap.String("path", *path), zap.Error(err))
	}
	defer file.Close()

	catalog, err := repository.ReadCatalogFile(file)
	if err != nil {
		logger.Fatal("invalid catalog file", zap.Error(err))
	}

	ctx := context.Background()
	stats, err := repository.ImportCatalog(ctx, db, catalog)
	if err != nil {
		logger.Fatal("failed to seed catalog", zap.Error(err))
	}
	logger.Info("catalog seeded",
		zap.Int("categories", stats.Categories),
		zap.Int("ingredients", stats.Ingredients),
		zap.Int("recipes", stats.Recipes),
		zap.Int("recipes_skipped", stats.Skipped))

	if *demoEmail == "" {
		return
	}
	user, err := repository.NewUserRepository(db).FindOrCreateUser(ctx, "Demo Cook", *demoEmail)
	if err != nil {
		logger.Fatal("failed to create demo user", zap.Error(err))
	}
	token, err := service.NewTokenService(cfg.JWT).GenerateToken(user.ID)
	if err != nil {
		logger.Fatal("failed to sign token", zap.Error(err))
	}
	fmt.Println(token)
}
