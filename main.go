// main.go
package main

import (
	"context"
	"log"
	"time"

	"movie-reviews/cmd"
	"movie-reviews/internal/data/repository"
	"movie-reviews/internal/wire"
	"movie-reviews/pkg/broker"
	"movie-reviews/pkg/database"
	"movie-reviews/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.String("driver", config.Database.Driver),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	repos, health, closeDB := openRepository(config, logger)
	defer closeDB()

	logger.Info("Database connected successfully")

	// Event publisher
	var publisher broker.Publisher = broker.NopPublisher{}
	if config.Broker.URL != "" {
		publisher = broker.NewRabbitPublisher(config.Broker, logger)
		logger.Info("Review events enabled", zap.String("exchange", config.Broker.Exchange))
	}
	defer publisher.Close()

	// Wire all dependencies
	app := wire.Wiring(repos, publisher, health, config, logger)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	if err := cmd.APIServer(app.Router, config.App.Port, config.HTTP, logger); err != nil {
		logger.Error("Server stopped", zap.Error(err))
		return
	}
	logger.Info("Server stopped")
}

func openRepository(config *utils.Config, logger *zap.Logger) (*repository.Repository, wire.HealthCheck, func()) {
	switch config.Database.Driver {
	case utils.DriverMongo:
		mongo, err := database.InitMongo(config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repository.EnsureMongoIndexes(ctx, mongo.DB); err != nil {
			logger.Warn("Failed to ensure indexes", zap.Error(err))
		}

		return repository.NewMongoRepository(mongo.DB, config.Review, logger), mongo.Ping, mongo.Close

	case utils.DriverPostgres:
		if config.Database.Migrate {
			if err := database.Migrate(config.Database, logger); err != nil {
				logger.Fatal("Failed to migrate database", zap.Error(err))
			}
		}

		db, err := database.InitPostgres(config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}

		return repository.NewPostgresRepository(db, config.Review, logger), db.Ping, db.Close

	case utils.DriverMemory:
		logger.Warn("Using in-memory store, data is lost on restart")
		store := repository.NewMemoryStore()
		return repository.NewMemoryRepository(store, config.Review, logger), nil, func() {}

	default:
		logger.Fatal("Unknown database driver", zap.String("driver", config.Database.Driver))
		return nil, nil, nil
	}
}
