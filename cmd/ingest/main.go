package main

import (
	"context"

	"moviesync/internal/cache"
	"moviesync/internal/config"
	"moviesync/internal/database"
	"moviesync/internal/engine"
	"moviesync/internal/logger"
	"moviesync/internal/services"

	"github.com/joho/godotenv"
)

func main() {
	logger.Init()
	log := logger.Get()

	if err := godotenv.Load(".env.local"); err != nil {
		log.Info("No .env file found, using system environment variables")
	}

	settings, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if settings.APIKey == "" {
		log.Fatal("Please save a movie database api key in your environment (MOVIE_DB)")
	}

	ctx := context.Background()

	database.MustInit(ctx)
	defer database.Close()

	if err := cache.Init(ctx); err != nil {
		log.WithError(err).Warn("Continuing without Redis cache")
	}
	defer cache.Close()

	eng := engine.NewPostgres(database.Get(), log)
	client := services.NewTMDBClient(&services.TMDBConfig{
		APIKey:       settings.APIKey,
		Retry:        settings.Retry,
		RequestDelay: settings.DetailRequestDelay,
		Logger:       log,
		Redis:        cache.Get(),
	})

	// Daily list ingest, then enrichment; both sequential by design to stay
	// under the remote service's rate limits.
	movieData, err := services.NewMovieData(client, log, settings.BatchSize,
		settings.DownloadDir, settings.BackfilledDays, settings.FileDate)
	if err != nil {
		log.WithError(err).Fatal("Invalid movie list configuration")
	}
	if err := movieData.Fetch(ctx, eng, settings.Popularity); err != nil {
		log.WithError(err).Fatal("Daily movie list ingest failed")
	}

	movieInfo := services.NewMovieInfo(client, log, settings.BatchSize, settings.DetailFailureDelay)
	if err := movieInfo.Fetch(ctx, eng); err != nil {
		log.WithError(err).Fatal("Movie info enrichment failed")
	}

	log.Info("Ingest run complete")
}
