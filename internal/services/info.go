package services

import (
	"context"
	"fmt"
	"time"

	"moviesync/internal/batch"
	"moviesync/internal/engine"
	"moviesync/internal/models"

	"github.com/sirupsen/logrus"
)

// MovieInfo backfills detail records for movies that appear in the list table
// but not yet in the info table. Enrichment is write-once: a movie already in
// the info table is never fetched again.
type MovieInfo struct {
	client       *TMDBClient
	log          *logrus.Logger
	batchSize    int
	failureDelay time.Duration
}

func NewMovieInfo(client *TMDBClient, log *logrus.Logger, batchSize int, failureDelay time.Duration) *MovieInfo {
	return &MovieInfo{
		client:       client,
		log:          log,
		batchSize:    batchSize,
		failureDelay: failureDelay,
	}
}

// Fetch finds the movies missing detail records, fetches each sequentially,
// and persists the normalized records in batches. A movie whose fetch fails
// is skipped, never fatal.
func (m *MovieInfo) Fetch(ctx context.Context, eng engine.Engine) error {
	candidates, err := m.movieList(ctx, eng)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		m.log.Info("No new movies to go get data for.")
		return nil
	}

	m.log.WithField("count", len(candidates)).Info("Making requests to TMDB for movie info")
	info := make([]models.MovieDetailRecord, 0, len(candidates))
	for _, movieID := range candidates {
		detail, err := m.client.MovieDetail(ctx, movieID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.log.WithFields(logrus.Fields{
				"movie_id": movieID,
				"error":    err.Error(),
			}).Debug("No movie info obtained, skipping")
			// Back off harder after a failure to avoid getting banned.
			time.Sleep(m.failureDelay)
			continue
		}
		info = append(info, normalizeRecord(buildRecord(movieID, detail)))
	}

	return m.writeData(ctx, eng, info)
}

// movieList registers the schemas and views, then computes the set of list
// movie ids without an info row. Order follows the list query; semantically
// the result is a set.
func (m *MovieInfo) movieList(ctx context.Context, eng engine.Engine) ([]string, error) {
	m.log.Info("Setting up view and querying movie list")

	// Zero-row save registers the info table before it is queried.
	if _, err := eng.Save(ctx, engine.MovieInfoSchema, nil); err != nil {
		return nil, fmt.Errorf("failed to register movie info schema: %w", err)
	}
	if err := eng.CreateView(ctx, "list", engine.Source{Table: engine.MovieListSchema.Table}); err != nil {
		return nil, err
	}
	if err := eng.CreateView(ctx, "info", engine.Source{Table: engine.MovieInfoSchema.Table}); err != nil {
		return nil, err
	}

	infoResult, err := eng.Query(ctx, "SELECT DISTINCT movie_id FROM info")
	if err != nil {
		return nil, fmt.Errorf("failed to query info view: %w", err)
	}
	enriched := make(map[string]struct{}, len(infoResult.Data))
	for _, row := range infoResult.Data {
		enriched[rowMovieID(row)] = struct{}{}
	}

	listResult, err := eng.Query(ctx, "SELECT DISTINCT movie_id FROM list")
	if err != nil {
		return nil, fmt.Errorf("failed to query list view: %w", err)
	}

	var candidates []string
	seen := make(map[string]struct{}, len(listResult.Data))
	for _, row := range listResult.Data {
		id := rowMovieID(row)
		if id == "" {
			continue
		}
		if _, ok := enriched[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		candidates = append(candidates, id)
	}

	m.log.WithField("count", len(candidates)).Info("Found movies that haven't been ingested")
	return candidates, nil
}

func rowMovieID(row map[string]any) string {
	id, _ := row["movie_id"].(string)
	return id
}

// buildRecord maps the detail endpoint response onto a store record. Genre
// ids become a set of strings.
func buildRecord(movieID string, detail *models.MovieDetailResponse) models.MovieDetailRecord {
	var genres []string
	for _, genre := range detail.Genres {
		genres = append(genres, genre.ID.String())
	}
	return models.MovieDetailRecord{
		MovieID:     movieID,
		ImdbID:      detail.ImdbID,
		MovieTitle:  detail.OriginalTitle,
		ReleaseDate: detail.ReleaseDate,
		Language:    detail.OriginalLanguage,
		Length:      detail.Runtime,
		PosterPath:  detail.PosterPath,
		Adult:       detail.Adult,
		GenresID:    genres,
		Description: detail.Overview,
	}
}

// normalizeRecord coerces empty strings to null and drops a release date that
// is not a real YYYY-MM-DD date, keeping the rest of the record.
func normalizeRecord(record models.MovieDetailRecord) models.MovieDetailRecord {
	record.ImdbID = emptyToNil(record.ImdbID)
	record.MovieTitle = emptyToNil(record.MovieTitle)
	record.Language = emptyToNil(record.Language)
	record.PosterPath = emptyToNil(record.PosterPath)
	record.Description = emptyToNil(record.Description)
	if record.ReleaseDate != nil {
		if _, err := time.Parse(dateFormat, *record.ReleaseDate); err != nil {
			record.ReleaseDate = nil
		}
	}
	return record
}

func emptyToNil(value *string) *string {
	if value != nil && *value == "" {
		return nil
	}
	return value
}

func (m *MovieInfo) writeData(ctx context.Context, eng engine.Engine, info []models.MovieDetailRecord) error {
	if len(info) == 0 {
		m.log.Info("No data to write to the store. Try again when votes have been recorded")
		return nil
	}
	m.log.WithField("count", len(info)).Info("Saving new movie info records to the data engine")
	for rows := range batch.All(info, m.batchSize) {
		batchRows := make([]map[string]any, len(rows))
		for i, record := range rows {
			batchRows[i] = record.Row()
		}
		res, err := eng.Save(ctx, engine.MovieInfoSchema, batchRows)
		if err != nil {
			return fmt.Errorf("failed to save movie info batch: %w", err)
		}
		m.log.WithField("written", res.Rows).Debug("Saved movie info batch")
	}
	return nil
}
