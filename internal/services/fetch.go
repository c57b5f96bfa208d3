package services

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"moviesync/internal/batch"
	"moviesync/internal/engine"
	"moviesync/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	filenamePrefix = "movie_ids_"
	filenameSuffix = ".json.gz"
	dateFormat     = "2006-01-02"
)

// The export files roll over on the provider's clock.
var exportTZ = time.FixedZone("EST", -5*60*60)

// MovieData ingests the daily movie list exports: one export file per target
// date, filtered by popularity, written in batches.
type MovieData struct {
	client      *TMDBClient
	log         *logrus.Logger
	batchSize   int
	downloadDir string
	filenames   iter.Seq[string]
}

// NewMovieData validates the date selection and prepares the target filename
// sequence. Exactly one of backfilledDays and fileDate must be supplied:
// backfilledDays N covers today and the N previous days, fileDate names a
// single date in YYYY-MM-DD form.
func NewMovieData(client *TMDBClient, log *logrus.Logger, batchSize int, downloadDir, backfilledDays, fileDate string) (*MovieData, error) {
	m := &MovieData{
		client:      client,
		log:         log,
		batchSize:   batchSize,
		downloadDir: downloadDir,
	}

	if backfilledDays == "" {
		if fileDate == "" {
			return nil, fmt.Errorf("you must supply either backfilled_days or a file_date")
		}
		date, err := time.Parse(dateFormat, fileDate)
		if err != nil {
			return nil, fmt.Errorf("file_date must be in YYYY-MM-DD form, got %q", fileDate)
		}
		filename := ExportFilename(date.Day(), int(date.Month()), date.Year())
		m.filenames = func(yield func(string) bool) {
			yield(filename)
		}
		return m, nil
	}

	days, err := parseBackfilledDays(backfilledDays)
	if err != nil {
		return nil, err
	}
	m.filenames = backfillFilenames(time.Now().In(exportTZ), days)
	return m, nil
}

func parseBackfilledDays(value string) (int, error) {
	days, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("backfilled_days must be an integer >= 0, got %q", value)
	}
	if days < 0 {
		return 0, fmt.Errorf("backfilled_days must be >= 0, got %d", days)
	}
	return days, nil
}

// backfillFilenames yields the export filename for today and each of the
// previous days, newest first. The sequence restarts on every range.
func backfillFilenames(today time.Time, days int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for day := 0; day <= days; day++ {
			prior := today.AddDate(0, 0, -day)
			if !yield(ExportFilename(prior.Day(), int(prior.Month()), prior.Year())) {
				return
			}
		}
	}
}

// ExportFilename derives the remote export file name for a calendar date,
// e.g. day=5, month=3, year=2020 -> movie_ids_03_05_2020.json.gz.
func ExportFilename(day, month, year int) string {
	return fmt.Sprintf("%s%02d_%02d_%04d%s", filenamePrefix, month, day, year, filenameSuffix)
}

// dateFromFilename recovers the ingest date, YYYY-MM-DD, from an export
// filename.
func dateFromFilename(filename string) (string, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(filename, filenamePrefix), filenameSuffix)
	parts := strings.Split(trimmed, "_")
	if len(parts) != 3 {
		return "", fmt.Errorf("unexpected export filename %q", filename)
	}
	return fmt.Sprintf("%s-%s-%s", parts[2], parts[0], parts[1]), nil
}

// Fetch downloads, parses, filters and persists the movie list for every
// target date, removing each local file afterwards. A filterPop of 0 disables
// the popularity filter.
func (m *MovieData) Fetch(ctx context.Context, eng engine.Engine, filterPop float64) error {
	m.log.Info("Making request to TMDB for daily movie list export")
	for filename := range m.filenames {
		m.log.WithField("file", filename).Info("Retrieving movie file")

		if err := m.client.DownloadExport(ctx, filename, m.downloadDir); err != nil {
			if _, ok := asStatusError(err); !ok {
				return err
			}
			// The server refused this date's file; there is simply no list
			// for it.
		}

		movies, err := m.openMovieFile(filename)
		if err != nil {
			return err
		}
		if filterPop > 0 {
			movies = filterPopularity(movies, filterPop)
		}
		if err := m.writeData(ctx, eng, movies); err != nil {
			return err
		}
		m.removeFile(filename)
	}
	return nil
}

// openMovieFile reads the downloaded export and parses every line. A missing
// file yields an empty list.
func (m *MovieData) openMovieFile(filename string) ([]models.MovieListRecord, error) {
	path := filepath.Join(m.downloadDir, filename)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	defer gz.Close()

	ingestDate, err := dateFromFilename(filename)
	if err != nil {
		return nil, err
	}

	var movies []models.MovieListRecord
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		record, err := parseMovieLine(line, ingestDate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse line of %s: %w", filename, err)
		}
		movies = append(movies, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	m.log.WithField("count", len(movies)).Info("Data found for movies!")
	return movies, nil
}

func parseMovieLine(line []byte, ingestDate string) (models.MovieListRecord, error) {
	var data models.ExportLine
	if err := json.Unmarshal(line, &data); err != nil {
		return models.MovieListRecord{}, err
	}
	return models.MovieListRecord{
		MovieID:    data.ID.String(),
		MovieTitle: strings.TrimSpace(data.OriginalTitle),
		Popularity: data.Popularity,
		IngestDate: ingestDate,
		Adult:      data.Adult,
		Video:      data.Video,
	}, nil
}

// filterPopularity keeps the records at or above the threshold, in order.
func filterPopularity(movies []models.MovieListRecord, pop float64) []models.MovieListRecord {
	filtered := make([]models.MovieListRecord, 0, len(movies))
	for _, movie := range movies {
		if movie.Popularity >= pop {
			filtered = append(filtered, movie)
		}
	}
	return filtered
}

func (m *MovieData) writeData(ctx context.Context, eng engine.Engine, movies []models.MovieListRecord) error {
	m.log.WithField("count", len(movies)).Info("Saving movie records with the data engine")
	if len(movies) == 0 {
		return nil
	}
	for rows := range batch.All(movies, m.batchSize) {
		batchRows := make([]map[string]any, len(rows))
		for i, movie := range rows {
			batchRows[i] = movie.Row()
		}
		res, err := eng.Save(ctx, engine.MovieListSchema, batchRows)
		if err != nil {
			return fmt.Errorf("failed to save movie list batch: %w", err)
		}
		m.log.WithField("written", res.Rows).Debug("Saved movie list batch")
	}
	return nil
}

// removeFile drops the processed download. Failing to remove it never fails
// the run.
func (m *MovieData) removeFile(filename string) {
	path := filepath.Join(m.downloadDir, filename)
	if err := os.Remove(path); err != nil {
		m.log.WithField("file", path).Debug("Unable to remove file")
	}
}
