package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"moviesync/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	exportBaseURL     = "http://files.tmdb.org/p/exports"
	detailBaseURL     = "https://api.themoviedb.org/3/movie"
	defaultTimeout    = 30 * time.Second
	detailLanguage    = "en-US"
	detailCachePrefix = "movie:details:"
	detailCacheTTL    = 24 * time.Hour
)

// StatusError is a 4xx/5xx response from the movie database. It is never
// retried; the unit of work it belongs to simply has no data.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s returned status code %d", e.URL, e.Code)
}

// TMDBClient performs the outbound requests both pipelines need: the daily
// export file download and the per-movie detail fetch.
type TMDBClient struct {
	apiKey     string
	exportURL  string
	detailURL  string
	retry      int
	httpClient *http.Client
	logger     *logrus.Logger
	redis      *redis.Client
	limiter    *rate.Limiter
}

type TMDBConfig struct {
	APIKey        string
	ExportBaseURL string
	DetailBaseURL string
	Retry         int
	Timeout       time.Duration
	RequestDelay  time.Duration
	Logger        *logrus.Logger
	Redis         *redis.Client
}

func NewTMDBClient(config *TMDBConfig) *TMDBClient {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.ExportBaseURL == "" {
		config.ExportBaseURL = exportBaseURL
	}
	if config.DetailBaseURL == "" {
		config.DetailBaseURL = detailBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RequestDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(config.RequestDelay), 1)
	}

	return &TMDBClient{
		apiKey:    config.APIKey,
		exportURL: config.ExportBaseURL,
		detailURL: config.DetailBaseURL,
		retry:     config.Retry,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  config.Logger,
		redis:   config.Redis,
		limiter: limiter,
	}
}

// DownloadExport fetches one daily export file and streams it to
// destDir/filename. A 4xx/5xx aborts without retrying and returns the
// StatusError; transport errors retry up to the configured count.
func (c *TMDBClient) DownloadExport(ctx context.Context, filename, destDir string) error {
	fileURL := fmt.Sprintf("%s/%s", c.exportURL, filename)
	localPath := filepath.Join(destDir, filename)

	var lastErr error
	for attempt := 0; attempt <= c.retry; attempt++ {
		err := c.downloadOnce(ctx, fileURL, localPath)
		if err == nil {
			return nil
		}
		if statusErr, ok := asStatusError(err); ok {
			c.logger.WithFields(logrus.Fields{
				"url":    fileURL,
				"status": statusErr.Code,
			}).Debug("Export download rejected by server")
			return err
		}

		lastErr = err
		c.logger.WithFields(logrus.Fields{
			"url":     fileURL,
			"attempt": attempt + 1,
			"error":   err.Error(),
		}).Debug("Failed to download export file")
		if attempt < c.retry {
			c.logger.Info("Trying again!")
		}
	}
	return fmt.Errorf("failed to download %s after %d attempts: %w", filename, c.retry+1, lastErr)
}

func (c *TMDBClient) downloadOnce(ctx context.Context, fileURL, localPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &StatusError{Code: resp.StatusCode, URL: fileURL}
	}

	outFile, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer outFile.Close()

	// Stream to disk; export files are too large to hold in memory.
	if _, err := io.Copy(outFile, resp.Body); err != nil {
		return fmt.Errorf("failed to write downloaded content to %s: %w", localPath, err)
	}
	return nil
}

// MovieDetail fetches the detail record for one movie, reading through the
// redis cache when one is wired. The same retry classification as the export
// download applies; callers treat any error as "no data for this movie".
func (c *TMDBClient) MovieDetail(ctx context.Context, movieID string) (*models.MovieDetailResponse, error) {
	cacheKey := detailCachePrefix + movieID
	if c.redis != nil {
		cached, err := c.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var detail models.MovieDetailResponse
			if err := json.Unmarshal([]byte(cached), &detail); err == nil {
				c.logger.WithField("movie_id", movieID).Debug("Retrieved movie details from cache")
				return &detail, nil
			} else {
				c.logger.WithError(err).Warn("Failed to unmarshal cached movie details")
			}
		} else if err != redis.Nil {
			c.logger.WithError(err).Warn("Failed to read from Redis")
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := c.getDetail(ctx, movieID)
	if err != nil {
		return nil, err
	}

	var detail models.MovieDetailResponse
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("failed to parse detail response for movie %s: %w", movieID, err)
	}

	if c.redis != nil {
		if err := c.redis.Set(ctx, cacheKey, body, detailCacheTTL).Err(); err != nil {
			c.logger.WithError(err).Warn("Failed to write movie details to cache")
		}
	}
	return &detail, nil
}

func (c *TMDBClient) getDetail(ctx context.Context, movieID string) ([]byte, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("language", detailLanguage)
	detailURL := fmt.Sprintf("%s/%s?%s", c.detailURL, movieID, params.Encode())

	var lastErr error
	for attempt := 0; attempt <= c.retry; attempt++ {
		c.logger.WithField("movie_id", movieID).Info("Requesting movie info")

		body, err := c.getOnce(ctx, detailURL)
		if err == nil {
			return body, nil
		}
		if statusErr, ok := asStatusError(err); ok {
			c.logger.WithFields(logrus.Fields{
				"movie_id": movieID,
				"status":   statusErr.Code,
			}).Debug("Movie info request rejected by server")
			return nil, err
		}

		lastErr = err
		c.logger.WithFields(logrus.Fields{
			"movie_id": movieID,
			"attempt":  attempt + 1,
			"error":    err.Error(),
		}).Debug("Failed to fetch movie info")
		if attempt < c.retry {
			c.logger.Info("Trying again")
		}
	}
	c.logger.WithField("movie_id", movieID).Info("Max retries reached")
	return nil, fmt.Errorf("failed to fetch details for movie %s after %d attempts: %w", movieID, c.retry+1, lastErr)
}

func (c *TMDBClient) getOnce(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{Code: resp.StatusCode, URL: reqURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func asStatusError(err error) (*StatusError, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr, true
	}
	return nil, false
}
