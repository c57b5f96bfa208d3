package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"moviesync/internal/engine"
	"moviesync/internal/models"
)

func strPtr(s string) *string { return &s }

func TestNormalizeRecord(t *testing.T) {
	tests := []struct {
		name     string
		record   models.MovieDetailRecord
		check    func(t *testing.T, got models.MovieDetailRecord)
	}{
		{
			name:   "empty poster path becomes null",
			record: models.MovieDetailRecord{PosterPath: strPtr("")},
			check: func(t *testing.T, got models.MovieDetailRecord) {
				require.Nil(t, got.PosterPath)
			},
		},
		{
			name:   "invalid release date becomes null",
			record: models.MovieDetailRecord{ReleaseDate: strPtr("2020-13-40")},
			check: func(t *testing.T, got models.MovieDetailRecord) {
				require.Nil(t, got.ReleaseDate)
			},
		},
		{
			name:   "empty release date becomes null",
			record: models.MovieDetailRecord{ReleaseDate: strPtr("")},
			check: func(t *testing.T, got models.MovieDetailRecord) {
				require.Nil(t, got.ReleaseDate)
			},
		},
		{
			name:   "valid release date is preserved",
			record: models.MovieDetailRecord{ReleaseDate: strPtr("2020-03-05")},
			check: func(t *testing.T, got models.MovieDetailRecord) {
				require.NotNil(t, got.ReleaseDate)
				require.Equal(t, "2020-03-05", *got.ReleaseDate)
			},
		},
		{
			name: "empty strings become null, values survive",
			record: models.MovieDetailRecord{
				ImdbID:      strPtr(""),
				MovieTitle:  strPtr("Fight Club"),
				Language:    strPtr(""),
				Description: strPtr(""),
			},
			check: func(t *testing.T, got models.MovieDetailRecord) {
				require.Nil(t, got.ImdbID)
				require.Nil(t, got.Language)
				require.Nil(t, got.Description)
				require.Equal(t, "Fight Club", *got.MovieTitle)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, normalizeRecord(tt.record))
		})
	}
}

func TestBuildRecordGenres(t *testing.T) {
	detail := &models.MovieDetailResponse{
		Genres: []models.Genre{{ID: "28"}, {ID: "12"}},
	}
	record := buildRecord("550", detail)
	require.Equal(t, "550", record.MovieID)
	require.Equal(t, []string{"28", "12"}, record.GenresID)

	empty := buildRecord("551", &models.MovieDetailResponse{})
	require.Nil(t, empty.GenresID)
}

func detailServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "en-US", r.URL.Query().Get("language"))
		id := r.URL.Path[1:]
		fmt.Fprintf(w, `{
			"imdb_id": "tt%s",
			"original_title": "Movie %s",
			"release_date": "2020-03-05",
			"original_language": "en",
			"runtime": 120,
			"poster_path": "",
			"adult": false,
			"overview": "A movie.",
			"genres": [{"id": 28}]
		}`, id, id)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func listInfoEngine(listIDs, infoIDs []string) *fakeEngine {
	eng := newFakeEngine()
	var listRows, infoRows []map[string]any
	for _, id := range listIDs {
		listRows = append(listRows, map[string]any{"movie_id": id})
	}
	for _, id := range infoIDs {
		infoRows = append(infoRows, map[string]any{"movie_id": id})
	}
	eng.queries["SELECT DISTINCT movie_id FROM list"] = engine.QueryResult{Data: listRows}
	eng.queries["SELECT DISTINCT movie_id FROM info"] = engine.QueryResult{Data: infoRows}
	return eng
}

func TestMovieInfoFetchesOnlyMissingMovies(t *testing.T) {
	ts := detailServer(t)
	client := NewTMDBClient(&TMDBConfig{DetailBaseURL: ts.URL, APIKey: "k", Logger: testLogger()})
	eng := listInfoEngine([]string{"A", "B", "C"}, []string{"B"})

	movieInfo := NewMovieInfo(client, testLogger(), 10, 0)
	require.NoError(t, movieInfo.Fetch(context.Background(), eng))

	// First save registers the schema with zero rows.
	require.Equal(t, "movie_info", eng.saves[0].table)
	require.Empty(t, eng.saves[0].rows)

	require.Equal(t, "movie_list_pop_sorted", eng.views["list"])
	require.Equal(t, "movie_info", eng.views["info"])

	rows := eng.savedRows("movie_info")
	require.Len(t, rows, 2)
	require.Equal(t, "A", rows[0]["movie_id"])
	require.Equal(t, "C", rows[1]["movie_id"])

	// Normalization applied before persistence.
	require.Nil(t, rows[0]["poster_path"])
	require.Equal(t, strPtr("2020-03-05"), rows[0]["release_date"])
	require.Equal(t, []string{"28"}, rows[0]["genres_id"])
	require.Equal(t, strPtr("ttA"), rows[0]["imdb_id"])
}

func TestMovieInfoNoCandidatesIsNoOp(t *testing.T) {
	client := NewTMDBClient(&TMDBConfig{DetailBaseURL: "http://unused.invalid", Logger: testLogger()})
	eng := listInfoEngine([]string{"A", "B"}, []string{"A", "B"})

	movieInfo := NewMovieInfo(client, testLogger(), 10, 0)
	require.NoError(t, movieInfo.Fetch(context.Background(), eng))

	// Only the schema registration save happened.
	require.Len(t, eng.saves, 1)
	require.Empty(t, eng.saves[0].rows)
}

func TestMovieInfoSkipsFailedMovie(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/A" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"original_title":"Movie C","release_date":"2020-03-05","original_language":"en","runtime":120}`)
	}))
	t.Cleanup(ts.Close)

	client := NewTMDBClient(&TMDBConfig{DetailBaseURL: ts.URL, Logger: testLogger()})
	eng := listInfoEngine([]string{"A", "C"}, nil)

	movieInfo := NewMovieInfo(client, testLogger(), 10, 0)
	require.NoError(t, movieInfo.Fetch(context.Background(), eng))

	rows := eng.savedRows("movie_info")
	require.Len(t, rows, 1)
	require.Equal(t, "C", rows[0]["movie_id"])
}

func TestMovieDetailStatusErrorIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	ts := countingStatusServer(t, http.StatusNotFound, &attempts)

	client := NewTMDBClient(&TMDBConfig{DetailBaseURL: ts.URL, Retry: 3, Logger: testLogger()})
	_, err := client.MovieDetail(context.Background(), "550")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.Code)
	require.Equal(t, int32(1), attempts.Load())
}

func TestMovieDetailTransportErrorsRetry(t *testing.T) {
	var attempts atomic.Int32
	ts := brokenServer(t, &attempts)

	client := NewTMDBClient(&TMDBConfig{DetailBaseURL: ts.URL, Retry: 2, Logger: testLogger()})
	_, err := client.MovieDetail(context.Background(), "550")
	require.Error(t, err)
	require.Equal(t, int32(3), attempts.Load(), "expected retry+1 attempts")
}
