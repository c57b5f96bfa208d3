package models

// MovieListRecord is one row of the daily export list, keyed by
// (ingest_date, popularity, movie_id) in the store.
type MovieListRecord struct {
	MovieID    string
	IngestDate string
	Popularity float64
	MovieTitle string
	Adult      *bool
	Video      *bool
}

// Row converts the record into the column map the engine saves.
func (r MovieListRecord) Row() map[string]any {
	return map[string]any{
		"movie_id":    r.MovieID,
		"ingest_date": r.IngestDate,
		"popularity":  r.Popularity,
		"movie_title": r.MovieTitle,
		"adult":       r.Adult,
		"video":       r.Video,
	}
}

// MovieDetailRecord is the enrichment row for a single movie. Nullable
// columns are pointers; nil persists as NULL.
type MovieDetailRecord struct {
	MovieID     string
	ImdbID      *string
	MovieTitle  *string
	ReleaseDate *string
	Language    *string
	Length      *float64
	PosterPath  *string
	Adult       *bool
	GenresID    []string
	Description *string
}

func (r MovieDetailRecord) Row() map[string]any {
	return map[string]any{
		"movie_id":     r.MovieID,
		"imdb_id":      r.ImdbID,
		"movie_title":  r.MovieTitle,
		"release_date": r.ReleaseDate,
		"language":     r.Language,
		"length":       r.Length,
		"poster_path":  r.PosterPath,
		"adult":        r.Adult,
		"genres_id":    r.GenresID,
		"description":  r.Description,
	}
}
