package engine

// MovieListSchema is the daily export list table, one row per movie per
// ingest day, read popularity-first.
var MovieListSchema = Schema{
	Table: "movie_list_pop_sorted",
	Columns: []Column{
		{Name: "movie_id", Type: "TEXT"},
		{Name: "ingest_date", Type: "DATE"},
		{Name: "popularity", Type: "REAL"},
		{Name: "movie_title", Type: "TEXT"},
		{Name: "adult", Type: "BOOLEAN"},
		{Name: "video", Type: "BOOLEAN"},
	},
	PrimaryKey: []string{"ingest_date", "popularity", "movie_id"},
	OrderBy:    []string{"popularity desc"},
}

// MovieInfoSchema is the per-movie enrichment table, write-once per movie.
var MovieInfoSchema = Schema{
	Table: "movie_info",
	Columns: []Column{
		{Name: "movie_id", Type: "TEXT"},
		{Name: "imdb_id", Type: "TEXT"},
		{Name: "movie_title", Type: "TEXT"},
		{Name: "release_date", Type: "DATE"},
		{Name: "language", Type: "TEXT"},
		{Name: "length", Type: "DOUBLE PRECISION"},
		{Name: "poster_path", Type: "TEXT"},
		{Name: "adult", Type: "BOOLEAN"},
		{Name: "genres_id", Type: "TEXT[]"},
		{Name: "description", Type: "TEXT"},
	},
	PrimaryKey: []string{"movie_id"},
}
