package models

import "encoding/json"

// ExportLine is one newline-delimited JSON record of a daily export file.
// The id comes over the wire as a number but is stored as text.
type ExportLine struct {
	ID            json.Number `json:"id"`
	OriginalTitle string      `json:"original_title"`
	Popularity    float64     `json:"popularity"`
	Adult         *bool       `json:"adult"`
	Video         *bool       `json:"video"`
}

// MovieDetailResponse is the JSON body of the per-movie detail endpoint.
type MovieDetailResponse struct {
	ImdbID           *string  `json:"imdb_id"`
	OriginalTitle    *string  `json:"original_title"`
	ReleaseDate      *string  `json:"release_date"`
	OriginalLanguage *string  `json:"original_language"`
	Runtime          *float64 `json:"runtime"`
	PosterPath       *string  `json:"poster_path"`
	Adult            *bool    `json:"adult"`
	Overview         *string  `json:"overview"`
	Genres           []Genre  `json:"genres"`
}

type Genre struct {
	ID json.Number `json:"id"`
}
