package tmdb

// ExternalIDs is the cross-reference record TMDB keeps for a title.
type ExternalIDs struct {
	ID     int64  `json:"id"`
	IMDBID string `json:"imdb_id"`
	TVDBID int64  `json:"tvdb_id"`
}
