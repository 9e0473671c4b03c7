package trakt

// IDs holds the identifiers Trakt attaches to a movie or show.
type IDs struct {
	Trakt int64  `json:"trakt"`
	Slug  string `json:"slug"`
	IMDB  string `json:"imdb"`
	TMDB  int64  `json:"tmdb"`
	TVDB  int64  `json:"tvdb"`
}

// Movie is a Trakt movie summary.
type Movie struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   IDs    `json:"ids"`
}

// Show is a Trakt show summary.
type Show struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   IDs    `json:"ids"`
}

// TrendingMovie is an entry of /movies/trending.
type TrendingMovie struct {
	Watchers int   `json:"watchers"`
	Movie    Movie `json:"movie"`
}

// TrendingShow is an entry of /shows/trending.
type TrendingShow struct {
	Watchers int  `json:"watchers"`
	Show     Show `json:"show"`
}

// List is a user list summary from /users/{user}/lists.
type List struct {
	Name      string `json:"name"`
	ItemCount int    `json:"item_count"`
	IDs       struct {
		Trakt int64  `json:"trakt"`
		Slug  string `json:"slug"`
	} `json:"ids"`
}

// ListItem is an entry of /users/{user}/lists/{slug}/items.
// Exactly one of Movie or Show is set, matching Type.
type ListItem struct {
	Rank  int    `json:"rank"`
	Type  string `json:"type"`
	Movie *Movie `json:"movie,omitempty"`
	Show  *Show  `json:"show,omitempty"`
}
