package models

import "time"

// Movie представляет фильм в каталоге
type Movie struct {
	ID               int64     `json:"id"`
	OriginalTitle    string    `json:"original_title"`
	Overview         string    `json:"overview"`
	OriginalLanguage string    `json:"original_language"`
	PosterPath       string    `json:"poster_path"`
	AvgRating        float64   `json:"avg_rating"`
	TotalRatingUsers int64     `json:"total_rating_users"`
	PopularityScore  float64   `json:"popularity_score"`
	TMDBID           int64     `json:"tmdb_id"`
	Year             int       `json:"year"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MovieDetail расширяет Movie связанными сущностями для детальной карточки
type MovieDetail struct {
	Movie
	Genres    []string `json:"genres"`
	Actors    []string `json:"actors"`
	Directors []string `json:"directors"`
}

// UserRating представляет оценку фильма пользователем (1..5)
type UserRating struct {
	UserID    string    `json:"user_id"`
	MovieID   int64     `json:"movie_id"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
