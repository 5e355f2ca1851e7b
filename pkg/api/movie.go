package api

// Movie представляет краткую карточку фильма в списках и результатах поиска
type Movie struct {
	ID            int64   `json:"id"`             // внутренний ID фильма
	OriginalTitle string  `json:"original_title"` // оригинальное название
	Overview      string  `json:"overview"`       // краткое описание
	PosterPath    string  `json:"poster_path"`    // путь к постеру
	AvgRating     float64 `json:"avg_rating"`     // средняя оценка пользователей
}

// MovieTrending представляет фильм в трендах (с жанрами и годом)
type MovieTrending struct {
	Movie
	Genres []string `json:"genres"`
	Year   int      `json:"year"`
}

// MovieDetail представляет детальную карточку фильма
type MovieDetail struct {
	Movie
	Genres     []string `json:"genres"`
	Actors     []string `json:"actors"`
	Directors  []string `json:"directors"`
	Year       int      `json:"year"`
	UserRating *int     `json:"user_rating"` // оценка текущего пользователя, nil если не оценивал
}

// RateRequest представляет запрос на выставление оценки фильму
type RateRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"` // оценка 1..5
}

// RateResponse представляет ответ на выставление оценки
type RateResponse struct {
	Success bool `json:"success"`
}

// UserMe представляет профиль текущего пользователя
type UserMe struct {
	Name       string  `json:"name"`       // отображаемое имя
	ProfilePic *string `json:"profilePic"` // URL аватара, nil если не задан
}
