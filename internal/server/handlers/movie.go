package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/internal/recommend"
	"github.com/cinematch/cinematch/internal/server/middleware"
	"github.com/cinematch/cinematch/internal/server/storage"
	"github.com/cinematch/cinematch/internal/validation"
	"github.com/cinematch/cinematch/pkg/api"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	similarLimit     = 10
)

// similarIndex отдает идентификаторы похожих фильмов
type similarIndex interface {
	TopSimilar(movieID int64, n int) ([]int64, error)
}

// MovieHandler обрабатывает запросы каталога фильмов
type MovieHandler struct {
	logger *slog.Logger
	store  storage.TxStore
	index  similarIndex
}

// NewMovieHandler создает новый обработчик каталога
func NewMovieHandler(logger *slog.Logger, store storage.TxStore, index similarIndex) *MovieHandler {
	return &MovieHandler{
		logger: logger,
		store:  store,
		index:  index,
	}
}

// Search обрабатывает GET /api/v1/movies/search?q=...
func (h *MovieHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		sendError(h.logger, w, "query parameter q is required", http.StatusBadRequest)
		return
	}

	limit, offset := pagination(r)

	movies, err := h.store.SearchMovies(r.Context(), q, limit, offset)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "movie search failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, toAPIMovies(movies), http.StatusOK)
}

// Trending обрабатывает GET /api/v1/movies/trending
func (h *MovieHandler) Trending(w http.ResponseWriter, r *http.Request) {
	limit, _ := pagination(r)

	movies, err := h.store.TrendingMovies(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "trending query failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := make([]api.MovieTrending, 0, len(movies))
	for _, m := range movies {
		resp = append(resp, api.MovieTrending{
			Movie:  toAPIMovie(&m.Movie),
			Genres: m.Genres,
			Year:   m.Year,
		})
	}
	sendJSON(h.logger, w, resp, http.StatusOK)
}

// Genres обрабатывает GET /api/v1/movies/genres
func (h *MovieHandler) Genres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.store.ListGenres(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "genres query failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}
	sendJSON(h.logger, w, genres, http.StatusOK)
}

// TopRated обрабатывает GET /api/v1/movies/top_rated?q=a,b
// Жанры в q разделяются запятой или вертикальной чертой.
func (h *MovieHandler) TopRated(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	var genres []string
	raw := r.URL.Query().Get("q")
	for _, g := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '|' }) {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}

	movies, err := h.store.TopRatedMovies(r.Context(), genres, limit, offset)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "top rated query failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, toAPIMovies(movies), http.StatusOK)
}

// Detail обрабатывает GET /api/v1/movies/{movieID}
func (h *MovieHandler) Detail(w http.ResponseWriter, r *http.Request) {
	movieID, ok := h.movieID(w, r)
	if !ok {
		return
	}

	detail, err := h.store.GetMovieDetail(r.Context(), movieID)
	if err != nil {
		if errors.Is(err, storage.ErrMovieNotFound) {
			sendError(h.logger, w, "movie not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "movie detail query failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.MovieDetail{
		Movie:     toAPIMovie(&detail.Movie),
		Genres:    detail.Genres,
		Actors:    detail.Actors,
		Directors: detail.Directors,
		Year:      detail.Year,
	}

	if userID, ok := middleware.UserID(r.Context()); ok {
		rating, err := h.store.GetUserRating(r.Context(), userID, movieID)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "user rating query failed", slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
			return
		}
		if rating != nil {
			resp.UserRating = &rating.Rating
		}
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// Similar обрабатывает GET /api/v1/movies/{movieID}/similar.
// Фильм вне матрицы сходства — не ошибка, список просто пуст.
func (h *MovieHandler) Similar(w http.ResponseWriter, r *http.Request) {
	movieID, ok := h.movieID(w, r)
	if !ok {
		return
	}

	if _, err := h.store.GetMovie(r.Context(), movieID); err != nil {
		if errors.Is(err, storage.ErrMovieNotFound) {
			sendError(h.logger, w, "movie not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "movie query failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	ids, err := h.index.TopSimilar(movieID, similarLimit)
	if err != nil {
		if errors.Is(err, recommend.ErrMovieNotIndexed) {
			sendJSON(h.logger, w, []api.Movie{}, http.StatusOK)
			return
		}
		h.logger.ErrorContext(r.Context(), "similarity lookup failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	movies, err := h.store.GetMoviesByIDs(r.Context(), ids)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "movies by ids query failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, toAPIMovies(movies), http.StatusOK)
}

// Rate обрабатывает POST /api/v1/movies/{movieID}/rate. Оценка и
// агрегаты фильма меняются одной транзакцией, среднее пересчитывается
// инкрементально без полного прохода по таблице оценок.
func (h *MovieHandler) Rate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		sendError(h.logger, w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	movieID, ok := h.movieID(w, r)
	if !ok {
		return
	}

	var req api.RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStruct(req); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.store.WithTx(r.Context(), func(st storage.Store) error {
		movie, err := st.GetMovie(r.Context(), movieID)
		if err != nil {
			return err
		}

		existing, err := st.GetUserRating(r.Context(), userID, movieID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		rating := &models.UserRating{
			UserID:    userID,
			MovieID:   movieID,
			Rating:    req.Rating,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if existing != nil {
			rating.CreatedAt = existing.CreatedAt
		}
		if err := st.UpsertRating(r.Context(), rating); err != nil {
			return err
		}

		sum := movie.AvgRating * float64(movie.TotalRatingUsers)
		total := movie.TotalRatingUsers
		if existing != nil {
			sum += float64(req.Rating - existing.Rating)
		} else {
			sum += float64(req.Rating)
			total++
		}

		avg := 0.0
		if total > 0 {
			avg = sum / float64(total)
		}
		return st.UpdateMovieStats(r.Context(), movieID, avg, total)
	})
	if err != nil {
		if errors.Is(err, storage.ErrMovieNotFound) {
			sendError(h.logger, w, "movie not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "rating update failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, api.RateResponse{Success: true}, http.StatusOK)
}

// movieID разбирает {movieID} из пути; при ошибке сам пишет ответ 400
func (h *MovieHandler) movieID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "movieID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		sendError(h.logger, w, "invalid movie id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// pagination разбирает limit и offset из строки запроса
func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

func toAPIMovie(m *models.Movie) api.Movie {
	return api.Movie{
		ID:            m.ID,
		OriginalTitle: m.OriginalTitle,
		Overview:      m.Overview,
		PosterPath:    m.PosterPath,
		AvgRating:     m.AvgRating,
	}
}

func toAPIMovies(movies []*models.Movie) []api.Movie {
	resp := make([]api.Movie, 0, len(movies))
	for _, m := range movies {
		resp = append(resp, toAPIMovie(m))
	}
	return resp
}
