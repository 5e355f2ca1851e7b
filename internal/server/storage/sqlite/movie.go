package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/internal/server/storage"
)

const movieColumns = `id, original_title, overview, original_language, poster_path,
		avg_rating, total_rating_users, popularity_score, tmdb_id, year, created_at, updated_at`

// SearchMovies finds movies whose title contains the substring q
func (q *queries) SearchMovies(ctx context.Context, query string, limit, offset int) ([]*models.Movie, error) {
	// Экранируем спецсимволы LIKE, чтобы пользовательский ввод
	// не превращался в шаблон
	pattern := "%" + escapeLike(query) + "%"

	stmt := `
		SELECT ` + movieColumns + `
		FROM movies
		WHERE original_title LIKE ? ESCAPE '\'
		ORDER BY year DESC, total_rating_users DESC
		LIMIT ? OFFSET ?
	`

	return q.queryMovies(ctx, stmt, pattern, limit, offset)
}

// TrendingMovies returns recent movies ordered by popularity, with genres
func (q *queries) TrendingMovies(ctx context.Context, limit int) ([]*models.MovieDetail, error) {
	stmt := `
		SELECT m.id, m.original_title, m.overview, m.original_language, m.poster_path,
			m.avg_rating, m.total_rating_users, m.popularity_score, m.tmdb_id, m.year,
			m.created_at, m.updated_at,
			COALESCE(GROUP_CONCAT(g.genre, '|'), '')
		FROM movies m
		LEFT JOIN movie_genres mg ON mg.movie_id = m.id
		LEFT JOIN genres g ON g.id = mg.genre_id
		WHERE m.year > 2017
		GROUP BY m.id
		ORDER BY m.popularity_score DESC
		LIMIT ?
	`

	rows, err := q.db.QueryContext(ctx, stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trending movies: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var movies []*models.MovieDetail

	for rows.Next() {
		detail := &models.MovieDetail{}
		var genres string
		if err := rows.Scan(
			&detail.ID,
			&detail.OriginalTitle,
			&detail.Overview,
			&detail.OriginalLanguage,
			&detail.PosterPath,
			&detail.AvgRating,
			&detail.TotalRatingUsers,
			&detail.PopularityScore,
			&detail.TMDBID,
			&detail.Year,
			&detail.CreatedAt,
			&detail.UpdatedAt,
			&genres,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trending movie: %w", err)
		}
		if genres != "" {
			detail.Genres = strings.Split(genres, "|")
		}
		movies = append(movies, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return movies, nil
}

// ListGenres returns all genre names
func (q *queries) ListGenres(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT genre FROM genres ORDER BY genre`)
	if err != nil {
		return nil, fmt.Errorf("failed to query genres: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var genres []string

	for rows.Next() {
		var genre string
		if err := rows.Scan(&genre); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, genre)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return genres, nil
}

// TopRatedMovies returns movies with enough raters ordered by rating,
// optionally filtered by genre names
func (q *queries) TopRatedMovies(ctx context.Context, genres []string, limit, offset int) ([]*models.Movie, error) {
	// Фильмы с менее чем 30 оценками не участвуют в рейтинге
	const minRaters = 30

	if len(genres) == 0 {
		stmt := `
			SELECT ` + movieColumns + `
			FROM movies
			WHERE total_rating_users >= ?
			ORDER BY year DESC, avg_rating DESC, total_rating_users DESC
			LIMIT ? OFFSET ?
		`
		return q.queryMovies(ctx, stmt, minRaters, limit, offset)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(genres)), ",")
	stmt := `
		SELECT DISTINCT m.id, m.original_title, m.overview, m.original_language, m.poster_path,
			m.avg_rating, m.total_rating_users, m.popularity_score, m.tmdb_id, m.year,
			m.created_at, m.updated_at
		FROM movies m
		JOIN movie_genres mg ON mg.movie_id = m.id
		JOIN genres g ON g.id = mg.genre_id
		WHERE g.genre IN (` + placeholders + `) AND m.total_rating_users >= ?
		ORDER BY m.year DESC, m.avg_rating DESC, m.total_rating_users DESC
		LIMIT ? OFFSET ?
	`

	args := make([]any, 0, len(genres)+3)
	for _, g := range genres {
		args = append(args, g)
	}
	args = append(args, minRaters, limit, offset)

	return q.queryMovies(ctx, stmt, args...)
}

// GetMovie retrieves a movie row by ID
func (q *queries) GetMovie(ctx context.Context, movieID int64) (*models.Movie, error) {
	stmt := `
		SELECT ` + movieColumns + `
		FROM movies
		WHERE id = ?
	`

	movie := &models.Movie{}
	if err := q.scanMovie(q.db.QueryRowContext(ctx, stmt, movieID).Scan, movie); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrMovieNotFound
		}
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}

	return movie, nil
}

// GetMovieDetail retrieves a movie with genres, actors and directors
func (q *queries) GetMovieDetail(ctx context.Context, movieID int64) (*models.MovieDetail, error) {
	movie, err := q.GetMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}

	detail := &models.MovieDetail{Movie: *movie}

	if detail.Genres, err = q.movieNames(ctx, movieID,
		`SELECT g.genre FROM genres g JOIN movie_genres mg ON mg.genre_id = g.id WHERE mg.movie_id = ? ORDER BY g.genre`,
	); err != nil {
		return nil, err
	}

	if detail.Actors, err = q.movieNames(ctx, movieID,
		`SELECT a.name FROM actors a JOIN movie_actors ma ON ma.actor_id = a.id WHERE ma.movie_id = ? ORDER BY a.name`,
	); err != nil {
		return nil, err
	}

	if detail.Directors, err = q.movieNames(ctx, movieID,
		`SELECT d.name FROM directors d JOIN movie_directors md ON md.director_id = d.id WHERE md.movie_id = ? ORDER BY d.name`,
	); err != nil {
		return nil, err
	}

	return detail, nil
}

// GetMoviesByIDs retrieves movies for the given IDs preserving order
func (q *queries) GetMoviesByIDs(ctx context.Context, ids []int64) ([]*models.Movie, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	stmt := `
		SELECT ` + movieColumns + `
		FROM movies
		WHERE id IN (` + placeholders + `)
	`

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	movies, err := q.queryMovies(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}

	// IN() не гарантирует порядок — восстанавливаем порядок входных ids
	byID := make(map[int64]*models.Movie, len(movies))
	for _, m := range movies {
		byID[m.ID] = m
	}

	ordered := make([]*models.Movie, 0, len(movies))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			ordered = append(ordered, m)
		}
	}

	return ordered, nil
}

// GetUserRating retrieves a user's rating for a movie
func (q *queries) GetUserRating(ctx context.Context, userID string, movieID int64) (*models.UserRating, error) {
	stmt := `
		SELECT user_id, movie_id, rating, created_at, updated_at
		FROM user_ratings
		WHERE user_id = ? AND movie_id = ?
	`

	rating := &models.UserRating{}
	err := q.db.QueryRowContext(ctx, stmt, userID, movieID).Scan(
		&rating.UserID,
		&rating.MovieID,
		&rating.Rating,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user rating: %w", err)
	}

	return rating, nil
}

// UpsertRating inserts or updates a user's rating
func (q *queries) UpsertRating(ctx context.Context, rating *models.UserRating) error {
	stmt := `
		INSERT INTO user_ratings (user_id, movie_id, rating, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, movie_id) DO UPDATE SET rating = excluded.rating, updated_at = excluded.updated_at
	`

	_, err := q.db.ExecContext(ctx, stmt,
		rating.UserID,
		rating.MovieID,
		rating.Rating,
		rating.CreatedAt,
		rating.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}

	return nil
}

// UpdateMovieStats overwrites a movie's aggregate rating counters
func (q *queries) UpdateMovieStats(ctx context.Context, movieID int64, avgRating float64, totalRatingUsers int64) error {
	stmt := `
		UPDATE movies
		SET avg_rating = ?, total_rating_users = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := q.db.ExecContext(ctx, stmt, avgRating, totalRatingUsers, movieID)
	if err != nil {
		return fmt.Errorf("failed to update movie stats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrMovieNotFound
	}

	return nil
}

// queryMovies выполняет запрос, возвращающий строки movies
func (q *queries) queryMovies(ctx context.Context, stmt string, args ...any) ([]*models.Movie, error) {
	rows, err := q.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var movies []*models.Movie

	for rows.Next() {
		movie := &models.Movie{}
		if err := q.scanMovie(rows.Scan, movie); err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		movies = append(movies, movie)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return movies, nil
}

// movieNames выполняет запрос, возвращающий имена, связанные с фильмом
func (q *queries) movieNames(ctx context.Context, movieID int64, stmt string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, stmt, movieID)
	if err != nil {
		return nil, fmt.Errorf("failed to query movie names: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan movie name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return names, nil
}

// scanMovie читает колонки movieColumns через переданный scan
func (q *queries) scanMovie(scan func(dest ...any) error, movie *models.Movie) error {
	return scan(
		&movie.ID,
		&movie.OriginalTitle,
		&movie.Overview,
		&movie.OriginalLanguage,
		&movie.PosterPath,
		&movie.AvgRating,
		&movie.TotalRatingUsers,
		&movie.PopularityScore,
		&movie.TMDBID,
		&movie.Year,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
}

// escapeLike экранирует метасимволы шаблона LIKE
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
