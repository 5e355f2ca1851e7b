package storage

import (
	"context"

	"github.com/cinematch/cinematch/internal/models"
)

// MovieStorage defines read access to the movie catalog
type MovieStorage interface {
	// SearchMovies finds movies whose title contains the substring q,
	// ordered by year desc, then by number of raters desc
	SearchMovies(ctx context.Context, q string, limit, offset int) ([]*models.Movie, error)

	// TrendingMovies returns recent movies (year > 2017) ordered by
	// popularity, including genres, up to limit
	TrendingMovies(ctx context.Context, limit int) ([]*models.MovieDetail, error)

	// ListGenres returns all genre names
	ListGenres(ctx context.Context) ([]string, error)

	// TopRatedMovies returns movies with at least 30 raters ordered by
	// year, avg rating and raters desc; genres filters by genre names
	// when non-empty
	TopRatedMovies(ctx context.Context, genres []string, limit, offset int) ([]*models.Movie, error)

	// GetMovie retrieves a movie row by ID
	// Returns ErrMovieNotFound if movie doesn't exist
	GetMovie(ctx context.Context, movieID int64) (*models.Movie, error)

	// GetMovieDetail retrieves a movie with genres, actors and directors
	// Returns ErrMovieNotFound if movie doesn't exist
	GetMovieDetail(ctx context.Context, movieID int64) (*models.MovieDetail, error)

	// GetMoviesByIDs retrieves movies for the given IDs, preserving the
	// order of ids; unknown IDs are silently dropped
	GetMoviesByIDs(ctx context.Context, ids []int64) ([]*models.Movie, error)
}

// RatingStorage defines per-user movie ratings
type RatingStorage interface {
	// GetUserRating retrieves a user's rating for a movie, nil if absent
	GetUserRating(ctx context.Context, userID string, movieID int64) (*models.UserRating, error)

	// UpsertRating inserts or updates a user's rating
	UpsertRating(ctx context.Context, rating *models.UserRating) error

	// UpdateMovieStats overwrites a movie's aggregate rating counters
	UpdateMovieStats(ctx context.Context, movieID int64, avgRating float64, totalRatingUsers int64) error
}
