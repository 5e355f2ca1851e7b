package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cinematch/cinematch/pkg/api"
)

func (c *Cli) runMovie(ctx context.Context, args []string) error {
	movieID, err := parseMovieID(args, "movie")
	if err != nil {
		return err
	}

	var detail *api.MovieDetail
	err = c.authService.WithToken(ctx, func(token string) error {
		var err error
		detail, err = c.apiClient.MovieDetail(ctx, token, movieID)
		return err
	})
	if err != nil {
		return err
	}

	c.io.Printf("=== %s (%d) ===\n", detail.OriginalTitle, detail.Year)
	c.io.Println()
	c.io.Printf("ID:     %d\n", detail.ID)
	c.io.Printf("Rating: %.1f\n", detail.AvgRating)
	if detail.UserRating != nil {
		c.io.Printf("Your rating: %d\n", *detail.UserRating)
	}
	if len(detail.Genres) > 0 {
		c.io.Printf("Genres:    %s\n", strings.Join(detail.Genres, ", "))
	}
	if len(detail.Directors) > 0 {
		c.io.Printf("Directors: %s\n", strings.Join(detail.Directors, ", "))
	}
	if len(detail.Actors) > 0 {
		c.io.Printf("Actors:    %s\n", strings.Join(detail.Actors, ", "))
	}
	if detail.Overview != "" {
		c.io.Println()
		c.io.Println(detail.Overview)
	}

	return nil
}

func (c *Cli) runSimilar(ctx context.Context, args []string) error {
	movieID, err := parseMovieID(args, "similar")
	if err != nil {
		return err
	}

	var movies []api.Movie
	err = c.authService.WithToken(ctx, func(token string) error {
		var err error
		movies, err = c.apiClient.SimilarMovies(ctx, token, movieID)
		return err
	})
	if err != nil {
		return err
	}

	c.io.Println("=== Similar Movies ===")
	c.io.Println()

	if len(movies) == 0 {
		c.io.Println("No similar movies found.")
		return nil
	}

	c.printMovies(movies)
	return nil
}

func (c *Cli) runRate(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: cinematch rate <movie-id> <1-5>")
	}

	movieID, err := parseMovieID(args[:1], "rate")
	if err != nil {
		return err
	}

	rating, err := strconv.Atoi(args[1])
	if err != nil || rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be an integer between 1 and 5")
	}

	err = c.authService.WithToken(ctx, func(token string) error {
		return c.apiClient.RateMovie(ctx, token, movieID, rating)
	})
	if err != nil {
		return err
	}

	c.io.Printf("✓ Rated movie %d: %d/5\n", movieID, rating)
	return nil
}

// parseMovieID разбирает идентификатор фильма из аргументов команды
func parseMovieID(args []string, command string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing movie id. Usage: cinematch %s <movie-id>", command)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid movie id: %s", args[0])
	}
	return id, nil
}
