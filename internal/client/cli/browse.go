package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/cinematch/cinematch/pkg/api"
)

func (c *Cli) runTrending(ctx context.Context) error {
	var movies []api.MovieTrending
	err := c.withOptionalToken(ctx, func(token string) error {
		var err error
		movies, err = c.apiClient.Trending(ctx, token)
		return err
	})
	if err != nil {
		return err
	}

	c.io.Println("=== Trending ===")
	c.io.Println()

	if len(movies) == 0 {
		c.io.Println("Nothing is trending right now.")
		return nil
	}

	for i, m := range movies {
		c.io.Printf("%d. %s (%d)\n", i+1, m.OriginalTitle, m.Year)
		c.io.Printf("   ID:     %d\n", m.ID)
		c.io.Printf("   Rating: %.1f\n", m.AvgRating)
		if len(m.Genres) > 0 {
			c.io.Printf("   Genres: %s\n", strings.Join(m.Genres, ", "))
		}
		c.io.Println()
	}

	return nil
}

func (c *Cli) runGenres(ctx context.Context) error {
	var genres []string
	err := c.withOptionalToken(ctx, func(token string) error {
		var err error
		genres, err = c.apiClient.Genres(ctx, token)
		return err
	})
	if err != nil {
		return err
	}

	c.io.Println("=== Genres ===")
	c.io.Println()
	for _, g := range genres {
		c.io.Printf("  %s\n", g)
	}

	return nil
}

func (c *Cli) runTopRated(ctx context.Context, args []string) error {
	var genres []string
	if len(args) > 0 {
		for _, g := range strings.Split(strings.Join(args, ","), ",") {
			if g = strings.TrimSpace(g); g != "" {
				genres = append(genres, g)
			}
		}
	}

	var movies []api.Movie
	err := c.withOptionalToken(ctx, func(token string) error {
		var err error
		movies, err = c.apiClient.TopRated(ctx, token, genres)
		return err
	})
	if err != nil {
		return err
	}

	if len(genres) > 0 {
		c.io.Printf("=== Top Rated: %s ===\n", strings.Join(genres, ", "))
	} else {
		c.io.Println("=== Top Rated ===")
	}
	c.io.Println()

	if len(movies) == 0 {
		return fmt.Errorf("no movies found")
	}

	c.printMovies(movies)
	return nil
}
