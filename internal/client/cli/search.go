package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/cinematch/cinematch/pkg/api"
)

func (c *Cli) runSearch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing search query. Usage: cinematch search <query>")
	}
	query := strings.Join(args, " ")

	var movies []api.Movie
	err := c.withOptionalToken(ctx, func(token string) error {
		var err error
		movies, err = c.apiClient.SearchMovies(ctx, token, query)
		return err
	})
	if err != nil {
		return err
	}

	c.io.Printf("=== Search: %s ===\n", query)
	c.io.Println()

	if len(movies) == 0 {
		c.io.Println("No movies found.")
		return nil
	}

	c.printMovies(movies)
	return nil
}

// printMovies печатает краткие карточки фильмов
func (c *Cli) printMovies(movies []api.Movie) {
	for i, m := range movies {
		c.io.Printf("%d. %s\n", i+1, m.OriginalTitle)
		c.io.Printf("   ID:     %d\n", m.ID)
		c.io.Printf("   Rating: %.1f\n", m.AvgRating)
		if m.Overview != "" {
			c.io.Printf("   %s\n", truncate(m.Overview, 120))
		}
		c.io.Println()
	}
}

// truncate обрезает строку до max рун с многоточием
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
