// Package cli реализует команды консольного клиента
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/cinematch/cinematch/internal/client/api"
	"github.com/cinematch/cinematch/internal/client/auth"
	"github.com/cinematch/cinematch/internal/client/iocli"
)

type Cli struct {
	io          iocli.IO
	apiClient   *api.Client
	authService *auth.Service
}

func New(io iocli.IO, apiClient *api.Client, authService *auth.Service) *Cli {
	return &Cli{
		io:          io,
		apiClient:   apiClient,
		authService: authService,
	}
}

// withOptionalToken выполняет fn с access токеном, если сессия есть,
// и анонимно, если нет: списки каталога доступны без входа
func (c *Cli) withOptionalToken(ctx context.Context, fn func(token string) error) error {
	ok, err := c.authService.IsAuthenticated(ctx)
	if err != nil || !ok {
		return fn("")
	}
	return c.authService.WithToken(ctx, fn)
}

// Run выполняет команду; при ошибке печатает ее и завершает процесс
func (c *Cli) Run(ctx context.Context, command string, args []string) {
	var err error

	switch command {
	case "register":
		err = c.runRegister(ctx)
	case "login":
		err = c.runLogin(ctx)
	case "logout":
		err = c.runLogout(ctx)
	case "status":
		err = c.runStatus(ctx)
	case "me":
		err = c.runMe(ctx)
	case "search":
		err = c.runSearch(ctx, args)
	case "trending":
		err = c.runTrending(ctx)
	case "genres":
		err = c.runGenres(ctx)
	case "top":
		err = c.runTopRated(ctx, args)
	case "movie":
		err = c.runMovie(ctx, args)
	case "similar":
		err = c.runSimilar(ctx, args)
	case "rate":
		err = c.runRate(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		PrintUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func PrintUsage() {
	fmt.Println("CineMatch Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cinematch [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version          Show version information")
	fmt.Println("  --server URL       Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH          Path to local database (default: cinematch-client.db)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  register                Register new user")
	fmt.Println("  login                   Login to server")
	fmt.Println("  logout                  Logout from server")
	fmt.Println("  status                  Show authentication status")
	fmt.Println("  me                      Show current user profile")
	fmt.Println("  search <query>          Search movies by title")
	fmt.Println("  trending                Show trending movies")
	fmt.Println("  genres                  List genres")
	fmt.Println("  top [genre,...]         Show top rated movies, optionally by genres")
	fmt.Println("  movie <id>              Show movie details")
	fmt.Println("  similar <id>            Show movies similar to the given one")
	fmt.Println("  rate <id> <1-5>         Rate a movie")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  cinematch register")
	fmt.Println("  cinematch login")
	fmt.Println("  cinematch search \"blade runner\"")
	fmt.Println("  cinematch top Drama,Thriller")
	fmt.Println("  cinematch rate 603 5")
	fmt.Println("  cinematch --server https://example.com trending")
}
