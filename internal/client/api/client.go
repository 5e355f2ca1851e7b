// Package api реализует HTTP клиент серверного API
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cinematch/cinematch/pkg/api"
)

// ErrUnauthorized — сервер отклонил запрос со статусом 401
var ErrUnauthorized = errors.New("unauthorized")

// refreshCookieName — имя http-only cookie с refresh токеном.
// CLI не браузер: значение cookie вынимается из ответа и хранится
// локально, а при refresh отправляется обратно заголовком Cookie.
const refreshCookieName = "AuthToken"

// AuthResult содержит токены успешной аутентификации.
// RefreshToken пуст, если сервер не выставлял cookie (refresh без ротации).
type AuthResult struct {
	AccessToken  string
	RefreshToken string
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*AuthResult, error) {
	var resp api.AuthResponse
	meta, err := c.doRequest(ctx, request{
		method: http.MethodPost,
		path:   "/api/v1/auth/register",
		body:   req,
		result: &resp,
	})
	if err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &AuthResult{AccessToken: resp.AccessToken, RefreshToken: meta.refreshCookie}, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*AuthResult, error) {
	var resp api.AuthResponse
	meta, err := c.doRequest(ctx, request{
		method: http.MethodPost,
		path:   "/api/v1/auth/login",
		body:   req,
		result: &resp,
	})
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &AuthResult{AccessToken: resp.AccessToken, RefreshToken: meta.refreshCookie}, nil
}

// Refresh обменивает refresh токен на новый access token.
// RefreshToken в результате непуст только при ротации.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	var resp api.AuthResponse
	meta, err := c.doRequest(ctx, request{
		method:        http.MethodPost,
		path:          "/api/v1/auth/refresh",
		refreshCookie: refreshToken,
		result:        &resp,
	})
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	// 204 — сервер не увидел cookie, сессии нет
	if meta.status == http.StatusNoContent {
		return nil, ErrUnauthorized
	}
	return &AuthResult{AccessToken: resp.AccessToken, RefreshToken: meta.refreshCookie}, nil
}

// Logout отзывает текущую сессию на сервере
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	_, err := c.doRequest(ctx, request{
		method: http.MethodPost,
		path:   "/api/v1/auth/logout",
		token:  accessToken,
	})
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// Me возвращает профиль текущего пользователя
func (c *Client) Me(ctx context.Context, accessToken string) (*api.UserMe, error) {
	var resp api.UserMe
	_, err := c.doRequest(ctx, request{
		method: http.MethodGet,
		path:   "/api/v1/users/me",
		token:  accessToken,
		result: &resp,
	})
	if err != nil {
		return nil, fmt.Errorf("me request failed: %w", err)
	}
	return &resp, nil
}

// SearchMovies ищет фильмы по подстроке названия
func (c *Client) SearchMovies(ctx context.Context, accessToken, q string) ([]api.Movie, error) {
	var resp []api.Movie
	path := "/api/v1/movies/search?q=" + url.QueryEscape(q)
	_, err := c.doRequest(ctx, request{
		method: http.MethodGet,
		path:   path,
		token:  accessToken,
		result: &resp,
	})
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	return resp, nil
}

// Trending возвращает фильмы в трендах
func (c *Client) Trending(ctx context.Context, accessToken string) ([]api.MovieTrending, error) {
	var resp []api.MovieTrending
	_, err := c.doRequest(ctx, request{
		method: http.MethodGet,
		path:   "/api/v1/movies/trending",
		token:  accessToken,
		result: &resp,
	})
	if err != nil {
		return nil, fmt.Errorf("trending request failed: %w", err)
	}
	return resp, nil
}

// Genres возвращает список жанров
func (c *Client) Genres(ctx context.Context, accessToken string) ([]string, error) {
	var resp []string
	_, err := c.doRequest(ctx, request{
		method: http.MethodGet,
		path:   "/api/v1/movies/genres",
		token:  accessToken,
		result: &resp,
	})
	if err != nil {
		return nil, fmt.Errorf("genres request failed: %w", err)
	}
	return resp, nil
}

// TopRated возвращает лучшие фильмы, опционально по жанрам
func (c *Client) TopRated(ctx context.Context, accessToken string, genres []string) ([]api.Movie, error) {
	path := "/api/v1/movies/top_rated"
	if len(genres) > 0 {
		path += "?q=" + url.QueryEscape(strings.Join(genres, ","))
	}

	var resp []api.Movie
	_, err := c.doRequest(ctx, request{
		method: http.MethodGet,
		path:   path,
		token:  accessToken,
		result: &resp,
	})
	if err != nil {
		return nil, fmt.Errorf("top rated request failed: %w", err)
	}
	return resp, nil
}

// MovieDetail возвращает детальную карточку фильма
func (c *Client) MovieDetail(ctx context.Context, accessToken string, movieID int64) (*api.MovieDetail, error) {
	var resp api.MovieDetail
	_, err := c.doRequest(ctx, request{
		method: http.MethodGet,
		path:   "/api/v1/movies/" + strconv.FormatInt(movieID, 10),
		token:  accessToken,
		result: &resp,
	})
	if err != nil {
		return nil, fmt.Errorf("movie detail request failed: %w", err)
	}
	return &resp, nil
}

// SimilarMovies возвращает фильмы, похожие на указанный
func (c *Client) SimilarMovies(ctx context.Context, accessToken string, movieID int64) ([]api.Movie, error) {
	var resp []api.Movie
	_, err := c.doRequest(ctx, request{
		method: http.MethodGet,
		path:   "/api/v1/movies/" + strconv.FormatInt(movieID, 10) + "/similar",
		token:  accessToken,
		result: &resp,
	})
	if err != nil {
		return nil, fmt.Errorf("similar request failed: %w", err)
	}
	return resp, nil
}

// RateMovie выставляет фильму оценку 1..5
func (c *Client) RateMovie(ctx context.Context, accessToken string, movieID int64, rating int) error {
	var resp api.RateResponse
	_, err := c.doRequest(ctx, request{
		method: http.MethodPost,
		path:   "/api/v1/movies/" + strconv.FormatInt(movieID, 10) + "/rate",
		token:  accessToken,
		body:   api.RateRequest{Rating: rating},
		result: &resp,
	})
	if err != nil {
		return fmt.Errorf("rate request failed: %w", err)
	}
	return nil
}

// request описывает параметры одного HTTP запроса
type request struct {
	method        string
	path          string
	token         string // access token для заголовка Authorization
	refreshCookie string // значение refresh cookie
	body          any
	result        any
}

// responseMeta содержит метаданные ответа сверх декодированного тела
type responseMeta struct {
	status        int
	refreshCookie string // новое значение refresh cookie, если сервер его ставил
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, p request) (*responseMeta, error) {
	reqURL := c.baseURL + p.path

	var bodyReader io.Reader
	if p.body != nil {
		jsonData, err := json.Marshal(p.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, p.method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if p.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	if p.refreshCookie != "" {
		req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: p.refreshCookie})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	meta := &responseMeta{status: resp.StatusCode}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == refreshCookieName && cookie.MaxAge >= 0 {
			meta.refreshCookie = cookie.Value
		}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Message)
		}
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if p.result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, p.result); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return meta, nil
}

