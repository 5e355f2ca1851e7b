package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/internal/server/storage"
)

// fakeCatalogStore перехватывает фильтр жанров, остальные методы не используются
type fakeCatalogStore struct {
	storage.TxStore

	topRatedGenres []string
	topRatedCalled bool
}

func (f *fakeCatalogStore) TopRatedMovies(_ context.Context, genres []string, _, _ int) ([]*models.Movie, error) {
	f.topRatedCalled = true
	f.topRatedGenres = genres
	return nil, nil
}

func TestMovieHandler_TopRated_GenreFilter(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		genres []string
	}{
		{
			name:   "запятая",
			query:  "Action,Drama",
			genres: []string{"Action", "Drama"},
		},
		{
			name:   "вертикальная черта",
			query:  "Action|Drama",
			genres: []string{"Action", "Drama"},
		},
		{
			name:   "смешанные разделители",
			query:  "Action|Drama,Comedy",
			genres: []string{"Action", "Drama", "Comedy"},
		},
		{
			name:   "пробелы вокруг жанров",
			query:  " Action , Drama ",
			genres: []string{"Action", "Drama"},
		},
		{
			name:   "пустые сегменты отбрасываются",
			query:  "|,Action||",
			genres: []string{"Action"},
		},
		{
			name:   "без фильтра",
			query:  "",
			genres: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeCatalogStore{}
			h := NewMovieHandler(testLogger(), store, nil)

			target := "/api/v1/movies/top_rated"
			if tt.query != "" {
				target += "?q=" + url.QueryEscape(tt.query)
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			rec := httptest.NewRecorder()

			h.TopRated(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			require.True(t, store.topRatedCalled)
			assert.Equal(t, tt.genres, store.topRatedGenres)
		})
	}
}
