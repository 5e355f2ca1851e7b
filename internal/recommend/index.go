// Package recommend отдает похожие фильмы по офлайн-матрице сходства.
// Матрица считается вне сервера и подкладывается артефактом JSON.
package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// ErrMovieNotIndexed — фильм отсутствует в матрице сходства
var ErrMovieNotIndexed = errors.New("movie not present in similarity index")

// artifact описывает формат JSON файла с матрицей сходства:
// movie_ids[i] соответствует строке matrix[i], matrix[i][j] — сходство
// фильмов i и j
type artifact struct {
	MovieIDs []int64     `json:"movie_ids"`
	Matrix   [][]float64 `json:"matrix"`
}

// Index лениво загружает матрицу сходства при первом обращении.
// Загрузка происходит один раз; Reset позволяет перечитать артефакт
// после его обновления без перезапуска сервера.
type Index struct {
	path string

	mu     sync.Mutex
	once   *sync.Once
	ids    []int64
	rows   map[int64][]float64
	loaded bool
	err    error
}

// NewIndex создает индекс поверх файла артефакта. Файл не читается до
// первого вызова TopSimilar.
func NewIndex(path string) *Index {
	return &Index{
		path: path,
		once: new(sync.Once),
	}
}

// TopSimilar возвращает до n идентификаторов фильмов, наиболее похожих
// на movieID, по убыванию сходства. Сам фильм в результат не входит.
func (idx *Index) TopSimilar(movieID int64, n int) ([]int64, error) {
	if err := idx.load(); err != nil {
		return nil, err
	}

	// Снимаем ссылки под мьютексом: параллельный Reset обнуляет поля,
	// а старые срезы остаются валидными для текущего запроса.
	idx.mu.Lock()
	ids, rows := idx.ids, idx.rows
	idx.mu.Unlock()

	row, ok := rows[movieID]
	if !ok {
		return nil, ErrMovieNotIndexed
	}

	type scored struct {
		id    int64
		score float64
	}
	candidates := make([]scored, 0, len(ids))
	for i, id := range ids {
		if id == movieID {
			continue
		}
		candidates = append(candidates, scored{id: id, score: row[i]})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if n > len(candidates) {
		n = len(candidates)
	}
	result := make([]int64, 0, n)
	for _, c := range candidates[:n] {
		result = append(result, c.id)
	}
	return result, nil
}

// Reset сбрасывает загруженное состояние; следующий вызов TopSimilar
// перечитает артефакт
func (idx *Index) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.once = new(sync.Once)
	idx.ids = nil
	idx.rows = nil
	idx.loaded = false
	idx.err = nil
}

func (idx *Index) load() error {
	idx.mu.Lock()
	once := idx.once
	idx.mu.Unlock()

	once.Do(func() {
		ids, rows, err := readArtifact(idx.path)

		idx.mu.Lock()
		defer idx.mu.Unlock()
		idx.ids = ids
		idx.rows = rows
		idx.loaded = err == nil
		idx.err = err
	})

	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.err
}

func readArtifact(path string) ([]int64, map[int64][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read similarity artifact: %w", err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, nil, fmt.Errorf("failed to parse similarity artifact: %w", err)
	}

	if len(a.MovieIDs) != len(a.Matrix) {
		return nil, nil, fmt.Errorf("similarity artifact is inconsistent: %d ids, %d rows", len(a.MovieIDs), len(a.Matrix))
	}

	rows := make(map[int64][]float64, len(a.MovieIDs))
	for i, id := range a.MovieIDs {
		if len(a.Matrix[i]) != len(a.MovieIDs) {
			return nil, nil, fmt.Errorf("similarity artifact row %d has %d columns, want %d", i, len(a.Matrix[i]), len(a.MovieIDs))
		}
		rows[id] = a.Matrix[i]
	}

	return a.MovieIDs, rows, nil
}
