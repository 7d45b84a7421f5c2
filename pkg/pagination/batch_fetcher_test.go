package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

// fakePages serves count items split into pages of size.
type fakePages struct {
	mu      sync.Mutex
	count   int
	size    int
	failOn  int
	fetched []int
}

func (f *fakePages) FetchPage(ctx context.Context, t swapi.EntityType, page int) (*swapi.ListPage, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, page)
	f.mu.Unlock()

	if page == f.failOn {
		return nil, errors.New("boom")
	}

	start := (page - 1) * f.size
	end := min(start+f.size, f.count)
	results := make([]json.RawMessage, 0, end-start)
	for i := start; i < end; i++ {
		results = append(results, json.RawMessage(fmt.Sprintf(`{"n":%d}`, i+1)))
	}
	return &swapi.ListPage{Count: f.count, Results: results}, nil
}

func TestFetchAll_MultiplePagesInOrder(t *testing.T) {
	fake := &fakePages{count: 25, size: 10}
	bf := NewBatchFetcher(fake, Config{MaxConcurrency: 3})

	items, err := bf.FetchAll(context.Background(), swapi.EntityCharacter)
	require.NoError(t, err)
	require.Len(t, items, 25)

	for i, item := range items {
		assert.JSONEq(t, fmt.Sprintf(`{"n":%d}`, i+1), string(item))
	}
	assert.ElementsMatch(t, []int{1, 2, 3}, fake.fetched)
}

func TestFetchAll_SinglePage(t *testing.T) {
	fake := &fakePages{count: 6, size: 10}
	bf := NewBatchFetcher(fake, DefaultConfig())

	items, err := bf.FetchAll(context.Background(), swapi.EntityFilm)
	require.NoError(t, err)
	assert.Len(t, items, 6)
	assert.Equal(t, []int{1}, fake.fetched)
}

func TestFetchAll_EmptyCollection(t *testing.T) {
	fake := &fakePages{count: 0, size: 10}
	bf := NewBatchFetcher(fake, DefaultConfig())

	items, err := bf.FetchAll(context.Background(), swapi.EntityPlanet)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFetchAll_PageFailureFailsWhole(t *testing.T) {
	fake := &fakePages{count: 35, size: 10, failOn: 3}
	bf := NewBatchFetcher(fake, DefaultConfig())

	items, err := bf.FetchAll(context.Background(), swapi.EntityStarship)
	require.Error(t, err)
	assert.Nil(t, items)
	assert.Contains(t, err.Error(), "starships page 3")
}

func TestFetchAll_FirstPageFailure(t *testing.T) {
	fake := &fakePages{count: 35, size: 10, failOn: 1}
	bf := NewBatchFetcher(fake, DefaultConfig())

	_, err := bf.FetchAll(context.Background(), swapi.EntityStarship)
	require.Error(t, err)
	assert.Equal(t, []int{1}, fake.fetched)
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		count, size, want int
		wantErr           bool
	}{
		{count: 0, size: 0, want: 1},
		{count: 10, size: 10, want: 1},
		{count: 11, size: 10, want: 2},
		{count: 82, size: 10, want: 9},
		{count: 5, size: 0, wantErr: true},
	}

	for _, tt := range tests {
		page := &swapi.ListPage{Count: tt.count, Results: make([]json.RawMessage, tt.size)}
		got, err := pageCount(page)
		if tt.wantErr {
			assert.ErrorIs(t, err, swapi.ErrInvalidRecord)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "count=%d size=%d", tt.count, tt.size)
	}
}
