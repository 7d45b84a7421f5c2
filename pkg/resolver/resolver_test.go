package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/swapi-gateway/pkg/client"
	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

// fakeGateway answers from a fixed table; missing references are NotFound.
type fakeGateway struct {
	mu       sync.Mutex
	records  map[swapi.Reference]swapi.Record
	failures map[swapi.Reference]error
	delay    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		records:  make(map[swapi.Reference]swapi.Record),
		failures: make(map[swapi.Reference]error),
	}
}

func (f *fakeGateway) add(rec swapi.Record) {
	f.records[rec.Ref()] = rec
}

func (f *fakeGateway) Fetch(ctx context.Context, t swapi.EntityType, id int) (swapi.Record, error) {
	return f.FetchByReference(ctx, swapi.Reference{Type: t, ID: id})
}

func (f *fakeGateway) FetchByReference(ctx context.Context, ref swapi.Reference) (swapi.Record, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[ref]; ok {
		return nil, err
	}
	if rec, ok := f.records[ref]; ok {
		return rec, nil
	}
	return nil, &client.UpstreamError{Class: client.ClassNotFound, StatusCode: 404, Err: client.ErrNotFound}
}

func character(id int, name string) *swapi.Character {
	return &swapi.Character{ID: id, Name: name}
}

func charRef(id int) swapi.Reference {
	return swapi.Reference{Type: swapi.EntityCharacter, ID: id}
}

func names(records []swapi.Record) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.(*swapi.Character).Name)
	}
	return out
}

func TestResolve_PreservesOrderAndDropsNotFound(t *testing.T) {
	gw := newFakeGateway()
	gw.add(character(1, "A"))
	gw.add(character(3, "C"))

	r := New(gw, 4)
	records, err := r.Resolve(context.Background(), []swapi.Reference{charRef(1), charRef(2), charRef(3)})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, names(records))
}

func TestResolve_OrderIndependentOfCompletion(t *testing.T) {
	gw := newFakeGateway()
	var refs []swapi.Reference
	var want []string
	for id := 1; id <= 30; id++ {
		name := string(rune('A' + (id-1)%26))
		gw.add(character(id, name))
		refs = append(refs, charRef(id))
		want = append(want, name)
	}
	gw.delay = time.Millisecond

	records, err := New(gw, 5).Resolve(context.Background(), refs)
	require.NoError(t, err)
	assert.Equal(t, want, names(records))
	assert.LessOrEqual(t, gw.maxInFlight.Load(), int32(5))
}

func TestResolve_FailureFailsWhole(t *testing.T) {
	gw := newFakeGateway()
	gw.add(character(1, "A"))
	exhausted := &client.UpstreamError{
		Class:    client.ClassTimeout,
		Attempts: 3,
		Err:      client.ErrRetryExhausted,
	}
	gw.failures[charRef(2)] = exhausted

	records, err := New(gw, 4).Resolve(context.Background(), []swapi.Reference{charRef(1), charRef(2)})
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Equal(t, client.ClassTimeout, client.ClassOf(err))
	assert.True(t, errors.Is(err, client.ErrRetryExhausted))
	assert.False(t, client.IsNotFound(err))
}

func TestResolve_Empty(t *testing.T) {
	records, err := New(newFakeGateway(), 0).Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestResolve_AllNotFound(t *testing.T) {
	records, err := New(newFakeGateway(), 2).Resolve(context.Background(), []swapi.Reference{charRef(7), charRef(8)})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestResolve_CancelledContext(t *testing.T) {
	gw := newFakeGateway()
	gw.add(character(1, "A"))
	gw.delay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(gw, 2).Resolve(ctx, []swapi.Reference{charRef(1)})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
