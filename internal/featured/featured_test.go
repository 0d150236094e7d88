package featured

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
	"github.com/laocai-wudi/chunmpre.cn/pkg/logger"
)

type fakeProduct struct {
	featured bool
	visible  bool
}

// fakeStore serializes WithSlotLock with a mutex, like the memory repository.
type fakeStore struct {
	mu       sync.Mutex
	products map[string]*fakeProduct
	failSet  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{products: map[string]*fakeProduct{}}
}

func (s *fakeStore) add(id string, featured, visible bool) {
	s.products[id] = &fakeProduct{featured: featured, visible: visible}
}

func (s *fakeStore) WithSlotLock(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

func (s *fakeStore) IsFeatured(_ context.Context, id string) (bool, error) {
	p, ok := s.products[id]
	if !ok {
		return false, apperrors.NotFound("product", id)
	}
	return p.featured, nil
}

func (s *fakeStore) CountVisibleFeatured(context.Context) (int, error) {
	n := 0
	for _, p := range s.products {
		if p.featured && p.visible {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) SetFeatured(_ context.Context, id string, featured bool) error {
	if s.failSet != nil {
		return s.failSet
	}
	s.products[id].featured = featured
	return nil
}

func fillSlots(s *fakeStore, n int) {
	for i := 0; i < n; i++ {
		s.add(fmt.Sprintf("f%d", i), true, true)
	}
}

func TestTryMark_FreeSlot(t *testing.T) {
	store := newFakeStore()
	fillSlots(store, 5)
	store.add("p", false, true)
	a := NewAllocator(store, DefaultCap, logger.Discard())

	require.NoError(t, a.TryMark(context.Background(), "p"))
	assert.True(t, store.products["p"].featured)
	assert.Equal(t, 6.0, testutil.ToFloat64(a.inUse))
}

func TestTryMark_SlotsFull(t *testing.T) {
	store := newFakeStore()
	fillSlots(store, 6)
	store.add("p", false, true)
	a := NewAllocator(store, DefaultCap, logger.Discard())

	err := a.TryMark(context.Background(), "p")
	require.ErrorIs(t, err, apperrors.ErrSlotsFull)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 6, appErr.Count)
	assert.Equal(t, 6, appErr.Limit)
	assert.False(t, store.products["p"].featured)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.rejected))
}

func TestTryMark_AlreadyFeaturedWhenFull(t *testing.T) {
	store := newFakeStore()
	fillSlots(store, 6)
	a := NewAllocator(store, DefaultCap, logger.Discard())

	assert.NoError(t, a.TryMark(context.Background(), "f0"))
}

func TestTryMark_HiddenFeaturedDoNotCount(t *testing.T) {
	store := newFakeStore()
	fillSlots(store, 5)
	store.add("hidden", true, false)
	store.add("p", false, false)
	a := NewAllocator(store, DefaultCap, logger.Discard())

	require.NoError(t, a.TryMark(context.Background(), "p"))
	assert.True(t, store.products["p"].featured)
}

func TestTryMark_UnknownProduct(t *testing.T) {
	a := NewAllocator(newFakeStore(), DefaultCap, logger.Discard())
	assert.ErrorIs(t, a.TryMark(context.Background(), "missing"), apperrors.ErrNotFound)
}

func TestTryMark_WriteFailure(t *testing.T) {
	store := newFakeStore()
	store.add("p", false, true)
	store.failSet = errors.New("connection reset")
	a := NewAllocator(store, DefaultCap, logger.Discard())

	assert.EqualError(t, a.TryMark(context.Background(), "p"), "connection reset")
}

func TestUnmark(t *testing.T) {
	store := newFakeStore()
	fillSlots(store, 6)
	store.add("plain", false, true)
	a := NewAllocator(store, DefaultCap, logger.Discard())

	require.NoError(t, a.Unmark(context.Background(), "f0"))
	assert.False(t, store.products["f0"].featured)
	require.NoError(t, a.Unmark(context.Background(), "plain"))
	assert.ErrorIs(t, a.Unmark(context.Background(), "missing"), apperrors.ErrNotFound)
}

func TestCheck_NewProduct(t *testing.T) {
	store := newFakeStore()
	a := NewAllocator(store, 2, logger.Discard())
	ctx := context.Background()

	assert.NoError(t, a.Check(ctx, store, ""))
	fillSlots(store, 2)
	assert.ErrorIs(t, a.Check(ctx, store, ""), apperrors.ErrSlotsFull)
	assert.NoError(t, a.Check(ctx, store, "f1"))
}

func TestNewAllocator_DefaultCap(t *testing.T) {
	assert.Equal(t, DefaultCap, NewAllocator(newFakeStore(), 0, logger.Discard()).Cap())
	assert.Equal(t, 3, NewAllocator(newFakeStore(), 3, logger.Discard()).Cap())
	assert.Len(t, NewAllocator(newFakeStore(), 3, nil).Collectors(), 3)
}

func TestNoteVisibilityChange_WarnsOnOvershoot(t *testing.T) {
	store := newFakeStore()
	fillSlots(store, 7)

	var buf bytes.Buffer
	a := NewAllocator(store, DefaultCap, logger.NewWithWriter("catalog", "info", &buf))

	count, err := a.NoteVisibilityChange(context.Background(), "f6")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.Contains(t, buf.String(), "exceed available slots")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.overshoot))

	n, err := a.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestTryMark_ConcurrentNeverExceedsCap(t *testing.T) {
	store := newFakeStore()
	fillSlots(store, 4)
	for i := 0; i < 20; i++ {
		store.add(fmt.Sprintf("c%d", i), false, true)
	}
	a := NewAllocator(store, DefaultCap, logger.Discard())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, full int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := a.TryMark(context.Background(), id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperrors.ErrSlotsFull):
				full++
			}
		}(fmt.Sprintf("c%d", i))
	}
	wg.Wait()

	assert.Equal(t, 2, ok)
	assert.Equal(t, 18, full)
	count, _ := store.CountVisibleFeatured(context.Background())
	assert.Equal(t, DefaultCap, count)
}
