package position

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"

	"banner-editor/internal/features/banners/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNeighbors keeps positions keyed by banner name.
type fakeNeighbors struct {
	positions map[string]domain.Position
	sequence  int64
	err       error
}

func newFakeNeighbors() *fakeNeighbors {
	return &fakeNeighbors{
		positions: map[string]domain.Position{},
		sequence:  domain.FirstSequenceValue - 1,
	}
}

func (f *fakeNeighbors) MaxPositionBelow(_ context.Context, p domain.Position) (domain.Position, bool, error) {
	if f.err != nil {
		return domain.Position{}, false, f.err
	}
	var best domain.Position
	found := false
	for _, v := range f.positions {
		if v.LessThan(p) && (!found || best.LessThan(v)) {
			best, found = v, true
		}
	}
	return best, found, nil
}

func (f *fakeNeighbors) MinPositionAbove(_ context.Context, p domain.Position) (domain.Position, bool, error) {
	if f.err != nil {
		return domain.Position{}, false, f.err
	}
	var best domain.Position
	found := false
	for _, v := range f.positions {
		if p.LessThan(v) && (!found || v.LessThan(best)) {
			best, found = v, true
		}
	}
	return best, found, nil
}

func (f *fakeNeighbors) NextSequenceValue(_ context.Context) (domain.Position, error) {
	if f.err != nil {
		return domain.Position{}, f.err
	}
	f.sequence++
	return domain.NewPosition(f.sequence), nil
}

func (f *fakeNeighbors) add(t *testing.T, a *Allocator, name string) {
	p, err := a.Initial(context.Background())
	require.NoError(t, err)
	f.positions[name] = p
}

func (f *fakeNeighbors) order() []string {
	names := make([]string, 0, len(f.positions))
	for n := range f.positions {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return f.positions[names[i]].LessThan(f.positions[names[j]]) })
	return names
}

func TestAllocator_Initial(t *testing.T) {
	f := newFakeNeighbors()
	a := NewAllocator(f)

	first, err := a.Initial(context.Background())
	require.NoError(t, err)
	second, err := a.Initial(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "1001", first.String())
	assert.Equal(t, "1002", second.String())
}

func TestAllocator_WorkedExample(t *testing.T) {
	ctx := context.Background()
	f := newFakeNeighbors()
	a := NewAllocator(f)
	f.add(t, a, "A")
	f.add(t, a, "B")
	f.add(t, a, "C")

	next, moved, err := a.MoveUp(ctx, f.positions["C"])
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, "1001.5", next.String())
	f.positions["C"] = next
	assert.Equal(t, []string{"A", "C", "B"}, f.order())

	next, moved, err = a.MoveDown(ctx, f.positions["A"])
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, "1001.75", next.String())
	f.positions["A"] = next
	assert.Equal(t, []string{"C", "A", "B"}, f.order())
}

func TestAllocator_MoveUp_First(t *testing.T) {
	f := newFakeNeighbors()
	a := NewAllocator(f)
	f.add(t, a, "A")

	next, moved, err := a.MoveUp(context.Background(), f.positions["A"])
	require.NoError(t, err)
	assert.False(t, moved)
	assert.True(t, next.Equal(f.positions["A"]))
}

func TestAllocator_MoveUp_SecondUsesZeroFloor(t *testing.T) {
	f := newFakeNeighbors()
	a := NewAllocator(f)
	f.add(t, a, "A")
	f.add(t, a, "B")

	next, moved, err := a.MoveUp(context.Background(), f.positions["B"])
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, "500.5", next.String())
}

func TestAllocator_MoveDown_Last(t *testing.T) {
	f := newFakeNeighbors()
	a := NewAllocator(f)
	f.add(t, a, "A")

	_, moved, err := a.MoveDown(context.Background(), f.positions["A"])
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, int64(domain.FirstSequenceValue), f.sequence, "no sequence value drawn for a no-op")
}

func TestAllocator_MoveDown_PenultimateExtendsSequence(t *testing.T) {
	f := newFakeNeighbors()
	a := NewAllocator(f)
	f.add(t, a, "A")
	f.add(t, a, "B")

	next, moved, err := a.MoveDown(context.Background(), f.positions["A"])
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, "1002.5", next.String())
	assert.Equal(t, int64(1003), f.sequence)
}

func TestAllocator_NeighborError(t *testing.T) {
	f := newFakeNeighbors()
	a := NewAllocator(f)
	f.add(t, a, "A")
	f.err = errors.New("db down")

	_, _, err := a.MoveUp(context.Background(), f.positions["A"])
	assert.ErrorContains(t, err, "db down")

	_, _, err = a.MoveDown(context.Background(), f.positions["A"])
	assert.ErrorContains(t, err, "db down")

	_, err = a.Initial(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestAllocator_Move_InvalidDirection(t *testing.T) {
	a := NewAllocator(newFakeNeighbors())
	_, _, err := a.Move(context.Background(), domain.NewPosition(1001), "left")
	assert.ErrorIs(t, err, domain.ErrInvalidDirection)
}

func TestAllocator_RandomMovesKeepOrderAndUniqueness(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	f := newFakeNeighbors()
	a := NewAllocator(f)

	names := []string{"A", "B", "C", "D", "E", "F"}
	for _, n := range names {
		f.add(t, a, n)
	}
	expected := append([]string(nil), names...)

	for i := 0; i < 200; i++ {
		idx := rng.Intn(len(expected))
		name := expected[idx]
		dir := domain.DirectionUp
		if rng.Intn(2) == 0 {
			dir = domain.DirectionDown
		}

		next, moved, err := a.Move(ctx, f.positions[name], dir)
		if errors.Is(err, domain.ErrPrecisionExhausted) {
			continue
		}
		require.NoError(t, err)

		switch {
		case dir == domain.DirectionUp && idx > 0:
			require.True(t, moved)
			expected[idx-1], expected[idx] = expected[idx], expected[idx-1]
		case dir == domain.DirectionDown && idx < len(expected)-1:
			require.True(t, moved)
			expected[idx+1], expected[idx] = expected[idx], expected[idx+1]
		default:
			require.False(t, moved)
		}
		f.positions[name] = next

		seen := map[string]bool{}
		for _, p := range f.positions {
			assert.False(t, seen[p.String()], "duplicate position %s", p)
			seen[p.String()] = true
		}
		require.Equal(t, expected, f.order())
	}
}
