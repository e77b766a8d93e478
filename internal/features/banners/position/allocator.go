// Package position computes banner ordering keys without ever renumbering
// existing banners. Moving a banner only rewrites that banner's position.
package position

import (
	"context"
	"fmt"

	"banner-editor/internal/features/banners/domain"
)

// Neighbors answers ordered range queries over stored positions and issues
// fresh values from a monotonic sequence starting at domain.FirstSequenceValue.
type Neighbors interface {
	MaxPositionBelow(ctx context.Context, p domain.Position) (domain.Position, bool, error)
	MinPositionAbove(ctx context.Context, p domain.Position) (domain.Position, bool, error)
	NextSequenceValue(ctx context.Context) (domain.Position, error)
}

// Allocator implements initial allocation and move arithmetic.
type Allocator struct {
	neighbors Neighbors
}

// NewAllocator creates an Allocator backed by the given neighbor source.
func NewAllocator(neighbors Neighbors) *Allocator {
	return &Allocator{neighbors: neighbors}
}

// Initial draws a fresh position that sorts after every position issued so far.
func (a *Allocator) Initial(ctx context.Context) (domain.Position, error) {
	p, err := a.neighbors.NextSequenceValue(ctx)
	if err != nil {
		return domain.Position{}, fmt.Errorf("allocator: failed to draw sequence value: %w", err)
	}
	return p, nil
}

// MoveUp places current immediately before its predecessor.
// moved is false when current is already first.
func (a *Allocator) MoveUp(ctx context.Context, current domain.Position) (next domain.Position, moved bool, err error) {
	pos1, ok, err := a.neighbors.MaxPositionBelow(ctx, current)
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("allocator: failed to find predecessor: %w", err)
	}
	if !ok {
		return current, false, nil
	}

	pos2, ok, err := a.neighbors.MaxPositionBelow(ctx, pos1)
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("allocator: failed to find second predecessor: %w", err)
	}
	if !ok {
		pos2 = domain.Position{}
	}

	next, err = domain.Midpoint(pos2, pos1)
	if err != nil {
		return domain.Position{}, false, err
	}
	return next, true, nil
}

// MoveDown places current immediately after its successor.
// moved is false when current is already last.
func (a *Allocator) MoveDown(ctx context.Context, current domain.Position) (next domain.Position, moved bool, err error) {
	pos1, ok, err := a.neighbors.MinPositionAbove(ctx, current)
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("allocator: failed to find successor: %w", err)
	}
	if !ok {
		return current, false, nil
	}

	pos2, ok, err := a.neighbors.MinPositionAbove(ctx, pos1)
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("allocator: failed to find second successor: %w", err)
	}
	if !ok {
		// The successor is last: extend the order with a fresh sequence value.
		pos2, err = a.Initial(ctx)
		if err != nil {
			return domain.Position{}, false, err
		}
	}

	next, err = domain.Midpoint(pos1, pos2)
	if err != nil {
		return domain.Position{}, false, err
	}
	return next, true, nil
}

// Move dispatches on direction.
func (a *Allocator) Move(ctx context.Context, current domain.Position, dir domain.Direction) (domain.Position, bool, error) {
	switch dir {
	case domain.DirectionUp:
		return a.MoveUp(ctx, current)
	case domain.DirectionDown:
		return a.MoveDown(ctx, current)
	default:
		return domain.Position{}, false, domain.ErrInvalidDirection
	}
}
