package ports

import (
	"context"
	"io"

	"banner-editor/internal/features/banners/domain"
)

// BannerService defines the primary port for banner operations.
type BannerService interface {
	Create(ctx context.Context, in domain.CreateInput) (*domain.Banner, error)
	Update(ctx context.Context, id int64, in domain.UpdateInput) (*domain.Banner, error)
	Move(ctx context.Context, id int64, dir domain.Direction) (*domain.Banner, error)
	MoveUp(ctx context.Context, id int64) (*domain.Banner, error)
	MoveDown(ctx context.Context, id int64) (*domain.Banner, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Banner, error)
	List(ctx context.Context, onlyEnabled bool) ([]domain.Banner, error)
	GetImageVariantPath(ctx context.Context, id int64, size string) (string, error)
}

// BannerRepository defines the secondary port for banner storage.
// Missing ids are reported as domain.ErrNotFound, infrastructure failures
// wrap domain.ErrPersistenceUnavailable.
type BannerRepository interface {
	// Insert assigns ID and timestamps to b.
	Insert(ctx context.Context, b *domain.Banner) error
	// Update persists every field of b and refreshes EditedAt.
	Update(ctx context.Context, b *domain.Banner) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Banner, error)
	// List returns banners in ascending position order.
	List(ctx context.Context, onlyEnabled bool) ([]domain.Banner, error)

	MaxPositionBelow(ctx context.Context, p domain.Position) (domain.Position, bool, error)
	MinPositionAbove(ctx context.Context, p domain.Position) (domain.Position, bool, error)
	NextSequenceValue(ctx context.Context) (domain.Position, error)
}

// AssetStore owns the files under a banner's id-scoped directory.
type AssetStore interface {
	Directory(id int64, filename string) (string, error)
	EnsureDirectory(ctx context.Context, id int64, filename string) (string, error)
	StoreOriginal(ctx context.Context, id int64, filename string, r io.Reader) error
	ClearDirectory(ctx context.Context, id int64, filename string) error
	// GetVariantPath returns the public path of a resized copy, or "" when unavailable.
	GetVariantPath(ctx context.Context, id int64, filename, size string) string
	DeleteAll(ctx context.Context, id int64, filename string) error
}

// Locker serializes work on a key across request handlers.
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (func(), error)
}
