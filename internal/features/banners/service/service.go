package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"banner-editor/internal/core/logger"
	"banner-editor/internal/features/banners/domain"
	"banner-editor/internal/features/banners/ports"
	"banner-editor/internal/features/banners/position"

	"go.uber.org/zap"
)

// OrderLockKey guards every write of a position.
const OrderLockKey = "banner:order"

func recordLockKey(id int64) string {
	return "banner:" + strconv.FormatInt(id, 10)
}

// BannerServiceImpl implements ports.BannerService.
type BannerServiceImpl struct {
	repo      ports.BannerRepository
	assets    ports.AssetStore
	locker    ports.Locker
	allocator *position.Allocator
}

// NewBannerService creates a new BannerServiceImpl.
func NewBannerService(repo ports.BannerRepository, assets ports.AssetStore, locker ports.Locker) *BannerServiceImpl {
	return &BannerServiceImpl{
		repo:      repo,
		assets:    assets,
		locker:    locker,
		allocator: position.NewAllocator(repo),
	}
}

// lock takes the given keys in order and returns a func releasing them in reverse.
func (s *BannerServiceImpl) lock(ctx context.Context, keys ...string) (func(), error) {
	releases := make([]func(), 0, len(keys))
	unlock := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, key := range keys {
		release, err := s.locker.Lock(ctx, key)
		if err != nil {
			unlock()
			return nil, fmt.Errorf("service: %w", err)
		}
		releases = append(releases, release)
	}
	return unlock, nil
}

// Create inserts a banner at the end of the order and stores its image.
func (s *BannerServiceImpl) Create(ctx context.Context, in domain.CreateInput) (*domain.Banner, error) {
	banner := &domain.Banner{
		Name:    in.Name,
		URL:     in.URL,
		Enabled: in.Enabled,
	}
	if in.Image != nil {
		name, err := domain.CleanFilename(in.Image.Filename)
		if err != nil {
			return nil, err
		}
		banner.Image = name
	}
	banner.EnforceImageRule()

	unlock, err := s.lock(ctx, OrderLockKey)
	if err != nil {
		return nil, err
	}
	pos, err := s.allocator.Initial(ctx)
	if err == nil {
		banner.Position = pos
		err = s.repo.Insert(ctx, banner)
	}
	unlock()
	if err != nil {
		return nil, fmt.Errorf("service: failed to create banner: %w", err)
	}

	log := logger.ForBanner(banner.ID)
	log.Info("Banner created", zap.String("position", banner.Position.String()))

	if in.Image != nil {
		if err := s.assets.StoreOriginal(ctx, banner.ID, banner.Image, in.Image.Content); err != nil {
			s.dropImage(ctx, banner)
			return nil, fmt.Errorf("service: failed to store image of banner %d: %w", banner.ID, err)
		}
	}

	return banner, nil
}

// dropImage detaches the image of a banner whose upload could not be stored.
func (s *BannerServiceImpl) dropImage(ctx context.Context, banner *domain.Banner) {
	log := logger.ForBanner(banner.ID)
	if err := s.assets.DeleteAll(ctx, banner.ID, banner.Image); err != nil {
		log.Warn("Failed to remove partial image directory", zap.Error(err))
	}

	banner.Image = ""
	banner.EnforceImageRule()
	if err := s.repo.Update(ctx, banner); err != nil {
		log.Error("Failed to detach image after write failure", zap.Error(err))
	}
}

// Update replaces the editable fields and optionally the image of a banner.
func (s *BannerServiceImpl) Update(ctx context.Context, id int64, in domain.UpdateInput) (*domain.Banner, error) {
	var newName string
	if in.Image != nil {
		name, err := domain.CleanFilename(in.Image.Filename)
		if err != nil {
			return nil, err
		}
		newName = name
	}

	unlock, err := s.lock(ctx, recordLockKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	banner, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load banner: %w", err)
	}
	log := logger.ForBanner(id)

	switch {
	case in.Image != nil:
		if err := s.replaceImage(ctx, banner, newName, in.Image); err != nil {
			s.dropImage(ctx, banner)
			return nil, fmt.Errorf("service: failed to replace image of banner %d: %w", id, err)
		}
		log.Info("Banner image replaced", zap.String("image", newName))
	case in.RemoveImage && banner.HasImage():
		if err := s.assets.DeleteAll(ctx, id, banner.Image); err != nil {
			return nil, fmt.Errorf("service: failed to remove image of banner %d: %w", id, err)
		}
		banner.Image = ""
	}

	banner.Name = in.Name
	banner.URL = in.URL
	banner.Enabled = in.Enabled
	banner.EnforceImageRule()

	if err := s.repo.Update(ctx, banner); err != nil {
		return nil, fmt.Errorf("service: failed to update banner: %w", err)
	}
	return banner, nil
}

// replaceImage clears every file of the current image before writing the new one
// so no variant of the old image stays reachable.
func (s *BannerServiceImpl) replaceImage(ctx context.Context, banner *domain.Banner, name string, upload *domain.ImageUpload) error {
	if banner.HasImage() {
		if err := s.assets.ClearDirectory(ctx, banner.ID, banner.Image); err != nil {
			return err
		}
		oldDir, err := s.assets.Directory(banner.ID, banner.Image)
		if err != nil {
			return err
		}
		newDir, err := s.assets.Directory(banner.ID, name)
		if err != nil {
			return err
		}
		if oldDir != newDir {
			if err := s.assets.DeleteAll(ctx, banner.ID, banner.Image); err != nil {
				return err
			}
		}
	}

	banner.Image = name
	return s.assets.StoreOriginal(ctx, banner.ID, name, upload.Content)
}

// Move shifts a banner one place up or down. Moving the first banner up or
// the last banner down returns it unchanged.
func (s *BannerServiceImpl) Move(ctx context.Context, id int64, dir domain.Direction) (*domain.Banner, error) {
	if _, err := domain.ParseDirection(string(dir)); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, recordLockKey(id), OrderLockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	banner, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load banner: %w", err)
	}

	next, moved, err := s.allocator.Move(ctx, banner.Position, dir)
	if err != nil {
		return nil, fmt.Errorf("service: failed to move banner %d %s: %w", id, dir, err)
	}
	if !moved {
		return banner, nil
	}

	from := banner.Position
	banner.Position = next
	if err := s.repo.Update(ctx, banner); err != nil {
		return nil, fmt.Errorf("service: failed to save position of banner %d: %w", id, err)
	}

	logger.ForBanner(id).Info("Banner moved",
		zap.String("direction", string(dir)),
		zap.String("from", from.String()),
		zap.String("to", next.String()),
	)
	return banner, nil
}

// MoveUp moves a banner one place towards the start of the order.
func (s *BannerServiceImpl) MoveUp(ctx context.Context, id int64) (*domain.Banner, error) {
	return s.Move(ctx, id, domain.DirectionUp)
}

// MoveDown moves a banner one place towards the end of the order.
func (s *BannerServiceImpl) MoveDown(ctx context.Context, id int64) (*domain.Banner, error) {
	return s.Move(ctx, id, domain.DirectionDown)
}

// Delete removes the asset directory and then the record. A failed asset
// removal does not stop the record delete; both failures are reported.
func (s *BannerServiceImpl) Delete(ctx context.Context, id int64) error {
	unlock, err := s.lock(ctx, recordLockKey(id))
	if err != nil {
		return err
	}
	defer unlock()

	banner, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service: failed to load banner: %w", err)
	}
	log := logger.ForBanner(id)

	var assetErr error
	if banner.HasImage() {
		if assetErr = s.assets.DeleteAll(ctx, id, banner.Image); assetErr != nil {
			log.Error("Failed to remove banner assets", zap.Error(assetErr))
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if assetErr == nil && banner.HasImage() {
			log.Warn("Banner assets removed but record delete failed")
		}
		return fmt.Errorf("service: failed to delete banner: %w", errors.Join(err, assetErr))
	}
	if assetErr != nil {
		return fmt.Errorf("service: banner %d deleted with leftover assets: %w", id, assetErr)
	}

	log.Info("Banner deleted")
	return nil
}

// Get returns one banner.
func (s *BannerServiceImpl) Get(ctx context.Context, id int64) (*domain.Banner, error) {
	banner, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get banner: %w", err)
	}
	return banner, nil
}

// List returns banners in render order.
func (s *BannerServiceImpl) List(ctx context.Context, onlyEnabled bool) ([]domain.Banner, error) {
	banners, err := s.repo.List(ctx, onlyEnabled)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list banners: %w", err)
	}
	return banners, nil
}

// GetImageVariantPath returns the public path of a resized image of the banner.
// It is "" when the banner has no image or the variant cannot be produced.
// Generation writes into the banner directory, so it holds the record lock
// like every other writer of that directory.
func (s *BannerServiceImpl) GetImageVariantPath(ctx context.Context, id int64, size string) (string, error) {
	if _, ok := domain.LookupSize(size); !ok {
		return "", fmt.Errorf("service: %q: %w", size, domain.ErrUnknownSize)
	}

	unlock, err := s.lock(ctx, recordLockKey(id))
	if err != nil {
		return "", err
	}
	defer unlock()

	banner, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("service: failed to load banner: %w", err)
	}
	if !banner.HasImage() {
		return "", nil
	}
	return s.assets.GetVariantPath(ctx, id, banner.Image, size), nil
}
