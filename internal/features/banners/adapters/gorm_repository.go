package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"banner-editor/internal/features/banners/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const positionSequence = "banner_position"

// bannerRecord is the table layout of a banner.
// Position is stored as its fixed-width sort key so text comparison follows numeric order.
type bannerRecord struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string          `gorm:"column:name;size:255"`
	URL       string          `gorm:"column:url;type:text"`
	Image     string          `gorm:"column:image;type:text"`
	Enabled   bool            `gorm:"column:enabled;not null;default:false"`
	Position  domain.Position `gorm:"column:pos;type:varchar(21);not null;uniqueIndex:idx_banner_pos"`
	CreatedAt time.Time       `gorm:"column:date_created;not null"`
	EditedAt  time.Time       `gorm:"column:date_edited;not null"`
}

func (bannerRecord) TableName() string { return "banner" }

// sequenceRecord backs NextSequenceValue. Value holds the last issued number.
type sequenceRecord struct {
	Name  string `gorm:"column:name;primaryKey;size:64"`
	Value int64  `gorm:"column:value;not null"`
}

func (sequenceRecord) TableName() string { return "sequences" }

func toRecord(b *domain.Banner) bannerRecord {
	return bannerRecord{
		ID:        b.ID,
		Name:      b.Name,
		URL:       b.URL,
		Image:     b.Image,
		Enabled:   b.Enabled,
		Position:  b.Position,
		CreatedAt: b.CreatedAt,
		EditedAt:  b.EditedAt,
	}
}

func (r bannerRecord) toDomain() *domain.Banner {
	return &domain.Banner{
		ID:        r.ID,
		Name:      r.Name,
		URL:       r.URL,
		Image:     r.Image,
		Enabled:   r.Enabled,
		Position:  r.Position,
		CreatedAt: r.CreatedAt,
		EditedAt:  r.EditedAt,
	}
}

// Migrate creates the banner tables and seeds the position sequence so the
// first drawn value is domain.FirstSequenceValue.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&bannerRecord{}, &sequenceRecord{}); err != nil {
		return fmt.Errorf("failed to migrate banner tables: %w", err)
	}
	seed := sequenceRecord{Name: positionSequence, Value: domain.FirstSequenceValue - 1}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return fmt.Errorf("failed to seed position sequence: %w", err)
	}
	return nil
}

// Reset drops and recreates the banner tables.
func Reset(db *gorm.DB) error {
	if err := db.Migrator().DropTable(&bannerRecord{}, &sequenceRecord{}); err != nil {
		return fmt.Errorf("failed to drop banner tables: %w", err)
	}
	return Migrate(db)
}

// GormBannerRepository implements ports.BannerRepository on a SQL database.
type GormBannerRepository struct {
	db *gorm.DB
}

// NewGormBannerRepository creates a new GormBannerRepository.
func NewGormBannerRepository(db *gorm.DB) *GormBannerRepository {
	return &GormBannerRepository{db: db}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrPersistenceUnavailable, err))
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Insert stores b and assigns its ID and timestamps.
func (r *GormBannerRepository) Insert(ctx context.Context, b *domain.Banner) error {
	now := time.Now().UTC()
	rec := toRecord(b)
	rec.ID = 0
	rec.CreatedAt = now
	rec.EditedAt = now

	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to insert banner at %s: %w", b.Position, domain.ErrPositionConflict)
		}
		return unavailable("failed to insert banner", err)
	}

	b.ID = rec.ID
	b.CreatedAt = rec.CreatedAt
	b.EditedAt = rec.EditedAt
	return nil
}

// Update writes every mutable column of b.
func (r *GormBannerRepository) Update(ctx context.Context, b *domain.Banner) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&bannerRecord{}).Where("id = ?", b.ID).Updates(map[string]interface{}{
		"name":        b.Name,
		"url":         b.URL,
		"image":       b.Image,
		"enabled":     b.Enabled,
		"pos":         b.Position,
		"date_edited": now,
	})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return fmt.Errorf("failed to move banner %d to %s: %w", b.ID, b.Position, domain.ErrPositionConflict)
		}
		return unavailable("failed to update banner", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("banner %d: %w", b.ID, domain.ErrNotFound)
	}

	b.EditedAt = now
	return nil
}

// Delete removes the banner row.
func (r *GormBannerRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&bannerRecord{})
	if res.Error != nil {
		return unavailable("failed to delete banner", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("banner %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetByID loads one banner.
func (r *GormBannerRepository) GetByID(ctx context.Context, id int64) (*domain.Banner, error) {
	var rec bannerRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("banner %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("failed to load banner", err)
	}
	return rec.toDomain(), nil
}

// List returns banners ordered by position.
func (r *GormBannerRepository) List(ctx context.Context, onlyEnabled bool) ([]domain.Banner, error) {
	q := r.db.WithContext(ctx).Order("pos ASC")
	if onlyEnabled {
		q = q.Where("enabled = ?", true)
	}

	var recs []bannerRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, unavailable("failed to list banners", err)
	}

	banners := make([]domain.Banner, 0, len(recs))
	for _, rec := range recs {
		banners = append(banners, *rec.toDomain())
	}
	return banners, nil
}

func (r *GormBannerRepository) neighbor(ctx context.Context, cond, order string, p domain.Position) (domain.Position, bool, error) {
	var rec bannerRecord
	err := r.db.WithContext(ctx).Select("pos").Where(cond, p).Order(order).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Position{}, false, nil
	}
	if err != nil {
		return domain.Position{}, false, unavailable("failed to query neighbor position", err)
	}
	return rec.Position, true, nil
}

// MaxPositionBelow returns the greatest position strictly less than p.
func (r *GormBannerRepository) MaxPositionBelow(ctx context.Context, p domain.Position) (domain.Position, bool, error) {
	return r.neighbor(ctx, "pos < ?", "pos DESC", p)
}

// MinPositionAbove returns the least position strictly greater than p.
func (r *GormBannerRepository) MinPositionAbove(ctx context.Context, p domain.Position) (domain.Position, bool, error) {
	return r.neighbor(ctx, "pos > ?", "pos ASC", p)
}

// NextSequenceValue increments the position sequence inside a transaction.
func (r *GormBannerRepository) NextSequenceValue(ctx context.Context) (domain.Position, error) {
	var seq sequenceRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&sequenceRecord{}).
			Where("name = ?", positionSequence).
			Update("value", gorm.Expr("value + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("sequence %s is not initialised", positionSequence)
		}
		return tx.Where("name = ?", positionSequence).Take(&seq).Error
	})
	if err != nil {
		return domain.Position{}, unavailable("failed to draw position sequence", err)
	}
	return domain.NewPosition(seq.Value), nil
}
