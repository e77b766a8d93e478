package adapters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"banner-editor/internal/features/banners/domain"

	"github.com/redis/go-redis/v9"
)

const (
	redisIDKey       = "banners:seq:id"
	redisSequenceKey = "banners:seq:position"
	redisOrderKey    = "banners:order"
	redisRecordKey   = "banners:record:"

	// memberSep separates the sort key from the id in order members. Members
	// of one position all start with "<key>:", and ";" is the next byte after ":".
	memberSep    = ":"
	memberSepEnd = ";"
)

// nextSequence seeds the sequence on first use and increments it atomically.
var nextSequence = redis.NewScript(`
redis.call("SETNX", KEYS[1], ARGV[1])
return redis.call("INCR", KEYS[1])
`)

// RedisBannerRepository implements ports.BannerRepository in Redis.
// Each banner is a hash; render order is a sorted set whose members all share
// score 0 and are ordered lexicographically by "<sort key>:<id>".
type RedisBannerRepository struct {
	client *redis.Client
}

// NewRedisBannerRepository creates a new RedisBannerRepository.
func NewRedisBannerRepository(client *redis.Client) *RedisBannerRepository {
	return &RedisBannerRepository{
		client: client,
	}
}

func recordKey(id int64) string {
	return redisRecordKey + strconv.FormatInt(id, 10)
}

func orderMember(p domain.Position, id int64) (string, error) {
	key, err := p.SortKey()
	if err != nil {
		return "", err
	}
	return key + memberSep + strconv.FormatInt(id, 10), nil
}

func parseOrderMember(member string) (domain.Position, int64, error) {
	key, rawID, ok := strings.Cut(member, memberSep)
	if !ok {
		return domain.Position{}, 0, fmt.Errorf("malformed order member %q", member)
	}
	p, err := domain.ParseSortKey(key)
	if err != nil {
		return domain.Position{}, 0, err
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return domain.Position{}, 0, fmt.Errorf("malformed order member %q: %w", member, err)
	}
	return p, id, nil
}

func bannerFields(b *domain.Banner) map[string]interface{} {
	return map[string]interface{}{
		"id":           b.ID,
		"name":         b.Name,
		"url":          b.URL,
		"image":        b.Image,
		"enabled":      strconv.FormatBool(b.Enabled),
		"position":     b.Position.String(),
		"date_created": b.CreatedAt.Format(time.RFC3339Nano),
		"date_edited":  b.EditedAt.Format(time.RFC3339Nano),
	}
}

func bannerFromHash(h map[string]string) (*domain.Banner, error) {
	id, err := strconv.ParseInt(h["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed banner id %q: %w", h["id"], err)
	}
	pos, err := domain.ParsePosition(h["position"])
	if err != nil {
		return nil, err
	}
	enabled, _ := strconv.ParseBool(h["enabled"])
	created, _ := time.Parse(time.RFC3339Nano, h["date_created"])
	edited, _ := time.Parse(time.RFC3339Nano, h["date_edited"])

	return &domain.Banner{
		ID:        id,
		Name:      h["name"],
		URL:       h["url"],
		Image:     h["image"],
		Enabled:   enabled,
		Position:  pos,
		CreatedAt: created,
		EditedAt:  edited,
	}, nil
}

// positionTaken reports whether any banner other than self holds p.
func positionTaken(ctx context.Context, c redis.Cmdable, p domain.Position, self int64) (bool, error) {
	key, err := p.SortKey()
	if err != nil {
		return false, err
	}
	members, err := c.ZRangeByLex(ctx, redisOrderKey, &redis.ZRangeBy{
		Min: "[" + key + memberSep,
		Max: "(" + key + memberSepEnd,
	}).Result()
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if _, id, err := parseOrderMember(m); err == nil && id != self {
			return true, nil
		}
	}
	return false, nil
}

func conflictOrUnavailable(op string, err error) error {
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%s: %w", op, domain.ErrPositionConflict)
	}
	return unavailable(op, err)
}

// Insert stores b under a fresh id. The order set is watched so a concurrent
// writer of the same position aborts this transaction.
func (r *RedisBannerRepository) Insert(ctx context.Context, b *domain.Banner) error {
	id, err := r.client.Incr(ctx, redisIDKey).Result()
	if err != nil {
		return unavailable("failed to allocate banner id", err)
	}

	now := time.Now().UTC()
	stored := *b
	stored.ID = id
	stored.CreatedAt = now
	stored.EditedAt = now

	member, err := orderMember(stored.Position, id)
	if err != nil {
		return err
	}

	errTaken := errors.New("position taken")
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		taken, err := positionTaken(ctx, tx, stored.Position, id)
		if err != nil {
			return err
		}
		if taken {
			return errTaken
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, recordKey(id), bannerFields(&stored))
			pipe.ZAdd(ctx, redisOrderKey, redis.Z{Score: 0, Member: member})
			return nil
		})
		return err
	}, redisOrderKey)
	if errors.Is(err, errTaken) {
		return fmt.Errorf("failed to insert banner at %s: %w", b.Position, domain.ErrPositionConflict)
	}
	if err != nil {
		return conflictOrUnavailable("failed to insert banner", err)
	}

	*b = stored
	return nil
}

// Update rewrites the hash of b and, if its position changed, its order member.
func (r *RedisBannerRepository) Update(ctx context.Context, b *domain.Banner) error {
	key := recordKey(b.ID)
	now := time.Now().UTC()

	errTaken := errors.New("position taken")
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		h, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(h) == 0 {
			return domain.ErrNotFound
		}
		current, err := bannerFromHash(h)
		if err != nil {
			return err
		}

		moved := !current.Position.Equal(b.Position)
		if moved {
			taken, err := positionTaken(ctx, tx, b.Position, b.ID)
			if err != nil {
				return err
			}
			if taken {
				return errTaken
			}
		}

		oldMember, err := orderMember(current.Position, b.ID)
		if err != nil {
			return err
		}
		newMember, err := orderMember(b.Position, b.ID)
		if err != nil {
			return err
		}

		updated := *b
		updated.CreatedAt = current.CreatedAt
		updated.EditedAt = now

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, bannerFields(&updated))
			if moved {
				pipe.ZRem(ctx, redisOrderKey, oldMember)
				pipe.ZAdd(ctx, redisOrderKey, redis.Z{Score: 0, Member: newMember})
			}
			return nil
		})
		return err
	}, key, redisOrderKey)

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("banner %d: %w", b.ID, domain.ErrNotFound)
	case errors.Is(err, errTaken):
		return fmt.Errorf("failed to move banner %d to %s: %w", b.ID, b.Position, domain.ErrPositionConflict)
	case err != nil:
		return conflictOrUnavailable("failed to update banner", err)
	}

	b.EditedAt = now
	return nil
}

// Delete removes the hash and the order member of a banner.
func (r *RedisBannerRepository) Delete(ctx context.Context, id int64) error {
	key := recordKey(id)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, "position").Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		pos, err := domain.ParsePosition(raw)
		if err != nil {
			return err
		}
		member, err := orderMember(pos, id)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, redisOrderKey, member)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("banner %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return conflictOrUnavailable("failed to delete banner", err)
	}
	return nil
}

// GetByID loads one banner hash.
func (r *RedisBannerRepository) GetByID(ctx context.Context, id int64) (*domain.Banner, error) {
	h, err := r.client.HGetAll(ctx, recordKey(id)).Result()
	if err != nil {
		return nil, unavailable("failed to load banner", err)
	}
	if len(h) == 0 {
		return nil, fmt.Errorf("banner %d: %w", id, domain.ErrNotFound)
	}
	return bannerFromHash(h)
}

// List walks the order set and loads every hash in one pipeline.
func (r *RedisBannerRepository) List(ctx context.Context, onlyEnabled bool) ([]domain.Banner, error) {
	members, err := r.client.ZRangeByLex(ctx, redisOrderKey, &redis.ZRangeBy{Min: "-", Max: "+"}).Result()
	if err != nil {
		return nil, unavailable("failed to list banners", err)
	}

	cmds := make([]*redis.MapStringStringCmd, 0, len(members))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range members {
			_, id, err := parseOrderMember(m)
			if err != nil {
				return err
			}
			cmds = append(cmds, pipe.HGetAll(ctx, recordKey(id)))
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("failed to load banners", err)
	}

	banners := make([]domain.Banner, 0, len(cmds))
	for _, cmd := range cmds {
		h := cmd.Val()
		if len(h) == 0 {
			continue
		}
		b, err := bannerFromHash(h)
		if err != nil {
			return nil, err
		}
		if onlyEnabled && !b.Enabled {
			continue
		}
		banners = append(banners, *b)
	}
	return banners, nil
}

func (r *RedisBannerRepository) firstMember(ctx context.Context, by *redis.ZRangeBy, reverse bool) (domain.Position, bool, error) {
	var (
		members []string
		err     error
	)
	if reverse {
		members, err = r.client.ZRevRangeByLex(ctx, redisOrderKey, by).Result()
	} else {
		members, err = r.client.ZRangeByLex(ctx, redisOrderKey, by).Result()
	}
	if err != nil {
		return domain.Position{}, false, unavailable("failed to query neighbor position", err)
	}
	if len(members) == 0 {
		return domain.Position{}, false, nil
	}
	p, _, err := parseOrderMember(members[0])
	if err != nil {
		return domain.Position{}, false, err
	}
	return p, true, nil
}

// MaxPositionBelow returns the greatest position strictly less than p.
func (r *RedisBannerRepository) MaxPositionBelow(ctx context.Context, p domain.Position) (domain.Position, bool, error) {
	key, err := p.SortKey()
	if err != nil {
		return domain.Position{}, false, err
	}
	return r.firstMember(ctx, &redis.ZRangeBy{Min: "-", Max: "(" + key, Count: 1}, true)
}

// MinPositionAbove returns the least position strictly greater than p.
func (r *RedisBannerRepository) MinPositionAbove(ctx context.Context, p domain.Position) (domain.Position, bool, error) {
	key, err := p.SortKey()
	if err != nil {
		return domain.Position{}, false, err
	}
	return r.firstMember(ctx, &redis.ZRangeBy{Min: "(" + key + memberSepEnd, Max: "+", Count: 1}, false)
}

// NextSequenceValue draws from a Redis counter seeded so the first value is domain.FirstSequenceValue.
func (r *RedisBannerRepository) NextSequenceValue(ctx context.Context) (domain.Position, error) {
	v, err := nextSequence.Run(ctx, r.client, []string{redisSequenceKey}, domain.FirstSequenceValue-1).Int64()
	if err != nil {
		return domain.Position{}, unavailable("failed to draw position sequence", err)
	}
	return domain.NewPosition(v), nil
}

// Reset removes every banner key.
func (r *RedisBannerRepository) Reset(ctx context.Context) error {
	keys, err := r.client.Keys(ctx, "banners:*").Result()
	if err != nil {
		return unavailable("failed to list banner keys", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return unavailable("failed to delete banner keys", err)
	}
	return nil
}
