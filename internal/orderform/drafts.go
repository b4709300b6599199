package orderform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/redis"
)

// ErrDraftNotFound is returned by Load when nothing is stored under the ref.
var ErrDraftNotFound = errors.New("draft not found")

// DraftRef identifies one draft: an organization's form of one order type,
// private to the user editing it.
type DraftRef struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	OrderType      enums.OrderType
}

// DraftStore persists serialized carts. It stores raw bytes so decoding and
// discard decisions stay with the service.
type DraftStore interface {
	Load(ctx context.Context, ref DraftRef) ([]byte, error)
	Save(ctx context.Context, ref DraftRef, payload []byte) error
	Delete(ctx context.Context, ref DraftRef) error
}

type draftKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DraftKey(orgID, orderType, userID string) string
}

type redisDraftStore struct {
	kv  draftKV
	ttl time.Duration
}

// NewRedisDraftStore keeps drafts in redis; every save refreshes the ttl.
func NewRedisDraftStore(kv draftKV, ttl time.Duration) (DraftStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("draft ttl must be positive")
	}
	return &redisDraftStore{kv: kv, ttl: ttl}, nil
}

func (s *redisDraftStore) key(ref DraftRef) string {
	return s.kv.DraftKey(ref.OrganizationID.String(), ref.OrderType.String(), ref.UserID.String())
}

func (s *redisDraftStore) Load(ctx context.Context, ref DraftRef) ([]byte, error) {
	raw, err := s.kv.Get(ctx, s.key(ref))
	if redis.IsNil(err) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(raw), nil
}

func (s *redisDraftStore) Save(ctx context.Context, ref DraftRef, payload []byte) error {
	return s.kv.Set(ctx, s.key(ref), string(payload), s.ttl)
}

func (s *redisDraftStore) Delete(ctx context.Context, ref DraftRef) error {
	return s.kv.Del(ctx, s.key(ref))
}

type dbDraftStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewDBDraftStore keeps drafts in the order_form_drafts table. Expired rows
// read as missing.
func NewDBDraftStore(db *gorm.DB, ttl time.Duration) (DraftStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("draft ttl must be positive")
	}
	return &dbDraftStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *dbDraftStore) scope(ctx context.Context, ref DraftRef) *gorm.DB {
	return s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ? AND order_type = ?", ref.OrganizationID, ref.UserID, ref.OrderType)
}

func (s *dbDraftStore) Load(ctx context.Context, ref DraftRef) ([]byte, error) {
	var row models.OrderFormDraft
	err := s.scope(ctx, ref).Where("expires_at > ?", s.now().UTC()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(row.Payload), nil
}

func (s *dbDraftStore) Save(ctx context.Context, ref DraftRef, payload []byte) error {
	row := models.OrderFormDraft{
		OrganizationID: ref.OrganizationID,
		UserID:         ref.UserID,
		OrderType:      ref.OrderType,
		Payload:        string(payload),
		ExpiresAt:      s.now().UTC().Add(s.ttl),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}, {Name: "user_id"}, {Name: "order_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
	}).Create(&row).Error
}

func (s *dbDraftStore) Delete(ctx context.Context, ref DraftRef) error {
	return s.scope(ctx, ref).Delete(&models.OrderFormDraft{}).Error
}

// PurgeExpiredDrafts deletes database drafts whose ttl lapsed before now.
func PurgeExpiredDrafts(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("db required")
	}
	res := db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&models.OrderFormDraft{})
	return res.RowsAffected, res.Error
}
