package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"invitation/src-server/model"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// GormBackend implements Backend on PostgreSQL.
type GormBackend struct {
	db *gorm.DB
}

// OpenGorm connects lazily: gorm.Open only fails on a malformed DSN, an
// unreachable server surfaces on the first Ping.
func OpenGorm(dsn string) (*GormBackend, error) {
	gormLog := gormlogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("OpenGorm: %w", err)
	}
	return &GormBackend{db: db}, nil
}

func (g *GormBackend) Migrate(ctx context.Context) error {
	if err := g.db.WithContext(ctx).AutoMigrate(
		&eventRow{},
		&rsvpRow{},
		&guestbookRow{},
		&contentRow{},
		&qrRow{},
		&entryRow{},
	); err != nil {
		return fmt.Errorf("(*GormBackend).Migrate: %w", err)
	}
	return nil
}

func (g *GormBackend) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (g *GormBackend) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormBackend) ActiveEvent(ctx context.Context) (*model.EventInfo, error) {
	var row eventRow
	if err := g.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

func (g *GormBackend) CreateEvent(ctx context.Context, event model.EventInfo) (*model.EventInfo, error) {
	row := eventRow{
		ID:        event.ID,
		Title:     event.Title,
		Date:      event.Date,
		Location:  event.Location,
		IsActive:  event.IsActive,
		CreatedAt: event.CreatedAt,
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (g *GormBackend) InsertRSVP(ctx context.Context, eventID string, rec model.AttendeeRecord) error {
	row := newRSVPRow(eventID, rec)
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (g *GormBackend) ListRSVPs(ctx context.Context, eventID string) ([]model.AttendeeRecord, error) {
	var rows []rsvpRow
	if err := g.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.AttendeeRecord, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (g *GormBackend) DeleteRSVP(ctx context.Context, eventID, id string) error {
	return affected(g.db.WithContext(ctx).
		Where("event_id = ? AND id = ?", eventID, id).
		Delete(&rsvpRow{}))
}

func (g *GormBackend) InsertGuestbook(ctx context.Context, eventID string, msg model.GuestbookMessage) error {
	row := newGuestbookRow(eventID, msg)
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (g *GormBackend) ListGuestbook(ctx context.Context, eventID string, approvedOnly bool, limit int) ([]model.GuestbookMessage, error) {
	q := g.db.WithContext(ctx).Where("event_id = ?", eventID)
	if approvedOnly {
		q = q.Where("is_approved = ?", true)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []guestbookRow
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.GuestbookMessage, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (g *GormBackend) SetGuestbookApproval(ctx context.Context, eventID, id string, approved bool) error {
	return affected(g.db.WithContext(ctx).
		Model(&guestbookRow{}).
		Where("event_id = ? AND id = ?", eventID, id).
		Update("is_approved", approved))
}

func (g *GormBackend) DeleteGuestbook(ctx context.Context, eventID, id string) error {
	return affected(g.db.WithContext(ctx).
		Where("event_id = ? AND id = ?", eventID, id).
		Delete(&guestbookRow{}))
}

func (g *GormBackend) GetContent(ctx context.Context, eventID string) (model.ContentOverrides, error) {
	var row contentRow
	if err := g.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&row).Error; err != nil {
		return model.ContentOverrides{}, notFound(err)
	}
	return row.toModel()
}

func (g *GormBackend) UpsertContent(ctx context.Context, eventID string, content model.ContentOverrides) error {
	data, err := json.Marshal(content)
	if err != nil {
		return err
	}
	row := contentRow{EventID: eventID, Data: string(data), UpdatedAt: time.Now().UTC()}
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
}

func (g *GormBackend) DeleteContent(ctx context.Context, eventID string) error {
	return g.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&contentRow{}).Error
}

func (g *GormBackend) InsertQR(ctx context.Context, eventID string, rec model.QRRecord) error {
	row := newQRRow(eventID, rec)
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (g *GormBackend) GetQR(ctx context.Context, eventID, id string) (*model.QRRecord, error) {
	var row qrRow
	if err := g.db.WithContext(ctx).
		Where("event_id = ? AND id = ?", eventID, id).
		First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	rec := row.toModel()
	return &rec, nil
}

func (g *GormBackend) ListQR(ctx context.Context, eventID string) ([]model.QRRecord, error) {
	var rows []qrRow
	if err := g.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("timestamp DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.QRRecord, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// MarkQRUsed only touches active codes so a used code is never rewritten.
func (g *GormBackend) MarkQRUsed(ctx context.Context, eventID, id string, at time.Time) error {
	res := g.db.WithContext(ctx).
		Model(&qrRow{}).
		Where("event_id = ? AND id = ? AND status = ?", eventID, id, string(model.QRStatusActive)).
		Updates(map[string]any{
			"status":  string(model.QRStatusUsed),
			"is_used": true,
			"used_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := g.GetQR(ctx, eventID, id); err != nil {
			return err
		}
	}
	return nil
}

func (g *GormBackend) DeleteQR(ctx context.Context, eventID, id string) error {
	return affected(g.db.WithContext(ctx).
		Where("event_id = ? AND id = ?", eventID, id).
		Delete(&qrRow{}))
}

func (g *GormBackend) InsertEntry(ctx context.Context, eventID string, entry model.ScannedEntryRecord) error {
	row := newEntryRow(eventID, entry)
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (g *GormBackend) ListEntries(ctx context.Context, eventID string) ([]model.ScannedEntryRecord, error) {
	var rows []entryRow
	if err := g.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("entry_time DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.ScannedEntryRecord, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (g *GormBackend) DeleteEntry(ctx context.Context, eventID, id string) error {
	return affected(g.db.WithContext(ctx).
		Where("event_id = ? AND id = ?", eventID, id).
		Delete(&entryRow{}))
}

func (g *GormBackend) Statistics(ctx context.Context, eventID string) (model.Statistics, error) {
	var stats model.Statistics
	count := func(m any, query string, args ...any) (int, error) {
		var n int64
		err := g.db.WithContext(ctx).Model(m).Where(query, args...).Count(&n).Error
		return int(n), err
	}
	var err error
	if stats.TotalRSVP, err = count(&rsvpRow{}, "event_id = ?", eventID); err != nil {
		return stats, err
	}
	if stats.Yes, err = count(&rsvpRow{}, "event_id = ? AND response = ?", eventID, string(model.ResponseYes)); err != nil {
		return stats, err
	}
	if stats.No, err = count(&rsvpRow{}, "event_id = ? AND response = ?", eventID, string(model.ResponseNo)); err != nil {
		return stats, err
	}
	if stats.Maybe, err = count(&rsvpRow{}, "event_id = ? AND response = ?", eventID, string(model.ResponseMaybe)); err != nil {
		return stats, err
	}
	if stats.Guestbook, err = count(&guestbookRow{}, "event_id = ?", eventID); err != nil {
		return stats, err
	}
	if stats.QRGenerated, err = count(&qrRow{}, "event_id = ?", eventID); err != nil {
		return stats, err
	}
	if stats.QRUsed, err = count(&qrRow{}, "event_id = ? AND is_used = ?", eventID, true); err != nil {
		return stats, err
	}
	return stats, nil
}
