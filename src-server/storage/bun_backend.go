package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"invitation/src-server/model"
	"time"

	"github.com/uptrace/bun"
)

// BunBackend stores values in the kv_entries table of the local SQLite DB.
type BunBackend struct {
	db *bun.DB
}

func NewBunBackend(db *bun.DB) *BunBackend {
	return &BunBackend{db: db}
}

func (b *BunBackend) Read(ctx context.Context, key string) ([]byte, bool, error) {
	entry := new(model.KVEntry)
	if err := b.db.NewSelect().
		Model(entry).
		Where("name = ?", key).
		Limit(1).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("(*BunBackend).Read: %w", err)
	}
	return entry.Data, true, nil
}

func (b *BunBackend) Write(ctx context.Context, key string, data []byte) error {
	entry := &model.KVEntry{
		Name:      key,
		Data:      data,
		UpdatedAt: time.Now().UTC().UnixMilli(),
	}
	if err := entry.Upsert(ctx, b.db); err != nil {
		return fmt.Errorf("(*BunBackend).Write: %w", err)
	}
	return nil
}

func (b *BunBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.NewDelete().
		Model((*model.KVEntry)(nil)).
		Where("name = ?", key).
		Exec(ctx); err != nil {
		return fmt.Errorf("(*BunBackend).Delete: %w", err)
	}
	return nil
}

// Close is a no-op, the DB belongs to the AppState.
func (b *BunBackend) Close() error {
	return nil
}
