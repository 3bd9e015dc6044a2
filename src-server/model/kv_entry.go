package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// KVEntry backs the local key-value store.
type KVEntry struct {
	bun.BaseModel `bun:"table:kv_entries"`

	Name      string `bun:"name,pk"`            // required
	Data      []byte `bun:"data,notnull"`       // required
	UpdatedAt int64  `bun:"updated_at,notnull"` // unix millis
}

func (e *KVEntry) Upsert(ctx context.Context, db bun.IDB) error {
	if e.Name == "" {
		return fmt.Errorf("(*KVEntry).Upsert: name is blank")
	}
	if e.UpdatedAt == 0 {
		e.UpdatedAt = time.Now().UTC().UnixMilli()
	}
	if _, err := db.NewInsert().
		Model(e).
		On("CONFLICT (name) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*KVEntry).Upsert: %w", err)
	}
	return nil
}
