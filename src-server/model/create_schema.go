package model

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
)

func CreateSchema(ctx context.Context, db *bun.DB) error {
	if err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range []interface{}{
			(*KVEntry)(nil),
			(*Admin)(nil),
		} {
			if _, err := tx.
				NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("CreateSchema: %w", err)
	}

	return nil
}

// SeedAdmins upserts every id:password pair, re-hashing on each start so
// rotated passwords in the environment take effect.
func SeedAdmins(ctx context.Context, db bun.IDB, accounts map[string]string) error {
	for id, password := range accounts {
		admin, err := NewAdmin(id, password)
		if err != nil {
			return fmt.Errorf("SeedAdmins: %w", err)
		}
		if err := admin.Upsert(ctx, db); err != nil {
			return fmt.Errorf("SeedAdmins: %w", err)
		}
	}
	return nil
}
