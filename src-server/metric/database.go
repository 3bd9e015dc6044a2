package metric

import (
	"context"
	"invitation/src-server/model"
	"time"

	"github.com/uptrace/bun"
)

// AdminLookup counts the admin accounts able to sign in, timing the query
// a login runs against the same table.
func AdminLookup(ctx context.Context, db bun.IDB) (time.Duration, int, error) {
	start := time.Now()
	n, err := db.NewSelect().
		Model((*model.Admin)(nil)).
		Where("password_hash <> ''").
		Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	return time.Since(start), n, nil
}
