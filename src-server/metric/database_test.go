package metric_test

import (
	"context"
	"database/sql"
	"invitation/src-server/metric"
	"invitation/src-server/model"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func TestAdminLookup(t *testing.T) {
	ctx := context.Background()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })
	if err := model.CreateSchema(ctx, db); err != nil {
		t.Fatal(err)
	}

	if _, n, err := metric.AdminLookup(ctx, db); err != nil || n != 0 {
		t.Fatal("fresh database should have no admins", n, err)
	}
	if err := model.SeedAdmins(ctx, db, map[string]string{"admin": "hunter22", "host": "pw123456"}); err != nil {
		t.Fatal(err)
	}
	latency, n, err := metric.AdminLookup(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Error("expected 2 admins, got", n)
	}
	if latency < 0 {
		t.Error("negative latency", latency)
	}
}
