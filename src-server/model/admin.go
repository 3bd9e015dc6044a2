package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid admin id or password")

type Admin struct {
	bun.BaseModel `bun:"table:admins"`

	ID           string `bun:"id,pk"`                 // required
	PasswordHash string `bun:"password_hash,notnull"` // required
	CreatedAt    int64  `bun:"created_at,notnull"`
}

func NewAdmin(id, password string) (*Admin, error) {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return nil, fmt.Errorf("NewAdmin: id is blank")
	case password == "":
		return nil, fmt.Errorf("NewAdmin: password is blank")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("NewAdmin: %w", err)
	}
	return &Admin{
		ID:           id,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC().Unix(),
	}, nil
}

func (a *Admin) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

func (a *Admin) Upsert(ctx context.Context, db bun.IDB) error {
	if a.ID == "" {
		return fmt.Errorf("(*Admin).Upsert: id is blank")
	}
	if _, err := db.NewInsert().
		Model(a).
		On("CONFLICT (id) DO UPDATE").
		Set("password_hash = EXCLUDED.password_hash").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Admin).Upsert: %w", err)
	}
	return nil
}

func AdminExists(ctx context.Context, db bun.IDB, id string) (bool, error) {
	exists, err := db.NewSelect().
		Model((*Admin)(nil)).
		Where("id = ?", id).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("AdminExists: %w", err)
	}
	return exists, nil
}

// Authenticate returns ErrInvalidCredentials for both unknown ids and wrong
// passwords.
func Authenticate(ctx context.Context, db bun.IDB, id, password string) (*Admin, error) {
	admin := new(Admin)
	if err := db.NewSelect().
		Model(admin).
		Where("id = ?", strings.TrimSpace(id)).
		Limit(1).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("Authenticate: %w", err)
	}
	if !admin.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}
