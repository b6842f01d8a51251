package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
)

// Postgres SQLSTATE codes that mean another writer got in the way
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// translateError maps driver errors onto the domain taxonomy
func translateError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return fmt.Errorf("%w: %s", domain.ErrConcurrentModification, pgErr.Message)
		}
	}
	return err
}

// AutoMigrate creates or updates every table the dispensary owns
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Drug{},
		&domain.Location{},
		&domain.Lot{},
		&domain.Unit{},
		&domain.Transaction{},
	)
}
