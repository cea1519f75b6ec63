package safetyrecord

import (
	"errors"

	safetyrecorderrors "go-safety/internal/safetyrecord/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return safetyrecorderrors.ErrRecordNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return safetyrecorderrors.ErrRecordAlreadyExists
		case "22P02":
			// invalid_text_representation, e.g. a malformed uuid
			return safetyrecorderrors.ErrRecordNotFound
		}
	}

	return err
}
