package service

import (
	"errors"

	"github.com/yndnr/wrought-go/internal/core/domain"
	"github.com/yndnr/wrought-go/internal/storage"
)

// translate maps a storage error into the domain taxonomy. DomainErrors
// pass through unchanged; anything unrecognised becomes ErrStorage.
func translate(err error, details string) error {
	if err == nil {
		return nil
	}

	var de *domain.DomainError
	switch {
	case errors.As(err, &de):
		return de
	case errors.Is(err, storage.ErrTableNotFound):
		return domain.ErrTableNotFound.WithDetails(details)
	case errors.Is(err, storage.ErrSnapshotNotFound):
		return domain.ErrSnapshotNotFound.WithDetails(details)
	case errors.Is(err, storage.ErrSnapshotExists):
		return domain.ErrSnapshotExists.WithDetails(details)
	default:
		return domain.ErrStorage.WithDetails(details).WithCause(err)
	}
}
