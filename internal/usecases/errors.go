package usecases

import (
	"errors"

	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/pkg/crypto"
)

// ToAppError translates usecase errors into transport errors
func ToAppError(err error) *domainerrors.AppError {
	if err == nil {
		return nil
	}

	var appErr *domainerrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if ledgerErr := domainerrors.FromLedgerError(err); ledgerErr != nil {
		return ledgerErr
	}

	switch {
	case errors.Is(err, domainerrors.ErrDuplicateExternalReference):
		return domainerrors.Conflict("external reference already processed")
	case errors.Is(err, domainerrors.ErrAlreadyExists):
		return domainerrors.Conflict(err.Error())
	case errors.Is(err, domainerrors.ErrNotFound):
		return domainerrors.NotFound(err.Error())
	case errors.Is(err, domainerrors.ErrInvalidInput), errors.Is(err, domainerrors.ErrBadRequest),
		errors.Is(err, crypto.ErrInvalidPinFormat):
		return domainerrors.BadRequest(err.Error())
	case errors.Is(err, domainerrors.ErrUnauthorized):
		return domainerrors.Unauthorized(err.Error())
	case errors.Is(err, domainerrors.ErrForbidden):
		return domainerrors.Forbidden(err.Error())
	}
	return domainerrors.InternalError(err)
}
