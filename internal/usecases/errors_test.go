package usecases_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/usecases"
	"chama-ledger.backend/pkg/crypto"
)

func TestToAppError(t *testing.T) {
	assert.Nil(t, usecases.ToAppError(nil))

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"wrapped insufficient funds", fmt.Errorf("debit: %w", domainerrors.ErrInsufficientFunds), http.StatusUnprocessableEntity, domainerrors.CodeInsufficientFunds},
		{"locked", domainerrors.ErrWalletLocked, http.StatusLocked, domainerrors.CodeWalletLocked},
		{"transfer failed", fmt.Errorf("%w: timeout", domainerrors.ErrTransferFailed), http.StatusServiceUnavailable, domainerrors.CodeTransferFailed},
		{"gateway", domainerrors.ErrGatewayUnavailable, http.StatusBadGateway, domainerrors.CodeGatewayUnavailable},
		{"duplicate reference", domainerrors.ErrDuplicateExternalReference, http.StatusConflict, domainerrors.CodeConflict},
		{"already exists", domainerrors.ErrAlreadyExists, http.StatusConflict, domainerrors.CodeConflict},
		{"not found", domainerrors.ErrNotFound, http.StatusNotFound, domainerrors.CodeNotFound},
		{"invalid input", fmt.Errorf("%w: bad", domainerrors.ErrInvalidInput), http.StatusBadRequest, domainerrors.CodeInvalidInput},
		{"pin format", crypto.ErrInvalidPinFormat, http.StatusBadRequest, domainerrors.CodeInvalidInput},
		{"forbidden", domainerrors.ErrForbidden, http.StatusForbidden, domainerrors.CodeForbidden},
		{"unauthorized", domainerrors.ErrUnauthorized, http.StatusUnauthorized, domainerrors.CodeUnauthorized},
		{"app error passes through", domainerrors.Conflict("key reused"), http.StatusConflict, domainerrors.CodeConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, domainerrors.CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := usecases.ToAppError(tt.err)
			assert.Equal(t, tt.status, appErr.Status)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}
