package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chama-ledger.backend/internal/domain/entities"
	"chama-ledger.backend/internal/interfaces/http/middleware"
	"chama-ledger.backend/internal/usecases"
	"chama-ledger.backend/pkg/utils"
)

type walletServiceStub struct {
	createFn     func(context.Context, *entities.CreateWalletInput, entities.Actor) (*entities.Wallet, error)
	listFn       func(context.Context, entities.Actor) ([]*entities.Wallet, error)
	getFn        func(context.Context, uuid.UUID, entities.Actor) (*entities.Wallet, error)
	permsFn      func(context.Context, uuid.UUID, entities.WalletPermissions, entities.Actor) (*entities.Wallet, error)
	pinFn        func(context.Context, uuid.UUID, *entities.SetPinInput, entities.Actor) error
	deactivateFn func(context.Context, uuid.UUID, entities.Actor) error
	listTxFn     func(context.Context, uuid.UUID, utils.PaginationParams, entities.Actor) ([]*entities.TransactionView, int64, error)
	getTxFn      func(context.Context, uuid.UUID, entities.Actor) (*entities.TransactionView, error)
}

func (s walletServiceStub) CreateWallet(ctx context.Context, in *entities.CreateWalletInput, a entities.Actor) (*entities.Wallet, error) {
	return s.createFn(ctx, in, a)
}

func (s walletServiceStub) ListWallets(ctx context.Context, a entities.Actor) ([]*entities.Wallet, error) {
	return s.listFn(ctx, a)
}

func (s walletServiceStub) GetWallet(ctx context.Context, id uuid.UUID, a entities.Actor) (*entities.Wallet, error) {
	return s.getFn(ctx, id, a)
}

func (s walletServiceStub) UpdatePermissions(ctx context.Context, id uuid.UUID, p entities.WalletPermissions, a entities.Actor) (*entities.Wallet, error) {
	return s.permsFn(ctx, id, p, a)
}

func (s walletServiceStub) SetPin(ctx context.Context, id uuid.UUID, in *entities.SetPinInput, a entities.Actor) error {
	return s.pinFn(ctx, id, in, a)
}

func (s walletServiceStub) Deactivate(ctx context.Context, id uuid.UUID, a entities.Actor) error {
	return s.deactivateFn(ctx, id, a)
}

func (s walletServiceStub) ListTransactions(ctx context.Context, id uuid.UUID, p utils.PaginationParams, a entities.Actor) ([]*entities.TransactionView, int64, error) {
	return s.listTxFn(ctx, id, p, a)
}

func (s walletServiceStub) GetTransaction(ctx context.Context, id uuid.UUID, a entities.Actor) (*entities.TransactionView, error) {
	return s.getTxFn(ctx, id, a)
}

type balanceServiceStub struct {
	balanceFn func(context.Context, uuid.UUID, entities.Actor) (*entities.Wallet, error)
	lockFn    func(context.Context, uuid.UUID, bool, entities.Actor) (*entities.Wallet, error)
}

func (s balanceServiceStub) GetBalanceFor(ctx context.Context, id uuid.UUID, a entities.Actor) (*entities.Wallet, error) {
	return s.balanceFn(ctx, id, a)
}

func (s balanceServiceStub) SetLock(ctx context.Context, id uuid.UUID, locked bool, a entities.Actor) (*entities.Wallet, error) {
	return s.lockFn(ctx, id, locked, a)
}

type transferServiceStub struct {
	transferFn func(context.Context, usecases.TransferInput) (*entities.Transaction, error)
	withdrawFn func(context.Context, uuid.UUID, *entities.WithdrawRequest, entities.Actor, string) (*entities.Transaction, error)
}

func (s transferServiceStub) Transfer(ctx context.Context, in usecases.TransferInput) (*entities.Transaction, error) {
	return s.transferFn(ctx, in)
}

func (s transferServiceStub) Withdraw(ctx context.Context, id uuid.UUID, req *entities.WithdrawRequest, a entities.Actor, key string) (*entities.Transaction, error) {
	return s.withdrawFn(ctx, id, req, a, key)
}

type settlementServiceStub struct {
	initFn    func(context.Context, usecases.InitializePaymentInput) (*entities.InitializePaymentResult, error)
	verifyFn  func(context.Context, string, entities.Actor) (*entities.TransactionView, error)
	webhookFn func(context.Context, []byte, string) error
}

func (s settlementServiceStub) Initialize(ctx context.Context, in usecases.InitializePaymentInput) (*entities.InitializePaymentResult, error) {
	return s.initFn(ctx, in)
}

func (s settlementServiceStub) Verify(ctx context.Context, ref string, a entities.Actor) (*entities.TransactionView, error) {
	return s.verifyFn(ctx, ref, a)
}

func (s settlementServiceStub) HandleWebhook(ctx context.Context, payload []byte, sig string) error {
	return s.webhookFn(ctx, payload, sig)
}

type chamaServiceStub struct {
	addFn  func(context.Context, uuid.UUID, *entities.AddMemberInput, entities.Actor) (*entities.ChamaMember, error)
	listFn func(context.Context, uuid.UUID, entities.Actor) ([]*entities.ChamaMember, error)
}

func (s chamaServiceStub) AddMember(ctx context.Context, id uuid.UUID, in *entities.AddMemberInput, a entities.Actor) (*entities.ChamaMember, error) {
	return s.addFn(ctx, id, in, a)
}

func (s chamaServiceStub) ListMembers(ctx context.Context, id uuid.UUID, a entities.Actor) ([]*entities.ChamaMember, error) {
	return s.listFn(ctx, id, a)
}

type leaderboardServiceStub struct {
	getFn       func(context.Context, uuid.UUID, entities.Actor) ([]*entities.LeaderboardEntry, error)
	recomputeFn func(context.Context, uuid.UUID, entities.Actor) ([]*entities.LeaderboardEntry, error)
}

func (s leaderboardServiceStub) Get(ctx context.Context, id uuid.UUID, a entities.Actor) ([]*entities.LeaderboardEntry, error) {
	return s.getFn(ctx, id, a)
}

func (s leaderboardServiceStub) RecomputeFor(ctx context.Context, id uuid.UUID, a entities.Actor) ([]*entities.LeaderboardEntry, error) {
	return s.recomputeFn(ctx, id, a)
}

// withActor mimics AuthMiddleware for handler tests
func withActor(userID uuid.UUID, role entities.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.UserRoleKey, string(role))
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
