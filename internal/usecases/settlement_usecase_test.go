package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/usecases"
)

type stubGateway struct {
	mu             sync.Mutex
	initialized    []entities.GatewayChargeRequest
	verifyCalls    int
	InitializeFunc func(ctx context.Context, req entities.GatewayChargeRequest) (*entities.GatewayInitialization, error)
	VerifyFunc     func(ctx context.Context, reference string) (*entities.GatewayResult, error)
	SignatureOK    bool
	ParseFunc      func(payload []byte) (*entities.WebhookEvent, error)
}

func (g *stubGateway) Initialize(ctx context.Context, req entities.GatewayChargeRequest) (*entities.GatewayInitialization, error) {
	g.mu.Lock()
	g.initialized = append(g.initialized, req)
	g.mu.Unlock()
	if g.InitializeFunc != nil {
		return g.InitializeFunc(ctx, req)
	}
	return &entities.GatewayInitialization{
		Reference:        req.Reference,
		AuthorizationURL: "https://checkout.paystack.com/" + req.Reference,
		AccessCode:       "access_" + req.Reference,
	}, nil
}

func (g *stubGateway) Verify(ctx context.Context, reference string) (*entities.GatewayResult, error) {
	g.mu.Lock()
	g.verifyCalls++
	g.mu.Unlock()
	if g.VerifyFunc != nil {
		return g.VerifyFunc(ctx, reference)
	}
	return nil, errors.New("verify not stubbed")
}

func (g *stubGateway) VerifySignature([]byte, string) bool {
	return g.SignatureOK
}

func (g *stubGateway) ParseWebhook(payload []byte) (*entities.WebhookEvent, error) {
	if g.ParseFunc != nil {
		return g.ParseFunc(payload)
	}
	return nil, errors.New("parse not stubbed")
}

func (g *stubGateway) lastReference() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initialized[len(g.initialized)-1].Reference
}

func (f *ledgerFixture) settlement(gateway usecases.PaymentGateway, obs usecases.LedgerObserver) *usecases.SettlementUsecase {
	return usecases.NewSettlementUsecase(f.uow, f.wallets, f.txs, f.members, f.store, f.fees, gateway, usecases.SettlementOptions{
		PlatformWalletID: f.platform.ID,
		CallbackURL:      "https://app.example.com/payments/callback",
		PendingWindow:    5 * time.Minute,
		Observer:         obs,
	})
}

func success(reference string, amount entities.Money) entities.GatewayResult {
	return entities.GatewayResult{Reference: reference, Status: entities.GatewayStatusSuccess, Amount: amount, Currency: testCurrency}
}

func TestSettlement_Initialize(t *testing.T) {
	f := newLedgerFixture(t)
	gateway := &stubGateway{}
	svc := f.settlement(gateway, nil)
	owner := uuid.New()
	w := f.wallet(t, owner, entities.WalletTypePersonal, 0)

	res, err := svc.Initialize(context.Background(), usecases.InitializePaymentInput{
		WalletID: w.ID, Amount: entities.Major(1000), Email: "member@example.com", Actor: userActor(owner),
	})
	require.NoError(t, err)
	assert.Regexp(t, `^CHM_[0-9a-f]{32}$`, res.Reference)
	assert.Equal(t, "https://checkout.paystack.com/"+res.Reference, res.AuthorizationURL)
	assert.Equal(t, entities.TransactionStatusPending, res.Transaction.Status)
	assert.Equal(t, entities.Major(25), res.Transaction.Fee)
	assert.Equal(t, entities.Major(975), res.Transaction.NetAmount)

	require.Len(t, gateway.initialized, 1)
	req := gateway.initialized[0]
	assert.Equal(t, entities.Major(1000), req.Amount)
	assert.Equal(t, testCurrency, req.Currency)
	assert.Equal(t, "https://app.example.com/payments/callback", req.CallbackURL)
	assert.Equal(t, w.ID.String(), req.Metadata["wallet_id"])

	stored, err := f.txs.GetByExternalReference(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusPending, stored.Status)
	assert.Zero(t, f.balance(t, w.ID), "nothing is credited before the gateway confirms")
}

func TestSettlement_InitializeRejections(t *testing.T) {
	f := newLedgerFixture(t)
	gateway := &stubGateway{}
	svc := f.settlement(gateway, nil)
	owner := uuid.New()
	w := f.wallet(t, owner, entities.WalletTypePersonal, 0)
	noReceive := f.wallet(t, owner, entities.WalletTypeSubAccount, 0, func(w *entities.Wallet) {
		w.Permissions = entities.WalletPermissions{CanView: true, CanSend: true}
	})

	_, err := svc.Initialize(context.Background(), usecases.InitializePaymentInput{WalletID: w.ID, Email: "a@b.c", Actor: userActor(owner)})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidAmount)

	_, err = svc.Initialize(context.Background(), usecases.InitializePaymentInput{WalletID: w.ID, Amount: 100, Actor: userActor(owner)})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	_, err = svc.Initialize(context.Background(), usecases.InitializePaymentInput{WalletID: w.ID, Amount: 100, Email: "a@b.c", Actor: userActor(uuid.New())})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = svc.Initialize(context.Background(), usecases.InitializePaymentInput{WalletID: uuid.New(), Amount: 100, Email: "a@b.c", Actor: userActor(owner)})
	assert.ErrorIs(t, err, domainerrors.ErrWalletNotFound)

	_, err = svc.Initialize(context.Background(), usecases.InitializePaymentInput{WalletID: noReceive.ID, Amount: 100, Email: "a@b.c", Actor: userActor(owner)})
	assert.ErrorIs(t, err, domainerrors.ErrPermissionDenied)

	assert.Empty(t, gateway.initialized)
	assert.Zero(t, f.countTransactions(t))
}

func TestSettlement_InitializeGatewayFailureMarksRowFailed(t *testing.T) {
	f := newLedgerFixture(t)
	gateway := &stubGateway{
		InitializeFunc: func(context.Context, entities.GatewayChargeRequest) (*entities.GatewayInitialization, error) {
			return nil, errors.New("paystack: 503")
		},
	}
	svc := f.settlement(gateway, nil)
	owner := uuid.New()
	w := f.wallet(t, owner, entities.WalletTypePersonal, 0)

	_, err := svc.Initialize(context.Background(), usecases.InitializePaymentInput{
		WalletID: w.ID, Amount: entities.Major(10), Email: "a@b.c", Actor: userActor(owner),
	})
	require.ErrorIs(t, err, domainerrors.ErrGatewayUnavailable)

	stored, err := f.txs.GetByExternalReference(context.Background(), gateway.lastReference())
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusFailed, stored.Status)
	assert.Equal(t, "gateway initialization failed", stored.FailureReason.String)
}

func TestSettlement_ScenarioC_DuplicateCallbackCreditsOnce(t *testing.T) {
	f := newLedgerFixture(t)
	obs := newRecordingObserver()
	gateway := &stubGateway{}
	svc := f.settlement(gateway, obs)
	owner := uuid.New()
	w := f.wallet(t, owner, entities.WalletTypePersonal, 0)

	res, err := svc.Initialize(context.Background(), usecases.InitializePaymentInput{
		WalletID: w.ID, Amount: entities.Major(1000), Email: "a@b.c", Actor: userActor(owner),
	})
	require.NoError(t, err)

	first, err := svc.Reconcile(context.Background(), res.Reference, success(res.Reference, entities.Major(1000)))
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusCompleted, first.Status)

	second, err := svc.Reconcile(context.Background(), res.Reference, success(res.Reference, entities.Major(1000)))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, entities.TransactionStatusCompleted, second.Status)

	assert.Equal(t, entities.Major(975), f.balance(t, w.ID))
	assert.Equal(t, entities.Major(25), f.balance(t, f.platform.ID))
	assert.Equal(t, 1, obs.settled["completed"])
	assert.Equal(t, 1, obs.duplicates)

	entries, err := f.entries.ListByTransaction(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSettlement_ConcurrentCallbacksCreditOnce(t *testing.T) {
	f := newLedgerFixture(t)
	svc := f.settlement(&stubGateway{}, nil)
	owner := uuid.New()
	w := f.wallet(t, owner, entities.WalletTypePersonal, 0)
	res, err := svc.Initialize(context.Background(), usecases.InitializePaymentInput{
		WalletID: w.ID, Amount: entities.Major(200), Email: "a@b.c", Actor: userActor(owner),
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reconcile(context.Background(), res.Reference, success(res.Reference, entities.Major(200)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, entities.Major(195), f.balance(t, w.ID))
}

func TestSettlement_FailureIsTerminal(t *testing.T) {
	f := newLedgerFixture(t)
	obs := newRecordingObserver()
	svc := f.settlement(&stubGateway{}, obs)
	owner := uuid.New()
	w := f.wallet(t, owner, entities.WalletTypePersonal, 0)
	res, err := svc.Initialize(context.Background(), usecases.InitializePaymentInput{
		WalletID: w.ID, Amount: entities.Major(100), Email: "a@b.c", Actor: userActor(owner),
	})
	require.NoError(t, err)

	failed, err := svc.Reconcile(context.Background(), res.Reference, entities.GatewayResult{
		Reference: res.Reference, Status: entities.GatewayStatusFailed, GatewayResponse: "Declined",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusFailed, failed.Status)
	assert.Equal(t, "Declined", failed.FailureReason.String)

	late, err := svc.Reconcile(context.Background(), res.Reference, success(res.Reference, entities.Major(100)))
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusFailed, late.Status)
	assert.Zero(t, f.balance(t, w.ID))
	assert.Equal(t, 1, obs.settled["failed"])
	assert.Equal(t, 1, obs.duplicates)
}

func TestSettlement_AmountMismatchFails(t *testing.T) {
	f := newLedgerFixture(t)
	svc := f.settlement(&stubGateway{}, nil)
	owner := uuid.New()
	w := f.wallet(t, owner, entities.WalletTypePersonal, 0)
	res, err := svc.Initialize(context.Background(), usecases.InitializePaymentInput{
		WalletID: w.ID, Amount: entities.Major(100), Email: "a@b.c", Actor: userActor(owner),
	})
	require.NoError(t, err)

	tx, err := svc.Reconcile(context.Background(), res.Reference, success(res.Reference, entities.Major(1)))
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusFailed, tx.Status)
	assert.Contains(t, tx.FailureReason.String, "amount mismatch")
	assert.Zero(t, f.balance(t, w.ID))
}

func TestSettlement_PendingVerdictKeepsRowPending(t *testing.T) {
	f := newLedgerFixture(t)
	svc := f.settlement(&stubGateway{}, nil)
	owner := uuid.New()
	w := f.wallet(t, owner, entities.WalletTypePersonal, 0)
	res, err := svc.Initialize(context.Background(), usecases.InitializePaymentInput{
		WalletID: w.ID, Amount: entities.Major(100), Email: "a@b.c", Actor: userActor(owner),
	})
	require.NoError(t, err)

	tx, err := svc.Reconcile(context.Background(), res.Reference, entities.GatewayResult{
		Reference: res.Reference, Status: entities.GatewayStatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusPending, tx.Status)

	_, err = svc.Reconcile(context.Background(), "CHM_unknown", success("CHM_unknown", 1))
	assert.ErrorIs(t, err, domainerrors.ErrTransactionNotFound)
}

func TestSettlement_UnknownVerdictNeverCredits(t *testing.T) {
	f := newLedgerFixture(t)
	obs := newRecordingObserver()
	svc := f.settlement(&stubGateway{}, obs)
	owner := uuid.New()
	w := f.wallet(t, owner, entities.WalletTypePersonal, 0)
	res, err := svc.Initialize(context.Background(), usecases.InitializePaymentInput{
		WalletID: w.ID, Amount: entities.Major(1000), Email: "a@b.c", Actor: userActor(owner),
	})
	require.NoError(t, err)

	for _, status := range []entities.GatewayStatus{"abandoned", "SUCCESS", "succes"} {
		result := success(res.Reference, entities.Major(1000))
		result.Status = status
		tx, err := svc.Reconcile(context.Background(), res.Reference, result)
		require.ErrorIs(t, err, domainerrors.ErrInvalidInput, string(status))
		assert.Nil(t, tx)
	}

	stored, err := f.txs.GetByExternalReference(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusPending, stored.Status)
	assert.Zero(t, f.balance(t, w.ID))
	assert.Zero(t, f.balance(t, f.platform.ID))
	assert.Empty(t, obs.settled)

	tx, err := svc.Reconcile(context.Background(), res.Reference, success(res.Reference, entities.Major(1000)))
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusCompleted, tx.Status)
	assert.Equal(t, entities.Major(975), f.balance(t, w.ID))
}

func TestSettlement_Verify(t *testing.T) {
	f := newLedgerFixture(t)
	gateway := &stubGateway{}
	svc := f.settlement(gateway, nil)
	owner := uuid.New()
	w := f.wallet(t, owner, entities.WalletTypePersonal, 0)
	res, err := svc.Initialize(context.Background(), usecases.InitializePaymentInput{
		WalletID: w.ID, Amount: entities.Major(1000), Email: "a@b.c", Actor: userActor(owner),
	})
	require.NoError(t, err)

	gateway.VerifyFunc = func(context.Context, string) (*entities.GatewayResult, error) {
		return nil, errors.New("timeout")
	}
	view, err := svc.Verify(context.Background(), res.Reference, userActor(owner))
	require.NoError(t, err, "an unreachable gateway leaves the deposit pending")
	assert.Equal(t, string(entities.TransactionStatusPending), view.DisplayStatus)

	_, err = svc.Verify(context.Background(), res.Reference, userActor(uuid.New()))
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	gateway.VerifyFunc = func(_ context.Context, reference string) (*entities.GatewayResult, error) {
		r := success(reference, entities.Major(1000))
		return &r, nil
	}
	view, err = svc.Verify(context.Background(), res.Reference, userActor(owner))
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusCompleted, view.Status)
	assert.Equal(t, entities.Major(975), f.balance(t, w.ID))

	calls := gateway.verifyCalls
	view, err = svc.Verify(context.Background(), res.Reference, adminActor())
	require.NoError(t, err)
	assert.Equal(t, string(entities.TransactionStatusCompleted), view.DisplayStatus)
	assert.Equal(t, calls, gateway.verifyCalls, "terminal rows are not re-checked")
}

func TestSettlement_HandleWebhook(t *testing.T) {
	f := newLedgerFixture(t)
	gateway := &stubGateway{SignatureOK: true}
	svc := f.settlement(gateway, nil)
	owner := uuid.New()
	w := f.wallet(t, owner, entities.WalletTypePersonal, 0)
	res, err := svc.Initialize(context.Background(), usecases.InitializePaymentInput{
		WalletID: w.ID, Amount: entities.Major(1000), Email: "a@b.c", Actor: userActor(owner),
	})
	require.NoError(t, err)

	event := &entities.WebhookEvent{Event: "charge.success", Result: success(res.Reference, entities.Major(1000))}
	gateway.ParseFunc = func([]byte) (*entities.WebhookEvent, error) { return event, nil }

	t.Run("bad signature", func(t *testing.T) {
		gateway.SignatureOK = false
		defer func() { gateway.SignatureOK = true }()
		err := svc.HandleWebhook(context.Background(), []byte(`{}`), "bad")
		assert.ErrorIs(t, err, domainerrors.ErrInvalidSignature)
		assert.Zero(t, f.balance(t, w.ID))
	})

	t.Run("ignored event", func(t *testing.T) {
		event = &entities.WebhookEvent{Event: "transfer.success", Result: success(res.Reference, entities.Major(1000))}
		require.NoError(t, svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"))
		assert.Zero(t, f.balance(t, w.ID))
	})

	t.Run("unknown reference", func(t *testing.T) {
		event = &entities.WebhookEvent{Event: "charge.success", Result: success("CHM_nope", entities.Major(1))}
		require.NoError(t, svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"))
	})

	t.Run("charge success applied once", func(t *testing.T) {
		event = &entities.WebhookEvent{Event: "charge.success", Result: success(res.Reference, entities.Major(1000))}
		require.NoError(t, svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"))
		require.NoError(t, svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"))
		assert.Equal(t, entities.Major(975), f.balance(t, w.ID))
	})

	t.Run("parse error", func(t *testing.T) {
		gateway.ParseFunc = func([]byte) (*entities.WebhookEvent, error) { return nil, errors.New("bad json") }
		assert.Error(t, svc.HandleWebhook(context.Background(), []byte(`{`), "sig"))
	})
}

func TestSettlement_ChargeFailedWebhook(t *testing.T) {
	f := newLedgerFixture(t)
	gateway := &stubGateway{SignatureOK: true}
	svc := f.settlement(gateway, nil)
	owner := uuid.New()
	w := f.wallet(t, owner, entities.WalletTypePersonal, 0)
	res, err := svc.Initialize(context.Background(), usecases.InitializePaymentInput{
		WalletID: w.ID, Amount: entities.Major(50), Email: "a@b.c", Actor: userActor(owner),
	})
	require.NoError(t, err)

	gateway.ParseFunc = func([]byte) (*entities.WebhookEvent, error) {
		return &entities.WebhookEvent{Event: "charge.failed", Result: entities.GatewayResult{Reference: res.Reference, Amount: entities.Major(50)}}, nil
	}
	require.NoError(t, svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"))

	stored, err := f.txs.GetByExternalReference(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusFailed, stored.Status)
	assert.Zero(t, f.balance(t, w.ID))
}

func TestSettlement_ReverifyPending(t *testing.T) {
	f := newLedgerFixture(t)
	obs := newRecordingObserver()
	gateway := &stubGateway{}
	svc := f.settlement(gateway, obs)
	owner := uuid.New()
	w := f.wallet(t, owner, entities.WalletTypePersonal, 0)

	stale := func(reference string, amount entities.Money) {
		require.NoError(t, f.txs.Create(context.Background(), &entities.Transaction{
			ID:                uuid.New(),
			IdempotencyKey:    reference,
			ToWalletID:        &w.ID,
			Amount:            amount,
			Currency:          testCurrency,
			Type:              entities.TransactionTypeDeposit,
			Status:            entities.TransactionStatusPending,
			ExternalReference: null.StringFrom(reference),
			InitiatedBy:       &owner,
			CreatedAt:         time.Now().Add(-time.Hour),
		}))
	}
	stale("CHM_paid", entities.Major(100))
	stale("CHM_waiting", entities.Major(100))
	stale("CHM_unreachable", entities.Major(100))

	gateway.VerifyFunc = func(_ context.Context, reference string) (*entities.GatewayResult, error) {
		switch reference {
		case "CHM_paid":
			r := success(reference, entities.Major(100))
			return &r, nil
		case "CHM_waiting":
			return &entities.GatewayResult{Reference: reference, Status: entities.GatewayStatusPending}, nil
		}
		return nil, errors.New("timeout")
	}

	resolved, err := svc.ReverifyPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, 1, obs.reverified)
	assert.Equal(t, entities.MustMoney("97.50"), f.balance(t, w.ID))

	for _, ref := range []string{"CHM_waiting", "CHM_unreachable"} {
		tx, err := f.txs.GetByExternalReference(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, entities.TransactionStatusPending, tx.Status, "pending rows are never failed on a timer")
	}

	view, err := svc.Verify(context.Background(), "CHM_waiting", userActor(owner))
	require.NoError(t, err)
	assert.Equal(t, entities.DisplayStillProcessing, view.DisplayStatus)
}
