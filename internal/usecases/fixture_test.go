package usecases_test

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"chama-ledger.backend/internal/domain/entities"
	domainrepos "chama-ledger.backend/internal/domain/repositories"
	"chama-ledger.backend/internal/infrastructure/models"
	"chama-ledger.backend/internal/infrastructure/repositories"
	"chama-ledger.backend/internal/usecases"
)

const testCurrency = "KES"

// ledgerFixture wires the usecases against an in-memory SQLite ledger
type ledgerFixture struct {
	db       *gorm.DB
	uow      domainrepos.UnitOfWork
	wallets  *repositories.WalletRepository
	txs      *repositories.TransactionRepository
	entries  *repositories.LedgerEntryRepository
	members  *repositories.ChamaMemberRepository
	boards   *repositories.LeaderboardRepository
	store    *usecases.WalletStore
	fees     *usecases.FeeCalculator
	platform *entities.Wallet
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))

	f := &ledgerFixture{
		db:      db,
		uow:     repositories.NewUnitOfWork(db),
		wallets: repositories.NewWalletRepository(db),
		txs:     repositories.NewTransactionRepository(db),
		entries: repositories.NewLedgerEntryRepository(db),
		members: repositories.NewChamaMemberRepository(db),
		boards:  repositories.NewLeaderboardRepository(db),
		fees:    usecases.NewFeeCalculator(entities.DefaultFeeSchedule()),
	}
	f.store = usecases.NewWalletStore(f.uow, f.wallets, f.entries, f.members)

	f.platform = &entities.Wallet{
		ID:          uuid.New(),
		OwnerID:     uuid.Nil,
		OwnerType:   entities.OwnerTypePlatform,
		Name:        "fees",
		Type:        entities.WalletTypePlatform,
		Currency:    testCurrency,
		IsActive:    true,
		Permissions: entities.FullPermissions(),
	}
	require.NoError(t, f.wallets.Create(context.Background(), f.platform))
	return f
}

func (f *ledgerFixture) engine(opts usecases.TransferOptions) *usecases.TransferEngine {
	if opts.PlatformWalletID == uuid.Nil {
		opts.PlatformWalletID = f.platform.ID
	}
	return usecases.NewTransferEngine(f.uow, f.wallets, f.txs, f.members, f.store, f.fees, opts)
}

func (f *ledgerFixture) wallet(t *testing.T, owner uuid.UUID, walletType entities.WalletType, balance entities.Money, opts ...func(*entities.Wallet)) *entities.Wallet {
	t.Helper()
	w := &entities.Wallet{
		ID:          uuid.New(),
		OwnerID:     owner,
		OwnerType:   entities.OwnerTypeUser,
		Name:        string(walletType),
		Type:        walletType,
		Balance:     balance,
		Currency:    testCurrency,
		IsActive:    true,
		Permissions: entities.FullPermissions(),
	}
	for _, opt := range opts {
		opt(w)
	}
	require.NoError(t, f.wallets.Create(context.Background(), w))
	return w
}

func (f *ledgerFixture) member(t *testing.T, chamaID, userID uuid.UUID, role entities.ChamaRole) *entities.ChamaMember {
	t.Helper()
	m := &entities.ChamaMember{
		ID:       uuid.New(),
		ChamaID:  chamaID,
		UserID:   userID,
		Role:     role,
		IsActive: true,
		JoinedAt: time.Now(),
	}
	require.NoError(t, f.members.Create(context.Background(), m))
	return m
}

func (f *ledgerFixture) balance(t *testing.T, id uuid.UUID) entities.Money {
	t.Helper()
	b, err := f.store.GetBalance(context.Background(), id)
	require.NoError(t, err)
	return b
}

// total sums every wallet balance; internal movements must leave it unchanged
func (f *ledgerFixture) total(t *testing.T) entities.Money {
	t.Helper()
	var sum int64
	require.NoError(t, f.db.Model(&models.Wallet{}).Select("COALESCE(SUM(balance), 0)").Scan(&sum).Error)
	return entities.Money(sum)
}

func (f *ledgerFixture) countTransactions(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Transaction{}).Count(&n).Error)
	return n
}

func chamaWallet(chamaID uuid.UUID) func(*entities.Wallet) {
	return func(w *entities.Wallet) {
		w.OwnerID = chamaID
		w.OwnerType = entities.OwnerTypeChama
		w.ChamaID = &chamaID
	}
}

func scopedTo(chamaID uuid.UUID) func(*entities.Wallet) {
	return func(w *entities.Wallet) { w.ChamaID = &chamaID }
}

func locked(w *entities.Wallet) { w.IsLocked = true }

func withPin(t *testing.T, pin string) func(*entities.Wallet) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	require.NoError(t, err)
	return func(w *entities.Wallet) { w.PinHash = string(hash) }
}

func userActor(id uuid.UUID) entities.Actor {
	return entities.Actor{UserID: id, Role: entities.UserRoleUser}
}

func adminActor() entities.Actor {
	return entities.Actor{UserID: uuid.New(), Role: entities.UserRoleAdmin}
}

var keySeq atomic.Int64

func newKey(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, keySeq.Add(1))
}
