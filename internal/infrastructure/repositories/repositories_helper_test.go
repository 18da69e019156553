package repositories

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createWalletTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE wallets (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		owner_type TEXT NOT NULL,
		chama_id TEXT,
		parent_wallet_id TEXT,
		name TEXT,
		wallet_type TEXT NOT NULL,
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		currency TEXT NOT NULL,
		is_locked BOOLEAN NOT NULL,
		locked_by TEXT,
		is_active BOOLEAN NOT NULL,
		can_view BOOLEAN NOT NULL,
		can_send BOOLEAN NOT NULL,
		can_receive BOOLEAN NOT NULL,
		can_convert BOOLEAN NOT NULL,
		pin_hash TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createTransactionTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE transactions (
		id TEXT PRIMARY KEY,
		idempotency_key TEXT NOT NULL UNIQUE,
		from_wallet_id TEXT,
		to_wallet_id TEXT,
		amount INTEGER NOT NULL,
		fee INTEGER NOT NULL DEFAULT 0,
		net_amount INTEGER NOT NULL DEFAULT 0,
		currency TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		status TEXT NOT NULL,
		external_reference TEXT UNIQUE,
		method TEXT,
		initiated_by TEXT,
		failure_reason TEXT,
		metadata TEXT DEFAULT '{}',
		created_at DATETIME,
		completed_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE ledger_entries (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		wallet_id TEXT NOT NULL,
		direction TEXT NOT NULL,
		amount INTEGER NOT NULL,
		balance_after INTEGER NOT NULL,
		created_at DATETIME
	);`)
}

func createChamaTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE chama_members (
		id TEXT PRIMARY KEY,
		chama_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		total_contributions INTEGER NOT NULL DEFAULT 0,
		last_contribution_date DATETIME,
		is_active BOOLEAN NOT NULL,
		joined_at DATETIME,
		UNIQUE (chama_id, user_id)
	);`)
	mustExec(t, db, `CREATE TABLE leaderboard_entries (
		chama_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		net_worth INTEGER NOT NULL,
		rank_position INTEGER NOT NULL,
		last_contribution_date DATETIME,
		calculated_at DATETIME,
		PRIMARY KEY (chama_id, user_id)
	);`)
}
