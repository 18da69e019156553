package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"chama-ledger.backend/internal/domain/entities"
)

// Config holds all configuration values
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Ledger      LedgerConfig
	Fees        FeesConfig
	Paystack    PaystackConfig
	Settlement  SettlementConfig
	Leaderboard LeaderboardConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
	// AllowedOrigins lists the browser origins granted CORS access. "*" allows any origin without credentials.
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds identity token configuration
type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// LedgerConfig holds ledger-wide settings
type LedgerConfig struct {
	Currency string
	// PlatformWalletID receives collected fees. uuid.Nil means fees leave the ledger.
	PlatformWalletID    uuid.UUID
	AllowAdminOverride  bool
	TransientRetryDelay time.Duration
}

// FeesConfig overrides the default fee schedule
type FeesConfig struct {
	SendThreshold      entities.Money
	SendLowFee         entities.Money
	SendHighFee        entities.Money
	DepositBps         int64
	ConversionBps      int64
	MobileMoneyBps     int64
	MobileMoneyMin     entities.Money
	MobileMoneyMax     entities.Money
	BankWithdrawalFlat entities.Money
}

// PaystackConfig holds payment gateway credentials
type PaystackConfig struct {
	SecretKey   string
	BaseURL     string
	CallbackURL string
	Timeout     time.Duration
}

// SettlementConfig controls how pending deposits are surfaced and re-verified
type SettlementConfig struct {
	PendingWindow    time.Duration
	ReverifyInterval time.Duration
	BatchSize        int
}

// LeaderboardConfig holds leaderboard cache settings
type LeaderboardConfig struct {
	CacheTTL time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("SERVER_ENV", "development"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvAsInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "chama_ledger"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-this-in-production"),
			Expiry: getEnvAsDuration("JWT_EXPIRY", 24*time.Hour),
		},
		Ledger: LedgerConfig{
			Currency:            strings.ToUpper(getEnv("LEDGER_CURRENCY", "KES")),
			PlatformWalletID:    getEnvAsUUID("LEDGER_PLATFORM_WALLET_ID"),
			AllowAdminOverride:  getEnvAsBool("LEDGER_ALLOW_ADMIN_OVERRIDE", true),
			TransientRetryDelay: getEnvAsDuration("LEDGER_RETRY_DELAY", 50*time.Millisecond),
		},
		Fees: FeesConfig{
			SendThreshold:      getEnvAsMoney("FEE_SEND_THRESHOLD", entities.Major(1000)),
			SendLowFee:         getEnvAsMoney("FEE_SEND_LOW", entities.Major(5)),
			SendHighFee:        getEnvAsMoney("FEE_SEND_HIGH", entities.Major(10)),
			DepositBps:         int64(getEnvAsInt("FEE_DEPOSIT_BPS", 250)),
			ConversionBps:      int64(getEnvAsInt("FEE_CONVERSION_BPS", 50)),
			MobileMoneyBps:     int64(getEnvAsInt("FEE_WITHDRAW_MOBILE_BPS", 100)),
			MobileMoneyMin:     getEnvAsMoney("FEE_WITHDRAW_MOBILE_MIN", entities.Major(10)),
			MobileMoneyMax:     getEnvAsMoney("FEE_WITHDRAW_MOBILE_MAX", entities.Major(1000)),
			BankWithdrawalFlat: getEnvAsMoney("FEE_WITHDRAW_BANK_FLAT", entities.Major(50)),
		},
		Paystack: PaystackConfig{
			SecretKey:   getEnv("PAYSTACK_SECRET_KEY", ""),
			BaseURL:     getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			CallbackURL: getEnv("PAYSTACK_CALLBACK_URL", ""),
			Timeout:     getEnvAsDuration("PAYSTACK_TIMEOUT", 15*time.Second),
		},
		Settlement: SettlementConfig{
			PendingWindow:    getEnvAsDuration("SETTLEMENT_PENDING_WINDOW", 5*time.Minute),
			ReverifyInterval: getEnvAsDuration("SETTLEMENT_REVERIFY_INTERVAL", time.Minute),
			BatchSize:        getEnvAsInt("SETTLEMENT_BATCH_SIZE", 50),
		},
		Leaderboard: LeaderboardConfig{
			CacheTTL: getEnvAsDuration("LEADERBOARD_CACHE_TTL", 10*time.Minute),
		},
	}
}

// FeeSchedule builds the fee table from the configured values
func (c FeesConfig) FeeSchedule() entities.FeeSchedule {
	schedule := entities.DefaultFeeSchedule()
	schedule.Rules[entities.TransactionTypeTransfer] = entities.FeeRule{
		Kind: entities.FeeKindTiered,
		Tiers: []entities.FeeTier{
			{Below: c.SendThreshold, Fee: c.SendLowFee},
			{Fee: c.SendHighFee},
		},
		Payer: entities.FeePayerSender,
	}
	schedule.Rules[entities.TransactionTypeDeposit] = entities.FeeRule{
		Kind: entities.FeeKindPercentage, Bps: c.DepositBps, Payer: entities.FeePayerMovement,
	}
	schedule.Rules[entities.TransactionTypeConversion] = entities.FeeRule{
		Kind: entities.FeeKindPercentage, Bps: c.ConversionBps, Payer: entities.FeePayerSender,
	}
	schedule.Withdrawals["mobile_money"] = entities.FeeRule{
		Kind: entities.FeeKindPercentage, Bps: c.MobileMoneyBps,
		Min: c.MobileMoneyMin, Max: c.MobileMoneyMax, Payer: entities.FeePayerSender,
	}
	schedule.Withdrawals["bank"] = entities.FeeRule{
		Kind: entities.FeeKindFlat, Flat: c.BankWithdrawalFlat, Payer: entities.FeePayerSender,
	}
	return schedule
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsMoney(key string, defaultValue entities.Money) entities.Money {
	if value := os.Getenv(key); value != "" {
		if m, err := entities.ParseMoney(value); err == nil && m >= 0 {
			return m
		}
	}
	return defaultValue
}

func getEnvAsUUID(key string) uuid.UUID {
	if value := os.Getenv(key); value != "" {
		if id, err := uuid.Parse(value); err == nil {
			return id
		}
	}
	return uuid.Nil
}
