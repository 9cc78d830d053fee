package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/quantumleap-finance/staking-service/internal/ledger"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string

	JWTSecret       string
	StartingBalance string

	// Staking plan, process-wide and read-only after startup.
	MonthlyRate      string
	DurationMonths   string
	ReturnMultiplier string

	// External boundaries.
	ExplorerURL  string
	GatewayURL   string
	KafkaBrokers string
	KafkaTopic   string

	// Scheduled dividend sync.
	DividendSyncSpec string

	// Stake principal return stays disabled until explicitly enabled.
	EnableStakeRelease bool

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	// A missing .env file is fine; system env vars still apply.
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		DBConn:   getEnv("DB_CONN", "host=localhost port=5432 user=staking password=staking dbname=staking sslmode=disable"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		JWTSecret:       getEnv("JWT_SECRET", "secret"),
		StartingBalance: getEnv("STARTING_BALANCE", "5000"),

		MonthlyRate:      getEnv("PLAN_MONTHLY_RATE", "0.05"),
		DurationMonths:   getEnv("PLAN_DURATION_MONTHS", "12"),
		ReturnMultiplier: getEnv("PLAN_RETURN_MULTIPLIER", "1.0"),

		ExplorerURL:  getEnv("EXPLORER_URL", ""),
		GatewayURL:   getEnv("GATEWAY_URL", ""),
		KafkaBrokers: getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "ledger_transactions"),

		DividendSyncSpec: getEnv("DIVIDEND_SYNC_SPEC", "@every 10m"),

		EnableStakeRelease: getEnv("ENABLE_STAKE_RELEASE", "false") == "true",

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "noreply@quantumleap.finance"),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if _, err := cfg.StakingPlan(); err != nil {
		return nil, err
	}
	if _, err := cfg.InitialBalance(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// StakingPlan parses the plan settings into a ledger.Plan.
func (c *Config) StakingPlan() (ledger.Plan, error) {
	rate, err := decimal.NewFromString(c.MonthlyRate)
	if err != nil {
		return ledger.Plan{}, fmt.Errorf("invalid PLAN_MONTHLY_RATE %q: %w", c.MonthlyRate, err)
	}
	months, err := strconv.Atoi(c.DurationMonths)
	if err != nil || months <= 0 {
		return ledger.Plan{}, fmt.Errorf("invalid PLAN_DURATION_MONTHS %q", c.DurationMonths)
	}
	multiplier, err := decimal.NewFromString(c.ReturnMultiplier)
	if err != nil {
		return ledger.Plan{}, fmt.Errorf("invalid PLAN_RETURN_MULTIPLIER %q: %w", c.ReturnMultiplier, err)
	}
	return ledger.Plan{
		MonthlyRate:      rate,
		DurationMonths:   months,
		ReturnMultiplier: multiplier,
	}, nil
}

// InitialBalance parses the starting balance every new session's ledger is
// seeded with.
func (c *Config) InitialBalance() (decimal.Decimal, error) {
	initial, err := decimal.NewFromString(c.StartingBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid STARTING_BALANCE %q: %w", c.StartingBalance, err)
	}
	return initial, nil
}

// Brokers splits KAFKA_BROKERS into its list form; empty means no Kafka.
func (c *Config) Brokers() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	return strings.Split(c.KafkaBrokers, ",")
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
