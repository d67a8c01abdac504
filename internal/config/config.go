package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/bridge"
)

// Config is everything the server needs from the environment.
type Config struct {
	HTTPAddr     string
	ChainID      string
	AdminAccount string
	// InitialGlobalRate seeds the in-memory store; ignored when Postgres
	// already holds a global rate.
	InitialGlobalRate decimal.Decimal
	// DatabaseURL selects the Postgres store when set; empty means the
	// in-memory store.
	DatabaseURL  string
	KafkaBrokers []string
	// RemoteChains is the externally supplied allowlist, formatted as
	// "chainID=ledgerAddress" pairs separated by commas.
	RemoteChains []bridge.RemoteChain
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		ChainID:      getenv("CHAIN_ID", "chain-local"),
		AdminAccount: getenv("ADMIN_ACCOUNT", "admin"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
	}

	rate, err := decimal.NewFromString(getenv("INITIAL_GLOBAL_RATE", "50000000000"))
	if err != nil {
		return Config{}, fmt.Errorf("parse INITIAL_GLOBAL_RATE: %w", err)
	}
	cfg.InitialGlobalRate = rate

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	for _, pair := range strings.Split(os.Getenv("REMOTE_CHAINS"), ",") {
		if pair == "" {
			continue
		}
		chainID, addr, found := strings.Cut(pair, "=")
		if !found {
			return Config{}, fmt.Errorf("parse REMOTE_CHAINS entry %q: want chainID=ledgerAddress", pair)
		}
		cfg.RemoteChains = append(cfg.RemoteChains, bridge.RemoteChain{
			ChainID:       chainID,
			LedgerAddress: addr,
		})
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
