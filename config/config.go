package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	CORSOrigins []string

	// Ledger
	RPCURL              string
	FactoryAddress      common.Address
	TokenAddress        common.Address
	GasMultiplier       float64
	ReceiptPollInterval time.Duration
	FetchConcurrency    int

	// Wallet, either a raw key or a keystore account
	PrivateKey         string
	KeystoreDir        string
	KeystoreAccount    common.Address
	KeystorePassphrase string
	WatchAddress       common.Address

	// Journal, disabled when empty
	DatabaseURL string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using default environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		RPCURL:              getEnv("RPC_URL", "http://127.0.0.1:8545"),
		GasMultiplier:       getEnvFloat("GAS_MULTIPLIER", 1.2),
		ReceiptPollInterval: parseDuration(getEnv("RECEIPT_POLL_INTERVAL", "2s"), 2*time.Second),
		FetchConcurrency:    getEnvInt("FETCH_CONCURRENCY", 8),

		PrivateKey:         strings.TrimPrefix(getEnv("PRIVATE_KEY", ""), "0x"),
		KeystoreDir:        getEnv("KEYSTORE_DIR", ""),
		KeystorePassphrase: getEnv("KEYSTORE_PASSPHRASE", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
	}

	var err error
	if config.FactoryAddress, err = getEnvAddress("FACTORY_ADDRESS", true); err != nil {
		return nil, err
	}
	if config.TokenAddress, err = getEnvAddress("TOKEN_ADDRESS", false); err != nil {
		return nil, err
	}
	if config.KeystoreAccount, err = getEnvAddress("KEYSTORE_ACCOUNT", false); err != nil {
		return nil, err
	}
	if config.WatchAddress, err = getEnvAddress("WATCH_ADDRESS", false); err != nil {
		return nil, err
	}
	if config.KeystoreDir != "" && config.KeystoreAccount == (common.Address{}) {
		return nil, fmt.Errorf("KEYSTORE_ACCOUNT is required when KEYSTORE_DIR is set")
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value < 1 {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || value < 1 {
		return defaultValue
	}
	return value
}

func getEnvAddress(key string, required bool) (common.Address, error) {
	value := os.Getenv(key)
	if value == "" {
		if required {
			return common.Address{}, fmt.Errorf("%s is required", key)
		}
		return common.Address{}, nil
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s is not a valid address: %q", key, value)
	}
	return common.HexToAddress(value), nil
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil || duration <= 0 {
		return defaultValue
	}
	return duration
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
