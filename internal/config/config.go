// Package config reads the provider's configuration from environment
// variables, with working defaults for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/halcyon-id/siws/core"
)

const (
	listenAddrVar     = "LISTEN_ADDR"
	redisURLVar       = "REDIS_URL"
	chainIDVar        = "SIWS_CHAIN_ID"
	statementVar      = "SIWS_STATEMENT"
	validityVar       = "SIWS_VALIDITY_SECONDS"
	connectTimeoutVar = "SIWS_CONNECT_TIMEOUT_MS"
	allowedWalletsVar = "SIWS_ALLOWED_WALLETS"
)

// DefaultStatement is shown on the sign-in page and embedded in the signed
// message.
const DefaultStatement = "Sign in to prove you control this wallet. This will not trigger a transaction."

// DefaultAllowedWallets is the curated set of wallets surfaced to users.
var DefaultAllowedWallets = []string{"Phantom", "Solflare", "Backpack"}

// Config holds the provider's runtime configuration.
type Config struct {
	ListenAddr     string
	RedisURL       string
	ChainID        string
	Statement      string
	ValidityWindow time.Duration
	ConnectTimeout time.Duration
	AllowedWallets []string
}

// FromEnv builds a Config from the environment. The chain identifier falls
// back to mainnet when unset or unrecognized.
func FromEnv() Config {
	chainID := getEnv(chainIDVar, core.ChainMainnet)
	if !core.ValidChainID(chainID) {
		chainID = core.ChainMainnet
	}

	return Config{
		ListenAddr:     getEnv(listenAddrVar, ":9000"),
		RedisURL:       getEnv(redisURLVar, ""),
		ChainID:        chainID,
		Statement:      getEnv(statementVar, DefaultStatement),
		ValidityWindow: time.Duration(getEnvInt(validityVar, 600)) * time.Second,
		ConnectTimeout: time.Duration(getEnvInt(connectTimeoutVar, 30000)) * time.Millisecond,
		AllowedWallets: getEnvList(allowedWalletsVar, DefaultAllowedWallets),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
