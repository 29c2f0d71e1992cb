package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"fleetledger/ledger"
)

// AppName doubles as the postgres schema name for the service.
const AppName = "fleetledger"

// LoadEnv reads a .env file when present. Missing files are fine,
// production supplies real environment variables.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
}

// Rates builds the default currency rate table, with per-currency env
// overrides (RATE_UZS, RATE_KZT, RATE_RUB). The table is only the
// fallback for entries without a snapshotted rate.
func Rates() ledger.RateTable {
	rates := ledger.DefaultRates()
	for _, cur := range []ledger.Currency{ledger.UZS, ledger.KZT, ledger.RUB} {
		key := "RATE_" + string(cur)
		if v := os.Getenv(key); v != "" {
			rate, err := strconv.ParseFloat(v, 64)
			if err != nil || rate <= 0 {
				log.Printf("ignoring invalid %s=%q", key, v)
				continue
			}
			rates[cur] = rate
		}
	}
	return rates
}
