// Command altar runs the tenant-isolated wedding site API.
//
// Configuration is read from a YAML file (--config, ALTAR_CONFIG,
// ./config.yaml or /etc/altar/config.yaml) and ALTAR_* environment
// variables:
//
//	ALTAR_PORT             - Listen port (default: 8080)
//	ALTAR_STORAGE          - "memory", "sqlite" or "postgres" (default: "memory")
//	ALTAR_SQLITE_PATH      - SQLite database file (default: "altar.db")
//	ALTAR_POSTGRES_DSN     - PostgreSQL connection string
//	ALTAR_AUTH_TYPE        - "none", "apikey" or "jwt" (default: "none")
//	ALTAR_API_KEYS         - JSON array of API key entries
//	ALTAR_SITE_BASE_DOMAIN - Parent domain of wedding subdomains
//	ALTAR_DEBUG            - Comma-separated debug categories
//	ALTAR_LOG_LEVEL        - debug, info, warn or error
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
