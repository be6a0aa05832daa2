// Package main runs the vote server: the off-chain points ledger, the
// points-to-token exchange, and the HTTP gateway for the on-chain
// voting program (poll listing/creation/reset, unsigned vote
// transactions).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solana-vote-server/internal/api"
	"solana-vote-server/internal/exchange"
	"solana-vote-server/internal/poll"
	"solana-vote-server/internal/program"
	"solana-vote-server/internal/solana"
	"solana-vote-server/internal/storage"
	chstore "solana-vote-server/internal/storage/clickhouse"
	"solana-vote-server/internal/storage/memory"
	"solana-vote-server/internal/storage/migrations"
	pgstore "solana-vote-server/internal/storage/postgres"
	"solana-vote-server/internal/txbuild"
	"solana-vote-server/internal/vote"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", envOr("SOLANA_RPC_ENDPOINT", "https://api.devnet.solana.com"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (optional; polling confirmation when empty)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional audit sink)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	keypairPath := flag.String("keypair", envOr("SERVER_KEYPAIR_PATH", "server-keypair.json"), "Path to the server authority keypair JSON file")
	programID := flag.String("program-id", envOr("VOTING_PROGRAM_ID", program.DefaultProgramID), "Voting program ID")
	tokenMint := flag.String("token-mint", os.Getenv("TOKEN_MINT"), "SPL token mint for exchanges and polls")
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":3001"), "HTTP listen address")
	confirmTimeout := flag.Duration("confirm-timeout", 60*time.Second, "Transaction confirmation timeout")
	confirmInterval := flag.Duration("confirm-interval", 2*time.Second, "Signature status poll interval")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *tokenMint == "" {
		logger.Fatal("--token-mint is required")
	}
	if err := solana.ValidatePubkey(*tokenMint); err != nil {
		logger.Fatalf("--token-mint: %v", err)
	}
	if err := solana.ValidatePubkey(*programID); err != nil {
		logger.Fatalf("--program-id: %v", err)
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	authority, err := solana.LoadKeypairFile(*keypairPath)
	if err != nil {
		logger.Fatalf("Failed to load server keypair: %v", err)
	}
	logger.Printf("Server authority: %s", authority.PublicKey())
	logger.Printf("Voting program: %s", *programID)
	logger.Printf("Token mint: %s", *tokenMint)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	balances, events, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// RPC client and confirmer
	rpc := solana.NewHTTPClient(*rpcEndpoint)

	var confirmer solana.Confirmer
	if *wsEndpoint != "" {
		wsConfirmer, err := solana.NewWSConfirmer(ctx, *wsEndpoint, &solana.WSClientConfig{ConfirmTimeout: *confirmTimeout})
		if err != nil {
			logger.Fatalf("Failed to connect WebSocket confirmer: %v", err)
		}
		defer wsConfirmer.Close()
		confirmer = wsConfirmer
		logger.Printf("Confirming via WebSocket: %s", *wsEndpoint)
	} else {
		confirmer = solana.NewPollingConfirmer(rpc, *confirmTimeout, *confirmInterval)
		logger.Printf("Confirming via polling (timeout %v, interval %v)", *confirmTimeout, *confirmInterval)
	}

	// Wire components
	builder := txbuild.New(rpc, *programID, authority.PublicKey())

	orchestrator := exchange.New(exchange.Options{
		BalanceStore: balances,
		EventStore:   events,
		Builder:      builder,
		RPC:          rpc,
		Confirmer:    confirmer,
		Authority:    authority,
		TokenMint:    *tokenMint,
		Logger:       log.New(os.Stdout, "[exchange] ", log.LstdFlags|log.Lshortfile),
	})

	gateway := poll.New(rpc, confirmer, authority, *programID,
		log.New(os.Stdout, "[poll] ", log.LstdFlags|log.Lshortfile))

	votes := vote.NewService(builder)

	handlers := api.NewHandlers(orchestrator, gateway, votes,
		log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile))

	srv := &http.Server{
		Addr:         *listenAddr,
		Handler:      api.NewRouter(handlers, log.New(os.Stdout, "[http] ", log.LstdFlags)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	}()

	logger.Printf("Listening on %s", *listenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the balance ledger and the optional exchange
// audit sink. The audit sink is nil when no ClickHouse DSN is given.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (storage.BalanceStore, storage.ExchangeEventStore, func(), error) {
	if useMemory {
		logger.Println("Using in-memory storage")
		return memory.NewBalanceStore(), memory.NewExchangeEventStore(), func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	if clickhouseDSN == "" {
		logger.Println("No ClickHouse DSN: exchange audit events disabled")
		return pgstore.NewBalanceStore(pool), nil, func() { pool.Close() }, nil
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return pgstore.NewBalanceStore(pool), chstore.NewExchangeEventStore(chConn), cleanup, nil
}

// envOr returns the environment variable value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
