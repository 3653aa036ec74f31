// Command server runs the true-name game service.
//
// The server owns the batch state machine: players open batches, bind
// encrypted secrets, submit encrypted guesses, close batches, and request
// decryption. Decryption runs on a separate oracle service; its signed
// results arrive asynchronously on POST /oracle/callback and are verified
// against the oracle's public key fetched at startup.
//
// # Persistence
//
// With --db-host set, batches and decryption contexts are written through
// to PostgreSQL and reloaded on startup. Without it, state lives only in
// memory. Deployments that persist state must also pin --instance, since
// commitments computed under one instance id do not verify under another.
//
// # Usage
//
//	go run ./cmd/server --oracle=http://localhost:8091
//	go run ./cmd/server --oracle=http://localhost:8091 --cooldown=5s --openers=<hexkey>,<hexkey>
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mming1274-7/True-Name-RPG-FHE/api/httpserver"
	"github.com/mming1274-7/True-Name-RPG-FHE/cmd/common"
	"github.com/mming1274-7/True-Name-RPG-FHE/fhe"
	"github.com/mming1274-7/True-Name-RPG-FHE/game"
	"github.com/mming1274-7/True-Name-RPG-FHE/oracle"
	"github.com/mming1274-7/True-Name-RPG-FHE/policy"
	"github.com/mming1274-7/True-Name-RPG-FHE/services"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "HTTP listen address")
		metricsAddr = flag.String("metrics-addr", ":8090", "Metrics listen address (empty disables)")
		enablePprof = flag.Bool("pprof", false, "Enable pprof debugging API")
		logJSON     = flag.Bool("log-json", false, "Log in JSON format")
		logDebug    = flag.Bool("log-debug", false, "Log at debug level")

		oracleURL    = flag.String("oracle", "", "Decryption oracle base URL")
		callbackURL  = flag.String("callback-url", "", "Callback URL the oracle posts results to (derived from --addr if empty)")
		instanceHex  = flag.String("instance", "", "Instance id (hex, random if empty)")
		cooldown     = flag.Duration("cooldown", 0, "Per-caller cooldown between state-changing calls")
		capacity     = flag.Int("capacity", game.DefaultCapacity, "Max participants per batch")
		modelVersion = flag.Uint("model-version", 1, "Initial encryption parameter version")
		openerList   = flag.String("openers", "", "Comma-separated hex public keys allowed to open batches (empty allows all)")

		dbHost     = flag.String("db-host", "", "PostgreSQL host (empty uses in-memory storage)")
		dbPort     = flag.Int("db-port", 5432, "PostgreSQL port")
		dbUser     = flag.String("db-user", "truename", "PostgreSQL user")
		dbPassword = flag.String("db-password", "", "PostgreSQL password")
		dbName     = flag.String("db-name", "truename", "PostgreSQL database name")
		dbSSLMode  = flag.String("db-sslmode", "", "PostgreSQL sslmode (default disable)")
	)
	flag.Parse()

	log := common.NewLogger(*logJSON, *logDebug)

	if *oracleURL == "" {
		fmt.Println("Error: --oracle is required")
		os.Exit(1)
	}

	instance, err := common.LoadOrGenerateInstanceID(*instanceHex)
	if err != nil {
		fmt.Printf("Instance id error: %v\n", err)
		os.Exit(1)
	}

	openers, err := common.ParseOpenerKeys(*openerList)
	if err != nil {
		fmt.Printf("Opener list error: %v\n", err)
		os.Exit(1)
	}

	oracleKey, err := common.FetchOracleKey(*oracleURL, 30*time.Second)
	if err != nil {
		fmt.Printf("Oracle key error: %v\n", err)
		os.Exit(1)
	}
	log.Info("Fetched oracle public key", "oracle", *oracleURL, "key", oracleKey.String())

	var store services.BatchStore
	if *dbHost != "" {
		pgStore, err := services.NewPostgresStore(&services.PostgresConfig{
			Host:     *dbHost,
			Port:     *dbPort,
			User:     *dbUser,
			Password: *dbPassword,
			Database: *dbName,
			SSLMode:  *dbSSLMode,
		})
		if err != nil {
			fmt.Printf("Database error: %v\n", err)
			os.Exit(1)
		}
		defer pgStore.Close()
		store = pgStore
	} else {
		store = services.NewInMemoryStore()
	}

	svcConfig := &services.ServiceConfig{
		HTTPAddr:    *addr,
		CallbackURL: *callbackURL,
		Log:         log,
	}

	var policyOpts []policy.Option
	if len(openers) > 0 {
		policyOpts = append(policyOpts, policy.WithOpeners(openers))
	}
	accessPolicy := policy.NewRegistry(*cooldown, policyOpts...)

	engine := game.NewEngine(game.Config{
		InstanceID:          instance,
		Capacity:            *capacity,
		CallbackURL:         svcConfig.ResolveCallbackURL(),
		InitialModelVersion: fhe.ModelVersion(*modelVersion),
		Log:                 log,
	}, accessPolicy, oracle.NewClient(*oracleURL), &oracle.Ed25519Verifier{OraclePublicKey: oracleKey})

	handler := services.NewGameHandler(engine, store, log)

	batches, contexts, err := store.LoadAll()
	if err != nil {
		fmt.Printf("Loading persisted state: %v\n", err)
		os.Exit(1)
	}
	if len(batches) > 0 || len(contexts) > 0 {
		if err := engine.Restore(batches, contexts); err != nil {
			fmt.Printf("Restoring persisted state: %v\n", err)
			os.Exit(1)
		}
		log.Info("Restored persisted state", "batches", len(batches), "contexts", len(contexts))
	}

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               *addr,
		MetricsAddr:              *metricsAddr,
		EnablePprof:              *enablePprof,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, handler)
	if err != nil {
		fmt.Printf("Create server error: %v\n", err)
		os.Exit(1)
	}

	log.Info("Game service starting",
		"addr", *addr,
		"instance", instance.String(),
		"callbackURL", svcConfig.ResolveCallbackURL(),
		"capacity", *capacity)
	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	srv.Shutdown()
}
