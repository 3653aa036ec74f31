// Command oracle runs the demo decryption oracle.
//
// The oracle holds the dummy encryption scheme: it mints ciphertexts for
// demo players on POST /encrypt, accepts decryption requests on POST
// /submit, and posts the signed result to the callback URL named in each
// request. Game services fetch its proof-signing key from GET /public-key.
//
// All scheme state is in memory. Restarting the oracle discards every
// minted ciphertext, so restart the game service alongside it.
//
// # Usage
//
//	go run ./cmd/oracle --addr=:8091
//	go run ./cmd/oracle --addr=:8091 --signing-key=<hex>
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
	"github.com/mming1274-7/True-Name-RPG-FHE/oracle"
)

func main() {
	var (
		addr          = flag.String("addr", ":8091", "HTTP listen address")
		metricsAddr   = flag.String("metrics-addr", "", "Metrics listen address (empty disables)")
		enablePprof   = flag.Bool("pprof", false, "Enable pprof debugging API")
		logJSON       = flag.Bool("log-json", false, "Log in JSON format")
		logDebug      = flag.Bool("log-debug", false, "Log at debug level")
		signingKeyHex = flag.String("signing-key", "", "Ed25519 proof-signing key (hex, generates if empty)")
	)
	flag.Parse()

	log := common.NewLogger(*logJSON, *logDebug)

	signingKey, err := common.LoadOrGenerateSigningKey(*signingKeyHex)
	if err != nil {
		fmt.Printf("Signing key error: %v\n", err)
		os.Exit(1)
	}
	pubKey, err := signingKey.PublicKey()
	if err != nil {
		fmt.Printf("Signing key error: %v\n", err)
		os.Exit(1)
	}

	scheme, err := fhe.NewDummyScheme()
	if err != nil {
		fmt.Printf("Scheme error: %v\n", err)
		os.Exit(1)
	}

	service := oracle.NewService(scheme, signingKey, log)

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               *addr,
		MetricsAddr:              *metricsAddr,
		EnablePprof:              *enablePprof,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, service)
	if err != nil {
		fmt.Printf("Create server error: %v\n", err)
		os.Exit(1)
	}

	log.Info("Oracle starting", "addr", *addr, "publicKey", pubKey.String())
	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	srv.Shutdown()
}
