// Command demo-cli plays one batch end to end against a deployed game
// server and oracle pair.
//
// It generates a fresh key for the defender and one per attacker, asks
// the oracle to encrypt the secret and the guesses, then drives the full
// lifecycle: open, bind secret, submit guesses, close, request decryption,
// and poll until the batch resolves.
//
// # Usage
//
//	go run ./cmd/demo-cli --server=http://localhost:8080 --oracle=http://localhost:8091 --secret=42 --guesses=42,7,13
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mming1274-7/True-Name-RPG-FHE/crypto"
	"github.com/mming1274-7/True-Name-RPG-FHE/oracle"
	"github.com/mming1274-7/True-Name-RPG-FHE/services"
)

func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8080", "Game server base URL")
		oracleURL = flag.String("oracle", "http://localhost:8091", "Oracle base URL")
		secret    = flag.Uint("secret", 42, "The defender's true name")
		guesses   = flag.String("guesses", "42,7", "Comma-separated attacker guesses")
		timeout   = flag.Duration("timeout", 30*time.Second, "How long to wait for resolution")
	)
	flag.Parse()

	if err := run(*serverURL, *oracleURL, uint32(*secret), *guesses, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(serverURL, oracleURL string, secret uint32, guessList string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var guesses []uint32
	for _, raw := range strings.Split(guessList, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid guess %q: %w", raw, err)
		}
		guesses = append(guesses, uint32(v))
	}
	if len(guesses) == 0 {
		return fmt.Errorf("need at least one guess")
	}

	_, defenderKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}

	oracleClient := oracle.NewClient(oracleURL)

	// Open.
	openResp, err := postSigned[services.OpenRequest, services.OpenResponse](
		serverURL+"/batch/open", defenderKey, &services.OpenRequest{Note: "demo"})
	if err != nil {
		return fmt.Errorf("opening batch: %w", err)
	}
	batchID := openResp.BatchID
	fmt.Printf("Opened batch %d\n", batchID)

	// Bind the secret.
	secretCt, err := oracleClient.Encrypt(ctx, secret)
	if err != nil {
		return fmt.Errorf("encrypting secret: %w", err)
	}
	_, err = postSigned[services.SecretRequest, json.RawMessage](
		fmt.Sprintf("%s/batch/%d/secret", serverURL, batchID), defenderKey,
		&services.SecretRequest{BatchID: batchID, Payload: secretCt.Bytes()})
	if err != nil {
		return fmt.Errorf("binding secret: %w", err)
	}
	fmt.Printf("Bound secret (handle %s)\n", secretCt.Handle())

	// Each attacker submits one guess under a fresh key.
	for i, g := range guesses {
		attackerPub, attackerKey, err := crypto.GenerateKeyPair()
		if err != nil {
			return err
		}
		guessCt, err := oracleClient.Encrypt(ctx, g)
		if err != nil {
			return fmt.Errorf("encrypting guess %d: %w", i, err)
		}
		_, err = postSigned[services.GuessRequest, json.RawMessage](
			fmt.Sprintf("%s/batch/%d/guess", serverURL, batchID), attackerKey,
			&services.GuessRequest{BatchID: batchID, Payload: guessCt.Bytes()})
		if err != nil {
			return fmt.Errorf("submitting guess %d: %w", i, err)
		}
		fmt.Printf("Attacker %s guessed\n", attackerPub.String()[:8])
	}

	// Close and request decryption.
	_, err = postSigned[services.CloseRequest, json.RawMessage](
		fmt.Sprintf("%s/batch/%d/close", serverURL, batchID), defenderKey,
		&services.CloseRequest{BatchID: batchID})
	if err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	decResp, err := postSigned[services.DecryptRequest, services.DecryptResponse](
		fmt.Sprintf("%s/batch/%d/request-decryption", serverURL, batchID), defenderKey,
		&services.DecryptRequest{BatchID: batchID})
	if err != nil {
		return fmt.Errorf("requesting decryption: %w", err)
	}
	fmt.Printf("Decryption requested (request %s)\n", decResp.RequestID)

	// Poll for resolution.
	for {
		results, err := fetchResults(serverURL, batchID)
		if err != nil {
			return err
		}
		if results.Resolved {
			fmt.Printf("Batch resolved: %d of %d guesses matched\n", results.MatchCount, len(guesses))
			for _, m := range results.Matches {
				fmt.Printf("  attacker %s named defender %s\n", m.Attacker[:8], m.Defender[:8])
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("batch %d did not resolve within %s", batchID, timeout)
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// postSigned wraps body in a signed envelope, posts it, and decodes the
// response.
func postSigned[Req, Resp any](url string, key crypto.PrivateKey, body *Req) (*Resp, error) {
	signed, err := crypto.NewSigned(key, body)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(signed)
	if err != nil {
		return nil, err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	respBody.ReadFrom(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(respBody.String()))
	}

	// Some endpoints acknowledge with an empty body.
	out := new(Resp)
	if respBody.Len() > 0 {
		if err := json.Unmarshal(respBody.Bytes(), out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func fetchResults(serverURL string, batchID uint64) (*services.ResultsResponse, error) {
	resp, err := http.Get(fmt.Sprintf("%s/results/%d", serverURL, batchID))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("results endpoint returned status %d", resp.StatusCode)
	}

	var results services.ResultsResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, err
	}
	return &results, nil
}
