package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/mming1274-7/True-Name-RPG-FHE/fhe"
	"github.com/mming1274-7/True-Name-RPG-FHE/game"
	"github.com/mming1274-7/True-Name-RPG-FHE/oracle"
)

// PostgresStore implements BatchStore with PostgreSQL persistence.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batches (
		id BIGINT PRIMARY KEY,
		status SMALLINT NOT NULL,
		model_version BIGINT NOT NULL,
		opener VARCHAR(128) NOT NULL,
		secret_payload BYTEA,
		guesses JSONB NOT NULL,
		match_count INT NOT NULL,
		resolved BOOLEAN NOT NULL,
		pending_request VARCHAR(64),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS decryption_contexts (
		request_id VARCHAR(64) PRIMARY KEY,
		batch_id BIGINT NOT NULL,
		model_version BIGINT NOT NULL,
		commitment BYTEA NOT NULL,
		processed BOOLEAN NOT NULL,
		status SMALLINT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_contexts_batch ON decryption_contexts(batch_id);
	CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveBatch upserts a batch record.
func (s *PostgresStore) SaveBatch(rec game.BatchRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	guesses, err := json.Marshal(rec.Guesses)
	if err != nil {
		return fmt.Errorf("encoding guesses: %w", err)
	}

	query := `
	INSERT INTO batches
		(id, status, model_version, opener, secret_payload, guesses, match_count, resolved, pending_request, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	ON CONFLICT (id) DO UPDATE SET
		status = EXCLUDED.status,
		model_version = EXCLUDED.model_version,
		secret_payload = EXCLUDED.secret_payload,
		guesses = EXCLUDED.guesses,
		match_count = EXCLUDED.match_count,
		resolved = EXCLUDED.resolved,
		pending_request = EXCLUDED.pending_request,
		updated_at = NOW()
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		int16(rec.Status),
		int64(rec.ModelVersion),
		rec.Opener,
		rec.SecretPayload,
		guesses,
		rec.MatchCount,
		rec.Resolved,
		string(rec.PendingRequest),
	)
	return err
}

// SaveContext upserts a decryption-context record.
func (s *PostgresStore) SaveContext(rec game.ContextRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO decryption_contexts
		(request_id, batch_id, model_version, commitment, processed, status, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	ON CONFLICT (request_id) DO UPDATE SET
		processed = EXCLUDED.processed,
		status = EXCLUDED.status,
		updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query,
		string(rec.RequestID),
		rec.BatchID,
		int64(rec.ModelVersion),
		rec.Commitment,
		rec.Processed,
		int16(rec.Status),
	)
	return err
}

// LoadAll retrieves every persisted batch and context record.
func (s *PostgresStore) LoadAll() ([]game.BatchRecord, []game.ContextRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, model_version, opener, secret_payload, guesses, match_count, resolved, pending_request
		FROM batches
	`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var batches []game.BatchRecord
	for rows.Next() {
		var (
			rec            game.BatchRecord
			status         int16
			modelVersion   int64
			guessesJSON    []byte
			pendingRequest sql.NullString
		)
		if err := rows.Scan(&rec.ID, &status, &modelVersion, &rec.Opener,
			&rec.SecretPayload, &guessesJSON, &rec.MatchCount, &rec.Resolved, &pendingRequest); err != nil {
			return nil, nil, fmt.Errorf("scanning batch row: %w", err)
		}
		rec.Status = game.BatchStatus(status)
		rec.ModelVersion = fhe.ModelVersion(modelVersion)
		if pendingRequest.Valid {
			rec.PendingRequest = oracle.RequestID(pendingRequest.String)
		}
		if err := json.Unmarshal(guessesJSON, &rec.Guesses); err != nil {
			return nil, nil, fmt.Errorf("decoding guesses for batch %d: %w", rec.ID, err)
		}
		batches = append(batches, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	ctxRows, err := s.db.QueryContext(ctx, `
		SELECT request_id, batch_id, model_version, commitment, processed, status
		FROM decryption_contexts
	`)
	if err != nil {
		return nil, nil, err
	}
	defer ctxRows.Close()

	var contexts []game.ContextRecord
	for ctxRows.Next() {
		var (
			rec          game.ContextRecord
			requestID    string
			modelVersion int64
			status       int16
		)
		if err := ctxRows.Scan(&requestID, &rec.BatchID, &modelVersion,
			&rec.Commitment, &rec.Processed, &status); err != nil {
			return nil, nil, fmt.Errorf("scanning context row: %w", err)
		}
		rec.RequestID = oracle.RequestID(requestID)
		rec.ModelVersion = fhe.ModelVersion(modelVersion)
		rec.Status = game.RequestStatus(status)
		contexts = append(contexts, rec)
	}

	return batches, contexts, ctxRows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
