package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// StoreRawPayload stages a compressed API response. It returns the payload
// ID, or the existing ID when an identical payload was already staged.
func (s *Store) StoreRawPayload(runID, source, city string, payload []byte) (int64, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("close gzip: %w", err)
	}

	hash := sha256.Sum256(payload)
	hashHex := hex.EncodeToString(hash[:])

	var id int64
	err := s.db.QueryRow(`
		INSERT INTO raw_payloads (etl_run_id, fetched_at, source, city, payload_compressed, payload_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(payload_hash) DO UPDATE SET payload_hash = excluded.payload_hash
		RETURNING id
	`, nullString(runID), time.Now().UTC(), source, nullString(city), buf.Bytes(), hashHex).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert raw payload: %w", err)
	}
	return id, nil
}

// GetRawPayload retrieves and decompresses a staged payload by ID.
func (s *Store) GetRawPayload(id int64) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT payload_compressed FROM raw_payloads WHERE id = ?`, id).
		Scan(&compressed)
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()

	return io.ReadAll(gz)
}

// CleanupOldRawPayloads deletes staged payloads older than retention and
// returns the number removed. Fact rows pointing at a removed payload have
// their raw_payload_id cleared in the same transaction.
func (s *Store) CleanupOldRawPayloads(retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin cleanup: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		UPDATE fait_observation SET raw_payload_id = NULL
		WHERE raw_payload_id IN (SELECT id FROM raw_payloads WHERE fetched_at < ?)
	`, cutoff); err != nil {
		return 0, fmt.Errorf("detach raw payloads: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM raw_payloads WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete raw payloads: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cleanup: %w", err)
	}
	return n, nil
}
