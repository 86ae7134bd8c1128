// Package catalog persists converted fragment artifacts in a DuckDB file:
// the blob itself plus the conversion metadata, deduplicated by content hash.
package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marcboeker/go-duckdb"

	"github.com/step-fragments/backend/internal/models"
)

// Catalog is a DuckDB-backed store of conversion records.
type Catalog struct {
	db     *sql.DB
	dbPath string
}

// Default DuckDB tuning for the catalog workload.
const (
	DefaultMemoryLimit = "512MB"
	DefaultThreads     = 2
)

// Open creates or opens the catalog database at dbPath with default tuning.
func Open(dbPath string) (*Catalog, error) {
	return OpenWithTuning(dbPath, DefaultMemoryLimit, DefaultThreads)
}

// OpenWithTuning creates or opens the catalog database with explicit DuckDB
// memory and thread limits.
func OpenWithTuning(dbPath string, memoryLimit string, threads int) (*Catalog, error) {
	if memoryLimit == "" {
		memoryLimit = DefaultMemoryLimit
	}
	if threads <= 0 {
		threads = DefaultThreads
	}

	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", memoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	if _, err := db.Exec(`CREATE SEQUENCE IF NOT EXISTS fragments_id_seq`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating id sequence: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS fragments (
			id              BIGINT PRIMARY KEY DEFAULT nextval('fragments_id_seq'),
			filename        VARCHAR NOT NULL,
			file_hash       VARCHAR UNIQUE NOT NULL,
			fragment_data   BLOB NOT NULL,
			file_size_bytes BIGINT NOT NULL,
			source_file     VARCHAR,
			stored_at       TIMESTAMP NOT NULL,
			metadata        VARCHAR
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating fragments table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_fragments_filename ON fragments(filename)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating filename index: %w", err)
	}

	return &Catalog{db: db, dbPath: dbPath}, nil
}

// Store reads the fragment file at fragmentPath and inserts it with its
// conversion metadata. A fragment whose content hash is already catalogued
// is skipped; stored reports whether a new row was written.
func (c *Catalog) Store(fragmentPath, sourceName string, result models.ConversionResult) (stored bool, err error) {
	data, err := os.ReadFile(fragmentPath)
	if err != nil {
		return false, fmt.Errorf("reading fragment: %w", err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	var existing int64
	err = c.db.QueryRow(`SELECT id FROM fragments WHERE file_hash = ?`, hash).Scan(&existing)
	if err == nil {
		fmt.Printf("[catalog] fragment already stored: %s (id %d)\n", filepath.Base(fragmentPath), existing)
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, fmt.Errorf("checking for duplicate: %w", err)
	}

	metadata := ""
	if result.Stats != nil {
		if payload, merr := json.Marshal(result.Stats); merr == nil {
			metadata = string(payload)
		}
	}

	_, err = c.db.Exec(`
		INSERT INTO fragments (filename, file_hash, fragment_data, file_size_bytes, source_file, stored_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		filepath.Base(fragmentPath), hash, data, int64(len(data)), sourceName, time.Now(), metadata,
	)
	if err != nil {
		return false, fmt.Errorf("inserting fragment: %w", err)
	}

	return true, nil
}

// Fragment returns the stored blob for a catalogued filename.
func (c *Catalog) Fragment(filename string) ([]byte, error) {
	var data []byte
	err := c.db.QueryRow(
		`SELECT fragment_data FROM fragments WHERE filename = ? ORDER BY id DESC LIMIT 1`,
		filename,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("fragment not found: %s", filename)
	}
	if err != nil {
		return nil, fmt.Errorf("loading fragment: %w", err)
	}
	return data, nil
}

// Records lists the most recent conversion records, newest first.
func (c *Catalog) Records(limit int) ([]models.ConversionRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := c.db.Query(`
		SELECT id, filename, file_hash, file_size_bytes, source_file, stored_at, metadata
		FROM fragments ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	records := make([]models.ConversionRecord, 0, limit)
	for rows.Next() {
		var rec models.ConversionRecord
		var source, metadata sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.FileHash, &rec.SizeBytes, &source, &rec.StoredAt, &metadata); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.SourceFile = source.String
		rec.Metadata = metadata.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats summarizes the catalog contents.
func (c *Catalog) Stats() (*models.CatalogStats, error) {
	var stats models.CatalogStats
	var total, avg sql.NullFloat64

	err := c.db.QueryRow(`
		SELECT COUNT(*), SUM(file_size_bytes), AVG(file_size_bytes) FROM fragments
	`).Scan(&stats.TotalFragments, &total, &avg)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}

	stats.TotalSizeBytes = int64(total.Float64)
	stats.AvgSizeBytes = avg.Float64
	return &stats, nil
}

// Close releases the database handle.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
