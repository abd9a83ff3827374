package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/yegors/runway-redeclaration/pkg/logger"
)

// RedeclarationStorage journals every redeclaration that was computed
type RedeclarationStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewRedeclarationStorage creates a new SQLite redeclaration journal
func NewRedeclarationStorage(db *sql.DB, logger *logger.Logger) (*RedeclarationStorage, error) {
	storage := &RedeclarationStorage{
		db:     db,
		logger: logger.Named("sqlite-journal"),
	}

	if err := storage.initDB(); err != nil {
		storage.logger.Error("Failed to initialize redeclaration storage", Error(err))
		return nil, err
	}

	return storage, nil
}

// initDB initializes the database tables
func (s *RedeclarationStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS redeclarations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			airport TEXT NOT NULL,
			runway TEXT NOT NULL,
			obstacle TEXT NOT NULL,
			procedure TEXT NOT NULL,
			original_tora REAL NOT NULL,
			original_toda REAL NOT NULL,
			original_asda REAL NOT NULL,
			original_lda REAL NOT NULL,
			tora REAL NOT NULL,
			toda REAL NOT NULL,
			asda REAL NOT NULL,
			lda REAL NOT NULL,
			clamped TEXT,
			timestamp TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create redeclarations table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_redeclarations_airport ON redeclarations(airport)`,
		`CREATE INDEX IF NOT EXISTS idx_redeclarations_timestamp ON redeclarations(timestamp)`,
	}

	for _, indexSQL := range indexes {
		_, err = s.db.Exec(indexSQL)
		if err != nil {
			return fmt.Errorf("failed to create redeclaration index: %w", err)
		}
	}

	return nil
}

// StoreRedeclaration stores a redeclaration record
func (s *RedeclarationStorage) StoreRedeclaration(record *RedeclarationRecord) (int64, error) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = record.CreatedAt
	}

	result, err := s.db.Exec(
		`INSERT INTO redeclarations
		(airport, runway, obstacle, procedure,
		 original_tora, original_toda, original_asda, original_lda,
		 tora, toda, asda, lda, clamped, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Airport,
		record.Runway,
		record.Obstacle,
		record.Procedure,
		record.Original.TORA,
		record.Original.TODA,
		record.Original.ASDA,
		record.Original.LDA,
		record.Result.TORA,
		record.Result.TODA,
		record.Result.ASDA,
		record.Result.LDA,
		strings.Join(record.Clamped, ","),
		record.Timestamp.UTC().Format(timeFormat),
		record.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert redeclaration: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	record.ID = id

	return id, nil
}

// timeFormat has a fixed width so stored timestamps sort as text
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const redeclarationColumns = `id, airport, runway, obstacle, procedure,
		original_tora, original_toda, original_asda, original_lda,
		tora, toda, asda, lda, clamped, timestamp, created_at`

// GetRedeclarationsByAirport returns the latest redeclarations of one airport
func (s *RedeclarationStorage) GetRedeclarationsByAirport(airport string, limit int) ([]*RedeclarationRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+redeclarationColumns+`
		FROM redeclarations
		WHERE airport = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`,
		airport, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query redeclarations by airport: %w", err)
	}
	defer rows.Close()

	return s.scanRedeclarationRows(rows)
}

// GetRedeclarationsByTimeRange returns redeclarations within a time range
func (s *RedeclarationStorage) GetRedeclarationsByTimeRange(startTime, endTime time.Time) ([]*RedeclarationRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+redeclarationColumns+`
		FROM redeclarations
		WHERE timestamp BETWEEN ? AND ?
		ORDER BY timestamp DESC, id DESC`,
		startTime.UTC().Format(timeFormat), endTime.UTC().Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query redeclarations by time range: %w", err)
	}
	defer rows.Close()

	return s.scanRedeclarationRows(rows)
}

// GetRecentRedeclarations returns recent redeclarations across all airports
func (s *RedeclarationStorage) GetRecentRedeclarations(limit int) ([]*RedeclarationRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+redeclarationColumns+`
		FROM redeclarations
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent redeclarations: %w", err)
	}
	defer rows.Close()

	return s.scanRedeclarationRows(rows)
}

// scanRedeclarationRows scans database rows into RedeclarationRecord structs
func (s *RedeclarationStorage) scanRedeclarationRows(rows *sql.Rows) ([]*RedeclarationRecord, error) {
	var records []*RedeclarationRecord
	for rows.Next() {
		var record RedeclarationRecord
		var timestamp, createdAt string
		var clamped sql.NullString

		if err := rows.Scan(
			&record.ID,
			&record.Airport,
			&record.Runway,
			&record.Obstacle,
			&record.Procedure,
			&record.Original.TORA,
			&record.Original.TODA,
			&record.Original.ASDA,
			&record.Original.LDA,
			&record.Result.TORA,
			&record.Result.TODA,
			&record.Result.ASDA,
			&record.Result.LDA,
			&clamped,
			&timestamp,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan redeclaration: %w", err)
		}

		var err error
		record.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}

		record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		if clamped.Valid && clamped.String != "" {
			record.Clamped = strings.Split(clamped.String, ",")
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}
