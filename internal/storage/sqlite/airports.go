package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/yegors/runway-redeclaration/internal/model"
	"github.com/yegors/runway-redeclaration/pkg/logger"
)

// AirportStorage keeps airport trees in relational form
type AirportStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewAirportStorage creates a new SQLite airport storage
func NewAirportStorage(db *sql.DB, logger *logger.Logger) (*AirportStorage, error) {
	storage := &AirportStorage{
		db:     db,
		logger: logger.Named("sqlite-airports"),
	}

	if err := storage.initDB(); err != nil {
		storage.logger.Error("Failed to initialize airport storage", Error(err))
		return nil, err
	}

	return storage, nil
}

// initDB initializes the database tables
func (s *AirportStorage) initDB() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS airports (
			name TEXT PRIMARY KEY,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runways (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			airport TEXT NOT NULL,
			position INTEGER NOT NULL,
			designator TEXT NOT NULL,
			tora REAL NOT NULL,
			toda REAL NOT NULL,
			asda REAL NOT NULL,
			lda REAL NOT NULL,
			displaced_threshold REAL NOT NULL,
			FOREIGN KEY (airport) REFERENCES airports(name)
		)`,
		`CREATE TABLE IF NOT EXISTS obstacles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			runway_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			height REAL NOT NULL,
			length REAL NOT NULL,
			distance_centre REAL NOT NULL,
			distance_threshold REAL NOT NULL,
			FOREIGN KEY (runway_id) REFERENCES runways(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runways_airport ON runways(airport)`,
		`CREATE INDEX IF NOT EXISTS idx_obstacles_runway_id ON obstacles(runway_id)`,
	}

	for _, stmt := range tables {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create airport tables: %w", err)
		}
	}
	return nil
}

// LoadAll returns every stored airport ordered by name
func (s *AirportStorage) LoadAll() ([]model.AirportRecord, error) {
	names, err := s.queryStrings(`SELECT name FROM airports ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query airports: %w", err)
	}

	type runwayRow struct {
		id      int64
		airport string
		rec     model.RunwayRecord
	}
	rows, err := s.db.Query(`
		SELECT id, airport, designator, tora, toda, asda, lda, displaced_threshold
		FROM runways
		ORDER BY airport, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runways: %w", err)
	}
	var runways []runwayRow
	for rows.Next() {
		var r runwayRow
		if err := rows.Scan(&r.id, &r.airport, &r.rec.Number,
			&r.rec.TORA, &r.rec.TODA, &r.rec.ASDA, &r.rec.LDA, &r.rec.DisplacedThreshold); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan runway: %w", err)
		}
		runways = append(runways, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runways: %w", err)
	}

	rows, err = s.db.Query(`
		SELECT runway_id, name, height, length, distance_centre, distance_threshold
		FROM obstacles
		ORDER BY runway_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query obstacles: %w", err)
	}
	obstacles := make(map[int64][]model.ObstacleRecord)
	for rows.Next() {
		var runwayID int64
		var o model.ObstacleRecord
		if err := rows.Scan(&runwayID, &o.Name, &o.Height, &o.Length, &o.DistanceCentre, &o.DistanceThreshold); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan obstacle: %w", err)
		}
		obstacles[runwayID] = append(obstacles[runwayID], o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read obstacles: %w", err)
	}

	byAirport := make(map[string][]model.RunwayRecord)
	for _, r := range runways {
		r.rec.Obstacles = obstacles[r.id]
		byAirport[r.airport] = append(byAirport[r.airport], r.rec)
	}

	records := make([]model.AirportRecord, 0, len(names))
	for _, name := range names {
		records = append(records, model.AirportRecord{Name: name, Runways: byAirport[name]})
	}

	s.logger.Info("Loaded airports", logger.Int("count", len(records)))
	return records, nil
}

// Save replaces the stored version of the airport in a single transaction
func (s *AirportStorage) Save(rec model.AirportRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteAirport(tx, rec.Name); err != nil {
		return err
	}

	if _, err := tx.Exec(`INSERT INTO airports (name, updated_at) VALUES (?, ?)`,
		rec.Name, time.Now().UTC().Format(timeFormat)); err != nil {
		return fmt.Errorf("failed to insert airport: %w", err)
	}

	for i, r := range rec.Runways {
		result, err := tx.Exec(
			`INSERT INTO runways
			(airport, position, designator, tora, toda, asda, lda, displaced_threshold)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.Name, i, r.Number, r.TORA, r.TODA, r.ASDA, r.LDA, r.DisplacedThreshold,
		)
		if err != nil {
			return fmt.Errorf("failed to insert runway %s: %w", r.Number, err)
		}
		runwayID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}

		for j, o := range r.Obstacles {
			if _, err := tx.Exec(
				`INSERT INTO obstacles
				(runway_id, position, name, height, length, distance_centre, distance_threshold)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				runwayID, j, o.Name, o.Height, o.Length, o.DistanceCentre, o.DistanceThreshold,
			); err != nil {
				return fmt.Errorf("failed to insert obstacle %s: %w", o.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit airport %s: %w", rec.Name, err)
	}
	s.logger.Debug("Saved airport", logger.String("airport", rec.Name))
	return nil
}

// Delete removes an airport with its runways and obstacles
func (s *AirportStorage) Delete(name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteAirport(tx, name); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deletion of %s: %w", name, err)
	}
	s.logger.Debug("Deleted airport", logger.String("airport", name))
	return nil
}

func deleteAirport(tx *sql.Tx, name string) error {
	if _, err := tx.Exec(
		`DELETE FROM obstacles WHERE runway_id IN (SELECT id FROM runways WHERE airport = ?)`, name); err != nil {
		return fmt.Errorf("failed to delete obstacles of %s: %w", name, err)
	}
	if _, err := tx.Exec(`DELETE FROM runways WHERE airport = ?`, name); err != nil {
		return fmt.Errorf("failed to delete runways of %s: %w", name, err)
	}
	if _, err := tx.Exec(`DELETE FROM airports WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete airport %s: %w", name, err)
	}
	return nil
}

func (s *AirportStorage) queryStrings(query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
