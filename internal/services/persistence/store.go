package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model"
	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS plants (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			species TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS sensors (
			id INTEGER PRIMARY KEY,
			type TEXT NOT NULL,
			plant_id INTEGER NOT NULL REFERENCES plants(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sensor_id INTEGER NOT NULL REFERENCES sensors(id) ON DELETE CASCADE,
			plant_id INTEGER NOT NULL REFERENCES plants(id) ON DELETE CASCADE,
			measurement TEXT NOT NULL CHECK (measurement IN ('temperature','humidity','moisture','light')),
			value INTEGER NOT NULL,
			created_ms BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_plant ON readings(plant_id)`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS plants (
			id INTEGER PRIMARY KEY,
			name VARCHAR(40) NOT NULL,
			species VARCHAR(40) NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS sensors (
			id INTEGER PRIMARY KEY,
			type VARCHAR(45) NOT NULL,
			plant_id INTEGER NOT NULL REFERENCES plants(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS readings (
			id BIGSERIAL PRIMARY KEY,
			sensor_id INTEGER NOT NULL REFERENCES sensors(id) ON DELETE CASCADE,
			plant_id INTEGER NOT NULL REFERENCES plants(id) ON DELETE CASCADE,
			measurement VARCHAR(45) NOT NULL CHECK (measurement IN ('temperature','humidity','moisture','light')),
			value INTEGER NOT NULL,
			created_ms BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_plant ON readings(plant_id)`,
	},
}

// Store is the relational record of plants, sensors and readings.
type Store struct {
	db *sqlx.DB
}

// OpenStore connects with driver ("sqlite" or "pgx") and migrates the schema.
func OpenStore(ctx context.Context, driver, dsn string) (*Store, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == DriverSQLite {
		// one writer; avoids SQLITE_BUSY between the handler and the API
		db.SetMaxOpenConns(1)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func plantFor(id int) model.Plant {
	if id == entities.AmbientPlantID {
		return model.Plant{ID: id, Name: "greenhouse"}
	}
	return model.Plant{ID: id, Name: fmt.Sprintf("plant%d", id)}
}

// Record stores one reading. The plant upsert, the sensor upsert and the
// reading insert commit together or not at all.
func (s *Store) Record(ctx context.Context, r Sample) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx,
		`INSERT INTO plants (id, name, species) VALUES (:id, :name, :species)
		 ON CONFLICT (id) DO NOTHING`, plantFor(r.PlantID)); err != nil {
		return fmt.Errorf("upsert plant %d: %w", r.PlantID, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO sensors (id, type, plant_id) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET type = excluded.type, plant_id = excluded.plant_id`),
		r.SensorID, string(r.Measurement), r.PlantID); err != nil {
		return fmt.Errorf("upsert sensor %d: %w", r.SensorID, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO readings (sensor_id, plant_id, measurement, value, created_ms) VALUES (?, ?, ?, ?, ?)`),
		r.SensorID, r.PlantID, string(r.Measurement), r.Value, r.Time.UnixMilli()); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return tx.Commit()
}

type readingRow struct {
	SensorID    int    `db:"sensor_id"`
	PlantID     int    `db:"plant_id"`
	Measurement string `db:"measurement"`
	Value       int    `db:"value"`
	CreatedMs   int64  `db:"created_ms"`
}

// Latest returns the newest readings first. measurement may be empty.
func (s *Store) Latest(ctx context.Context, measurement string, limit int) ([]Sample, error) {
	q := `SELECT sensor_id, plant_id, measurement, value, created_ms FROM readings`
	args := []any{}
	if measurement = strings.TrimSpace(measurement); measurement != "" {
		q += ` WHERE measurement = ?`
		args = append(args, measurement)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	var rows []readingRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	out := make([]Sample, 0, len(rows))
	for _, r := range rows {
		out = append(out, Sample{
			Measurement: model.Measurement(r.Measurement),
			SensorID:    r.SensorID,
			PlantID:     r.PlantID,
			Value:       r.Value,
			Time:        time.UnixMilli(r.CreatedMs).UTC(),
		})
	}
	return out, nil
}

// Plants lists the plants seen so far.
func (s *Store) Plants(ctx context.Context) ([]model.Plant, error) {
	var out []model.Plant
	err := s.db.SelectContext(ctx, &out, `SELECT id, name, species FROM plants ORDER BY id`)
	return out, err
}

// SensorPlant returns the plant a sensor is bound to.
func (s *Store) SensorPlant(ctx context.Context, sensorID int) (int, error) {
	var plant int
	err := s.db.GetContext(ctx, &plant, s.db.Rebind(`SELECT plant_id FROM sensors WHERE id = ?`), sensorID)
	return plant, err
}
