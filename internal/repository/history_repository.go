package repository

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/abelzeko/flood-alert/internal/entities"
	_ "github.com/mattn/go-sqlite3"
)

// HistoryRepository defines persistence operations for the historical discharge dataset
type HistoryRepository interface {
	SaveRecords(records []entities.HistoricalRecord) error
	LoadRecords() ([]entities.HistoricalRecord, error)
	Close() error
}

// SQLiteHistoryRepository implements HistoryRepository using SQLite
type SQLiteHistoryRepository struct {
	db     *sql.DB
	DBPath string
}

// NewSQLiteHistoryRepository opens (creating if needed) the dataset database at dbPath
func NewSQLiteHistoryRepository(dbPath string) (*SQLiteHistoryRepository, error) {
	if dbPath == "" {
		// Set default path if not specified
		dbDir := "data"
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
		dbPath = filepath.Join(dbDir, "discharge_history.db")
	}

	log.Printf("Opening database at %s", dbPath)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS discharge_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		buddhist_year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		day INTEGER NOT NULL,
		discharge_rate REAL NOT NULL,
		UNIQUE(buddhist_year, month, day)
	);
	CREATE INDEX IF NOT EXISTS idx_history_year ON discharge_history(buddhist_year);`

	_, err = db.Exec(createTableSQL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return &SQLiteHistoryRepository{
		db:     db,
		DBPath: dbPath,
	}, nil
}

// Close closes the database connection
func (r *SQLiteHistoryRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveRecords stores records, replacing the discharge of any date already present
func (r *SQLiteHistoryRepository) SaveRecords(records []entities.HistoricalRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO discharge_history(buddhist_year, month, day, discharge_rate)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(buddhist_year, month, day) DO UPDATE SET
		discharge_rate=excluded.discharge_rate
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %v", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.Exec(rec.BuddhistYear, rec.Month, rec.Day, rec.DischargeRate)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert record for %d-%02d-%02d: %v", rec.BuddhistYear, rec.Month, rec.Day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	log.Printf("Successfully saved %d historical records", len(records))
	return nil
}

// LoadRecords returns every record in insertion order
func (r *SQLiteHistoryRepository) LoadRecords() ([]entities.HistoricalRecord, error) {
	rows, err := r.db.Query(`
		SELECT buddhist_year, month, day, discharge_rate
		FROM discharge_history
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query historical records: %v", err)
	}
	defer rows.Close()

	var result []entities.HistoricalRecord
	for rows.Next() {
		var rec entities.HistoricalRecord
		if err := rows.Scan(&rec.BuddhistYear, &rec.Month, &rec.Day, &rec.DischargeRate); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %v", err)
	}

	return result, nil
}

// GetYears returns the distinct Buddhist years present, newest first
func (r *SQLiteHistoryRepository) GetYears() ([]int, error) {
	rows, err := r.db.Query(`SELECT DISTINCT buddhist_year FROM discharge_history ORDER BY buddhist_year DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query years: %v", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		years = append(years, y)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %v", err)
	}

	return years, nil
}
