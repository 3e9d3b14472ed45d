package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abelzeko/flood-alert/internal/entities"
)

// Header candidates, matched as case-insensitive substrings. The discharge column is
// resolved first so that its unit text cannot be mistaken for the day or year column.
var (
	dischargeHeaders = []string{"ลบ.ม.", "m3/s", "m³/s", "cms", "discharge"}
	yearHeaders      = []string{"ปี", "year"}
	monthHeaders     = []string{"เดือน", "month"}
	dayHeaders       = []string{"วัน", "day"}
)

// LoadHistory loads the historical dataset at path. SQLite files (.db, .sqlite, .sqlite3)
// are read from the discharge_history table; anything else is parsed as CSV.
// A missing file is not an error: it yields an empty store.
func LoadHistory(path string) (*HistoryStore, error) {
	if path == "" {
		log.Printf("No historical dataset configured")
		return NewHistoryStore(nil), nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("Warning: historical dataset not found at %s", path)
			return NewHistoryStore(nil), nil
		}
		return nil, fmt.Errorf("failed to stat historical dataset: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		repo, err := NewSQLiteHistoryRepository(path)
		if err != nil {
			return nil, err
		}
		defer repo.Close()
		records, err := repo.LoadRecords()
		if err != nil {
			return nil, err
		}
		log.Printf("Loaded %d historical records from SQLite %s", len(records), path)
		return NewHistoryStore(records), nil
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open historical dataset: %w", err)
		}
		defer f.Close()
		records, dropped, err := ReadCSVRecords(f)
		if err != nil {
			return nil, err
		}
		log.Printf("Loaded %d historical records from %s (%d rows dropped)", len(records), path, dropped)
		return NewHistoryStore(records), nil
	}
}

// ReadCSVRecords parses a historical dataset with a header row. Rows whose year, Thai month
// name, day or discharge cannot be parsed, or whose date does not exist, are dropped and counted.
func ReadCSVRecords(r io.Reader) ([]entities.HistoricalRecord, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, 0, err
	}

	var records []entities.HistoricalRecord
	dropped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read CSV row: %w", err)
		}
		rec, ok := parseRow(row, cols)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped, nil
}

type columns struct {
	year, month, day, discharge int
}

func resolveColumns(header []string) (columns, error) {
	names := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		names[i] = strings.ToLower(strings.TrimSpace(h))
	}

	used := make(map[int]bool)
	find := func(what string, candidates []string) (int, error) {
		for i, name := range names {
			if used[i] {
				continue
			}
			for _, c := range candidates {
				if strings.Contains(name, strings.ToLower(c)) {
					used[i] = true
					return i, nil
				}
			}
		}
		return -1, fmt.Errorf("historical dataset has no %s column (header: %v)", what, header)
	}

	var cols columns
	var err error
	if cols.discharge, err = find("discharge", dischargeHeaders); err != nil {
		return cols, err
	}
	if cols.year, err = find("year", yearHeaders); err != nil {
		return cols, err
	}
	if cols.month, err = find("month", monthHeaders); err != nil {
		return cols, err
	}
	if cols.day, err = find("day", dayHeaders); err != nil {
		return cols, err
	}
	return cols, nil
}

func parseRow(row []string, cols columns) (entities.HistoricalRecord, bool) {
	field := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	year, ok := parseWhole(field(cols.year))
	if !ok {
		return entities.HistoricalRecord{}, false
	}
	month, ok := ThaiMonth(field(cols.month))
	if !ok {
		return entities.HistoricalRecord{}, false
	}
	day, ok := parseWhole(field(cols.day))
	if !ok {
		return entities.HistoricalRecord{}, false
	}
	rate, err := strconv.ParseFloat(strings.ReplaceAll(field(cols.discharge), ",", ""), 64)
	if err != nil {
		return entities.HistoricalRecord{}, false
	}
	if _, ok := composeDate(year, month, day); !ok {
		return entities.HistoricalRecord{}, false
	}
	return entities.HistoricalRecord{
		BuddhistYear:  year,
		Month:         month,
		Day:           day,
		DischargeRate: rate,
	}, true
}

// parseWhole accepts "2567" as well as spreadsheet exports like "2567.0"
func parseWhole(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
