package main

import (
	"flag"
	"log"
	"os"

	"github.com/abelzeko/flood-alert/internal/repository"
)

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	csvPath := flag.String("csv", "data/discharge_history.csv", "historical discharge CSV to import")
	dbPath := flag.String("db", "", "SQLite database to write (default data/discharge_history.db)")
	flag.Parse()

	log.Printf("Importing %s", *csvPath)

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("Failed to open CSV: %v", err)
	}
	defer f.Close()

	records, dropped, err := repository.ReadCSVRecords(f)
	if err != nil {
		log.Fatalf("Failed to read CSV: %v", err)
	}

	repo, err := repository.NewSQLiteHistoryRepository(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	if err := repo.SaveRecords(records); err != nil {
		log.Fatalf("Failed to save records: %v", err)
	}

	years, err := repo.GetYears()
	if err != nil {
		log.Fatalf("Failed to list years: %v", err)
	}
	log.Printf("Imported %d records (%d rows dropped); database now covers years %v", len(records), dropped, years)
}
