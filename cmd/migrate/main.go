package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"trafficmonitor/internal/logger"
	"trafficmonitor/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/traffic.db", "Database path")
	cmd := flag.String("cmd", "up", "Migration command: up, down or version")
	flag.Parse()

	db, err := sqlite.Open(*dbPath, logger.NewWithWriter(os.Stdout))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	switch *cmd {
	case "up":
		if err := db.MigrateUp(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Println("✅ Database is at the latest schema version")
	case "down":
		if err := db.MigrateDown(); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		fmt.Println("✅ Rolled back the most recent migration")
	case "version":
		version, dirty, err := db.MigrateVersion()
		if err != nil {
			log.Fatalf("Failed to read schema version: %v", err)
		}
		fmt.Printf("📊 Schema version: %d (dirty: %v)\n", version, dirty)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want up, down or version)\n", *cmd)
		os.Exit(2)
	}
}
