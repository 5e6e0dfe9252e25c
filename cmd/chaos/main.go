// cmd/chaos/main.go
package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"clubroll/chaos"
	"clubroll/internal/config"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.MustLoad()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	engine := chaos.NewEngine(db, "http://localhost:"+cfg.Port)
	engine.RegisterExperiments()

	gameDay := chaos.GameDay{
		Name:      "Weekly Chaos Game Day",
		Date:      time.Now(),
		Scenarios: engine.Experiments(),
	}

	if err := engine.ExecuteGameDay(context.Background(), gameDay); err != nil {
		log.Fatalf("Chaos Game Day failed: %v", err)
	}
}
