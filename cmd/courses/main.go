// cmd/courses/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"clubroll/internal/auth"
	"clubroll/internal/config"
	"clubroll/internal/courses"
	"clubroll/internal/observability"
	"clubroll/pkg/eventstore"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
)

func main() {
	cfg := config.MustLoad()
	ctx := context.Background()

	shutdown, err := observability.SetupTracing(ctx, "clubroll-courses", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdown(ctx)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	es := eventstore.NewEventStore(db)
	svc := courses.NewService(es, db)
	handler := courses.NewHandler(svc)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(auth.Middleware([]byte(cfg.JWTSecret)))

	handler.Routes(router)

	fmt.Printf("Starting Courses Service on port %s\n", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}
