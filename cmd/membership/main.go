// cmd/membership/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"clubroll/internal/auth"
	"clubroll/internal/config"
	"clubroll/internal/membership"
	"clubroll/internal/observability"
	"clubroll/pkg/eventstore"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	cfg := config.MustLoad()
	ctx := context.Background()

	shutdown, err := observability.SetupTracing(ctx, "clubroll-membership", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdown(ctx)

	db, err := sqlx.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	es := eventstore.NewEventStore(db.DB)
	svc := membership.NewService(es, db)
	handler := membership.NewHandler(svc, []byte(cfg.JWTSecret))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	open := router.Group(nil)
	protected := router.Group(func(r chi.Router) {
		r.Use(auth.Middleware([]byte(cfg.JWTSecret)))
	})
	handler.Routes(open, protected)

	fmt.Printf("Starting Membership Service on port %s\n", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}
