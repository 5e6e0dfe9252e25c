// cmd/attendance/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"clubroll/internal/attendance"
	"clubroll/internal/auth"
	"clubroll/internal/clients"
	"clubroll/internal/config"
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

	shutdown, err := observability.SetupTracing(ctx, "clubroll-attendance", cfg.OTLPEndpoint)
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
	membershipClient := clients.NewMembershipClient(cfg.MembershipServiceURL, cfg.ServiceToken)
	coursesClient := clients.NewCoursesClient(cfg.CoursesServiceURL, cfg.ServiceToken)
	svc := attendance.NewService(es, db, membershipClient, coursesClient)
	handler := attendance.NewHandler(svc)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(auth.Middleware([]byte(cfg.JWTSecret)))

	handler.Routes(router)

	fmt.Printf("Starting Attendance Service on port %s\n", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}
