// cmd/api/main.go
package main

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"

	"clubroll/internal/config"
)

func main() {
	cfg := config.MustLoad()

	coursesURL, err := url.Parse(cfg.CoursesServiceURL)
	if err != nil {
		log.Fatalf("Invalid courses service URL: %v", err)
	}
	attendanceURL, err := url.Parse(cfg.AttendanceServiceURL)
	if err != nil {
		log.Fatalf("Invalid attendance service URL: %v", err)
	}
	membershipURL, err := url.Parse(cfg.MembershipServiceURL)
	if err != nil {
		log.Fatalf("Invalid membership service URL: %v", err)
	}

	coursesProxy := httputil.NewSingleHostReverseProxy(coursesURL)
	attendanceProxy := httputil.NewSingleHostReverseProxy(attendanceURL)
	membershipProxy := httputil.NewSingleHostReverseProxy(membershipURL)

	http.Handle("/api/v1/courses/", http.StripPrefix("/api/v1/courses", coursesProxy))
	http.Handle("/api/v1/attendance/", http.StripPrefix("/api/v1/attendance", attendanceProxy))
	http.Handle("/api/v1/members/", http.StripPrefix("/api/v1/members", membershipProxy))

	log.Printf("API Gateway listening on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, nil))
}
