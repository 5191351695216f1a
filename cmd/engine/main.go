package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/studylane/assessment-engine/internal/api/http"
	"github.com/studylane/assessment-engine/internal/activity"
	"github.com/studylane/assessment-engine/internal/attempt"
	authmw "github.com/studylane/assessment-engine/internal/auth/middleware"
	"github.com/studylane/assessment-engine/internal/config"
	"github.com/studylane/assessment-engine/internal/db"
	"github.com/studylane/assessment-engine/internal/eventlog"
	"github.com/studylane/assessment-engine/internal/grading"
	"github.com/studylane/assessment-engine/internal/notify"
	"github.com/studylane/assessment-engine/internal/rbac"
	"github.com/studylane/assessment-engine/internal/remedial"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	activities := activity.NewSQLStore(dbh)
	attempts := attempt.NewSQLStore(dbh)
	catalog := remedial.NewSQLCatalog(dbh)
	events := eventlog.NewRepo(dbh)
	sink := notify.LogSink{Logger: logger}

	trigger := remedial.NewTrigger(catalog,
		remedial.WithMinPercent(cfg.RemedialMinPercent),
		remedial.WithSink(sink),
		remedial.WithEventLog(events),
		remedial.WithLogger(logger),
	)
	svc := attempt.NewService(attempts, activities, rbac.NewGate(rbac.SQLRoleSource{DB: dbh}), grading.NewDefaultGrader(),
		attempt.WithHooks(trigger),
		attempt.WithSink(sink),
		attempt.WithEventLog(events),
		attempt.WithLogger(logger),
	)

	authSvc := authmw.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", authmw.LoginHandler(authSvc, dbh))

	// Protected API (JWT → subject+role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc))

		pr.With(rbac.Require("activity:create")).
			Post("/activities", api.CreateActivityHandler(activities))
		pr.With(rbac.Require("activity:publish")).
			Post("/activities/{activityID}/publish", api.PublishActivityHandler(activities))
		pr.With(rbac.Require("activity:view")).
			Get("/activities/{activityID}", api.GetActivityHandler(activities))
		pr.With(rbac.Require("activity:view")).
			Get("/activities", api.ListActivitiesHandler(activities))

		pr.With(rbac.Require("attempt:start")).
			Post("/attempts", api.StartAttemptHandler(svc))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(svc))
		pr.With(rbac.Require("attempt:grade")).
			Post("/attempts/{attemptID}/grades", api.GradeAttemptHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	log.Printf("assessment engine listening on %s (db=%s, mode=%s)", cfg.HTTPAddr, cfg.DBDriver, cfg.Mode)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal(err)
	}
}
