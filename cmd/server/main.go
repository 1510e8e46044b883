package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"medical-intake-agent/internal/cases"
	"medical-intake-agent/internal/config"
	"medical-intake-agent/internal/intake"
	"medical-intake-agent/internal/llm"
	"medical-intake-agent/internal/logger"
	"medical-intake-agent/internal/platform/telegram"
	"medical-intake-agent/internal/report"
	"medical-intake-agent/internal/store"
)

func main() {
	// 1. Configuration & logging
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet.
		panic(err)
	}
	if _, err := logger.New(cfg.LogLevel, cfg.LogFormat); err != nil {
		panic(err)
	}

	// 2. Persistence
	var (
		checkpoints intake.CheckpointStore
		caseRepo    cases.Repository
	)
	switch cfg.StoreBackend {
	case "postgres":
		db := connectDB(cfg.DatabaseURL)
		runMigrations(cfg.MigrationsDir, cfg.DatabaseURL)
		checkpoints = store.NewPostgresStore(db)
		caseRepo = cases.NewPostgresRepository(db)
	default:
		log.Warn().Msg("using in-memory stores; conversations and cases are lost on restart")
		checkpoints = store.NewMemoryStore(cfg.CheckpointTTL)
		caseRepo = cases.NewMemoryRepository()
	}

	// 3. Collaborators
	completer := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout)
	caseSvc := cases.NewService(caseRepo)

	var notifier intake.Notifier
	if cfg.TelegramBotToken != "" && cfg.StaffChatID != 0 {
		tgClient := telegram.NewClient(cfg.TelegramBotToken)
		notifier = report.NewService(tgClient, cfg.StaffChatID)
	} else {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN / STAFF_CHAT_ID not set; emergency handoff paging is disabled")
	}

	// 4. Services
	controller := intake.NewController(completer)
	intakeSvc := intake.NewService(checkpoints, controller, caseSvc, notifier, cfg.LLMMaxRetries)
	intakeHandler := intake.NewHandler(intakeSvc)
	casesHandler := cases.NewHandler(caseSvc)

	// 5. Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS for the patient/staff frontends
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
			if r.Method == "OPTIONS" {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		intake.RegisterRoutes(r, intakeHandler)
		cases.RegisterRoutes(r, casesHandler)
	})

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("server starting")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func connectDB(dbURL string) *sql.DB {
	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", dbURL)
		if err == nil {
			err = db.Ping()
		}
		if err == nil {
			log.Info().Msg("connected to database")
			return db
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("waiting for database")
		time.Sleep(2 * time.Second)
	}
	log.Fatal().Err(err).Msg("could not connect to database")
	return nil
}

func runMigrations(sourceURL, dbURL string) {
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("migration init failed")
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatal().Err(err).Msg("migration up failed")
	}
	log.Info().Msg("migrations applied")
}
