package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"library-borrow-engine/configs"
	"library-borrow-engine/internal/daemon"
	"library-borrow-engine/internal/db"
	"library-borrow-engine/internal/engine"
	"library-borrow-engine/internal/handlers"
	"library-borrow-engine/internal/middleware"
	"library-borrow-engine/internal/utils"
)

func main() {
	cfg := configs.LoadConfig()
	db.Connect(cfg.MongoURI)
	utils.InitJwtSecret(cfg.JWTSecret)

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	r := mux.NewRouter()
	r.Use(middleware.JSONMiddleware)
	r.Use(middleware.RequestLogger(logger))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "OK")
	})

	authHandler := &handlers.AuthHandler{
		ConfigCreds: struct {
			UserId       string
			Username     string
			UserPassword string
		}{UserId: cfg.UserId, Username: cfg.UserName, UserPassword: cfg.UserPassword},
	}
	r.HandleFunc("/login", authHandler.Login).Methods("POST")

	auditCol := db.GetCollection(cfg.DBName, "audit_logs")
	auditLogger := utils.Logger{Collection: auditCol}

	exporter := daemon.LogExporter{Coll: auditCol}
	exporter.InitLogExporter()

	titleCol := db.GetCollection(cfg.DBName, "titles")
	patronCol := db.GetCollection(cfg.DBName, "patrons")
	loanCol := db.GetCollection(cfg.DBName, "loans")
	intentCol := db.GetCollection(cfg.DBName, "reservation_intents")

	titleHandler := handlers.NewTitleHandler(titleCol, auditLogger)

	titlesRouter := r.PathPrefix("/").Subrouter()
	titlesRouter.Use(middleware.JWTAuthMiddleware)

	titlesRouter.HandleFunc("/titles", titleHandler.AddTitle).Methods("POST")
	titlesRouter.HandleFunc("/titles", titleHandler.GetTitles).Methods("GET")
	titlesRouter.HandleFunc("/titles/search", titleHandler.SearchTitles).Methods("GET")
	titlesRouter.HandleFunc("/titles/{id}", titleHandler.GetTitle).Methods("GET")
	titlesRouter.HandleFunc("/titles/{id}", titleHandler.UpdateTitle).Methods("PUT")
	titlesRouter.HandleFunc("/titles/{id}", titleHandler.DeleteTitle).Methods("DELETE")

	patronHandler := handlers.NewPatronHandler(patronCol, auditLogger)

	r.HandleFunc("/patrons", patronHandler.RegisterPatron).Methods("POST")
	r.HandleFunc("/patrons/{id}", patronHandler.UpdatePatron).Methods("PUT")
	r.HandleFunc("/patrons/{id}/deactivate", patronHandler.DeactivatePatron).Methods("PATCH")

	advisor := &engine.ReservationAdvisor{
		TitleCol:  titleCol,
		IntentCol: intentCol,
	}

	fines := engine.NewFineCalculator(cfg.FineRatePerHour)

	controller := &engine.LifecycleController{
		TitleCol:    titleCol,
		PatronCol:   patronCol,
		LoanCol:     loanCol,
		Advisor:     advisor,
		Eligibility: engine.EligibilityEvaluator{MaxActiveLoans: cfg.MaxActiveLoans},
		Fines:       fines,
		Config: struct {
			LoanPeriodDays int
		}{LoanPeriodDays: cfg.LoanPeriodDays},
	}

	loanHandler := &handlers.LoanHandler{
		Controller:  controller,
		Fines:       fines,
		LoanCol:     loanCol,
		AuditLogger: auditLogger,
	}

	r.HandleFunc("/loans", loanHandler.GetLoans).Methods("GET")
	r.HandleFunc("/loans/request", loanHandler.RequestLoan).Methods("POST")
	r.HandleFunc("/loans/overdue", loanHandler.GetOverdueLoans).Methods("GET")
	r.HandleFunc("/loans/{id}/approve", loanHandler.ApproveLoan).Methods("POST")
	r.HandleFunc("/loans/{id}/reject", loanHandler.RejectLoan).Methods("POST")
	r.HandleFunc("/loans/{id}/return", loanHandler.ReturnLoan).Methods("POST")
	r.HandleFunc("/loans/{id}/fine", loanHandler.GetFine).Methods("GET")

	metricsHandler := handlers.MetricsHandler{
		TitleCol:  titleCol,
		PatronCol: patronCol,
		LoanCol:   loanCol,
		Fines:     fines,
	}

	r.HandleFunc("/admin/metrics", metricsHandler.GetMetrics).Methods("GET")

	var server = http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Server shut down.")
}
