package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/djgianterkancelik-svg/xentix/bot"
	"github.com/djgianterkancelik-svg/xentix/controllers"
	"github.com/djgianterkancelik-svg/xentix/database"
	"github.com/djgianterkancelik-svg/xentix/engine"
	"github.com/djgianterkancelik-svg/xentix/middleware"
	"github.com/djgianterkancelik-svg/xentix/routes"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present (do not overwrite already-set environment variables).
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	if os.Getenv("DB_DSN") == "" {
		for _, envVar := range []string{"DB_HOST", "DB_USER", "DB_NAME"} {
			if os.Getenv(envVar) == "" {
				log.Fatalf("Required environment variable %s is not set", envVar)
			}
		}
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// Auto-migrate only in development to avoid accidental production schema changes
	if strings.ToLower(os.Getenv("ENV")) == "development" {
		log.Println("Running in development mode - performing auto-migration")
		if err := database.Migrate(db); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
	}
	// Task catalog seeding is keyed on title and safe to re-run
	if err := database.SeedTasks(db); err != nil {
		log.Fatalf("failed to seed tasks: %v", err)
	}

	botUsername := os.Getenv("BOT_USERNAME")
	if botUsername == "" {
		botUsername = "XentixMiningBot"
	}
	eng := engine.New(db, botUsername)

	// Telegram adapter is optional; the REST API works without it
	var tgBot *bot.Bot
	if token := os.Getenv("BOT_TOKEN"); token != "" {
		api, err := tgbotapi.NewBotAPI(token)
		if err != nil {
			log.Fatalf("failed to start telegram bot: %v", err)
		}
		tgBot = bot.New(api, eng, os.Getenv("WEBAPP_URL"))
		go tgBot.Run()
	} else {
		log.Println("BOT_TOKEN not set - running without the telegram adapter")
	}

	router := routes.InitRouter(controllers.NewMinerController(eng))

	// Wrap router with global middleware:
	// Logging -> Security headers -> Request ID -> Max Body -> Timeout -> Recovery
	handler := middleware.RequestLogMiddleware(
		middleware.SecurityHeadersMiddleware(
			middleware.RequestIDMiddleware(
				middleware.MaxBodyMiddleware(
					middleware.TimeoutMiddleware(
						middleware.RecoveryMiddleware(router),
					),
				),
			),
		),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if tgBot != nil {
		tgBot.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
