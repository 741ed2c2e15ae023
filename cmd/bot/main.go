package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/zaqqye/gradebot_v1/internal/binder"
	"github.com/zaqqye/gradebot_v1/internal/bot"
	"github.com/zaqqye/gradebot_v1/internal/config"
	"github.com/zaqqye/gradebot_v1/internal/database"
	"github.com/zaqqye/gradebot_v1/internal/grading"
	"github.com/zaqqye/gradebot_v1/internal/pipeline"
	"github.com/zaqqye/gradebot_v1/internal/routes"
	"github.com/zaqqye/gradebot_v1/internal/storage"
	"github.com/zaqqye/gradebot_v1/internal/store"
	"github.com/zaqqye/gradebot_v1/internal/ws"
)

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	if err := database.SeedAdmin(db, cfg); err != nil {
		log.Fatalf("admin seed failed: %v", err)
	}

	st := store.New(db)

	registry, err := grading.LoadRegistry(cfg.RubricMapFile, cfg.RubricDir)
	if err != nil {
		// Without rubrics every submission is rejected with a clear message;
		// binding and listing still work.
		log.Printf("rubric registry unavailable: %v", err)
		registry = grading.NewRegistry(nil)
	}
	grader := grading.NewOrchestrator(registry, grading.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel), cfg.GradingTimeout)

	var remote storage.RemoteStore
	if cfg.OSSEndpoint != "" && cfg.OSSBucket != "" {
		ossStore, err := storage.NewOSSStore(cfg.OSSEndpoint, cfg.OSSKeyID, cfg.OSSSecret, cfg.OSSBucket, cfg.OSSPrefix)
		if err != nil {
			log.Fatalf("remote storage init failed: %v", err)
		}
		remote = ossStore
	} else {
		log.Println("remote mirror disabled: OSS settings not configured")
	}
	mat := storage.NewMaterializer(cfg.UploadsDir, cfg.ReportsDir, remote)

	hub := ws.NewEventHub()
	go hub.Run()

	pipe := pipeline.New(st, grader, mat, hub)
	bnd := binder.New(st)

	discordBot, err := bot.New(cfg.DiscordToken, bnd, pipe, st, hub, cfg.WelcomeChannelID)
	if err != nil {
		log.Fatalf("bot init failed: %v", err)
	}
	if err := discordBot.Start(); err != nil {
		log.Fatalf("bot connection failed: %v", err)
	}
	defer discordBot.Stop()
	log.Println("bot is running")

	// Ops API runs alongside the bot.
	r := gin.Default()
	routes.Register(r, db, st, hub, cfg)
	go func() {
		if err := r.Run(":" + cfg.Port); err != nil {
			log.Println("ops server exited with error:", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")
}
