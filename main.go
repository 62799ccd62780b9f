package main

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/joho/godotenv"
	"github.com/oaksmc/ranktiers-bot/bot"
	"github.com/oaksmc/ranktiers-bot/common"
	"github.com/oaksmc/ranktiers-bot/ledger"
	"github.com/oaksmc/ranktiers-bot/links"
	"github.com/oaksmc/ranktiers-bot/lookup"
	"github.com/oaksmc/ranktiers-bot/model"
	"github.com/oaksmc/ranktiers-bot/ranking"
	"github.com/oaksmc/ranktiers-bot/web"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"moul.io/zapgorm2"
)

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	godotenv.Load()

	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	gormLogger := zapgorm2.New(zapLogger)
	gormLogger.SetAsDefault()
	db, err := gorm.Open(sqlite.Open(getenv("DB_PATH", "data/ranktiers.db")), &gorm.Config{Logger: gormLogger})
	if err != nil {
		logger.Fatalf("error opening database: %s", err)
	}
	if err := db.AutoMigrate(&model.Player{}, &model.Kit{}, &model.PlayerKit{}); err != nil {
		logger.Fatalf("error migrating database: %s", err)
	}

	repo := ledger.NewRepository(db, logger)
	if err := repo.SeedKits(ledger.DefaultKits); err != nil {
		logger.Fatalf("error seeding kits: %s", err)
	}

	linkStore, err := links.NewStore(getenv("LINKS_PATH", "data/links.json"), logger)
	if err != nil {
		logger.Fatalf("error loading link store: %s", err)
	}

	aggregator := ranking.NewAggregator(db, logger)
	lookupSvc := lookup.NewService(linkStore, aggregator, logger)

	tierUpdates := make(chan common.TierUpdateNotification, 16)
	tierBot := bot.NewTierBot(
		os.Getenv("DISCORD_TOKEN"),
		os.Getenv("GUILD_ID"),
		os.Getenv("TIER_LOG_CHANNEL"),
		logger,
		linkStore,
		repo,
		lookupSvc,
		tierUpdates,
	)
	if tierBot == nil {
		logger.Fatalf("error starting Discord bot")
	}
	go tierBot.StartBot()

	server := web.NewServer(aggregator, lookupSvc, db, logger)
	server.RefreshLeaderboard()

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.Every(1).Minute().Do(server.RefreshLeaderboard)
	scheduler.StartAsync()

	if os.Getenv("PROD") == "true" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	server.Routes(router)

	port := getenv("PORT", "8080")
	logger.Infof("server listening on port %s", port)
	if err := router.Run(":" + port); err != nil {
		logger.Fatalf("error starting server: %s", err)
	}
}
