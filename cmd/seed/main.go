// Command seed opens a week of availability for sample doctors and prints bearer tokens
// for local testing against a jwt-configured server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"medibook/config"
	"medibook/database"
	schedulerRepo "medibook/database/repository/scheduler"
	"medibook/models"
	"medibook/services/booking"
	"medibook/services/identity"
	"medibook/utils"
)

func main() {
	doctors := flag.Int("doctors", 3, "number of sample doctors")
	days := flag.Int("days", 7, "number of days of availability starting today")
	start := flag.String("start", "9:00 AM", "daily opening time")
	end := flag.String("end", "5:00 PM", "daily closing time")
	flag.Parse()
	if *days < 1 {
		log.Fatal("-days must be at least 1")
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	utils.InitializeLogger(cfg.Env, cfg.LogLevel)
	logger := utils.GetLogger()

	openTime, err := models.ParseTimePoint(*start)
	if err != nil {
		log.Fatalf("Invalid -start: %v", err)
	}
	closeTime, err := models.ParseTimePoint(*end)
	if err != nil {
		log.Fatalf("Invalid -end: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var repo schedulerRepo.SchedulerRepository
	switch cfg.StoreBackend {
	case "redis":
		client, err := utils.NewRedisClient(ctx, cfg, cfg.RedisStoreDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		repo = schedulerRepo.NewRedisSchedulerRepo(client, schedulerRepo.WithLogger(logger))
	default:
		client, err := database.NewMongoClient(ctx, cfg, logger)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		mongoRepo := schedulerRepo.NewMongoSchedulerRepo(client.Database(cfg.DatabaseName), schedulerRepo.WithLogger(logger))
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			log.Fatalf("Failed to create indexes: %v", err)
		}
		repo = mongoRepo
	}
	defer repo.Close(context.Background())

	engine := booking.NewDefaultSchedulingEngine(repo, booking.NewStaticCatalog(cfg.AppointmentTypes), nil, nil, logger)
	tokens := identity.NewJWTProvider(cfg.JWTSecret)

	// Generate dates for the requested number of days.
	var dates []string
	today := time.Now()
	for i := 0; i < *days; i++ {
		dates = append(dates, today.AddDate(0, 0, i).Format(models.DateLayout))
	}

	for i := 1; i <= *doctors; i++ {
		doctorID := fmt.Sprintf("doc-%d", i)
		windows, err := engine.UpdateAvailabilities(identity.WithUserID(ctx, doctorID), dates, openTime, closeTime)
		if err != nil {
			log.Fatalf("Failed to seed availability for %s: %v", doctorID, err)
		}
		fmt.Printf("%s: %d dates, %d slots per day\n", doctorID, len(windows), len(windows[0].AvailableSlots))
		printToken(tokens, doctorID)
	}
	printToken(tokens, "pat-1")
}

func printToken(tokens *identity.JWTProvider, userID string) {
	token, err := tokens.Issue(userID, 24*time.Hour)
	if err != nil {
		log.Printf("Skipping token for %s: %v", userID, err)
		return
	}
	fmt.Printf("  token for %s: %s\n", userID, token)
}
