package backend

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/savepoint/savepoint/backend/gamification"
	"github.com/savepoint/savepoint/backend/habits"
	"github.com/savepoint/savepoint/backend/jobs"
	"github.com/savepoint/savepoint/backend/progress"
	"github.com/savepoint/savepoint/backend/queue"
	"github.com/savepoint/savepoint/backend/server"
	"github.com/savepoint/savepoint/backend/server/auth"
	"github.com/savepoint/savepoint/backend/server/notifications/email"
	cache "github.com/savepoint/savepoint/backend/storage/cache"
	storage "github.com/savepoint/savepoint/backend/storage/persistent"
	"github.com/savepoint/savepoint/backend/tasks"
	"github.com/savepoint/savepoint/lib/logger"
	"go.uber.org/zap"
)

// sweepInterval is how often the streak sweep job runs. Streaks are defined on
// calendar days, so once a day is enough; running more often is harmless
// because the sweep is idempotent within a day.
const sweepInterval = 24 * time.Hour

// RunBackend wires every service together and runs the REST server until the
// process is signalled. Redis, RabbitMQ, and SMTP are optional: when their
// environment variables are empty the server runs without caching and
// without email reminders.
func RunBackend() {
	if err := godotenv.Load("backend/.env"); err != nil {
		fmt.Println("Error loading backend/.env file")
	}

	signingKey := os.Getenv("JWT_SIGNING_KEY")
	serverURL := os.Getenv("SERVER_URL")
	dbURI := os.Getenv("MONGODB_URI")
	dbName := os.Getenv("DB_NAME")
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPortStr := os.Getenv("SMTP_PORT")
	smtpEmail := os.Getenv("SMTP_EMAIL")
	smtpPassword := os.Getenv("SMTP_PASSWORD")
	redisURL := os.Getenv("REDIS_URL")
	rabbitMQURL := os.Getenv("RABBITMQ_URL")
	logLevel := os.Getenv("LOG_LEVEL")
	logFile := os.Getenv("LOG_FILE")
	numReminderProducers := 1
	numReminderConsumers := 2
	ctx := context.Background()

	log := logger.New(logLevel, logFile)
	defer log.Sync()

	store, err := storage.NewStorage(dbName, dbURI)
	if err != nil {
		log.Fatal("failed to connect to storage", zap.Error(err))
	}

	catalog := gamification.DefaultCatalog()
	if err := store.SeedAchievements(ctx, catalog); err != nil {
		log.Fatal("failed to seed achievement catalog", zap.Error(err))
	}

	var cach cache.CacheInterface
	if redisURL != "" {
		cach, err = cache.NewCache(redisURL)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
	} else {
		log.Warn("REDIS_URL not set, running without cache")
	}

	var reminderQueue *queue.Queue
	if rabbitMQURL != "" && smtpHost != "" {
		smtpPort, err := strconv.Atoi(smtpPortStr)
		if err != nil {
			log.Fatal("invalid SMTP_PORT", zap.String("value", smtpPortStr))
		}
		if err := email.Init(smtpHost, smtpPort, smtpEmail, smtpPassword); err != nil {
			log.Fatal("failed to initialize email sender", zap.Error(err))
		}

		reminderQueue, err = queue.BuildReminderQueue(rabbitMQURL, numReminderProducers, numReminderConsumers, cach, log)
		if err != nil {
			log.Fatal("failed to build reminder queue", zap.Error(err))
		}
		if _, _, err := reminderQueue.StartConsumers(ctx); err != nil {
			log.Fatal("failed to start reminder consumers", zap.Error(err))
		}
	} else {
		log.Warn("RABBITMQ_URL or SMTP_HOST not set, running without email reminders")
	}

	habits.Init(store, log, catalog)
	tasks.Init(store, log, catalog)
	progress.Init(store, cach, log)
	auth.InitAuth(store, signingKey, reminderQueue, log)
	server.Init(store, log)

	if reminderQueue != nil {
		go func() {
			ticker := time.NewTicker(sweepInterval)
			defer ticker.Stop()
			for {
				jobs.Sweep(ctx, store, func(m *queue.ReminderMessage) error {
					return queue.ProcessReminder(m, reminderQueue)
				}, log, time.Now().UTC())
				<-ticker.C
			}
		}()
	}

	go func() {
		if err := server.Start(serverURL); err != nil {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Info("shutting down", zap.String("signal", sig.String()))
}
