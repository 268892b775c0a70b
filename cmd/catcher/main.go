package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	_ "github.com/lib/pq"

	"github.com/nestorcolt/blockcatcher/internal/auth"
	"github.com/nestorcolt/blockcatcher/internal/catcher"
	"github.com/nestorcolt/blockcatcher/internal/config"
	"github.com/nestorcolt/blockcatcher/internal/eligibility"
	"github.com/nestorcolt/blockcatcher/internal/events"
	"github.com/nestorcolt/blockcatcher/internal/flexapi"
	"github.com/nestorcolt/blockcatcher/internal/headers"
	"github.com/nestorcolt/blockcatcher/internal/httpserver"
	"github.com/nestorcolt/blockcatcher/internal/queue"
	"github.com/nestorcolt/blockcatcher/internal/report"
	"github.com/nestorcolt/blockcatcher/internal/runner"
	"github.com/nestorcolt/blockcatcher/internal/signing"
	"github.com/nestorcolt/blockcatcher/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("aws config load: %v", err)
	}

	var profiles store.ProfileStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db open: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
		if err := db.Ping(); err != nil {
			log.Fatalf("db ping: %v", err)
		}
		profiles = store.NewPGStore(db)
	} else {
		profiles = store.NewDynamoStore(awsCfg, cfg.UsersTable)
	}

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub, err := events.NewKafkaPublisher(events.KafkaPublisherConfig{Brokers: cfg.KafkaBrokers})
		if err != nil {
			log.Fatalf("kafka publisher init: %v", err)
		}
		defer kafkaPub.Close()
		publisher = kafkaPub
	} else {
		publisher = events.NewSNSPublisher(awsCfg)
	}

	sqsQueue := queue.NewSQSQueue(awsCfg)
	offersQueueURL, err := sqsQueue.QueueURLByName(ctx, cfg.OffersQueue)
	if err != nil {
		log.Fatalf("resolve offers queue: %v", err)
	}
	acceptedQueueURL := ""
	if cfg.AcceptedQueue != "" {
		acceptedQueueURL, err = sqsQueue.QueueURLByName(ctx, cfg.AcceptedQueue)
		if err != nil {
			log.Fatalf("resolve accepted queue: %v", err)
		}
	}

	var archiver report.Archiver
	if cfg.ArchiveBucket != "" {
		s3Archiver, err := report.NewS3Archiver(awsCfg, cfg.ArchiveBucket, cfg.ArchivePrefix)
		if err != nil {
			log.Fatalf("archiver init: %v", err)
		}
		archiver = s3Archiver
	}

	var signer signing.RequestSigner
	if cfg.SigningSecret != "" {
		signer, err = signing.NewHMACSigner(cfg.SigningCredential, cfg.SigningSecret)
		if err != nil {
			log.Fatalf("signer init: %v", err)
		}
	}

	apiClient := flexapi.NewHTTPClient(flexapi.HTTPClientConfig{BaseURL: cfg.APIBaseURL})
	authenticator, err := auth.NewHTTPAuthenticator(auth.HTTPAuthenticatorConfig{
		TokenURL: cfg.AuthTokenURL,
		Store:    profiles,
	})
	if err != nil {
		log.Fatalf("authenticator init: %v", err)
	}

	reports := report.NewPublisher(report.PublisherConfig{
		Queue:    sqsQueue,
		Archiver: archiver,
	})

	blockCatcher := catcher.New(
		apiClient,
		eligibility.New(),
		publisher,
		reports,
		authenticator,
		headers.New(signer),
		catcher.Config{
			AcceptedTopic:    cfg.AcceptedTopic,
			SleepTopic:       cfg.SleepTopic,
			StopTopic:        cfg.StopTopic,
			OffersQueueURL:   offersQueueURL,
			AcceptedQueueURL: acceptedQueueURL,
			MaxWorkers:       cfg.MaxWorkers,
		},
	)

	tracker := httpserver.NewTracker()
	opsServer := &http.Server{
		Addr:    cfg.OpsAddr,
		Handler: httpserver.New(tracker, cfg.OpsTokenSecret).Router(),
	}
	go func() {
		log.Printf("ops server listening on %s", cfg.OpsAddr)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ops server: %v", err)
		}
	}()

	runnerCfg := runner.Config{
		PollInterval:   cfg.PollInterval,
		FailureBackoff: cfg.FailureBackoff,
	}
	var wg sync.WaitGroup
	for _, userID := range cfg.UserIDs {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			runner.RunUser(ctx, blockCatcher, profiles, tracker, userID, runnerCfg)
		}(userID)
	}

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = opsServer.Shutdown(shutdownCtx)
	wg.Wait()
}
