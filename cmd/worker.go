package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"teamwiki/src/core/search"
	"teamwiki/src/core/wiki"
	"teamwiki/src/infrastructure/integrations/yandex"
	"teamwiki/src/infrastructure/job"
	"teamwiki/src/infrastructure/log"
	"teamwiki/src/jobctrl"
	"teamwiki/src/storage/postgres/articlectrl"
	"teamwiki/src/storage/weaviate"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background reindex worker",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	settingDefaultConfig()
}

func runWorker(cmd *cobra.Command, args []string) error {
	logger := watermill.NewStdLogger(false, false)

	// Initialize PostgreSQL connection
	db, err := gorm.Open(postgres.Open(postgresDSN()), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	// Get underlying *sql.DB for cleanup
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %v", err)
	}
	defer sqlDB.Close()

	// Initialize AMQP publisher
	amqpPublisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return err
	}
	defer amqpPublisher.Close()

	// Initialize AMQP subscriber
	subscriberConfig := amqp.NewDurableQueueConfig(viper.GetString("amqp.url"))
	subscriberConfig.Consume.NoRequeueOnNack = true
	amqpSubscriber, err := amqp.NewSubscriber(
		subscriberConfig,
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return err
	}
	defer amqpSubscriber.Close()

	// Initialize router
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return err
	}

	// Add middleware
	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: time.Second,
			Logger:          logger,
		}.Middleware,
	)

	// Initialize article repository
	articleRepo, err := articlectrl.NewRepository(db)
	if err != nil {
		return fmt.Errorf("failed to initialize article repository: %v", err)
	}

	// Initialize Weaviate client
	wc := weaviateClient.New(weaviateClient.Config{
		Host:   viper.GetString("weaviate.host"),
		Scheme: viper.GetString("weaviate.scheme"),
	})
	wsdk := weaviate.NewSDK(wc)
	if err := wsdk.EnsureReady(cmd.Context()); err != nil {
		return fmt.Errorf("failed to prepare vector index: %v", err)
	}

	// Initialize embedding pipeline
	yc := yandex.NewClient(
		viper.GetString("yandex.api_url"),
		viper.GetString("yandex.api_key"),
		viper.GetString("yandex.folder_id"),
		&http.Client{Timeout: 120 * time.Second},
	)
	embedder := search.NewEmbedder(yc, weaviate.VectorSize)
	indexer := wiki.NewIndexer(embedder, wsdk)

	// Initialize reindex task
	reindexTask := jobctrl.NewReindexTask(articleRepo, indexer)

	// Initialize job repository and service
	jobRepo, err := job.NewPostgresRepository(db)
	if err != nil {
		return fmt.Errorf("failed to initialize job repository: %v", err)
	}
	jobService := job.NewService(amqpPublisher, jobRepo, logger, reindexTask)

	// Add handler for processing jobs
	router.AddNoPublisherHandler(
		"job_processor",
		job.Topic,
		amqpSubscriber,
		func(msg *message.Message) error {
			return jobService.ProcessMessage(msg)
		},
	)

	// Run the router
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := router.Run(ctx); err != nil {
			log.Error(err, "Router stopped with error")
		}
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	log.Info("Shutting down worker...")
	cancel()
	<-router.Running()
	log.Info("Router stopped")

	return nil
}
