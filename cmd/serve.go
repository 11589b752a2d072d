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
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"golang.org/x/time/rate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	httpHdlr "teamwiki/handler/http"
	"teamwiki/src/core/auth"
	"teamwiki/src/core/search"
	"teamwiki/src/core/wiki"
	"teamwiki/src/infrastructure/integrations/yandex"
	"teamwiki/src/infrastructure/job"
	"teamwiki/src/infrastructure/log"
	"teamwiki/src/jobctrl"
	"teamwiki/src/storage/minioctrl"
	"teamwiki/src/storage/postgres/articlectrl"
	"teamwiki/src/storage/postgres/groupctrl"
	"teamwiki/src/storage/postgres/teamctrl"
	"teamwiki/src/storage/postgres/userctrl"
	"teamwiki/src/storage/weaviate"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wiki API server",
	Long:  `The serve command starts the HTTP server that provides the wiki and search APIs.`,
	Run:   RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	settingDefaultConfig()
}

func RunServer(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	// Initialize PostgreSQL connection
	dsn := postgresDSN()
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Error(err, "Failed to connect to database")
		return
	}

	// Initialize repositories
	articleRepo, err := articlectrl.NewRepository(db)
	if err != nil {
		log.Error(err, "Failed to initialize article repository")
		return
	}
	groupRepo, err := groupctrl.NewRepository(db)
	if err != nil {
		log.Error(err, "Failed to initialize group repository")
		return
	}
	teamRepo, err := teamctrl.NewRepository(db)
	if err != nil {
		log.Error(err, "Failed to initialize team repository")
		return
	}
	userRepo, err := userctrl.NewRepository(db)
	if err != nil {
		log.Error(err, "Failed to initialize user repository")
		return
	}
	jobRepo, err := job.NewPostgresRepository(db)
	if err != nil {
		log.Error(err, "Failed to initialize job repository")
		return
	}

	// Initialize Weaviate client and make sure the article class exists
	wc := weaviateClient.New(weaviateClient.Config{
		Host:   viper.GetString("weaviate.host"),
		Scheme: viper.GetString("weaviate.scheme"),
	})
	wsdk := weaviate.NewSDK(wc)
	if err := wsdk.EnsureReady(ctx); err != nil {
		log.Error(err, "Failed to prepare vector index")
		return
	}

	// Initialize Yandex API client
	yc := yandex.NewClient(
		viper.GetString("yandex.api_url"),
		viper.GetString("yandex.api_key"),
		viper.GetString("yandex.folder_id"),
		&http.Client{Timeout: 120 * time.Second},
	)

	embedder := search.NewEmbedder(yc, weaviate.VectorSize)
	indexer := wiki.NewIndexer(embedder, wsdk)

	// Initialize AMQP publisher for deferred reindex jobs
	amqpPublisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		log.Error(err, "Failed to create AMQP publisher")
		return
	}
	defer amqpPublisher.Close()

	jobService := job.NewService(amqpPublisher, jobRepo, watermill.NewStdLogger(false, false))
	enqueuer := jobctrl.NewEnqueuer(jobService)

	// Initialize domain services
	articleService := wiki.NewArticleService(articleRepo, groupRepo, indexer, enqueuer)
	groupService := wiki.NewGroupService(groupRepo)
	teamService := wiki.NewTeamService(teamRepo, userRepo)

	searchService := search.NewService(
		embedder,
		wsdk,
		articleRepo,
		groupRepo,
		teamRepo,
		search.NewReranker(yc),
		search.NewSynthesizer(yc),
	)

	// Initialize auth service and seed roles
	authService := auth.NewService(
		userRepo,
		teamService,
		viper.GetString("auth.jwt_secret"),
		viper.GetDuration("auth.access_ttl"),
		viper.GetDuration("auth.refresh_ttl"),
		auth.NewLoginLimiter(rate.Every(10*time.Second), 5),
	)
	if err := authService.EnsureRoles(ctx); err != nil {
		log.Error(err, "Failed to seed roles")
		return
	}

	// Initialize MinIO attachment storage
	minioService, err := minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
	)
	if err != nil {
		log.Error(err, "Failed to initialize minio service")
		return
	}
	if err := minioService.EnsureBucketExists(ctx); err != nil {
		log.Error(err, "Failed to prepare attachment bucket")
		return
	}

	// Setup gin router
	r := gin.Default()

	handler := httpHdlr.NewHandler(
		authService,
		articleService,
		groupService,
		teamService,
		searchService,
		minioService,
	)
	handler.RegisterRoutes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
			return
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Parse shutdown timeout
	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}

	// Create context with timeout for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Get underlying *sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		log.Error(err, "Failed to get underlying *sql.DB")
	} else {
		// Close database connection
		if err := sqlDB.Close(); err != nil {
			log.Error(err, "Error closing database connection")
		}
	}

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server exited")
}

func postgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		viper.GetString("postgres.host"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.port"),
	)
}
