package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"teamwiki/src/core/search"
	"teamwiki/src/core/wiki"
	"teamwiki/src/infrastructure/integrations/yandex"
	"teamwiki/src/infrastructure/log"
	"teamwiki/src/storage/postgres/articlectrl"
	"teamwiki/src/storage/weaviate"
)

// reindexCmd re-embeds every live article into the vector index. Use it
// after switching embedding providers or rebuilding the Weaviate schema.
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed all articles into the vector index",
	RunE:  runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
	settingDefaultConfig()
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := gorm.Open(postgres.Open(postgresDSN()), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %v", err)
	}
	defer sqlDB.Close()

	articleRepo, err := articlectrl.NewRepository(db)
	if err != nil {
		return fmt.Errorf("failed to initialize article repository: %v", err)
	}

	wc := weaviateClient.New(weaviateClient.Config{
		Host:   viper.GetString("weaviate.host"),
		Scheme: viper.GetString("weaviate.scheme"),
	})
	wsdk := weaviate.NewSDK(wc)
	if err := wsdk.EnsureReady(ctx); err != nil {
		return fmt.Errorf("failed to prepare vector index: %v", err)
	}

	yc := yandex.NewClient(
		viper.GetString("yandex.api_url"),
		viper.GetString("yandex.api_key"),
		viper.GetString("yandex.folder_id"),
		&http.Client{Timeout: 120 * time.Second},
	)
	embedder := search.NewEmbedder(yc, weaviate.VectorSize)
	indexer := wiki.NewIndexer(embedder, wsdk)

	articles, err := articleRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list articles: %v", err)
	}

	bar := progressbar.Default(int64(len(articles)), "reindexing")
	failed := 0
	for i := range articles {
		if err := indexer.Index(ctx, &articles[i]); err != nil {
			failed++
			log.Error(err, "Failed to reindex article", "articleID", articles[i].ID)
		}
		bar.Add(1)
	}

	log.Info("Reindex finished", "total", len(articles), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d articles failed to reindex", failed, len(articles))
	}
	return nil
}
