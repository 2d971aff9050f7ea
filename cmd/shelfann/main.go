package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"

	"github.com/shelfann/shelfann"
	"github.com/shelfann/shelfann/blobstore"
	miniostore "github.com/shelfann/shelfann/blobstore/minio"
	"github.com/shelfann/shelfann/embedder"
	"github.com/shelfann/shelfann/routing"
)

var (
	logLevel string
	jsonLogs bool
)

func main() {
	// Load .env file if it exists (for API keys and storage creds)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "shelfann",
		Short: "Build ANN and routing indexes from chunk embedding packages",
		Long: "shelfann turns per-chunk embedding vectors into a quantized exact-kNN\n" +
			"artifact and a hierarchical book/section routing index.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit JSON-formatted logs")

	rootCmd.AddCommand(createIndexCommand())
	rootCmd.AddCommand(createRouteCommand())
	rootCmd.AddCommand(createPublishCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *shelfann.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if jsonLogs {
		return shelfann.NewJSONLogger(level)
	}
	return shelfann.NewTextLogger(level)
}

func createIndexCommand() *cobra.Command {
	var (
		outDir    string
		m         int
		efConstr  int
		efSearch  int
		blockSize int
		noInline  bool
	)

	cmd := &cobra.Command{
		Use:   "index <package>...",
		Short: "Build ANN artifacts for chunk packages",
		Long: "Build the quantized neighbor-graph artifact for each package, writing\n" +
			"the binary, its gzip JSON id map, and a ready package with checksums.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := shelfann.New(
				shelfann.WithLogger(newLogger()),
				shelfann.WithGraphParams(shelfann.GraphParams{
					M:              m,
					EFConstruction: efConstr,
					EFSearch:       efSearch,
					BlockSize:      blockSize,
				}),
				shelfann.WithInline(!noInline),
			)

			for _, src := range args {
				report, err := p.IndexPackageFile(cmd.Context(), src, outDir)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %d nodes (%d dropped)\n", report.ArtifactPath, report.Nodes, report.Dropped)
				fmt.Printf("  checksum %s\n", report.Info.ArtifactChecksum)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Output directory (default: next to each package)")
	cmd.Flags().IntVar(&m, "m", shelfann.DefaultGraphParams.M, "Graph out-degree")
	cmd.Flags().IntVar(&efConstr, "ef-construction", shelfann.DefaultGraphParams.EFConstruction, "Construction param metadata")
	cmd.Flags().IntVar(&efSearch, "ef-search", shelfann.DefaultGraphParams.EFSearch, "Suggested query-time beam width")
	cmd.Flags().IntVar(&blockSize, "block-size", shelfann.DefaultGraphParams.BlockSize, "Matrix block size for graph build")
	cmd.Flags().BoolVar(&noInline, "no-inline", false, "Do not embed the artifact and id map into the ready package")

	return cmd
}

func createRouteCommand() *cobra.Command {
	var (
		output       string
		sectionPages int
		minChunks    int
		semantic     bool
		model        string
		baseURL      string
	)

	cmd := &cobra.Command{
		Use:   "route <dir>",
		Short: "Build the routing index over a directory of packages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ro := routing.DefaultOptions
			ro.SectionPages = sectionPages
			ro.MinChunksPerSection = minChunks

			opts := []shelfann.Option{
				shelfann.WithLogger(newLogger()),
				shelfann.WithRoutingOptions(ro),
			}

			if semantic {
				apiKey := os.Getenv("EMBEDDINGS_API_KEY")
				e, err := embedder.NewOpenAI(apiKey, func(o *embedder.Options) {
					o.Model = model
					o.BaseURL = baseURL
				})
				if err != nil {
					return err
				}
				opts = append(opts, shelfann.WithSemanticLabels(e, nil))
			}

			p := shelfann.New(opts...)
			idx, err := p.BuildRouting(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if err := idx.WriteFile(output); err != nil {
				return err
			}
			fmt.Printf("%s: %d books, %d skipped\n", output, idx.BooksCount, len(idx.Skipped))
			for _, s := range idx.Skipped {
				fmt.Printf("  skipped %s\n", s)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "routing_index.json.gz", "Output file for the routing index")
	cmd.Flags().IntVar(&sectionPages, "section-pages", 20, "Pages per section bucket")
	cmd.Flags().IntVar(&minChunks, "min-chunks", 1, "Minimum chunks for a section to be kept")
	cmd.Flags().BoolVar(&semantic, "semantic-labels", false, "Tag sections with semantic labels (needs EMBEDDINGS_API_KEY)")
	cmd.Flags().StringVar(&model, "semantic-model", embedder.DefaultModel, "Embedding model for labels")
	cmd.Flags().StringVar(&baseURL, "embeddings-url", "", "OpenAI-compatible embeddings endpoint")

	return cmd
}

func createPublishCommand() *cobra.Command {
	var (
		prefix   string
		localDir string
		endpoint string
		bucket   string
		secure   bool
	)

	cmd := &cobra.Command{
		Use:   "publish <file>...",
		Short: "Upload index artifacts to a blob store",
		Long: "Upload artifacts to a local directory store or to MinIO/S3-compatible\n" +
			"object storage (credentials via MINIO_ACCESS_KEY / MINIO_SECRET_KEY).",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(localDir, endpoint, bucket, secure)
			if err != nil {
				return err
			}

			p := shelfann.New(shelfann.WithLogger(newLogger()))
			return p.Publish(cmd.Context(), store, prefix, args...)
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "indexes", "Key prefix inside the store")
	cmd.Flags().StringVar(&localDir, "local", "", "Publish to a local directory instead of object storage")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "MinIO/S3 endpoint (host:port)")
	cmd.Flags().StringVar(&bucket, "bucket", "", "Object storage bucket")
	cmd.Flags().BoolVar(&secure, "secure", true, "Use TLS for object storage")

	return cmd
}

func openStore(localDir, endpoint, bucket string, secure bool) (blobstore.BlobStore, error) {
	if localDir != "" {
		return blobstore.NewLocalStore(localDir)
	}
	if endpoint == "" || bucket == "" {
		return nil, fmt.Errorf("either --local or both --endpoint and --bucket are required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(
			os.Getenv("MINIO_ACCESS_KEY"),
			os.Getenv("MINIO_SECRET_KEY"),
			"",
		),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}
	return miniostore.NewStore(client, bucket, ""), nil
}
