package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/careflow/adrenav/internal/ai"
	"github.com/careflow/adrenav/internal/config"
	"github.com/careflow/adrenav/internal/handler"
	"github.com/careflow/adrenav/internal/ingest"
	"github.com/careflow/adrenav/internal/job"
	"github.com/careflow/adrenav/internal/middleware"
	"github.com/careflow/adrenav/internal/repo"
	"github.com/careflow/adrenav/internal/schedule"
	"github.com/careflow/adrenav/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "adrenav",
		Short: "adrenal nodule clinic navigator backend",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the api server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			return runServer(cfg, db)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	var (
		ingestVersion int
		ingestDryRun  bool
		minTokens     float64
		maxTokens     float64
		targetTokens  float64
		overlapTokens float64
	)
	ingestCmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "load reference documents into the knowledge store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled() {
				return fmt.Errorf("a database is required for ingestion")
			}
			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			manager, err := buildAIManager(cfg)
			if err != nil {
				return err
			}
			svc := service.NewIngestService(repo.NewChunkRepo(db), repo.NewEmbeddingRepo(db), manager)
			opts := service.IngestOptions{
				Version: ingestVersion,
				DryRun:  ingestDryRun,
				Chunk: ingest.ChunkOptions{
					MinTokens:     flagValue(cmd, "min-tokens", minTokens),
					MaxTokens:     flagValue(cmd, "max-tokens", maxTokens),
					TargetTokens:  flagValue(cmd, "target-tokens", targetTokens),
					OverlapTokens: flagValue(cmd, "overlap-tokens", overlapTokens),
				},
			}
			ctx := context.Background()
			total := service.IngestResult{}
			for _, path := range args {
				result, err := svc.IngestFile(ctx, path, opts)
				if err != nil {
					logutil.GetLogger(ctx).Error("ingest failed", zap.String("path", path), zap.Error(err))
					continue
				}
				total.Created += result.Created
				total.Skipped += result.Skipped
			}
			logutil.GetLogger(ctx).Info("ingestion complete",
				zap.Int("created", total.Created),
				zap.Int("skipped", total.Skipped),
			)
			return nil
		},
	}
	ingestCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	ingestCmd.Flags().IntVar(&ingestVersion, "version", 1, "corpus version tag")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "report chunks without writing")
	ingestCmd.Flags().Float64Var(&minTokens, "min-tokens", 0, "minimum tokens per chunk")
	ingestCmd.Flags().Float64Var(&maxTokens, "max-tokens", 0, "maximum tokens per chunk")
	ingestCmd.Flags().Float64Var(&targetTokens, "target-tokens", 0, "target tokens per chunk")
	ingestCmd.Flags().Float64Var(&overlapTokens, "overlap-tokens", 0, "token overlap between chunks")

	rootCmd.AddCommand(runCmd, ingestCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

// flagValue returns the flag's value only when the user set it, so the
// chunker keeps its own defaults otherwise.
func flagValue(cmd *cobra.Command, name string, value float64) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
	return cfg, nil
}

// openStore returns nil when no database is configured; the server
// then runs stateless on sample knowledge.
func openStore(cfg *config.Config) (*sql.DB, error) {
	if !cfg.Database.Enabled() {
		logutil.GetLogger(context.Background()).Warn("no database configured, running without persistence")
		return nil, nil
	}
	db, err := repo.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := repo.ApplyMigrations(db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return db, nil
}

func buildAIManager(cfg *config.Config) (*ai.Manager, error) {
	managerCfg := ai.ManagerConfig{
		RouterModel:    cfg.AI.RouterModel,
		AnswerModel:    cfg.AI.AnswerModel,
		EmbeddingModel: cfg.AI.EmbeddingModel,
		Timeout:        cfg.AI.Timeout,
		Disabled:       cfg.AI.Disabled,
	}
	if cfg.AI.Provider == "" {
		return ai.NewManager(nil, nil, managerCfg), nil
	}
	completion, err := ai.NewCompletionProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return nil, fmt.Errorf("init completion provider: %w", err)
	}
	embedder, err := ai.NewEmbedProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return nil, fmt.Errorf("init embed provider: %w", err)
	}
	return ai.NewManager(completion, embedder, managerCfg), nil
}

func runServer(cfg *config.Config, db *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.Bool("database", db != nil),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	var (
		chunkRepo     *repo.ChunkRepo
		embeddingRepo *repo.EmbeddingRepo
		sessionRepo   *repo.SessionRepo
		messageRepo   *repo.MessageRepo
		checklistRepo *repo.ChecklistRepo
		appConfigRepo *repo.AppConfigRepo
	)
	if db != nil {
		chunkRepo = repo.NewChunkRepo(db)
		embeddingRepo = repo.NewEmbeddingRepo(db)
		sessionRepo = repo.NewSessionRepo(db)
		messageRepo = repo.NewMessageRepo(db)
		checklistRepo = repo.NewChecklistRepo(db)
		appConfigRepo = repo.NewAppConfigRepo(db)
	}

	manager, err := buildAIManager(cfg)
	if err != nil {
		return err
	}

	knowledgeService := service.NewKnowledgeService(chunkRepo, embeddingRepo, manager)
	appConfigService := service.NewAppConfigService(appConfigRepo)
	dialogueService := service.NewDialogueService(knowledgeService, appConfigService, manager, cfg.Chat.RetrievalTopK)
	sessionService := service.NewSessionService(sessionRepo, messageRepo, checklistRepo)

	deps := handler.RouterDeps{
		Chat:           handler.NewChatHandler(dialogueService, sessionService),
		Sessions:       handler.NewSessionHandler(sessionService),
		Config:         handler.NewConfigHandler(appConfigService),
		Admin:          handler.NewAdminHandler(appConfigService, knowledgeService),
		AdminToken:     cfg.AdminToken,
		ChatRateWindow: time.Duration(cfg.Chat.RateLimitSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var scheduler *schedule.CronScheduler
	if db != nil && manager.EmbeddingEnabled() {
		scheduler = schedule.NewCronScheduler()
		backfill := job.NewEmbeddingBackfillJob(chunkRepo, embeddingRepo, manager, cfg.Jobs.EmbeddingBackfillBatch)
		if err := scheduler.AddJob(backfill, cfg.Jobs.EmbeddingBackfillSpec); err != nil {
			return err
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
