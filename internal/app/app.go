package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/jobradar/internal/bot"
	"github.com/hitoshi/jobradar/internal/config"
	"github.com/hitoshi/jobradar/internal/database"
	"github.com/hitoshi/jobradar/internal/handler"
	"github.com/hitoshi/jobradar/internal/job"
	"github.com/hitoshi/jobradar/internal/logger"
	"github.com/hitoshi/jobradar/internal/metrics"
	"github.com/hitoshi/jobradar/internal/notify"
	"github.com/hitoshi/jobradar/internal/repository"
	"github.com/hitoshi/jobradar/internal/scraper"
	"github.com/hitoshi/jobradar/internal/security"
	"github.com/hitoshi/jobradar/internal/telegram"
	"github.com/hitoshi/jobradar/internal/user"
	"github.com/hitoshi/jobradar/internal/worker/scrape"
)

// telegramClientTimeout はTelegram APIクライアントのHTTPタイムアウト。
// getUpdatesのロングポーリング（30秒）より長くする必要がある。
const telegramClientTimeout = 40 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定のログレベルを反映して再セットアップ
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はスクレイプスケジューラ・Telegramボット・運用HTTPサーバーを
// 1プロセスで起動する。SIGINTまたはSIGTERMシグナルを受信すると
// グレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	jobRepo := repository.NewPostgresJobRepo(db)
	userRepo := repository.NewPostgresUserRepo(db)
	categoryRepo := repository.NewPostgresCategoryRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. セキュリティサービスの初期化
	fetchGuard := security.NewFetchGuard()
	sanitizer := security.NewTextSanitizer()

	// 5. スクレイパーの初期化
	adapters := scraper.NewAdapters(scraper.Deps{
		Client:      fetchGuard.NewSafeClient(cfg.FetchTimeout),
		Sanitizer:   sanitizer,
		Logger:      slog.Default(),
		MaxBodySize: cfg.FetchMaxSize,
	})
	if err := scraper.ValidateAdapters(fetchGuard, adapters); err != nil {
		return fmt.Errorf("site config validation failed: %w", err)
	}
	siteCollector := scraper.NewCollector(adapters, cfg.MaxPagesPerSite, collector, slog.Default())

	// 6. ドメインサービスの初期化
	ingestService := job.NewIngestService(jobRepo, collector, slog.Default())
	matchService := job.NewMatchService(jobRepo, slog.Default())
	userService := user.NewService(userRepo, categoryRepo, slog.Default())

	// 7. Telegramクライアントとボットの初期化
	tgClient := telegram.NewClient(
		&http.Client{Timeout: telegramClientTimeout},
		cfg.TelegramBotToken,
		slog.Default(),
	)
	tgBot := bot.New(tgClient, userService, slog.Default())

	// 8. 通知とパイプラインの初期化
	notifier := notify.NewNotifier(
		userRepo, matchService, tgClient, categoryRepo,
		collector, cfg.NotifyRatePerSec, slog.Default(),
	)
	pipeline := scrape.NewPipeline(siteCollector, ingestService, notifier, collector, slog.Default())
	scheduler := scrape.NewScheduler(pipeline, slog.Default())

	// 9. 運用HTTPサーバーの構築
	router := handler.NewRouter(handler.RouterDeps{
		DB:             db,
		MetricsHandler: metrics.Handler(registry),
		Logger:         slog.Default(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down...")
		cancel()
	}()

	go func() {
		slog.Info("ops server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		if err := tgBot.Run(ctx); err != nil {
			slog.Error("bot loop error", slog.String("error", err.Error()))
		}
	}()

	// スクレイプスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.ScrapeInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
