// Package app は設定の読み込みから各サブコマンドの実行までを組み立てる。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/startupconnect/internal/auth"
	"github.com/hitoshi/startupconnect/internal/chat"
	"github.com/hitoshi/startupconnect/internal/config"
	"github.com/hitoshi/startupconnect/internal/dashboard"
	"github.com/hitoshi/startupconnect/internal/database"
	"github.com/hitoshi/startupconnect/internal/handler"
	"github.com/hitoshi/startupconnect/internal/kvstore"
	"github.com/hitoshi/startupconnect/internal/logger"
	"github.com/hitoshi/startupconnect/internal/metrics"
	"github.com/hitoshi/startupconnect/internal/repository"
	"github.com/hitoshi/startupconnect/internal/view"
	"github.com/hitoshi/startupconnect/internal/worker/cleanup"
)

// dotEnvPath は起動時に読み込む任意の環境変数ファイル。
const dotEnvPath = ".env"

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、LOG_LEVELに従ったJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	if err := config.LoadDotEnv(dotEnvPath); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルでログを再構成する
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger.SetupDefault(w, level)

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
		slog.String("store_backend", string(cfg.StoreBackend)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cmd == CommandMigrate {
		return runMigrate(cfg)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	switch cmd {
	case CommandCleanup:
		return runCleanup(ctx, store, nil)
	case CommandUsers:
		return runUsers(ctx, os.Stdout, store)
	default:
		return runServe(ctx, cfg, store)
	}
}

// openStore は設定されたバックエンドのストアを開き、疎通を確認する。
func openStore(ctx context.Context, cfg *config.Config) (kvstore.Store, error) {
	store, err := kvstore.Open(ctx, kvstore.Options{
		Backend:     cfg.StoreBackend,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		BadgerDir:   cfg.BadgerDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := pingWithRetry(ctx, store, maxPingAttempts, time.Sleep); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	slog.Info("store connection established", slog.String("backend", string(cfg.StoreBackend)))
	return store, nil
}

// newHandler はストア上に全依存関係をワイヤリングしたHTTPハンドラーを返す。
// メトリクスはregに登録する。
func newHandler(cfg *config.Config, store kvstore.Store, reg *prometheus.Registry) (http.Handler, *metrics.Collector, error) {
	// 1. リポジトリの初期化
	identRepo := repository.NewKVIdentityRepo(store)
	sessionRepo := repository.NewKVSessionRepo(store)
	messageRepo := repository.NewKVMessageRepo(store)

	// 2. メトリクス
	collector := metrics.NewCollector(reg)

	// 3. ドメインサービスの初期化
	authService := auth.NewService(identRepo, sessionRepo, collector,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	dashboardService := dashboard.NewService(identRepo, collector)
	chatService := chat.NewService(identRepo, messageRepo, collector)

	renderer, err := view.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load templates: %w", err)
	}

	// 4. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		HealthChecker:  store,
		MetricsHandler: metrics.Handler(reg),
		Logger:         slog.Default(),

		SessionFinder: authService,
		Identities:    authService,
		Cookies: handler.CookieConfig{
			Domain:        cfg.CookieDomain,
			Secure:        cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		Renderer: renderer,

		AuthService:      authService,
		DashboardService: dashboardService,
		ChatService:      chatService,
	})

	return router, collector, nil
}

// runServe はWebサーバーモードで起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config, store kvstore.Store) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router, collector, err := newHandler(cfg, store, reg)
	if err != nil {
		return err
	}

	// PostgreSQLは期限切れ行が残るため定期的に削除する
	if pg, ok := store.(*kvstore.PostgresStore); ok {
		job := cleanup.NewCleanupJob(pg.DB(), slog.Default(), collector)
		go job.Start(ctx, cfg.CleanupInterval)
		slog.Info("session cleanup scheduled", slog.Duration("interval", cfg.CleanupInterval))
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("web server starting", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down web server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// kv_entriesテーブルを使うのはPostgreSQLバックエンドのみ。
func runMigrate(cfg *config.Config) error {
	if cfg.StoreBackend != kvstore.BackendPostgres {
		slog.Info("no migrations required for store backend",
			slog.String("store_backend", string(cfg.StoreBackend)),
		)
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.MigrateUp(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runCleanup は期限切れセッションの削除を1回実行する。
// PostgreSQL以外はTTLで自動削除されるため何もしない。
func runCleanup(ctx context.Context, store kvstore.Store, recorder cleanup.SweepRecorder) error {
	pg, ok := store.(*kvstore.PostgresStore)
	if !ok {
		slog.Info("store backend expires sessions by itself, nothing to clean up")
		return nil
	}
	return cleanup.NewCleanupJob(pg.DB(), slog.Default(), recorder).Run(ctx)
}

// runUsers は登録済みユーザーを登録順に表形式で出力する。
func runUsers(ctx context.Context, out io.Writer, store kvstore.Store) error {
	identities, err := repository.NewKVIdentityRepo(store).List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Name", "Email", "Role", "Company", "Registered"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, identity := range identities {
		table.Append([]string{
			identity.ID,
			identity.Name,
			identity.Email,
			string(identity.Role),
			identity.Company,
			identity.CreatedAt.Format(time.DateTime),
		})
	}
	table.SetFooter([]string{"", "", "", "", "Total", fmt.Sprint(len(identities))})
	table.Render()
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
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
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return "***"
	}
	return url[:scheme+3] + "***" + url[at:]
}
