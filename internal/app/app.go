// Package app はアプリケーションの初期化とエントリーポイントを提供する。
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/ghlookup/internal/config"
	"github.com/hitoshi/ghlookup/internal/console"
	"github.com/hitoshi/ghlookup/internal/github"
	"github.com/hitoshi/ghlookup/internal/handler"
	"github.com/hitoshi/ghlookup/internal/logger"
	"github.com/hitoshi/ghlookup/internal/metrics"
	"github.com/hitoshi/ghlookup/internal/middleware"
	"github.com/hitoshi/ghlookup/internal/search"
	"github.com/hitoshi/ghlookup/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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
		slog.String("github_api_base_url", cfg.GitHubAPIBaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandLookup:
		return runLookup(cfg, w, args[1:])
	case CommandConsole:
		return runConsole(cfg, w)
	default:
		return runServe(cfg)
	}
}

// newLookupClient はSSRF防止付きHTTPクライアントを使うGitHub検索クライアントを構築する。
// collectorはnil可。
func newLookupClient(cfg *config.Config, collector metrics.MetricsCollector) (*github.Client, error) {
	guard := security.NewOutboundGuard()
	if err := guard.ValidateBaseURL(cfg.GitHubAPIBaseURL); err != nil {
		return nil, fmt.Errorf("GITHUB_API_BASE_URL validation failed: %w", err)
	}

	httpClient := guard.NewSafeClient(cfg.LookupTimeout)
	client := github.NewClient(httpClient, slog.Default(), collector, cfg.LookupMaxResponseSize)
	client.SetBaseURL(cfg.GitHubAPIBaseURL)
	return client, nil
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. 検索クライアントの初期化
	client, err := newLookupClient(cfg, collector)
	if err != nil {
		return err
	}

	// 3. サニタイザの初期化
	sanitizer := security.NewProfileSanitizer()

	// 4. レート制限の初期化（req/min -> req/sec に変換）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rateLimiterCfg.Rate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.Burst = cfg.RateLimitGeneral
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 5. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		UserService:       client,
		Sanitizer:         sanitizer,
		Gatherer:          registry,
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runLookup は1回だけ検索を実行し、結果をJSONで出力する。
// lookup <login> の形式で使用する。
func runLookup(cfg *config.Config, w io.Writer, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: lookup <login>")
	}

	client, err := newLookupClient(cfg, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LookupTimeout)
	defer cancel()

	profile, err := client.LookupUser(ctx, args[0])
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(profile)
}

// runConsole は対話的な検索コンソールモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信すると終了する。
func runConsole(cfg *config.Config, w io.Writer) error {
	client, err := newLookupClient(cfg, nil)
	if err != nil {
		return err
	}

	controller := search.NewController(client, slog.Default())
	sanitizer := security.NewProfileSanitizer()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := console.New(controller, sanitizer, os.Stdin, w)
	return c.Run(ctx)
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
