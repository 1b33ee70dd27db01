package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/clinicman/internal/auth"
	"github.com/hitoshi/clinicman/internal/billing"
	"github.com/hitoshi/clinicman/internal/calllog"
	"github.com/hitoshi/clinicman/internal/clinic"
	"github.com/hitoshi/clinicman/internal/config"
	"github.com/hitoshi/clinicman/internal/database"
	"github.com/hitoshi/clinicman/internal/handler"
	"github.com/hitoshi/clinicman/internal/logger"
	"github.com/hitoshi/clinicman/internal/metrics"
	"github.com/hitoshi/clinicman/internal/middleware"
	"github.com/hitoshi/clinicman/internal/model"
	"github.com/hitoshi/clinicman/internal/patient"
	"github.com/hitoshi/clinicman/internal/phone"
	"github.com/hitoshi/clinicman/internal/reminder"
	"github.com/hitoshi/clinicman/internal/repository"
	"github.com/hitoshi/clinicman/internal/security"
	"github.com/hitoshi/clinicman/internal/treatment"
	"github.com/hitoshi/clinicman/internal/user"
	"github.com/hitoshi/clinicman/internal/worker/cleanup"
)

// cleanupInterval はワーカーがクリーンアップジョブを実行する間隔。
const cleanupInterval = 24 * time.Hour

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

	// healthcheck と hash-password は軽量サブコマンドのため、フル初期化をスキップする
	switch cmd {
	case CommandHealthcheck:
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	case CommandHashPassword:
		return runHashPassword(w, args[1:])
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
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandBootstrap:
		return runBootstrap(cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	clinicRepo := repository.NewPostgresClinicRepo(db)
	patientRepo := repository.NewPostgresPatientRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	invoiceRepo := repository.NewPostgresInvoiceRepo(db)
	bonusRepo := repository.NewPostgresBonusRepo(db)
	reminderRepo := repository.NewPostgresReminderRepo(db)
	callRepo := repository.NewPostgresCallRepo(db)

	// 3. 共通コンポーネントの初期化
	phones := phone.NewNormalizer(cfg.PhoneRegion)
	sanitizer := security.NewNotesSanitizer()

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.JWTTTL,
		Issuer: cfg.JWTIssuer,
		Leeway: cfg.JWTLeeway,
	})
	if err != nil {
		return fmt.Errorf("failed to create token manager: %w", err)
	}
	gate := auth.NewGate(tokens, userRepo)

	// 4. ドメインサービスの初期化
	authService := auth.NewService(userRepo, tokens, cfg.BcryptCost)
	clinicService := clinic.NewService(clinicRepo, phones, cfg.BcryptCost)
	userService := user.NewService(userRepo, cfg.BcryptCost)
	patientService := patient.NewService(patientRepo, phones, sanitizer)
	sessionService := treatment.NewService(sessionRepo, patientService, userRepo, sanitizer)
	invoiceService := billing.NewInvoiceService(invoiceRepo, patientService, sanitizer)
	bonusService := billing.NewBonusService(bonusRepo, userRepo)
	reminderService := reminder.NewService(reminderRepo, patientService, sessionService)
	callService := calllog.NewService(callRepo, patientService, sanitizer)

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 6. ルーターの構築（RATE_LIMIT_* は req/min 単位）
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitLogin),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Authenticator:     gate,
		MemberFinder:      userRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		HealthChecker:   db,
		Metrics:         collector,
		MetricsGatherer: registry,

		AuthService:     authService,
		ClinicService:   clinicService,
		UserService:     userService,
		PatientService:  patientService,
		SessionService:  sessionService,
		InvoiceService:  invoiceService,
		BonusService:    bonusService,
		ReminderService: reminderService,
		CallService:     callService,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
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

// runWorker はワーカーモードで起動する。
// DB接続を開き、保持期間クリーンアップジョブを日次で実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), cleanup.Config{
		ReminderRetentionDays: cfg.ReminderRetentionDays,
		CallRetentionDays:     cfg.CallRetentionDays,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cleanupInterval),
		slog.Int("reminder_retention_days", cfg.ReminderRetentionDays),
		slog.Int("call_retention_days", cfg.CallRetentionDays),
	)

	runCleanupLoop(ctx, cleanupJob, cleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// cleanupRunner はクリーンアップジョブの実行を抽象化する。
type cleanupRunner interface {
	Run(ctx context.Context) error
}

// runCleanupLoop は起動直後に1回、その後 interval ごとにジョブを実行する。
// ctx がキャンセルされるまでブロックする。ジョブの失敗はログに記録して継続する。
func runCleanupLoop(ctx context.Context, job cleanupRunner, interval time.Duration) {
	run := func() {
		if err := job.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(version)),
	)
	return nil
}

// runBootstrap はクリニックと最初の管理者ユーザーを作成する。
// 引数は [クリニック名] [管理者メール] [管理者名] の順で、省略時は
// BOOTSTRAP_CLINIC_NAME / BOOTSTRAP_ADMIN_EMAIL / BOOTSTRAP_ADMIN_NAME を使う。
// パスワードはシェル履歴に残さないよう BOOTSTRAP_ADMIN_PASSWORD からのみ読む。
func runBootstrap(cfg *config.Config, args []string) error {
	in := bootstrapInput(args)

	db, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := clinic.NewService(
		repository.NewPostgresClinicRepo(db),
		phone.NewNormalizer(cfg.PhoneRegion),
		cfg.BcryptCost,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, admin, err := svc.Bootstrap(ctx, in)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("bootstrap rejected: %s %v", apiErr.Message, apiErr.Fields)
		}
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	slog.Info("clinic bootstrapped",
		slog.String("clinic_id", c.ID),
		slog.String("admin_id", admin.ID),
		slog.String("admin_email", admin.Email),
	)
	return nil
}

// bootstrapInput は引数と環境変数から BootstrapInput を組み立てる。
func bootstrapInput(args []string) clinic.BootstrapInput {
	arg := func(i int, env string) string {
		if i < len(args) && strings.TrimSpace(args[i]) != "" {
			return args[i]
		}
		return os.Getenv(env)
	}
	return clinic.BootstrapInput{
		ClinicName:    arg(0, "BOOTSTRAP_CLINIC_NAME"),
		AdminEmail:    arg(1, "BOOTSTRAP_ADMIN_EMAIL"),
		AdminName:     arg(2, "BOOTSTRAP_ADMIN_NAME"),
		AdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	}
}

// runHashPassword は引数のパスワードのbcryptハッシュを w に出力する。
// コストは BCRYPT_COST（未設定時は12）。
func runHashPassword(w io.Writer, args []string) error {
	if len(args) == 0 || args[0] == "" {
		return errors.New("usage: hash-password <password>")
	}

	cost := 12
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BCRYPT_COST %q: %w", v, err)
		}
		cost = n
	}

	hash, err := auth.HashPassword(args[0], cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if w == nil {
		w = os.Stdout
	}
	_, err = fmt.Fprintln(w, hash)
	return err
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
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
