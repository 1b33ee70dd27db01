package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/clinicman/internal/auth"
	"github.com/hitoshi/clinicman/internal/billing"
	"github.com/hitoshi/clinicman/internal/calllog"
	"github.com/hitoshi/clinicman/internal/clinic"
	"github.com/hitoshi/clinicman/internal/metrics"
	"github.com/hitoshi/clinicman/internal/middleware"
	"github.com/hitoshi/clinicman/internal/model"
	"github.com/hitoshi/clinicman/internal/patient"
	"github.com/hitoshi/clinicman/internal/reminder"
	"github.com/hitoshi/clinicman/internal/treatment"
	"github.com/hitoshi/clinicman/internal/user"
)

// ドメインサービスがハンドラーのインターフェースを満たすことをコンパイル時に確認する。
var (
	_ AuthServiceInterface     = (*auth.Service)(nil)
	_ ClinicServiceInterface   = (*clinic.Service)(nil)
	_ UserServiceInterface     = (*user.Service)(nil)
	_ PatientServiceInterface  = (*patient.Service)(nil)
	_ SessionServiceInterface  = (*treatment.Service)(nil)
	_ InvoiceServiceInterface  = (*billing.InvoiceService)(nil)
	_ BonusServiceInterface    = (*billing.BonusService)(nil)
	_ ReminderServiceInterface = (*reminder.Service)(nil)
	_ CallServiceInterface     = (*calllog.Service)(nil)
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.Authenticator
	MemberFinder      middleware.MemberFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 運用
	HealthChecker   HealthChecker
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	AuthService     AuthServiceInterface
	ClinicService   ClinicServiceInterface
	UserService     UserServiceInterface
	PatientService  PatientServiceInterface
	SessionService  SessionServiceInterface
	InvoiceService  InvoiceServiceInterface
	BonusService    BonusServiceInterface
	ReminderService ReminderServiceInterface
	CallService     CallServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS
//	  /api/* (ログイン以外): Auth → Tenant → RateLimit(General)
//
// /health, /metrics, POST /api/auth/login は認証ゲートの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, collector)
	clinicHandler := NewClinicHandler(deps.ClinicService)
	userHandler := NewUserHandler(deps.UserService)
	patientHandler := NewPatientHandler(deps.PatientService)
	sessionHandler := NewSessionHandler(deps.SessionService)
	invoiceHandler := NewInvoiceHandler(deps.InvoiceService)
	bonusHandler := NewBonusHandler(deps.BonusService)
	reminderHandler := NewReminderHandler(deps.ReminderService)
	callHandler := NewCallHandler(deps.CallService)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	adminOnly := middleware.RequireRole(model.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		// ログインはIP単位のレート制限のみ
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/auth/login", authHandler.Login)

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: Auth → Tenant → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(deps.Authenticator, collector))
			r.Use(middleware.NewTenantMiddleware(deps.MemberFinder))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Get("/auth/me", authHandler.Me)

			r.Route("/clinic", func(r chi.Router) {
				r.Get("/", clinicHandler.Get)
				r.With(adminOnly).Put("/", clinicHandler.Update)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.With(adminOnly).Post("/", userHandler.Create)
				r.Put("/me/password", userHandler.ChangePassword)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", userHandler.Get)
					r.Group(func(r chi.Router) {
						r.Use(adminOnly)
						r.Put("/", userHandler.Update)
						r.Post("/deactivate", userHandler.Deactivate)
						r.Post("/reactivate", userHandler.Reactivate)
					})
				})
			})

			r.Route("/patients", func(r chi.Router) {
				r.Get("/", patientHandler.List)
				r.Post("/", patientHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", patientHandler.Get)
					r.Put("/", patientHandler.Update)
					r.Delete("/", patientHandler.Delete)
					r.Post("/restore", patientHandler.Restore)
				})
			})

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionHandler.List)
				r.Post("/", sessionHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", sessionHandler.Get)
					r.Put("/", sessionHandler.Update)
					r.Delete("/", sessionHandler.Delete)
					r.Patch("/status", sessionHandler.ChangeStatus)
				})
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", invoiceHandler.List)
				r.Post("/", invoiceHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", invoiceHandler.Get)
					r.Put("/", invoiceHandler.Update)
					r.Delete("/", invoiceHandler.Delete)
				})
			})

			// ボーナスは給与情報のため管理者のみ
			r.Route("/bonuses", func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/", bonusHandler.List)
				r.Post("/", bonusHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", bonusHandler.Get)
					r.Put("/", bonusHandler.Update)
					r.Delete("/", bonusHandler.Delete)
				})
			})

			r.Route("/reminders", func(r chi.Router) {
				r.Get("/", reminderHandler.List)
				r.Post("/", reminderHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", reminderHandler.Get)
					r.Put("/", reminderHandler.Update)
					r.Delete("/", reminderHandler.Delete)
					r.Post("/mark-sent", reminderHandler.MarkSent)
					r.Post("/cancel", reminderHandler.Cancel)
				})
			})

			r.Route("/calls", func(r chi.Router) {
				r.Get("/", callHandler.List)
				r.Post("/", callHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", callHandler.Get)
					r.Delete("/", callHandler.Delete)
				})
			})
		})
	})

	return r
}
