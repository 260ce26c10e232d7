package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/linkup/internal/metrics"
	"github.com/hitoshi/linkup/internal/middleware"
	"github.com/hitoshi/linkup/internal/model"
)

// Pinger はヘルスチェックに必要なデータベース接続インターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionResolver   middleware.SessionResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// サービス
	AuthService       AuthServiceInterface
	AuthConfig        AuthHandlerConfig
	EngagementService EngagementServiceInterface
	ConnectionService ConnectionServiceInterface
	ProfileService    ProfileServiceInterface

	// 運用
	DB               Pinger
	MetricsCollector *metrics.Collector
	MetricsGatherer  prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → SecurityHeaders → Logging → Metrics →
//	[Session → RateLimit(General) → RateLimit(Write)]
//
// 登録・ログイン・ヘルスチェック・メトリクスはセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.MetricsCollector != nil {
		r.Use(deps.MetricsCollector.HTTPMiddleware())
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	postHandler := NewPostHandler(deps.EngagementService)
	connectionHandler := NewConnectionHandler(deps.ConnectionService)
	profileHandler := NewProfileHandler(deps.ProfileService)

	requireSession := middleware.NewRequireSessionMiddleware(deps.SessionResolver)
	optionalSession := middleware.NewOptionalSessionMiddleware(deps.SessionResolver)

	// --- 認証不要のルート ---

	// 稼働確認
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "running"})
	})

	r.Post("/register", counted(deps.MetricsCollector, (*metrics.Collector).RecordSessionIssued, authHandler.Register))
	r.Post("/login", counted(deps.MetricsCollector, (*metrics.Collector).RecordSessionIssued, authHandler.Login))

	// ログアウトはトークンが無効でもCookieをクリアする
	r.With(optionalSession).Post("/logout", authHandler.Logout)

	// 未認証の閲覧を許可する読み取りルート
	r.With(optionalSession).Get("/posts", postHandler.ListPosts)
	r.Get("/getCommentsForPost", postHandler.GetCommentsForPost)
	r.Get("/user/get_all_users", profileHandler.ListAll)

	// 運用エンドポイント
	r.Get("/health", newHealthHandler(deps.DB))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 書き込み系には専用レート制限を追加
		write := deps.RateLimiter.WriteMiddleware()
		mc := deps.MetricsCollector

		// 投稿・いいね・コメント
		r.With(write).Post("/createPost", counted(mc, (*metrics.Collector).RecordPostCreated, postHandler.CreatePost))
		r.Delete("/deletePost", postHandler.DeletePost)
		r.Post("/likePost", counted(mc, (*metrics.Collector).RecordLikeToggled, postHandler.ToggleLike))
		r.Get("/getPostLike/{postId}", postHandler.GetPostLike)
		r.With(write).Post("/commentOnPost", counted(mc, (*metrics.Collector).RecordCommentAdded, postHandler.CommentOnPost))
		r.Delete("/deleteComment", postHandler.DeleteComment)

		// つながり
		r.Route("/user", func(r chi.Router) {
			r.With(write).Post("/send_connection_request", counted(mc, (*metrics.Collector).RecordConnectionRequested, connectionHandler.SendRequest))
			r.Get("/getConnectionRequests", connectionHandler.ListOutgoing)
			r.Post("/user_connection_requests", connectionHandler.ListIncoming)
			r.Post("/accept_connection_request", connectionHandler.Decide)
		})

		// プロフィール
		r.Get("/get_user_and_profile", profileHandler.GetUserAndProfile)
		r.Post("/user_update", profileHandler.UpdateUser)
		r.Post("/update_profile_data", profileHandler.UpdateProfile)
		r.Post("/update_profile_picture", profileHandler.UpdateProfilePicture)
	})

	return r
}

// counted は2xxレスポンス時にドメインカウンターを加算するラッパーを返す。
// コレクター未設定の場合はハンドラーをそのまま返す。
func counted(mc *metrics.Collector, record func(*metrics.Collector), next http.HandlerFunc) http.HandlerFunc {
	if mc == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &countingRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next(rec, r)
		if rec.statusCode < 300 {
			record(mc)
		}
	}
}

// countingRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type countingRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (cr *countingRecorder) WriteHeader(code int) {
	if !cr.written {
		cr.statusCode = code
		cr.written = true
	}
	cr.ResponseWriter.WriteHeader(code)
}

func (cr *countingRecorder) Write(b []byte) (int, error) {
	if !cr.written {
		cr.statusCode = http.StatusOK
		cr.written = true
	}
	return cr.ResponseWriter.Write(b)
}

// newHealthHandler はデータベース疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeAPIErrorResponse(w, http.StatusServiceUnavailable, &model.APIError{
					Code:     "DB_UNAVAILABLE",
					Message:  "データベースに接続できません。",
					Category: "system",
					Action:   "しばらく待ってから再度お試しください。",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
