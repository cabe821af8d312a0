package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"showdesk/internal/auth"
	"showdesk/internal/blob"
	"showdesk/internal/config"
	"showdesk/internal/db"
	"showdesk/internal/translate"
)

type Server struct {
	router *chi.Mux
	config *config.Config
}

func NewServer(
	cfg *config.Config,
	database *db.DB,
	blobs *blob.Service,
	announcer Announcer,
	translator translate.Translator,
) (*Server, error) {
	staffRepo := db.NewStaffRepository(database)
	messageRepo := db.NewMessageRepository(database)
	reactionRepo := db.NewReactionRepository(database)
	convoRepo := db.NewConversationRepository(database)
	blobRepo := db.NewBlobRepository(database)

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	authHandler := NewAuthHandler(staffRepo, jwtService)
	messageHandler := NewMessageHandler(messageRepo, convoRepo, staffRepo, blobRepo)
	reactionHandler := NewReactionHandler(reactionRepo, messageRepo)
	convoHandler := NewConversationHandler(convoRepo)
	rosterHandler := NewRosterHandler(staffRepo)
	translateHandler := NewTranslateHandler(messageRepo, translator)
	announceHandler := NewAnnounceHandler(messageRepo, announcer, cfg.Relay.AnnounceList)
	uploadHandler := NewUploadHandler(blobs, blobRepo, cfg.Server.BaseURL)
	mediaHandler := NewMediaHandler(blobRepo, blobs)
	healthHandler := NewHealthHandler(database)

	authMiddleware := NewAuthMiddleware(jwtService)
	loginLimiter := NewRateLimiter(5, time.Minute)

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/health", healthHandler.Check)
	r.Get("/media/{blobID}", mediaHandler.GetBlob)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(maxBodySizeMiddleware(1 << 20)) // 1 MB
			r.With(RateLimitMiddleware(loginLimiter)).Post("/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)

			// Uploads carry their own size cap; everything else is small JSON.
			r.With(mutationRateLimit(30, time.Minute)).Post("/uploads", uploadHandler.Upload)

			r.Group(func(r chi.Router) {
				r.Use(maxBodySizeMiddleware(1 << 20)) // 1 MB

				r.Route("/events/{eventID}", func(r chi.Router) {
					r.Get("/messages", messageHandler.List)
					r.With(mutationRateLimit(60, time.Minute)).Post("/messages", messageHandler.Send)

					r.Get("/conversation", convoHandler.Get)
					r.With(mutationRateLimit(30, time.Minute)).Patch("/conversation", convoHandler.Patch)

					r.Get("/roster", rosterHandler.Get)

					r.With(mutationRateLimit(10, time.Minute)).Post("/announce", announceHandler.Announce)
				})

				r.Route("/messages/{messageID}", func(r chi.Router) {
					r.With(mutationRateLimit(60, time.Minute)).Post("/reactions", reactionHandler.Toggle)
					r.With(mutationRateLimit(20, time.Minute)).Post("/translate", translateHandler.Translate)
				})
			})
		})
	})

	return &Server{
		router: r,
		config: cfg,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
