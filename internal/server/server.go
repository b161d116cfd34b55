package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dwaite/trimpool/internal/archive"
	"github.com/dwaite/trimpool/internal/handler"
	"github.com/dwaite/trimpool/internal/middleware"
	"github.com/dwaite/trimpool/internal/payment"
	"github.com/dwaite/trimpool/internal/settlement"
	"github.com/dwaite/trimpool/internal/store"
	ws "github.com/dwaite/trimpool/internal/websocket"
)

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	challengeH   *handler.ChallengeHandler
	weighInH     *handler.WeighInHandler
	leaderboardH *handler.LeaderboardHandler
	chatH        *handler.ChatHandler
	settlementH  *handler.SettlementHandler
	webhookH     *handler.WebhookHandler
	weighInLimit *middleware.Limiter
	logger       *slog.Logger
}

func New(db *sql.DB, payments *payment.Client, archiveCfg archive.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	challengeStore := store.NewChallengeStore(db)
	participantStore := store.NewParticipantStore(db)
	weightStore := store.NewWeightStore(db)
	chatStore := store.NewChatStore(db)
	settlementStore := store.NewSettlementStore(db)

	engine := settlement.NewEngine(
		challengeStore, participantStore, weightStore, settlementStore,
		logger.With("component", "settlement"),
	)
	archiver := archive.NewArchiver(
		archiveCfg, challengeStore, participantStore, weightStore,
		logger.With("component", "archive"),
	)

	var webhookH *handler.WebhookHandler
	if payments != nil {
		webhookH = handler.NewWebhookHandler(payments, participantStore, logger.With("component", "webhook"))
	}

	return &Server{
		db:           db,
		hub:          hub,
		challengeH:   handler.NewChallengeHandler(challengeStore, participantStore, payments, hub, logger.With("component", "challenge")),
		weighInH:     handler.NewWeighInHandler(weightStore, hub, logger.With("component", "weighin")),
		leaderboardH: handler.NewLeaderboardHandler(participantStore, weightStore, logger.With("component", "leaderboard")),
		chatH:        handler.NewChatHandler(chatStore, hub, logger.With("component", "chat")),
		settlementH:  handler.NewSettlementHandler(engine, settlementStore, payments, archiver, hub, logger.With("component", "settlement_handler")),
		webhookH:     webhookH,
		weighInLimit: middleware.NewLimiter(30, time.Minute),
		logger:       logger,
	}
}

// Hub returns the fan-out hub so callers outside the HTTP path (jobs,
// tests) can publish events.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// WeighInLimiter returns the weigh-in rate limiter for periodic sweeps.
func (s *Server) WeighInLimiter() *middleware.Limiter {
	return s.weighInLimit
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Challenge lifecycle
	mux.HandleFunc("POST /api/challenges", s.challengeH.Create)
	mux.HandleFunc("GET /api/challenges", s.challengeH.List)
	mux.HandleFunc("GET /api/challenges/{id}", s.challengeH.Get)
	mux.HandleFunc("POST /api/challenges/{id}/status", s.challengeH.Transition)

	// Enrollment
	mux.HandleFunc("POST /api/challenges/{id}/join", s.challengeH.Join)
	mux.HandleFunc("GET /api/challenges/{id}/participants", s.challengeH.Participants)

	// Weigh-ins — submissions are rate limited per client IP
	mux.Handle("POST /api/challenges/{id}/weigh-ins", s.rateLimited(s.weighInH.Submit))
	mux.HandleFunc("GET /api/challenges/{id}/weigh-ins/{user_id}", s.weighInH.History)

	// Leaderboard (recomputed on every read)
	mux.HandleFunc("GET /api/challenges/{id}/leaderboard", s.leaderboardH.Get)

	// Chat & moderation
	mux.HandleFunc("POST /api/challenges/{id}/messages", s.chatH.Create)
	mux.HandleFunc("GET /api/challenges/{id}/messages", s.chatH.List)
	mux.HandleFunc("PUT /api/messages/{id}", s.chatH.Update)
	mux.HandleFunc("POST /api/messages/{id}/pin", s.chatH.TogglePinned)
	mux.HandleFunc("POST /api/messages/{id}/hide", s.chatH.Hide)
	mux.HandleFunc("DELETE /api/messages/{id}", s.chatH.Delete)

	// Settlement
	mux.HandleFunc("POST /api/challenges/{id}/settle", s.settlementH.Settle)
	mux.HandleFunc("GET /api/challenges/{id}/payouts", s.settlementH.Payouts)
	mux.HandleFunc("POST /api/challenges/{id}/payouts/execute", s.settlementH.ExecutePayouts)
	mux.HandleFunc("POST /api/challenges/{id}/archive", s.settlementH.Archive)

	// Payment collaborator callbacks
	if s.webhookH != nil {
		mux.HandleFunc("POST /webhooks/stripe", s.webhookH.HandleStripeWebhook)
	}

	// Real-time event stream
	mux.HandleFunc("GET /ws", ws.Handle(s.hub))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return s.weighInLimit.Limit(middleware.RealIP, h)
}
