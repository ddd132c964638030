package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rowanvale/choreboard/internal/activity"
	"github.com/rowanvale/choreboard/internal/assignment"
	"github.com/rowanvale/choreboard/internal/auth"
	"github.com/rowanvale/choreboard/internal/backup"
	"github.com/rowanvale/choreboard/internal/email"
	"github.com/rowanvale/choreboard/internal/handler"
	"github.com/rowanvale/choreboard/internal/middleware"
	"github.com/rowanvale/choreboard/internal/push"
	"github.com/rowanvale/choreboard/internal/store"
	ws "github.com/rowanvale/choreboard/internal/websocket"
)

// Config carries everything the server wires together that is not the
// database itself.
type Config struct {
	BaseURL         string
	SecureCookies   bool
	InviteSecret    string
	PostmarkToken   string
	FromEmail       string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Backup          backup.Config
}

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	taskH          *handler.TaskHandler
	assignmentH    *handler.AssignmentHandler
	familyMemberH  *handler.FamilyMemberHandler
	rewardH        *handler.RewardHandler
	activityH      *handler.ActivityHandler
	authH          *handler.AuthHandler
	pushH          *handler.PushHandler
	backupH        *handler.BackupHandler
	sessionStore   *store.SessionStore
	magicLinkStore *store.MagicLinkStore
	householdStore *store.HouseholdStore
	memberStore    *store.FamilyMemberStore
	rateLimiter    *middleware.RateLimiter
	backupManager  *backup.Manager
	logger         *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	taskStore := store.NewTaskStore(db)
	visibilityStore := store.NewVisibilityStore(db)
	activityStore := store.NewActivityStore(db)
	rewardStore := store.NewRewardStore(db)
	ledgerStore := store.NewLedgerStore(db)
	familyMemberStore := store.NewFamilyMemberStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	sessionStore := store.NewSessionStore(db)
	magicLinkStore := store.NewMagicLinkStore(db)

	var notifier *push.Notifier
	var pushSvc *push.Service
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
		notifier = push.NewNotifier(pushSvc, pushStore, logger.With("component", "push"))
	}

	recorder := activity.NewRecorder(activityStore, familyMemberStore, hub, notifier, logger.With("component", "activity"))
	engine := assignment.NewService(db, recorder, logger.With("component", "assignment"))

	emailClient := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.BaseURL)
	inviteManager := auth.NewInviteManager(cfg.InviteSecret)

	backupMgr := backup.NewManager(cfg.Backup, db, backupStore, logger.With("component", "backup"))

	var pushH *handler.PushHandler
	if pushSvc != nil {
		pushH = handler.NewPushHandler(pushSvc, pushStore, logger.With("component", "push_handler"))
	}

	return &Server{
		db:            db,
		hub:           hub,
		taskH:         handler.NewTaskHandler(engine, taskStore, visibilityStore, hub, logger.With("component", "task")),
		assignmentH:   handler.NewAssignmentHandler(engine, logger.With("component", "assignment_handler")),
		familyMemberH: handler.NewFamilyMemberHandler(familyMemberStore, hub, logger.With("component", "family_member")),
		rewardH:       handler.NewRewardHandler(db, rewardStore, ledgerStore, familyMemberStore, recorder, logger.With("component", "reward")),
		activityH:     handler.NewActivityHandler(activityStore, logger.With("component", "activity_handler")),
		authH: handler.NewAuthHandler(
			userStore, householdStore, sessionStore, magicLinkStore, familyMemberStore,
			emailClient, inviteManager, cfg.SecureCookies, logger.With("component", "auth"),
		),
		pushH:          pushH,
		backupH:        handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		sessionStore:   sessionStore,
		magicLinkStore: magicLinkStore,
		householdStore: householdStore,
		memberStore:    familyMemberStore,
		rateLimiter:    middleware.NewRateLimiter(),
		backupManager:  backupMgr,
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// MagicLinkStore returns the magic link store for cleanup tasks.
func (s *Server) MagicLinkStore() *store.MagicLinkStore {
	return s.magicLinkStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager so main can start and stop it.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimited(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimited(s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/code", s.rateLimited(s.authH.RequestCode))
	outerMux.HandleFunc("POST /api/auth/code/verify", s.rateLimited(s.authH.VerifyCode))
	outerMux.HandleFunc("POST /api/auth/invite/accept", s.rateLimited(s.authH.AcceptInvite))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Everything else requires a session.
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.householdStore, s.memberStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	parent := middleware.RequireParent
	admin := middleware.RequireAdmin

	// Session and account
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("POST /api/auth/switch-household", s.authH.SwitchHousehold)
	mux.HandleFunc("POST /api/auth/member", s.authH.SelectMember)
	mux.Handle("POST /api/auth/invite", admin(http.HandlerFunc(s.authH.Invite)))

	// Tasks
	mux.Handle("POST /api/tasks", parent(http.HandlerFunc(s.taskH.Create)))
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.Handle("PUT /api/tasks/{id}", parent(http.HandlerFunc(s.taskH.Update)))
	mux.Handle("POST /api/tasks/{id}/disable", parent(http.HandlerFunc(s.taskH.Disable)))
	mux.Handle("POST /api/tasks/{id}/enable", parent(http.HandlerFunc(s.taskH.Enable)))
	mux.Handle("DELETE /api/tasks/{id}", parent(http.HandlerFunc(s.taskH.Delete)))
	mux.Handle("PUT /api/tasks/{id}/visibility/{member_id}", parent(http.HandlerFunc(s.taskH.SetVisibility)))

	// Assignment lifecycle
	mux.HandleFunc("GET /api/assignments/available", s.assignmentH.ListAvailable)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.assignmentH.Complete)
	mux.Handle("GET /api/assignments/pending", parent(http.HandlerFunc(s.assignmentH.ListPending)))
	mux.Handle("POST /api/assignments/{id}/approve", parent(http.HandlerFunc(s.assignmentH.Approve)))
	mux.Handle("POST /api/assignments/{id}/reject", parent(http.HandlerFunc(s.assignmentH.Reject)))

	// Family members
	mux.HandleFunc("GET /api/family-members", s.familyMemberH.List)
	mux.HandleFunc("GET /api/family-members/{id}", s.familyMemberH.Get)
	mux.Handle("POST /api/family-members", parent(http.HandlerFunc(s.familyMemberH.Create)))
	mux.Handle("PUT /api/family-members/order", parent(http.HandlerFunc(s.familyMemberH.UpdateSortOrder)))
	mux.Handle("PUT /api/family-members/{id}", parent(http.HandlerFunc(s.familyMemberH.Update)))
	mux.Handle("DELETE /api/family-members/{id}", parent(http.HandlerFunc(s.familyMemberH.Delete)))
	mux.Handle("POST /api/family-members/{id}/pin", parent(http.HandlerFunc(s.familyMemberH.SetPIN)))
	mux.Handle("DELETE /api/family-members/{id}/pin", parent(http.HandlerFunc(s.familyMemberH.ClearPIN)))
	mux.HandleFunc("POST /api/family-members/{id}/verify-pin", s.familyMemberH.VerifyPIN)

	// Rewards and balances
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.Handle("POST /api/rewards", parent(http.HandlerFunc(s.rewardH.Create)))
	mux.Handle("PUT /api/rewards/{id}", parent(http.HandlerFunc(s.rewardH.Update)))
	mux.Handle("DELETE /api/rewards/{id}", parent(http.HandlerFunc(s.rewardH.Delete)))
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/balances", s.rewardH.Balances)
	mux.HandleFunc("GET /api/balances/{id}", s.rewardH.MemberBalance)
	mux.HandleFunc("GET /api/family-members/{id}/ledger", s.rewardH.MemberHistory)

	// Activity feed
	mux.HandleFunc("GET /api/activity", s.activityH.List)

	// Push notifications (only when VAPID keys are configured)
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.List)
		mux.HandleFunc("POST /api/push/subscriptions", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	}

	// Backups
	mux.Handle("GET /api/backups", admin(http.HandlerFunc(s.backupH.List)))
	mux.Handle("GET /api/backups/status", admin(http.HandlerFunc(s.backupH.Status)))
	mux.Handle("POST /api/backups", admin(http.HandlerFunc(s.backupH.Run)))
	mux.Handle("GET /api/backups/{id}/download", admin(http.HandlerFunc(s.backupH.Download)))
	mux.Handle("POST /api/backups/{id}/restore", admin(http.HandlerFunc(s.backupH.Restore)))

	// Live updates
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, func(r *http.Request) (int64, bool) {
		id := auth.HouseholdID(r.Context())
		return id, id != 0
	}, s.logger.With("component", "websocket")))
}
