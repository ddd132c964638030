package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/rowanvale/choreboard/internal/auth"
	"github.com/rowanvale/choreboard/internal/email"
	"github.com/rowanvale/choreboard/internal/middleware"
	"github.com/rowanvale/choreboard/internal/model"
	"github.com/rowanvale/choreboard/internal/store"
)

const maxCodeAttempts = 5

type AuthHandler struct {
	users         *store.UserStore
	households    *store.HouseholdStore
	sessions      *store.SessionStore
	magicLinks    *store.MagicLinkStore
	members       *store.FamilyMemberStore
	emails        *email.Client
	invites       *auth.InviteManager
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(
	users *store.UserStore,
	households *store.HouseholdStore,
	sessions *store.SessionStore,
	magicLinks *store.MagicLinkStore,
	members *store.FamilyMemberStore,
	emails *email.Client,
	invites *auth.InviteManager,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:         users,
		households:    households,
		sessions:      sessions,
		magicLinks:    magicLinks,
		members:       members,
		emails:        emails,
		invites:       invites,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sess *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// startSession creates a session for the user's household and sets the
// cookie. When the user belongs to several households the first one wins;
// SwitchHousehold moves between them afterwards.
func (h *AuthHandler) startSession(w http.ResponseWriter, user *model.User) error {
	households, err := h.households.ListForUser(user.ID)
	if err != nil {
		return err
	}
	if len(households) == 0 {
		writeError(w, http.StatusForbidden, "account has no household")
		return nil
	}

	sess, err := h.sessions.Create(user.ID, households[0].ID)
	if err != nil {
		return err
	}
	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      user.ID,
		"household_id": sess.HouseholdID,
		"households":   households,
	})
	return nil
}

// Register handles POST /api/auth/register: a new account plus its first
// household in one step. The creator becomes the household admin.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email         string `json:"email"`
		Password      string `json:"password"`
		HouseholdName string `json:"household_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.HouseholdName = strings.TrimSpace(req.HouseholdName)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.HouseholdName == "" {
		writeError(w, http.StatusBadRequest, "household name is required")
		return
	}

	existing, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("register lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "an account with this email already exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	user, err := h.users.Create(req.Email, hash)
	if err != nil {
		h.logger.Error("register create user", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	household, err := h.households.Create(req.HouseholdName)
	if err != nil {
		h.logger.Error("register create household", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	if _, err := h.households.AddMember(household.ID, user.ID, "admin"); err != nil {
		h.logger.Error("register add member", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	sess, err := h.sessions.Create(user.ID, household.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":      user.ID,
		"household_id": household.ID,
	})
}

// Login handles POST /api/auth/login with email and password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := h.startSession(w, user); err != nil {
		h.logger.Error("login session", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
	}
}

// RequestCode handles POST /api/auth/code: emails a 6-digit login code.
// The response is identical whether or not the account exists.
func (h *AuthHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	// Same body on every path so callers can't enumerate accounts.
	defer writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})

	user, err := h.users.GetByEmail(req.Email)
	if err != nil || user == nil {
		return
	}

	ml, err := h.magicLinks.Create(req.Email, model.MagicLinkLogin, nil)
	if err != nil {
		h.logger.Error("create login code", "error", err)
		return
	}
	if err := h.emails.SendLoginCode(r.Context(), req.Email, ml.Token); err != nil {
		h.logger.Error("send login code", "error", err)
	}
}

// VerifyCode handles POST /api/auth/code/verify. Five wrong attempts burn
// the code.
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Code = strings.TrimSpace(req.Code)

	ml, err := h.magicLinks.GetByEmailAndCode(req.Email, req.Code)
	if err != nil {
		h.logger.Error("verify code lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}
	if ml == nil {
		// Count the miss against any live code for this email.
		if live, err := h.magicLinks.GetActiveByEmail(req.Email); err == nil && live != nil {
			if attempts, err := h.magicLinks.IncrementAttempts(live.ID); err == nil && attempts >= maxCodeAttempts {
				_ = h.magicLinks.MarkUsed(live.ID)
			}
		}
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}
	if ml.Attempts >= maxCodeAttempts {
		writeError(w, http.StatusUnauthorized, "too many attempts, request a new code")
		return
	}
	if err := h.magicLinks.MarkUsed(ml.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	user, err := h.users.GetByEmail(req.Email)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}
	if err := h.startSession(w, user); err != nil {
		h.logger.Error("verify code session", "error", err)
		writeError(w, http.StatusInternalServerError, "verification failed")
	}
}

// Me handles GET /api/auth/me. Requires an authenticated session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	households, err := h.households.ListForUser(ac.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":          ac.UserID,
		"household_id":     ac.HouseholdID,
		"role":             ac.Role,
		"active_member_id": ac.ActiveMemberID,
		"households":       households,
	})
}

// SwitchHousehold handles POST /api/auth/switch-household for users who
// belong to more than one.
func (h *AuthHandler) SwitchHousehold(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		HouseholdID int64 `json:"household_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	membership, err := h.households.GetMember(req.HouseholdID, ac.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to switch household")
		return
	}
	if membership == nil {
		writeError(w, http.StatusForbidden, "not a member of that household")
		return
	}

	if err := h.sessions.SwitchHousehold(ac.SessionID, req.HouseholdID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to switch household")
		return
	}

	// The active member belongs to the old household.
	h.clearCookie(w, middleware.MemberCookieName)
	writeJSON(w, http.StatusOK, map[string]any{"household_id": req.HouseholdID})
}

// Invite handles POST /api/auth/invite: emails a signed link that lets the
// recipient join the caller's household. Admin only (routed behind
// RequireAdmin).
func (h *AuthHandler) Invite(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if req.Role == "" {
		req.Role = "member"
	}
	if req.Role != "admin" && req.Role != "member" {
		writeError(w, http.StatusBadRequest, "role must be admin or member")
		return
	}

	household, err := h.households.GetByID(ac.HouseholdID)
	if err != nil || household == nil {
		writeError(w, http.StatusInternalServerError, "failed to send invite")
		return
	}

	token, err := h.invites.GenerateInvite(ac.HouseholdID, req.Email, req.Role)
	if err != nil {
		h.logger.Error("generate invite", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send invite")
		return
	}
	if err := h.emails.SendInvite(r.Context(), req.Email, token, household.Name); err != nil {
		h.logger.Error("send invite", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send invite")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// AcceptInvite handles POST /api/auth/invite/accept. New recipients supply
// a password and get an account; existing accounts just join the household.
func (h *AuthHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	claims, err := h.invites.ValidateInvite(req.Token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired invite")
		return
	}

	user, err := h.users.GetByEmail(claims.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to accept invite")
		return
	}
	if user == nil {
		if len(req.Password) < 8 {
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to accept invite")
			return
		}
		user, err = h.users.Create(claims.Email, hash)
		if err != nil {
			h.logger.Error("invite create user", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to accept invite")
			return
		}
	}

	membership, err := h.households.GetMember(claims.HouseholdID, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to accept invite")
		return
	}
	if membership == nil {
		if _, err := h.households.AddMember(claims.HouseholdID, user.ID, claims.Role); err != nil {
			h.logger.Error("invite add member", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to accept invite")
			return
		}
	}

	sess, err := h.sessions.Create(user.ID, claims.HouseholdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to accept invite")
		return
	}
	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      user.ID,
		"household_id": claims.HouseholdID,
	})
}

// SelectMember handles POST /api/auth/member: picks which family member
// this device acts as. Members with a PIN must supply it.
func (h *AuthHandler) SelectMember(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		MemberID int64  `json:"member_id"`
		PIN      string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	member, err := h.members.GetByID(req.MemberID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to select member")
		return
	}
	if member == nil || member.HouseholdID != ac.HouseholdID {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	if member.HasPIN {
		hash, err := h.members.GetPINHash(member.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to select member")
			return
		}
		if !auth.CheckPIN(hash, req.PIN) {
			writeError(w, http.StatusUnauthorized, "incorrect PIN")
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.MemberCookieName,
		Value:    strconv.FormatInt(member.ID, 10),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, member)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if sess, err := h.sessions.GetByToken(cookie.Value); err == nil && sess != nil {
			_ = h.sessions.Delete(sess.ID)
		}
	}
	h.clearCookie(w, middleware.SessionCookieName)
	h.clearCookie(w, middleware.MemberCookieName)
	w.WriteHeader(http.StatusNoContent)
}
