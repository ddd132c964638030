package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rowanvale/choreboard/internal/auth"
	"github.com/rowanvale/choreboard/internal/store"
)

const (
	SessionCookieName = "choreboard_session"
	MemberCookieName  = "choreboard_member"
)

// RequireAuth validates the session cookie and populates AuthContext. The
// API is JSON-only, so failures answer 401 instead of redirecting. The
// active family member cookie is optional; when present it must name a
// member of the session's household or it is ignored.
func RequireAuth(sessionStore *store.SessionStore, householdStore *store.HouseholdStore, memberStore *store.FamilyMemberStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessionStore.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			member, err := householdStore.GetMember(sess.HouseholdID, sess.UserID)
			if err != nil || member == nil {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				UserID:      sess.UserID,
				HouseholdID: sess.HouseholdID,
				Role:        member.Role,
				SessionID:   sess.ID,
			}

			if mc, err := r.Cookie(MemberCookieName); err == nil && mc.Value != "" {
				if id, err := strconv.ParseInt(mc.Value, 10, 64); err == nil {
					fm, err := memberStore.GetByID(id)
					if err == nil && fm != nil && fm.HouseholdID == sess.HouseholdID {
						ac.ActiveMemberID = fm.ID
						ac.MemberRole = fm.Role
					}
				}
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireParent checks the active family member holds the parent role.
func RequireParent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsParent(r.Context()) {
			forbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin checks that the authenticated user has the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			forbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}

func forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]string{"error": "forbidden"})
}
