package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rowanvale/choreboard/internal/auth"
	"github.com/rowanvale/choreboard/internal/model"
	"github.com/rowanvale/choreboard/internal/store"
	"github.com/rowanvale/choreboard/internal/websocket"
)

type FamilyMemberHandler struct {
	members *store.FamilyMemberStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewFamilyMemberHandler(members *store.FamilyMemberStore, hub *websocket.Hub, logger *slog.Logger) *FamilyMemberHandler {
	return &FamilyMemberHandler{members: members, hub: hub, logger: logger}
}

func (h *FamilyMemberHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

// memberInHousehold loads a member and checks it belongs to the caller's
// household. Writes the error response itself when the member is missing.
func (h *FamilyMemberHandler) memberInHousehold(w http.ResponseWriter, r *http.Request, id int64) *model.FamilyMember {
	member, err := h.members.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get family member")
		return nil
	}
	if member == nil || member.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "family member not found")
		return nil
	}
	return member
}

type memberRequest struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Color       string `json:"color"`
	AvatarEmoji string `json:"avatar_emoji"`
}

func (req *memberRequest) validate() (string, bool) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required", false
	}
	if req.Role == "" {
		req.Role = model.RoleChild
	}
	if req.Role != model.RoleParent && req.Role != model.RoleChild {
		return "role must be parent or child", false
	}
	return "", true
}

func (h *FamilyMemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	member, err := h.members.Create(auth.HouseholdID(r.Context()), req.Name, req.Role, req.Color, req.AvatarEmoji)
	if err != nil {
		h.logger.Error("create family member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create family member")
		return
	}

	h.broadcast(member.HouseholdID, websocket.NewMessage("member", "created", member.ID, nil))
	writeJSON(w, http.StatusCreated, member)
}

func (h *FamilyMemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.ListByHousehold(auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list family members")
		return
	}
	if members == nil {
		members = []model.FamilyMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *FamilyMemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	member := h.memberInHousehold(w, r, id)
	if member == nil {
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *FamilyMemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if h.memberInHousehold(w, r, id) == nil {
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	member, err := h.members.Update(id, req.Name, req.Role, req.Color, req.AvatarEmoji)
	if err != nil {
		h.logger.Error("update family member", "member_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update family member")
		return
	}

	h.broadcast(member.HouseholdID, websocket.NewMessage("member", "updated", member.ID, nil))
	writeJSON(w, http.StatusOK, member)
}

func (h *FamilyMemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	member := h.memberInHousehold(w, r, id)
	if member == nil {
		return
	}

	if err := h.members.Delete(id); err != nil {
		h.logger.Error("delete family member", "member_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete family member")
		return
	}

	h.broadcast(member.HouseholdID, websocket.NewMessage("member", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSortOrder handles PUT /api/family-members/order.
func (h *FamilyMemberHandler) UpdateSortOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids are required")
		return
	}

	// Every id must belong to the caller's household.
	for _, id := range req.IDs {
		if h.memberInHousehold(w, r, id) == nil {
			return
		}
	}

	if err := h.members.UpdateSortOrder(req.IDs); err != nil {
		h.logger.Error("update sort order", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update order")
		return
	}

	h.broadcast(auth.HouseholdID(r.Context()), websocket.NewMessage("member", "reordered", 0, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *FamilyMemberHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if h.memberInHousehold(w, r, id) == nil {
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.PIN) < 4 || len(req.PIN) > 8 {
		writeError(w, http.StatusBadRequest, "PIN must be 4-8 digits")
		return
	}
	for _, c := range req.PIN {
		if c < '0' || c > '9' {
			writeError(w, http.StatusBadRequest, "PIN must contain only digits")
			return
		}
	}

	hash, err := auth.HashPIN(req.PIN)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}
	if err := h.members.SetPIN(id, hash); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FamilyMemberHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if h.memberInHousehold(w, r, id) == nil {
		return
	}

	if err := h.members.ClearPIN(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear PIN")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VerifyPIN handles POST /api/family-members/{id}/verify-pin. Used by the
// member switcher before trusting a parent profile selection.
func (h *FamilyMemberHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if h.memberInHousehold(w, r, id) == nil {
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	hash, err := h.members.GetPINHash(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to verify PIN")
		return
	}
	if hash == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": auth.CheckPIN(hash, req.PIN)})
}
