package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rowanvale/choreboard/internal/activity"
	"github.com/rowanvale/choreboard/internal/auth"
	"github.com/rowanvale/choreboard/internal/model"
	"github.com/rowanvale/choreboard/internal/store"
)

// RewardHandler covers the reward catalog, member balances and redemptions.
type RewardHandler struct {
	db       *sql.DB
	rewards  *store.RewardStore
	ledger   *store.LedgerStore
	members  *store.FamilyMemberStore
	recorder *activity.Recorder
	logger   *slog.Logger
}

func NewRewardHandler(db *sql.DB, rewards *store.RewardStore, ledger *store.LedgerStore, members *store.FamilyMemberStore, recorder *activity.Recorder, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{db: db, rewards: rewards, ledger: ledger, members: members, recorder: recorder, logger: logger}
}

var errInsufficientBalance = errors.New("insufficient balance")

type rewardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CostCents   int64  `json:"cost_cents"`
	Active      *bool  `json:"active"`
}

func (req *rewardRequest) validate() (string, bool) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return "title is required", false
	}
	if req.CostCents <= 0 {
		return "cost must be positive", false
	}
	return "", true
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	reward, err := h.rewards.Create(auth.HouseholdID(r.Context()), req.Title, req.Description, req.CostCents, active)
	if err != nil {
		h.logger.Error("create reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create reward")
		return
	}
	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.ListByHousehold(auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) rewardInHousehold(w http.ResponseWriter, r *http.Request, id int64) *model.Reward {
	reward, err := h.rewards.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get reward")
		return nil
	}
	if reward == nil || reward.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "reward not found")
		return nil
	}
	return reward
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing := h.rewardInHousehold(w, r, id)
	if existing == nil {
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	reward, err := h.rewards.Update(id, req.Title, req.Description, req.CostCents, active)
	if err != nil {
		h.logger.Error("update reward", "reward_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update reward")
		return
	}
	writeJSON(w, http.StatusOK, reward)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if h.rewardInHousehold(w, r, id) == nil {
		return
	}

	if err := h.rewards.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete reward")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Redeem handles POST /api/rewards/{id}/redeem. The balance check and the
// debit run in one transaction so two racing redemptions cannot both spend
// the same cents.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	reward := h.rewardInHousehold(w, r, id)
	if reward == nil {
		return
	}
	if !reward.Active {
		writeError(w, http.StatusConflict, "reward is not active")
		return
	}

	memberID := auth.ActiveMemberID(r.Context())
	if memberID == 0 {
		writeError(w, http.StatusBadRequest, "no family member selected")
		return
	}
	member, err := h.members.GetByID(memberID)
	if err != nil || member == nil || member.HouseholdID != reward.HouseholdID {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	var entry *model.LedgerEntry
	err = store.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		ledger := h.ledger.WithTx(tx)
		balance, err := ledger.Balance(memberID)
		if err != nil {
			return err
		}
		if balance.BalanceCents < reward.CostCents {
			return errInsufficientBalance
		}
		entry, err = ledger.Debit(memberID, reward.CostCents, uuid.NewString(), reward.ID, reward.Title)
		return err
	})
	if errors.Is(err, errInsufficientBalance) {
		writeError(w, http.StatusConflict, "insufficient balance")
		return
	}
	if err != nil {
		h.logger.Error("redeem reward", "reward_id", id, "member_id", memberID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to redeem reward")
		return
	}

	if h.recorder != nil {
		h.recorder.RewardRedeemed(reward.HouseholdID, memberID, reward.Title, reward.CostCents)
	}
	writeJSON(w, http.StatusOK, entry)
}

// Balances handles GET /api/balances for the whole household.
func (h *RewardHandler) Balances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.ledger.HouseholdBalances(auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list balances")
		return
	}
	if balances == nil {
		balances = []model.MemberBalance{}
	}
	writeJSON(w, http.StatusOK, balances)
}

// MemberBalance handles GET /api/balances/{id} for a single member.
func (h *RewardHandler) MemberBalance(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	member, err := h.members.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get family member")
		return
	}
	if member == nil || member.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	balance, err := h.ledger.Balance(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// MemberHistory handles GET /api/family-members/{id}/ledger.
func (h *RewardHandler) MemberHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	member, err := h.members.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get family member")
		return
	}
	if member == nil || member.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	entries, err := h.ledger.ListByMember(id, 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list ledger entries")
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
