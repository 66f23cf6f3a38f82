package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mixwave/quotagate/app"
)

// identityPayload is the identity fragment shared by request bodies.
type identityPayload struct {
	AccountID string `json:"account_id,omitempty"`
	Email     string `json:"email,omitempty"`
}

func (p identityPayload) identity() app.Identity {
	return app.Identity{ID: p.AccountID, Email: p.Email}
}

// summaryPayload is the JSON shape of an allowance summary. Remaining is
// a string so "unlimited" can be expressed alongside numbers.
type summaryPayload struct {
	AccountID string `json:"account_id"`
	Plan      string `json:"plan"`
	Used      int64  `json:"used"`
	Limit     *int64 `json:"limit"`
	Remaining any    `json:"remaining"`
	Unlimited bool   `json:"unlimited"`
	Allowed   bool   `json:"allowed"`
}

func toSummaryPayload(s app.Summary) summaryPayload {
	p := summaryPayload{
		AccountID: s.AccountID,
		Plan:      s.Plan,
		Used:      s.Used,
		Limit:     s.Limit,
		Unlimited: s.Unlimited,
		Allowed:   s.Allowed,
	}
	if s.Unlimited {
		p.Remaining = "unlimited"
	} else {
		p.Remaining = s.Remaining
	}
	return p
}

// Summary handles GET /v1/usage/summary?account_id=...&email=...
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	identity := app.Identity{
		ID:    r.URL.Query().Get("account_id"),
		Email: r.URL.Query().Get("email"),
	}

	s, err := h.ledger.Summary(r.Context(), identity)
	if err != nil {
		h.writeReasonError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryPayload(s))
}

// Consume handles POST /v1/usage/consume.
func (h *Handler) Consume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		identityPayload
		Meta map[string]string `json:"meta,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	res, err := h.ledger.Consume(r.Context(), body.identity(), body.Meta)
	if err != nil {
		h.writeReasonError(w, err)
		return
	}

	status := http.StatusOK
	if !res.OK {
		// Payment Required: the user-facing paywall case.
		status = http.StatusPaymentRequired
	}
	writeJSON(w, status, map[string]any{
		"ok":       res.OK,
		"reason":   res.Reason,
		"event_id": res.EventID,
		"summary":  toSummaryPayload(res.Summary),
	})
}

// Refund handles POST /v1/usage/refund.
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	var body struct {
		identityPayload
		EventID string `json:"event_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	s, err := h.ledger.Refund(r.Context(), body.identity(), body.EventID)
	if err != nil {
		h.writeReasonError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"summary": toSummaryPayload(s),
	})
}

// SetPlan handles POST /v1/plans/set, called by the billing collaborator
// after a payment is confirmed.
func (h *Handler) SetPlan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		identityPayload
		Plan             string `json:"plan"`
		MaxUses          *int64 `json:"max_uses,omitempty"`
		FounderCandidate *bool  `json:"founder_candidate,omitempty"`
		MarketingOptIn   *bool  `json:"marketing_opt_in,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if body.Plan == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "plan is required")
		return
	}

	res, err := h.ledger.SetPlan(r.Context(), body.identity(), body.Plan, app.SetPlanOptions{
		MaxUses:          body.MaxUses,
		FounderCandidate: body.FounderCandidate,
		MarketingOptIn:   body.MarketingOptIn,
	})
	if err != nil {
		h.writeReasonError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account_id": res.AccountID,
		"plan":       res.Plan,
		"max_uses":   res.MaxUses,
		"unlimited":  res.Unlimited,
	})
}

func (h *Handler) writeReasonError(w http.ResponseWriter, err error) {
	reason := app.ReasonOf(err)
	status := http.StatusInternalServerError
	switch reason {
	case app.ReasonIdentityMissing:
		status = http.StatusBadRequest
	case app.ReasonAccountNotFound:
		status = http.StatusNotFound
	case app.ReasonLimitExhausted:
		status = http.StatusPaymentRequired
	case app.ReasonStoreUnavailable:
		status = http.StatusServiceUnavailable
	}

	var appErr *app.Error
	if !errors.As(err, &appErr) || status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("request failed")
	}
	writeError(w, status, string(reason), err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
