package api

import (
	"fmt"
	"net/http"

	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/punchamoorthee/bankrecon/internal/models"
	"github.com/punchamoorthee/bankrecon/internal/service"
)

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateReconciliationHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReconciliationRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	rec, err := h.svc.CreateReconciliation(r.Context(), actorFrom(r.Context()), req.StatementID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/reconciliations/%d", rec.ID))
	respondData(w, http.StatusCreated, rec)
}

func (h *Handler) ListReconciliationsHandler(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.List(r.Context(), actorFrom(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, recs)
}

func (h *Handler) GetReconciliationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	d, err := h.svc.Get(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, d)
}

func (h *Handler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	d, err := h.svc.Get(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rec := d.Reconciliation
	respondData(w, http.StatusOK, models.SummaryResponse{
		ReconciliationID:      rec.ID,
		Status:                string(rec.Status),
		Currency:              h.currency,
		EndingBalancePerBank:  domain.FormatAmount(rec.EndingBalancePerBank, h.currency),
		DepositsInTransit:     domain.FormatAmount(d.Outstanding.DepositsInTransit, h.currency),
		OutstandingChecks:     domain.FormatAmount(d.Outstanding.OutstandingChecks, h.currency),
		EndingBalancePerBooks: domain.FormatAmount(rec.EndingBalancePerBooks, h.currency),
		Difference:            domain.FormatAmount(rec.Difference, h.currency),
	})
}

func (h *Handler) CandidatesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	cands, err := h.svc.Candidates(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, cands)
}

func (h *Handler) SmartMatchHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	n, err := h.svc.SmartMatch(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, models.SmartMatchResponse{Matched: n})
}

func (h *Handler) MatchHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var body models.MatchRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.respondError(w, r, err)
		return
	}
	req := service.MatchRequest{
		ReconciliationID: id,
		StatementLineID:  body.StatementLineID,
		Candidate:        domain.CandidateRef{Type: domain.CandidateType(body.CandidateType), ID: body.CandidateID},
	}

	actor := actorFrom(r.Context())
	switch body.Action {
	case models.ActionMatch:
		m, err := h.svc.ManualMatch(r.Context(), actor, req)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		respondData(w, http.StatusCreated, m)
	case models.ActionUnmatch:
		if err := h.svc.Unmatch(r.Context(), actor, req); err != nil {
			h.respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, nil)
	default:
		h.respondError(w, r, invalid("action must be %q or %q", models.ActionMatch, models.ActionUnmatch))
	}
}

func (h *Handler) ClearedHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var body models.ClearedRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.respondError(w, r, err)
		return
	}
	if body.Cleared == nil {
		h.respondError(w, r, invalid("cleared is required"))
		return
	}
	res, err := h.svc.MarkCleared(r.Context(), actorFrom(r.Context()), id, *body.Cleared)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

func (h *Handler) AdjustmentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var body models.AdjustmentRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.respondError(w, r, err)
		return
	}
	res, err := h.svc.PostAdjustment(r.Context(), actorFrom(r.Context()), service.AdjustmentRequest{
		ReconciliationID: id,
		Type:             service.AdjustmentType(body.Type),
		Amount:           body.Amount,
		Date:             body.Date.Time,
		Memo:             body.Memo,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, res)
}

func (h *Handler) RecalcHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	bal, err := h.svc.Recalc(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, bal)
}

func (h *Handler) FinalizeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rec, err := h.svc.Finalize(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, rec)
}
