package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claimgate/compliance/internal/logger"
	"github.com/claimgate/compliance/rules"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleValidate runs the full rule evaluation for one proposed action.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var in rules.ActionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if in.JurisdictionCode == "" {
		respondError(w, http.StatusBadRequest, "jurisdictionCode is required", nil)
		return
	}

	start := time.Now()
	verdict, err := s.engine.Validate(r.Context(), in.JurisdictionCode, in)
	if err != nil {
		s.metrics.CatalogFailures.Inc()
		logger.Error("validation failed", "jurisdiction", in.JurisdictionCode, "error", err)
		respondError(w, http.StatusBadGateway, "rule catalog unavailable", err)
		return
	}

	s.metrics.ObserveEvaluation(verdict.IsValid, len(verdict.Violations), len(verdict.BlockedActions), time.Since(start))
	respondJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleFeeCap(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	claimAmount, err := strconv.ParseFloat(r.URL.Query().Get("claimAmount"), 64)
	if err != nil || claimAmount < 0 {
		respondError(w, http.StatusBadRequest, "claimAmount query parameter must be a non-negative number", nil)
		return
	}
	emergency, _ := strconv.ParseBool(r.URL.Query().Get("emergency"))

	feeCap, err := s.engine.MaxFee(r.Context(), code, claimAmount, emergency)
	if err != nil {
		s.metrics.CatalogFailures.Inc()
		respondError(w, http.StatusBadGateway, "rule catalog unavailable", err)
		return
	}
	respondJSON(w, http.StatusOK, feeCap)
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	eligibility, err := s.engine.IsAllowed(r.Context(), code)
	if err != nil {
		s.metrics.CatalogFailures.Inc()
		respondError(w, http.StatusBadGateway, "rule catalog unavailable", err)
		return
	}
	respondJSON(w, http.StatusOK, eligibility)
}

func (s *Server) handleNotices(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	declaredDisaster, _ := strconv.ParseBool(r.URL.Query().Get("declaredDisaster"))

	notices, err := s.engine.Notices(r.Context(), code, rules.ActionInput{
		JurisdictionCode: code,
		DeclaredDisaster: declaredDisaster,
	})
	if err != nil {
		s.metrics.CatalogFailures.Inc()
		respondError(w, http.StatusBadGateway, "rule catalog unavailable", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"notices": notices})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}

	out := make([]RuleResponse, 0, len(all))
	for _, rule := range all {
		out = append(out, toRuleResponse(rule))
	}
	respondJSON(w, http.StatusOK, map[string]any{"rules": out})
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule, err := req.toRule(uuid.NewString())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule", err)
		return
	}

	if err := s.store.Add(r.Context(), rule); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to add rule", err)
		return
	}
	respondJSON(w, http.StatusCreated, toRuleResponse(rule))
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.store.Get(r.Context(), chi.URLParam(r, "ruleId"))
	if err != nil {
		if errors.Is(err, rules.ErrNotFound) {
			respondError(w, http.StatusNotFound, "rule not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get rule", err)
		return
	}
	respondJSON(w, http.StatusOK, toRuleResponse(rule))
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule, err := req.toRule(ruleID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule", err)
		return
	}

	if err := s.store.Update(r.Context(), rule); err != nil {
		if errors.Is(err, rules.ErrNotFound) {
			respondError(w, http.StatusNotFound, "rule not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update rule", err)
		return
	}
	respondJSON(w, http.StatusOK, toRuleResponse(rule))
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "ruleId")); err != nil {
		if errors.Is(err, rules.ErrNotFound) {
			respondError(w, http.StatusNotFound, "rule not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete rule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
