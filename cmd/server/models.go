package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/claimgate/compliance/rules"
)

// RuleRequest is the create/update body for a catalog rule. The threshold is
// raw JSON, decoded strictly against the logic type before anything is
// stored: rules authored through the API get the same treatment as catalog
// files, not the fail-open leniency reserved for reads from the store.
type RuleRequest struct {
	JurisdictionCode string            `json:"jurisdictionCode"`
	Category         rules.Category    `json:"category"`
	LogicType        rules.LogicType   `json:"logicType"`
	Severity         rules.Severity    `json:"severity"`
	ErrorMessage     string            `json:"errorMessage"`
	Threshold        json.RawMessage   `json:"threshold,omitempty"`
	LegalBasis       *rules.LegalBasis `json:"legalBasis,omitempty"`
	Active           *bool             `json:"active,omitempty"`
}

func (req RuleRequest) toRule(id string) (*rules.Rule, error) {
	if req.JurisdictionCode == "" {
		return nil, fmt.Errorf("jurisdictionCode is required")
	}
	if !req.Category.Known() {
		return nil, fmt.Errorf("unknown category %q", req.Category)
	}
	if !req.Severity.Known() {
		return nil, fmt.Errorf("unknown severity %q", req.Severity)
	}
	if req.ErrorMessage == "" {
		return nil, fmt.Errorf("errorMessage is required")
	}

	threshold, err := rules.DecodeThreshold(req.LogicType, req.Threshold)
	if err != nil {
		return nil, fmt.Errorf("threshold: %w", err)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	return &rules.Rule{
		ID:               id,
		JurisdictionCode: req.JurisdictionCode,
		Category:         req.Category,
		LogicType:        req.LogicType,
		Threshold:        threshold,
		Severity:         req.Severity,
		ErrorMessage:     req.ErrorMessage,
		LegalBasis:       req.LegalBasis,
		Active:           active,
	}, nil
}

// RuleResponse is a rule as returned by the API, with the threshold restored
// to its JSON payload form.
type RuleResponse struct {
	ID               string            `json:"id"`
	JurisdictionCode string            `json:"jurisdictionCode"`
	Category         rules.Category    `json:"category"`
	LogicType        rules.LogicType   `json:"logicType"`
	Severity         rules.Severity    `json:"severity"`
	ErrorMessage     string            `json:"errorMessage"`
	Threshold        json.RawMessage   `json:"threshold,omitempty"`
	LegalBasis       *rules.LegalBasis `json:"legalBasis,omitempty"`
	Active           bool              `json:"active"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

func toRuleResponse(rule *rules.Rule) RuleResponse {
	// Encoding a threshold we decoded ourselves cannot fail.
	threshold, _ := rules.EncodeThreshold(rule.Threshold)
	return RuleResponse{
		ID:               rule.ID,
		JurisdictionCode: rule.JurisdictionCode,
		Category:         rule.Category,
		LogicType:        rule.LogicType,
		Severity:         rule.Severity,
		ErrorMessage:     rule.ErrorMessage,
		Threshold:        threshold,
		LegalBasis:       rule.LegalBasis,
		Active:           rule.Active,
		CreatedAt:        rule.CreatedAt,
		UpdatedAt:        rule.UpdatedAt,
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{"error": message}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
