package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/claimgate/compliance/internal/config"
	"github.com/claimgate/compliance/internal/metrics"
	"github.com/claimgate/compliance/rules"
)

type ServerSuite struct {
	suite.Suite
	server *Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

// SetupTest builds a fresh server per test on the in-memory store, seeded
// from the shipped catalog.
func (s *ServerSuite) SetupTest() {
	cfg := config.Server{
		CatalogPath: filepath.Join("..", "..", "catalog", "seed", "catalog.yaml"),
	}
	server, err := NewServer(cfg, metrics.NewWith(prometheus.NewRegistry()))
	require.NoError(s.T(), err)
	s.server = server
}

func (s *ServerSuite) request(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, req)
	return rec
}

func (s *ServerSuite) decode(rec *httptest.ResponseRecorder, into any) {
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(into))
}

func (s *ServerSuite) TestHealth() {
	rec := s.request(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	assert.Equal(s.T(), "healthy", body["status"])
}

func (s *ServerSuite) TestValidateEmergencyFeeCapViolation() {
	rec := s.request(http.MethodPost, "/api/v1/validate", map[string]any{
		"jurisdictionCode": "FL",
		"feeType":          "PERCENTAGE",
		"feePercentage":    0.15,
		"isEmergency":      true,
	})
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var verdict rules.Verdict
	s.decode(rec, &verdict)
	assert.False(s.T(), verdict.IsValid)
	require.NotEmpty(s.T(), verdict.Violations)
	assert.Equal(s.T(), "fl-fee-dynamic-cap", verdict.Violations[0].RuleID)
	assert.Contains(s.T(), verdict.Violations[0].Remediation, "10%")
	assert.Contains(s.T(), verdict.BlockedActions, rules.CategoryFeeCap)
}

func (s *ServerSuite) TestValidateCompliantAction() {
	rec := s.request(http.MethodPost, "/api/v1/validate", map[string]any{
		"jurisdictionCode": "FL",
		"feeType":          "PERCENTAGE",
		"feePercentage":    0.15,
	})
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var verdict rules.Verdict
	s.decode(rec, &verdict)
	assert.True(s.T(), verdict.IsValid)
	assert.Empty(s.T(), verdict.Violations)
}

func (s *ServerSuite) TestValidateTotalBan() {
	rec := s.request(http.MethodPost, "/api/v1/validate", map[string]any{
		"jurisdictionCode": "AL",
		"actionType":       "CONTRACT",
	})
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var verdict rules.Verdict
	s.decode(rec, &verdict)
	assert.False(s.T(), verdict.IsValid)
	require.NotEmpty(s.T(), verdict.Violations)
	assert.Equal(s.T(), "al-total-ban", verdict.Violations[0].RuleID)
}

func (s *ServerSuite) TestValidateRequiresJurisdiction() {
	rec := s.request(http.MethodPost, "/api/v1/validate", map[string]any{
		"feePercentage": 0.5,
	})
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ServerSuite) TestValidateRejectsGarbageBody() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ServerSuite) TestFeeCap() {
	rec := s.request(http.MethodGet, "/api/v1/jurisdictions/FL/fee-cap?claimAmount=100000&emergency=true", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var feeCap rules.FeeCap
	s.decode(rec, &feeCap)
	assert.Equal(s.T(), 0.10, feeCap.MaxPercentage)
	assert.Equal(s.T(), 10000.0, feeCap.MaxAmount)
	assert.Equal(s.T(), "fl-fee-dynamic-cap", feeCap.RuleID)
}

func (s *ServerSuite) TestFeeCapUnregulatedFallback() {
	rec := s.request(http.MethodGet, "/api/v1/jurisdictions/ZZ/fee-cap?claimAmount=100000", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var feeCap rules.FeeCap
	s.decode(rec, &feeCap)
	assert.Equal(s.T(), 0.33, feeCap.MaxPercentage)
	assert.Empty(s.T(), feeCap.RuleID)
	assert.Contains(s.T(), feeCap.Notes, "not a legal limit")
}

func (s *ServerSuite) TestFeeCapRequiresClaimAmount() {
	rec := s.request(http.MethodGet, "/api/v1/jurisdictions/FL/fee-cap", nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ServerSuite) TestEligibility() {
	rec := s.request(http.MethodGet, "/api/v1/jurisdictions/AL/eligibility", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var elig rules.Eligibility
	s.decode(rec, &elig)
	assert.False(s.T(), elig.Allowed)
	assert.NotEmpty(s.T(), elig.Reason)

	rec = s.request(http.MethodGet, "/api/v1/jurisdictions/FL/eligibility", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	s.decode(rec, &elig)
	assert.True(s.T(), elig.Allowed)
}

func (s *ServerSuite) TestNotices() {
	rec := s.request(http.MethodGet, "/api/v1/jurisdictions/FL/notices?declaredDisaster=true", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var body struct {
		Notices []rules.Finding `json:"notices"`
	}
	s.decode(rec, &body)
	require.NotEmpty(s.T(), body.Notices)

	byID := make(map[string]rules.Finding)
	for _, n := range body.Notices {
		byID[n.RuleID] = n
	}
	rescission, ok := byID["default-rescission"]
	require.True(s.T(), ok, "default rescission notice missing")
	assert.Contains(s.T(), rescission.Remediation, "10 days")
}

func (s *ServerSuite) TestRuleCRUD() {
	create := map[string]any{
		"jurisdictionCode": "NV",
		"category":         "FEE_CAP",
		"logicType":        "MAX_PERCENTAGE",
		"severity":         "WARN_BLOCK",
		"errorMessage":     "fee exceeds the Nevada cap",
		"threshold":        map[string]any{"cap": 0.15},
	}

	rec := s.request(http.MethodPost, "/api/v1/rules", create)
	require.Equal(s.T(), http.StatusCreated, rec.Code)

	var created RuleResponse
	s.decode(rec, &created)
	require.NotEmpty(s.T(), created.ID)
	assert.True(s.T(), created.Active)

	rec = s.request(http.MethodGet, "/api/v1/rules/"+created.ID, nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	// The new rule participates in evaluation immediately.
	rec = s.request(http.MethodPost, "/api/v1/validate", map[string]any{
		"jurisdictionCode": "NV",
		"feePercentage":    0.20,
	})
	require.Equal(s.T(), http.StatusOK, rec.Code)
	var verdict rules.Verdict
	s.decode(rec, &verdict)
	assert.False(s.T(), verdict.IsValid)

	update := create
	update["threshold"] = map[string]any{"cap": 0.25}
	rec = s.request(http.MethodPut, "/api/v1/rules/"+created.ID, update)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	// The same fee is compliant under the raised cap.
	rec = s.request(http.MethodPost, "/api/v1/validate", map[string]any{
		"jurisdictionCode": "NV",
		"feePercentage":    0.20,
	})
	require.Equal(s.T(), http.StatusOK, rec.Code)
	s.decode(rec, &verdict)
	assert.True(s.T(), verdict.IsValid)

	rec = s.request(http.MethodDelete, "/api/v1/rules/"+created.ID, nil)
	assert.Equal(s.T(), http.StatusNoContent, rec.Code)

	rec = s.request(http.MethodGet, "/api/v1/rules/"+created.ID, nil)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *ServerSuite) TestCreateRuleRejectsBadThreshold() {
	rec := s.request(http.MethodPost, "/api/v1/rules", map[string]any{
		"jurisdictionCode": "NV",
		"category":         "FEE_CAP",
		"logicType":        "MAX_PERCENTAGE",
		"severity":         "WARN_BLOCK",
		"errorMessage":     "x",
		"threshold":        map[string]any{"ceiling": 0.15},
	})
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ServerSuite) TestListRules() {
	rec := s.request(http.MethodGet, "/api/v1/rules", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var body struct {
		Rules []RuleResponse `json:"rules"`
	}
	s.decode(rec, &body)
	assert.NotEmpty(s.T(), body.Rules, "seed catalog should be listed")
}

func (s *ServerSuite) TestMetricsEndpoint() {
	rec := s.request(http.MethodGet, "/metrics", nil)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *ServerSuite) TestUnknownRuleReturns404() {
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := s.request(method, fmt.Sprintf("/api/v1/rules/%s", "does-not-exist"), nil)
		assert.Equal(s.T(), http.StatusNotFound, rec.Code, method)
	}
}
