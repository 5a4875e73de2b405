package parsers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"deal-matching-service/internal/models"
	apperrors "deal-matching-service/pkg/errors"
)

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestLoadPolicyFile(t *testing.T) {
	path := writePolicyFile(t, `{
		"id": 1,
		"policy_number": "AB-12345",
		"insurance_company": "АльфаСтрахование",
		"start_date": "2024-03-15",
		"end_date": "14.03.2025",
		"vehicle_vin": "XW8 1234 5678",
		"client": {"id": 7, "name": "Иванов", "phone": "+7 999 123-45-67"}
	}`)

	policy, err := LoadPolicyFile(path)
	if err != nil {
		t.Fatalf("LoadPolicyFile failed: %v", err)
	}

	if policy.PolicyNumber != "AB-12345" {
		t.Errorf("PolicyNumber = %q", policy.PolicyNumber)
	}
	if policy.ClientID != 7 || policy.Client == nil {
		t.Errorf("embedded client not applied: ClientID=%d Client=%v", policy.ClientID, policy.Client)
	}
	if policy.StartDate == nil || !policy.StartDate.Equal(models.Date(2024, time.March, 15)) {
		t.Errorf("StartDate = %v", policy.StartDate)
	}
	if policy.EndDate == nil || !policy.EndDate.Equal(models.Date(2025, time.March, 14)) {
		t.Errorf("EndDate = %v", policy.EndDate)
	}
}

func TestLoadPolicyFileNotFound(t *testing.T) {
	_, err := LoadPolicyFile(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}

	matcherErr, ok := apperrors.AsMatcherError(err)
	if !ok {
		t.Fatalf("expected a MatcherError, got %T", err)
	}
	if matcherErr.Code != apperrors.CodeFileNotFound {
		t.Errorf("Code = %q, expected %q", matcherErr.Code, apperrors.CodeFileNotFound)
	}
}

func TestLoadPolicyFileInvalidJSON(t *testing.T) {
	path := writePolicyFile(t, `{"policy_number": `)

	_, err := LoadPolicyFile(path)
	if err == nil {
		t.Fatal("expected an error for malformed JSON")
	}

	matcherErr, ok := apperrors.AsMatcherError(err)
	if !ok {
		t.Fatalf("expected a MatcherError, got %T", err)
	}
	if matcherErr.Code != apperrors.CodeInvalidFormat {
		t.Errorf("Code = %q, expected %q", matcherErr.Code, apperrors.CodeInvalidFormat)
	}
}

func TestValidatePolicyMissingNumber(t *testing.T) {
	err := ValidatePolicy(&models.Policy{ID: 1})
	if err == nil {
		t.Fatal("expected an error for a missing policy number")
	}
	matcherErr, ok := apperrors.AsMatcherError(err)
	if !ok || matcherErr.Code != apperrors.CodeMissingField {
		t.Errorf("err = %v, expected code %q", err, apperrors.CodeMissingField)
	}
}

func TestValidatePolicyDateOrder(t *testing.T) {
	err := ValidatePolicy(&models.Policy{
		PolicyNumber: "AB-1",
		StartDate:    models.DatePtr(2024, time.June, 1),
		EndDate:      models.DatePtr(2024, time.January, 1),
	})
	if err == nil {
		t.Fatal("expected an error for end date before start date")
	}
	matcherErr, ok := apperrors.AsMatcherError(err)
	if !ok || matcherErr.Code != apperrors.CodeOutOfRange {
		t.Errorf("err = %v, expected code %q", err, apperrors.CodeOutOfRange)
	}
}

func TestValidatePolicyDeleted(t *testing.T) {
	if err := ValidatePolicy(&models.Policy{PolicyNumber: "AB-1", IsDeleted: true}); err == nil {
		t.Error("expected an error for a deleted policy")
	}
}
