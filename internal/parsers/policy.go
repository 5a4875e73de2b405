// Package parsers loads externally produced policy records, such as
// the JSON files emitted by the document-recognition flow, so they
// can be matched before being persisted.
package parsers

import (
	"encoding/json"
	"os"
	"strings"

	"deal-matching-service/internal/models"
	apperrors "deal-matching-service/pkg/errors"
)

// LoadPolicyFile reads a policy record from a JSON file. The record
// may embed a client object; dates accept YYYY-MM-DD, DD.MM.YYYY or
// RFC 3339 forms.
func LoadPolicyFile(path string) (*models.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileError(apperrors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, apperrors.FileError(apperrors.CodeFilePermission, path, err)
		}
		return nil, apperrors.FileError("", path, err)
	}

	policy := &models.Policy{}
	if err := json.Unmarshal(data, policy); err != nil {
		return nil, apperrors.ParseError(apperrors.CodeInvalidFormat, path, "", "", err)
	}

	if err := ValidatePolicy(policy); err != nil {
		return nil, err
	}
	return policy, nil
}

// ValidatePolicy checks the minimal shape a policy record needs for
// matching.
func ValidatePolicy(policy *models.Policy) error {
	if strings.TrimSpace(policy.PolicyNumber) == "" {
		return apperrors.ValidationError(apperrors.CodeMissingField, "policy_number", policy.PolicyNumber, nil)
	}
	if policy.StartDate != nil && policy.EndDate != nil && policy.EndDate.Before(*policy.StartDate) {
		return apperrors.ValidationError(apperrors.CodeOutOfRange, "end_date", policy.EndDate, nil)
	}
	if policy.IsDeleted {
		return apperrors.ValidationError("", "is_deleted", policy.IsDeleted, nil).
			WithSuggestion("deleted policies cannot be matched")
	}
	return nil
}
