package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"deal-matching-service/internal/matcher"
	"deal-matching-service/internal/models"
)

func sampleCandidates() []*matcher.CandidateDeal {
	return []*matcher.CandidateDeal{
		{
			DealID: 10,
			Deal: &models.Deal{
				ID:     10,
				Client: &models.Client{ID: 1, Name: "Иванов Иван"},
			},
			Score:    1.0,
			Reasons:  []string{"VIN совпадает с полисом №VIN-001", "Client phone matches: 79991234567"},
			IsStrict: true,
		},
		{
			DealID:  11,
			Score:   0.6,
			Reasons: []string{"Client email matches: dup@mail.ru"},
		},
	}
}

func TestValidFormat(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		if !ValidFormat(format) {
			t.Errorf("%q should be valid", format)
		}
	}
	for _, format := range []string{"", "yaml", "CSV"} {
		if ValidFormat(format) {
			t.Errorf("%q should be invalid", format)
		}
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	policy := &models.Policy{ID: 200, PolicyNumber: "NEW-1"}

	if err := New(&buf).Render(FormatJSON, policy, sampleCandidates()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var report Report
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if report.PolicyNumber != "NEW-1" {
		t.Errorf("PolicyNumber = %q", report.PolicyNumber)
	}
	if len(report.Candidates) != 2 {
		t.Fatalf("Candidates = %d, expected 2", len(report.Candidates))
	}
	if report.Candidates[0].DealID != 10 || !report.Candidates[0].IsStrict {
		t.Errorf("Candidates[0] = %+v", report.Candidates[0])
	}
	if report.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
}

func TestRenderConsole(t *testing.T) {
	var buf bytes.Buffer
	policy := &models.Policy{ID: 200, PolicyNumber: "NEW-1"}

	if err := New(&buf).Render(FormatConsole, policy, sampleCandidates()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Candidate deals for policy NEW-1:",
		"Иванов Иван",
		"1.00",
		"0.60",
		"VIN совпадает с полисом №VIN-001",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderConsoleEmpty(t *testing.T) {
	var buf bytes.Buffer
	policy := &models.Policy{ID: 200, PolicyNumber: "NEW-1"}

	if err := New(&buf).Render(FormatConsole, policy, nil); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No candidate deals found for policy NEW-1") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	policy := &models.Policy{ID: 200, PolicyNumber: "NEW-1"}

	if err := New(&buf).Render(Format("yaml"), policy, nil); err == nil {
		t.Error("expected an error for an unknown format")
	}
}
