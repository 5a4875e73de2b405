// Package reporter renders candidate lists for terminals and for
// machine consumption.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"deal-matching-service/internal/matcher"
	"deal-matching-service/internal/models"
	apperrors "deal-matching-service/pkg/errors"
)

// Format selects the output rendering.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// ValidFormat reports whether the format name is supported.
func ValidFormat(format string) bool {
	switch Format(format) {
	case FormatConsole, FormatJSON:
		return true
	}
	return false
}

// Report is the serializable result of a matching run.
type Report struct {
	PolicyID     int64                    `json:"policy_id,omitempty"`
	PolicyNumber string                   `json:"policy_number"`
	GeneratedAt  time.Time                `json:"generated_at"`
	Candidates   []*matcher.CandidateDeal `json:"candidates"`
}

// Reporter writes matching reports to a destination writer.
type Reporter struct {
	writer io.Writer
}

// New creates a reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{writer: w}
}

// Render writes the candidates for a policy in the given format.
func (r *Reporter) Render(format Format, policy *models.Policy, candidates []*matcher.CandidateDeal) error {
	report := &Report{
		PolicyID:     policy.ID,
		PolicyNumber: policy.PolicyNumber,
		GeneratedAt:  time.Now().UTC(),
		Candidates:   candidates,
	}

	switch format {
	case FormatJSON:
		return r.renderJSON(report)
	case FormatConsole:
		return r.renderConsole(report)
	default:
		return apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "output-format", string(format), nil)
	}
}

func (r *Reporter) renderJSON(report *Report) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryInternal, apperrors.CodeUnexpectedError, "failed to encode report")
	}
	return nil
}

func (r *Reporter) renderConsole(report *Report) error {
	if len(report.Candidates) == 0 {
		fmt.Fprintf(r.writer, "No candidate deals found for policy %s\n", report.PolicyNumber)
		return nil
	}

	fmt.Fprintf(r.writer, "Candidate deals for policy %s:\n", report.PolicyNumber)

	t := table.NewWriter()
	t.SetOutputMirror(r.writer)
	t.AppendHeader(table.Row{"Deal", "Score", "Strict", "Client", "Reasons"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Reasons", WidthMax: 80},
		{Name: "Score", Align: text.AlignRight},
	})

	for _, candidate := range report.Candidates {
		strict := ""
		if candidate.IsStrict {
			strict = "⭐"
		}
		clientName := ""
		if candidate.Deal != nil && candidate.Deal.Client != nil {
			clientName = candidate.Deal.Client.Name
		}
		t.AppendRow(table.Row{
			candidate.DealID,
			fmt.Sprintf("%.2f", candidate.Score),
			strict,
			clientName,
			strings.Join(candidate.Reasons, ", "),
		})
	}

	t.Render()
	return nil
}
