package matcher

import (
	"testing"
	"time"

	"deal-matching-service/internal/models"
)

func indexForDeals(deals ...*models.Deal) *DealMatchIndex {
	idx := NewDealMatchIndex()
	for _, deal := range deals {
		idx.Add(BuildDealProfile(deal))
	}
	return idx
}

func TestFindStrictMatchesByVIN(t *testing.T) {
	client := &models.Client{ID: 1, Name: "Client"}
	deal := &models.Deal{
		ID:          10,
		ClientID:    client.ID,
		Description: "Оформление полиса",
		StartDate:   models.Date(2024, time.January, 1),
		Client:      client,
	}
	deal.Policies = []*models.Policy{{
		ID:           100,
		ClientID:     client.ID,
		DealID:       &deal.ID,
		PolicyNumber: "VIN-001",
		StartDate:    models.DatePtr(2024, time.January, 10),
		VehicleVIN:   "XW8-1234-5678",
		Client:       client,
	}}

	candidate := &models.Policy{
		ID:           200,
		ClientID:     client.ID,
		PolicyNumber: "NEW-100",
		StartDate:    models.DatePtr(2024, time.February, 1),
		VehicleVIN:   " xw8 1234 5678 ",
		Client:       client,
	}

	matches := FindStrictMatches(BuildPolicyProfile(candidate), indexForDeals(deal))

	if len(matches) != 1 {
		t.Fatalf("expected 1 strict match, got %d", len(matches))
	}
	match := matches[0]
	if match.DealID != deal.ID {
		t.Errorf("DealID = %d, expected %d", match.DealID, deal.ID)
	}
	if match.Score != 1.0 {
		t.Errorf("Score = %f, expected 1.0", match.Score)
	}
	if !match.IsStrict {
		t.Error("expected IsStrict to be true")
	}
	expected := "VIN совпадает с полисом №VIN-001"
	if len(match.Reasons) != 1 || match.Reasons[0] != expected {
		t.Errorf("Reasons = %v, expected [%q]", match.Reasons, expected)
	}
}

func TestFindStrictMatchesByPolicyNumberEquality(t *testing.T) {
	client := &models.Client{ID: 1, Name: "Client"}
	deal := &models.Deal{
		ID:        11,
		ClientID:  client.ID,
		StartDate: models.Date(2024, time.January, 1),
		Client:    client,
	}
	deal.Policies = []*models.Policy{{
		ID:           101,
		ClientID:     client.ID,
		DealID:       &deal.ID,
		PolicyNumber: "AB-12345",
		Client:       client,
	}}

	candidate := &models.Policy{
		ID:           201,
		PolicyNumber: "ab 12345",
	}

	matches := FindStrictMatches(BuildPolicyProfile(candidate), indexForDeals(deal))

	if len(matches) != 1 {
		t.Fatalf("expected 1 strict match, got %d", len(matches))
	}
	expected := "Policy number matches policy №AB-12345"
	if len(matches[0].Reasons) != 1 || matches[0].Reasons[0] != expected {
		t.Errorf("Reasons = %v, expected [%q]", matches[0].Reasons, expected)
	}
}

func TestFindStrictMatchesByPolicyNumberInDescription(t *testing.T) {
	client := &models.Client{ID: 1, Name: "Client"}
	deal := &models.Deal{
		ID:          12,
		ClientID:    client.ID,
		Description: "Полис AB-12345 находится в работе",
		StartDate:   models.Date(2024, time.January, 1),
		Client:      client,
	}
	deal.Policies = []*models.Policy{{
		ID:           102,
		ClientID:     client.ID,
		DealID:       &deal.ID,
		PolicyNumber: "EXIST-001",
		Client:       client,
	}}

	candidate := &models.Policy{
		ID:           202,
		PolicyNumber: "AB 12345",
	}

	matches := FindStrictMatches(BuildPolicyProfile(candidate), indexForDeals(deal))

	if len(matches) != 1 {
		t.Fatalf("expected 1 strict match, got %d", len(matches))
	}
	expected := "Policy number AB 12345 found in the deal description"
	if len(matches[0].Reasons) != 1 || matches[0].Reasons[0] != expected {
		t.Errorf("Reasons = %v, expected [%q]", matches[0].Reasons, expected)
	}
}

func TestFindStrictMatchesByPolicyNumberInCalculations(t *testing.T) {
	client := &models.Client{ID: 1, Name: "Client"}
	deal := &models.Deal{
		ID:           13,
		ClientID:     client.ID,
		Description:  "Обычная сделка",
		Calculations: "[01.02.2024 10:00]\nРасчёт по полису CD-67890 готов",
		StartDate:    models.Date(2024, time.January, 1),
		Client:       client,
	}

	candidate := &models.Policy{
		ID:           203,
		PolicyNumber: "CD 67890",
	}

	matches := FindStrictMatches(BuildPolicyProfile(candidate), indexForDeals(deal))

	if len(matches) != 1 {
		t.Fatalf("expected 1 strict match, got %d", len(matches))
	}
	expected := "Policy number CD 67890 found in the deal calculations"
	if len(matches[0].Reasons) != 1 || matches[0].Reasons[0] != expected {
		t.Errorf("Reasons = %v, expected [%q]", matches[0].Reasons, expected)
	}
}

func TestFindStrictMatchesCalculationsIgnoreArchivedEntries(t *testing.T) {
	client := &models.Client{ID: 1, Name: "Client"}
	deal := &models.Deal{
		ID:       14,
		ClientID: client.ID,
		Calculations: "[01.02.2024 10:00]\nАктуальная запись\n\n===ARCHIVE===\n\n" +
			"[01.01.2024 09:00]\nСтарый расчёт по полису EF-11111",
		StartDate: models.Date(2024, time.January, 1),
		Client:    client,
	}

	candidate := &models.Policy{
		ID:           204,
		PolicyNumber: "EF 11111",
	}

	matches := FindStrictMatches(BuildPolicyProfile(candidate), indexForDeals(deal))

	if len(matches) != 0 {
		t.Fatalf("archived calculations must not match, got %d matches", len(matches))
	}
}

func TestFindStrictMatchesByDriveFolder(t *testing.T) {
	client := &models.Client{ID: 1, Name: "Client"}
	deal := &models.Deal{
		ID:              15,
		ClientID:        client.ID,
		Description:     "Полис без номера",
		StartDate:       models.Date(2024, time.January, 1),
		DriveFolderPath: "clients/deal",
		Client:          client,
	}

	candidate := &models.Policy{
		ID:              205,
		PolicyNumber:    "POL-NEW",
		DriveFolderLink: "clients/deal/policies/new",
	}

	matches := FindStrictMatches(BuildPolicyProfile(candidate), indexForDeals(deal))

	if len(matches) != 1 {
		t.Fatalf("expected 1 strict match, got %d", len(matches))
	}
	expected := "Policy drive link is inside the deal folder"
	if len(matches[0].Reasons) != 1 || matches[0].Reasons[0] != expected {
		t.Errorf("Reasons = %v, expected [%q]", matches[0].Reasons, expected)
	}
}

func TestFindStrictMatchesNoHits(t *testing.T) {
	client := &models.Client{ID: 1, Name: "Client"}
	deal := &models.Deal{
		ID:          16,
		ClientID:    client.ID,
		Description: "Несвязанная сделка",
		StartDate:   models.Date(2024, time.January, 1),
		Client:      client,
	}

	candidate := &models.Policy{
		ID:           206,
		PolicyNumber: "UNIQ-42",
	}

	matches := FindStrictMatches(BuildPolicyProfile(candidate), indexForDeals(deal))
	if len(matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(matches))
	}
}
