// Package models defines the CRM entities the matching engine reads:
// clients, deals, insurance policies, payments and expenses.
//
// The matching engine never mutates these records. Relation fields
// (Deal.Client, Deal.Policies, Policy.Client, Policy.Expenses) are
// populated by the store layer when records are loaded eagerly; a nil
// relation means the record was loaded without it.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DealStatus represents the lifecycle state of a deal.
type DealStatus string

const (
	DealStatusNew        DealStatus = "NEW"
	DealStatusInProgress DealStatus = "IN_PROGRESS"
	DealStatusSuccess    DealStatus = "SUCCESS"
	DealStatusFailed     DealStatus = "FAILED"
)

// String returns the string representation of DealStatus
func (s DealStatus) String() string {
	return string(s)
}

// IsValid checks if the deal status is a known value
func (s DealStatus) IsValid() bool {
	switch s {
	case DealStatusNew, DealStatusInProgress, DealStatusSuccess, DealStatusFailed:
		return true
	}
	return false
}

// Client represents a CRM client record
type Client struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
	IsCompany       bool   `json:"is_company"`
	Note            string `json:"note,omitempty"`
	DriveFolderPath string `json:"drive_folder_path,omitempty"`
	DriveFolderLink string `json:"drive_folder_link,omitempty"`
	IsDeleted       bool   `json:"is_deleted"`
}

// String returns a string representation of the Client
func (c *Client) String() string {
	return fmt.Sprintf("Client{ID: %d, Name: %s}", c.ID, c.Name)
}

// Validate performs basic validation on the Client
func (c *Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("client name cannot be empty")
	}
	return nil
}

// Deal represents a sales record tied to one client, potentially
// covering multiple policies.
type Deal struct {
	ID              int64      `json:"id"`
	ClientID        int64      `json:"client_id"`
	Status          DealStatus `json:"status"`
	Description     string     `json:"description"`
	Calculations    string     `json:"calculations,omitempty"`
	IsClosed        bool       `json:"is_closed"`
	ClosedReason    string     `json:"closed_reason,omitempty"`
	DriveFolderPath string     `json:"drive_folder_path,omitempty"`
	DriveFolderLink string     `json:"drive_folder_link,omitempty"`
	StartDate       time.Time  `json:"start_date"`
	ReminderDate    *time.Time `json:"reminder_date,omitempty"`
	IsDeleted       bool       `json:"is_deleted"`

	// Relations populated by the store layer.
	Client   *Client   `json:"-"`
	Policies []*Policy `json:"-"`
}

// String returns a string representation of the Deal
func (d *Deal) String() string {
	client := ""
	if d.Client != nil {
		client = d.Client.Name
	}
	return fmt.Sprintf("Deal{ID: %d, Client: %s, Description: %s}", d.ID, client, d.Description)
}

// Validate performs basic validation on the Deal
func (d *Deal) Validate() error {
	if d.ClientID == 0 {
		return fmt.Errorf("deal must reference a client")
	}
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("deal description cannot be empty")
	}
	if d.Status != "" && !d.Status.IsValid() {
		return fmt.Errorf("invalid deal status: %s", d.Status)
	}
	return nil
}

// Policy represents an insurance contract record tied to a client and
// optionally a deal.
type Policy struct {
	ID               int64      `json:"id"`
	ClientID         int64      `json:"client_id"`
	DealID           *int64     `json:"deal_id,omitempty"`
	PolicyNumber     string     `json:"policy_number"`
	InsuranceType    string     `json:"insurance_type,omitempty"`
	InsuranceCompany string     `json:"insurance_company,omitempty"`
	Contractor       string     `json:"contractor,omitempty"`
	SalesChannel     string     `json:"sales_channel,omitempty"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	VehicleBrand     string     `json:"vehicle_brand,omitempty"`
	VehicleModel     string     `json:"vehicle_model,omitempty"`
	VehicleVIN       string     `json:"vehicle_vin,omitempty"`
	Note             string     `json:"note,omitempty"`
	DriveFolderPath  string     `json:"drive_folder_path,omitempty"`
	DriveFolderLink  string     `json:"drive_folder_link,omitempty"`
	RenewedTo        string     `json:"renewed_to,omitempty"`
	IsDeleted        bool       `json:"is_deleted"`

	// Relations populated by the store layer.
	Client   *Client    `json:"-"`
	Expenses []*Expense `json:"-"`
}

// String returns a string representation of the Policy
func (p *Policy) String() string {
	client := ""
	if p.Client != nil {
		client = p.Client.Name
	}
	return fmt.Sprintf("Policy{ID: %d, Number: %s, Client: %s}", p.ID, p.PolicyNumber, client)
}

// Validate performs basic validation on the Policy
func (p *Policy) Validate() error {
	if strings.TrimSpace(p.PolicyNumber) == "" {
		return fmt.Errorf("policy number cannot be empty")
	}
	if p.ClientID == 0 && p.Client == nil {
		return fmt.Errorf("policy must reference a client")
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return fmt.Errorf("policy end date %s is before start date %s",
			p.EndDate.Format("2006-01-02"), p.StartDate.Format("2006-01-02"))
	}
	return nil
}

// HasActiveExpense reports whether any loaded expense of the policy is
// not soft-deleted.
func (p *Policy) HasActiveExpense() bool {
	for _, e := range p.Expenses {
		if !e.IsDeleted {
			return true
		}
	}
	return false
}

// Payment represents a payment scheduled or received under a policy
type Payment struct {
	ID                int64           `json:"id"`
	PolicyID          int64           `json:"policy_id"`
	Amount            decimal.Decimal `json:"amount"`
	PaymentDate       time.Time       `json:"payment_date"`
	ActualPaymentDate *time.Time      `json:"actual_payment_date,omitempty"`
	IsDeleted         bool            `json:"is_deleted"`
}

// Validate performs basic validation on the Payment
func (p *Payment) Validate() error {
	if p.PolicyID == 0 {
		return fmt.Errorf("payment must reference a policy")
	}
	if p.Amount.IsZero() {
		return fmt.Errorf("payment amount cannot be zero")
	}
	return nil
}

// Expense represents money paid out against a payment. The matching
// engine uses expenses to locate a contractor's historical expense
// trail on a deal.
type Expense struct {
	ID          int64           `json:"id"`
	PaymentID   int64           `json:"payment_id"`
	PolicyID    int64           `json:"policy_id"`
	Amount      decimal.Decimal `json:"amount"`
	ExpenseType string          `json:"expense_type"`
	ExpenseDate *time.Time      `json:"expense_date,omitempty"`
	Note        string          `json:"note,omitempty"`
	IsDeleted   bool            `json:"is_deleted"`
}

// Validate performs basic validation on the Expense
func (e *Expense) Validate() error {
	if e.PolicyID == 0 {
		return fmt.Errorf("expense must reference a policy")
	}
	if strings.TrimSpace(e.ExpenseType) == "" {
		return fmt.Errorf("expense type cannot be empty")
	}
	return nil
}

// policyJSON mirrors Policy for custom date handling during import.
type policyJSON struct {
	ID               int64   `json:"id"`
	ClientID         int64   `json:"client_id"`
	DealID           *int64  `json:"deal_id"`
	PolicyNumber     string  `json:"policy_number"`
	InsuranceType    string  `json:"insurance_type"`
	InsuranceCompany string  `json:"insurance_company"`
	Contractor       string  `json:"contractor"`
	SalesChannel     string  `json:"sales_channel"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	VehicleBrand     string  `json:"vehicle_brand"`
	VehicleModel     string  `json:"vehicle_model"`
	VehicleVIN       string  `json:"vehicle_vin"`
	Note             string  `json:"note"`
	DriveFolderPath  string  `json:"drive_folder_path"`
	DriveFolderLink  string  `json:"drive_folder_link"`
	RenewedTo        string  `json:"renewed_to"`
	IsDeleted        bool    `json:"is_deleted"`
	Client           *Client `json:"client"`
}

// UnmarshalJSON implements custom JSON unmarshaling for Policy,
// accepting date-only strings and an optional embedded client record.
func (p *Policy) UnmarshalJSON(data []byte) error {
	var aux policyJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	p.ID = aux.ID
	p.ClientID = aux.ClientID
	p.DealID = aux.DealID
	p.PolicyNumber = aux.PolicyNumber
	p.InsuranceType = aux.InsuranceType
	p.InsuranceCompany = aux.InsuranceCompany
	p.Contractor = aux.Contractor
	p.SalesChannel = aux.SalesChannel
	p.VehicleBrand = aux.VehicleBrand
	p.VehicleModel = aux.VehicleModel
	p.VehicleVIN = aux.VehicleVIN
	p.Note = aux.Note
	p.DriveFolderPath = aux.DriveFolderPath
	p.DriveFolderLink = aux.DriveFolderLink
	p.RenewedTo = aux.RenewedTo
	p.IsDeleted = aux.IsDeleted
	p.Client = aux.Client
	if p.Client != nil && p.ClientID == 0 {
		p.ClientID = p.Client.ID
	}

	var err error
	if p.StartDate, err = parseOptionalDate(aux.StartDate); err != nil {
		return fmt.Errorf("invalid start_date: %w", err)
	}
	if p.EndDate, err = parseOptionalDate(aux.EndDate); err != nil {
		return fmt.Errorf("invalid end_date: %w", err)
	}

	return nil
}

// parseOptionalDate parses a date string using common formats; an empty
// string yields nil.
func parseOptionalDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	formats := []string{
		"2006-01-02",
		"02.01.2006",
		time.RFC3339,
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return &t, nil
		} else {
			lastErr = err
		}
	}

	return nil, lastErr
}

// Date builds a UTC midnight time.Time for the given calendar day.
// Matching only ever compares whole days.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DatePtr is the pointer convenience form of Date.
func DatePtr(year int, month time.Month, day int) *time.Time {
	t := Date(year, month, day)
	return &t
}
