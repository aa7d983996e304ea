/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY FIELDS:
  All monetary values cross the wire as strings ("172.55"), never floats.
  decimal.Decimal marshals to a JSON number by default, which clients
  parse into float64 and corrupt; StringFixed(2) keeps the cents exact.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/lending-engine/loan"
)

// =============================================================================
// ACCOUNT TYPES
// =============================================================================

// AccountDTO represents a loan account in API responses.
type AccountDTO struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	PlanID *string `json:"plan_id,omitempty"`
	State  string  `json:"state"`

	Principal         string  `json:"principal"`
	DownPayment       string  `json:"down_payment"`
	AnnualRatePercent string  `json:"annual_rate_percent"`
	TenureMonths      int     `json:"tenure_months"`
	ProcessingFee     string  `json:"processing_fee"`
	LateFeePercent    *string `json:"late_fee_percent,omitempty"`

	MonthlyInstallment string `json:"monthly_installment"`
	TotalAmountDue     string `json:"total_amount_due"`
	TotalPaid          string `json:"total_paid"`
	OutstandingBalance string `json:"outstanding_balance"`
	LateFeesAccrued    string `json:"late_fees_accrued"`
	DaysOverdue        int    `json:"days_overdue"`

	LoanStartDate  *string `json:"loan_start_date,omitempty"`
	NextPaymentDue *string `json:"next_payment_due,omitempty"`
	LastPaymentDate *string `json:"last_payment_date,omitempty"`

	IsLocked         bool   `json:"is_locked"`
	LockMessage      string `json:"lock_message,omitempty"`
	OperatorUnlocked bool   `json:"operator_unlocked"`

	AutoLockEnabled   bool `json:"auto_lock_enabled"`
	AutoLockGraceDays int  `json:"auto_lock_grace_days"`
	RemindersEnabled  bool `json:"reminders_enabled"`

	Version   int64  `json:"version"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// CreateAccountRequest registers a client before any loan is configured.
type CreateAccountRequest struct {
	Name              string `json:"name"`
	AutoLockEnabled   *bool  `json:"auto_lock_enabled,omitempty"`
	AutoLockGraceDays *int   `json:"auto_lock_grace_days,omitempty"`
	RemindersEnabled  *bool  `json:"reminders_enabled,omitempty"`
}

// SetupLoanRequest carries the accepted terms for an account.
type SetupLoanRequest struct {
	Principal         string  `json:"principal"`
	DownPayment       string  `json:"down_payment"`
	AnnualRatePercent string  `json:"annual_rate_percent"`
	TenureMonths      int     `json:"tenure_months"`
	DueDate           string  `json:"due_date,omitempty"`
	PlanID            *string `json:"plan_id,omitempty"`
	ProcessingFeePct  *string `json:"processing_fee_percent,omitempty"`
	LateFeePercent    *string `json:"late_fee_percent,omitempty"`
}

// LockSettingsRequest updates the lock policy knobs on an account.
type LockSettingsRequest struct {
	AutoLockEnabled   *bool `json:"auto_lock_enabled,omitempty"`
	AutoLockGraceDays *int  `json:"auto_lock_grace_days,omitempty"`
	RemindersEnabled  *bool `json:"reminders_enabled,omitempty"`
}

// OperatorUnlockRequest records an explicit lock override.
type OperatorUnlockRequest struct {
	Unlocked bool `json:"unlocked"`
}

// =============================================================================
// PAYMENT TYPES
// =============================================================================

// RecordPaymentRequest is the request to record a repayment.
type RecordPaymentRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date,omitempty"`
	Method string `json:"method,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// PaymentDTO represents a ledger entry in API responses.
type PaymentDTO struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Method    string `json:"method"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// RecordPaymentResponse pairs the ledger entry with the updated account.
type RecordPaymentResponse struct {
	Payment PaymentDTO `json:"payment"`
	Account AccountDTO `json:"account"`
}

// =============================================================================
// CALCULATOR TYPES
// =============================================================================

// QuoteRequest carries calculator inputs (no account involved).
type QuoteRequest struct {
	Principal         string `json:"principal"`
	AnnualRatePercent string `json:"annual_rate_percent"`
	TenureMonths      int    `json:"tenure_months"`
	Method            string `json:"method,omitempty"`
}

// QuoteDTO is one calculator output.
type QuoteDTO struct {
	Method             string `json:"method"`
	MethodName         string `json:"method_name"`
	MonthlyInstallment string `json:"monthly_installment"`
	TotalInterest      string `json:"total_interest"`
	TotalAmount        string `json:"total_amount"`
}

// ComparisonDTO shows all three methods side by side.
type ComparisonDTO struct {
	Simple   QuoteDTO `json:"simple_interest"`
	Reducing QuoteDTO `json:"reducing_balance"`
	Flat     QuoteDTO `json:"flat_rate"`
	Cheapest string   `json:"cheapest"`
	Savings  string   `json:"savings"`
}

// ScheduleEntryDTO is one amortization row.
type ScheduleEntryDTO struct {
	Month       int    `json:"month"`
	DueDate     string `json:"due_date,omitempty"`
	Installment string `json:"installment"`
	Principal   string `json:"principal"`
	Interest    string `json:"interest"`
	Balance     string `json:"balance"`
}

// ScheduleDTO wraps the quote with its month-by-month table.
type ScheduleDTO struct {
	Quote   QuoteDTO           `json:"quote"`
	Entries []ScheduleEntryDTO `json:"entries"`
}

// =============================================================================
// PLAN TYPES
// =============================================================================

type PlanDTO struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	InterestRate         string `json:"interest_rate"`
	MinTenureMonths      int    `json:"min_tenure_months"`
	MaxTenureMonths      int    `json:"max_tenure_months"`
	ProcessingFeePercent string `json:"processing_fee_percent"`
	LateFeePercent       string `json:"late_fee_percent"`
	Description          string `json:"description,omitempty"`
	Active               bool   `json:"active"`
	CreatedAt            string `json:"created_at,omitempty"`
}

type PlanRequest struct {
	Name                 string `json:"name"`
	InterestRate         string `json:"interest_rate"`
	MinTenureMonths      int    `json:"min_tenure_months"`
	MaxTenureMonths      int    `json:"max_tenure_months"`
	ProcessingFeePercent string `json:"processing_fee_percent"`
	LateFeePercent       string `json:"late_fee_percent"`
	Description          string `json:"description,omitempty"`
	Active               *bool  `json:"active,omitempty"`
}

// =============================================================================
// REMINDER / SWEEP TYPES
// =============================================================================

type ReminderDTO struct {
	ID            string  `json:"id"`
	AccountID     string  `json:"account_id"`
	Type          string  `json:"type"`
	ScheduledDate string  `json:"scheduled_date"`
	Sent          bool    `json:"sent"`
	SentAt        *string `json:"sent_at,omitempty"`
	Message       string  `json:"message"`
}

type SweepRunDTO struct {
	ID          string  `json:"id"`
	Sweep       string  `json:"sweep"`
	StartedAt   string  `json:"started_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
	Processed   int     `json:"processed"`
	Failed      int     `json:"failed"`
	Status      string  `json:"status"`
	Error       string  `json:"error,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAccountDTO(a loan.LoanAccount) AccountDTO {
	dto := AccountDTO{
		ID:                 string(a.ID),
		Name:               a.Name,
		State:              string(a.State),
		Principal:          a.Principal.StringFixed(2),
		DownPayment:        a.DownPayment.StringFixed(2),
		AnnualRatePercent:  a.AnnualRatePercent.String(),
		TenureMonths:       a.TenureMonths,
		ProcessingFee:      a.ProcessingFee.StringFixed(2),
		MonthlyInstallment: a.MonthlyInstallment.StringFixed(2),
		TotalAmountDue:     a.TotalAmountDue.StringFixed(2),
		TotalPaid:          a.TotalPaid.StringFixed(2),
		OutstandingBalance: a.OutstandingBalance.StringFixed(2),
		LateFeesAccrued:    a.LateFeesAccrued.StringFixed(2),
		DaysOverdue:        a.DaysOverdue,
		IsLocked:           a.IsLocked,
		LockMessage:        a.LockMessage,
		OperatorUnlocked:   a.OperatorUnlocked,
		AutoLockEnabled:    a.AutoLockEnabled,
		AutoLockGraceDays:  a.AutoLockGraceDays,
		RemindersEnabled:   a.RemindersEnabled,
		Version:            a.Version,
		CreatedAt:          a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          a.UpdatedAt.Format(time.RFC3339),
	}
	if a.PlanID != nil {
		s := string(*a.PlanID)
		dto.PlanID = &s
	}
	if a.LateFeePercent != nil {
		s := a.LateFeePercent.String()
		dto.LateFeePercent = &s
	}
	dto.LoanStartDate = formatDatePtr(a.LoanStartDate)
	dto.NextPaymentDue = formatDatePtr(a.NextPaymentDue)
	dto.LastPaymentDate = formatDatePtr(a.LastPaymentDate)
	return dto
}

func toPaymentDTO(p loan.Payment) PaymentDTO {
	return PaymentDTO{
		ID:        string(p.ID),
		AccountID: string(p.AccountID),
		Amount:    p.Amount.StringFixed(2),
		Date:      p.Date.Format(time.RFC3339),
		Method:    p.Method,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func toQuoteDTO(q loan.Quote) QuoteDTO {
	return QuoteDTO{
		Method:             string(q.Method),
		MethodName:         q.Method.DisplayName(),
		MonthlyInstallment: q.MonthlyInstallment.StringFixed(2),
		TotalInterest:      q.TotalInterest.StringFixed(2),
		TotalAmount:        q.TotalAmount.StringFixed(2),
	}
}

func toScheduleDTO(s loan.Schedule) ScheduleDTO {
	dto := ScheduleDTO{
		Quote:   toQuoteDTO(s.Quote),
		Entries: make([]ScheduleEntryDTO, len(s.Entries)),
	}
	for i, e := range s.Entries {
		row := ScheduleEntryDTO{
			Month:       e.Month,
			Installment: e.Installment.StringFixed(2),
			Principal:   e.Principal.StringFixed(2),
			Interest:    e.Interest.StringFixed(2),
			Balance:     e.Balance.StringFixed(2),
		}
		if !e.DueDate.IsZero() {
			row.DueDate = e.DueDate.Format("2006-01-02")
		}
		dto.Entries[i] = row
	}
	return dto
}

func toPlanDTO(p loan.LoanPlan) PlanDTO {
	return PlanDTO{
		ID:                   string(p.ID),
		Name:                 p.Name,
		InterestRate:         p.InterestRate.String(),
		MinTenureMonths:      p.MinTenureMonths,
		MaxTenureMonths:      p.MaxTenureMonths,
		ProcessingFeePercent: p.ProcessingFeePercent.String(),
		LateFeePercent:       p.LateFeePercent.String(),
		Description:          p.Description,
		Active:               p.Active,
		CreatedAt:            p.CreatedAt.Format(time.RFC3339),
	}
}

func toReminderDTO(r loan.Reminder) ReminderDTO {
	dto := ReminderDTO{
		ID:            string(r.ID),
		AccountID:     string(r.AccountID),
		Type:          string(r.Type),
		ScheduledDate: r.ScheduledDate.Format(time.RFC3339),
		Sent:          r.Sent,
		Message:       r.Message,
	}
	if r.SentAt != nil {
		s := r.SentAt.Format(time.RFC3339)
		dto.SentAt = &s
	}
	return dto
}

func toSweepRunDTO(run loan.SweepRun) SweepRunDTO {
	dto := SweepRunDTO{
		ID:        run.ID,
		Sweep:     run.Sweep,
		StartedAt: run.StartedAt.Format(time.RFC3339),
		Processed: run.Processed,
		Failed:    run.Failed,
		Status:    run.Status,
		Error:     run.Error,
	}
	if run.CompletedAt != nil {
		s := run.CompletedAt.Format(time.RFC3339)
		dto.CompletedAt = &s
	}
	return dto
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
