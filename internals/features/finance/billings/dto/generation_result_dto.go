// file: internals/features/finance/billings/dto/generation_result_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

/* =========================================================
   GENERATION RESULT - kontrak output untuk UI/reporting
========================================================= */

type GenerationResult struct {
	Message   string             `json:"message"`
	Config    GenerationConfig   `json:"config"`
	Affected  []AffectedStudent  `json:"affected"`
	Completed []CompletedBilling `json:"completed"`
	Failed    []FailedUnit       `json:"failed"`
	Summary   GenerationSummary  `json:"summary"`
}

type GenerationConfig struct {
	Type        string          `json:"type"`
	Recurrence  string          `json:"recurrence"`
	Scope       string          `json:"scope"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	CycleName   string          `json:"cycleName"`
	CycleStatus string          `json:"cycleStatus"`
	EndDate     string          `json:"endDate"`
}

type AffectedStudent struct {
	PaymentID      uuid.UUID       `json:"paymentId"`
	StudentID      uuid.UUID       `json:"studentId"`
	StudentName    string          `json:"studentName"`
	Enrollment     string          `json:"enrollment"`
	Group          string          `json:"group"`
	Balance        decimal.Decimal `json:"balance"`
	BalanceUpdated bool            `json:"balanceUpdated"`
	DueDate        string          `json:"dueDate"`
	Amount         decimal.Decimal `json:"amount"`
	Tags           []string        `json:"tags,omitempty"`
	Refreshed      bool            `json:"refreshed,omitempty"`
}

type CompletedStudent struct {
	Name       string `json:"name"`
	LastName   string `json:"lastName"`
	Enrollment string `json:"enrollment"`
}

type CompletedAmount struct {
	Amount      decimal.Decimal `json:"amount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	PaidAt      *time.Time      `json:"paidAt"`
}

type CompletedBilling struct {
	Student CompletedStudent `json:"student"`
	Billing CompletedAmount  `json:"billing"`
}

type FailedUnit struct {
	StudentID   uuid.UUID `json:"studentId"`
	StudentName string    `json:"studentName"`
	DueDate     string    `json:"dueDate"`
	Error       string    `json:"error"`
}

type GenerationSummary struct {
	Students   int `json:"students"`
	Periods    int `json:"periods"`
	Created    int `json:"created"`
	Existing   int `json:"existing"`
	Refreshed  int `json:"refreshed"`
	Completed  int `json:"completed"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Delinquent int `json:"delinquent"`
}

/* =========================================================
   PREVIEW - dry run tanpa tulis ke DB
========================================================= */

type PreviewPeriod struct {
	Index      int             `json:"index"`
	Start      string          `json:"start"`
	End        string          `json:"end"`
	DueDate    string          `json:"dueDate"`
	Partial    bool            `json:"partial"`
	Base       decimal.Decimal `json:"base"`
	Amount     decimal.Decimal `json:"amount"`
	Tags       []string        `json:"tags,omitempty"`
	Delinquent bool            `json:"delinquent"`
}

type PreviewResult struct {
	Config   GenerationConfig `json:"config"`
	AsOf     string           `json:"asOf"`
	Students int              `json:"students"`
	Periods  []PreviewPeriod  `json:"periods"`
	// total kalau semua periode ditagihkan ke semua siswa
	ProjectedTotal decimal.Decimal `json:"projectedTotal"`
}

type StudentBalanceResponse struct {
	StudentID uuid.UUID       `json:"student_id"`
	Balance   decimal.Decimal `json:"balance"`
}
