package shift

import (
	"time"

	"github.com/google/uuid"
)

// DefaultRegisterID names the single physical register when none is configured.
const DefaultRegisterID = "main"

// Status represents the lifecycle state of a shift.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Type represents the direction of a movement (income or expense).
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

func (t Type) IsValid() bool {
	return t == TypeIncome || t == TypeExpense
}

// PaymentMethod is how a movement was settled. Only cash reaches the drawer.
type PaymentMethod string

const (
	PaymentCash      PaymentMethod = "cash"
	PaymentCard      PaymentMethod = "card"
	PaymentTransfer  PaymentMethod = "transfer"
	PaymentWalletApp PaymentMethod = "wallet_app"
)

// PaymentMethods lists every method in display order.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentTransfer, PaymentWalletApp}

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentWalletApp:
		return true
	}

	return false
}

// Label returns the name shown on the register screens and reports.
func (p PaymentMethod) Label() string {
	switch p {
	case PaymentCash:
		return "Efectivo"
	case PaymentCard:
		return "Tarjeta"
	case PaymentTransfer:
		return "Transferencia"
	case PaymentWalletApp:
		return "Mercado Pago"
	}

	return string(p)
}

// Category tags what a movement was for.
type Category string

const (
	CategoryServices  Category = "servicios"
	CategoryProducts  Category = "productos"
	CategoryExpenses  Category = "gastos"
	CategorySalaries  Category = "sueldos"
	CategoryRent      Category = "alquiler"
	CategoryUtilities Category = "servicios_publicos"
	CategoryOther     Category = "otros"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryServices, CategoryProducts, CategoryExpenses, CategorySalaries,
	CategoryRent, CategoryUtilities, CategoryOther,
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryServices, CategoryProducts, CategoryExpenses, CategorySalaries,
		CategoryRent, CategoryUtilities, CategoryOther:
		return true
	}

	return false
}

func (c Category) Label() string {
	switch c {
	case CategoryServices:
		return "Servicios"
	case CategoryProducts:
		return "Productos"
	case CategoryExpenses:
		return "Gastos"
	case CategorySalaries:
		return "Sueldos"
	case CategoryRent:
		return "Alquiler"
	case CategoryUtilities:
		return "Servicios Públicos"
	case CategoryOther:
		return "Otros"
	}

	return string(c)
}

// Shift is one cash-drawer turn, bounded by open and close.
// Amounts are in cents. Close fields are nil until the shift is closed and
// never change afterwards.
type Shift struct {
	ID           uuid.UUID
	RegisterID   string
	Status       Status
	Operator     string
	OpenedAt     time.Time
	OpeningFloat int64

	ClosedAt      *time.Time
	ClosedBy      *string
	CountedCash   *int64
	ExpectedCash  *int64
	Variance      *int64
	CashIncome    *int64
	CashExpense   *int64
	MovementCount *int
	IncomeCount   *int
	ExpenseCount  *int
	Observations  string
}

func (s *Shift) IsOpen() bool {
	return s.Status == StatusOpen
}

// Movement is a single income or expense recorded against a shift.
type Movement struct {
	ID            uuid.UUID
	ShiftID       uuid.UUID
	Type          Type
	Amount        int64 // Amount in cents, always positive
	PaymentMethod PaymentMethod
	Category      Category
	Description   string
	RecordedBy    string
	OccurredAt    time.Time
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// VarianceKind classifies the counted-minus-expected difference at close.
type VarianceKind string

const (
	VarianceSurplus  VarianceKind = "sobrante"
	VarianceShortage VarianceKind = "faltante"
	VarianceExact    VarianceKind = "exacto"
)

func KindOfVariance(variance int64) VarianceKind {
	switch {
	case variance > 0:
		return VarianceSurplus
	case variance < 0:
		return VarianceShortage
	}

	return VarianceExact
}

// Label returns the capitalised name printed on close reports.
func (k VarianceKind) Label() string {
	switch k {
	case VarianceSurplus:
		return "Sobrante"
	case VarianceShortage:
		return "Faltante"
	case VarianceExact:
		return "Exacto"
	}

	return string(k)
}

// Detail is a shift together with the movements it owns.
type Detail struct {
	Shift     *Shift
	Movements []*Movement
}

// Editable reports whether the movements of this shift may still be corrected.
// It is derived from the shift status and never stored.
func (d Detail) Editable() bool {
	return d.Shift != nil && d.Shift.IsOpen()
}

// ClosedSummary is the frozen outcome of closing a shift.
type ClosedSummary struct {
	ShiftID       uuid.UUID
	RegisterID    string
	Operator      string
	ClosedBy      string
	OpenedAt      time.Time
	ClosedAt      time.Time
	OpeningFloat  int64
	CashIncome    int64
	CashExpense   int64
	ExpectedCash  int64
	CountedCash   int64
	Variance      int64
	MovementCount int
	IncomeCount   int
	ExpenseCount  int
	Observations  string
}

func (s ClosedSummary) VarianceKind() VarianceKind {
	return KindOfVariance(s.Variance)
}

func (s ClosedSummary) Duration() time.Duration {
	return s.ClosedAt.Sub(s.OpenedAt)
}

// SummaryOf builds the summary from a closed shift record. It returns false
// if the shift is still open.
func SummaryOf(s *Shift) (ClosedSummary, bool) {
	if s.IsOpen() || s.ClosedAt == nil || s.ExpectedCash == nil || s.CountedCash == nil || s.Variance == nil {
		return ClosedSummary{}, false
	}

	sum := ClosedSummary{
		ShiftID:      s.ID,
		RegisterID:   s.RegisterID,
		Operator:     s.Operator,
		ClosedBy:     s.Operator,
		OpenedAt:     s.OpenedAt,
		ClosedAt:     *s.ClosedAt,
		OpeningFloat: s.OpeningFloat,
		ExpectedCash: *s.ExpectedCash,
		CountedCash:  *s.CountedCash,
		Variance:     *s.Variance,
		Observations: s.Observations,
	}

	if s.ClosedBy != nil && *s.ClosedBy != "" {
		sum.ClosedBy = *s.ClosedBy
	}

	if s.CashIncome != nil {
		sum.CashIncome = *s.CashIncome
	}

	if s.CashExpense != nil {
		sum.CashExpense = *s.CashExpense
	}

	if s.MovementCount != nil {
		sum.MovementCount = *s.MovementCount
	}

	if s.IncomeCount != nil {
		sum.IncomeCount = *s.IncomeCount
	}

	if s.ExpenseCount != nil {
		sum.ExpenseCount = *s.ExpenseCount
	}

	return sum, true
}
