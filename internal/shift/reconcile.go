package shift

// ExpectedCash returns the cash that should be in the drawer: the opening
// float plus cash incomes minus cash expenses. Other payment methods never
// touch the drawer and are ignored.
func ExpectedCash(openingFloat int64, movements []*Movement) int64 {
	expected := openingFloat

	for _, m := range movements {
		if m.PaymentMethod != PaymentCash {
			continue
		}

		switch m.Type {
		case TypeIncome:
			expected += m.Amount
		case TypeExpense:
			expected -= m.Amount
		}
	}

	return expected
}

// Flow is the income and expense recorded under one key.
type Flow struct {
	Income  int64
	Expense int64
}

func (f Flow) Net() int64 {
	return f.Income - f.Expense
}

// Totals breaks a movement set down the way the close report shows it.
type Totals struct {
	Cash          Flow
	Other         Flow
	ByMethod      map[PaymentMethod]Flow
	ByCategory    map[Category]Flow
	MovementCount int
	IncomeCount   int
	ExpenseCount  int
}

// Summarize computes income/expense totals over all payment methods.
func Summarize(movements []*Movement) Totals {
	t := Totals{
		ByMethod:   make(map[PaymentMethod]Flow, len(PaymentMethods)),
		ByCategory: make(map[Category]Flow),
	}

	for _, m := range movements {
		method := t.ByMethod[m.PaymentMethod]
		category := t.ByCategory[m.Category]

		bucket := &t.Other
		if m.PaymentMethod == PaymentCash {
			bucket = &t.Cash
		}

		switch m.Type {
		case TypeIncome:
			bucket.Income += m.Amount
			method.Income += m.Amount
			category.Income += m.Amount
			t.IncomeCount++
		case TypeExpense:
			bucket.Expense += m.Amount
			method.Expense += m.Amount
			category.Expense += m.Amount
			t.ExpenseCount++
		}

		t.ByMethod[m.PaymentMethod] = method
		t.ByCategory[m.Category] = category
		t.MovementCount++
	}

	return t
}

// MovementFilter narrows a movement listing. Nil fields match everything.
type MovementFilter struct {
	Type          *Type
	PaymentMethod *PaymentMethod
	Category      *Category
}

func (f MovementFilter) Match(m *Movement) bool {
	if f.Type != nil && m.Type != *f.Type {
		return false
	}

	if f.PaymentMethod != nil && m.PaymentMethod != *f.PaymentMethod {
		return false
	}

	if f.Category != nil && m.Category != *f.Category {
		return false
	}

	return true
}

func filterMovements(movements []*Movement, f MovementFilter) []*Movement {
	out := make([]*Movement, 0, len(movements))

	for _, m := range movements {
		if f.Match(m) {
			out = append(out, m)
		}
	}

	return out
}
