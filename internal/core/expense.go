package core

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCategory is the bucket used for records without a category.
const DefaultCategory = "Misc"

type (
	// Expense is one user-entered spending entry. ID and Date are assigned by
	// the store on creation and never change afterwards.
	Expense struct {
		ID          string    `json:"id"`
		Description string    `json:"description"`
		Amount      Amount    `json:"amount"`
		Category    string    `json:"category"`
		Date        time.Time `json:"date"`
	}

	// Draft carries the client supplied fields of a new expense.
	Draft struct {
		Description string
		Amount      Amount
		Category    string
	}

	// Optional is a value plus an explicit presence marker.
	Optional[T any] struct {
		Value T
		Set   bool
	}

	// Patch lists the fields an update overwrites. Fields with Set == false
	// keep their stored value.
	Patch struct {
		Description Optional[string]
		Amount      Optional[Amount]
		Category    Optional[string]
	}
)

// dateLayouts are the ISO-8601 forms accepted for a stored date. Forms
// without an offset are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON decodes a stored record. The date may be any accepted
// ISO-8601 form or a millisecond timestamp; anything else decodes as the
// zero time so one odd row does not invalidate the whole document.
func (e *Expense) UnmarshalJSON(data []byte) error {
	type plain Expense
	aux := struct {
		*plain
		Date json.RawMessage `json:"date"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.Date = parseDate(aux.Date)
	return nil
}

func parseDate(raw json.RawMessage) time.Time {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var ms int64
		if err := json.Unmarshal(raw, &ms); err == nil {
			return time.UnixMilli(ms).UTC()
		}
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// NewID returns a fresh random expense identifier.
func NewID() string {
	return uuid.NewString()
}

// Now returns the current creation timestamp: UTC, millisecond precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func validateDescription(s string) error {
	if strings.TrimSpace(s) == "" {
		return Invalid("description", ErrEmptyDescription)
	}
	return nil
}

func validateCategory(s string) error {
	if strings.TrimSpace(s) == "" {
		return Invalid("category", ErrEmptyCategory)
	}
	return nil
}

func (d Draft) Validate() error {
	if err := validateDescription(d.Description); err != nil {
		return err
	}
	if err := d.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	return validateCategory(d.Category)
}

// NewExpense builds a stored record from a validated draft.
func NewExpense(id string, d Draft, created time.Time) (Expense, error) {
	if err := d.Validate(); err != nil {
		return Expense{}, err
	}
	return Expense{
		ID:          id,
		Description: d.Description,
		Amount:      d.Amount,
		Category:    d.Category,
		Date:        created.UTC(),
	}, nil
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return !p.Description.Set && !p.Amount.Set && !p.Category.Set
}

func (p Patch) Validate() error {
	if p.Description.Set {
		if err := validateDescription(p.Description.Value); err != nil {
			return err
		}
	}
	if p.Amount.Set {
		if err := p.Amount.Value.Validate(); err != nil {
			return Invalid("amount", err)
		}
	}
	if p.Category.Set {
		if err := validateCategory(p.Category.Value); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns a copy of e with the present patch fields overwritten.
// ID and Date are never touched.
func (e Expense) Apply(p Patch) (Expense, error) {
	if err := p.Validate(); err != nil {
		return e, err
	}
	if p.Description.Set {
		e.Description = p.Description.Value
	}
	if p.Amount.Set {
		e.Amount = p.Amount.Value
	}
	if p.Category.Set {
		e.Category = p.Category.Value
	}
	return e, nil
}

// IndexOf returns the position of the record with id, or -1.
func IndexOf(items []Expense, id string) int {
	return slices.IndexFunc(items, func(e Expense) bool { return e.ID == id })
}

// UniqueID draws identifiers from gen until one is not used in items.
func UniqueID(items []Expense, gen func() string) string {
	for {
		id := gen()
		if IndexOf(items, id) < 0 {
			return id
		}
	}
}

// SortNewestFirst orders items by Date descending. Records with equal
// dates keep their relative order.
func SortNewestFirst(items []Expense) {
	slices.SortStableFunc(items, func(a, b Expense) int {
		return b.Date.Compare(a.Date)
	})
}
