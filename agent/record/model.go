package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusDisabled CustomerStatus = "disabled"
)

func (s CustomerStatus) Valid() bool {
	switch s {
	case CustomerStatusActive, CustomerStatusDisabled:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// TicketStatus is left open so later lifecycle states need no schema change.
// Tickets are always created as TicketStatusOpen.
type TicketStatus string

const TicketStatusOpen TicketStatus = "open"

type Customer struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID        int64          `bun:"id,pk,autoincrement" json:"id"`
	Name      string         `bun:"name,notnull" json:"name"`
	Email     string         `bun:"email" json:"email"`
	Phone     string         `bun:"phone" json:"phone"`
	Status    CustomerStatus `bun:"status,notnull" json:"status"`
	CreatedAt time.Time      `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time      `bun:"updated_at,notnull" json:"updated_at"`
}

type Ticket struct {
	bun.BaseModel `bun:"table:tickets,alias:t"`

	ID         int64        `bun:"id,pk,autoincrement" json:"id"`
	CustomerID int64        `bun:"customer_id,notnull" json:"customer_id"`
	Issue      string       `bun:"issue,notnull" json:"issue"`
	Priority   Priority     `bun:"priority,notnull" json:"priority"`
	Status     TicketStatus `bun:"status,notnull" json:"status"`
	CreatedAt  time.Time    `bun:"created_at,notnull" json:"created_at"`
}

// CustomerPatch carries the mutable customer fields. Nil fields are left untouched.
type CustomerPatch struct {
	Name   *string
	Email  *string
	Phone  *string
	Status *CustomerStatus
}

var patchableFields = []string{"name", "email", "phone", "status"}

func (p CustomerPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Status == nil
}

func (p CustomerPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: status %q is not one of active, disabled", ErrValidation, *p.Status)
	}
	return nil
}

// apply copies the set fields onto c and returns the touched column names.
func (p CustomerPatch) apply(c *Customer) []string {
	cols := make([]string, 0, len(patchableFields)+1)
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
		cols = append(cols, "name")
	}
	if p.Email != nil {
		c.Email = strings.TrimSpace(*p.Email)
		cols = append(cols, "email")
	}
	if p.Phone != nil {
		c.Phone = strings.TrimSpace(*p.Phone)
		cols = append(cols, "phone")
	}
	if p.Status != nil {
		c.Status = *p.Status
		cols = append(cols, "status")
	}
	return cols
}

// PatchFromMap builds a CustomerPatch from loosely typed input. Keys outside
// name, email, phone and status are rejected rather than ignored.
func PatchFromMap(data map[string]any) (CustomerPatch, error) {
	var patch CustomerPatch
	for key, raw := range data {
		value, ok := raw.(string)
		if !ok {
			return CustomerPatch{}, fmt.Errorf("%w: field %q must be a string", ErrValidation, key)
		}
		switch key {
		case "name":
			patch.Name = &value
		case "email":
			patch.Email = &value
		case "phone":
			patch.Phone = &value
		case "status":
			status := CustomerStatus(strings.TrimSpace(value))
			patch.Status = &status
		default:
			return CustomerPatch{}, fmt.Errorf(
				"%w: field %q cannot be updated, allowed fields: %s",
				ErrValidation, key, strings.Join(patchableFields, ", "),
			)
		}
	}
	return patch, patch.Validate()
}
