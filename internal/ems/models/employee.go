// Package models defines the core domain models for employees and items.
// The same structs are mapped by GORM, so storage constraints live in the
// struct tags next to the fields they protect.
package models

import (
	"time"

	e "github.com/gartstein/ems/internal/ems/errors"
	"github.com/gartstein/ems/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Employee defines the persisted employee record.
type Employee struct {
	// ID is assigned at creation and never changes.
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	// FirstName is stored trimmed.
	FirstName string `gorm:"size:100;not null" json:"firstName"`
	// Surname is stored trimmed.
	Surname string `gorm:"size:100;not null" json:"surname"`
	// Email is stored lower-cased and is unique across employees.
	Email string `gorm:"size:255;not null;uniqueIndex:idx_employees_email" json:"email"`
	// EmployeeNumber is stored upper-cased and is unique across employees.
	EmployeeNumber string `gorm:"size:50;not null;uniqueIndex:idx_employees_employee_number" json:"employeeNumber"`
	BirthDate      *time.Time          `json:"birthDate"`
	Salary         decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"salary"`
	Role           string              `gorm:"size:100;not null;index" json:"role"`
	// ManagerID references another employee. Dangling references are
	// allowed; the hierarchy treats them as orphans.
	ManagerID *uuid.UUID `gorm:"type:uuid;index;check:manager_id IS NULL OR manager_id <> id" json:"manager"`
	IsActive  bool       `gorm:"not null" json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// BeforeSave rejects records that name themselves as manager when the
// struct itself is written (Create / Save).
func (emp *Employee) BeforeSave(_ *gorm.DB) error {
	if emp.ManagerID != nil && emp.ID != uuid.Nil && *emp.ManagerID == emp.ID {
		return e.ErrSelfManager
	}
	return nil
}

// EmployeeInput is the raw payload for creating an employee.
type EmployeeInput struct {
	FirstName      string              `json:"firstName" validate:"required,max=100"`
	Surname        string              `json:"surname" validate:"required,max=100"`
	Email          string              `json:"email" validate:"required,email,max=255"`
	EmployeeNumber string              `json:"employeeNumber" validate:"required,max=50"`
	BirthDate      *time.Time          `json:"birthDate"`
	Salary         decimal.NullDecimal `json:"salary"`
	Role           string              `json:"role" validate:"required,max=100"`
	Manager        *uuid.UUID          `json:"manager"`
	IsActive       *bool               `json:"isActive"`
}

// EmployeeUpdate carries a partial update. Nil pointers and unset
// Nullable fields are left untouched.
type EmployeeUpdate struct {
	ID             uuid.UUID
	FirstName      *string
	Surname        *string
	Email          *string
	EmployeeNumber *string
	Role           *string
	BirthDate      utils.Nullable[time.Time]
	Salary         utils.Nullable[decimal.Decimal]
	Manager        utils.Nullable[uuid.UUID]
	IsActive       *bool
}

// Values returns the column assignments for the fields present in the
// update, keyed by database column name.
func (u *EmployeeUpdate) Values() map[string]interface{} {
	values := map[string]interface{}{}
	if u.FirstName != nil {
		values["first_name"] = *u.FirstName
	}
	if u.Surname != nil {
		values["surname"] = *u.Surname
	}
	if u.Email != nil {
		values["email"] = *u.Email
	}
	if u.EmployeeNumber != nil {
		values["employee_number"] = *u.EmployeeNumber
	}
	if u.Role != nil {
		values["role"] = *u.Role
	}
	if u.BirthDate.Set {
		values["birth_date"] = u.BirthDate.Value
	}
	if u.Salary.Set {
		if u.Salary.Value == nil {
			values["salary"] = decimal.NullDecimal{}
		} else {
			values["salary"] = decimal.NewNullDecimal(*u.Salary.Value)
		}
	}
	if u.Manager.Set {
		values["manager_id"] = u.Manager.Value
	}
	if u.IsActive != nil {
		values["is_active"] = *u.IsActive
	}
	return values
}

// Empty reports whether the update carries no fields.
func (u *EmployeeUpdate) Empty() bool {
	return len(u.Values()) == 0
}

// SuggestedRoles is the role list offered by the client forms. Roles stay
// free text; the list is advisory.
var SuggestedRoles = []string{
	"CEO",
	"CTO",
	"VP Engineering",
	"Engineering Manager",
	"Senior Software Engineer",
	"Software Engineer",
	"Junior Software Engineer",
	"Product Manager",
	"Senior Product Manager",
	"Designer",
	"Senior Designer",
	"Marketing Manager",
	"Sales Manager",
	"HR Manager",
	"Finance Manager",
	"Intern",
}
