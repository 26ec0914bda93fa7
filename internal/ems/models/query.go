package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	DefaultSort  = "-createdAt"
)

// ListQuery describes a paginated, searchable listing.
type ListQuery struct {
	Page  int
	Limit int
	Query string
	Sort  string
	Role  string
}

// Normalize clamps paging values into range and trims the search text.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit < 1 {
		q.Limit = 1
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	q.Query = strings.TrimSpace(q.Query)
	q.Role = strings.TrimSpace(q.Role)
	if q.Sort == "" {
		q.Sort = DefaultSort
	}
	return q
}

// Offset is the number of records skipped before the page starts.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Page is one page of a listing.
type Page[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// OrgEntry is the lightweight projection used to build the org chart.
type OrgEntry struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Surname        string     `json:"surname"`
	Email          string     `json:"email"`
	Role           string     `json:"role"`
	EmployeeNumber string     `json:"employeeNumber"`
	Manager        *uuid.UUID `json:"manager"`
	CreatedAt      time.Time  `json:"createdAt"`
	AvatarURL      string     `json:"avatarUrl"`
}

// OrgEntryFrom projects an employee. A self reference is dropped.
func OrgEntryFrom(emp *Employee) OrgEntry {
	entry := OrgEntry{
		ID:             emp.ID,
		Name:           emp.FirstName,
		Surname:        emp.Surname,
		Email:          emp.Email,
		Role:           emp.Role,
		EmployeeNumber: emp.EmployeeNumber,
		Manager:        emp.ManagerID,
		CreatedAt:      emp.CreatedAt,
		AvatarURL:      GravatarURL(emp.Email, 128),
	}
	if entry.Manager != nil && *entry.Manager == entry.ID {
		entry.Manager = nil
	}
	return entry
}

// GravatarURL returns the identicon avatar for an email address.
func GravatarURL(email string, size int) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=%d&d=identicon&r=pg", hex.EncodeToString(sum[:]), size)
}

// OrgFilter narrows the visible part of the org chart.
type OrgFilter struct {
	Query string
	Role  string
}

// Matches reports whether the entry is visible under the filter. Search is
// a case-insensitive substring match on name, surname and employee number.
func (f OrgFilter) Matches(entry OrgEntry) bool {
	if f.Role != "" && entry.Role != f.Role {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(entry.Name), q) ||
		strings.Contains(strings.ToLower(entry.Surname), q) ||
		strings.Contains(strings.ToLower(entry.EmployeeNumber), q)
}

// Empty reports whether the filter shows everything.
func (f OrgFilter) Empty() bool {
	return strings.TrimSpace(f.Query) == "" && f.Role == ""
}

// RoleCount is one bucket of the role distribution.
type RoleCount struct {
	Role  string `json:"role"`
	Count int64  `json:"count"`
}

// Stats summarizes the employee table for the dashboard.
type Stats struct {
	Total          int64           `json:"total"`
	Active         int64           `json:"active"`
	WithoutManager int64           `json:"withoutManager"`
	AverageSalary  decimal.Decimal `json:"averageSalary"`
	Roles          []RoleCount     `json:"roles"`
}
