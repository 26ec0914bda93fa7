// Package controller implements the service layer for employees and
// items: input normalization, validation, uniqueness pre-checks,
// repository orchestration and lifecycle events.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	e "github.com/gartstein/ems/internal/ems/errors"
	"github.com/gartstein/ems/internal/ems/events"
	"github.com/gartstein/ems/internal/ems/hierarchy"
	"github.com/gartstein/ems/internal/ems/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(eventType events.EventType, employee *models.Employee)
}

// Validator checks tagged structs and single values.
type Validator interface {
	Validate(s any) error
	ValidateVar(field string, value any, tag string) error
}

// EmployeeRepository defines the storage interface for employees.
type EmployeeRepository interface {
	CreateEmployee(ctx context.Context, employee *models.Employee) error
	GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) error
	DeleteEmployee(ctx context.Context, id uuid.UUID) error
	EmployeeExistsByEmail(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	EmployeeExistsByNumber(ctx context.Context, number string, exclude uuid.UUID) (bool, error)
	ListEmployees(ctx context.Context, q models.ListQuery) ([]models.Employee, int64, error)
	ListOrgEmployees(ctx context.Context) ([]models.Employee, error)
	EmployeeStats(ctx context.Context) (*models.Stats, error)
}

// EmployeeService manages employees via repository operations and event
// production.
type EmployeeService struct {
	repo      EmployeeRepository
	producer  EventProducer
	validator Validator
	logger    *zap.Logger
}

func NewEmployeeService(repo EmployeeRepository, producer EventProducer, validator Validator, logger *zap.Logger) *EmployeeService {
	return &EmployeeService{
		repo:      repo,
		producer:  producer,
		validator: validator,
		logger:    logger.Named("employee_service"),
	}
}

func canonEmail(s string) string  { return strings.ToLower(strings.TrimSpace(s)) }
func canonNumber(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func selfManagerError() error {
	return e.Invalid("manager", "Employee cannot be their own manager.")
}

// CreateEmployee normalizes and validates input, pre-checks the unique
// fields and stores the new employee. A unique index violation during
// the insert surfaces as the same ConflictError as the pre-check.
func (s *EmployeeService) CreateEmployee(ctx context.Context, input *models.EmployeeInput) (*models.Employee, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.Surname = strings.TrimSpace(input.Surname)
	input.Email = canonEmail(input.Email)
	input.EmployeeNumber = canonNumber(input.EmployeeNumber)
	input.Role = strings.TrimSpace(input.Role)

	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}
	if input.Salary.Valid && input.Salary.Decimal.IsNegative() {
		return nil, e.Invalid("salary", "Salary must not be negative")
	}

	if err := s.ensureUnique(ctx, input.Email, input.EmployeeNumber, uuid.Nil); err != nil {
		return nil, err
	}

	employee := &models.Employee{
		ID:             uuid.New(),
		FirstName:      input.FirstName,
		Surname:        input.Surname,
		Email:          input.Email,
		EmployeeNumber: input.EmployeeNumber,
		BirthDate:      input.BirthDate,
		Salary:         input.Salary,
		Role:           input.Role,
		ManagerID:      input.Manager,
		IsActive:       true,
	}
	if input.IsActive != nil {
		employee.IsActive = *input.IsActive
	}

	if err := s.repo.CreateEmployee(ctx, employee); err != nil {
		return nil, s.storeError("failed to create employee", err)
	}

	s.logger.Info("employee created",
		zap.String("employee_id", employee.ID.String()),
		zap.String("employee_number", employee.EmployeeNumber),
	)
	go func() {
		s.producer.Produce(events.EmployeeCreated, employee)
	}()
	return employee, nil
}

// GetEmployee retrieves an employee by ID.
func (s *EmployeeService) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	employee, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return employee, nil
}

// UpdateEmployee applies a partial update and returns the stored record.
// Assigning the employee as its own manager is rejected before the store
// is touched.
func (s *EmployeeService) UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) (*models.Employee, error) {
	if update.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid employee ID", e.ErrInvalidInput)
	}
	if update.Manager.Value != nil && *update.Manager.Value == update.ID {
		return nil, selfManagerError()
	}

	if err := s.normalizeUpdate(update); err != nil {
		return nil, err
	}

	var email, number string
	if update.Email != nil {
		email = *update.Email
	}
	if update.EmployeeNumber != nil {
		number = *update.EmployeeNumber
	}
	if err := s.ensureUnique(ctx, email, number, update.ID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateEmployee(ctx, update); err != nil {
		return nil, s.storeError("failed to update employee", err)
	}

	updated, err := s.repo.GetEmployee(ctx, update.ID)
	if err != nil {
		s.logger.Error("Failed to get employee for event",
			zap.Error(err),
			zap.String("employee_id", update.ID.String()),
		)
		return nil, err
	}
	go func() {
		s.producer.Produce(events.EmployeeUpdated, updated)
	}()
	return updated, nil
}

func (s *EmployeeService) normalizeUpdate(update *models.EmployeeUpdate) error {
	trimmed := func(field string, value *string, canon func(string) string, tag string) error {
		if value == nil {
			return nil
		}
		*value = canon(*value)
		return s.validator.ValidateVar(field, *value, tag)
	}

	checks := []error{
		trimmed("firstName", update.FirstName, strings.TrimSpace, "required,max=100"),
		trimmed("surname", update.Surname, strings.TrimSpace, "required,max=100"),
		trimmed("email", update.Email, canonEmail, "required,email,max=255"),
		trimmed("employeeNumber", update.EmployeeNumber, canonNumber, "required,max=50"),
		trimmed("role", update.Role, strings.TrimSpace, "required,max=100"),
	}
	var details []e.FieldError
	for _, err := range checks {
		if err == nil {
			continue
		}
		var verr *e.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		details = append(details, verr.Details...)
	}
	if update.Salary.Value != nil && update.Salary.Value.IsNegative() {
		details = append(details, e.FieldError{Field: "salary", Message: "Salary must not be negative"})
	}
	if len(details) > 0 {
		return &e.ValidationError{Message: "Validation failed", Details: details}
	}
	return nil
}

// ensureUnique pre-checks email then employee number. Empty values are
// skipped. The unique indexes remain the authority.
func (s *EmployeeService) ensureUnique(ctx context.Context, email, number string, exclude uuid.UUID) error {
	if email != "" {
		exists, err := s.repo.EmployeeExistsByEmail(ctx, email, exclude)
		if err != nil {
			return fmt.Errorf("failed to check email existence: %w", err)
		}
		if exists {
			return &e.ConflictError{Field: "email"}
		}
	}
	if number != "" {
		exists, err := s.repo.EmployeeExistsByNumber(ctx, number, exclude)
		if err != nil {
			return fmt.Errorf("failed to check employee number existence: %w", err)
		}
		if exists {
			return &e.ConflictError{Field: "employeeNumber"}
		}
	}
	return nil
}

// storeError passes typed store errors through and wraps the rest.
func (s *EmployeeService) storeError(msg string, err error) error {
	var conflict *e.ConflictError
	switch {
	case errors.Is(err, e.ErrSelfManager):
		return selfManagerError()
	case errors.As(err, &conflict):
		s.logger.Warn("unique index rejected write", zap.String("field", conflict.Field))
		return conflict
	case errors.Is(err, e.ErrNotFound):
		return err
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

// DeleteEmployee removes an employee. Reports keep their manager
// reference and show up as orphans in the hierarchy.
func (s *EmployeeService) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	employee, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to get employee for deletion: %w", err)
	}

	if err := s.repo.DeleteEmployee(ctx, id); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete employee: %w", err)
	}

	go func() {
		s.producer.Produce(events.EmployeeDeleted, employee)
	}()
	return nil
}

// ListEmployees returns one page of employees matching q.
func (s *EmployeeService) ListEmployees(ctx context.Context, q models.ListQuery) (*models.Page[models.Employee], error) {
	q = q.Normalize()
	employees, total, err := s.repo.ListEmployees(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return &models.Page[models.Employee]{
		Data:  employees,
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
	}, nil
}

// ListForOrg returns the org chart projection of every employee.
func (s *EmployeeService) ListForOrg(ctx context.Context) ([]models.OrgEntry, error) {
	employees, err := s.repo.ListOrgEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees for org chart: %w", err)
	}
	entries := make([]models.OrgEntry, 0, len(employees))
	for i := range employees {
		entries = append(entries, models.OrgEntryFrom(&employees[i]))
	}
	return entries, nil
}

// Hierarchy builds the reporting forest, showing only employees that
// match filter.
func (s *EmployeeService) Hierarchy(ctx context.Context, filter models.OrgFilter) (*hierarchy.Forest, error) {
	entries, err := s.ListForOrg(ctx)
	if err != nil {
		return nil, err
	}
	forest := hierarchy.Build(entries, filter)

	orphans := 0
	for _, node := range forest.Nodes {
		if node.Kind == hierarchy.KindOrphan {
			orphans++
		}
	}
	if orphans > 0 {
		s.logger.Debug("hierarchy contains orphans", zap.Int("orphans", orphans))
	}
	return &forest, nil
}

// Stats returns the dashboard summary.
func (s *EmployeeService) Stats(ctx context.Context) (*models.Stats, error) {
	stats, err := s.repo.EmployeeStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute employee stats: %w", err)
	}
	return stats, nil
}
