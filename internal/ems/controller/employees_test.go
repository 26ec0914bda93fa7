package controller

import (
	"context"
	"errors"
	"sync"
	"testing"

	e "github.com/gartstein/ems/internal/ems/errors"
	"github.com/gartstein/ems/internal/ems/events"
	"github.com/gartstein/ems/internal/ems/hierarchy"
	"github.com/gartstein/ems/internal/ems/models"
	"github.com/gartstein/ems/internal/pkg/utils"
	"github.com/gartstein/ems/internal/pkg/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockRepository implements EmployeeRepository for testing
type MockRepository struct {
	createEmployee         func(context.Context, *models.Employee) error
	getEmployee            func(context.Context, uuid.UUID) (*models.Employee, error)
	updateEmployee         func(context.Context, *models.EmployeeUpdate) error
	deleteEmployee         func(context.Context, uuid.UUID) error
	employeeExistsByEmail  func(context.Context, string, uuid.UUID) (bool, error)
	employeeExistsByNumber func(context.Context, string, uuid.UUID) (bool, error)
	listEmployees          func(context.Context, models.ListQuery) ([]models.Employee, int64, error)
	listOrgEmployees       func(context.Context) ([]models.Employee, error)
	employeeStats          func(context.Context) (*models.Stats, error)
}

func (m *MockRepository) CreateEmployee(ctx context.Context, emp *models.Employee) error {
	return m.createEmployee(ctx, emp)
}

func (m *MockRepository) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	return m.getEmployee(ctx, id)
}

func (m *MockRepository) UpdateEmployee(ctx context.Context, u *models.EmployeeUpdate) error {
	return m.updateEmployee(ctx, u)
}

func (m *MockRepository) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	return m.deleteEmployee(ctx, id)
}

func (m *MockRepository) EmployeeExistsByEmail(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	if m.employeeExistsByEmail == nil {
		return false, nil
	}
	return m.employeeExistsByEmail(ctx, email, exclude)
}

func (m *MockRepository) EmployeeExistsByNumber(ctx context.Context, number string, exclude uuid.UUID) (bool, error) {
	if m.employeeExistsByNumber == nil {
		return false, nil
	}
	return m.employeeExistsByNumber(ctx, number, exclude)
}

func (m *MockRepository) ListEmployees(ctx context.Context, q models.ListQuery) ([]models.Employee, int64, error) {
	return m.listEmployees(ctx, q)
}

func (m *MockRepository) ListOrgEmployees(ctx context.Context) ([]models.Employee, error) {
	return m.listOrgEmployees(ctx)
}

func (m *MockRepository) EmployeeStats(ctx context.Context) (*models.Stats, error) {
	return m.employeeStats(ctx)
}

type producedEvent struct {
	Type     events.EventType
	Employee *models.Employee
}

// MockProducer is a test double for the Kafka producer.
type MockProducer struct {
	mu             sync.Mutex
	producedEvents []producedEvent
	wg             *sync.WaitGroup
}

// Produce records the event and signals the wait group.
func (m *MockProducer) Produce(eventType events.EventType, employee *models.Employee) {
	m.mu.Lock()
	m.producedEvents = append(m.producedEvents, producedEvent{eventType, employee})
	m.mu.Unlock()
	if m.wg != nil {
		m.wg.Done()
	}
}

func validInput() *models.EmployeeInput {
	return &models.EmployeeInput{
		FirstName:      "  John ",
		Surname:        "Smith",
		Email:          " John.Smith@Example.COM ",
		EmployeeNumber: " emp-1 ",
		Role:           "Engineer",
	}
}

func TestEmployeeService_CreateEmployee(t *testing.T) {
	tests := []struct {
		name          string
		input         func() *models.EmployeeInput
		mockSetup     func(*MockRepository)
		expectError   bool
		expectedError error
		conflictField string
	}{
		{
			name:  "successful creation",
			input: validInput,
			mockSetup: func(mr *MockRepository) {
				mr.createEmployee = func(_ context.Context, _ *models.Employee) error {
					return nil
				}
			},
		},
		{
			name:  "duplicate email",
			input: validInput,
			mockSetup: func(mr *MockRepository) {
				mr.employeeExistsByEmail = func(_ context.Context, email string, _ uuid.UUID) (bool, error) {
					return email == "john.smith@example.com", nil
				}
			},
			expectError:   true,
			expectedError: e.ErrConflict,
			conflictField: "email",
		},
		{
			name:  "duplicate employee number",
			input: validInput,
			mockSetup: func(mr *MockRepository) {
				mr.employeeExistsByNumber = func(_ context.Context, number string, _ uuid.UUID) (bool, error) {
					return number == "EMP-1", nil
				}
			},
			expectError:   true,
			expectedError: e.ErrConflict,
			conflictField: "employeeNumber",
		},
		{
			name:  "unique index race",
			input: validInput,
			mockSetup: func(mr *MockRepository) {
				mr.createEmployee = func(_ context.Context, _ *models.Employee) error {
					return &e.ConflictError{Field: "email"}
				}
			},
			expectError:   true,
			expectedError: e.ErrConflict,
			conflictField: "email",
		},
		{
			name: "missing fields",
			input: func() *models.EmployeeInput {
				in := validInput()
				in.FirstName = "   "
				in.Role = ""
				return in
			},
			mockSetup:     func(_ *MockRepository) {},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
		{
			name: "negative salary",
			input: func() *models.EmployeeInput {
				in := validInput()
				in.Salary = decimal.NewNullDecimal(decimal.NewFromInt(-1))
				return in
			},
			mockSetup:     func(_ *MockRepository) {},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
		{
			name:  "repository error",
			input: validInput,
			mockSetup: func(mr *MockRepository) {
				mr.createEmployee = func(_ context.Context, _ *models.Employee) error {
					return errors.New("database error")
				}
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockRepository{}
			mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
			tt.mockSetup(mockRepo)
			service := NewEmployeeService(mockRepo, mockProducer, validation.New(), zaptest.NewLogger(t))

			if !tt.expectError {
				mockProducer.wg.Add(1)
			}

			result, err := service.CreateEmployee(context.Background(), tt.input())

			if tt.expectError {
				require.Error(t, err)
				if tt.expectedError != nil {
					assert.ErrorIs(t, err, tt.expectedError)
				}
				if tt.conflictField != "" {
					var conflict *e.ConflictError
					require.ErrorAs(t, err, &conflict)
					assert.Equal(t, tt.conflictField, conflict.Field)
				}
				return
			}

			mockProducer.wg.Wait()
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, result.ID)
			assert.Equal(t, "John", result.FirstName)
			assert.Equal(t, "john.smith@example.com", result.Email)
			assert.Equal(t, "EMP-1", result.EmployeeNumber)
			assert.True(t, result.IsActive, "isActive defaults to true")
			require.Len(t, mockProducer.producedEvents, 1)
			assert.Equal(t, events.EmployeeCreated, mockProducer.producedEvents[0].Type)
		})
	}
}

func TestEmployeeService_CreateEmployeeExplicitInactive(t *testing.T) {
	mockRepo := &MockRepository{
		createEmployee: func(_ context.Context, _ *models.Employee) error { return nil },
	}
	mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
	mockProducer.wg.Add(1)
	service := NewEmployeeService(mockRepo, mockProducer, validation.New(), zaptest.NewLogger(t))

	in := validInput()
	in.IsActive = utils.Ptr(false)
	result, err := service.CreateEmployee(context.Background(), in)
	require.NoError(t, err)
	mockProducer.wg.Wait()
	assert.False(t, result.IsActive)
}

func TestEmployeeService_GetEmployee(t *testing.T) {
	testID := uuid.New()

	tests := []struct {
		name          string
		input         uuid.UUID
		mockSetup     func(*MockRepository)
		expectError   bool
		expectedError error
	}{
		{
			name:  "successful get",
			input: testID,
			mockSetup: func(mr *MockRepository) {
				mr.getEmployee = func(_ context.Context, id uuid.UUID) (*models.Employee, error) {
					return &models.Employee{ID: id}, nil
				}
			},
		},
		{
			name:  "not found",
			input: uuid.New(),
			mockSetup: func(mr *MockRepository) {
				mr.getEmployee = func(_ context.Context, _ uuid.UUID) (*models.Employee, error) {
					return nil, e.ErrNotFound
				}
			},
			expectError:   true,
			expectedError: e.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockRepository{}
			tt.mockSetup(mockRepo)
			service := NewEmployeeService(mockRepo, &MockProducer{}, validation.New(), zaptest.NewLogger(t))

			result, err := service.GetEmployee(context.Background(), tt.input)
			if tt.expectError {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, result.ID)
		})
	}
}

func TestEmployeeService_UpdateEmployee(t *testing.T) {
	testID := uuid.New()

	tests := []struct {
		name          string
		input         *models.EmployeeUpdate
		mockSetup     func(*MockRepository)
		expectError   bool
		expectedError error
	}{
		{
			name: "successful update",
			input: &models.EmployeeUpdate{
				ID:    testID,
				Email: utils.Ptr(" NEW@Example.com"),
				Role:  utils.Ptr(" Lead "),
			},
			mockSetup: func(mr *MockRepository) {
				mr.employeeExistsByEmail = func(_ context.Context, email string, exclude uuid.UUID) (bool, error) {
					if email != "new@example.com" || exclude != testID {
						return false, errors.New("unexpected pre-check arguments")
					}
					return false, nil
				}
				mr.updateEmployee = func(_ context.Context, u *models.EmployeeUpdate) error {
					if *u.Role != "Lead" {
						return errors.New("role was not trimmed")
					}
					return nil
				}
				mr.getEmployee = func(_ context.Context, _ uuid.UUID) (*models.Employee, error) {
					return &models.Employee{ID: testID}, nil
				}
			},
		},
		{
			name:          "invalid ID",
			input:         &models.EmployeeUpdate{ID: uuid.Nil},
			mockSetup:     func(_ *MockRepository) {},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
		{
			name:          "self manager rejected before store access",
			input:         &models.EmployeeUpdate{ID: testID, Manager: utils.Of(testID)},
			mockSetup:     func(_ *MockRepository) {},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
		{
			name:          "blank first name",
			input:         &models.EmployeeUpdate{ID: testID, FirstName: utils.Ptr("  ")},
			mockSetup:     func(_ *MockRepository) {},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
		{
			name:          "negative salary",
			input:         &models.EmployeeUpdate{ID: testID, Salary: utils.Of(decimal.NewFromInt(-5))},
			mockSetup:     func(_ *MockRepository) {},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
		{
			name:  "duplicate employee number",
			input: &models.EmployeeUpdate{ID: testID, EmployeeNumber: utils.Ptr("emp-2")},
			mockSetup: func(mr *MockRepository) {
				mr.employeeExistsByNumber = func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
					return true, nil
				}
			},
			expectError:   true,
			expectedError: e.ErrConflict,
		},
		{
			name:  "not found",
			input: &models.EmployeeUpdate{ID: testID, Role: utils.Ptr("x")},
			mockSetup: func(mr *MockRepository) {
				mr.updateEmployee = func(_ context.Context, _ *models.EmployeeUpdate) error {
					return e.ErrNotFound
				}
			},
			expectError:   true,
			expectedError: e.ErrNotFound,
		},
		{
			name:  "store guard maps to validation error",
			input: &models.EmployeeUpdate{ID: testID, Role: utils.Ptr("x")},
			mockSetup: func(mr *MockRepository) {
				mr.updateEmployee = func(_ context.Context, _ *models.EmployeeUpdate) error {
					return e.ErrSelfManager
				}
			},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockRepository{}
			mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
			tt.mockSetup(mockRepo)
			service := NewEmployeeService(mockRepo, mockProducer, validation.New(), zaptest.NewLogger(t))

			if !tt.expectError {
				mockProducer.wg.Add(1)
			}

			_, err := service.UpdateEmployee(context.Background(), tt.input)

			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, mockProducer.producedEvents)
				return
			}
			mockProducer.wg.Wait()
			require.NoError(t, err)
			require.Len(t, mockProducer.producedEvents, 1)
			assert.Equal(t, events.EmployeeUpdated, mockProducer.producedEvents[0].Type)
		})
	}
}

func TestEmployeeService_DeleteEmployee(t *testing.T) {
	testID := uuid.New()

	tests := []struct {
		name          string
		mockSetup     func(*MockRepository)
		expectError   bool
		expectedError error
	}{
		{
			name: "successful deletion",
			mockSetup: func(mr *MockRepository) {
				mr.getEmployee = func(_ context.Context, _ uuid.UUID) (*models.Employee, error) {
					return &models.Employee{ID: testID}, nil
				}
				mr.deleteEmployee = func(_ context.Context, _ uuid.UUID) error {
					return nil
				}
			},
		},
		{
			name: "not found",
			mockSetup: func(mr *MockRepository) {
				mr.getEmployee = func(_ context.Context, _ uuid.UUID) (*models.Employee, error) {
					return nil, e.ErrNotFound
				}
			},
			expectError:   true,
			expectedError: e.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockRepository{}
			mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
			tt.mockSetup(mockRepo)
			service := NewEmployeeService(mockRepo, mockProducer, validation.New(), zaptest.NewLogger(t))

			if !tt.expectError {
				mockProducer.wg.Add(1)
			}

			err := service.DeleteEmployee(context.Background(), testID)

			if tt.expectError {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			mockProducer.wg.Wait()
			require.NoError(t, err)
			require.Len(t, mockProducer.producedEvents, 1)
			assert.Equal(t, events.EmployeeDeleted, mockProducer.producedEvents[0].Type)
		})
	}
}

func TestEmployeeService_ListEmployeesNormalizesPaging(t *testing.T) {
	var seen models.ListQuery
	mockRepo := &MockRepository{
		listEmployees: func(_ context.Context, q models.ListQuery) ([]models.Employee, int64, error) {
			seen = q
			return []models.Employee{}, 0, nil
		},
	}
	service := NewEmployeeService(mockRepo, &MockProducer{}, validation.New(), zaptest.NewLogger(t))

	page, err := service.ListEmployees(context.Background(), models.ListQuery{Page: -3, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, models.MaxLimit, page.Limit)
	assert.Equal(t, models.DefaultSort, seen.Sort)
	assert.NotNil(t, page.Data)
}

func TestEmployeeService_Hierarchy(t *testing.T) {
	root, report, orphan := uuid.New(), uuid.New(), uuid.New()
	mockRepo := &MockRepository{
		listOrgEmployees: func(_ context.Context) ([]models.Employee, error) {
			return []models.Employee{
				{ID: root, FirstName: "Root", Role: "CEO"},
				{ID: report, FirstName: "Report", Role: "Engineer", ManagerID: &root},
				{ID: orphan, FirstName: "Orphan", Role: "Engineer", ManagerID: utils.Ptr(uuid.New())},
			}, nil
		},
	}
	service := NewEmployeeService(mockRepo, &MockProducer{}, validation.New(), zaptest.NewLogger(t))

	forest, err := service.Hierarchy(context.Background(), models.OrgFilter{})
	require.NoError(t, err)
	require.Len(t, forest.Nodes, 3)
	assert.Equal(t, []hierarchy.Edge{{From: root, To: report}}, forest.Edges)
	assert.Equal(t, hierarchy.KindOrphan, forest.Nodes[2].Kind)
	assert.NotEmpty(t, forest.Nodes[0].AvatarURL)
}
