// Package seed fills an empty employee table with a fake organisation for
// demos and local development.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gartstein/ems/internal/ems/models"
	"github.com/icrowley/fake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// branching is the number of direct reports per manager in the demo tree.
const branching = 3

type EmployeeCreator interface {
	CreateEmployee(ctx context.Context, input *models.EmployeeInput) (*models.Employee, error)
}

type EmployeeCounter interface {
	CountEmployees(ctx context.Context) (int64, error)
}

// Demo creates count employees arranged as a tree when the table is
// empty. It returns the number of employees created.
func Demo(ctx context.Context, svc EmployeeCreator, counter EmployeeCounter, count int, logger *zap.Logger) (int, error) {
	logger = logger.Named("seed")
	if count <= 0 {
		return 0, nil
	}
	existing, err := counter.CountEmployees(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	if existing > 0 {
		logger.Info("employees present, skipping demo seed", zap.Int64("existing", existing))
		return 0, nil
	}

	created := make([]*models.Employee, 0, count)
	for i := 0; i < count; i++ {
		input := demoInput(i)
		if i > 0 {
			input.Manager = &created[(i-1)/branching].ID
		}
		emp, err := svc.CreateEmployee(ctx, input)
		if err != nil {
			return len(created), fmt.Errorf("failed to seed employee %d: %w", i, err)
		}
		created = append(created, emp)
	}
	logger.Info("demo employees seeded", zap.Int("count", len(created)))
	return len(created), nil
}

func demoInput(i int) *models.EmployeeInput {
	first, last := fake.FirstName(), fake.LastName()
	birth := time.Date(fake.Year(1960, 2002), time.Month(fake.MonthNum()), fake.Day(), 0, 0, 0, 0, time.UTC)
	salary := decimal.NewFromInt(int64(30000 + 1000*(len(first)+len(last)+i%40)))

	return &models.EmployeeInput{
		FirstName:      first,
		Surname:        last,
		Email:          fmt.Sprintf("%s.%s.%d@example.com", emailPart(first), emailPart(last), i+1),
		EmployeeNumber: fmt.Sprintf("EMP-%04d", i+1),
		BirthDate:      &birth,
		Salary:         decimal.NewNullDecimal(salary),
		Role:           roleFor(i),
	}
}

// roleFor picks a role by depth in the demo tree.
func roleFor(i int) string {
	depth := 0
	for n := i; n > 0; n = (n - 1) / branching {
		depth++
	}
	switch depth {
	case 0:
		return "CEO"
	case 1:
		return models.SuggestedRoles[1+i%3]
	case 2:
		return "Engineering Manager"
	default:
		return models.SuggestedRoles[4+i%(len(models.SuggestedRoles)-4)]
	}
}

func emailPart(s string) string {
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, strings.ToLower(s))
	if s == "" {
		return "user"
	}
	return s
}
