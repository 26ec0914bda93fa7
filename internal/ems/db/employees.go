package db

import (
	"context"
	"database/sql"
	"regexp"
	"sort"
	"strings"

	e "github.com/gartstein/ems/internal/ems/errors"
	"github.com/gartstein/ems/internal/ems/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var sortPattern = regexp.MustCompile(`^-?[a-zA-Z0-9_.]+$`)

// employeeSortColumns maps accepted sort keys onto columns.
var employeeSortColumns = map[string]string{
	"firstName":      "first_name",
	"surname":        "surname",
	"email":          "email",
	"employeeNumber": "employee_number",
	"birthDate":      "birth_date",
	"salary":         "salary",
	"role":           "role",
	"isActive":       "is_active",
	"createdAt":      "created_at",
	"updatedAt":      "updated_at",
}

// SanitizeSort validates a "field" / "-field" sort key. Keys that fail the
// pattern or name an unknown field fall back to the default ordering.
func SanitizeSort(raw string, columns map[string]string) (string, bool) {
	if !sortPattern.MatchString(raw) {
		raw = models.DefaultSort
	}
	desc := strings.HasPrefix(raw, "-")
	column, ok := columns[strings.TrimPrefix(raw, "-")]
	if !ok {
		return columns[strings.TrimPrefix(models.DefaultSort, "-")], strings.HasPrefix(models.DefaultSort, "-")
	}
	return column, desc
}

// likePattern builds a case-insensitive substring pattern with LIKE
// wildcards in the input escaped.
func likePattern(q string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.ToLower(q)) + "%"
}

func (r *Repository) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	result := r.db.WithContext(ctx).Create(employee)
	if result.Error != nil {
		return translateError(result.Error)
	}
	return nil
}

func (r *Repository) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	var employee models.Employee
	result := r.db.WithContext(ctx).First(&employee, "id = ?", id)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}
	return &employee, nil
}

// UpdateEmployee applies only the fields present in update. The self
// management guard runs as a GORM callback on this statement.
func (r *Repository) UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) error {
	values := update.Values()
	if len(values) == 0 {
		_, err := r.GetEmployee(ctx, update.ID)
		return err
	}

	result := r.db.WithContext(ctx).Model(&models.Employee{ID: update.ID}).Updates(values)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// DeleteEmployee removes one row. Reports keep their manager reference.
func (r *Repository) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Employee{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// EmployeeExistsByEmail checks for another employee with the email,
// ignoring exclude when it is set.
func (r *Repository) EmployeeExistsByEmail(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	return r.employeeExists(ctx, "email", email, exclude)
}

// EmployeeExistsByNumber checks for another employee with the number,
// ignoring exclude when it is set.
func (r *Repository) EmployeeExistsByNumber(ctx context.Context, number string, exclude uuid.UUID) (bool, error) {
	return r.employeeExists(ctx, "employee_number", number, exclude)
}

func (r *Repository) employeeExists(ctx context.Context, column, value string, exclude uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Employee{}).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	result := query.Limit(1).Count(&count)
	return count > 0, result.Error
}

func (r *Repository) filteredEmployees(ctx context.Context, q models.ListQuery) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Employee{})
	if q.Query != "" {
		query = query.Where(
			`(LOWER(first_name) LIKE @q ESCAPE '\' OR LOWER(surname) LIKE @q ESCAPE '\' OR `+
				`LOWER(email) LIKE @q ESCAPE '\' OR LOWER(role) LIKE @q ESCAPE '\' OR `+
				`LOWER(employee_number) LIKE @q ESCAPE '\' OR `+
				`LOWER(first_name || ' ' || surname) LIKE @q ESCAPE '\')`,
			sql.Named("q", likePattern(q.Query)),
		)
	}
	if q.Role != "" {
		query = query.Where("role = ?", q.Role)
	}
	return query
}

// ListEmployees returns one page of employees and the total match count.
func (r *Repository) ListEmployees(ctx context.Context, q models.ListQuery) ([]models.Employee, int64, error) {
	q = q.Normalize()

	var total int64
	if err := r.filteredEmployees(ctx, q).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, desc := SanitizeSort(q.Sort, employeeSortColumns)
	employees := make([]models.Employee, 0, q.Limit)
	result := r.filteredEmployees(ctx, q).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
		Order("id").
		Offset(q.Offset()).
		Limit(q.Limit).
		Find(&employees)
	if result.Error != nil {
		return nil, 0, result.Error
	}
	return employees, total, nil
}

// ListOrgEmployees returns every employee with the columns the org chart
// needs, ordered by role then creation time.
func (r *Repository) ListOrgEmployees(ctx context.Context) ([]models.Employee, error) {
	var employees []models.Employee
	result := r.db.WithContext(ctx).
		Select("id", "first_name", "surname", "email", "role", "employee_number", "manager_id", "created_at").
		Order("role ASC").
		Order("created_at ASC").
		Find(&employees)
	if result.Error != nil {
		return nil, result.Error
	}
	return employees, nil
}

func (r *Repository) CountEmployees(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Employee{}).Count(&count)
	return count, result.Error
}

// EmployeeStats aggregates the dashboard figures.
func (r *Repository) EmployeeStats(ctx context.Context) (*models.Stats, error) {
	var stats *models.Stats
	err := r.WithTransaction(ctx, func(tx *Repository) error {
		var err error
		stats, err = tx.employeeStats()
		return err
	})
	return stats, err
}

// employeeStats runs the aggregate queries on r, which is expected to be
// a transaction so the figures agree with each other.
func (r *Repository) employeeStats() (*models.Stats, error) {
	stats := &models.Stats{Roles: []models.RoleCount{}}
	db := r.db

	if err := db.Model(&models.Employee{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Employee{}).Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Employee{}).Where("manager_id IS NULL").Count(&stats.WithoutManager).Error; err != nil {
		return nil, err
	}

	var salaries []decimal.Decimal
	if err := db.Model(&models.Employee{}).Where("salary IS NOT NULL").Pluck("salary", &salaries).Error; err != nil {
		return nil, err
	}
	if len(salaries) > 0 {
		stats.AverageSalary = decimal.Avg(salaries[0], salaries[1:]...).Round(2)
	}

	var buckets []struct {
		Role string
		Cnt  int64
	}
	if err := db.Model(&models.Employee{}).Select("role, COUNT(*) AS cnt").Group("role").Scan(&buckets).Error; err != nil {
		return nil, err
	}
	for _, b := range buckets {
		stats.Roles = append(stats.Roles, models.RoleCount{Role: b.Role, Count: b.Cnt})
	}
	sort.SliceStable(stats.Roles, func(i, j int) bool {
		if stats.Roles[i].Count != stats.Roles[j].Count {
			return stats.Roles[i].Count > stats.Roles[j].Count
		}
		return stats.Roles[i].Role < stats.Roles[j].Role
	})
	return stats, nil
}
