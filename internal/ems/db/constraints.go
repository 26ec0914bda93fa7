package db

import (
	"errors"
	"fmt"
	"strings"

	e "github.com/gartstein/ems/internal/ems/errors"
	"github.com/gartstein/ems/internal/ems/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// duplicateField reports whether err is a unique index violation and, when
// the driver exposes it, which attribute collided.
func duplicateField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fieldFromConstraint(pgErr.ConstraintName + " " + pgErr.Detail), true
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fieldFromConstraint(liteErr.Error()), true
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", true
	}
	return "", false
}

func fieldFromConstraint(text string) string {
	text = strings.ToLower(text)
	switch {
	case strings.Contains(text, "employee_number"):
		return "employeeNumber"
	case strings.Contains(text, "email"):
		return "email"
	default:
		return ""
	}
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCheckViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintCheck
	}
	return false
}

func registerCallbacks(db *gorm.DB) error {
	return db.Callback().Update().Before("gorm:update").Register("ems:self_manager_guard", guardSelfManager)
}

// guardSelfManager aborts any employee update whose new manager equals the
// row being updated. It inspects both the model primary key and simple
// "id = ?" conditions, so conditional updates built outside the service
// are covered too.
func guardSelfManager(tx *gorm.DB) {
	if tx.Error != nil {
		return
	}
	if _, ok := tx.Statement.Model.(*models.Employee); !ok {
		return
	}

	manager, ok := newManager(tx.Statement.Dest)
	if !ok || manager == uuid.Nil {
		return
	}

	for _, target := range targetIDs(tx.Statement) {
		if target == manager.String() {
			_ = tx.AddError(e.ErrSelfManager)
			return
		}
	}
}

// newManager extracts the manager value an update is about to write.
func newManager(dest interface{}) (uuid.UUID, bool) {
	switch d := dest.(type) {
	case map[string]interface{}:
		for _, key := range []string{"manager_id", "ManagerID"} {
			if v, found := d[key]; found {
				return asUUID(v)
			}
		}
	case *models.Employee:
		if d != nil && d.ManagerID != nil {
			return *d.ManagerID, true
		}
	}
	return uuid.Nil, false
}

func asUUID(v interface{}) (uuid.UUID, bool) {
	switch m := v.(type) {
	case uuid.UUID:
		return m, true
	case *uuid.UUID:
		if m == nil {
			return uuid.Nil, false
		}
		return *m, true
	case string:
		id, err := uuid.Parse(m)
		return id, err == nil
	case *string:
		if m == nil {
			return uuid.Nil, false
		}
		id, err := uuid.Parse(*m)
		return id, err == nil
	}
	return uuid.Nil, false
}

// targetIDs collects the identifiers an update statement is scoped to.
func targetIDs(stmt *gorm.Statement) []string {
	var ids []string
	if emp, ok := stmt.Model.(*models.Employee); ok && emp != nil && emp.ID != uuid.Nil {
		ids = append(ids, emp.ID.String())
	}

	where, ok := stmt.Clauses["WHERE"].Expression.(clause.Where)
	if !ok {
		return ids
	}
	for _, expr := range where.Exprs {
		switch x := expr.(type) {
		case clause.Eq:
			if isIDColumn(x.Column) {
				ids = append(ids, fmt.Sprint(x.Value))
			}
		case clause.Expr:
			sql := strings.ToLower(strings.Join(strings.Fields(x.SQL), " "))
			if (sql == "id = ?" || strings.HasSuffix(sql, ".id = ?")) && len(x.Vars) == 1 {
				ids = append(ids, fmt.Sprint(x.Vars[0]))
			}
		}
	}
	return ids
}

func isIDColumn(column interface{}) bool {
	switch c := column.(type) {
	case string:
		return c == "id" || strings.HasSuffix(c, ".id")
	case clause.Column:
		return c.Name == "id" || c.Name == clause.PrimaryKey
	}
	return false
}
