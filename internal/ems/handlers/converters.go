package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	e "github.com/gartstein/ems/internal/ems/errors"
	"github.com/gartstein/ems/internal/ems/models"
	"github.com/gartstein/ems/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// employeeRequest is the create payload as sent by clients.
type employeeRequest struct {
	FirstName      string              `json:"firstName"`
	Surname        string              `json:"surname"`
	Email          string              `json:"email"`
	EmployeeNumber string              `json:"employeeNumber"`
	BirthDate      *string             `json:"birthDate"`
	Salary         decimal.NullDecimal `json:"salary"`
	Role           string              `json:"role"`
	Manager        *string             `json:"manager"`
	IsActive       *bool               `json:"isActive"`
}

// employeePatch distinguishes absent keys from explicit nulls.
type employeePatch struct {
	FirstName      *string                         `json:"firstName"`
	Surname        *string                         `json:"surname"`
	Email          *string                         `json:"email"`
	EmployeeNumber *string                         `json:"employeeNumber"`
	BirthDate      utils.Nullable[string]          `json:"birthDate"`
	Salary         utils.Nullable[decimal.Decimal] `json:"salary"`
	Role           *string                         `json:"role"`
	Manager        utils.Nullable[string]          `json:"manager"`
	IsActive       *bool                           `json:"isActive"`
}

type itemPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Tags        *[]string        `json:"tags"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type healthResponse struct {
	Status    string  `json:"status"`
	Uptime    float64 `json:"uptime"`
	Timestamp string  `json:"timestamp"`
}

type errorResponse struct {
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details []e.FieldError `json:"details,omitempty"`
}

// decodeJSON reads a JSON body into dst. Strict decoding rejects unknown
// fields.
func decodeJSON(r *http.Request, dst any, strict bool) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return &e.ValidationError{Message: "Unable to read request body"}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return &e.ValidationError{Message: "Invalid JSON body: " + jsonErrorDetail(err)}
	}
	return nil
}

func jsonErrorDetail(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	}
	return err.Error()
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, e.Invalid(field, fmt.Sprintf("Field '%s' must be a date", field))
}

// parseManager treats an empty string as "no manager".
func parseManager(s string) (*uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, e.Invalid("manager", "Field 'manager' must be an employee id")
	}
	return &id, nil
}

func (req *employeeRequest) toInput() (*models.EmployeeInput, error) {
	input := &models.EmployeeInput{
		FirstName:      req.FirstName,
		Surname:        req.Surname,
		Email:          req.Email,
		EmployeeNumber: req.EmployeeNumber,
		Salary:         req.Salary,
		Role:           req.Role,
		IsActive:       req.IsActive,
	}
	if req.BirthDate != nil {
		birth, err := parseDate("birthDate", *req.BirthDate)
		if err != nil {
			return nil, err
		}
		input.BirthDate = birth
	}
	if req.Manager != nil {
		manager, err := parseManager(*req.Manager)
		if err != nil {
			return nil, err
		}
		input.Manager = manager
	}
	return input, nil
}

func (p *employeePatch) toUpdate(id uuid.UUID) (*models.EmployeeUpdate, error) {
	update := &models.EmployeeUpdate{
		ID:             id,
		FirstName:      p.FirstName,
		Surname:        p.Surname,
		Email:          p.Email,
		EmployeeNumber: p.EmployeeNumber,
		Role:           p.Role,
		Salary:         p.Salary,
		IsActive:       p.IsActive,
	}
	if p.BirthDate.Set {
		update.BirthDate = utils.Null[time.Time]()
		if p.BirthDate.Value != nil {
			birth, err := parseDate("birthDate", *p.BirthDate.Value)
			if err != nil {
				return nil, err
			}
			update.BirthDate.Value = birth
		}
	}
	if p.Manager.Set {
		update.Manager = utils.Null[uuid.UUID]()
		if p.Manager.Value != nil {
			manager, err := parseManager(*p.Manager.Value)
			if err != nil {
				return nil, err
			}
			update.Manager.Value = manager
		}
	}
	return update, nil
}

func (p *itemPatch) toUpdate(id uuid.UUID) *models.ItemUpdate {
	return &models.ItemUpdate{
		ID:          id,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Tags:        p.Tags,
	}
}

// listQueryFrom reads paging, search and sort parameters. Unparseable
// numbers fall back to the defaults.
func listQueryFrom(r *http.Request) models.ListQuery {
	values := r.URL.Query()
	page, _ := strconv.Atoi(values.Get("page"))
	limit, _ := strconv.Atoi(values.Get("limit"))
	return models.ListQuery{
		Page:  page,
		Limit: limit,
		Query: values.Get("q"),
		Sort:  values.Get("sort"),
		Role:  values.Get("role"),
	}.Normalize()
}

func orgFilterFrom(r *http.Request) models.OrgFilter {
	values := r.URL.Query()
	return models.OrgFilter{Query: values.Get("q"), Role: values.Get("role")}
}

func parseID(pathParams map[string]string) (uuid.UUID, error) {
	id, err := uuid.Parse(pathParams["id"])
	if err != nil {
		return uuid.Nil, e.Invalid("id", "Invalid id")
	}
	return id, nil
}
