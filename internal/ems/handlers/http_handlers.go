package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gartstein/ems/internal/ems/auth"
	e "github.com/gartstein/ems/internal/ems/errors"
	"github.com/gartstein/ems/internal/ems/hierarchy"
	"github.com/gartstein/ems/internal/ems/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// EmployeeController defines the business logic interface the HTTP
// handlers invoke for employees.
type EmployeeController interface {
	CreateEmployee(ctx context.Context, input *models.EmployeeInput) (*models.Employee, error)
	GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) (*models.Employee, error)
	DeleteEmployee(ctx context.Context, id uuid.UUID) error
	ListEmployees(ctx context.Context, q models.ListQuery) (*models.Page[models.Employee], error)
	ListForOrg(ctx context.Context) ([]models.OrgEntry, error)
	Hierarchy(ctx context.Context, filter models.OrgFilter) (*hierarchy.Forest, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

type ItemController interface {
	CreateItem(ctx context.Context, input *models.ItemInput) (*models.Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	UpdateItem(ctx context.Context, update *models.ItemUpdate) (*models.Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context, q models.ListQuery) (*models.Page[models.Item], error)
}

// SessionIssuer is the part of the access gate the login routes need.
type SessionIssuer interface {
	Login(email, password string) (string, *auth.Identity, error)
	SessionCookie(token string) *http.Cookie
	ClearCookie() *http.Cookie
}

// HealthChecker reports the serving status shared with gRPC health.
type HealthChecker interface {
	Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error)
}

// HTTPHandler serves the REST API.
type HTTPHandler struct {
	employees EmployeeController
	items     ItemController
	gate      SessionIssuer
	health    HealthChecker
	logger    *zap.Logger
	started   time.Time
	now       func() time.Time
}

func NewHTTPHandler(
	employees EmployeeController,
	items ItemController,
	gate SessionIssuer,
	health HealthChecker,
	logger *zap.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		employees: employees,
		items:     items,
		gate:      gate,
		health:    health,
		logger:    logger.Named("http_handler"),
		started:   time.Now(),
		now:       time.Now,
	}
}

type route struct {
	method  string
	pattern string
	handler runtime.HandlerFunc
}

// RegisterRoutes mounts every API route on mux. The mux tries routes in
// reverse registration order, so parameterised routes are registered
// before the literal paths they would otherwise shadow.
func (h *HTTPHandler) RegisterRoutes(mux *runtime.ServeMux) error {
	routes := []route{
		{http.MethodGet, "/api/health", h.Health},

		{http.MethodPost, "/api/auth/login", h.Login},
		{http.MethodGet, "/api/auth/me", h.Me},
		{http.MethodPost, "/api/auth/logout", h.Logout},

		{http.MethodGet, "/api/employees/{id}", h.GetEmployee},
		{http.MethodPatch, "/api/employees/{id}", h.UpdateEmployee},
		{http.MethodDelete, "/api/employees/{id}", h.DeleteEmployee},
		{http.MethodGet, "/api/employees", h.ListEmployees},
		{http.MethodPost, "/api/employees", h.CreateEmployee},
		{http.MethodGet, "/api/employees/all-for-org", h.ListForOrg},
		{http.MethodGet, "/api/employees/hierarchy", h.Hierarchy},
		{http.MethodGet, "/api/employees/stats", h.Stats},
		{http.MethodGet, "/api/employees/roles", h.Roles},

		{http.MethodGet, "/api/items/{id}", h.GetItem},
		{http.MethodPatch, "/api/items/{id}", h.UpdateItem},
		{http.MethodDelete, "/api/items/{id}", h.DeleteItem},
		{http.MethodGet, "/api/items", h.ListItems},
		{http.MethodPost, "/api/items", h.CreateItem},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return err
		}
	}
	return nil
}

func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	status := http.StatusOK
	resp := healthResponse{
		Status:    "ok",
		Uptime:    h.now().Sub(h.started).Seconds(),
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}
	if h.health != nil {
		check, err := h.health.Check(r.Context(), &healthpb.HealthCheckRequest{})
		if err != nil || check.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			status = http.StatusServiceUnavailable
			resp.Status = "unavailable"
		}
	}
	writeJSON(w, status, resp)
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req loginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.writeError(w, err)
		return
	}
	token, identity, err := h.gate.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, e.ErrUnauthorized) {
			h.logger.Info("failed login attempt")
		}
		h.writeError(w, err)
		return
	}
	http.SetCookie(w, h.gate.SessionCookie(token))
	writeJSON(w, http.StatusOK, identity)
}

func (h *HTTPHandler) Me(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, e.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (h *HTTPHandler) Logout(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	http.SetCookie(w, h.gate.ClearCookie())
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ListEmployees(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	page, err := h.employees.ListEmployees(r.Context(), listQueryFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *HTTPHandler) ListForOrg(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	entries, err := h.employees.ListForOrg(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *HTTPHandler) Hierarchy(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	forest, err := h.employees.Hierarchy(r.Context(), orgFilterFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, forest)
}

func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	stats, err := h.employees.Stats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *HTTPHandler) Roles(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, models.SuggestedRoles)
}

func (h *HTTPHandler) GetEmployee(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	id, err := parseID(pathParams)
	if err != nil {
		h.writeError(w, err)
		return
	}
	employee, err := h.employees.GetEmployee(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, employee)
}

func (h *HTTPHandler) CreateEmployee(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req employeeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.writeError(w, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.employees.CreateEmployee(r.Context(), input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) UpdateEmployee(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	id, err := parseID(pathParams)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var patch employeePatch
	if err := decodeJSON(r, &patch, false); err != nil {
		h.writeError(w, err)
		return
	}
	update, err := patch.toUpdate(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.employees.UpdateEmployee(r.Context(), update)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteEmployee(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	id, err := parseID(pathParams)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.employees.DeleteEmployee(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	page, err := h.items.ListItems(r.Context(), listQueryFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	id, err := parseID(pathParams)
	if err != nil {
		h.writeError(w, err)
		return
	}
	item, err := h.items.GetItem(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) CreateItem(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var input models.ItemInput
	if err := decodeJSON(r, &input, true); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.items.CreateItem(r.Context(), &input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) UpdateItem(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	id, err := parseID(pathParams)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var patch itemPatch
	if err := decodeJSON(r, &patch, true); err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.items.UpdateItem(r.Context(), patch.toUpdate(id))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteItem(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	id, err := parseID(pathParams)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.items.DeleteItem(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
