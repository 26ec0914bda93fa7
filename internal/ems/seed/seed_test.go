package seed

import (
	"context"
	"testing"

	"github.com/gartstein/ems/internal/ems/controller"
	"github.com/gartstein/ems/internal/ems/db"
	"github.com/gartstein/ems/internal/ems/events"
	"github.com/gartstein/ems/internal/ems/hierarchy"
	"github.com/gartstein/ems/internal/ems/models"
	"github.com/gartstein/ems/internal/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDemo(t *testing.T) {
	repo, err := db.NewRepository(&db.Config{Driver: db.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	defer repo.Close()

	logger := zaptest.NewLogger(t)
	svc := controller.NewEmployeeService(repo, events.NopProducer{}, validation.New(), logger)
	ctx := context.Background()

	n, err := Demo(ctx, svc, repo, 13, logger)
	require.NoError(t, err)
	assert.Equal(t, 13, n)

	forest, err := svc.Hierarchy(ctx, models.OrgFilter{})
	require.NoError(t, err)
	require.Len(t, forest.Roots, 1)
	assert.Len(t, forest.Edges, 12)
	for _, node := range forest.Nodes {
		assert.NotEqual(t, hierarchy.KindOrphan, node.Kind)
	}

	n, err = Demo(ctx, svc, repo, 5, logger)
	require.NoError(t, err)
	assert.Zero(t, n, "a populated table is left alone")
}

func TestRoleFor(t *testing.T) {
	assert.Equal(t, "CEO", roleFor(0))
	assert.Equal(t, "Engineering Manager", roleFor(4))
	assert.NotEmpty(t, roleFor(100))
}

func TestEmailPart(t *testing.T) {
	assert.Equal(t, "obrien", emailPart("O'Brien"))
}
