package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-dispatch/backend/internal/models"
)

func newCatalogResolver(s *fakeStore, maxLoad int) *CatalogResolver {
	return &CatalogResolver{Directory: NewDirectory(s), MaxLoad: maxLoad, Logger: zerolog.Nop()}
}

func TestCatalogResolverResponsibleNotFound(t *testing.T) {
	s := newFakeStore()
	s.addTech(1, "Maria Lopez", models.RoleTechnician, true)

	res, err := newCatalogResolver(s, 0).Resolve(context.Background(), "JUAN PEREZ")
	require.NoError(t, err)
	assert.Nil(t, res.Technician)
	assert.Equal(t, ReasonResponsibleNotFound, res.ReasonCode)
}

func TestCatalogResolverOutcomes(t *testing.T) {
	s := newFakeStore()
	s.addTech(1, "Juan Perez", models.RoleTechnician, true)
	s.addTech(2, "Luisa Gomez", models.RoleTechnician, false)

	res, err := newCatalogResolver(s, 0).Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, ReasonNoResponsibleDeclared, res.ReasonCode)

	res, err = newCatalogResolver(s, 0).Resolve(context.Background(), "luisa gomez")
	require.NoError(t, err)
	assert.Nil(t, res.Technician)
	assert.Equal(t, ReasonResponsibleInactive, res.ReasonCode)

	res, err = newCatalogResolver(s, 0).Resolve(context.Background(), "juan perez")
	require.NoError(t, err)
	require.NotNil(t, res.Technician)
	assert.Equal(t, ReasonAssignedCatalog, res.ReasonCode)
}

func TestCatalogResolverLoadCheckIsAdvisory(t *testing.T) {
	s := newFakeStore()
	s.addTech(1, "Juan Perez", models.RoleTechnician, true)
	s.open[1] = 8

	res, err := newCatalogResolver(s, 5).Resolve(context.Background(), "JUAN PEREZ")
	require.NoError(t, err)
	require.NotNil(t, res.Technician)
	assert.Equal(t, ReasonResponsibleOverCapacity, res.Attempts[0].ReasonCode)

	s.countErr = errStoreDown
	res, err = newCatalogResolver(s, 5).Resolve(context.Background(), "JUAN PEREZ")
	require.NoError(t, err)
	require.NotNil(t, res.Technician)
	assert.Equal(t, ReasonLoadCheckFailedAssigned, res.Attempts[0].ReasonCode)
}
