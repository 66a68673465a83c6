package service_test

import (
	"context"
	"testing"

	"dispatch-service/internal/models"
	"dispatch-service/internal/repository"
	"dispatch-service/internal/service"
	"dispatch-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) (*service.CatalogService, *repository.LinkRepository) {
	t.Helper()
	db := testutil.SetupDB(t)
	repo := repository.NewLinkRepository(db)
	return service.NewCatalogService(repo, nil, 0, testutil.Logger()), repo
}

func TestCreateLink_GeneratesLinkID(t *testing.T) {
	catalog, _ := newCatalog(t)

	link := &models.Link{BusinessUnit: "bu01", Network: "mi", IsActive: true}
	require.NoError(t, catalog.CreateLink(context.Background(), link))
	assert.NotEmpty(t, link.LinkID)

	other := &models.Link{BusinessUnit: "bu01", Network: "mi", IsActive: true}
	require.NoError(t, catalog.CreateLink(context.Background(), other))
	assert.NotEqual(t, link.LinkID, other.LinkID)
}

func TestCreateTarget_NormalizesCountries(t *testing.T) {
	catalog, _ := newCatalog(t)

	link := &models.Link{BusinessUnit: "bu01", IsActive: true}
	require.NoError(t, catalog.CreateLink(context.Background(), link))

	target := &models.Target{URL: "https://a.com", Weight: 10, IsActive: true}
	err := catalog.CreateTarget(context.Background(), link, target,
		[]string{" us", "de ", ""}, map[string]string{"src": "utm_source"}, nil)
	require.NoError(t, err)

	assert.Equal(t, `["US","DE"]`, target.Countries)
	assert.Equal(t, `{"src":"utm_source"}`, target.ParamMapping)
	assert.Equal(t, `{}`, target.StaticParams)

	codes, err := target.CountryList()
	require.NoError(t, err)
	assert.Equal(t, []string{"US", "DE"}, codes)
}

func TestGetActiveLink(t *testing.T) {
	catalog, _ := newCatalog(t)

	link := &models.Link{LinkID: "act001", BusinessUnit: "bu01", IsActive: true}
	require.NoError(t, catalog.CreateLink(context.Background(), link))
	target := &models.Target{URL: "https://a.com", Weight: 10, IsActive: true}
	require.NoError(t, catalog.CreateTarget(context.Background(), link, target, nil, nil, nil))
	inactive := &models.Target{URL: "https://b.com", Weight: 10, IsActive: false}
	require.NoError(t, catalog.CreateTarget(context.Background(), link, inactive, nil, nil, nil))

	t.Run("loads only active targets", func(t *testing.T) {
		got, err := catalog.GetActiveLink(context.Background(), "act001")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Len(t, got.Targets, 1)
		assert.Equal(t, "https://a.com", got.Targets[0].URL)
	})

	t.Run("unknown id returns nil", func(t *testing.T) {
		got, err := catalog.GetActiveLink(context.Background(), "nosuch")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("inactive link returns nil", func(t *testing.T) {
		link.IsActive = false
		require.NoError(t, catalog.UpdateLink(context.Background(), link))

		got, err := catalog.GetActiveLink(context.Background(), "act001")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestUpdateTargetFields(t *testing.T) {
	catalog, _ := newCatalog(t)

	link := &models.Link{LinkID: "upd001", BusinessUnit: "bu01", IsActive: true}
	require.NoError(t, catalog.CreateLink(context.Background(), link))
	target := &models.Target{URL: "https://a.com", Weight: 10, IsActive: true}
	require.NoError(t, catalog.CreateTarget(context.Background(), link, target,
		[]string{"US"}, nil, nil))

	// Only the supplied field is re-encoded.
	static := map[string]string{"ref": "app"}
	require.NoError(t, catalog.UpdateTargetFields(context.Background(), link.LinkID, target, nil, nil, &static))

	stored, err := catalog.GetTarget(target.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, `["US"]`, stored.Countries)
	assert.Equal(t, `{"ref":"app"}`, stored.StaticParams)
}

func TestDeleteLink(t *testing.T) {
	catalog, repo := newCatalog(t)

	link := &models.Link{LinkID: "del001", BusinessUnit: "bu01", IsActive: true}
	require.NoError(t, catalog.CreateLink(context.Background(), link))

	ok, err := catalog.DeleteLink(context.Background(), "del001")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByLinkID("del001")
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, err = catalog.DeleteLink(context.Background(), "del001")
	require.NoError(t, err)
	assert.False(t, ok)
}
