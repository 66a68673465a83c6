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

func newTemplates(t *testing.T) (*service.TemplateService, *service.CatalogService) {
	t.Helper()
	db := testutil.SetupDB(t)
	log := testutil.Logger()
	catalog := service.NewCatalogService(repository.NewLinkRepository(db), nil, 0, log)
	return service.NewTemplateService(repository.NewTemplateRepository(db), catalog, log), catalog
}

func TestTemplate_CreateLinks(t *testing.T) {
	templates, catalog := newTemplates(t)

	tpl := models.LinkTemplate{
		Name:         "campaign-a",
		BusinessUnit: "bu01",
		Network:      "mi",
		TotalCap:     500,
		BackupURL:    "https://backup.com",
	}
	targets := []models.TemplateTarget{
		{URL: "https://a.com", Weight: 70, Countries: []string{"us"}},
		{URL: "https://b.com", Weight: 30, StaticParams: map[string]string{"ref": "tpl"}},
	}
	require.NoError(t, templates.Create(&tpl, targets))

	links, err := templates.CreateLinks(context.Background(), tpl.ID, 3)
	require.NoError(t, err)
	require.Len(t, links, 3)

	seen := map[string]bool{}
	for _, link := range links {
		assert.NotEmpty(t, link.LinkID)
		assert.False(t, seen[link.LinkID])
		seen[link.LinkID] = true

		stored, err := catalog.GetLink(link.LinkID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "bu01", stored.BusinessUnit)
		assert.Equal(t, 500, stored.TotalCap)
		require.Len(t, stored.Targets, 2)
		assert.Equal(t, `["US"]`, stored.Targets[0].Countries)
		assert.Equal(t, `{"ref":"tpl"}`, stored.Targets[1].StaticParams)
	}
}

func TestTemplate_CreateLinksUnknownTemplate(t *testing.T) {
	templates, _ := newTemplates(t)
	_, err := templates.CreateLinks(context.Background(), 999, 1)
	assert.ErrorIs(t, err, service.ErrTemplateNotFound)
}

func TestTemplate_Delete(t *testing.T) {
	templates, _ := newTemplates(t)

	tpl := models.LinkTemplate{Name: "tmp", BusinessUnit: "bu01"}
	require.NoError(t, templates.Create(&tpl, nil))

	require.NoError(t, templates.Delete(tpl.ID))
	assert.ErrorIs(t, templates.Delete(tpl.ID), service.ErrTemplateNotFound)

	got, err := templates.Get(tpl.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
