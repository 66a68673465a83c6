package handler_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"dispatch-service/config"
	"dispatch-service/internal/geoip"
	"dispatch-service/internal/handler"
	"dispatch-service/internal/repository"
	"dispatch-service/internal/service"
	"dispatch-service/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRedirectRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupDB(t)
	log := testutil.Logger()
	catalog := service.NewCatalogService(repository.NewLinkRepository(db), nil, 0, log)
	accessLogs := service.NewAccessLogService(repository.NewAccessLogRepository(db), 1024, log)
	t.Cleanup(accessLogs.Close)
	dispatch := service.NewDispatchService(catalog, repository.NewCapRepository(db), accessLogs, nil, 0, log)
	geo := geoip.NewProvider(&config.GeoIPConfig{Enabled: false})

	r := gin.New()
	r.GET("/:business_unit/:link_id", handler.NewRedirectHandler(dispatch, geo, log).Redirect)
	return r, db
}

func get(r *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRedirect_Found(t *testing.T) {
	r, db := setupRedirectRouter(t)

	link := testutil.CreateLink(t, db, "red001", "bu01", 0, "")
	testutil.CreateTarget(t, db, link, "https://a.com/landing", 10, 0, "")

	w := get(r, "/bu01/red001?kw=shoes", nil)
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "a.com", loc.Host)
	assert.Equal(t, "shoes", loc.Query().Get("kw"))
}

func TestRedirect_CountryOverride(t *testing.T) {
	r, db := setupRedirectRouter(t)

	link := testutil.CreateLink(t, db, "red002", "bu01", 0, "")
	testutil.CreateTarget(t, db, link, "https://us.example.com", 10, 0, `["US"]`)
	testutil.CreateTarget(t, db, link, "https://rest.example.com", 10, 0, `["DE"]`)

	w := get(r, "/bu01/red002?country=DE", nil)
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "rest.example.com", loc.Host)
	// The routing hint is consumed, not forwarded.
	assert.Empty(t, loc.Query().Get("country"))
}

func TestRedirect_NotFound(t *testing.T) {
	r, _ := setupRedirectRouter(t)
	w := get(r, "/bu01/nosuch", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedirect_WrongBusinessUnit(t *testing.T) {
	r, db := setupRedirectRouter(t)

	link := testutil.CreateLink(t, db, "red003", "bu01", 0, "")
	testutil.CreateTarget(t, db, link, "https://a.com", 10, 0, "")

	w := get(r, "/bu99/red003", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedirect_CapExhaustedWithoutBackup(t *testing.T) {
	r, db := setupRedirectRouter(t)

	link := testutil.CreateLink(t, db, "red004", "bu01", 1, "")
	testutil.CreateTarget(t, db, link, "https://a.com", 10, 0, "")

	first := get(r, "/bu01/red004", nil)
	assert.Equal(t, http.StatusFound, first.Code)

	second := get(r, "/bu01/red004", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRedirect_CapExhaustedWithBackup(t *testing.T) {
	r, db := setupRedirectRouter(t)

	link := testutil.CreateLink(t, db, "red005", "bu01", 1, "https://backup.com")
	testutil.CreateTarget(t, db, link, "https://a.com", 10, 0, "")

	get(r, "/bu01/red005", nil)
	second := get(r, "/bu01/red005", nil)
	assert.Equal(t, http.StatusFound, second.Code)
	assert.Equal(t, "https://backup.com", second.Header().Get("Location"))
}
