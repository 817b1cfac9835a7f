package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/artifactcache/doccache"
	"github.com/jonwraymond/artifactcache/health"
)

func newTestServer(t *testing.T) (*httptest.Server, *runtime) {
	t.Helper()
	return newTestServerWith(t, writeConfig(t))
}

func newTestServerWith(t *testing.T, cfgPath string) (*httptest.Server, *runtime) {
	t.Helper()

	app := New()
	app.configPath = cfgPath
	rt, err := app.openRuntime(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	require.NoError(t, rt.docs.Migrate(context.Background()))

	handler, err := newHandler(rt)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, rt
}

func do(t *testing.T, method, url string) (*http.Response, []byte) {
	t.Helper()
	return doWithToken(t, method, url, "")
}

func doWithToken(t *testing.T, method, url, token string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestAPI_Metadata(t *testing.T) {
	srv, rt := newTestServer(t)
	ctx := context.Background()

	doc := doccache.Document{ID: 5, Checksum: "c1"}
	require.NoError(t, rt.docs.PutDocument(ctx, doc))

	resp, _ := do(t, http.MethodGet, srv.URL+"/v1/documents/5/metadata")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, rt.mgr.WriteMetadata(ctx, doc, []doccache.MetadataRecord{{Key: "k", Value: "v"}}, nil, 0))

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/documents/5/metadata")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var entry doccache.CachedMetadata
	require.NoError(t, json.Unmarshal(body, &entry))
	assert.Equal(t, "c1", entry.OriginalChecksum)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/v1/documents/5/metadata")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/documents/5/metadata")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_InvalidID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, http.MethodGet, srv.URL+"/v1/documents/abc/suggestions")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_SuggestionsAndEpoch(t *testing.T) {
	srv, rt := newTestServer(t)
	ctx := context.Background()

	tool := publishedClassifier{version: 3, hash: []byte{0x01}}
	require.NoError(t, rt.epoch.Publish(ctx, rt.store, tool))
	require.NoError(t, rt.mgr.WriteSuggestions(ctx, 9, doccache.Suggestions{"correspondent": {"ACME"}}, tool, 0))

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/documents/9/suggestions")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entry doccache.CachedSuggestions
	require.NoError(t, json.Unmarshal(body, &entry))
	assert.Equal(t, []string{"ACME"}, entry.Suggestions["correspondent"])

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/epoch")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view epochView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.True(t, view.Published)
	assert.Equal(t, "01", view.Hash)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/v1/documents/9/suggestions")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAPI_Health(t *testing.T) {
	srv, rt := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	// No epoch published yet.
	resp, body = do(t, http.MethodGet, srv.URL+"/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "DEGRADED", string(body))

	require.NoError(t, rt.epoch.Publish(context.Background(), rt.store, publishedClassifier{version: 3, hash: []byte{0x02}}))

	resp, body = do(t, http.MethodGet, srv.URL+"/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report health.Response
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, health.StatusHealthy, report.Status)
	assert.Contains(t, report.Checks, "cache")
	assert.Contains(t, report.Checks, "database")
	assert.Contains(t, report.Checks, "classifier_epoch")
}

func TestAPI_Metrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, http.MethodGet, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

const apiSecret = "test-hmac-secret"

func apiToken(t *testing.T, roles ...any) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "indexer",
		"roles": roles,
	}).SignedString([]byte(apiSecret))
	require.NoError(t, err)
	return token
}

func TestAPI_Auth(t *testing.T) {
	cfg := writeConfigWith(t, "redis", `  auth:
    enabled: true
    secret: `+apiSecret+`
    invalidate_role: invalidator
`)
	srv, rt := newTestServerWith(t, cfg)
	ctx := context.Background()

	doc := doccache.Document{ID: 5, Checksum: "c1"}
	require.NoError(t, rt.docs.PutDocument(ctx, doc))
	require.NoError(t, rt.mgr.WriteMetadata(ctx, doc, nil, nil, 0))
	url := srv.URL + "/v1/documents/5/metadata"

	resp, _ := do(t, http.MethodGet, url)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = do(t, http.MethodDelete, url)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doWithToken(t, http.MethodGet, url, apiToken(t))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doWithToken(t, http.MethodDelete, url, apiToken(t, "reader"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_, ok, err := rt.mgr.ReadMetadata(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok, "forbidden delete must keep the entry")

	resp, _ = doWithToken(t, http.MethodDelete, url, apiToken(t, "invalidator"))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Health and metrics stay open.
	resp, _ = do(t, http.MethodGet, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_MemoryStoreHealth(t *testing.T) {
	srv, _ := newTestServerWith(t, writeConfigWith(t, "memory", ""))

	resp, body := do(t, http.MethodGet, srv.URL+"/health/memory")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var check health.CheckResponse
	require.NoError(t, json.Unmarshal(body, &check))
	assert.Contains(t, check.Details, "cache_entries")
}

func TestAPI_RedisStoreHasNoMemoryCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, http.MethodGet, srv.URL+"/health/memory")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
