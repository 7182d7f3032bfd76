package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"fylr/internal/auth"
	"fylr/internal/database/memstore"
	"fylr/internal/files"
	"fylr/internal/storage"
	"fylr/internal/websocket"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret      = "api-test-secret"
	testOwner       = "user_owner"
	testOtherOwner  = "user_other"
	testMaxUpload   = 1 << 20
	testContentPath = "/content"
)

type testEnv struct {
	server  *Server
	store   *memstore.Store
	hub     *websocket.Hub
	router  http.Handler
	dataDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memstore.New()
	dataDir := t.TempDir()
	local, err := storage.NewLocalStorage(dataDir, testContentPath)
	require.NoError(t, err)

	hub := websocket.NewHub(zap.NewNop())
	go hub.Run()
	t.Cleanup(hub.Stop)

	svc := files.NewService(store, local, hub, zap.NewNop(), files.WithMaxUploadBytes(testMaxUpload))
	server := NewServer(svc, auth.NewHMACVerifier(testSecret, ""), hub, zap.NewNop(), testMaxUpload)

	reg := prometheus.NewRegistry()
	router := server.NewRouter(RouterOptions{
		CORSOrigins:   []string{"*"},
		Metrics:       NewHTTPMetrics(reg),
		Gatherer:      reg,
		Content:       local.Handler(),
		ContentPrefix: testContentPath,
	})

	return &testEnv{server: server, store: store, hub: hub, router: router, dataDir: dataDir}
}

func testClaims(ownerID string) *auth.Claims {
	return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: ownerID}}
}

func withUser(req *http.Request, ownerID string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), userContextKey, testClaims(ownerID)))
}

func tokenFor(t *testing.T, ownerID string) string {
	t.Helper()
	token, err := auth.GenerateToken(ownerID, ownerID+"@example.com", testSecret, "", time.Hour)
	require.NoError(t, err)
	return token
}

// do sends a request through the full router as ownerID.
func (e *testEnv) do(t *testing.T, ownerID, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if ownerID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, ownerID))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) folder(t *testing.T, ownerID, name string, parentID *string) string {
	t.Helper()
	node, err := e.server.files.CreateFolder(context.Background(), ownerID, files.CreateFolderInput{Name: name, ParentID: parentID})
	require.NoError(t, err)
	return node.ID
}

func (e *testEnv) file(t *testing.T, ownerID, name string, parentID *string) string {
	t.Helper()
	data := []byte("%PDF-1.4 test")
	node, err := e.server.files.Upload(context.Background(), ownerID, files.UploadInput{
		ParentID:    parentID,
		FileName:    name,
		ContentType: "application/pdf",
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	})
	require.NoError(t, err)
	return node.ID
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func multipartFile(t *testing.T, fileName, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return body, w.FormDataContentType()
}
