package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthscribe/internal/core"
	"healthscribe/internal/db"
	"healthscribe/internal/store"
	"healthscribe/internal/triage"
	"healthscribe/pkg"
)

type recordingNotifier struct {
	minted []pkg.MedicalSummary
	err    error
}

func (n *recordingNotifier) NotifyMinted(_ context.Context, s pkg.MedicalSummary) error {
	n.minted = append(n.minted, s)
	return n.err
}

func newTestServer(t *testing.T) (*Server, *recordingNotifier) {
	t.Helper()
	lex := triage.DefaultLexicon()
	fs, err := store.NewFileStore(filepath.Join(t.TempDir(), "nfts.json"))
	require.NoError(t, err)
	chat := core.NewChatService(db.NewMemoryRepository(), triage.NewEngine(lex), core.NewSummarizer(lex), fs, 50)
	n := &recordingNotifier{}
	return NewServer(chat, fs, n, []string{"*"}), n
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestServer_ChatFlow(t *testing.T) {
	srv, notifier := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[sessionResponse](t, rec)
	require.NotEmpty(t, created.SessionID)
	require.Len(t, created.Messages, 1)
	assert.Equal(t, core.FirstMessage, created.Messages[0].Content)
	base := "/api/sessions/" + created.SessionID

	rec = do(t, srv, http.MethodPost, base+"/messages", pkg.SendRequest{Content: "I have a fever"})
	require.Equal(t, http.StatusOK, rec.Code)
	reply := decode[pkg.SendResponse](t, rec)
	assert.Equal(t, pkg.StageAssessing, reply.Stage)
	assert.Equal(t, []string{"fever"}, reply.Detected)
	assert.False(t, reply.Capped)

	rec = do(t, srv, http.MethodPost, base+"/messages", pkg.SendRequest{Content: "what should I do?"})
	require.Equal(t, http.StatusOK, rec.Code)
	reply = decode[pkg.SendResponse](t, rec)
	assert.Equal(t, pkg.StageRecommending, reply.Stage)
	assert.Contains(t, reply.Reply, "For fever:")

	rec = do(t, srv, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decode[sessionResponse](t, rec)
	assert.Equal(t, pkg.StageRecommending, sess.Stage)
	assert.Len(t, sess.Messages, 5)

	rec = do(t, srv, http.MethodPost, base+"/summary", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	summary := decode[pkg.MedicalSummary](t, rec)
	assert.Equal(t, pkg.StatusPending, summary.Status)
	assert.Contains(t, summary.Symptoms, "fever")

	rec = do(t, srv, http.MethodGet, "/api/summaries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]pkg.MedicalSummary](t, rec), 1)

	rec = do(t, srv, http.MethodPost, "/api/summaries/"+summary.ID+"/mint", pkg.MintRequest{Wallet: "0xfeed"})
	require.Equal(t, http.StatusOK, rec.Code)
	minted := decode[pkg.MedicalSummary](t, rec)
	assert.Equal(t, pkg.StatusMinted, minted.Status)
	assert.Equal(t, "0xfeed", minted.OwnerWallet)
	require.Len(t, notifier.minted, 1)
	assert.Equal(t, summary.ID, notifier.minted[0].ID)

	rec = do(t, srv, http.MethodGet, "/api/summaries/"+summary.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, minted, decode[pkg.MedicalSummary](t, rec))

	rec = do(t, srv, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodGet, base, nil)
	sess = decode[sessionResponse](t, rec)
	assert.Len(t, sess.Messages, 1)
	assert.Equal(t, pkg.StageInitial, sess.Stage)
	assert.Empty(t, sess.Detected)
}

func TestServer_Errors(t *testing.T) {
	srv, notifier := newTestServer(t)

	created := decode[sessionResponse](t, do(t, srv, http.MethodPost, "/api/sessions", nil))
	base := "/api/sessions/" + created.SessionID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		errMsg string
	}{
		{"unknown session", http.MethodGet, "/api/sessions/missing", nil, http.StatusNotFound, pkg.ErrSessionNotFound.Error()},
		{"message to unknown session", http.MethodPost, "/api/sessions/missing/messages", pkg.SendRequest{Content: "hi"}, http.StatusNotFound, pkg.ErrSessionNotFound.Error()},
		{"empty message", http.MethodPost, base + "/messages", pkg.SendRequest{Content: "   "}, http.StatusBadRequest, pkg.ErrEmptyMessage.Error()},
		{"summary of unknown session", http.MethodPost, "/api/sessions/missing/summary", nil, http.StatusNotFound, pkg.ErrSessionNotFound.Error()},
		{"unknown summary", http.MethodGet, "/api/summaries/missing", nil, http.StatusNotFound, pkg.ErrSummaryNotFound.Error()},
		{"mint unknown summary", http.MethodPost, "/api/summaries/missing/mint", pkg.MintRequest{Wallet: "0x1"}, http.StatusNotFound, pkg.ErrSummaryNotFound.Error()},
		{"mint without wallet", http.MethodPost, "/api/summaries/missing/mint", pkg.MintRequest{}, http.StatusBadRequest, pkg.ErrWalletRequired.Error()},
		{"oversized message", http.MethodPost, base + "/messages", pkg.SendRequest{Content: strings.Repeat("a", 2*maxBodyBytes)}, http.StatusRequestEntityTooLarge, "request body too large"},
		{"oversized mint", http.MethodPost, "/api/summaries/missing/mint", pkg.MintRequest{Wallet: strings.Repeat("0", 2*maxBodyBytes)}, http.StatusRequestEntityTooLarge, "request body too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.errMsg, decode[errorBody](t, rec).Error)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, base+"/messages", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	assert.Empty(t, notifier.minted)
}

func TestServer_MintSurvivesNotifierFailure(t *testing.T) {
	srv, notifier := newTestServer(t)
	notifier.err = errors.New("listener gone")

	created := decode[sessionResponse](t, do(t, srv, http.MethodPost, "/api/sessions", nil))
	summary := decode[pkg.MedicalSummary](t, do(t, srv, http.MethodPost, "/api/sessions/"+created.SessionID+"/summary", nil))

	rec := do(t, srv, http.MethodPost, "/api/summaries/"+summary.ID+"/mint", pkg.MintRequest{Wallet: "0xabc"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, notifier.minted, 1)
}

func TestServer_WalletHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/wallets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Regexp(t, `^0x[0-9a-f]{40}$`, decode[map[string]string](t, rec)["address"])

	rec = do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
