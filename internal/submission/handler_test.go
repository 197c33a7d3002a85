package submission

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, opts ...HandlerOption) (*chi.Mux, *fixture) {
	t.Helper()
	return newTestRouterWith(t, nil, opts...)
}

func newTestRouterWith(t *testing.T, fp Fingerprinter, opts ...HandlerOption) (*chi.Mux, *fixture) {
	t.Helper()
	f := newFixture(t, fp)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(f.svc, log, nil, opts...)
	r := chi.NewRouter()
	h.Routes(r)
	return r, f
}

func postVideo(t *testing.T, r http.Handler, senderID, name, handle string, body []byte) (*httptest.ResponseRecorder, videoResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/senders/"+senderID+"/videos", bytes.NewReader(body))
	req.Header.Set("X-Sender-Name", name)
	req.Header.Set("X-Sender-Handle", handle)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp videoResponse
	if rec.Code != http.StatusRequestEntityTooLarge && rec.Code != http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func postMessage(t *testing.T, r http.Handler, senderID, text string) messageResponse {
	t.Helper()
	return postMessageAs(t, r, senderID, "Alice", "alice", text)
}

func postMessageAs(t *testing.T, r http.Handler, senderID, name, handle, text string) messageResponse {
	t.Helper()
	b, _ := json.Marshal(map[string]string{"display_name": name, "handle": handle, "text": text})
	req := httptest.NewRequest(http.MethodPost, "/senders/"+senderID+"/messages", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler_PostVideo(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, resp := postVideo(t, r, "1", "Alice", "@alice", []byte("clip"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, Accepted, resp.Verdict)
	assert.Equal(t, ReplyAccepted, resp.Reply)
	assert.NotEmpty(t, resp.Digest)
	assert.Nil(t, resp.FirstSubmitter)
	_, err := uuid.Parse(resp.SubmissionID)
	assert.NoError(t, err)

	rec, dup := postVideo(t, r, "2", "Bob", "", []byte("clip"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DuplicateOfOther, dup.Verdict)
	require.NotNil(t, dup.FirstSubmitter)
	assert.Equal(t, alice, *dup.FirstSubmitter, "handle is stored without the @")
	assert.Equal(t, resp.Digest, dup.Digest)
	assert.NotEqual(t, resp.SubmissionID, dup.SubmissionID)

	rec, own := postVideo(t, r, "1", "Alice", "alice", []byte("clip"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DuplicateOfSelf, own.Verdict)
	assert.Equal(t, ReplyDuplicateOwn, own.Reply)
}

func TestHandler_PostVideo_decode_failure(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, resp := postVideo(t, r, "1", "Alice", "alice", []byte("corrupt data"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, Failed, resp.Verdict)
	assert.Equal(t, ReplyDecodeFailed, resp.Reply)
	assert.Empty(t, resp.Digest)
}

func TestHandler_PostVideo_too_large(t *testing.T) {
	r, f := newTestRouter(t, WithMaxVideoBytes(8))

	rec, _ := postVideo(t, r, "1", "Alice", "alice", []byte("way more than eight bytes"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 0, f.svc.StoredDigests())
}

func TestHandler_PostVideo_persist_failure(t *testing.T) {
	r, f := newTestRouter(t)
	f.store.FailSaves(errors.New("disk full"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/senders/1/videos", strings.NewReader("clip")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), ReplyStoreFailed)
}

func TestHandler_PostMessage(t *testing.T) {
	r, _ := newTestRouter(t)

	assert.Equal(t, TextIgnored, postMessage(t, r, "1", "done").Kind)
	assert.Equal(t, TextLink, postMessage(t, r, "1", "http://x").Kind)

	resp := postMessage(t, r, "1", "done")
	assert.Equal(t, TextConfirmation, resp.Kind)
	assert.Equal(t, ReplyConfirmed, resp.Reply)
}

func TestHandler_PostMessage_bad_request(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/senders/1/messages", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ListUnsafe_and_LinkCount(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := get(t, r, "/senders/unsafe")
	require.Equal(t, http.StatusOK, rec.Code)
	var empty unsafeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.Equal(t, []string{}, empty.Senders)
	assert.Equal(t, ReplyNoUnsafe, empty.Reply)

	postMessage(t, r, "1", "http://x")

	rec = get(t, r, "/senders/unsafe")
	var list unsafeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []string{"@alice (Alice)"}, list.Senders)
	assert.Equal(t, "Unsafe users: @alice (Alice)", list.Reply)

	rec = get(t, r, "/links/count")
	var links linksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &links))
	assert.Equal(t, 1, links.TotalLinks)
	assert.Equal(t, "Total links received: 1", links.Reply)
}

func TestHandler_GetDigest(t *testing.T) {
	r, _ := newTestRouter(t)
	_, resp := postVideo(t, r, "1", "Alice", "alice", []byte("clip"))

	rec := get(t, r, "/digests/"+resp.Digest)
	require.Equal(t, http.StatusOK, rec.Code)
	var got digestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, resp.Digest, got.Digest)
	assert.Equal(t, "1", got.FirstSubmitter.ID)

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/digests/nonsense").Code)

	_, other := postVideo(t, r, "1", "Alice", "alice", []byte("other clip"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/digests/"+other.Digest).Code)
}

func TestHandler_Reset(t *testing.T) {
	r, f := newTestRouter(t)
	postMessage(t, r, "1", "http://x")
	postVideo(t, r, "2", "Bob", "bob", []byte("clip"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reset", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ReplyReset)
	assert.Equal(t, 0, f.svc.TotalLinksReceived())
	assert.Equal(t, 0, f.svc.StoredDigests())

	f.store.FailSaves(errors.New("disk full"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reset", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandler_Start(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := get(t, r, "/start")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ReplyWelcome)
}

func TestHandler_PostVideo_decode_finishing_past_deadline(t *testing.T) {
	r, f := newTestRouterWith(t, slowFingerprinter{delay: 50 * time.Millisecond},
		WithDecodeTimeout(5*time.Millisecond))

	rec, resp := postVideo(t, r, "1", "Alice", "alice", []byte("clip"))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, Accepted, resp.Verdict)
	assert.Equal(t, 1, f.svc.StoredDigests())
}

func TestHandler_PostMessage_handle_without_at(t *testing.T) {
	r, f := newTestRouter(t)

	postMessageAs(t, r, "1", " Alice ", "@alice", "http://x")

	rec, _ := f.tracker.Get("1")
	assert.Equal(t, alice, rec.Identity)
	assert.Equal(t, []string{"@alice (Alice)"}, slices.Collect(f.svc.ListUnsafeSenders()))
}

func TestHandler_PostVideo_without_headers_keeps_names(t *testing.T) {
	r, f := newTestRouter(t)
	postMessage(t, r, "1", "http://x")

	rec, resp := postVideo(t, r, "1", "", "", []byte("clip"))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, Accepted, resp.Verdict)

	stored, _ := f.tracker.Get("1")
	assert.Equal(t, alice, stored.Identity)

	_, dup := postVideo(t, r, "2", "Bob", "bob", []byte("clip"))
	require.NotNil(t, dup.FirstSubmitter)
	assert.Equal(t, alice, *dup.FirstSubmitter, "first submitter is credited with the known name")
}
