package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growset/config"
	"growset/internal/poll/model"
	"growset/internal/poll/repository"
	"growset/internal/poll/service"
	"growset/internal/view"
	"growset/web"
)

func newHandler(t *testing.T, templates fstest.MapFS) *PollHandler {
	t.Helper()
	repo := repository.NewPollRepository(filepath.Join(t.TempDir(), "data"), 3)
	svc := service.NewPollService(repo, config.Config{IDBytes: 16, EntryOrder: config.OrderInsertion})
	renderer := view.NewRenderer(web.Templates())
	if templates != nil {
		renderer = view.NewRenderer(templates)
	}
	return NewPollHandler(svc, renderer, nil, web.Static())
}

func TestCreatePollAcceptsURLEncodedForm(t *testing.T) {
	h := newHandler(t, nil)

	form := url.Values{"title": {"Lunch"}, "choices": {"Pizza", "Tacos"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	h.CreatePoll(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	id := strings.TrimPrefix(rr.Header().Get("Location"), "/")
	view, err := h.Service.GetPoll(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pizza", "Tacos"}, view.Choices)
}

func TestRenderFailureIsInternalError(t *testing.T) {
	h := newHandler(t, fstest.MapFS{
		"poll.html": {Data: []byte(`{{template "head" .}}`)},
	})
	id, err := h.Service.CreatePoll(model.CreatePollRequest{Title: "Lunch"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/"+id, nil)
	req.SetPathValue("id", id)
	rr := httptest.NewRecorder()
	h.GetPoll(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestGetPollNotFound(t *testing.T) {
	h := newHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/0123456789abcdef0123456789abcdef", nil)
	req.SetPathValue("id", "0123456789abcdef0123456789abcdef")
	rr := httptest.NewRecorder()
	h.GetPoll(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Not found.", rr.Body.String())
}

func TestRemoveRequiresID(t *testing.T) {
	h := newHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/remove", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.Remove(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMissingAssetIsInternalError(t *testing.T) {
	h := newHandler(t, nil)
	h.Static = fstest.MapFS{}

	rr := httptest.NewRecorder()
	h.Asset("styles.css", "text/css")(rr, httptest.NewRequest(http.MethodGet, "/styles.css", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
