package handler

import (
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"growset/internal/poll/model"
	"growset/internal/poll/service"
	"growset/internal/view"
	"growset/pkg/logger"
	"growset/socket"
)

const maxFormBytes = 1 << 20

type PollHandler struct {
	Service  *service.PollService
	Renderer *view.Renderer
	Hub      *socket.Hub
	Static   fs.FS
}

func NewPollHandler(svc *service.PollService, renderer *view.Renderer, hub *socket.Hub, static fs.FS) *PollHandler {
	return &PollHandler{Service: svc, Renderer: renderer, Hub: hub, Static: static}
}

// GetIndex lists every poll alongside the creation form.
func (h *PollHandler) GetIndex(w http.ResponseWriter, r *http.Request) {
	polls, err := h.Service.ListPolls(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	h.render(w, r, "index.html", view.IndexPage{Polls: polls})
}

// CreatePoll handles POST / with a title and optional choices[].
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}

	id, err := h.Service.CreatePoll(model.CreatePollRequest{
		Title:   r.PostFormValue("title"),
		Choices: formValues(r, "choices"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	redirect(w, "/"+id)
}

// GetPoll renders a poll with its entries.
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollView, err := h.Service.GetPoll(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.render(w, r, "poll.html", pollView)
}

// AddEntry handles POST /{id}: an element for lists, a responder and
// choices[] for votes.
func (h *PollHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := parseForm(w, r); err != nil {
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}

	_, err := h.Service.AddEntry(id, model.EntryRequest{
		Element:   r.PostFormValue("element"),
		Responder: r.PostFormValue("responder"),
		Choices:   formValues(r, "choices"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	redirect(w, "/"+id)
}

// Remove handles POST /remove with the poll id in the form.
func (h *PollHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}
	id := strings.TrimSpace(r.PostFormValue("id"))
	if err := h.Service.Remove(r.Context(), id, service.ReasonRemoved); err != nil {
		h.writeError(w, r, err)
		return
	}
	redirect(w, "/")
}

// Live upgrades to a websocket that streams new entries of the poll.
func (h *PollHandler) Live(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.Service.Poll(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	socket.ServeWs(h.Hub, w, r, id)
}

// Asset serves a file from the static FS with the given content type.
func (h *PollHandler) Asset(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(h.Static, name)
		if err != nil {
			internalError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Write(data)
	}
}

func (h *PollHandler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	html, err := h.Renderer.Render(name, data)
	if err != nil {
		internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

func (h *PollHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		NotFound(w, r)
	case errors.Is(err, model.ErrValidation):
		logger.Sugar.Infof("Rejected %s %s: %v", r.Method, r.URL.Path, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		internalError(w, r, err)
	}
}

// NotFound answers 404 with a short plain body.
func NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("Not found."))
}

// internalError logs the cause and answers 500 with an empty body.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.Sugar.Errorf("Handler: %s %s failed: %v", r.Method, r.URL.Path, err)
	w.WriteHeader(http.StatusInternalServerError)
}

func redirect(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusSeeOther)
}

// parseForm accepts multipart bodies, falling back to urlencoded ones.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	err := r.ParseMultipartForm(maxFormBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// formValues collects a repeated field sent either as name[] or name.
func formValues(r *http.Request, name string) []string {
	values := append([]string{}, r.PostForm[name+"[]"]...)
	return append(values, r.PostForm[name]...)
}
