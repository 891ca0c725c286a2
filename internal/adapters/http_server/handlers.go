// internal/adapters/http_server/handlers.go
package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"wanderlust/internal/app"
	"wanderlust/internal/domain"
)

const (
	ownerHeader = "X-User-ID"
	imageField  = "listing[image][url]"
)

type Handlers struct {
	M *app.MutationService
	Q *app.QueryService

	MaxUploadBytes int64
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto distinguishable HTTP outcomes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "listing not found")
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid listing", err.Error())
	case errors.Is(err, domain.ErrUpload):
		writeProblem(w, http.StatusBadGateway, "Upload failed", "image upload failed, listing was not saved")
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func (h *Handlers) index(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.SearchByCountry(r.Context(), r.URL.Query().Get("country"))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Search failed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) show(w http.ResponseWriter, r *http.Request) {
	l, err := h.Q.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handlers) edit(w http.ResponseWriter, r *http.Request) {
	v, err := h.Q.EditView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.Header.Get(ownerHeader))
	if owner == "" {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "you must be signed in to create a listing")
		return
	}
	f, location, up, err := h.parseForm(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	l, err := h.M.Create(r.Context(), f, owner, location, up)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/listings/"+l.ID)
	writeJSON(w, http.StatusCreated, l)
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	f, location, up, err := h.parseForm(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	l, err := h.M.Update(r.Context(), chi.URLParam(r, "id"), f, location, up)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handlers) destroy(w http.ResponseWriter, r *http.Request) {
	if err := h.M.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseForm reads listing[...] fields from a multipart or urlencoded body. A file
// part without a name or content counts as no upload.
func (h *Handlers) parseForm(w http.ResponseWriter, r *http.Request) (domain.ListingFields, string, *domain.Upload, error) {
	var f domain.ListingFields
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)

	if err := r.ParseMultipartForm(limit); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return f, "", nil, invalid("malformed form: " + err.Error())
		}
		if err := r.ParseForm(); err != nil {
			return f, "", nil, invalid("malformed form: " + err.Error())
		}
	}

	f.Title = r.FormValue("listing[title]")
	f.Description = r.FormValue("listing[description]")
	f.Country = r.FormValue("listing[country]")
	f.Category = r.FormValue("listing[category]")
	if p := strings.TrimSpace(r.FormValue("listing[price]")); p != "" {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return f, "", nil, invalid("price must be a non-negative number")
		}
		f.Price = &v
	}
	location := r.FormValue("listing[location]")

	file, hdr, err := r.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return f, location, nil, nil
		}
		return f, "", nil, invalid("unreadable image: " + err.Error())
	}
	defer file.Close()
	if hdr.Filename == "" || hdr.Size == 0 {
		return f, location, nil, nil
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return f, "", nil, invalid("unreadable image: " + err.Error())
	}
	return f, location, &domain.Upload{
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

type invalidInput string

func (e invalidInput) Error() string        { return string(e) }
func (e invalidInput) Is(target error) bool { return target == domain.ErrInvalidInput }

func invalid(msg string) error { return invalidInput(msg) }
