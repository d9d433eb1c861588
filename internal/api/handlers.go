package api

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	apperr "github.com/nicholaspatten/svgit/pkg/errors"
	"github.com/nicholaspatten/svgit/pkg/pipeline"
	"github.com/nicholaspatten/svgit/pkg/settings"
	"github.com/nicholaspatten/svgit/pkg/upload"
)

// maxMemory is how much of a multipart body is held in memory before
// spilling to disk.
const maxMemory = 32 << 20

func (s *Server) handleVectorize(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	st, err := settings.Resolve(settings.FieldsFromForm(r.FormValue))
	if err != nil {
		// Upload problems are reported ahead of settings problems.
		if _, verr := upload.NewValidator(s.maxBytes).Validate(up); verr != nil {
			err = verr
		}
		s.fail(w, r, err)
		return
	}

	res, err := s.conv.Execute(r.Context(), pipeline.Request{
		Upload:   up,
		Settings: st,
		Refresh:  r.URL.Query().Get("refresh") == "1",
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "image/svg+xml")
	h.Set("X-Svgit-Engine", res.Engine)
	h.Set("X-Svgit-Cache", cacheStatus(res.CacheHit))
	h.Set("X-Svgit-Duration-Ms", strconv.FormatInt(res.Stats.Total.Milliseconds(), 10))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.SVG)
	res.State = pipeline.StateResponded

	s.logger.Debug("responded",
		"id", res.ID,
		"preset", st.Preset,
		"engine", res.Engine,
		"state", res.State,
		"warnings", len(res.Warnings))
}

func cacheStatus(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// readUpload parses the multipart body and extracts the "image" part.
// A body over the size limit becomes FILE_TOO_LARGE before any tool runs.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload.Upload, error) {
	if r.ContentLength > s.maxBytes+formOverhead {
		return upload.Upload{}, s.tooLarge(r.ContentLength)
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes+formOverhead)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge), strings.Contains(err.Error(), "request body too large"):
			return upload.Upload{}, s.tooLarge(r.ContentLength)
		case errors.Is(err, http.ErrNotMultipart):
			return upload.Upload{}, apperr.New(apperr.ErrCodeMissingFile, "No file provided").
				WithDetails("expected a multipart/form-data body")
		}
		return upload.Upload{}, apperr.Wrap(apperr.ErrCodeEmptyOrCorrupt, err, "Failed to process uploaded file").
			WithDetails(err.Error())
	}

	file, hdr, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return upload.Upload{Present: false}, nil
	}
	if err != nil {
		return upload.Upload{}, apperr.Wrap(apperr.ErrCodeEmptyOrCorrupt, err, "Failed to process uploaded file").
			WithDetails(err.Error())
	}
	defer file.Close()

	if hdr.Size > s.maxBytes {
		return upload.Upload{}, s.tooLarge(hdr.Size)
	}
	data, err := io.ReadAll(io.LimitReader(file, s.maxBytes+1))
	if err != nil {
		return upload.Upload{}, apperr.Wrap(apperr.ErrCodeEmptyOrCorrupt, err, "Failed to process uploaded file").
			WithDetails(err.Error())
	}

	mt := hdr.Header.Get("Content-Type")
	if mt == "" || mt == "application/octet-stream" {
		if guess := upload.TypeFromFilename(hdr.Filename); guess != "" {
			mt = guess
		}
	}
	return upload.Upload{
		Present:  true,
		Filename: hdr.Filename,
		MIMEType: mt,
		Size:     hdr.Size,
		Data:     data,
	}, nil
}

func (s *Server) tooLarge(actual int64) error {
	return &sizeError{
		err: apperr.New(apperr.ErrCodeFileTooLarge, "File too large").
			WithDetails("maximum size is " + strconv.FormatInt(s.maxBytes>>20, 10) + "MB"),
		max:    s.maxBytes,
		actual: actual,
	}
}

// sizeError carries the sizes reported in a 413 body.
type sizeError struct {
	err         *apperr.Error
	max, actual int64
}

func (e *sizeError) Error() string { return e.err.Error() }
func (e *sizeError) Unwrap() error { return e.err }

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("conversion failed", "err", err, "request_id", middleware.GetReqID(r.Context()))
	} else {
		s.logger.Warn("rejected upload", "code", apperr.GetCode(err), "err", apperr.UserMessage(err))
	}

	var se *sizeError
	if errors.As(err, &se) {
		writeJSON(w, status, errorBody{
			Error:      se.err.Message,
			Details:    se.err.Details,
			Code:       string(se.err.Code),
			MaxSize:    se.max,
			ActualSize: se.actual,
		})
		return
	}
	writeError(w, err)
}

// fileInfo mirrors the metadata the browser reported for an upload.
type fileInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type testUploadResponse struct {
	Success      bool     `json:"success"`
	FileInfo     fileInfo `json:"fileInfo"`
	UserAgent    string   `json:"userAgent"`
	FormDataKeys []string `json:"formDataKeys"`
}

// handleTestUpload reports what the server received without converting.
func (s *Server) handleTestUpload(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	keys := formKeys(r)
	if !up.Present {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    "No file provided",
			"received": keys,
		})
		return
	}
	writeJSON(w, http.StatusOK, testUploadResponse{
		Success:      true,
		FileInfo:     fileInfo{Name: up.Filename, Type: up.MIMEType, Size: up.Size},
		UserAgent:    r.UserAgent(),
		FormDataKeys: keys,
	})
}

func formKeys(r *http.Request) []string {
	keys := []string{}
	if r.MultipartForm == nil {
		return keys
	}
	for k := range r.MultipartForm.Value {
		keys = append(keys, k)
	}
	for k := range r.MultipartForm.File {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// handleCheckBinaries probes the external tools.
func (s *Server) handleCheckBinaries(w http.ResponseWriter, r *http.Request) {
	if s.probe == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "binary check disabled"})
		return
	}
	start := time.Now()
	rep := s.probe(r.Context())
	s.logger.Debug("probed tools", "ready", rep.Ready(), "duration", time.Since(start).Round(time.Millisecond))
	writeJSON(w, http.StatusOK, rep)
}
