package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/ingestion"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/models"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/schema"
)

// FilesField is the multipart field carrying the uploaded files.
const FilesField = "files"

type kindLink struct {
	Name  string
	Label string
}

type homePage struct {
	Title string
	Kinds []kindLink
}

type uploadPage struct {
	Title   string
	Kinds   []kindLink
	Action  string
	Summary *models.Summary
}

// kindLinks lists one upload page per record spec, in name order.
func (s *Server) kindLinks() []kindLink {
	names := s.opts.Specs.Names()
	links := make([]kindLink, 0, len(names))
	for _, name := range names {
		links = append(links, kindLink{Name: name, Label: s.opts.Specs[name].Label})
	}
	return links
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "home", homePage{Title: "Spreadsheet uploads", Kinds: s.kindLinks()})
}

func (s *Server) uploadHandler(spec *schema.RecordSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := uploadPage{
			Title:  fmt.Sprintf("Upload %s files", spec.Label),
			Kinds:  s.kindLinks(),
			Action: "/upload-" + spec.Name + "/",
		}
		if r.Method == http.MethodGet {
			s.render(w, r, "upload", page)
			return
		}

		files, err := s.readUploads(w, r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			switch {
			case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
				s.fail(w, r, http.StatusBadRequest, ingestion.ErrNoFiles.Error())
			case errors.As(err, &tooLarge):
				s.fail(w, r, http.StatusBadRequest, fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit))
			default:
				loggerFrom(r, s.log).WithError(err).Warn("malformed upload")
				s.fail(w, r, http.StatusBadRequest, "Malformed upload")
			}
			return
		}

		summary, err := s.opts.Ingester.Ingest(r.Context(), spec, files)
		if err != nil {
			if errors.Is(err, ingestion.ErrNoFiles) {
				s.fail(w, r, http.StatusBadRequest, err.Error())
				return
			}
			loggerFrom(r, s.log).WithError(err).Error("upload failed")
			s.fail(w, r, http.StatusInternalServerError, "Could not store the uploaded files")
			return
		}

		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, summary)
			return
		}
		page.Summary = &summary
		s.render(w, r, "upload", page)
	}
}

// readUploads parses the multipart body and reads every file of FilesField into
// memory.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]models.UploadedFile, error) {
	if s.opts.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize)
	}
	if err := r.ParseMultipartForm(s.opts.MaxUploadMemory); err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[FilesField]
	files := make([]models.UploadedFile, 0, len(headers))
	for _, h := range headers {
		data, err := readPart(h)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", h.Filename, err)
		}
		files = append(files, models.UploadedFile{Name: h.Filename, Data: data})
	}
	return files, nil
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// wantsJSON reports whether the client asked for a JSON response, either
// explicitly or as the page's XHR uploader.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	if wantsJSON(r) {
		writeJSON(w, status, map[string]string{"error": message})
		return
	}
	http.Error(w, message, status)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		loggerFrom(r, s.log).WithError(err).Error("failed to render page")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
