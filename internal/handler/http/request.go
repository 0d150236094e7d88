package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/laocai-wudi/chunmpre.cn/internal/asset"
	"github.com/laocai-wudi/chunmpre.cn/internal/service"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
	"github.com/laocai-wudi/chunmpre.cn/pkg/httputil"
)

// DefaultMaxRequestBytes caps a multipart upload request.
const DefaultMaxRequestBytes = 50 << 20

// maxJSONBytes caps JSON request bodies.
const maxJSONBytes = 1 << 20

// multipartMemory is kept in memory before parts spill to temp files.
const multipartMemory = 8 << 20

// Multipart field names.
const (
	imageField = "image"
	fileField  = "file"
)

// decodeJSON decodes the body without validating it; the service validates
// after normalizing the input.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	return nil
}

func writeParamError(w http.ResponseWriter, message string) {
	httputil.WriteBadRequest(w, "INVALID_PARAMETER", message)
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (*bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", name)
	}
	return &b, nil
}

// queryString returns a pointer to a non-empty query parameter.
func queryString(r *http.Request, name string) *string {
	if v := r.URL.Query().Get(name); v != "" {
		return &v
	}
	return nil
}

// queryUUID returns an optional id filter, rejecting values that are not
// UUIDs before they reach the uuid columns.
func queryUUID(r *http.Request, name string) (*string, error) {
	v := queryString(r, name)
	if v == nil {
		return nil, nil
	}
	if _, err := uuid.Parse(*v); err != nil {
		return nil, fmt.Errorf("%s must be a UUID", name)
	}
	return v, nil
}

// queryInt parses an integer query parameter, falling back to zero.
func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

// readUploads parses a multipart request and returns every file sent under
// field. On failure it writes the error response and returns false.
func readUploads(w http.ResponseWriter, r *http.Request, maxBytes int64, field string) ([]service.Upload, bool) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:    "REQUEST_TOO_LARGE",
					Message: fmt.Sprintf("request exceeds the %d MiB limit", maxBytes>>20),
				},
			})
			return nil, false
		}
		httputil.WriteBadRequest(w, "INVALID_INPUT", "failed to parse multipart form: "+err.Error())
		return nil, false
	}

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		httputil.WriteBadRequest(w, "INVALID_INPUT", fmt.Sprintf("no file sent in field %q", field))
		return nil, false
	}

	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		u, err := readPart(fh)
		if err != nil {
			httputil.WriteBadRequest(w, "INVALID_INPUT", "failed to read "+fh.Filename+": "+err.Error())
			return nil, false
		}
		uploads = append(uploads, u)
	}
	return uploads, true
}

func readPart(fh *multipart.FileHeader) (service.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.Upload{}, err
	}
	return service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func writeDownload(w http.ResponseWriter, d *asset.Download) {
	httputil.WriteBinary(w, d.Data, d.MimeType, d.Filename)
}
