// Package respond renders the router's fallback responses (unknown path,
// wrong method, recovered panic) as RFC 9457 problem details.
package respond

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	applog "github.com/janisto/index-page/internal/platform/logging"
)

const (
	ContentTypeProblemJSON = "application/problem+json"
	ContentTypeProblemCBOR = "application/problem+cbor"

	msgNotFound          = "resource not found"
	msgInternalServerErr = "internal server error"
)

// NotFoundHandler emits a 404 problem response.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applog.LogDebug(r.Context(), "route not found", zap.String("path", r.URL.Path))
		WriteProblem(w, r, http.StatusNotFound, msgNotFound)
	}
}

// MethodNotAllowedHandler emits a 405 problem response with an Allow header
// listing the methods registered for the path.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		WriteProblem(w, r, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
	}
}

// Recoverer converts panics into 500 problem responses. http.ErrAbortHandler
// is re-panicked so net/http can abort the connection, and nothing is written
// when the handler already started the response.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				err, ok := rec.(error)
				if ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				applog.LogError(r.Context(), "panic recovered", err, zap.ByteString("stack", debug.Stack()))
				if rw.wroteHeader {
					return
				}
				WriteProblem(rw, r, http.StatusInternalServerError, msgInternalServerErr)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// WriteProblem writes a problem body for status, encoded as CBOR when the
// request's Accept header prefers it and as JSON otherwise.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	problem := &problemBody{
		ErrorModel: huma.ErrorModel{
			Title:    http.StatusText(status),
			Status:   status,
			Detail:   detail,
			Instance: r.URL.Path,
		},
		TraceID: applog.TraceIDFromContext(r.Context()),
	}

	h := w.Header()
	addVary(h, "Origin", "Accept")

	var body []byte
	var err error
	if prefersCBOR(r.Header.Get("Accept")) {
		h.Set("Content-Type", ContentTypeProblemCBOR)
		body, err = cbor.Marshal(problem)
	} else {
		h.Set("Content-Type", ContentTypeProblemJSON)
		body, err = marshalJSON(problem)
	}
	if err != nil {
		applog.LogError(r.Context(), "failed to encode problem", err, zap.Int("status", status))
		h.Set("Content-Type", "text/plain; charset=utf-8")
		body = []byte(http.StatusText(status))
	}

	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		applog.LogWarn(r.Context(), "failed to write problem", zap.Error(err))
	}
}

// problemBody extends the problem document with the request's correlation
// identifier, matching the requestId / trace field in the logs.
type problemBody struct {
	huma.ErrorModel
	TraceID string `json:"traceId,omitempty" cbor:"traceId,omitempty"`
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// prefersCBOR reports whether accept ranks a CBOR type strictly above every
// explicit JSON type and at least as high as any wildcard. Ties go to JSON.
func prefersCBOR(accept string) bool {
	var cborQ, jsonQ, wildQ float64
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		q := qValue(params)
		switch mediaType {
		case "application/cbor", ContentTypeProblemCBOR:
			cborQ = max(cborQ, q)
		case "application/json", ContentTypeProblemJSON:
			jsonQ = max(jsonQ, q)
		case "*/*", "application/*":
			wildQ = max(wildQ, q)
		}
	}
	return cborQ > 0 && cborQ > jsonQ && cborQ >= wildQ
}

func qValue(params map[string]string) float64 {
	raw, ok := params["q"]
	if !ok {
		return 1
	}
	q, err := strconv.ParseFloat(raw, 64)
	if err != nil || q < 0 {
		return 0
	}
	return min(q, 1)
}

func addVary(h http.Header, values ...string) {
	seen := make(map[string]struct{})
	for _, existing := range h.Values("Vary") {
		for _, v := range strings.Split(existing, ",") {
			seen[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
		}
	}
	for _, v := range values {
		if _, ok := seen[strings.ToLower(v)]; ok {
			continue
		}
		h.Add("Vary", v)
	}
}

// allowedMethods inspects chi's routing tree to discover the methods served for the request path.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}

	routePath := rctx.RoutePath
	if routePath == "" {
		routePath = r.URL.RawPath
		if routePath == "" {
			routePath = r.URL.Path
		}
		if routePath == "" {
			routePath = "/"
		}
	}

	methods := []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowed := make([]string, 0, len(methods))
	for _, method := range methods {
		if rctx.Routes.Match(chi.NewRouteContext(), method, routePath) {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

// responseWriter records whether the response has started so Recoverer
// does not write a second status line.
type responseWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
