package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/wortal/internal/errors"
	"github.com/hpungsan/wortal/internal/normalize"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderError writes err as {error:{code,message,status,details}} with the
// kind's status code.
func renderError(w http.ResponseWriter, err error) {
	var wErr *errors.WortalError
	if !stderrors.As(normalize.Error(err), &wErr) {
		wErr = errors.NewRethrow(err.Error())
	}

	errorObj := map[string]any{
		"code":    string(wErr.Code),
		"message": wErr.Message,
		"status":  wErr.Status,
	}
	if wErr.Details != nil {
		errorObj["details"] = wErr.Details
	}
	renderJSON(w, wErr.Status, map[string]any{"error": errorObj})
}

// decodeBody reads a JSON body into T. An empty body yields the zero value.
func decodeBody[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var v T
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return v, errors.NewInvalidParam("body", err.Error())
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return v, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, errors.NewInvalidParam("body", err.Error())
	}
	return v, nil
}

// queryInt parses an optional integer query parameter. Absent means nil.
func queryInt(r *http.Request, name string) (*int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, errors.NewInvalidParam(name, "must be an integer")
	}
	return &n, nil
}

// queryIntDefault parses an integer query parameter, returning def when absent.
func queryIntDefault(r *http.Request, name string, def int) (int, error) {
	n, err := queryInt(r, name)
	if err != nil || n == nil {
		return def, err
	}
	return *n, nil
}

// queryList collects a list parameter given as repeated values or comma-separated.
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
