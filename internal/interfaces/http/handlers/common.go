// Package handlers implements the citation API's HTTP handlers.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/turtacn/CiteScope/internal/interfaces/http/middleware"
	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// dataEnvelope is the standard success body: the payload under "data".
type dataEnvelope struct {
	Data interface{} `json:"data"`
}

// errorEnvelope is the standard error body.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeData(w http.ResponseWriter, status int, payload interface{}) {
	writeJSON(w, status, dataEnvelope{Data: payload})
}

// writeError maps an application error to its HTTP status via the error-code
// table.  Server-side causes are masked; the code and message travel as-is.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	body := errorBody{Code: string(code)}
	if appErr, ok := errors.AsAppError(err); ok {
		body.Message = appErr.Message
		body.Detail = appErr.Detail
	} else {
		body.Message = errors.DefaultMessageForCode(code)
	}
	if status >= 500 {
		body.Detail = ""
	}
	writeJSON(w, status, errorEnvelope{Error: body})
}

// decodeJSON reads a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "malformed request body")
	}
	return nil
}

// requestScope pulls the scope the middleware injected.
func requestScope(r *http.Request) (common.Scope, error) {
	scope, ok := middleware.ScopeFromContext(r.Context())
	if !ok {
		return common.Scope{}, errors.New(errors.ErrCodeInternal, "request scope missing from context")
	}
	return scope, nil
}

// queryInt parses an optional integer query parameter, clamped to [0, max].
func queryInt(r *http.Request, name string, max int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

//Personal.AI order the ending
