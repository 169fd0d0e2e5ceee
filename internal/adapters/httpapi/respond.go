package httpapi

import (
	"booklist/internal/logger"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

const (
	headerContentType   = "Content-Type"
	contentTypeJSONUTF8 = "application/json; charset=utf-8"
)

// httpError carries the status code and public message of a failed request.
// The wrapped cause is logged but never sent to the client.
type httpError struct {
	Code    int
	Message string
	Err     error
}

func (e *httpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

func (e *httpError) Unwrap() error { return e.Err }

func errBadRequest(message string, cause error) error {
	return &httpError{Code: http.StatusBadRequest, Message: message, Err: cause}
}

func errNotFound(message string, cause error) error {
	return &httpError{Code: http.StatusNotFound, Message: message, Err: cause}
}

func errConflict(message string, cause error) error {
	return &httpError{Code: http.StatusConflict, Message: message, Err: cause}
}

func errBadGateway(message string, cause error) error {
	return &httpError{Code: http.StatusBadGateway, Message: message, Err: cause}
}

// appHandler is a handler that reports failures by returning them.
type appHandler func(w http.ResponseWriter, r *http.Request) error

func makeHandler(h appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		log := logger.For(r.Context()).WithField("path", r.URL.Path).WithField("method", r.Method)

		var herr *httpError
		if errors.As(err, &herr) {
			if herr.Code >= 500 {
				log.Errorf("Request failed: %v", err)
			} else {
				log.Warnf("Request rejected: %v", err)
			}
			respondWithError(w, herr.Code, herr.Message)
			return
		}

		log.Errorf("Unhandled error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logrus.Errorf("Failed to marshal JSON response: %v", err)
		w.Header().Set(headerContentType, contentTypeJSONUTF8)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}
	w.Header().Set(headerContentType, contentTypeJSONUTF8)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errBadRequest("invalid JSON body", err)
	}
	return nil
}
