package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	ie "github.com/voidshard/b2b/pkg/errors"
)

var (
	errmap map[int][]error = map[int][]error{
		http.StatusBadRequest: []error{
			ie.ErrInvalidArg,
			ie.ErrNotSupported,
		},
		http.StatusNotFound: []error{
			ie.ErrNotFound,
			ie.ErrNoSuchExecution,
		},
		http.StatusConflict: []error{
			ie.ErrInvalidState,
			ie.ErrAlreadyRunning,
			ie.ErrAlreadyExists,
			ie.ErrOptimisticLock,
		},
	}
)

// mapError returns the http status code for a given error from b2b, or
// http.StatusInternalServerError if the error is not recognised.
func mapError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for code, errs := range errmap {
		for _, e := range errs {
			if errors.Is(err, e) {
				return code
			}
		}
	}
	return http.StatusInternalServerError
}

// unmarshalPage reads offset & limit from the query string.
// This function writes an error to the writer if an error occurs, and returns the error.
func unmarshalPage(w http.ResponseWriter, r *http.Request) (int, int, error) {
	q := r.URL.Query()

	var offset, limit int
	var err error
	if q.Has("offset") {
		offset, err = strconv.Atoi(q.Get("offset"))
		if err != nil || offset < 0 {
			http.Error(w, "bad offset", http.StatusBadRequest)
			return 0, 0, fmt.Errorf("bad offset: %s", q.Get("offset"))
		}
	}
	if q.Has("limit") {
		limit, err = strconv.Atoi(q.Get("limit"))
		if err != nil || limit < 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return 0, 0, fmt.Errorf("bad limit: %s", q.Get("limit"))
		}
	}
	return offset, limit, nil
}

// unmarshalID reads the {id} path variable
func unmarshalID(w http.ResponseWriter, r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "bad id", http.StatusBadRequest)
		return 0, fmt.Errorf("bad id: %s", raw)
	}
	return id, nil
}

// unmarshalJson reads the body of a request and attempts to unmarshal it into the given object.
// This function write an error to the writer if an error occurs, and returns the error.
func unmarshalJson(w http.ResponseWriter, r *http.Request, obj interface{}) error {
	if r.Body == nil {
		http.Error(w, "No body", http.StatusBadRequest)
		return fmt.Errorf("no body")
	}
	d := json.NewDecoder(r.Body)
	d.DisallowUnknownFields() // catch unwanted fields
	d.UseNumber()

	err := d.Decode(obj)
	if err != nil {
		// bad JSON or unrecognized json field
		http.Error(w, err.Error(), http.StatusBadRequest)
		return fmt.Errorf("bad json: %v", err)
	}

	return nil
}

func writeJson(w http.ResponseWriter, code int, obj interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(obj)
}
