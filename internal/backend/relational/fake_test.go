package relational

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// fakeREST emulates the token endpoint and the subset of the REST dialect
// the store uses
type fakeREST struct {
	mu         sync.Mutex
	rows       []*row
	seq        int64
	validToken string
	tokenCalls int
	restCalls  int
	lastQuery  map[string][]string
}

func newFakeREST() *fakeREST {
	return &fakeREST{validToken: "tok-1"}
}

func (f *fakeREST) setValidToken(tok string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validToken = tok
}

func (f *fakeREST) counts() (tokens, rest int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls, f.restCalls
}

func (f *fakeREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/auth/token":
		f.tokenCalls++
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": fmt.Sprintf("tok-%d", f.tokenCalls),
			"expires_in":   3600,
		})
		return
	case "/rest/v1/employees":
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	f.restCalls++
	if r.Header.Get("Authorization") != "Bearer "+f.validToken {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "JWT expired"})
		return
	}

	q := r.URL.Query()
	f.lastQuery = q

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, f.match(q))
	case http.MethodPost:
		var in row
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
			return
		}
		f.seq++
		in.ID = f.seq
		f.rows = append(f.rows, &in)
		writeJSON(w, http.StatusCreated, []*row{&in})
	case http.MethodPatch:
		var cols map[string]any
		if err := json.NewDecoder(r.Body).Decode(&cols); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
			return
		}
		out := make([]*row, 0)
		for _, existing := range f.match(q) {
			current := map[string]any{}
			b, _ := json.Marshal(existing)
			_ = json.Unmarshal(b, &current)
			for k, v := range cols {
				current[k] = v
			}
			b, _ = json.Marshal(current)
			_ = json.Unmarshal(b, existing)
			out = append(out, existing)
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodDelete:
		matched := f.match(q)
		kept := f.rows[:0]
		for _, existing := range f.rows {
			if !containsRow(matched, existing) {
				kept = append(kept, existing)
			}
		}
		f.rows = kept
		writeJSON(w, http.StatusOK, matched)
	}
}

func (f *fakeREST) match(q map[string][]string) []*row {
	out := make([]*row, 0)
	for _, r := range f.rows {
		if rowMatches(r, q) {
			out = append(out, r)
		}
	}
	return out
}

func rowMatches(r *row, q map[string][]string) bool {
	for key, values := range q {
		if key == "select" || key == "order" || len(values) == 0 {
			continue
		}
		op, arg, _ := strings.Cut(values[0], ".")
		var field string
		switch key {
		case "id":
			field = strconv.FormatInt(r.ID, 10)
		case "name":
			field = r.Name
		case "email":
			field = r.Email
		case "phone":
			field = r.Phone
		case "department":
			field = r.Department
		case "position":
			field = r.Position
		}
		switch op {
		case "eq":
			if field != arg {
				return false
			}
		case "ilike":
			if !ilike(field, arg) {
				return false
			}
		}
	}
	return true
}

func ilike(value, pattern string) bool {
	v := strings.ToLower(value)
	p := strings.ToLower(pattern)
	prefix := strings.HasPrefix(p, "*")
	suffix := strings.HasSuffix(p, "*") && len(p) > 1
	core := strings.Trim(p, "*")
	switch {
	case prefix && suffix:
		return strings.Contains(v, core)
	case prefix:
		return strings.HasSuffix(v, core)
	case suffix:
		return strings.HasPrefix(v, core)
	}
	return v == core
}

func containsRow(rows []*row, r *row) bool {
	for _, x := range rows {
		if x.ID == r.ID {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
