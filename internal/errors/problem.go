package errors

import (
	"encoding/json"
	"net/http"
)

const problemContentType = "application/problem+json"

// ProblemDetails is an RFC 7807 error body. Extension members are written
// alongside the standard ones; a standard member always wins on conflict.
type ProblemDetails struct {
	Type     string
	Title    string
	Status   int
	Detail   string
	Instance string

	Extensions map[string]interface{}
}

// NewProblemDetails builds a problem with no extensions.
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     problemType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

// WithExtension sets an extension member and returns pd for chaining.
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	if pd.Extensions == nil {
		pd.Extensions = map[string]interface{}{}
	}
	pd.Extensions[key] = value
	return pd
}

func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	members := make(map[string]interface{}, len(pd.Extensions)+5)
	for k, v := range pd.Extensions {
		members[k] = v
	}

	members["type"] = pd.Type
	members["title"] = pd.Title
	members["status"] = pd.Status
	for k, v := range map[string]string{"detail": pd.Detail, "instance": pd.Instance} {
		if v == "" {
			delete(members, k)
			continue
		}
		members[k] = v
	}
	return json.Marshal(members)
}

// WriteProblem sends pd as application/problem+json. Problems are never
// cached.
func WriteProblem(w http.ResponseWriter, pd *ProblemDetails) {
	h := w.Header()
	h.Set("Content-Type", problemContentType)
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(pd.Status)
	_ = json.NewEncoder(w).Encode(pd)
}
