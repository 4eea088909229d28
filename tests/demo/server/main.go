// Command server is a fixture GraphQL endpoint for exercising the graphrow
// CLI without a real backend. It answers each POSTed operation with a canned
// response body keyed by the request's operation name.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

type graphqlRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// fixture maps an operation name to the complete response body served for
// it. The "" key answers requests that carry no operation name.
type fixture map[string]json.RawMessage

// Seed payloads in the shape row-store directives act on: every mergeable
// object carries an id next to its scalar cells, lists fan out per element.
var usersPayload = json.RawMessage(`{
  "data": {
    "users": [
      {"id": "user-1", "email": "john@example.com", "name": "John Doe", "age": 30, "isActive": true},
      {"id": "user-2", "email": "jane@example.com", "name": "Jane Smith", "age": 28, "isActive": true},
      {"id": "user-3", "email": "bob@example.com", "name": "Bob Johnson", "age": 35, "isActive": false}
    ]
  }
}`)

var builtinFixture = fixture{
	"":      usersPayload,
	"Users": usersPayload,
	"Feed": json.RawMessage(`{
  "data": {
    "feed": [
      {
        "id": "post-1",
        "title": "Getting Started with Go",
        "published": true,
        "author": {"id": "user-1", "name": "John Doe"}
      },
      {
        "id": "post-2",
        "title": "GraphQL Best Practices",
        "published": true,
        "author": {"id": "user-2", "name": "Jane Smith"}
      }
    ],
    "removedPosts": ["post-3"]
  }
}`),
	"DeleteUser": json.RawMessage(`{
  "data": {
    "deleteUser": {"id": "user-3"}
  }
}`),
}

func main() {
	addr := flag.String("addr", ":8080", "the address to listen on")
	fixturePath := flag.String("fixture", "", "JSON file mapping operation name to response body")
	flag.Parse()

	fx := builtinFixture
	if *fixturePath != "" {
		loaded, err := loadFixture(*fixturePath)
		if err != nil {
			log.Fatalf("failed to load fixture: %v", err)
		}
		fx = loaded
	}

	log.Printf("fixture GraphQL server starting on %s (%d operations)", *addr, len(fx))
	if err := http.ListenAndServe(*addr, handler(fx)); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}

func loadFixture(path string) (fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx fixture
	if err := json.Unmarshal(b, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return fx, nil
}

func handler(fx fixture) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
			return
		}
		defer r.Body.Close()

		var req graphqlRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
			return
		}
		if req.Query == "" {
			writeJSON(w, http.StatusBadRequest, errorBody("missing 'query'"))
			return
		}

		res, ok := fx[req.OperationName]
		if !ok {
			res, ok = fx[""]
		}
		if !ok {
			writeJSON(w, http.StatusOK, errorBody(fmt.Sprintf("no fixture for operation %q", req.OperationName)))
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write(res)
		log.Printf("graphql op=%q bytes=%d duration=%s", req.OperationName, len(res), time.Since(start))
	}
}

type errorResponse struct {
	Errors []errorEntry `json:"errors"`
}

type errorEntry struct {
	Message string `json:"message"`
}

func errorBody(msg string) errorResponse {
	return errorResponse{Errors: []errorEntry{{Message: msg}}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
