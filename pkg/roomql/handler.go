package roomql

import (
	"encoding/json"
	"net/http"
)

type requestBody struct {
	Query string `json:"query"`
}

// Handler serves POST /graphql, decoding {"query": "..."} and returning
// graphql-go's standard {data, errors} envelope.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "roomql: POST only", http.StatusMethodNotAllowed)
			return
		}
		var body requestBody
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "roomql: malformed request body", http.StatusBadRequest)
			return
		}
		result := s.Execute(req.Context(), body.Query)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	})
}
