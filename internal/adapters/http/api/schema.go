package api

import (
	"net/http"

	"github.com/okian/sketchmatch/internal/domain/extract"
)

// schemaRequest mirrors the OpenAPI schema for POST /schema.
type schemaRequest struct {
	Content    string `json:"content"`
	ArrayField string `json:"array_field"`
}

type schemaResponse struct {
	ArrayKeys   []string `json:"array_keys"`
	ElementKeys []string `json:"element_keys"`
}

// SchemaHandler lists the fields a record offers for extraction.
type SchemaHandler struct{}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler() *SchemaHandler {
	return &SchemaHandler{}
}

// HandlePostSchema handles POST /schema requests. Element keys are taken
// from array_field, or from the first array key when it is omitted.
func (h *SchemaHandler) HandlePostSchema(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_schema"
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req schemaRequest
	if err := decodeJSON(op, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	rec, err := extract.Parse("content", []byte(req.Content))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	resp := schemaResponse{ArrayKeys: extract.ArrayKeys(rec)}
	field := req.ArrayField
	if field == "" && len(resp.ArrayKeys) > 0 {
		field = resp.ArrayKeys[0]
	}
	resp.ElementKeys = extract.ElementKeys(rec, field)
	if resp.ElementKeys == nil {
		resp.ElementKeys = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}
