package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "fieldslots/pkg/errors"
)

// DecodeJSONBody decodes a single JSON document from the request body and
// rejects unknown fields and trailing data.
func DecodeJSONBody(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("request body is required")
		}
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	if dec.More() {
		return apperrors.InvalidInput("request body must contain a single JSON object")
	}
	return nil
}
