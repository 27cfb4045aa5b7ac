package httpapi

import (
	"fmt"
	"strings"

	"github.com/searchlab/ranksearch/internal/document"
)

const maxTextLength = 1048576

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// validateAddDocument checks an add-document body and returns the parsed
// document status. An empty status field defaults to ACTUAL.
func validateAddDocument(req *AddDocumentRequest) (document.Status, error) {
	errs := make(map[string]string)

	if req.ID == nil {
		errs["document_id"] = "document_id is required"
	} else if *req.ID < 0 {
		errs["document_id"] = "document_id must be a non-negative integer"
	}
	if len(req.Text) > maxTextLength {
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
	}

	status := document.StatusActual
	if req.Status != "" {
		parsed, err := document.ParseStatus(req.Status)
		if err != nil {
			errs["status"] = err.Error()
		} else {
			status = parsed
		}
	}

	if len(errs) > 0 {
		return "", &ValidationError{Fields: errs}
	}
	return status, nil
}
