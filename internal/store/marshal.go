package store

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/roach88/ontogen/internal/ir"
)

// marshalFindings converts finding messages to canonical JSON TEXT.
func marshalFindings(findings []string) (string, error) {
	if findings == nil {
		findings = []string{}
	}
	data, err := ir.MarshalCanonical(findings)
	if err != nil {
		return "", fmt.Errorf("marshal findings: %w", err)
	}
	return string(data), nil
}

// unmarshalFindings parses JSON TEXT to finding messages.
// Returns an empty slice (not nil) for an empty list.
func unmarshalFindings(data string) ([]string, error) {
	findings := []string{}
	if data == "" || data == "[]" {
		return findings, nil
	}
	if err := json.Unmarshal([]byte(data), &findings); err != nil {
		return nil, fmt.Errorf("unmarshal findings: %w", err)
	}
	return findings, nil
}

// marshalDocument converts a document to its canonical JSON TEXT.
func marshalDocument(doc *ir.Document) (string, error) {
	data, err := doc.Encode()
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

// unmarshalDocument parses a stored document and verifies its hash.
func unmarshalDocument(data string) (*ir.Document, error) {
	doc, err := ir.Decode([]byte(data))
	if err != nil {
		return nil, err
	}
	if err := doc.VerifyHash(); err != nil {
		return nil, fmt.Errorf("stored document: %w", err)
	}
	return doc, nil
}
