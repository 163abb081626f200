// Package baseline persists the last-accepted IR document.
//
// A baseline file is the canonical JSON encoding of a sealed document. On
// load it is checked in three passes: the header must name a supported
// ir_version, the body must match the CUE baseline schema, and the
// recorded ir_hash must match the content.
package baseline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/roach88/ontogen/internal/domainerr"
	"github.com/roach88/ontogen/internal/ir"
)

// header is the part of a baseline read before full validation.
type header struct {
	IRVersion string `json:"ir_version"`
	IRHash    string `json:"ir_hash"`
	Ontology  struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"ontology"`
}

// Load reads and verifies the baseline at path.
func Load(path string) (*ir.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domainerr.IO(fmt.Sprintf("baseline %s not found", path),
				"run `ontogen baseline` to record the current ontology as the baseline", err)
		}
		return nil, domainerr.IO(fmt.Sprintf("read baseline %s", path), "check the file permissions", err)
	}
	return Decode(data, path)
}

// Decode verifies and decodes baseline bytes. filename only labels errors.
func Decode(data []byte, filename string) (*ir.Document, error) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, domainerr.IO(fmt.Sprintf("baseline %s is not valid JSON", filename),
			"restore the file from version control or record a new baseline", err)
	}
	if h.IRVersion != ir.IRVersion {
		return nil, domainerr.IO(fmt.Sprintf("baseline %s has ir_version %q, want %q", filename, h.IRVersion, ir.IRVersion),
			"rebuild the baseline with this toolchain", nil)
	}

	if err := ValidateStructure(data, filename); err != nil {
		return nil, domainerr.IO("baseline failed schema validation",
			"restore the file from version control or record a new baseline", err)
	}

	doc, err := ir.Decode(data)
	if err != nil {
		return nil, domainerr.IO(fmt.Sprintf("decode baseline %s", filename), "record a new baseline", err)
	}
	if err := doc.VerifyHash(); err != nil {
		return nil, domainerr.IO(fmt.Sprintf("baseline %s was modified after it was recorded", filename),
			"restore the file from version control or record a new baseline", err)
	}
	return doc, nil
}

// Save writes the canonical encoding of doc to path, creating parent
// directories. The file is replaced atomically.
func Save(path string, doc *ir.Document) error {
	data, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("encode baseline: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domainerr.IO(fmt.Sprintf("create directory for %s", path), "check the directory permissions", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".baseline-*.json")
	if err != nil {
		return domainerr.IO(fmt.Sprintf("write baseline %s", path), "check the directory permissions", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domainerr.IO(fmt.Sprintf("write baseline %s", path), "check free disk space", err)
	}
	if err := tmp.Close(); err != nil {
		return domainerr.IO(fmt.Sprintf("write baseline %s", path), "check free disk space", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return domainerr.IO(fmt.Sprintf("replace baseline %s", path), "check the file permissions", err)
	}
	return nil
}

// Pretty renders a document as indented JSON for people. It is not the
// hashed form; use Document.Encode for that.
func Pretty(doc *ir.Document) ([]byte, error) {
	doc.Normalize()
	return json.MarshalIndent(doc, "", "  ")
}

// Describe summarizes a baseline without fully validating it.
func Describe(data []byte) (name, version, hash string, err error) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return "", "", "", fmt.Errorf("read baseline header: %w", err)
	}
	return h.Ontology.Name, h.Ontology.Version, h.IRHash, nil
}
