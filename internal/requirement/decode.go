// Package requirement decodes business requirements from their two supported
// encodings: JSON (HTTP API) and CUE (CLI). Both yield the same struct, so a
// requirement authored either way produces the same plan.
package requirement

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"

	"github.com/strogmv/forge/internal/domain"
)

// DecodeJSON parses a JSON-encoded requirement.
func DecodeJSON(data []byte) (domain.BusinessRequirement, error) {
	var req domain.BusinessRequirement
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.BusinessRequirement{}, fmt.Errorf("decode requirement: %w", err)
	}
	return req, nil
}

// DecodeCUE compiles a CUE-encoded requirement and decodes it into the same
// struct shape as the JSON form.
func DecodeCUE(data []byte) (domain.BusinessRequirement, error) {
	v := cuecontext.New().CompileBytes(data)
	if err := v.Err(); err != nil {
		return domain.BusinessRequirement{}, fmt.Errorf("compile requirement: %w", err)
	}
	var req domain.BusinessRequirement
	if err := v.Decode(&req); err != nil {
		return domain.BusinessRequirement{}, fmt.Errorf("decode requirement: %w", err)
	}
	return req, nil
}

// LoadFile reads a requirement file, choosing the decoder by extension.
func LoadFile(path string) (domain.BusinessRequirement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.BusinessRequirement{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return DecodeCUE(data)
	case ".json":
		return DecodeJSON(data)
	default:
		return domain.BusinessRequirement{}, fmt.Errorf("unsupported requirement format %q", filepath.Ext(path))
	}
}
