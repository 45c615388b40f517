package services

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/harshaldxb/leadengine/internal/apperr"
)

// Request kinds with a schema under schemas/.
const (
	RequestCreateAuction       = "create_auction"
	RequestSubmitResponse      = "submit_response"
	RequestResolveDeal         = "resolve_deal"
	RequestCalculateCommission = "calculate_commission"
	RequestAdjustReliability   = "adjust_reliability"
	RequestRecordInquiry       = "record_inquiry"
	RequestResolveInquiry      = "resolve_inquiry"
	RequestLogin               = "login"
	RequestRegisterAgent       = "register_agent"
	RequestCreateProperty      = "create_property"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Validator checks HTTP request bodies against their JSON schemas before
// they are decoded.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles every embedded *.v1.json schema, keyed by file name
// without the version suffix.
func NewValidator() (*Validator, error) {
	return newValidatorFS(schemaFS, "schemas")
}

func newValidatorFS(fsys fs.FS, dir string) (*Validator, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir %q: %w", dir, err)
	}
	schemas := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		kind := strings.TrimSuffix(strings.TrimSuffix(e.Name(), ".json"), ".v1")
		p := path.Join(dir, e.Name())
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", p, err)
		}
		id := "https://leadengine.harshal.ae/schemas/" + kind + ".json"
		schemas[kind], err = jsonschema.CompileString(id, string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", kind, err)
		}
	}
	return &Validator{schemas: schemas}, nil
}

// ValidateRequest hard-rejects a body that does not match the kind's schema.
func (v *Validator) ValidateRequest(kind string, body []byte) error {
	schema, ok := v.schemas[kind]
	if !ok {
		return fmt.Errorf("unknown request kind %q", kind)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return apperr.NewValidation("body", "invalid JSON: "+err.Error())
	}
	if err := schema.Validate(doc); err != nil {
		return apperr.NewValidation("body", schemaMessage(err))
	}
	return nil
}

// schemaMessage flattens a jsonschema error to its leaf causes.
func schemaMessage(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(msgs, "; ")
}
