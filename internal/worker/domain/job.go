package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Job is one activated job as handed out by the gateway
type Job struct {
	Key                int64
	Type               string
	Variables          string // JSON object
	ProcessInstanceKey int64
	BpmnProcessID      string
	ElementID          string
	Worker             string
	Retries            int32
	Deadline           time.Time
}

// DocumentMetadata describes a document stored in the cluster's document store
type DocumentMetadata struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// DocumentReference identifies a stored document from within job variables
type DocumentReference struct {
	DocumentID  string           `json:"documentId"`
	ContentHash string           `json:"contentHash"`
	StoreID     string           `json:"storeId,omitempty"`
	Metadata    DocumentMetadata `json:"metadata"`
}

// JobInput is the parsed view of a job's variables
type JobInput struct {
	OutputVarName string
	Documents     []DocumentReference
	Variables     map[string]any
}

// Document returns the reference the worker converts
func (in *JobInput) Document() DocumentReference {
	return in.Documents[0]
}

const variablesSchema = `{
  "type": "object",
  "required": ["outputVarName", "document"],
  "properties": {
    "outputVarName": {"type": "string", "minLength": 1},
    "document": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["documentId", "contentHash", "metadata"],
        "properties": {
          "documentId": {"type": "string", "minLength": 1},
          "contentHash": {"type": "string"},
          "metadata": {
            "type": "object",
            "required": ["fileName"],
            "properties": {
              "fileName": {"type": "string", "minLength": 1}
            }
          }
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("variables.json", strings.NewReader(variablesSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("variables.json")
	})
	return schema, schemaErr
}

// ParseInput validates and decodes the job variables. Errors wrap ErrInvalidVariables.
func ParseInput(variables string) (*JobInput, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal([]byte(variables), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVariables, err)
	}
	if err := s.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVariables, err)
	}

	var typed struct {
		OutputVarName string              `json:"outputVarName"`
		Document      []DocumentReference `json:"document"`
	}
	if err := json.Unmarshal([]byte(variables), &typed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVariables, err)
	}

	// numbers are kept verbatim so untouched variables round-trip exactly
	dec := json.NewDecoder(bytes.NewReader([]byte(variables)))
	dec.UseNumber()
	var all map[string]any
	if err := dec.Decode(&all); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVariables, err)
	}

	return &JobInput{
		OutputVarName: typed.OutputVarName,
		Documents:     typed.Document,
		Variables:     all,
	}, nil
}

// WithOutput returns the completion variables: the job's variables plus result under OutputVarName
func (in *JobInput) WithOutput(result string) map[string]any {
	out := make(map[string]any, len(in.Variables)+1)
	for k, v := range in.Variables {
		out[k] = v
	}
	out[in.OutputVarName] = result
	return out
}
