package server

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/policy"
)

//go:embed schemas/service_payload.json
var servicePayloadSchema []byte

const servicePayloadSchemaURL = "service_payload.json"

// payloadDecoder validates request bodies against the service payload schema
// before decoding them.
type payloadDecoder struct {
	schema *jsonschema.Schema
}

func newPayloadDecoder() (*payloadDecoder, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(servicePayloadSchema))
	if err != nil {
		return nil, fmt.Errorf("parse service payload schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(servicePayloadSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(servicePayloadSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile service payload schema: %w", err)
	}
	return &payloadDecoder{schema: schema}, nil
}

// decode validates body and decodes it into a ServicePayload.
func (d *payloadDecoder) decode(body []byte) (policy.ServicePayload, error) {
	var payload policy.ServicePayload

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return payload, fmt.Errorf("malformed JSON: %w", err)
	}
	if err := d.schema.Validate(inst); err != nil {
		return payload, fmt.Errorf("%s", formatSchemaError(err))
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

// formatSchemaError renders the first failing location as "$.a.b: reason".
func formatSchemaError(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	path := "$"
	if parts := ve.InstanceLocation; len(parts) > 0 {
		path = "$." + strings.Join(parts, ".")
	}
	msg := ve.Error()
	if len(msg) > 200 {
		msg = msg[:200] + "... (truncated)"
	}
	return fmt.Sprintf("validation failed at '%s': %s", path, msg)
}
