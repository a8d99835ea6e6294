// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
)

const schemaBaseURL = "https://schemas.lfx.dev/recording-ingest/"

// Boundary schemas. They check shape only; semantic checks happen after the
// payload is decoded into its typed variant.
var providerSchemas = map[models.Provider]string{
	models.ProviderFathom: `{
		"type": "object",
		"required": ["recording_id"],
		"properties": {
			"recording_id": {"type": ["integer", "string"]},
			"title": {"type": ["string", "null"]},
			"meeting_title": {"type": ["string", "null"]},
			"recording_start_time": {"type": ["string", "null"]},
			"recording_end_time": {"type": ["string", "null"]},
			"recorded_by": {
				"type": ["object", "null"],
				"properties": {"email": {"type": ["string", "null"]}}
			},
			"calendar_invitees": {"type": ["array", "null"], "items": {"type": "object"}},
			"transcript": {"type": ["array", "null"], "items": {"type": "object"}}
		}
	}`,
	models.ProviderZoom: `{
		"type": "object",
		"required": ["event", "payload"],
		"properties": {
			"event": {"type": "string", "minLength": 1},
			"event_ts": {"type": "integer"},
			"payload": {"type": "object"}
		}
	}`,
	models.ProviderAutomation: `{
		"type": "object",
		"required": ["event", "external_id", "owner_email", "start_time"],
		"properties": {
			"event": {"type": "string", "minLength": 1},
			"external_id": {"type": "string", "minLength": 1},
			"owner_email": {"type": "string", "minLength": 3},
			"platform": {"type": "string"},
			"title": {"type": "string"},
			"start_time": {"type": "string", "minLength": 1},
			"end_time": {"type": ["string", "null"]},
			"participants": {"type": "array", "items": {"type": "string"}},
			"transcript": {"type": "string"},
			"recording_url": {"type": "string"}
		}
	}`,
}

// PayloadValidator checks raw webhook bodies against per-provider schemas.
type PayloadValidator struct {
	schemas map[models.Provider]*jsonschema.Schema
}

// NewPayloadValidator compiles the provider schemas.
func NewPayloadValidator() (*PayloadValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiled := make(map[models.Provider]*jsonschema.Schema, len(providerSchemas))

	for provider, raw := range providerSchemas {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s schema: %w", provider, err)
		}
		url := schemaBaseURL + string(provider) + ".json"
		if err := compiler.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("failed to add %s schema: %w", provider, err)
		}
		sch, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", provider, err)
		}
		compiled[provider] = sch
	}

	return &PayloadValidator{schemas: compiled}, nil
}

// Validate returns an error when body is not JSON or does not match the
// provider's schema. Providers without a schema only need valid JSON.
func (v *PayloadValidator) Validate(provider models.Provider, body []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}

	sch, ok := v.schemas[provider]
	if !ok {
		return nil
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("payload does not match %s schema: %w", provider, err)
	}
	return nil
}
