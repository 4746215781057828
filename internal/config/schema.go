package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed topology.schema.json
var topologySchemaJSON string

var topologySchema = mustCompileTopologySchema()

func mustCompileTopologySchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("topology.schema.json", strings.NewReader(topologySchemaJSON)); err != nil {
		panic(fmt.Sprintf("add topology schema resource: %v", err))
	}
	schema, err := compiler.Compile("topology.schema.json")
	if err != nil {
		panic(fmt.Sprintf("compile topology schema: %v", err))
	}
	return schema
}

// ValidateTopologyDocument checks a decoded topology section against the
// embedded JSON schema. The document is normalized through a JSON
// round-trip so YAML-decoded values validate the same as JSON ones.
func ValidateTopologyDocument(doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("normalize topology document: %w", err)
	}
	var normalized interface{}
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return fmt.Errorf("normalize topology document: %w", err)
	}
	return topologySchema.Validate(normalized)
}
