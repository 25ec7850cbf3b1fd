package llm

import (
	"encoding/json"
	"fmt"

	"github.com/swaggest/jsonschema-go"
)

// SchemaFromStruct generates a JSON Schema from a Go struct using the
// swaggest/jsonschema-go library. This provides a Go-idiomatic way to
// declare tool parameter schemas.
//
// Example:
//
//	type WeatherArgs struct {
//	    City string `json:"city" jsonschema:"required" description:"City name"`
//	    Days int    `json:"days" minimum:"1" maximum:"14"`
//	}
//	tool, err := ToolDefinitionFor("get_weather", "Weather forecast", WeatherArgs{})
func SchemaFromStruct(structType interface{}) (interface{}, error) {
	reflector := jsonschema.Reflector{}

	schema, err := reflector.Reflect(structType)
	if err != nil {
		return nil, fmt.Errorf("failed to reflect struct to JSON schema: %w", err)
	}

	return schema, nil
}

// ToolDefinitionFor builds a ToolDefinition whose parameter schema is
// generated from the given Go struct.
func ToolDefinitionFor(name, description string, argsType interface{}) (ToolDefinition, error) {
	schema, err := SchemaFromStruct(argsType)
	if err != nil {
		return ToolDefinition{}, err
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return ToolDefinition{}, fmt.Errorf("failed to marshal tool schema: %w", err)
	}

	def := ToolDefinition{
		Name:             name,
		ParametersSchema: string(schemaJSON),
	}
	if description != "" {
		def.Description = &description
	}
	return def, nil
}
