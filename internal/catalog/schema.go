package catalog

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"

	"github.com/roach88/fxdispatch/internal/ir"
)

// Schema returns the JSON Schema of the compiled catalog format.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	schema := reflector.ReflectFromType(reflect.TypeOf(ir.Catalog{}))
	schema.Version = jsonschema.Version
	schema.Title = "fxdispatch animation catalog"
	schema.Description = fmt.Sprintf("Compiled animation catalog, version %s.", ir.CatalogVersion)
	return schema
}

// SchemaJSON renders Schema as indented JSON.
func SchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}
