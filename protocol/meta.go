package protocol

import (
	"fmt"

	"github.com/solweaver/gangway/schema"
)

// The meta scheme describes the handshake wire format in the schema model
// itself. field_type is the self-referential heart of it: every case tag
// matches the schema.Kind value of the shape it describes, so a described
// type round-trips to the same Kind it left as.
var (
	metaScheme *schema.Scheme
	metaRefs   schema.RefView

	messageShape *schema.FieldType
)

func init() {
	fieldTypeRef := schema.SelfRef("field_type")

	namedField := schema.Struct(
		schema.Field{Name: "name", Type: schema.Str()},
		schema.Field{Name: "type", Type: fieldTypeRef},
	)

	fieldType := schema.Union(8,
		schema.Field{Name: "void", Type: schema.Void()},
		schema.Field{Name: "bool", Type: schema.Void()},
		schema.Field{Name: "int", Type: schema.Struct(
			schema.Field{Name: "bits", Type: schema.Uint(8)},
			schema.Field{Name: "signed", Type: schema.Bool()},
		)},
		schema.Field{Name: "float", Type: schema.Struct(
			schema.Field{Name: "bits", Type: schema.Uint(8)},
		)},
		schema.Field{Name: "string", Type: schema.Void()},
		schema.Field{Name: "optional", Type: fieldTypeRef},
		schema.Field{Name: "ref", Type: schema.Struct(
			schema.Field{Name: "scheme", Type: schema.Str()},
			schema.Field{Name: "name", Type: schema.Str()},
		)},
		schema.Field{Name: "array", Type: schema.Struct(
			schema.Field{Name: "len", Type: schema.Uint(64)},
			schema.Field{Name: "elem", Type: fieldTypeRef},
		)},
		schema.Field{Name: "list", Type: fieldTypeRef},
		schema.Field{Name: "map", Type: schema.Struct(
			schema.Field{Name: "key", Type: fieldTypeRef},
			schema.Field{Name: "elem", Type: fieldTypeRef},
		)},
		schema.Field{Name: "struct", Type: schema.List(namedField)},
		schema.Field{Name: "tuple", Type: schema.List(fieldTypeRef)},
		schema.Field{Name: "union", Type: schema.Struct(
			schema.Field{Name: "bits", Type: schema.Uint(8)},
			schema.Field{Name: "fields", Type: schema.List(namedField)},
		)},
		schema.Field{Name: "enum", Type: schema.Struct(
			schema.Field{Name: "bits", Type: schema.Uint(8)},
			schema.Field{Name: "cases", Type: schema.List(schema.Struct(
				schema.Field{Name: "name", Type: schema.Str()},
				schema.Field{Name: "value", Type: schema.Uint(64)},
			))},
		)},
	)

	object := schema.Struct(
		schema.Field{Name: "name", Type: schema.Str()},
		schema.Field{Name: "versions", Type: schema.List(schema.SelfRef("field_type"))},
	)

	objectScheme := schema.Struct(
		schema.Field{Name: "name", Type: schema.Str()},
		schema.Field{Name: "objects", Type: schema.List(schema.SelfRef("object"))},
	)

	message := schema.Union(32,
		schema.Field{Name: "set_version", Type: schema.Struct(
			schema.Field{Name: "major", Type: schema.Uint(16)},
			schema.Field{Name: "minor", Type: schema.Uint(16)},
		)},
		schema.Field{Name: "set_index", Type: schema.List(schema.SelfRef("object_scheme"))},
		schema.Field{Name: "finalize", Type: schema.Void()},
	)

	metaScheme = &schema.Scheme{
		Name: "gangway",
		Kind: schema.SchemeObject,
		Types: []*schema.TypeDecl{
			{Name: "field_type", Versions: []schema.Version{{Shape: fieldType}}},
			{Name: "object", Versions: []schema.Version{{Shape: object}}},
			{Name: "object_scheme", Versions: []schema.Version{{Shape: objectScheme}}},
			{Name: "message", Versions: []schema.Version{{Shape: message}}},
		},
	}

	set, err := schema.NewSet(metaScheme)
	if err != nil {
		panic(fmt.Sprintf("protocol: meta scheme: %v", err))
	}
	metaRefs = set.View(metaScheme)
	messageShape = message
}
