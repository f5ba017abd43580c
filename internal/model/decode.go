package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping is returned when a schema document's top level is not a mapping.
var ErrNotMapping = errors.New("schema document must be a mapping of table names")

// Document is a decoded schema file. Exactly one of Single and Variants is set.
type Document struct {
	Single   *RawSchema
	Variants SchemaSet
}

// Set returns the document as a variant set. A single schema is registered
// under the given variant.
func (d *Document) Set(variant string) SchemaSet {
	if d.Variants != nil {
		return d.Variants
	}
	set := SchemaSet{}
	if d.Single != nil {
		set[variant] = *d.Single
	}
	return set
}

// Names returns the variant names of a set, sorted.
func (s SchemaSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// member is one key/value pair of a decoded mapping. Mappings decode to
// []member so that document order survives.
type member struct {
	Key   string
	Value any
}

type object []member

func (o object) get(key string) (any, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Decode parses a JSON or YAML schema document. JSON is detected by a leading
// '{'; everything else goes through the YAML decoder.
func Decode(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &Document{Single: &RawSchema{}}, nil
	}

	var tree any
	var err error
	if trimmed[0] == '{' {
		tree, err = decodeJSONTree(json.NewDecoder(bytes.NewReader(trimmed)))
	} else {
		tree, err = decodeYAMLTree(trimmed)
	}
	if err != nil {
		return nil, err
	}

	return documentFromTree(tree)
}

// DecodeSchema parses a document that must hold a single schema.
func DecodeSchema(data []byte) (RawSchema, error) {
	doc, err := Decode(data)
	if err != nil {
		return RawSchema{}, err
	}
	if doc.Single == nil {
		return RawSchema{}, fmt.Errorf("expected a single schema, got %d variants", len(doc.Variants))
	}
	return *doc.Single, nil
}

func documentFromTree(tree any) (*Document, error) {
	if tree == nil {
		return &Document{Single: &RawSchema{}}, nil
	}
	root, ok := tree.(object)
	if !ok {
		return nil, ErrNotMapping
	}

	if v, ok := root.get("variants"); ok && len(root) == 1 && isVariantMap(v) {
		set := SchemaSet{}
		for _, m := range v.(object) {
			set[m.Key] = schemaFromValue(m.Value)
		}
		return &Document{Variants: set}, nil
	}

	if isStoredRecord(root) {
		set := SchemaSet{}
		for _, m := range root {
			set[storedKeys[m.Key]] = schemaFromValue(m.Value)
		}
		return &Document{Variants: set}, nil
	}

	s := schemaFromValue(root)
	return &Document{Single: &s}, nil
}

// storedKeys are the top-level keys schema records are persisted under.
var storedKeys = map[string]string{
	VariantOriginal + "_schema":   VariantOriginal,
	VariantWarehouse + "_schema":  VariantWarehouse,
	VariantAIEnhanced + "_schema": VariantAIEnhanced,
}

// isStoredRecord reports whether every top-level key is one of storedKeys
// holding a table map, the layout schema records are persisted in.
func isStoredRecord(root object) bool {
	if len(root) == 0 {
		return false
	}
	for _, m := range root {
		if _, ok := storedKeys[m.Key]; !ok {
			return false
		}
		if !isTableMap(m.Value) {
			return false
		}
	}
	return true
}

// isVariantMap reports whether v maps variant names to table maps.
func isVariantMap(v any) bool {
	variants, ok := v.(object)
	if !ok {
		return false
	}
	for _, m := range variants {
		if !isTableMap(m.Value) {
			return false
		}
	}
	return true
}

// isTableMap reports whether v can be read as a table-name to descriptor
// mapping: a mapping whose values are all mappings or null. A table
// descriptor fails this check because its columns value is a list.
func isTableMap(v any) bool {
	if v == nil {
		return true
	}
	obj, ok := v.(object)
	if !ok {
		return false
	}
	for _, m := range obj {
		if _, ok := m.Value.(object); !ok && m.Value != nil {
			return false
		}
	}
	return true
}

func schemaFromValue(v any) RawSchema {
	obj, ok := v.(object)
	if !ok {
		return RawSchema{}
	}
	obj = flattenWarehouse(obj)

	s := RawSchema{Tables: make([]RawTable, 0, len(obj))}
	for _, m := range obj {
		s.Tables = append(s.Tables, tableFromValue(m.Key, m.Value))
	}
	return s
}

// flattenWarehouse merges a {fact_tables, dimension_tables} grouping into one
// table mapping, fact tables first.
func flattenWarehouse(obj object) object {
	if len(obj) == 0 {
		return obj
	}
	for _, m := range obj {
		if m.Key != "fact_tables" && m.Key != "dimension_tables" {
			return obj
		}
		if _, ok := m.Value.(object); !ok && m.Value != nil {
			return obj
		}
	}

	var flat object
	for _, group := range []string{"fact_tables", "dimension_tables"} {
		if v, ok := obj.get(group); ok {
			if tables, ok := v.(object); ok {
				flat = append(flat, tables...)
			}
		}
	}
	return flat
}

func tableFromValue(name string, v any) RawTable {
	t := RawTable{Name: name}

	obj, ok := v.(object)
	if !ok {
		return t
	}
	cols, _ := obj.get("columns")
	list, ok := cols.([]any)
	if !ok {
		return t
	}

	t.Columns = make([]RawColumn, 0, len(list))
	for _, item := range list {
		var rc RawColumn
		if co, ok := item.(object); ok {
			rc.Name, _ = co.get("name")
			rc.Type, _ = co.get("type")
			rc.Constraints, _ = co.get("constraints")
		}
		t.Columns = append(t.Columns, rc)
	}
	return t
}

func decodeJSONTree(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := object{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("failed to decode JSON: %w", err)
			}
			key, _ := keyTok.(string)
			val, err := decodeJSONTree(dec)
			if err != nil {
				return nil, err
			}
			obj = append(obj, member{Key: key, Value: val})
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
		return obj, nil
	case '[':
		list := []any{}
		for dec.More() {
			val, err := decodeJSONTree(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("failed to decode JSON: unexpected delimiter %q", delim)
	}
}

func decodeYAMLTree(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	return yamlNodeToTree(&doc)
}

func yamlNodeToTree(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlNodeToTree(n.Content[0])
	case yaml.MappingNode:
		obj := make(object, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			val, err := yamlNodeToTree(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj = append(obj, member{Key: n.Content[i].Value, Value: val})
		}
		return obj, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := yamlNodeToTree(c)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil
	case yaml.AliasNode:
		return yamlNodeToTree(n.Alias)
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("failed to decode YAML scalar at line %d: %w", n.Line, err)
		}
		return v, nil
	}
}

// MarshalJSON writes the schema as a JSON object keyed by table name,
// preserving table order.
func (s RawSchema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range s.Tables {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(t.Name)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(struct {
			Columns []RawColumn `json:"columns"`
		}{Columns: t.Columns})
		if err != nil {
			return nil, fmt.Errorf("failed to encode table %s: %w", t.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a single-schema JSON document, keeping table order.
func (s *RawSchema) UnmarshalJSON(data []byte) error {
	tree, err := decodeJSONTree(json.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return err
	}
	if tree == nil {
		*s = RawSchema{}
		return nil
	}
	if _, ok := tree.(object); !ok {
		return ErrNotMapping
	}
	*s = schemaFromValue(tree)
	return nil
}
