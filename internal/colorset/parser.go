package colorset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Parser parses color-set definition strings of the `<TYPE>` grammar
// and keeps a registry of named color sets and compiled JSON Schemas.
type Parser struct {
	colorSets map[string]ColorSet
	schemas   map[string]*jsonschema.Schema
}

// NewParser creates a parser pre-registered with the built-in color sets.
func NewParser() *Parser {
	p := &Parser{
		colorSets: make(map[string]ColorSet),
		schemas:   make(map[string]*jsonschema.Schema),
	}
	p.Register(INT)
	p.Register(STRING)
	p.Register(BOOL)
	p.Register(REAL)
	p.Register(UNIT)
	return p
}

// Register adds a color set to the registry under its own name.
func (p *Parser) Register(cs ColorSet) { p.colorSets[cs.Name()] = cs }

// Get retrieves a registered color set by name.
func (p *Parser) Get(name string) (ColorSet, bool) {
	cs, ok := p.colorSets[name]
	return cs, ok
}

// All returns every registered color set.
func (p *Parser) All() map[string]ColorSet {
	out := make(map[string]ColorSet, len(p.colorSets))
	for k, v := range p.colorSets {
		out[k] = v
	}
	return out
}

// RegisterSchema compiles and registers a named JSON Schema so that
// subsequent `dict<Name>` definitions can reference it.
func (p *Parser) RegisterSchema(name string, schema interface{}) error {
	if name == "" || schema == nil {
		return fmt.Errorf("invalid json schema definition (missing name or schema)")
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema %s: %w", name, err)
	}
	url := "mem://schemas/" + name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to add schema resource %s: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	p.schemas[name] = compiled
	return nil
}

var definitionRe = regexp.MustCompile(`^colset\s+(\w+)\s*=\s*(.+?)\s*;?\s*$`)

// ParseDefinition parses a single `colset NAME = TYPE [timed];` string
// and registers the resulting color set.
//
// Examples: "colset INT = int;", "colset MyInt = int timed;",
// "colset Color = with red | green | blue;",
// "colset Pair = product(INT, STRING);", "colset Log = list Pair;".
func (p *Parser) ParseDefinition(definition string) (ColorSet, error) {
	definition = strings.TrimSpace(definition)
	matches := definitionRe.FindStringSubmatch(definition)
	if len(matches) != 3 {
		return nil, fmt.Errorf("invalid color set definition format: %s", definition)
	}

	name := matches[1]
	typeDef := strings.TrimSpace(matches[2])

	timed := false
	if strings.HasSuffix(typeDef, " timed") {
		timed = true
		typeDef = strings.TrimSpace(strings.TrimSuffix(typeDef, " timed"))
	}

	cs, err := p.parseType(name, typeDef, timed)
	if err != nil {
		return nil, fmt.Errorf("error parsing type definition '%s': %w", typeDef, err)
	}
	p.Register(cs)
	return cs, nil
}

func (p *Parser) parseType(name, typeDef string, timed bool) (ColorSet, error) {
	switch {
	case typeDef == "int":
		return NewInteger(name, timed), nil
	case typeDef == "intinf":
		return NewIntegerInfinity(name, timed), nil
	case typeDef == "real":
		return NewReal(name, timed), nil
	case typeDef == "string":
		return NewString(name, timed), nil
	case typeDef == "bool":
		return NewBoolean(name, timed), nil
	case typeDef == "unit":
		return NewUnit(name, timed), nil
	case typeDef == "time":
		return NewTime(name), nil
	case typeDef == "dict" || typeDef == "map":
		return NewDict(name, timed, "", nil), nil
	case strings.HasPrefix(typeDef, "dict<") && strings.HasSuffix(typeDef, ">"):
		schemaName := strings.TrimSuffix(strings.TrimPrefix(typeDef, "dict<"), ">")
		schema, ok := p.schemas[schemaName]
		if !ok {
			return nil, fmt.Errorf("unknown json schema '%s'", schemaName)
		}
		return NewDict(name, timed, schemaName, schema), nil
	case strings.HasPrefix(typeDef, "int[") && strings.HasSuffix(typeDef, "]"):
		return p.parseIntRange(name, typeDef, timed)
	case strings.HasPrefix(typeDef, "with "):
		return p.parseEnumerated(name, typeDef, timed)
	case strings.HasPrefix(typeDef, "product(") && strings.HasSuffix(typeDef, ")"):
		return p.parseProductParen(name, typeDef, timed)
	case strings.HasPrefix(typeDef, "product "):
		return p.parseProductStar(name, typeDef, timed)
	case strings.HasPrefix(typeDef, "list "):
		return p.parseList(name, typeDef, timed)
	default:
		if existing, ok := p.Get(typeDef); ok {
			return p.cloneWithName(existing, name, timed)
		}
		return nil, fmt.Errorf("unknown type definition: %s", typeDef)
	}
}

func (p *Parser) parseIntRange(name, typeDef string, timed bool) (ColorSet, error) {
	re := regexp.MustCompile(`^int\[(-?\d+)\.\.(-?\d+)\]$`)
	m := re.FindStringSubmatch(typeDef)
	if len(m) != 3 {
		return nil, fmt.Errorf("invalid integer range format: %s", typeDef)
	}
	minVal, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("invalid minimum value: %s", m[1])
	}
	maxVal, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, fmt.Errorf("invalid maximum value: %s", m[2])
	}
	if minVal > maxVal {
		return nil, fmt.Errorf("minimum value %d is greater than maximum value %d", minVal, maxVal)
	}
	return NewIntegerRange(name, timed, minVal, maxVal), nil
}

func (p *Parser) parseEnumerated(name, typeDef string, timed bool) (ColorSet, error) {
	valuesPart := strings.TrimSpace(strings.TrimPrefix(typeDef, "with "))
	raw := strings.Split(valuesPart, "|")
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, fmt.Errorf("empty value in enumerated color set")
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("enumerated color set must have at least one value")
	}
	return NewEnumerated(name, timed, values), nil
}

func (p *Parser) parseProductParen(name, typeDef string, timed bool) (ColorSet, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(typeDef, "product("), ")")
	parts := strings.SplitN(inner, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("product color set requires exactly two components: %s", typeDef)
	}
	first, ok := p.Get(strings.TrimSpace(parts[0]))
	if !ok {
		return nil, fmt.Errorf("unknown color set component: %s", strings.TrimSpace(parts[0]))
	}
	second, ok := p.Get(strings.TrimSpace(parts[1]))
	if !ok {
		return nil, fmt.Errorf("unknown color set component: %s", strings.TrimSpace(parts[1]))
	}
	return NewProduct(name, timed, first, second), nil
}

func (p *Parser) parseProductStar(name, typeDef string, timed bool) (ColorSet, error) {
	componentsPart := strings.TrimSpace(strings.TrimPrefix(typeDef, "product "))
	names := strings.Split(componentsPart, "*")
	if len(names) != 2 {
		return nil, fmt.Errorf("product color set must have exactly two components: %s", typeDef)
	}
	first, ok := p.Get(strings.TrimSpace(names[0]))
	if !ok {
		return nil, fmt.Errorf("unknown color set component: %s", strings.TrimSpace(names[0]))
	}
	second, ok := p.Get(strings.TrimSpace(names[1]))
	if !ok {
		return nil, fmt.Errorf("unknown color set component: %s", strings.TrimSpace(names[1]))
	}
	return NewProduct(name, timed, first, second), nil
}

func (p *Parser) parseList(name, typeDef string, timed bool) (ColorSet, error) {
	elementName := strings.TrimSpace(strings.TrimPrefix(typeDef, "list "))
	element, ok := p.Get(elementName)
	if !ok {
		return nil, fmt.Errorf("unknown element color set: %s", elementName)
	}
	return NewList(name, timed, element), nil
}

func (p *Parser) cloneWithName(original ColorSet, newName string, timed bool) (ColorSet, error) {
	switch cs := original.(type) {
	case *Integer:
		if cs.minVal != nil && cs.maxVal != nil {
			return NewIntegerRange(newName, timed, *cs.minVal, *cs.maxVal), nil
		}
		return NewInteger(newName, timed), nil
	case *IntegerInfinity:
		return NewIntegerInfinity(newName, timed), nil
	case *Real:
		return NewReal(newName, timed), nil
	case *String:
		return NewString(newName, timed), nil
	case *Boolean:
		return NewBoolean(newName, timed), nil
	case *Unit:
		return NewUnit(newName, timed), nil
	case *Time:
		return NewTime(newName), nil
	case *Enumerated:
		return NewEnumerated(newName, timed, cs.Values()), nil
	case *Product:
		return NewProduct(newName, timed, cs.components[0], cs.components[1]), nil
	case *List:
		return NewList(newName, timed, cs.element), nil
	case *Dict:
		return NewDict(newName, timed, cs.schemaName, cs.schema), nil
	default:
		return nil, fmt.Errorf("unsupported color set type for cloning: %T", original)
	}
}

// ParseAll parses a list of `colset ...;` definitions, one per entry,
// skipping blank entries and `//`/`#` comments.
func (p *Parser) ParseAll(definitions []string) ([]ColorSet, error) {
	var result []ColorSet
	for i, def := range definitions {
		def = strings.TrimSpace(def)
		if def == "" || strings.HasPrefix(def, "//") || strings.HasPrefix(def, "#") {
			continue
		}
		cs, err := p.ParseDefinition(def)
		if err != nil {
			return nil, fmt.Errorf("error parsing definition %d: %w", i+1, err)
		}
		result = append(result, cs)
	}
	return result, nil
}
