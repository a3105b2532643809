package storefront

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Field resolves one root query field
type Field struct {
	Description string
	Resolve     func(req *QueryRequest) (any, error)
}

// Schema is the set of root query fields served by the endpoint
type Schema struct {
	fields   map[string]Field
	loadedAt time.Time
}

// FieldNames returns the root field names in sorted order
func (s *Schema) FieldNames() []string {
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute resolves the selection of a query document. Only a single
// anonymous or named query with root field selections is understood.
func (s *Schema) Execute(req *QueryRequest) (map[string]any, []GraphQLError) {
	selection, err := parseSelection(req.Query)
	if err != nil {
		return nil, []GraphQLError{{Message: err.Error()}}
	}

	data := make(map[string]any, len(selection))
	var errs []GraphQLError
	for _, name := range selection {
		field, ok := s.fields[name]
		if !ok {
			errs = append(errs, GraphQLError{
				Message: fmt.Sprintf("Cannot query field %q on type \"Query\".", name),
				Path:    []string{name},
			})
			continue
		}
		v, err := field.Resolve(req)
		if err != nil {
			data[name] = nil
			errs = append(errs, GraphQLError{Message: err.Error(), Path: []string{name}})
			continue
		}
		data[name] = v
	}

	if len(data) == 0 {
		data = nil
	}
	return data, errs
}

// parseSelection returns the root field names of a query document such as
// "{ shop __typename }" or "query Named { shop }". Nested selections are
// skipped.
func parseSelection(doc string) ([]string, error) {
	doc = strings.TrimSpace(doc)
	open := strings.IndexByte(doc, '{')
	if open < 0 {
		return nil, fmt.Errorf("Syntax Error: expected selection set")
	}

	head := strings.Fields(doc[:open])
	if len(head) > 0 && head[0] != "query" {
		return nil, fmt.Errorf("Syntax Error: unsupported operation %q", head[0])
	}
	if len(head) > 2 {
		return nil, fmt.Errorf("Syntax Error: unexpected %q", head[2])
	}

	var (
		names   []string
		depth   int
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 && depth == 1 {
			names = append(names, current.String())
		}
		current.Reset()
	}

	for _, r := range doc[open:] {
		switch {
		case r == '{':
			flush()
			depth++
		case r == '}':
			flush()
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("Syntax Error: unbalanced braces")
			}
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			if depth == 1 {
				current.WriteRune(r)
			}
		case r == ' ' || r == '\n' || r == '\t' || r == '\r' || r == ',':
			flush()
		default:
			return nil, fmt.Errorf("Syntax Error: unexpected character %q", r)
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("Syntax Error: unbalanced braces")
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("Syntax Error: empty selection set")
	}
	return names, nil
}
