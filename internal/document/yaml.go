package document

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML parses a YAML file containing a single mapping into a document.
func LoadYAML(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read yaml document: %w", err)
	}

	var fields map[string]any
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("parse yaml document %s: %w", path, err)
	}

	doc := New()
	for k, v := range fields {
		doc.Set(k, v)
	}
	return doc, nil
}

// LoadYAMLList parses a YAML file whose mapping contains a list under
// listKey (default "items"). Each list element becomes a document; the
// remaining top-level fields are shared across all of them. Sequences are
// prepared in file order.
func LoadYAMLList(path, listKey string) (List, error) {
	if listKey == "" {
		listKey = "items"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read yaml list: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml list %s: %w", path, err)
	}

	items, ok := raw[listKey]
	if !ok {
		return nil, fmt.Errorf("yaml list %s: missing %q key", path, listKey)
	}
	elems, ok := items.([]any)
	if !ok {
		return nil, fmt.Errorf("yaml list %s: %q is not a list", path, listKey)
	}
	delete(raw, listKey)

	list := make(List, 0, len(elems))
	for i, elem := range elems {
		fields, ok := elem.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("yaml list %s: item %d is not a mapping", path, i)
		}
		doc := New()
		for k, v := range raw {
			doc.Set(k, v)
		}
		for k, v := range fields {
			doc.Set(k, v)
		}
		list = append(list, doc)
	}
	list.PrepareSequences()
	return list, nil
}
