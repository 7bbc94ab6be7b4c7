// Package document implements the document model: anything that can be
// rendered into the target tree. A document is a bag of fields; all fields
// are exposed to the template that renders it.
package document

import (
	"fmt"
	"sort"
	"strings"
)

// Document is a renderable unit parsed from a source file or built in memory.
type Document struct {
	fields map[string]any

	// SourcePath is the source-relative path this document was parsed
	// from, empty for synthetic documents.
	SourcePath string

	// Seq describes the document's neighbors within its collection.
	Seq *Sequence
}

// New creates an empty document.
func New() *Document {
	return &Document{fields: make(map[string]any)}
}

// Set stores a field value.
func (d *Document) Set(name string, value any) { d.fields[name] = value }

// Field returns a field value, or nil when unset.
func (d *Document) Field(name string) any { return d.fields[name] }

// Has reports whether a field is set.
func (d *Document) Has(name string) bool {
	_, ok := d.fields[name]
	return ok
}

// Delete removes a field.
func (d *Document) Delete(name string) { delete(d.fields, name) }

// Fields returns a copy of all field values.
func (d *Document) Fields() map[string]any {
	out := make(map[string]any, len(d.fields))
	for k, v := range d.fields {
		out[k] = v
	}
	return out
}

// ExpandTarget substitutes {field} placeholders in a target path with the
// document's field values. "{{" and "}}" escape literal braces. Referencing
// an unset field is an error.
func (d *Document) ExpandTarget(target string) (string, error) {
	var out strings.Builder
	for i := 0; i < len(target); i++ {
		switch c := target[i]; c {
		case '{':
			if i+1 < len(target) && target[i+1] == '{' {
				out.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(target[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("unclosed placeholder in target %q", target)
			}
			name := target[i+1 : i+end]
			value, ok := d.fields[name]
			if !ok {
				return "", fmt.Errorf("target %q references unset field %q", target, name)
			}
			fmt.Fprintf(&out, "%v", value)
			i += end
		case '}':
			if i+1 < len(target) && target[i+1] == '}' {
				out.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("stray '}' in target %q", target)
		default:
			out.WriteByte(c)
		}
	}
	return out.String(), nil
}

// Sequence gives templates access to a document's neighbors in its list.
type Sequence struct {
	Index     int
	Index1    int
	RevIndex  int
	RevIndex1 int
	First     bool
	Last      bool
	Length    int
	Prev      *Document
	Next      *Document
}

// List is an ordered collection of documents.
type List []*Document

// SortBy orders the list by a field, falling back to the source path when the
// field name is empty. Numeric values compare numerically, everything else by
// string form. Sequences are rebuilt after sorting.
func (l List) SortBy(field string, reverse bool) {
	less := func(i, j int) bool { return l[i].SourcePath < l[j].SourcePath }
	if field != "" {
		less = func(i, j int) bool {
			return compareValues(l[i].Field(field), l[j].Field(field)) < 0
		}
	}
	sort.SliceStable(l, func(i, j int) bool {
		if reverse {
			return less(j, i)
		}
		return less(i, j)
	})
	l.PrepareSequences()
}

// PrepareSequences attaches neighbor information to every document.
func (l List) PrepareSequences() {
	for i, doc := range l {
		seq := &Sequence{
			Index:     i,
			Index1:    i + 1,
			RevIndex1: len(l) - i,
			RevIndex:  len(l) - i - 1,
			First:     i == 0,
			Last:      i == len(l)-1,
			Length:    len(l),
		}
		if !seq.First {
			seq.Prev = l[i-1]
		}
		if !seq.Last {
			seq.Next = l[i+1]
		}
		doc.Seq = seq
	}
}

func compareValues(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(stringValue(a), stringValue(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
