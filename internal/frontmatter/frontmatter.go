// Package frontmatter extracts YAML metadata from markdown sources.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrUnterminated indicates an opening `---` delimiter without a closing one.
var ErrUnterminated = errors.New("frontmatter opened but closing delimiter is missing")

var delimiter = []byte("---")

// Extract splits content into parsed frontmatter fields and the markdown body.
//
// A document without a leading `---` line has no frontmatter: fields is empty
// and body is the full input. Both LF and CRLF newlines are accepted.
func Extract(content []byte) (fields map[string]any, body []byte, err error) {
	raw, body, err := split(content)
	if err != nil {
		return nil, nil, err
	}
	if len(raw) == 0 {
		return map[string]any{}, body, nil
	}
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, body, nil
}

func split(content []byte) (raw, body []byte, err error) {
	line, rest := nextLine(content)
	if !bytes.Equal(bytes.TrimRight(line, "\r"), delimiter) {
		return nil, content, nil
	}

	var meta bytes.Buffer
	for len(rest) > 0 {
		line, tail := nextLine(rest)
		if bytes.Equal(bytes.TrimRight(line, "\r"), delimiter) {
			return meta.Bytes(), tail, nil
		}
		meta.Write(bytes.TrimRight(line, "\r"))
		meta.WriteByte('\n')
		rest = tail
	}
	return nil, nil, ErrUnterminated
}

// nextLine returns the first line of b without its newline, and the remainder.
func nextLine(b []byte) (line, rest []byte) {
	idx := bytes.IndexByte(b, '\n')
	if idx < 0 {
		return b, nil
	}
	return b[:idx], b[idx+1:]
}
