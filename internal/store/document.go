package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry is one word and its patterns.
type Entry struct {
	Word     string    `json:"word"`
	Patterns []Pattern `json:"patterns"`
}

// Document is the persisted form of a PatternStore. It encodes as a single
// JSON object whose keys are words, in entry order:
//
//	{"hello": [{"height": 0.1, "width": 0.2, "area": 0.01}], "yes": [...]}
type Document struct {
	Entries []Entry
}

// MarshalJSON writes the entries as an ordered JSON object.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Word)
		if err != nil {
			return nil, err
		}
		patterns := e.Patterns
		if patterns == nil {
			patterns = []Pattern{}
		}
		val, err := json.Marshal(patterns)
		if err != nil {
			return nil, fmt.Errorf("word %q: %w", e.Word, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an ordered JSON object. Repeated keys are merged into
// the first entry for that word.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("pattern document: expected object, got %v", tok)
	}

	index := make(map[string]int)
	var entries []Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		word, ok := tok.(string)
		if !ok {
			return fmt.Errorf("pattern document: expected word, got %v", tok)
		}

		var patterns []Pattern
		if err := dec.Decode(&patterns); err != nil {
			return fmt.Errorf("pattern document: word %q: %w", word, err)
		}

		if i, ok := index[word]; ok {
			entries[i].Patterns = append(entries[i].Patterns, patterns...)
			continue
		}
		index[word] = len(entries)
		entries = append(entries, Entry{Word: word, Patterns: patterns})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	d.Entries = entries
	return nil
}
