// Package dataset holds the question/answer/context records produced by a
// generation run.
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Item is a single generated question with its grounded answer and the
// passage it was drawn from.
type Item struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`

	// Context is the supporting passage as quoted by the model. It is
	// advisory: nothing guarantees it appears verbatim in the source chunk.
	Context string `json:"context"`
}

// Complete reports whether every field carries non-whitespace text.
func (it Item) Complete() bool {
	return strings.TrimSpace(it.Question) != "" &&
		strings.TrimSpace(it.Answer) != "" &&
		strings.TrimSpace(it.Context) != ""
}

// Dataset is an ordered collection of items. Order is generation order
// across chunks; duplicates are allowed.
type Dataset struct {
	Items []Item `json:"items"`
}

// New returns an empty dataset with room for n items.
func New(n int) *Dataset {
	if n < 0 {
		n = 0
	}
	return &Dataset{Items: make([]Item, 0, n)}
}

// Len returns the number of items.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Items)
}

// Append adds items to the end of the dataset.
func (d *Dataset) Append(items ...Item) {
	d.Items = append(d.Items, items...)
}

// Truncate keeps at most the first n items.
func (d *Dataset) Truncate(n int) {
	if n >= 0 && len(d.Items) > n {
		d.Items = d.Items[:n]
	}
}

// WriteJSON encodes the dataset as indented JSON.
func (d *Dataset) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return nil
}

// ReadJSON decodes a dataset previously written with WriteJSON.
func ReadJSON(r io.Reader) (*Dataset, error) {
	var d Dataset
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if d.Items == nil {
		d.Items = []Item{}
	}
	return &d, nil
}
