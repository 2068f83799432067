package rtsp

import "strings"

type headerField struct {
	name   string
	values []string
}

// Header is an ordered header collection with case-insensitive names.
// Names keep the spelling and position of their first insertion.
// The zero value is ready to use.
type Header struct {
	fields []headerField
}

func (h *Header) index(name string) int {
	for i := range h.fields {
		if strings.EqualFold(h.fields[i].name, name) {
			return i
		}
	}
	return -1
}

// Get returns the first value of a header, or "".
func (h *Header) Get(name string) string {
	if i := h.index(name); i >= 0 && len(h.fields[i].values) > 0 {
		return h.fields[i].values[0]
	}
	return ""
}

// Values returns all values of a header.
func (h *Header) Values(name string) []string {
	if i := h.index(name); i >= 0 {
		return append([]string(nil), h.fields[i].values...)
	}
	return nil
}

// Set replaces the values of a header. An existing header keeps its position.
func (h *Header) Set(name, value string) {
	if i := h.index(name); i >= 0 {
		h.fields[i].values = []string{value}
		return
	}
	h.fields = append(h.fields, headerField{name: name, values: []string{value}})
}

// Add appends a value to a header.
func (h *Header) Add(name, value string) {
	if i := h.index(name); i >= 0 {
		h.fields[i].values = append(h.fields[i].values, value)
		return
	}
	h.fields = append(h.fields, headerField{name: name, values: []string{value}})
}

// Del removes a header.
func (h *Header) Del(name string) {
	if i := h.index(name); i >= 0 {
		h.fields = append(h.fields[:i], h.fields[i+1:]...)
	}
}

// Has reports whether the header is present.
func (h *Header) Has(name string) bool {
	return h.index(name) >= 0
}

// Len returns the number of distinct header names.
func (h *Header) Len() int {
	return len(h.fields)
}

// Keys returns header names in insertion order.
func (h *Header) Keys() []string {
	keys := make([]string, len(h.fields))
	for i, f := range h.fields {
		keys[i] = f.name
	}
	return keys
}
