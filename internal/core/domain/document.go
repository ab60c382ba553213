package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type MetadataType string

const (
	MetadataText              MetadataType = "text"
	MetadataDate              MetadataType = "date"
	MetadataNumber            MetadataType = "number"
	MetadataFile              MetadataType = "file"
	MetadataCascadingDropdown MetadataType = "cascading_dropdown"
	MetadataReference         MetadataType = "reference"
)

// Document is the read model of an archived civil-registry document.
type Document struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	DocumentTypeID string    `json:"document_type_id"`
	TypeName       string    `json:"type_name"`
	UploaderName   string    `json:"uploader_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// MetadataEntry is one stored attribute of a document. Value is whatever the
// store decoded: a string, a number, or a structured map for cascading fields.
type MetadataEntry struct {
	Key   string       `json:"key"`
	Value any          `json:"value"`
	Label string       `json:"label,omitempty"`
	Type  MetadataType `json:"type"`
}

// StringValue renders scalar values as text. Structured values are returned
// as compact JSON so callers never lose data silently.
func (e MetadataEntry) StringValue() string {
	switch v := e.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// IsHierarchical reports whether the entry carries a location chain.
func (e MetadataEntry) IsHierarchical() bool {
	if e.Type == MetadataCascadingDropdown {
		return true
	}
	switch e.Value.(type) {
	case map[string]any, HierarchicalValue, *HierarchicalValue:
		return true
	}
	return false
}

// DecodeMetadataValue turns a JSON column into the loosely typed value the
// engine consumes. Undecodable payloads are kept as raw text.
func DecodeMetadataValue(raw []byte) any {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return trimmed
	}
	return out
}
