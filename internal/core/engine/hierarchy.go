package engine

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

// ParseHierarchicalValue normalizes the three shapes a location chain is
// stored in: a structured map, the same map JSON-encoded, or a positional
// "region, province, city, barangay" list. Anything it cannot read yields an
// empty value.
func ParseHierarchicalValue(raw any) domain.HierarchicalValue {
	switch v := raw.(type) {
	case nil:
		return domain.HierarchicalValue{}
	case domain.HierarchicalValue:
		return v
	case *domain.HierarchicalValue:
		if v == nil {
			return domain.HierarchicalValue{}
		}
		return *v
	case map[string]any:
		return parseObject(v)
	case map[string]string:
		obj := make(map[string]any, len(v))
		for k, val := range v {
			obj[k] = val
		}
		return parseObject(obj)
	case []byte:
		return parseText(string(v))
	case string:
		return parseText(v)
	default:
		return domain.HierarchicalValue{}
	}
}

func parseText(s string) domain.HierarchicalValue {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.HierarchicalValue{}
	}
	if looksLikeJSON(s) {
		return parseJSON(s)
	}
	return parseCommaList(s)
}

// Payloads opening like JSON are never reinterpreted as comma lists.
func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") || strings.HasPrefix(s, `"`)
}

func parseJSON(s string) domain.HierarchicalValue {
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return domain.HierarchicalValue{}
	}
	switch v := decoded.(type) {
	case map[string]any:
		return parseObject(v)
	case string:
		// double-encoded payloads show up in older rows
		return parseText(v)
	default:
		return domain.HierarchicalValue{}
	}
}

func parseCommaList(s string) domain.HierarchicalValue {
	var out domain.HierarchicalValue
	segments := strings.Split(s, ",")
	for i, segment := range segments {
		if i >= len(domain.Levels) {
			break
		}
		code := strings.TrimSpace(segment)
		if code == "" {
			continue
		}
		out.Set(domain.Levels[i], &domain.LocationRef{Code: code})
	}
	return out
}

func parseObject(obj map[string]any) domain.HierarchicalValue {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out domain.HierarchicalValue
	for _, key := range keys {
		raw := obj[key]
		level, ok := domain.ParseLevel(key)
		if !ok {
			continue
		}
		ref := parseRef(raw)
		if ref == nil {
			continue
		}
		// "city" wins over its aliases when both are present.
		if existing := out.Get(level); existing != nil && !strings.EqualFold(key, string(level)) {
			continue
		}
		out.Set(level, ref)
	}
	return out
}

func parseRef(raw any) *domain.LocationRef {
	switch v := raw.(type) {
	case string:
		code := strings.TrimSpace(v)
		if code == "" {
			return nil
		}
		return &domain.LocationRef{Code: code}
	case float64:
		return &domain.LocationRef{Code: strconv.FormatFloat(v, 'f', -1, 64)}
	case int:
		return &domain.LocationRef{Code: strconv.Itoa(v)}
	case int64:
		return &domain.LocationRef{Code: strconv.FormatInt(v, 10)}
	case json.Number:
		return &domain.LocationRef{Code: v.String()}
	case map[string]any:
		code := firstString(v, "value", "code", "id")
		text := firstString(v, "text", "name", "label")
		if code == "" {
			code = text
		}
		if code == "" {
			return nil
		}
		return &domain.LocationRef{Code: code, Text: text}
	case *domain.LocationRef:
		if v == nil || v.Code == "" {
			return nil
		}
		ref := *v
		return &ref
	default:
		return nil
	}
}

func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case json.Number:
			return v.String()
		}
	}
	return ""
}
