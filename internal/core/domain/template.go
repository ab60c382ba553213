package domain

import "time"

// Template is a positioned PDF form definition.
type Template struct {
	ID               string                    `json:"id"`
	Name             string                    `json:"name"`
	DocumentTypeID   string                    `json:"document_type_id"`
	DocumentTypeName string                    `json:"document_type_name"`
	FilePath         string                    `json:"file_path,omitempty"`
	Completeness     *float64                  `json:"completeness,omitempty"`
	UsageCount       int                       `json:"usage_count"`
	Fields           []TemplateFieldDefinition `json:"fields"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

// FieldNames returns the template's field names in declaration order.
func (t Template) FieldNames() []string {
	names := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		names = append(names, f.Name)
	}
	return names
}

// TemplateFieldDefinition is a placeholder on a template page. Geometry is
// consumed by the renderer only.
type TemplateFieldDefinition struct {
	Name     string  `json:"name" validate:"required"`
	X        float64 `json:"x" validate:"gte=0"`
	Y        float64 `json:"y" validate:"gte=0"`
	Width    float64 `json:"width" validate:"gte=0"`
	Height   float64 `json:"height" validate:"gte=0"`
	Page     int     `json:"page" validate:"gte=1"`
	Type     string  `json:"type"`
	Required bool    `json:"required"`
}

type DocumentType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FieldRequirement states whether a document type needs a field.
type FieldRequirement struct {
	FieldName    string `json:"field_name"`
	IsRequired   bool   `json:"is_required"`
	DisplayOrder int    `json:"display_order"`
}

// BindingSource names the rule that produced a bound value.
type BindingSource string

const (
	SourceSystem    BindingSource = "system"
	SourceExact     BindingSource = "exact"
	SourceCascading BindingSource = "cascading"
	SourceSubstring BindingSource = "substring"
	SourceNone      BindingSource = "none"
)

type BoundField struct {
	Name        string        `json:"name"`
	Value       string        `json:"value"`
	Source      BindingSource `json:"source"`
	MetadataKey string        `json:"metadata_key,omitempty"`
}

// Binding is the field→value assignment for one (template, document) pair.
type Binding struct {
	TemplateID        string            `json:"template_id"`
	DocumentID        string            `json:"document_id"`
	Values            map[string]string `json:"values"`
	Fields            []BoundField      `json:"fields"`
	PopulatedCount    int               `json:"populated_count"`
	EmptyCount        int               `json:"empty_count"`
	TotalCount        int               `json:"total_count"`
	LocationFallbacks int               `json:"location_fallbacks"`
}

type CompletenessScore struct {
	RequiredMapped  int      `json:"required_mapped"`
	RequiredTotal   int      `json:"required_total"`
	OptionalMapped  int      `json:"optional_mapped"`
	OptionalTotal   int      `json:"optional_total"`
	Percentage      float64  `json:"percentage"`
	MissingRequired []string `json:"missing_required"`
	MissingOptional []string `json:"missing_optional"`
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

type Recommendation struct {
	Priority Priority `json:"priority"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
	Fields   []string `json:"fields,omitempty"`
}

type FieldTypeDifference struct {
	Field     string `json:"field"`
	TypeA     string `json:"type_a"`
	TypeB     string `json:"type_b"`
	RequiredA bool   `json:"required_a"`
	RequiredB bool   `json:"required_b"`
}

type Similarity struct {
	FieldSimilarity        float64 `json:"field_similarity"`
	CompletenessSimilarity float64 `json:"completeness_similarity"`
	Overall                float64 `json:"overall"`
}

type ComparisonResult struct {
	TemplateA            string                `json:"template_a"`
	TemplateB            string                `json:"template_b"`
	CommonFields         []string              `json:"common_fields"`
	UniqueToA            []string              `json:"unique_to_a"`
	UniqueToB            []string              `json:"unique_to_b"`
	FieldTypeDifferences []FieldTypeDifference `json:"field_type_differences"`
	Similarity           Similarity            `json:"similarity"`
	Recommendations      []Recommendation      `json:"recommendations"`
}

// TemplateLintIssue describes one problem with a template's field layout.
type TemplateLintIssue struct {
	Field   string `json:"field,omitempty"`
	Problem string `json:"problem"`
}

type TemplateLintReport struct {
	TemplateID string              `json:"template_id"`
	PageCount  int                 `json:"page_count,omitempty"`
	Issues     []TemplateLintIssue `json:"issues"`
}

func (r TemplateLintReport) OK() bool {
	return len(r.Issues) == 0
}

// RescoreRequest asks a worker to refresh a template's cached completeness.
type RescoreRequest struct {
	TemplateID  string    `json:"template_id"`
	RequestedAt time.Time `json:"requested_at"`
}
