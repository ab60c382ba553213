package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

func TestBindCountsPopulatedAndEmpty(t *testing.T) {
	binder := NewTemplateBinder(NewLocationResolver(calabarzonFixture()))
	fields := []domain.TemplateFieldDefinition{
		field("document_title"),
		field("address_region"),
		field("address_province"),
		field("registry_number"),
	}
	metadata := []domain.MetadataEntry{
		{Key: "address_region", Value: "R04", Type: domain.MetadataText},
		{Key: "address_province", Value: "ZZZ", Type: domain.MetadataText},
	}

	binding := binder.Bind(context.Background(), fields, birthCertificate(), metadata)

	if binding.TotalCount != 4 {
		t.Fatalf("expected total 4, got %d", binding.TotalCount)
	}
	if binding.PopulatedCount != 3 || binding.EmptyCount != 1 {
		t.Fatalf("expected 3 populated / 1 empty, got %d / %d", binding.PopulatedCount, binding.EmptyCount)
	}
	if binding.Values["address_region"] != "Region IV-A" {
		t.Fatalf("unexpected region value %q", binding.Values["address_region"])
	}
	if binding.Values["address_province"] != "Province (Code: ZZZ)" {
		t.Fatalf("unexpected province value %q", binding.Values["address_province"])
	}
	if binding.LocationFallbacks != 1 {
		t.Fatalf("expected one location fallback, got %d", binding.LocationFallbacks)
	}
	if binding.Fields[3].Source != domain.SourceNone {
		t.Fatalf("expected unmatched field source none, got %s", binding.Fields[3].Source)
	}
}

func TestBindIsDeterministic(t *testing.T) {
	binder := NewTemplateBinder(NewLocationResolver(calabarzonFixture()))
	fields := []domain.TemplateFieldDefinition{
		field("child_name"),
		field("place_of_birth_city"),
		field("place_of_birth_region"),
		field("name"),
		field("date_registered"),
	}
	metadata := []domain.MetadataEntry{
		{Key: "child_name", Value: "Juan", Type: domain.MetadataText},
		{Key: "place_of_birth", Value: "R04, 0434, 043404", Type: domain.MetadataCascadingDropdown},
		{Key: "mother_name", Value: "Ana", Type: domain.MetadataText},
	}

	first, err := json.Marshal(binder.Bind(context.Background(), fields, birthCertificate(), metadata))
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		next, err := json.Marshal(binder.Bind(context.Background(), fields, birthCertificate(), metadata))
		if err != nil {
			t.Fatalf("json.Marshal() error = %v", err)
		}
		if !bytes.Equal(first, next) {
			t.Fatalf("binding changed between runs:\n%s\n%s", first, next)
		}
	}
}

func TestBindFieldResultsAreIndependentOfOrder(t *testing.T) {
	binder := NewTemplateBinder(NewLocationResolver(calabarzonFixture()))
	metadata := []domain.MetadataEntry{
		{Key: "place_of_birth", Value: "R04, 0434", Type: domain.MetadataCascadingDropdown},
	}
	forward := binder.Bind(context.Background(), []domain.TemplateFieldDefinition{
		field("place_of_birth_region"), field("place_of_birth_province"),
	}, birthCertificate(), metadata)
	backward := binder.Bind(context.Background(), []domain.TemplateFieldDefinition{
		field("place_of_birth_province"), field("place_of_birth_region"),
	}, birthCertificate(), metadata)

	for name, value := range forward.Values {
		if backward.Values[name] != value {
			t.Fatalf("field %s differs by order: %q vs %q", name, value, backward.Values[name])
		}
	}
}

func TestBindEmptyTemplate(t *testing.T) {
	binding := NewTemplateBinder(nil).Bind(context.Background(), nil, birthCertificate(), nil)
	if binding.TotalCount != 0 || binding.PopulatedCount != 0 || len(binding.Values) != 0 {
		t.Fatalf("expected empty binding, got %+v", binding)
	}
}
