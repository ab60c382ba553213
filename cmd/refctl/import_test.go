package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/civil-registry-forms/internal/config"
	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/reference/yamlstore"
)

type writerFake struct {
	batches [][]domain.Location
	failAt  int
}

func (w *writerFake) UpsertLocations(_ context.Context, locations []domain.Location) (int, error) {
	w.batches = append(w.batches, locations)
	if w.failAt > 0 && len(w.batches) == w.failAt {
		return 0, errors.New("write failed")
	}
	return len(locations), nil
}

func sampleLocations(n int) []domain.Location {
	out := make([]domain.Location, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Location{ID: int64(i + 1), Level: domain.LevelRegion, Code: "R" + string(rune('A'+i)), Name: "Region"})
	}
	return out
}

func TestUpsertInBatchesSplitsInput(t *testing.T) {
	w := &writerFake{}
	n, err := upsertInBatches(context.Background(), w, sampleLocations(5), 2)
	if err != nil {
		t.Fatalf("upsertInBatches: %v", err)
	}
	if n != 5 || len(w.batches) != 3 || len(w.batches[2]) != 1 {
		t.Fatalf("unexpected batching n=%d batches=%d", n, len(w.batches))
	}
}

func TestUpsertInBatchesStopsOnError(t *testing.T) {
	w := &writerFake{failAt: 2}
	n, err := upsertInBatches(context.Background(), w, sampleLocations(5), 2)
	if err == nil {
		t.Fatalf("expected error")
	}
	if n != 2 || len(w.batches) != 2 {
		t.Fatalf("expected stop after second batch, n=%d batches=%d", n, len(w.batches))
	}
}

func TestRunImportWritesYAMLFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "locations.yaml")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locations := sampleLocations(2)

	err := runImport(context.Background(), config.Config{}, logger, importTarget{name: config.LocationBackendYAML, out: out}, locations, io.Discard)
	if err != nil {
		t.Fatalf("runImport: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	decoded, err := yamlstore.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(decoded) != 2 || decoded[1].Code != locations[1].Code {
		t.Fatalf("unexpected round trip %#v", decoded)
	}
}

func TestRunImportRejectsUnknownTarget(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := runImport(context.Background(), config.Config{}, logger, importTarget{name: "sqlite"}, sampleLocations(1), io.Discard)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestImportYAMLCommandToStdout(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "fixture.yaml")
	var buf bytes.Buffer
	if err := yamlstore.Encode(&buf, sampleLocations(1)); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := os.WriteFile(fixture, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := newRootCmd(config.Config{}, logger)
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetArgs([]string{"import-yaml", fixture, "--target", "yaml"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stdout.String(), "locations:") {
		t.Fatalf("expected yaml document on stdout, got %q", stdout.String())
	}
}
