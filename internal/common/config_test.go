package common

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfigFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PDFSORTER_CONFIG", "")
	t.Setenv("WORK_DIR", dir)
	t.Setenv("RASTER_DPI", "150")
	t.Setenv("CROP_PROBE_RENDER", "false")
	t.Setenv("WATCH_DEBOUNCE", "750ms")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got, want := cfg.Paths.Input, filepath.Join(dir, "input"); got != want {
		t.Errorf("input = %q, want %q", got, want)
	}
	if got, want := cfg.Store.DSN, filepath.Join(dir, "index.db"); got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
	if cfg.Raster.DPI != 150 {
		t.Errorf("raster dpi = %d, want 150", cfg.Raster.DPI)
	}
	if cfg.Crop.ProbeRender {
		t.Error("probe render should be disabled")
	}
	if cfg.Server.Debounce != 750*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Server.Debounce)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestApplyConfigYAML(t *testing.T) {
	cfg := DefaultConfig()
	doc := []byte(`
paths:
  work_dir: /data/run1
  master: /data/master.csv
crop:
  strategy: custom
  center_origin: [0.8, 0.9, 0.99, 0.99]
  zero_origin: [0.85, 0.85, 0.99, 0.99]
raster:
  dpi: 200
server:
  debounce: 5s
`)
	if err := ApplyConfigYAML(doc, cfg); err != nil {
		t.Fatalf("ApplyConfigYAML: %v", err)
	}
	if cfg.Paths.Cropped != filepath.Join("/data/run1", "cropped") {
		t.Errorf("cropped = %q", cfg.Paths.Cropped)
	}
	if cfg.Paths.Master != "/data/master.csv" {
		t.Errorf("master = %q", cfg.Paths.Master)
	}
	if cfg.Raster.DPI != 200 || cfg.Raster.Quality != 75 {
		t.Errorf("raster = %+v", cfg.Raster)
	}
	if cfg.Server.Debounce != 5*time.Second {
		t.Errorf("debounce = %v", cfg.Server.Debounce)
	}
	if cfg.Crop.ZeroOrigin != [4]float64{0.85, 0.85, 0.99, 0.99} {
		t.Errorf("zero origin = %v", cfg.Crop.ZeroOrigin)
	}
}

func TestApplyConfigYAMLRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"out of range": "raster:\n  dpi: 5000\n",
		"unknown key":  "raster:\n  colour: true\n",
		"bad engine":   "ocr:\n  engine: paddle\n",
		"bad duration": "server:\n  debounce: soon\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			err := ApplyConfigYAML([]byte(doc), DefaultConfig())
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error %v is not ErrValidation", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Driver = "none"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg.Crop.Strategy = "custom"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("custom strategy without fractions should fail")
	}
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Code != "CONFIG_ERROR" {
		t.Errorf("want CONFIG_ERROR, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Store.Driver = "none"
	cfg.OCR.Engine = "documentai"
	if cfg.Validate() == nil {
		t.Error("documentai without processor should fail")
	}
}

func TestToStatus(t *testing.T) {
	if ToStatus(nil) != nil {
		t.Fatal("nil should map to nil")
	}
	tests := []struct {
		err  error
		want codes.Code
	}{
		{NoInputError("pdf files"), codes.FailedPrecondition},
		{WrapError(ErrNotFound, "get run"), codes.NotFound},
		{NewAppError("CONFIG_ERROR", "bad dpi", ErrInvalidInput), codes.InvalidArgument},
		{errors.Join(ErrDatabase, errors.New("disk full")), codes.Internal},
	}
	for _, tt := range tests {
		if got := status.Code(ToStatus(tt.err)); got != tt.want {
			t.Errorf("ToStatus(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("paths.input", "  ", Required).
		Field("raster.dpi", 20, IntRange(36, 1200)).
		Field("ocr.engine", "tesseract", OneOf("tesseract", "gosseract")).
		Field("crop.zero_origin", [4]float64{0.9, 0.5, 0.8, 0.9}, Fractions).
		Field("crop.center_origin", [4]float64{0.8, 0.9, 0.99, 0.99}, Fractions)

	if got := len(v.Errors()); got != 3 {
		t.Fatalf("errors = %d (%s), want 3", got, v.ErrorMessage())
	}
	for i, field := range []string{"paths.input", "raster.dpi", "crop.zero_origin"} {
		if v.Errors()[i].Field != field {
			t.Errorf("errors[%d] = %s, want %s", i, v.Errors()[i].Field, field)
		}
	}
	if !errors.Is(v.Err(), ErrValidation) {
		t.Errorf("Err() = %v", v.Err())
	}
	if NewValidator().Err() != nil {
		t.Error("empty validator should not error")
	}
}
