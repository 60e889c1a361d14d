package main

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Alisasanian/PDFsorter/constants"
	"github.com/Alisasanian/PDFsorter/internal/common"
)

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-master", "m.xlsx", "-no-color", "sort"})
	if err != nil {
		t.Fatal(err)
	}
	if o.master != "m.xlsx" || !o.noColor || o.command != "sort" {
		t.Errorf("options = %+v", o)
	}

	o, err = parseFlags(nil)
	if err != nil || o.command != "run" {
		t.Errorf("default command = %q, %v", o.command, err)
	}

	if _, err := parseFlags([]string{"crop", "sort"}); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("two commands: %v", err)
	}
}

func TestCommandStages(t *testing.T) {
	tests := []struct {
		cmd  string
		want []constants.Stage
		err  bool
	}{
		{"run", nil, false},
		{"crop", []constants.Stage{constants.StageCrop}, false},
		{"ocr", []constants.Stage{constants.StageOCR}, false},
		{"shuffle", nil, true},
	}
	for _, tt := range tests {
		got, err := commandStages(tt.cmd)
		if (err != nil) != tt.err || !reflect.DeepEqual(got, tt.want) {
			t.Errorf("commandStages(%q) = %v, %v", tt.cmd, got, err)
		}
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Store.DSN = filepath.Join(cfg.Paths.WorkDir, "index.db")
	applyFlags(cfg, options{workDir: "/srv/jobs", master: "/srv/master.csv"})
	if cfg.Paths.Input != filepath.Join("/srv/jobs", "input") || cfg.Paths.Master != "/srv/master.csv" {
		t.Errorf("paths = %+v", cfg.Paths)
	}
	if cfg.Store.DSN != filepath.Join("/srv/jobs", "index.db") {
		t.Errorf("dsn = %q", cfg.Store.DSN)
	}
}
