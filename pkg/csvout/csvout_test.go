package csvout

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openairdata/campd-client/pkg/retrieval"
)

func buildTestTable(t *testing.T) *retrieval.AssembledTable {
	t.Helper()

	table := retrieval.NewAssembledTable()

	r1 := retrieval.NewRow()
	r1.Set("stateCode", "CA")
	r1.Set("facilityId", json.Number("3"))
	r1.Set("so2Mass", json.Number("12.75"))
	table.Append(r1)

	r2 := retrieval.NewRow()
	r2.Set("stateCode", "TX")
	r2.Set("facilityId", json.Number("4"))
	// so2Mass absent in this row
	table.Append(r2)

	return table
}

func TestWriter_Write(t *testing.T) {
	var sb strings.Builder
	if err := (Writer{}).Write(&sb, buildTestTable(t)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	want := "stateCode,facilityId,so2Mass\n" +
		"CA,3,12.75\n" +
		"TX,4,\n"
	if sb.String() != want {
		t.Errorf("Unexpected CSV output:\ngot:\n%s\nwant:\n%s", sb.String(), want)
	}
}

func TestWriter_AbsentMarker(t *testing.T) {
	var sb strings.Builder
	w := Writer{AbsentMarker: "NA"}
	if err := w.Write(&sb, buildTestTable(t)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if !strings.Contains(sb.String(), "TX,4,NA\n") {
		t.Errorf("Expected NA marker for absent cell, got:\n%s", sb.String())
	}
}

func TestWriter_FormatCell(t *testing.T) {
	w := Writer{AbsentMarker: "-"}

	tests := []struct {
		in   any
		want string
	}{
		{"plain", "plain"},
		{json.Number("42"), "42"},
		{json.Number("12.750"), "12.750"},
		{true, "true"},
		{false, "false"},
		{nil, ""},
		{retrieval.Absent, "-"},
	}

	for _, tt := range tests {
		if got := w.formatCell(tt.in); got != tt.want {
			t.Errorf("formatCell(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriter_WriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "emissions-annual_CA_1995_1996.csv")

	if err := (Writer{}).WriteFile(path, buildTestTable(t)); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}
	if !strings.HasPrefix(string(data), "stateCode,facilityId,so2Mass\n") {
		t.Errorf("Unexpected file contents:\n%s", data)
	}
}

func TestFileName(t *testing.T) {
	got := FileName("Emissions-Annual", "CA", 1995, 1996)
	if got != "emissions-annual_CA_1995_1996.csv" {
		t.Errorf("Unexpected file name: %s", got)
	}
}
