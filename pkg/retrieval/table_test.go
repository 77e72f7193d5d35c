package retrieval

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRow_PreservesColumnOrder(t *testing.T) {
	row := NewRow()
	row.Set("z", 1)
	row.Set("a", 2)
	row.Set("m", 3)
	row.Set("a", 4) // replace must not duplicate the column

	want := []string{"z", "a", "m"}
	got := row.Columns()
	if len(got) != len(want) {
		t.Fatalf("Expected columns %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Column %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if v, _ := row.Get("a"); v != 4 {
		t.Errorf("Expected replaced value 4, got %v", v)
	}
}

func TestAssembledTable_ColumnUnionFirstSeenOrder(t *testing.T) {
	table := NewAssembledTable()

	r1 := NewRow()
	r1.Set("b", "1")
	r1.Set("a", "2")
	table.Append(r1)

	r2 := NewRow()
	r2.Set("a", "3")
	r2.Set("c", "4")
	table.Append(r2)

	want := []string{"b", "a", "c"}
	got := table.Columns()
	if len(got) != len(want) {
		t.Fatalf("Expected columns %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Column %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestAssembledTable_AbsentCells(t *testing.T) {
	table := NewAssembledTable()

	r1 := NewRow()
	r1.Set("a", "")
	table.Append(r1)

	r2 := NewRow()
	r2.Set("b", "x")
	table.Append(r2)

	// An empty string is present; a missing column is Absent
	if table.Cell(0, "a") == Absent {
		t.Error("Empty string must not read as Absent")
	}
	if table.Cell(0, "b") != Absent {
		t.Errorf("Expected Absent, got %v", table.Cell(0, "b"))
	}
	if table.Cell(1, "a") != Absent {
		t.Errorf("Expected Absent, got %v", table.Cell(1, "a"))
	}
	if table.Cell(99, "a") != Absent {
		t.Errorf("Out-of-range cell must be Absent, got %v", table.Cell(99, "a"))
	}
}

func TestDecodeRows_PreservesKeyOrderAndNumbers(t *testing.T) {
	body := `[
		{"facilityId": 3, "stateCode": "CA", "so2Mass": 12.75},
		{"stateCode": "TX", "facilityId": 4}
	]`

	rows, err := decodeRows(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decodeRows failed: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	// Key order of each object survives decoding
	first := rows[0].Columns()
	if first[0] != "facilityId" || first[1] != "stateCode" || first[2] != "so2Mass" {
		t.Errorf("Unexpected column order: %v", first)
	}
	second := rows[1].Columns()
	if second[0] != "stateCode" || second[1] != "facilityId" {
		t.Errorf("Unexpected column order: %v", second)
	}

	// Numbers stay json.Number for lossless CSV output
	v, _ := rows[0].Get("so2Mass")
	num, ok := v.(json.Number)
	if !ok {
		t.Fatalf("Expected json.Number, got %T", v)
	}
	if num.String() != "12.75" {
		t.Errorf("Expected 12.75, got %s", num.String())
	}
}

func TestDecodeRows_RejectsNonArray(t *testing.T) {
	if _, err := decodeRows(strings.NewReader(`{"not": "an array"}`)); err == nil {
		t.Error("Expected error for non-array body")
	}
	if _, err := decodeRows(strings.NewReader(`[{"unterminated": `)); err == nil {
		t.Error("Expected error for truncated body")
	}
}
