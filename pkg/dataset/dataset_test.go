package dataset

import (
	"errors"
	"testing"
)

func stringCol(name string, values ...string) Column {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return Column{Name: name, Type: String, Values: vals}
}

func floatCol(name string, values ...float64) Column {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return Column{Name: name, Type: Float, Values: vals}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		columns []Column
		wantErr error
	}{
		{
			name:    "rectangular",
			columns: []Column{stringCol("a", "x", "y"), floatCol("b", 1, 2)},
		},
		{
			name:    "ragged",
			columns: []Column{stringCol("a", "x", "y"), floatCol("b", 1)},
			wantErr: ErrNotRectangular,
		},
		{
			name: "mixed types",
			columns: []Column{
				{Name: "a", Type: String, Values: []any{"x", int64(1)}},
			},
			wantErr: ErrMixedTypes,
		},
		{
			name:    "nil values allowed",
			columns: []Column{{Name: "a", Type: String, Values: []any{"x", nil}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.columns...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestFromRecords_TypeInference(t *testing.T) {
	records := []map[string]any{
		{"species": "Adelie", "mass": int64(3750), "flag": true},
		{"species": "Gentoo", "mass": 4500.5, "flag": false},
		{"species": "Adelie", "mass": nil, "flag": true},
	}
	ds, err := FromRecords(records, []string{"species", "mass", "flag"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", ds.NumRows())
	}
	mass, err := ds.Column("mass")
	if err != nil {
		t.Fatal(err)
	}
	if mass.Type != Float {
		t.Errorf("expected mass promoted to Float, got %s", mass.Type)
	}
	if got := mass.Values[0]; got != 3750.0 {
		t.Errorf("expected promoted value 3750.0, got %v", got)
	}
	if mass.Values[2] != nil {
		t.Errorf("expected nil retained, got %v", mass.Values[2])
	}
}

func TestMaskAndSelect(t *testing.T) {
	ds, err := New(
		stringCol("species", "Adelie", "Gentoo", "Adelie"),
		floatCol("mass", 3750, 4500, 3800),
	)
	if err != nil {
		t.Fatal(err)
	}

	masked, err := ds.Mask([]bool{true, false, true})
	if err != nil {
		t.Fatal(err)
	}
	if masked.NumRows() != 2 {
		t.Fatalf("expected 2 rows after mask, got %d", masked.NumRows())
	}

	sel, err := masked.Select("mass")
	if err != nil {
		t.Fatal(err)
	}
	if sel.NumColumns() != 1 || sel.NumRows() != 2 {
		t.Fatalf("unexpected shape %dx%d", sel.NumRows(), sel.NumColumns())
	}

	if _, err := masked.Select("missing"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestAppendAndTail(t *testing.T) {
	a, _ := New(stringCol("s", "x"), floatCol("v", 1))
	b, _ := New(stringCol("s", "y", "z"), floatCol("v", 2, 3))

	joined, err := a.Append(b)
	if err != nil {
		t.Fatal(err)
	}
	if joined.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", joined.NumRows())
	}

	tail, err := joined.Tail(2)
	if err != nil {
		t.Fatal(err)
	}
	col, _ := tail.Column("s")
	if col.Values[0] != "y" || col.Values[1] != "z" {
		t.Errorf("unexpected tail rows: %v", col.Values)
	}

	whole, err := joined.Tail(10)
	if err != nil {
		t.Fatal(err)
	}
	if whole.NumRows() != 3 {
		t.Errorf("tail larger than table should return all rows, got %d", whole.NumRows())
	}
}

func TestInferSchema(t *testing.T) {
	ds, err := New(
		stringCol("species", "Adelie", "Gentoo", "Adelie"),
		floatCol("mass", 3750, 4500, 3800),
	)
	if err != nil {
		t.Fatal(err)
	}
	schema := ds.InferSchema()

	species := schema["species"]
	if species.Type != "string" {
		t.Errorf("expected string type, got %s", species.Type)
	}
	if len(species.Enum) != 2 {
		t.Errorf("expected 2 enum values, got %v", species.Enum)
	}

	mass := schema["mass"]
	if mass.Min != 3750 || mass.Max != 4500 {
		t.Errorf("unexpected bounds [%v, %v]", mass.Min, mass.Max)
	}
}

func TestArrowRoundTrip(t *testing.T) {
	ds, err := New(
		stringCol("species", "Adelie", "Gentoo"),
		floatCol("mass", 3750, 4500),
		Column{Name: "n", Type: Int, Values: []any{int64(1), nil}},
	)
	if err != nil {
		t.Fatal(err)
	}

	table, err := ds.ToArrow()
	if err != nil {
		t.Fatal(err)
	}
	defer table.Release()

	back, err := FromArrow(table)
	if err != nil {
		t.Fatal(err)
	}
	if back.NumRows() != 2 || back.NumColumns() != 3 {
		t.Fatalf("unexpected shape %dx%d", back.NumRows(), back.NumColumns())
	}
	n, _ := back.Column("n")
	if n.Values[0] != int64(1) || n.Values[1] != nil {
		t.Errorf("unexpected int column after round trip: %v", n.Values)
	}
}
