package utils

import (
	"testing"
)

type weatherArgs struct {
	City string `json:"city"`
	Days int    `json:"days"`
}

func TestParseStringAs_Primitives(t *testing.T) {
	if got, err := ParseStringAs[string]("hello"); err != nil || got != "hello" {
		t.Errorf("string: got %q, err %v", got, err)
	}
	if got, err := ParseStringAs[int]("42"); err != nil || got != 42 {
		t.Errorf("int: got %d, err %v", got, err)
	}
	if got, err := ParseStringAs[float64]("3.5"); err != nil || got != 3.5 {
		t.Errorf("float: got %v, err %v", got, err)
	}
	if got, err := ParseStringAs[bool]("true"); err != nil || !got {
		t.Errorf("bool: got %v, err %v", got, err)
	}
	if _, err := ParseStringAs[int]("not a number"); err == nil {
		t.Error("expected error for invalid int")
	}
}

func TestParseStringAs_Struct(t *testing.T) {
	got, err := ParseStringAs[weatherArgs](`{"city":"Oslo","days":3}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.City != "Oslo" || got.Days != 3 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestParseStringAs_RepairsMalformedJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  weatherArgs
	}{
		{
			name:  "single quotes and bare keys",
			input: `{city: 'Oslo', days: 3}`,
			want:  weatherArgs{City: "Oslo", Days: 3},
		},
		{
			name:  "trailing comma",
			input: `{"city":"Oslo","days":3,}`,
			want:  weatherArgs{City: "Oslo", Days: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringAs[weatherArgs](tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseStringAs_Map(t *testing.T) {
	got, err := ParseStringAs[map[string]any](`{"expression":"2+2"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["expression"] != "2+2" {
		t.Errorf("unexpected map contents: %v", got)
	}
}
