package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCountUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Count
		wantErr  bool
	}{
		{name: "string", input: `"1.2万"`, expected: "1.2万"},
		{name: "integer", input: `356`, expected: "356"},
		{name: "float", input: `3.5`, expected: "3.5"},
		{name: "null", input: `null`, expected: ""},
		{name: "object", input: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Count
			err := json.Unmarshal([]byte(tt.input), &c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && c != tt.expected {
				t.Fatalf("count = %q, want %q", c, tt.expected)
			}
		})
	}
}

func TestPositionUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Position
		wantErr  bool
	}{
		{name: "number", input: `3`, expected: 3},
		{name: "string", input: `"4"`, expected: 4},
		{name: "null", input: `null`, expected: 0},
		{name: "fraction", input: `1.5`, wantErr: true},
		{name: "word", input: `"first"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Position
			err := json.Unmarshal([]byte(tt.input), &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p != tt.expected {
				t.Fatalf("position = %d, want %d", p, tt.expected)
			}
		})
	}
}

func TestDetailOutcomeRecord(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 30, 5, 0, time.UTC)

	ok := DetailOutcome{Position: 2, Detail: &ItemDetail{Title: "t"}, Raw: json.RawMessage(`{"title":"t"}`), Attempts: 1}
	record := ok.Record(at)
	if record.PostIndex != 2 || record.CollectedAt != "2026-10-15 09:30:05" || string(record.Data) != `{"title":"t"}` || record.Error != "" {
		t.Fatalf("unexpected record: %+v", record)
	}

	failed := DetailOutcome{Position: 3, Err: "no data extracted", Attempts: 3}
	record = failed.Record(at)
	if !failed.Failed() || record.Error != "no data extracted" || record.Data != nil || record.Attempts != 3 {
		t.Fatalf("unexpected placeholder: %+v", record)
	}
}
