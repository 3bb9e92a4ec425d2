package util

import (
	"reflect"
	"testing"
)

func TestTrimFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"padded", "  {\"a\":1} \n", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}```", `{"a":1}`},
		{"fence in middle", "x ```json y", "x ```json y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TrimFence(tt.input)
			if result != tt.expected {
				t.Errorf("TrimFence(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCompactStrings(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil", nil, nil},
		{"all blank", []string{"", "  "}, nil},
		{"trims", []string{" 爸爸", "妈妈 "}, []string{"爸爸", "妈妈"}},
		{"drops blanks", []string{"历史", "", "北京"}, []string{"历史", "北京"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CompactStrings(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("CompactStrings(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSafeFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"explorer_memories", "explorer_memories"},
		{"my trip", "my_trip"},
		{"a/b:c", "a_b_c"},
		{`c:\journal`, "c__journal"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := SafeFileName(tt.input)
			if result != tt.expected {
				t.Errorf("SafeFileName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
