package ai

import "testing"

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"no fence", `[{"Date":"2020-01-01"}]`, `[{"Date":"2020-01-01"}]`},
		{"json fence", "```json\n[1,2]\n```", "[1,2]"},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n[]\n```\n ", "[]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := StripCodeFence(tc.input)
			if got != tc.want {
				t.Fatalf("StripCodeFence(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_Standard(t *testing.T) {
	var out []map[string]string
	err := UnmarshalFlexible(`[{"Date":"2020-01-01"}]`, &out)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(out) != 1 || out[0]["Date"] != "2020-01-01" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestUnmarshalFlexible_DoubleEncoded(t *testing.T) {
	var out map[string]int
	err := UnmarshalFlexible(`"{\"a\": 1}"`, &out)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if out["a"] != 1 {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestUnmarshalFlexible_Repaired(t *testing.T) {
	var out map[string]string
	err := UnmarshalFlexible(`{name: "test"}`, &out)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if out["name"] != "test" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestGenerateSchema_StructFields(t *testing.T) {
	type sample struct {
		Date      string `json:"Date"`
		Statement string `json:"Statement"`
	}
	schema := GenerateSchema(&sample{})
	if schema == nil {
		t.Fatal("expected schema, got nil")
	}
}
