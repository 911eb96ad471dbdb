package ai

import (
	"testing"
)

type tripletRow struct {
	Head     string `json:"head"`
	HeadType string `json:"head_type"`
	Relation string `json:"relation"`
	Tail     string `json:"tail"`
	TailType string `json:"tail_type"`
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Plain", `[{"a":1}]`, `[{"a":1}]`},
		{"JsonFence", "```json\n[1,2]\n```", "[1,2]"},
		{"BareFence", "```\n[1,2]\n```", "[1,2]"},
		{"StrayQuotes", `"[1,2]"`, "[1,2]"},
		{"Whitespace", "  [1]  ", "[1]"},
		{"Empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := StripFences(tc.in)
			if got != tc.want {
				t.Fatalf("StripFences(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{
			name: "CleanJSON",
			in:   `[{"head":"Jason","head_type":"PERSON","relation":"WROTE","tail":"BlogPost1","tail_type":"BLOG_POST"}]`,
			want: 1,
		},
		{
			name: "FencedJSON",
			in:   "```json\n[{\"head\":\"Jason\",\"head_type\":\"PERSON\",\"relation\":\"WROTE\",\"tail\":\"BlogPost1\",\"tail_type\":\"BLOG_POST\"}]\n```",
			want: 1,
		},
		{
			name: "MalformedRepairable",
			in:   `[{head: "Jason", head_type: "PERSON", relation: "WROTE", tail: "BlogPost1", tail_type: "BLOG_POST"},]`,
			want: 1,
		},
		{
			name: "EmptyArray",
			in:   `[]`,
			want: 0,
		},
		{
			name:    "Garbage",
			in:      `the model refused to answer`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var rows []tripletRow
			err := UnmarshalFlexible(tc.in, &rows)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("UnmarshalFlexible(%q) succeeded, want error", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("UnmarshalFlexible(%q) returned %v", tc.in, err)
			}
			if len(rows) != tc.want {
				t.Fatalf("got %d rows, want %d", len(rows), tc.want)
			}
		})
	}
}

func TestUnmarshalFlexibleDoubleEncoded(t *testing.T) {
	in := `"[{\"head\":\"Jason\",\"head_type\":\"PERSON\",\"relation\":\"WROTE\",\"tail\":\"BlogPost1\",\"tail_type\":\"BLOG_POST\"}]"`
	var rows []tripletRow
	if err := UnmarshalFlexible(in, &rows); err != nil {
		t.Fatalf("UnmarshalFlexible returned %v", err)
	}
	if len(rows) != 1 || rows[0].Head != "Jason" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}
