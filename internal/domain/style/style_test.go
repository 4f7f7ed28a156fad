package style

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseAcceptsStringAndObject(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Descriptor
	}{
		{name: "null", raw: `null`, want: Descriptor{}},
		{name: "empty", raw: ``, want: Descriptor{}},
		{name: "preset_string", raw: `" Gaming "`, want: Descriptor{Style: "gaming"}},
		{name: "free_text", raw: `"dark, moody, red accents"`, want: Descriptor{Notes: "dark, moody, red accents"}},
		{name: "object", raw: `{"style":"Minimalist","palette":" teal and orange ","mood":"calm"}`, want: Descriptor{Style: "minimalist", Palette: "teal and orange", Mood: "calm"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(json.RawMessage(tc.raw))
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Parse = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestParseRejectsOversizedField(t *testing.T) {
	raw, _ := json.Marshal(map[string]string{"mood": strings.Repeat("x", maxFieldLength+1)})
	if _, err := Parse(raw); err == nil {
		t.Fatal("expected error for oversized mood")
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse(json.RawMessage(`{"style":`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDescribeExpandsPreset(t *testing.T) {
	d := Descriptor{Style: "gaming", Palette: "neon purple", TextStyle: "bold outline"}
	got := d.Describe()
	want := "Thumbnail style: Gaming (vibrant, energetic, gaming aesthetic with neon effects)\n" +
		"Color palette: neon purple\n" +
		"Text style: bold outline"
	if got != want {
		t.Fatalf("Describe =\n%s\nwant\n%s", got, want)
	}
}

func TestDescribeEmpty(t *testing.T) {
	if got := (Descriptor{}).Describe(); got != "" {
		t.Fatalf("Describe = %q, want empty", got)
	}
}
