package insights

import "testing"

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		start string
		end   string
		want  string
	}{
		{
			name:  "plain array",
			raw:   `["a", "b", "c"]`,
			start: "[",
			end:   "]",
			want:  `["a", "b", "c"]`,
		},
		{
			name:  "fenced array",
			raw:   "```json\n[\"a\", \"b\", \"c\"]\n```",
			start: "[",
			end:   "]",
			want:  `["a", "b", "c"]`,
		},
		{
			name:  "object with leading prose",
			raw:   "Here is the result: {\"amount\": 12.5}",
			start: "{",
			end:   "}",
			want:  `{"amount": 12.5}`,
		},
		{
			name:  "bare fence",
			raw:   "```\n{\"amount\": 1}\n```",
			start: "{",
			end:   "}",
			want:  `{"amount": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.raw, tt.start, tt.end); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
