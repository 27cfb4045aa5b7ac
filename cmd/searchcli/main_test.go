package main

import (
	"strings"
	"testing"
)

const ratedInput = `and in on
4
white cat and fancy collar
ACTUAL 2 8 -3
fluffy cat fluffy tail
ACTUAL 3 7 2 7
groomed dog expressive eyes
ACTUAL 4 5 -12 2 1
groomed starling eugene
BANNED 1 9
fluffy groomed cat
`

func TestRunRatedMode(t *testing.T) {
	var out strings.Builder
	if err := run(strings.NewReader(ratedInput), &out, false, 5); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := `{ document_id = 1, relevance = 0.866434, rating = 5 }
{ document_id = 0, relevance = 0.173287, rating = 2 }
{ document_id = 2, relevance = 0.173287, rating = -1 }
`
	if out.String() != want {
		t.Errorf("output mismatch:\ngot:\n%swant:\n%s", out.String(), want)
	}
}

func TestRunSimpleMode(t *testing.T) {
	input := `and in on
3
white cat and fancy collar
fluffy cat fluffy tail
groomed dog expressive eyes
fluffy groomed cat
`
	var out strings.Builder
	if err := run(strings.NewReader(input), &out, true, 5); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := `{ document_id = 1, relevance = 0.650672 }
{ document_id = 2, relevance = 0.274653 }
{ document_id = 0, relevance = 0.101366 }
`
	if out.String() != want {
		t.Errorf("output mismatch:\ngot:\n%swant:\n%s", out.String(), want)
	}
}

func TestRunHonorsTopK(t *testing.T) {
	var out strings.Builder
	if err := run(strings.NewReader(ratedInput), &out, false, 2); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Count(out.String(), "\n")
	if lines != 2 {
		t.Errorf("expected 2 result lines, got %d:\n%s", lines, out.String())
	}
	if !strings.HasPrefix(out.String(), "{ document_id = 1,") {
		t.Errorf("best document should lead the output, got:\n%s", out.String())
	}
}

func TestRunMinusTermInQuery(t *testing.T) {
	input := `and in on
2
fluffy cat fluffy tail
ACTUAL 1 5
fluffy dog
ACTUAL 1 3
fluffy -cat
`
	var out strings.Builder
	if err := run(strings.NewReader(input), &out, false, 5); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(out.String(), "document_id = 0") {
		t.Errorf("minus term should exclude document 0:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "document_id = 1") {
		t.Errorf("document 1 should survive the minus term:\n%s", out.String())
	}
}

func TestRunRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "count not a number",
			input:   "the\nmany\n",
			wantErr: "document count",
		},
		{
			name:    "negative count",
			input:   "the\n-1\n",
			wantErr: "document count",
		},
		{
			name:    "unknown status",
			input:   "the\n1\nsome text\nPENDING 1 5\nquery\n",
			wantErr: "document 0",
		},
		{
			name:    "rating count mismatch",
			input:   "the\n1\nsome text\nACTUAL 3 1 2\nquery\n",
			wantErr: "expected 3 ratings",
		},
		{
			name:    "truncated before query",
			input:   "the\n1\nsome text\nACTUAL 1 5\n",
			wantErr: "reading query",
		},
		{
			name:    "missing metadata line",
			input:   "the\n2\nfirst text\n",
			wantErr: "metadata",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			err := run(strings.NewReader(tt.input), &out, false, 5)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseMetaLine(t *testing.T) {
	status, ratings, err := parseMetaLine("BANNED 3 9 -2 0")
	if err != nil {
		t.Fatalf("parseMetaLine: %v", err)
	}
	if string(status) != "BANNED" {
		t.Errorf("status = %q, want BANNED", status)
	}
	if len(ratings) != 3 || ratings[0] != 9 || ratings[1] != -2 || ratings[2] != 0 {
		t.Errorf("ratings = %v, want [9 -2 0]", ratings)
	}

	if _, _, err := parseMetaLine("ACTUAL"); err == nil {
		t.Error("expected error for status without rating count")
	}
	if _, _, err := parseMetaLine("ACTUAL x"); err == nil {
		t.Error("expected error for non-numeric rating count")
	}
	if _, _, err := parseMetaLine("ACTUAL 1 5 6"); err == nil {
		t.Error("expected error for surplus ratings")
	}
}

func TestFormatRelevance(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.8664339756999316, "0.866434"},
		{0.1732867951399863, "0.173287"},
		{0.5, "0.5"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := formatRelevance(tt.in); got != tt.want {
			t.Errorf("formatRelevance(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
