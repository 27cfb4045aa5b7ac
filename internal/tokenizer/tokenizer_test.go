package tokenizer

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"only_spaces", "    ", nil},
		{"single_term", "cat", []string{"cat"}},
		{"simple", "white cat fluffy tail", []string{"white", "cat", "fluffy", "tail"}},
		{"collapses_runs", "a   b  c", []string{"a", "b", "c"}},
		{"trims_edges", "  cat dog  ", []string{"cat", "dog"}},
		{"case_preserved", "Cat CAT cat", []string{"Cat", "CAT", "cat"}},
		{"punctuation_kept", "cat, dog!", []string{"cat,", "dog!"}},
		{"minus_prefix_kept", "cat -dog", []string{"cat", "-dog"}},
		{"tab_is_not_a_separator", "a\tb c", []string{"a\tb", "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Split(tc.text)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Split(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}
