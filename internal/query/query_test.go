package query

import (
	"reflect"
	"testing"

	"github.com/searchlab/ranksearch/internal/stopwords"
)

func TestParseClassifiesPlusAndMinus(t *testing.T) {
	q := Parse("fluffy -tail cat", nil)
	if got, want := q.PlusTerms(), []string{"cat", "fluffy"}; !reflect.DeepEqual(got, want) {
		t.Errorf("PlusTerms() = %v, want %v", got, want)
	}
	if got, want := q.MinusTerms(), []string{"tail"}; !reflect.DeepEqual(got, want) {
		t.Errorf("MinusTerms() = %v, want %v", got, want)
	}
	if q.Raw != "fluffy -tail cat" {
		t.Errorf("Raw = %q", q.Raw)
	}
}

func TestParseDeduplicates(t *testing.T) {
	q := Parse("cat cat -dog -dog", nil)
	if len(q.Plus) != 1 || len(q.Minus) != 1 {
		t.Errorf("got %d plus / %d minus terms, want 1 / 1", len(q.Plus), len(q.Minus))
	}
}

func TestParseDropsStopWords(t *testing.T) {
	stop := stopwords.New("in the")
	q := Parse("cat in the -the hat", stop)
	if got, want := q.PlusTerms(), []string{"cat", "hat"}; !reflect.DeepEqual(got, want) {
		t.Errorf("PlusTerms() = %v, want %v", got, want)
	}
	// The stop-word check applies to the stripped term, so "-the" vanishes.
	if len(q.Minus) != 0 {
		t.Errorf("MinusTerms() = %v, want none", q.MinusTerms())
	}
}

func TestParseSameTermBothWays(t *testing.T) {
	q := Parse("cat -cat", nil)
	if _, ok := q.Plus["cat"]; !ok {
		t.Error("plus set lost \"cat\"")
	}
	if _, ok := q.Minus["cat"]; !ok {
		t.Error("minus set lost \"cat\"")
	}
}

func TestParseEdgeTokens(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		wantPlus  []string
		wantMinus []string
	}{
		{"empty", "", nil, nil},
		{"bare_minus_dropped", "-", nil, nil},
		{"double_minus_strips_once", "--cat", nil, []string{"-cat"}},
		{"case_preserved", "Cat -DOG", []string{"Cat"}, []string{"DOG"}},
		{"only_minus_terms", "-cat -dog", nil, []string{"cat", "dog"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := Parse(tc.raw, nil)
			got := q.PlusTerms()
			if !(len(got) == 0 && len(tc.wantPlus) == 0) && !reflect.DeepEqual(got, tc.wantPlus) {
				t.Errorf("PlusTerms() = %v, want %v", got, tc.wantPlus)
			}
			gotM := q.MinusTerms()
			if !(len(gotM) == 0 && len(tc.wantMinus) == 0) && !reflect.DeepEqual(gotM, tc.wantMinus) {
				t.Errorf("MinusTerms() = %v, want %v", gotM, tc.wantMinus)
			}
		})
	}
}
