package analytics

import (
	"reflect"
	"testing"
)

func TestTopNOrdersByCountDescending(t *testing.T) {
	counts := map[string]int64{
		"cat":    5,
		"dog":    9,
		"fox":    1,
		"parrot": 7,
	}
	got := TopN(counts, 3)
	want := []QueryCount{
		{Query: "dog", Count: 9},
		{Query: "parrot", Count: 7},
		{Query: "cat", Count: 5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopN = %v, want %v", got, want)
	}
}

func TestTopNBreaksTiesByQuery(t *testing.T) {
	counts := map[string]int64{
		"zebra":  3,
		"ant":    3,
		"mole":   3,
		"badger": 1,
	}
	got := TopN(counts, 2)
	want := []QueryCount{
		{Query: "ant", Count: 3},
		{Query: "mole", Count: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopN = %v, want %v", got, want)
	}
}

func TestTopNWithFewerEntriesThanLimit(t *testing.T) {
	counts := map[string]int64{"cat": 2}
	got := TopN(counts, 10)
	if len(got) != 1 || got[0].Query != "cat" {
		t.Errorf("TopN = %v, want single cat entry", got)
	}
}

func TestTopNEmpty(t *testing.T) {
	if got := TopN(map[string]int64{}, 5); len(got) != 0 {
		t.Errorf("TopN of empty map = %v, want empty", got)
	}
}
