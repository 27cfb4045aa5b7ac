package analytics

import (
	"testing"

	"github.com/searchlab/ranksearch/pkg/config"
)

func TestCollectorTrackNeverBlocks(t *testing.T) {
	c := NewCollector(nil, config.AnalyticsConfig{BufferSize: 2}, nil)

	for i := 0; i < 5; i++ {
		c.Track(SearchEvent{Type: EventSearch, Query: "cat"})
	}

	if got := c.Dropped(); got != 3 {
		t.Errorf("Dropped = %d, want 3", got)
	}
}

func TestCollectorDefaultBufferSize(t *testing.T) {
	c := NewCollector(nil, config.AnalyticsConfig{}, nil)
	if cap(c.eventCh) != 1024 {
		t.Errorf("default buffer size = %d, want 1024", cap(c.eventCh))
	}
}
