package paging

import (
	"net/http/httptest"
	"testing"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		target string
		want   int64
	}{
		{"/audit-log", PageSize},
		{"/audit-log?limit=10", 10},
		{"/audit-log?limit=0", PageSize},
		{"/audit-log?limit=-3", PageSize},
		{"/audit-log?limit=abc", PageSize},
		{"/audit-log?limit=5000", MaxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if got := ParseLimit(r); got != tt.want {
				t.Errorf("ParseLimit(%q) = %d, want %d", tt.target, got, tt.want)
			}
		})
	}
}

func TestTrimPage(t *testing.T) {
	tests := []struct {
		name     string
		rows     []int
		limit    int64
		wantLen  int
		wantMore bool
	}{
		{"short page", []int{1, 2}, 3, 2, false},
		{"exact page", []int{1, 2, 3}, 3, 3, false},
		{"look-ahead row present", []int{1, 2, 3, 4}, 3, 3, true},
		{"empty", nil, 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, more := TrimPage(tt.rows, tt.limit)
			if len(got) != tt.wantLen || more != tt.wantMore {
				t.Errorf("TrimPage = (%v, %v), want len %d more %v", got, more, tt.wantLen, tt.wantMore)
			}
		})
	}

	if LimitPlusOne(PageSize) != PageSize+1 {
		t.Errorf("LimitPlusOne(%d) = %d", PageSize, LimitPlusOne(PageSize))
	}
}
