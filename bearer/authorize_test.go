package bearer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAllowList(t *testing.T) {
	got := NewAllowList([]string{" id-A ", "", "id-B", "  "}, false)
	assert.Equal(t, []string{"id-A", "id-B"}, got.IDs)
	assert.False(t, got.AllowEmpty)
}

func TestAuthorize(t *testing.T) {
	list := NewAllowList([]string{"id-A", "id-B"}, false)

	tests := []struct {
		name        string
		identity    CallerIdentity
		list        AllowList
		wantAllowed bool
		wantMatched string
	}{
		{
			name:        "allowed-first-entry",
			identity:    CallerIdentity{ClientID: "id-A"},
			list:        list,
			wantAllowed: true,
			wantMatched: "id-A",
		},
		{
			name:        "allowed-second-entry",
			identity:    CallerIdentity{ClientID: "id-B"},
			list:        list,
			wantAllowed: true,
			wantMatched: "id-B",
		},
		{
			name:     "rejected",
			identity: CallerIdentity{ClientID: "id-C"},
			list:     list,
		},
		{
			name:     "rejected-empty-client-id",
			identity: CallerIdentity{},
			list:     list,
		},
		{
			name:     "empty-list-denies-by-default",
			identity: CallerIdentity{ClientID: "id-A"},
			list:     NewAllowList(nil, false),
		},
		{
			name:        "empty-list-allows-when-explicit",
			identity:    CallerIdentity{ClientID: "anyone"},
			list:        NewAllowList(nil, true),
			wantAllowed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Authorize(tt.identity, tt.list)
			assert.Equal(t, tt.wantAllowed, got.Allowed)
			assert.Equal(t, tt.wantMatched, got.MatchedID)
		})
	}
}
