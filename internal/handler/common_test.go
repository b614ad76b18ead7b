package handler

import (
	"encoding/json"
	"testing"

	"github.com/duongquang05/marathon-portal/internal/apperr"
)

func TestParseParticipationID(t *testing.T) {
	mid, uid, err := parseParticipationID("12-345")
	if err != nil || mid != 12 || uid != 345 {
		t.Fatalf("parse = %d, %d, %v, want 12, 345", mid, uid, err)
	}
	for _, bad := range []string{"", "12", "12-", "-5", "a-b", "0-3", "3-0", "1-2-3"} {
		if _, _, err := parseParticipationID(bad); apperr.KindOf(err) != apperr.KindInvalidArgument {
			t.Fatalf("parse(%q) err = %v, want invalid argument", bad, err)
		}
	}
}

func TestLooseString(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: ``, want: ""},
		{raw: `null`, want: ""},
		{raw: `17`, want: "17"},
		{raw: `"17"`, want: "17"},
		{raw: `"2:05:00"`, want: "2:05:00"},
	}
	for _, tt := range tests {
		if got := looseString(json.RawMessage(tt.raw)); got != tt.want {
			t.Fatalf("looseString(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
