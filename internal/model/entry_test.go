package model

import (
	"errors"
	"testing"
)

func TestSource_IsValid(t *testing.T) {
	for _, tc := range []struct {
		src  Source
		want bool
	}{
		{SourceReport, true},
		{SourceAdmin, true},
		{SourceUnknown, true},
		{Source(""), false},
		{Source("discord"), false},
	} {
		if got := tc.src.IsValid(); got != tc.want {
			t.Errorf("Source(%q).IsValid() = %v, want %v", tc.src, got, tc.want)
		}
	}
}

func TestKind_IsValid(t *testing.T) {
	for _, tc := range []struct {
		kind Kind
		want bool
	}{
		{KindReport, true},
		{KindAdminAction, true},
		{KindGeneral, true},
		{Kind(""), false},
		{Kind("chat"), false},
	} {
		if got := tc.kind.IsValid(); got != tc.want {
			t.Errorf("Kind(%q).IsValid() = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestStats_Total(t *testing.T) {
	s := &Stats{TypeCounts: map[Kind]int64{KindReport: 3, KindAdminAction: 2, KindGeneral: 5}}
	if got := s.Total(); got != 10 {
		t.Fatalf("Total() = %d, want 10", got)
	}
	if got := (&Stats{}).Total(); got != 0 {
		t.Fatalf("empty Total() = %d, want 0", got)
	}
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload([]byte(`{"content":"player reported","embeds":[{"title":"x"}],"username":"bot"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Content() != "player reported" {
		t.Errorf("Content() = %q", p.Content())
	}
	if len(p.Embeds()) != 1 {
		t.Errorf("Embeds() len = %d, want 1", len(p.Embeds()))
	}
	if p.Fields["username"] != "bot" {
		t.Errorf("extra field lost: %v", p.Fields)
	}
}

func TestParsePayload_Defaults(t *testing.T) {
	for _, body := range []string{`{}`, `{"content":42,"embeds":"nope"}`, `{"content":null}`} {
		p, err := ParsePayload([]byte(body))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", body, err)
		}
		if p.Content() != "" {
			t.Errorf("%s: Content() = %q, want empty", body, p.Content())
		}
		if e := p.Embeds(); e == nil || len(e) != 0 {
			t.Errorf("%s: Embeds() = %v, want empty non-nil", body, e)
		}
	}
}

func TestParsePayload_Errors(t *testing.T) {
	if _, err := ParsePayload([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed body")
	}
	if _, err := ParsePayload([]byte(`[1,2]`)); !errors.Is(err, ErrNotObject) {
		t.Errorf("array body: got %v, want ErrNotObject", err)
	}
	if _, err := ParsePayload(nil); err == nil {
		t.Error("expected error for empty body")
	}
}
