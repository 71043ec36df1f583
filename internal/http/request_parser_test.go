package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expensetracker/internal/core"
)

func parserFor(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err != nil {
		t.Fatalf("parse %q: %v", body, err)
	}
	return p
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		key         string
		want        string
		present     bool
	}{
		{"json string", "application/json", `{"description":" Coffee "}`, "description", "Coffee", true},
		{"json number", "application/json", `{"amount":4.50}`, "amount", "4.50", true},
		{"json null", "application/json", `{"amount":null}`, "amount", "", false},
		{"json missing", "application/json", `{}`, "amount", "", false},
		{"json without header", "", `{"category":"Food"}`, "category", "Food", true},
		{"form value", "application/x-www-form-urlencoded", "category=Food", "category", "Food", true},
		{"form empty value", "application/x-www-form-urlencoded", "category=", "category", "", true},
		{"control characters", "application/json", `{"description":"a\u0000b"}`, "description", "ab", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parserFor(t, tt.contentType, tt.body).Lookup(tt.key)
			if got != tt.want || ok != tt.present {
				t.Fatalf("Lookup(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.present)
			}
		})
	}
}

func TestParseRejectsNonObjectJSON(t *testing.T) {
	for _, body := range []string{`[1]`, `{"a":`, `null`} {
		req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if err := NewRequestBodyParser(httptest.NewRecorder(), req).Parse(); err == nil {
			t.Fatalf("%s: expected error", body)
		}
	}
}

func TestDraftFromRequest(t *testing.T) {
	d, err := DraftFromRequest(parserFor(t, "application/json", `{"description":"Coffee","amount":"4,5","category":"Food"}`))
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if d.Amount.String() != "4.5" || d.Description != "Coffee" {
		t.Fatalf("unexpected draft %+v", d)
	}

	_, err = DraftFromRequest(parserFor(t, "application/json", `{"description":"Coffee","amount":4.5}`))
	if !errors.Is(err, core.ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
}

func TestPatchFromRequest(t *testing.T) {
	p, err := PatchFromRequest(parserFor(t, "application/json", `{"amount":10}`))
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if !p.Amount.Set || p.Description.Set || p.Category.Set {
		t.Fatalf("only amount should be set: %+v", p)
	}

	p, err = PatchFromRequest(parserFor(t, "application/json", `{}`))
	if err != nil || !p.IsEmpty() {
		t.Fatalf("expected empty patch, got %+v err=%v", p, err)
	}

	if _, err := PatchFromRequest(parserFor(t, "application/json", `{"amount":"0"}`)); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := PatchFromRequest(parserFor(t, "application/json", `{"description":""}`)); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
