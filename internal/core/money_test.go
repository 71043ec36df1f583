package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"4.5", "4.5", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"1e20", "100000000000000000000", true},
		{"12345678901234567890", "12345678901234567890", true},
		{"123456789012345678901", "", false},
		{"1e50000000", "", false},
		{"1e-50000000", "", false},
		{"1e21", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got.String(), err)
			}
		} else {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestAmountMarshalsAsNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		A Amount `json:"a"`
	}{A: NewAmount(4.5)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":4.5}` {
		t.Fatalf("unexpected json: %s", b)
	}
}

func TestAmountUnmarshalIsLenient(t *testing.T) {
	cases := map[string]string{
		`12.5`:          "12.5",
		`"7,25"`:        "7.25",
		`"abc"`:         "0",
		`null`:          "0",
		`true`:          "0",
		`"  3  "`:       "3",
		`1e50000000`:    "0",
		`"1e-50000000"`: "0",
	}
	for in, want := range cases {
		var a Amount
		if err := json.Unmarshal([]byte(in), &a); err != nil {
			t.Fatalf("%s: unexpected error %v", in, err)
		}
		if a.String() != want {
			t.Fatalf("%s: got %s, want %s", in, a.String(), want)
		}
	}
}
