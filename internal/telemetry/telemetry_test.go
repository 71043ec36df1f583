package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesInstruments(t *testing.T) {
	tel, err := New("expensetracker-test")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer tel.Shutdown(context.Background())

	counter, err := tel.Meter().Int64Counter("expenses.created")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(context.Background(), 3)

	rr := httptest.NewRecorder()
	tel.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	if !strings.Contains(body, "expenses_created_total") {
		t.Fatalf("counter missing from output:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("runtime collector missing from output")
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	for i := 0; i < 2; i++ {
		tel, err := New("svc")
		if err != nil {
			t.Fatalf("instance %d: %v", i, err)
		}
		_ = tel.Shutdown(context.Background())
	}
}
