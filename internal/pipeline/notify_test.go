package pipeline

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestWebhookNotifier_PostsRunSummary(t *testing.T) {
	var mu sync.Mutex
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		mu.Lock()
		defer mu.Unlock()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	run := &Run{
		BuildNumber: 42,
		SourceRef:   "main",
		ImageRef:    "inventory-app:42",
		Status:      StatusSucceeded,
		StartTime:   time.Now().Add(-time.Minute),
		EndTime:     time.Now(),
	}
	n.NotifySuccess(run)

	mu.Lock()
	defer mu.Unlock()
	if got == nil {
		t.Fatalf("webhook was not delivered")
	}
	if got["build"] != float64(42) {
		t.Fatalf("build = %v, want 42", got["build"])
	}
	if got["status"] != "succeeded" {
		t.Fatalf("status = %v, want succeeded", got["status"])
	}
	if got["image_ref"] != "inventory-app:42" {
		t.Fatalf("image_ref = %v", got["image_ref"])
	}
}

func TestWebhookNotifier_DeliveryFailureIsSwallowed(t *testing.T) {
	// Nothing listens on this port; notification must not panic or block.
	n := NewWebhookNotifier("http://127.0.0.1:1/hook")
	n.NotifyFailure(&Run{BuildNumber: 1, Status: StatusFailed})
}

func TestLogNotifier_ReportsFirstFailedStage(t *testing.T) {
	run := &Run{
		BuildNumber: 3,
		Status:      StatusFailed,
		Stages: []StageStatus{
			{Name: StageCheckout, Status: StatusSucceeded},
			{Name: StageBuild, Status: StatusFailed, Error: "exit 1"},
			{Name: StageTest, Status: StatusPending},
		},
	}
	if got := firstFailedStage(run); got != StageBuild {
		t.Fatalf("firstFailedStage = %q, want %q", got, StageBuild)
	}
	NewLogNotifier().NotifyFailure(run)
}
