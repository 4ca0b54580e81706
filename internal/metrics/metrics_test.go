package metrics

import (
	"errors"
	"testing"
	"time"
)

func TestHandler(t *testing.T) {
	if Handler() == nil {
		t.Fatal("Handler returned nil")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	// Should not panic
	RecordHTTPRequest("GET", "/api/scores/{zip}", "200", 25*time.Millisecond)
	RecordHTTPRequest("POST", "/api/solver/price-from-score", "400", 3*time.Millisecond)
}

func TestTrackInFlight(t *testing.T) {
	done := TrackInFlight()
	if done == nil {
		t.Fatal("TrackInFlight returned nil")
	}
	done()
}

func TestRecordBatch(t *testing.T) {
	// Should not panic
	RecordBatch("TX", 90*time.Second, 1500, 120, 3, true)
	RecordBatch("", time.Second, 0, 0, 0, false)
}

func TestRecordSolve(t *testing.T) {
	// Should not panic
	RecordSolve("price_from_cash_flow", nil)
	RecordSolve("price_from_score", errors.New("infeasible"))
}
