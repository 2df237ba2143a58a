package obs

import (
	"context"
	"testing"
)

type fakeCheckable struct {
	count  int
	closed bool
}

func (f *fakeCheckable) CollectionCount() int { return f.count }
func (f *fakeCheckable) Closed() bool         { return f.closed }

func TestHealthCheckerReportsHealthyWhenOpen(t *testing.T) {
	hc := NewHealthChecker(&fakeCheckable{count: 3, closed: false})
	status, err := hc.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if status.Status != HealthHealthy {
		t.Errorf("expected healthy status, got %q", status.Status)
	}
	if !status.Checks["open"].Healthy {
		t.Error("expected open check to be healthy")
	}
}

func TestHealthCheckerReportsUnhealthyWhenClosed(t *testing.T) {
	hc := NewHealthChecker(&fakeCheckable{closed: true})
	status, err := hc.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if status.Status != HealthUnhealthy {
		t.Errorf("expected unhealthy status, got %q", status.Status)
	}
	if status.Checks["open"].Healthy {
		t.Error("expected open check to report unhealthy when database is closed")
	}
}
