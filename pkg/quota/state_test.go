package quota

import (
	"testing"
	"time"
)

func TestState_Thresholds(t *testing.T) {
	tests := []struct {
		name          string
		remaining     int
		wantBlock     bool
		wantThrottle  bool
		wantIsHealthy bool
	}{
		{"fresh window", 1000, false, false, true},
		{"at healthy threshold", 200, false, false, true},
		{"below healthy", 199, false, false, false},
		{"at warning threshold", 50, false, false, false},
		{"below warning", 49, false, true, false},
		{"at critical threshold", 5, false, true, false},
		{"below critical", 4, true, false, false},
		{"exhausted", 0, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &State{Remaining: tt.remaining}
			s.UpdateHealth()

			if got := s.NeedsCriticalBlock(); got != tt.wantBlock {
				t.Errorf("NeedsCriticalBlock() = %v, want %v", got, tt.wantBlock)
			}
			if got := s.NeedsThrottling(); got != tt.wantThrottle {
				t.Errorf("NeedsThrottling() = %v, want %v", got, tt.wantThrottle)
			}
			if s.IsHealthy != tt.wantIsHealthy {
				t.Errorf("IsHealthy = %v, want %v", s.IsHealthy, tt.wantIsHealthy)
			}
		})
	}
}

func TestState_IsStale(t *testing.T) {
	fresh := &State{LastUpdate: time.Now()}
	if fresh.IsStale(1 * time.Minute) {
		t.Error("State updated just now must not be stale")
	}

	old := &State{LastUpdate: time.Now().Add(-2 * time.Hour)}
	if !old.IsStale(1 * time.Hour) {
		t.Error("State older than maxAge must be stale")
	}
}

func TestState_TimeUntilReset(t *testing.T) {
	s := &State{}
	until := s.TimeUntilReset()

	if until <= 0 || until > time.Hour {
		t.Errorf("Expected reset within the hour, got %v", until)
	}
}
