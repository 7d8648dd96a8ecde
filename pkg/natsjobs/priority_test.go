package natsjobs

import "testing"

func TestPriority_SweepOrderIsHighMediumLow(t *testing.T) {
	want := []Priority{PriorityHigh, PriorityMedium, PriorityLow}
	if len(sweepOrder) != len(want) {
		t.Fatalf("expected %d priorities, got %d", len(want), len(sweepOrder))
	}
	for i, p := range want {
		if sweepOrder[i] != p {
			t.Fatalf("sweepOrder[%d] = %v, want %v", i, sweepOrder[i], p)
		}
	}
}

func TestPriority_StreamAndSubjectIdentity(t *testing.T) {
	cases := []struct {
		priority   Priority
		wantStream string
		wantSubj   string
	}{
		{PriorityHigh, "test_high", "test.high"},
		{PriorityMedium, "test_medium", "test.medium"},
		{PriorityLow, "test_low", "test.low"},
	}
	for _, c := range cases {
		if got := c.priority.streamName("test"); got != c.wantStream {
			t.Errorf("streamName(%v) = %q, want %q", c.priority, got, c.wantStream)
		}
		if got := c.priority.subject("test"); got != c.wantSubj {
			t.Errorf("subject(%v) = %q, want %q", c.priority, got, c.wantSubj)
		}
	}
}

func TestDLQIdentity(t *testing.T) {
	if got := dlqStreamName("test"); got != "test_dlq" {
		t.Errorf("dlqStreamName = %q, want test_dlq", got)
	}
	if got := dlqSubject("test"); got != "test.dlq" {
		t.Errorf("dlqSubject = %q, want test.dlq", got)
	}
}
