package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.CommitRoundsTotal == nil {
		t.Error("CommitRoundsTotal not initialized")
	}
	if r.VotesTotal == nil {
		t.Error("VotesTotal not initialized")
	}
	if r.CurrentRole == nil {
		t.Error("CurrentRole not initialized")
	}
	if r.registry == nil {
		t.Error("underlying prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()
	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance on repeat calls")
	}
}

func TestRecordCommitRound(t *testing.T) {
	r := NewRegistry()
	r.RecordCommitRound("commit", 0.05)
	r.RecordCommitRound("commit", 0.2)
	r.RecordCommitRound("abort", 0.01)

	commitCounter, err := r.CommitRoundsTotal.GetMetricWithLabelValues("commit")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(commit): %v", err)
	}
	var metric dto.Metric
	if err := commitCounter.Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("commit rounds = %v, want 2", metric.Counter.GetValue())
	}

	abortCounter, err := r.CommitRoundsTotal.GetMetricWithLabelValues("abort")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(abort): %v", err)
	}
	if err := abortCounter.Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("abort rounds = %v, want 1", metric.Counter.GetValue())
	}
}

func TestRecordVote(t *testing.T) {
	r := NewRegistry()
	r.RecordVote("yes")
	r.RecordVote("yes")
	r.RecordVote("no")

	yes, err := r.VotesTotal.GetMetricWithLabelValues("yes")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(yes): %v", err)
	}
	var metric dto.Metric
	if err := yes.Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("yes votes = %v, want 2", metric.Counter.GetValue())
	}
}

func TestSetRoleExclusive(t *testing.T) {
	r := NewRegistry()
	r.SetRole("coordinator")

	for _, role := range []string{"participant", "coordinator", "observer"} {
		gauge, err := r.CurrentRole.GetMetricWithLabelValues(role)
		if err != nil {
			t.Fatalf("GetMetricWithLabelValues(%s): %v", role, err)
		}
		var metric dto.Metric
		if err := gauge.Write(&metric); err != nil {
			t.Fatalf("Write: %v", err)
		}
		want := 0.0
		if role == "coordinator" {
			want = 1
		}
		if metric.Gauge.GetValue() != want {
			t.Errorf("role %s gauge = %v, want %v", role, metric.Gauge.GetValue(), want)
		}
	}

	r.SetRole("observer")
	gauge, _ := r.CurrentRole.GetMetricWithLabelValues("coordinator")
	var metric dto.Metric
	gauge.Write(&metric)
	if metric.Gauge.GetValue() != 0 {
		t.Errorf("stale coordinator gauge = %v, want 0 after SetRole(observer)", metric.Gauge.GetValue())
	}
}

func TestSetCommitIterAndSongListSize(t *testing.T) {
	r := NewRegistry()
	r.SetCommitIter(7)
	r.SetSongListSize(3)

	var metric dto.Metric
	if err := r.CurrentCommitIter.Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if metric.Gauge.GetValue() != 7 {
		t.Errorf("commit iter gauge = %v, want 7", metric.Gauge.GetValue())
	}

	if err := r.SongListSize.Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if metric.Gauge.GetValue() != 3 {
		t.Errorf("songlist size gauge = %v, want 3", metric.Gauge.GetValue())
	}
}

func TestRecordHeartbeats(t *testing.T) {
	r := NewRegistry()
	r.RecordHeartbeatSent("1")
	r.RecordHeartbeatSent("1")
	r.RecordHeartbeatReceived("1")

	sent, _ := r.HeartbeatsSentTotal.GetMetricWithLabelValues("1")
	var metric dto.Metric
	if err := sent.Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("heartbeats sent to 1 = %v, want 2", metric.Counter.GetValue())
	}

	r.RecordElection("won")
	won, _ := r.ElectionsTotal.GetMetricWithLabelValues("won")
	if err := won.Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("elections won = %v, want 1", metric.Counter.GetValue())
	}

	// sanity: duration histogram accepts observations without panicking
	r.RecordCommitRound("commit", time.Millisecond.Seconds())
}
