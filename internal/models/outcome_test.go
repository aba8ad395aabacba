package models

import "testing"

func TestRunStatisticsFold(t *testing.T) {
	var stats RunStatistics
	stats.Reset(3)

	stats.Fold(DispatchOutcome{Phone: "573000000001", Status: OutcomeSent, MessageID: "wamid.1"})
	stats.Fold(DispatchOutcome{Phone: "573000000002", Status: OutcomeFailed, Error: "unreachable"})
	stats.Fold(DispatchOutcome{Phone: "573000000003", Status: OutcomeSent, MessageID: "wamid.2"})

	if stats.Sent != 2 || stats.Failed != 1 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
	if stats.Sent+stats.Failed != stats.Total {
		t.Fatalf("invariant violated: %+v", stats)
	}
	if len(stats.Errors) != 1 || stats.Errors[0].Phone != "573000000002" {
		t.Fatalf("unexpected error log: %+v", stats.Errors)
	}
}

func TestRunStatisticsReset(t *testing.T) {
	stats := RunStatistics{Total: 5, Sent: 3, Failed: 2, Errors: []FailureRecord{{Phone: "x", Error: "y"}}}
	stats.Reset(7)

	if stats.Total != 7 || stats.Sent != 0 || stats.Failed != 0 || stats.Errors != nil {
		t.Fatalf("reset incomplete: %+v", stats)
	}
}

func TestRunStatisticsClone(t *testing.T) {
	stats := RunStatistics{Total: 1, Failed: 1, Errors: []FailureRecord{{Phone: "573000000001", Error: "a"}}}
	cp := stats.Clone()
	stats.Errors[0].Error = "mutated"

	if cp.Errors[0].Error != "a" {
		t.Fatalf("clone aliases error log")
	}
}
