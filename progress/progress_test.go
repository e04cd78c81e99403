package progress

import "testing"

func TestReportInvokesCallback(t *testing.T) {
	var total uint64
	r := New(func(n uint64) { total += n })

	r.Report(100)
	r.Flush()

	if total != 100 {
		t.Errorf("want 100, got %d", total)
	}
}

func TestNilCallbackIsNoOp(t *testing.T) {
	r := New(nil)
	r.Report(100)
	r.Flush()
}

func TestFlushOnlyFiresWithPendingBytes(t *testing.T) {
	calls := 0
	r := New(func(n uint64) { calls++ })
	r.Flush()
	if calls != 0 {
		t.Errorf("want 0 calls for empty flush, got %d", calls)
	}
}
