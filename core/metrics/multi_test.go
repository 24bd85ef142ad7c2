package metrics

import (
	"testing"

	"github.com/kilianp07/doorbridge/core/door"
)

// recordSink counts required-method calls only.
type recordSink struct {
	count int
}

func (r *recordSink) RecordCommand(CommandRecord) error { r.count++; return nil }
func (r *recordSink) RecordStatus(StatusRecord) error   { r.count++; return nil }

// cycleSink additionally implements the optional CycleRecorder.
type cycleSink struct {
	recordSink
	cycles int
}

func (c *cycleSink) RecordCycle(CycleRecord) error { c.cycles++; return nil }

func TestMultiSinkForwards(t *testing.T) {
	s1 := &recordSink{}
	s2 := &cycleSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordCommand(CommandRecord{Command: door.CommandOpen}); err != nil {
		t.Fatalf("record command: %v", err)
	}
	if err := m.RecordStatus(StatusRecord{Status: door.StateOpening}); err != nil {
		t.Fatalf("record status: %v", err)
	}
	if err := m.RecordCycle(CycleRecord{Command: door.CommandOpen}); err != nil {
		t.Fatalf("record cycle: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("records not forwarded: %d %d", s1.count, s2.count)
	}
	if s2.cycles != 1 {
		t.Fatalf("cycle not forwarded to optional recorder: %d", s2.cycles)
	}
}
