package stats

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStageTimingAndOrder(t *testing.T) {
	c := New()
	c.Start()

	c.StageStart("lex")
	time.Sleep(time.Millisecond)
	c.StageEnd("lex", 10)

	c.StageStart("parse")
	time.Sleep(time.Millisecond)
	c.StageEnd("parse", 4)

	c.Finalize()

	stages := c.OrderedStages()
	if len(stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(stages))
	}
	if stages[0].Name != "lex" || stages[1].Name != "parse" {
		t.Errorf("expected order [lex parse], got [%s %s]", stages[0].Name, stages[1].Name)
	}
	if stages[0].Items != 10 || stages[1].Items != 4 {
		t.Errorf("unexpected item counts: %+v", stages)
	}
	if stages[0].Duration <= 0 {
		t.Error("expected a positive duration for the lex stage")
	}
}

func TestSlowestStage(t *testing.T) {
	c := New()
	c.Start()
	c.StageStart("fast")
	c.StageEnd("fast", 1)
	c.StageStart("slow")
	time.Sleep(2 * time.Millisecond)
	c.StageEnd("slow", 1)
	c.Finalize()

	slowest := c.SlowestStage()
	if slowest == nil || slowest.Name != "slow" {
		t.Fatalf("expected slow to be the slowest stage, got %+v", slowest)
	}
}

func TestExportJSON(t *testing.T) {
	c := New()
	c.Start()
	c.StageStart("emit")
	c.StageEnd("emit", 3)
	c.Finalize()

	data, err := c.ExportJSON()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error decoding JSON: %s", err)
	}
	if _, ok := decoded["stages"]; !ok {
		t.Error("expected a stages field in exported JSON")
	}
}

func TestDisabledStatsSkipRecording(t *testing.T) {
	c := New()
	c.Enabled = false
	c.Start()
	c.StageStart("lex")
	c.StageEnd("lex", 10)
	c.Finalize()

	if len(c.OrderedStages()) != 0 {
		t.Error("expected no stages to be recorded while disabled")
	}
}
