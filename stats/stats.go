// Package stats tracks per-stage compile-time statistics: how long each
// pipeline stage took and how much work it did. Adapted from the
// teacher's vm/statistics.go runtime PerformanceStatistics, whose
// instruction/cycle counters become per-stage timings and item counts
// here.
package stats

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// StageStats tracks one pipeline stage's duration and item count (tokens
// lexed, expressions parsed, nodes resolved, and so on).
type StageStats struct {
	Name     string
	Duration time.Duration
	Items    int

	start time.Time
}

// CompileStatistics tracks statistics for a single compile, one
// StageStats per pipeline stage (lex, parse, resolve, typecheck, emit).
type CompileStatistics struct {
	Enabled bool

	Stages      map[string]*StageStats
	stageOrder  []string
	TotalTime   time.Duration

	startTime time.Time
}

// New creates an enabled CompileStatistics tracker.
func New() *CompileStatistics {
	return &CompileStatistics{
		Enabled: true,
		Stages:  make(map[string]*StageStats),
	}
}

// Start begins overall timing for the compile.
func (c *CompileStatistics) Start() {
	c.startTime = time.Now()
}

// StageStart begins timing a named stage. Calling it twice for the same
// name restarts that stage's clock.
func (c *CompileStatistics) StageStart(name string) {
	if !c.Enabled {
		return
	}
	s, exists := c.Stages[name]
	if !exists {
		s = &StageStats{Name: name}
		c.Stages[name] = s
		c.stageOrder = append(c.stageOrder, name)
	}
	s.start = time.Now()
}

// StageEnd stops timing a named stage and records how many items it
// processed (tokens, expressions, nodes — whatever unit fits the stage).
func (c *CompileStatistics) StageEnd(name string, items int) {
	if !c.Enabled {
		return
	}
	s, exists := c.Stages[name]
	if !exists {
		return
	}
	s.Duration += time.Since(s.start)
	s.Items = items
}

// Finalize records the compile's total wall-clock time.
func (c *CompileStatistics) Finalize() {
	c.TotalTime = time.Since(c.startTime)
}

// OrderedStages returns stages in the order StageStart first saw them,
// so reports read lex, parse, resolve, typecheck, emit rather than in
// map-iteration order.
func (c *CompileStatistics) OrderedStages() []*StageStats {
	out := make([]*StageStats, 0, len(c.stageOrder))
	for _, name := range c.stageOrder {
		out = append(out, c.Stages[name])
	}
	return out
}

func (c *CompileStatistics) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "compile took %s\n", c.TotalTime)
	for _, s := range c.OrderedStages() {
		fmt.Fprintf(&sb, "  %-10s %8s  %d items\n", s.Name, s.Duration, s.Items)
	}
	return sb.String()
}

type jsonStage struct {
	Name       string `json:"name"`
	DurationNs int64  `json:"duration_ns"`
	Items      int    `json:"items"`
}

// ExportJSON renders the statistics as a JSON document.
func (c *CompileStatistics) ExportJSON() ([]byte, error) {
	stages := c.OrderedStages()
	out := struct {
		TotalTimeNs int64       `json:"total_time_ns"`
		Stages      []jsonStage `json:"stages"`
	}{
		TotalTimeNs: c.TotalTime.Nanoseconds(),
	}
	for _, s := range stages {
		out.Stages = append(out.Stages, jsonStage{Name: s.Name, DurationNs: s.Duration.Nanoseconds(), Items: s.Items})
	}
	return json.MarshalIndent(out, "", "  ")
}

// SlowestStage returns the stage that took the longest wall-clock time,
// or nil if no stage has been recorded.
func (c *CompileStatistics) SlowestStage() *StageStats {
	stages := c.OrderedStages()
	if len(stages) == 0 {
		return nil
	}
	sorted := append([]*StageStats(nil), stages...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Duration > sorted[j].Duration })
	return sorted[0]
}
