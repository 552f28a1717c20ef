package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkReplicatorsAppeared BookmarkType = "replicators_appeared"
	BookmarkReplicatorsExtinct  BookmarkType = "replicators_extinct"
	BookmarkGenerationRecord    BookmarkType = "generation_record"
	BookmarkReplicatorCrash     BookmarkType = "replicator_crash"
)

// Bookmark is a notable moment detected at report time. Rows of events.csv.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Clock       uint64       `csv:"clock"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("event",
		"type", string(b.Type),
		"clock", b.Clock,
		"description", b.Description,
	)
}

// BookmarkDetector watches successive reports for transitions.
type BookmarkDetector struct {
	// Rolling history of viable replicator counts (circular buffer)
	history     []int
	historySize int
	historyIdx  int
	historyFull bool

	lastViable    int
	recordDecade  uint64 // next power of ten the max generation must reach
	crashReported bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 2 {
		historySize = 2
	}
	return &BookmarkDetector{
		history:      make([]int, historySize),
		historySize:  historySize,
		recordDecade: 10,
	}
}

// Check analyzes the latest report and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats ReportStats) []Bookmark {
	var bookmarks []Bookmark

	// The count before the first report is taken as 0, so replicators
	// present at the first report count as appeared.
	if b := bd.checkAppeared(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkExtinct(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkCrash(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkGenerationRecord(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats.ViableReplicators)
	bd.lastViable = stats.ViableReplicators
	return bookmarks
}

// BookmarkState is the detector state carried in snapshots.
type BookmarkState struct {
	History       []int // viable counts, oldest first
	LastViable    int
	RecordDecade  uint64
	CrashReported bool
}

// State returns a copy of the detector state.
func (bd *BookmarkDetector) State() BookmarkState {
	var history []int
	if bd.historyFull {
		history = append(history, bd.history[bd.historyIdx:]...)
	}
	history = append(history, bd.history[:bd.historyIdx]...)
	return BookmarkState{
		History:       history,
		LastViable:    bd.lastViable,
		RecordDecade:  bd.recordDecade,
		CrashReported: bd.crashReported,
	}
}

// Restore replaces the detector state. A history longer than the
// detector's keeps its most recent entries.
func (bd *BookmarkDetector) Restore(s BookmarkState) {
	clear(bd.history)
	bd.historyIdx = 0
	bd.historyFull = false
	h := s.History
	if len(h) > bd.historySize {
		h = h[len(h)-bd.historySize:]
	}
	for _, v := range h {
		bd.addToHistory(v)
	}
	bd.lastViable = s.LastViable
	bd.recordDecade = s.RecordDecade
	if bd.recordDecade == 0 {
		bd.recordDecade = 10
	}
	bd.crashReported = s.CrashReported
}

func (bd *BookmarkDetector) addToHistory(v int) {
	bd.history[bd.historyIdx] = v
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []int {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkAppeared(stats ReportStats) *Bookmark {
	if bd.lastViable != 0 || stats.ViableReplicators == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkReplicatorsAppeared,
		Clock:       stats.Clock,
		Description: fmt.Sprintf("%d viable replicators", stats.ViableReplicators),
	}
}

func (bd *BookmarkDetector) checkExtinct(stats ReportStats) *Bookmark {
	if bd.lastViable == 0 || stats.ViableReplicators != 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkReplicatorsExtinct,
		Clock:       stats.Clock,
		Description: fmt.Sprintf("viable replicators fell from %d to 0", bd.lastViable),
	}
}

// checkCrash fires once when viable replicators drop below a third of the
// recent peak, and re-arms after they recover to half of it.
func (bd *BookmarkDetector) checkCrash(stats ReportStats) *Bookmark {
	peak := 0
	for _, v := range bd.getHistory() {
		peak = max(peak, v)
	}
	if peak < 30 {
		return nil
	}
	if bd.crashReported {
		if stats.ViableReplicators*2 >= peak {
			bd.crashReported = false
		}
		return nil
	}
	if stats.ViableReplicators == 0 || stats.ViableReplicators*3 >= peak {
		return nil
	}
	bd.crashReported = true
	return &Bookmark{
		Type:        BookmarkReplicatorCrash,
		Clock:       stats.Clock,
		Description: fmt.Sprintf("viable replicators dropped from %d to %d", peak, stats.ViableReplicators),
	}
}

func (bd *BookmarkDetector) checkGenerationRecord(stats ReportStats) *Bookmark {
	if stats.MaxGeneration < bd.recordDecade {
		return nil
	}
	for bd.recordDecade <= stats.MaxGeneration/10 {
		bd.recordDecade *= 10
	}
	reached := bd.recordDecade
	bd.recordDecade *= 10
	return &Bookmark{
		Type:        BookmarkGenerationRecord,
		Clock:       stats.Clock,
		Description: fmt.Sprintf("max generation %d passed %d", stats.MaxGeneration, reached),
	}
}
