package query

import (
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	// maxTables bounds the tables remembered per statement shape
	maxTables = 10
	// maxShapes bounds the number of tracked statement shapes
	maxShapes = 1000
)

// N1Detector flags statements that repeat with the same shape inside a short
// window, the signature of per-row relation loading in a loop
type N1Detector struct {
	mu        sync.Mutex
	shapes    map[string]*shape
	threshold int
	window    time.Duration
}

type shape struct {
	count     int
	firstSeen time.Time
	lastSeen  time.Time
	tables    []string
}

// N1Alert is one statement shape that crossed the threshold
type N1Alert struct {
	Pattern    string
	Count      int
	TableNames []string
	TimeWindow time.Duration
}

func (a N1Alert) String() string {
	return fmt.Sprintf("N+1 query detected: %q ran %d times in %v (tables %s)",
		a.Pattern, a.Count, a.TimeWindow.Round(time.Millisecond), strings.Join(a.TableNames, ", "))
}

// NewN1Detector alerts when a statement shape runs threshold times within window
func NewN1Detector(threshold int, window time.Duration) *N1Detector {
	return &N1Detector{
		shapes:    make(map[string]*shape),
		threshold: threshold,
		window:    window,
	}
}

// Record counts one executed statement against table. A nil detector
// ignores it.
func (d *N1Detector) Record(query string, table string) {
	if d == nil {
		return
	}
	pattern := normalizeQuery(query)
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.shapes[pattern]
	switch {
	case !ok:
		if len(d.shapes) >= maxShapes {
			d.evictOldest()
		}
		s = &shape{firstSeen: now}
		d.shapes[pattern] = s
	case now.Sub(s.firstSeen) > d.window:
		s.count = 0
		s.firstSeen = now
	}

	s.count++
	s.lastSeen = now
	if table != "" && len(s.tables) < maxTables && !slices.Contains(s.tables, table) {
		s.tables = append(s.tables, table)
	}
}

// Check returns the shapes over threshold, most frequent first, and forgets
// them so each burst is reported once. Idle shapes are dropped.
func (d *N1Detector) Check() []N1Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	var alerts []N1Alert
	now := time.Now()
	for pattern, s := range d.shapes {
		switch {
		case s.count >= d.threshold:
			alerts = append(alerts, N1Alert{
				Pattern:    pattern,
				Count:      s.count,
				TableNames: slices.Clone(s.tables),
				TimeWindow: s.lastSeen.Sub(s.firstSeen),
			})
			delete(d.shapes, pattern)
		case now.Sub(s.lastSeen) > d.window:
			delete(d.shapes, pattern)
		}
	}

	slices.SortFunc(alerts, func(a, b N1Alert) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), strings.Compare(a.Pattern, b.Pattern))
	})
	return alerts
}

func (d *N1Detector) evictOldest() {
	var oldest string
	var at time.Time
	for pattern, s := range d.shapes {
		if oldest == "" || s.firstSeen.Before(at) {
			oldest, at = pattern, s.firstSeen
		}
	}
	delete(d.shapes, oldest)
}

var (
	pgPlaceholder = regexp.MustCompile(`\$\d+`)
	inList        = regexp.MustCompile(`IN \((\?(, )?)+\)`)
	spaces        = regexp.MustCompile(`\s+`)
)

// normalizeQuery reduces a statement to its shape: placeholders unified, IN
// lists collapsed, whitespace squeezed
func normalizeQuery(query string) string {
	pattern := pgPlaceholder.ReplaceAllString(query, "?")
	pattern = inList.ReplaceAllString(pattern, "IN (...)")
	pattern = spaces.ReplaceAllString(strings.TrimSpace(pattern), " ")
	if len(pattern) > 200 {
		return pattern[:200] + "..."
	}
	return pattern
}

// StartMonitoring runs Check every interval until ctx is done and hands
// non-empty results to callback
func (d *N1Detector) StartMonitoring(ctx context.Context, interval time.Duration, callback func([]N1Alert)) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if alerts := d.Check(); len(alerts) > 0 && callback != nil {
					callback(alerts)
				}
			}
		}
	}()
}
