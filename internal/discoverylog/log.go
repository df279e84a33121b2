// Package discoverylog maintains the append-only text record of first
// sightings: one line per identity discovered in a group. The fact store
// owns deduplication; this file is a human-readable audit trail and may
// legitimately mention the same identity once per group.
package discoverylog

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// Entry is one discovery line.
type Entry struct {
	Timestamp   time.Time
	DisplayName string
	IdentityID  string
	GroupName   string
	Action      string
}

// String renders the canonical line format:
//
//	2006-01-02 15:04:05 - name (id) discovered in group --- action
func (e Entry) String() string {
	return fmt.Sprintf("%s - %s (%s) discovered in %s --- %s",
		e.Timestamp.Format(timeLayout), e.DisplayName, e.IdentityID, e.GroupName, e.Action)
}

// ParseLine parses a discovery line. It reports false for lines that do
// not follow the entry grammar; RemoveDuplicates preserves such lines
// verbatim.
func ParseLine(line string) (Entry, bool) {
	head, tail, ok := strings.Cut(line, " discovered in ")
	if !ok {
		return Entry{}, false
	}
	group, action, _ := strings.Cut(tail, " --- ")

	// The identity id sits in the last parenthesized run of the head,
	// so display names containing parentheses still parse.
	open := strings.LastIndex(head, " (")
	if open < 0 || !strings.HasSuffix(head, ")") {
		return Entry{}, false
	}
	id := head[open+2 : len(head)-1]
	if id == "" {
		return Entry{}, false
	}
	stamp, name, ok := strings.Cut(head[:open], " - ")
	if !ok {
		return Entry{}, false
	}
	ts, err := time.Parse(timeLayout, stamp)
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Timestamp:   ts,
		DisplayName: name,
		IdentityID:  id,
		GroupName:   group,
		Action:      action,
	}, true
}

// Log appends to and rewrites the discovery file. Appends are serialized;
// RemoveDuplicates replaces the file atomically via rename.
type Log struct {
	mu   sync.Mutex
	path string
}

// New returns a Log for the given path. The file is created on first
// append.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the underlying file path.
func (l *Log) Path() string { return l.path }

// Append writes one entry line. The file is opened per append so an
// interrupted process never holds a partially written buffer.
func (l *Log) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open discovery log: %w", err)
	}
	if _, err := fmt.Fprintln(f, e.String()); err != nil {
		f.Close()
		return fmt.Errorf("append discovery log: %w", err)
	}
	return f.Close()
}

// Entries returns all parseable entries in file order. A missing file is
// an empty log.
func (l *Log) Entries() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []Entry
	err := l.scan(func(line string) {
		if e, ok := ParseLine(line); ok {
			entries = append(entries, e)
		}
	})
	return entries, err
}

// Duplicate reports an identity id appearing on more than one log line.
type Duplicate struct {
	IdentityID string
	Count      int
}

// Duplicates scans the log and returns identity ids with more than one
// parseable line, in first-seen order.
func (l *Log) Duplicates() ([]Duplicate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := map[string]int{}
	var order []string
	err := l.scan(func(line string) {
		e, ok := ParseLine(line)
		if !ok {
			return
		}
		if counts[e.IdentityID] == 0 {
			order = append(order, e.IdentityID)
		}
		counts[e.IdentityID]++
	})
	if err != nil {
		return nil, err
	}

	var dupes []Duplicate
	for _, id := range order {
		if counts[id] > 1 {
			dupes = append(dupes, Duplicate{IdentityID: id, Count: counts[id]})
		}
	}
	return dupes, nil
}

// RemoveDuplicates rewrites the log keeping the first line per identity
// id, preserving file order and unparseable lines. Returns the number of
// lines dropped.
func (l *Log) RemoveDuplicates() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := map[string]struct{}{}
	var kept []string
	removed := 0
	err := l.scan(func(line string) {
		if e, ok := ParseLine(line); ok {
			if _, dup := seen[e.IdentityID]; dup {
				removed++
				return
			}
			seen[e.IdentityID] = struct{}{}
		}
		kept = append(kept, line)
	})
	if err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, nil
	}

	var buf strings.Builder
	for _, line := range kept {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(buf.String()), 0o644); err != nil {
		return 0, fmt.Errorf("write deduped log: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("replace log: %w", err)
	}
	return removed, nil
}

func (l *Log) scan(fn func(line string)) error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		fn(sc.Text())
	}
	return sc.Err()
}
