// Package models defines data structures for the collector.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Timestamp layouts used in persisted artifacts.
const (
	TimestampLayout      = "2006-01-02 15:04:05"
	ScoutTimestampLayout = "2006-01-02T15:04:05.000000"
	RunIDLayout          = "20060102_150405"
)

// MaxTopComments caps the comments kept per post.
const MaxTopComments = 10

// Count is an engagement counter kept in the source's textual form ("1.2万", "356").
// It decodes from either a JSON string or a JSON number.
type Count string

// UnmarshalJSON accepts strings, numbers and null.
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Count(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("count: %w", err)
	}
	*c = Count(n.String())
	return nil
}

// Position is a 1-based sequence number that tolerates "3" as well as 3.
type Position int

// UnmarshalJSON accepts integral numbers and numeric strings.
func (p *Position) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("position %s: %w", string(data), err)
	}
	*p = Position(value)
	return nil
}

// ItemSummary is one row of the enumerated feed.
type ItemSummary struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Likes    Count  `json:"likes"`
	URL      string `json:"url,omitempty"`
}

// Comment is one top comment of a post.
type Comment struct {
	Nickname string `json:"nickname"`
	Content  string `json:"content"`
	Likes    Count  `json:"likes"`
	Time     string `json:"time"`
}

// ItemDetail is the full record of a post.
type ItemDetail struct {
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	PublishTime   string    `json:"publish_time"`
	Likes         Count     `json:"likes"`
	Collections   Count     `json:"collections"`
	CommentsCount Count     `json:"comments_count"`
	Content       string    `json:"content"`
	Tags          []string  `json:"tags"`
	TopComments   []Comment `json:"top_comments"`
}

// CollectionRun identifies one end-to-end execution. It is not modified after creation.
type CollectionRun struct {
	ID            string
	SourceURL     string
	MaxItems      int
	Mode          string
	MaxConcurrent int
	UseVision     bool
	Headless      bool
	OutputDir     string
	StartedAt     time.Time
}

// ScoutReport is persisted as scout_report.json.
type ScoutReport struct {
	Report    string `json:"report"`
	Timestamp string `json:"timestamp"`
}

// PostList is persisted as posts_list.json.
type PostList struct {
	Timestamp string        `json:"timestamp"`
	Total     int           `json:"total"`
	Posts     []ItemSummary `json:"posts"`
}

// PostRecord is persisted as post_<position>.json. Exactly one of Data and Error is set.
type PostRecord struct {
	PostIndex   int             `json:"post_index"`
	CollectedAt string          `json:"collected_at"`
	Data        json.RawMessage `json:"data,omitempty"`
	Error       string          `json:"error,omitempty"`
	Attempts    int             `json:"attempts"`
}

// DetailOutcome is the terminal state of one position.
type DetailOutcome struct {
	Position int
	Detail   *ItemDetail
	Raw      json.RawMessage
	Err      string
	Attempts int
}

// Failed reports whether the position degraded to an error placeholder.
func (o DetailOutcome) Failed() bool {
	return o.Detail == nil
}

// Record converts the outcome into its persisted form.
func (o DetailOutcome) Record(collectedAt time.Time) PostRecord {
	record := PostRecord{
		PostIndex:   o.Position,
		CollectedAt: collectedAt.Format(TimestampLayout),
		Attempts:    o.Attempts,
	}
	if o.Failed() {
		record.Error = o.Err
	} else {
		record.Data = o.Raw
	}
	return record
}

// RunSummary is persisted as summary.json. Fields tagged "-" are reported to the
// caller only.
type RunSummary struct {
	Timestamp  string `json:"timestamp"`
	URL        string `json:"url"`
	TotalPosts int    `json:"total_posts"`
	OutputDir  string `json:"output_dir"`
	Mode       string `json:"mode"`
	UseVision  bool   `json:"use_vision"`
	Headless   bool   `json:"headless"`

	RunID     string          `json:"-"`
	Listed    int             `json:"-"`
	ListEmpty bool            `json:"-"`
	Collected int             `json:"-"`
	Failed    int             `json:"-"`
	Details   []DetailOutcome `json:"-"`
}
