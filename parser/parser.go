// Package parser recovers structured payloads from free-form agent output.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aluiziolira/go-collect-posts/models"
)

// ErrNoPayload means the text carried no parseable payload of the expected kind.
var ErrNoPayload = errors.New("no data extracted")

var (
	taggedFence = regexp.MustCompile("(?s)<result>\\s*```[A-Za-z0-9_-]*\\s*(.*?)\\s*```\\s*</result>")
	// Fences on their own lines, so a ``` inside a string value does not close the block.
	lineFence   = regexp.MustCompile("(?ms)^[ \\t]*```[A-Za-z0-9_-]*[ \\t]*\\r?\\n(.*?)\\r?\\n[ \\t]*```[ \\t]*\\r?$")
	inlineFence = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \\t]*\\r?\\n?(.*?)```")
)

// Extract returns the first well-formed payload embedded in text. Tagged fences are tried
// first, then fences on their own lines, then inline fences. A malformed candidate only
// moves the search on to the next one.
// When wantArray is set only JSON arrays are accepted, otherwise only objects.
func Extract(text string, wantArray bool) (json.RawMessage, bool) {
	for _, pattern := range []*regexp.Regexp{taggedFence, lineFence, inlineFence} {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			if payload, ok := accept(match[1], wantArray); ok {
				return payload, true
			}
		}
	}
	return nil, false
}

func accept(candidate string, wantArray bool) (json.RawMessage, bool) {
	body := bytes.TrimSpace([]byte(candidate))
	if len(body) == 0 {
		return nil, false
	}
	open := byte('{')
	if wantArray {
		open = '['
	}
	if body[0] != open || !json.Valid(body) {
		return nil, false
	}
	return json.RawMessage(body), true
}

type summaryRow struct {
	Position models.Position `json:"position"`
	Title    string          `json:"title"`
	Author   string          `json:"author"`
	Likes    models.Count    `json:"likes"`
	URL      string          `json:"url"`
}

// DecodeSummaries turns an extracted array into item summaries. Rows with a missing,
// non-positive or duplicate position are dropped and counted. The result is ordered by
// position and holds at most limit rows; parsed is the number of valid rows before that
// cap.
func DecodeSummaries(raw json.RawMessage, limit int) (summaries []models.ItemSummary, parsed, dropped int, err error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, 0, 0, fmt.Errorf("decode summaries: %w", err)
	}

	seen := make(map[int]struct{}, len(elements))
	summaries = make([]models.ItemSummary, 0, len(elements))
	for _, element := range elements {
		var row summaryRow
		if err := json.Unmarshal(element, &row); err != nil {
			dropped++
			continue
		}
		position := int(row.Position)
		if position <= 0 {
			dropped++
			continue
		}
		if _, dup := seen[position]; dup {
			dropped++
			continue
		}
		seen[position] = struct{}{}
		summaries = append(summaries, models.ItemSummary{
			Position: position,
			Title:    strings.TrimSpace(row.Title),
			Author:   strings.TrimSpace(row.Author),
			Likes:    models.Count(strings.TrimSpace(string(row.Likes))),
			URL:      strings.TrimSpace(row.URL),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Position < summaries[j].Position
	})
	parsed = len(summaries)
	if limit >= 0 && parsed > limit {
		summaries = summaries[:limit]
	}
	return summaries, parsed, dropped, nil
}

// DecodeDetail turns an extracted object into an item detail, keeping at most
// models.MaxTopComments comments.
func DecodeDetail(raw json.RawMessage) (*models.ItemDetail, error) {
	var detail models.ItemDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, fmt.Errorf("decode detail: %w", err)
	}
	if len(detail.TopComments) > models.MaxTopComments {
		detail.TopComments = detail.TopComments[:models.MaxTopComments]
	}
	return &detail, nil
}

// ExtractDetail combines Extract and DecodeDetail. Any failure is reported as ErrNoPayload
// so callers can retry it like an empty answer. The returned payload is the normalised
// detail re-encoded, not the agent's text.
func ExtractDetail(text string) (*models.ItemDetail, json.RawMessage, error) {
	raw, ok := Extract(text, false)
	if !ok {
		return nil, nil, ErrNoPayload
	}
	detail, err := DecodeDetail(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoPayload, err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(detail); err != nil {
		return nil, nil, fmt.Errorf("encode detail: %w", err)
	}
	return detail, json.RawMessage(bytes.TrimSpace(buf.Bytes())), nil
}
