package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-collect-posts/models"
)

var csvHeader = []string{"position", "title", "author", "publish_time", "likes", "collections", "comments_count", "tags", "comments", "error", "attempts"}

// WriteCSV exports one row per detail outcome to posts.csv in the batch directory.
func (b *Batch) WriteCSV(outcomes []models.DetailOutcome) error {
	path := filepath.Join(b.dir, CSVFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(csvHeader); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, outcome := range outcomes {
		if err := writer.Write(csvRecord(outcome)); err != nil {
			f.Close()
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush csv records: %w", err)
	}
	return f.Close()
}

func csvRecord(outcome models.DetailOutcome) []string {
	record := make([]string, len(csvHeader))
	record[0] = strconv.Itoa(outcome.Position)
	record[10] = strconv.Itoa(outcome.Attempts)
	if outcome.Failed() {
		record[9] = outcome.Err
		return record
	}

	detail := outcome.Detail
	record[1] = detail.Title
	record[2] = detail.Author
	record[3] = detail.PublishTime
	record[4] = string(detail.Likes)
	record[5] = string(detail.Collections)
	record[6] = string(detail.CommentsCount)
	record[7] = strings.Join(detail.Tags, "|")
	record[8] = strconv.Itoa(len(detail.TopComments))
	return record
}
