// Package export renders question-bank data as CSV for offline review.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// QuestionRecord is one exportable question row.
type QuestionRecord struct {
	ID            string
	Subject       string
	Question      string
	OptionsJSON   string
	CorrectAnswer string
	Explanation   string
	QualityScore  float64
	ReportedCount int
	CreatedAt     time.Time
}

var csvHeader = []string{"id", "subject", "question", "options", "correct_answer", "explanation", "quality_score", "reported_count", "created_at"}

// WriteQuestionsCSV writes a header row followed by one row per record.
func WriteQuestionsCSV(w io.Writer, recs []QuestionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range recs {
		row := []string{
			rec.ID,
			rec.Subject,
			rec.Question,
			rec.OptionsJSON,
			rec.CorrectAnswer,
			rec.Explanation,
			strconv.FormatFloat(rec.QualityScore, 'f', 2, 64),
			strconv.Itoa(rec.ReportedCount),
			rec.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
