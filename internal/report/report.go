// Package report renders a learner's progress as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-progress/internal/dashboard"
	"github.com/p-n-ai/pai-progress/internal/progress"
)

const (
	ProgressSheet = "Progress"
	SummarySheet  = "Summary"
)

var progressHeader = []any{"Topic ID", "Topic", "Tier", "Score", "Chapters Done", "Chapters Total", "Chapter Ratio"}

// Write renders the progress and dashboard snapshots as a workbook to w.
func Write(w io.Writer, prog progress.Snapshot, dash dashboard.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ProgressSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeProgress(f, prog); err != nil {
		return err
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := writeSummary(f, dash); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeProgress(f *excelize.File, prog progress.Snapshot) error {
	if err := f.SetSheetRow(ProgressSheet, "A1", &progressHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetCellStyle(ProgressSheet, "A1", "G1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, tp := range prog.Topics {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{tp.TopicID, tp.Name, tp.Difficulty, tp.Score, tp.CompletedChapters, tp.TotalChapters, tp.ChapterRatio}
		if err := f.SetSheetRow(ProgressSheet, cell, &row); err != nil {
			return fmt.Errorf("write topic %s: %w", tp.TopicID, err)
		}
	}

	if err := f.SetColWidth(ProgressSheet, "A", "B", 24); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, dash dashboard.Snapshot) error {
	lastActive := ""
	if dash.LastActive != nil {
		lastActive = dash.LastActive.Format(time.RFC3339)
	}
	rows := [][]any{
		{"Learner", dash.LearnerID},
		{"Streak (days)", dash.Streak},
		{"Study time (minutes)", dash.StudyMinutes},
		{"Chapters completed", dash.CompletedChapters},
		{"Chapters total", dash.TotalChapters},
		{"Topics mastered", dash.MasteredTopics},
		{"Classrooms", len(dash.Classrooms)},
		{"Last active", lastActive},
	}
	for i, room := range dash.Classrooms {
		rows = append(rows, []any{fmt.Sprintf("Classroom %d", i+1), room.Name})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	return f.SetColWidth(SummarySheet, "A", "A", 24)
}
