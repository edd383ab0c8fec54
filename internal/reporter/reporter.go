package reporter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tomatomonkey/tomatomonkey/internal/database"
	"github.com/tomatomonkey/tomatomonkey/internal/models"
)

// Reporter aggregates finished focus sessions into period reports
type Reporter struct {
	repo *database.Repository
}

// New creates a new reporter
func New(repo *database.Repository) *Reporter {
	return &Reporter{repo: repo}
}

// GenerateReport generates a focus report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := GetPeriod(periodType)
	if err != nil {
		return nil, err
	}

	// SQL does the SUM per outcome; derived fields are computed here
	summaries, err := r.repo.GetSessionSummarySince(period.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to get session summary: %w", err)
	}

	var totalSeconds int64
	var totalSessions int
	for i := range summaries {
		summaries[i].TotalMinutes = float64(summaries[i].TotalSeconds) / 60.0
		summaries[i].TotalHours = float64(summaries[i].TotalSeconds) / 3600.0
		totalSeconds += summaries[i].TotalSeconds
		totalSessions += summaries[i].SessionCount
	}

	if totalSeconds > 0 {
		for i := range summaries {
			summaries[i].Percentage = (float64(summaries[i].TotalSeconds) / float64(totalSeconds)) * 100.0
		}
	}

	report := &models.Report{
		Period:        *period,
		Outcomes:      summaries,
		TotalSessions: totalSessions,
		TotalSeconds:  totalSeconds,
		TotalMinutes:  float64(totalSeconds) / 60.0,
		TotalHours:    float64(totalSeconds) / 3600.0,
		GeneratedAt:   time.Now(),
	}

	return report, nil
}

// GetPeriod calculates the time range for a report period
func GetPeriod(periodType string) (*models.ReportPeriod, error) {
	now := time.Now()
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.Add(24 * time.Hour)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	output := fmt.Sprintf("Focus Report - %s\n", report.Period.Type)
	output += fmt.Sprintf("Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	output += fmt.Sprintf("Sessions: %d, Focused Time: %.2fh (%.0fm)\n\n",
		report.TotalSessions, report.TotalHours, report.TotalMinutes)

	if len(report.Outcomes) == 0 {
		output += "No focus sessions recorded for this period.\n"
		return output
	}

	output += fmt.Sprintf("%-12s %10s %10s %10s %10s\n", "Outcome", "Sessions", "Hours", "Minutes", "Percent")
	output += fmt.Sprintf("%s\n", "--------------------------------------------------------")

	for _, outcome := range report.Outcomes {
		output += fmt.Sprintf("%-12s %10d %10.2f %10.0f %9.1f%%\n",
			outcome.Outcome,
			outcome.SessionCount,
			outcome.TotalHours,
			outcome.TotalMinutes,
			outcome.Percentage)
	}

	return output
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}
