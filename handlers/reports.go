package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"legal_matter_engine/middleware"
	"legal_matter_engine/services"

	"github.com/labstack/echo/v4"
)

// CaseReportHandler returns the case report as JSON, or as a file when format
// is html, pdf or xlsx
func (a *API) CaseReportHandler(c echo.Context) error {
	caseID := c.Param("id")
	if err := a.requireParty(c, caseID); err != nil {
		return err
	}
	ctx := c.Request().Context()

	format := c.QueryParam("format")
	if format == "" || format == "json" {
		report, err := a.Cases.GenerateCaseReport(ctx, caseID)
		if err != nil {
			return apiError(err)
		}
		if !middleware.IsStaff(c) {
			clientView(report, middleware.GetCurrentUser(c).ID)
		}
		return c.JSON(http.StatusOK, report)
	}

	// Rendered files include private communications
	if !middleware.IsStaff(c) {
		return echo.NewHTTPError(http.StatusForbidden, "report exports are staff only")
	}
	export, err := a.Reports.ExportCaseReport(ctx, caseID, format)
	if err != nil {
		return apiError(err)
	}
	return sendExport(c, export)
}

// ArchiveCaseReportHandler renders the report and stores it with the case
// documents' storage provider
func (a *API) ArchiveCaseReportHandler(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = services.ReportFormatPDF
	}

	key, err := a.Reports.ArchiveCaseReport(c.Request().Context(), c.Param("id"), format)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"key": key})
}

// ExportStatisticsHandler downloads case statistics as xlsx (default) or csv
func (a *API) ExportStatisticsHandler(c echo.Context) error {
	filter, err := statisticsFilter(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	switch c.QueryParam("format") {
	case "", services.ReportFormatXLSX:
		export, err := a.Reports.ExportStatistics(ctx, filter)
		if err != nil {
			return apiError(err)
		}
		return sendExport(c, export)
	case "csv":
		stats, err := a.Cases.GetCaseStatistics(ctx, filter)
		if err != nil {
			return apiError(err)
		}
		c.Response().Header().Set(echo.HeaderContentType, "text/csv")
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=case_statistics_%s.csv", time.Now().UTC().Format("20060102_150405")))
		c.Response().WriteHeader(http.StatusOK)
		return writeStatisticsCSV(csv.NewWriter(c.Response().Writer), stats)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid export format")
	}
}

func sendExport(c echo.Context, export *services.ReportExport) error {
	if strings.HasPrefix(export.ContentType, "text/html") {
		middleware.SetReportSecurityHeaders(c)
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%s", export.Filename))
	} else {
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", export.Filename))
	}
	return c.Blob(http.StatusOK, export.ContentType, export.Body)
}

func writeStatisticsCSV(w *csv.Writer, stats *services.CaseStatistics) error {
	rows := [][]string{
		{"Metric", "Key", "Value"},
		{"total_cases", "", strconv.FormatInt(stats.TotalCases, 10)},
		{"average_case_duration_days", "", strconv.FormatFloat(stats.AverageCaseDurationDays, 'f', 2, 64)},
	}
	rows = append(rows, breakdownCSV("status", stats.StatusBreakdown)...)
	rows = append(rows, breakdownCSV("practice_area", stats.PracticeAreaBreakdown)...)

	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

func breakdownCSV(metric string, counts map[string]int64) [][]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{metric, k, strconv.FormatInt(counts[k], 10)})
	}
	return rows
}

// clientView strips private notes and other people's notifications
func clientView(report *services.CaseReport, clientID string) {
	visible := *report.Case
	visible.Metadata.Notes = services.VisibleNotes(report.Case, clientID)
	report.Case = &visible
	report.Timeline = publicTimeline(report.Timeline)

	comms := make([]services.Communication, 0, len(report.Communications))
	for _, comm := range report.Communications {
		if comm.IsPrivate || (comm.Recipient != "" && comm.Recipient != clientID) {
			continue
		}
		comms = append(comms, comm)
	}
	report.Communications = comms
}
