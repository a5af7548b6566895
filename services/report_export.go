package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"sort"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/xuri/excelize/v2"
)

// Report export formats
const (
	ReportFormatHTML = "html"
	ReportFormatPDF  = "pdf"
	ReportFormatXLSX = "xlsx"
)

var reportContentTypes = map[string]string{
	ReportFormatHTML: "text/html; charset=utf-8",
	ReportFormatPDF:  "application/pdf",
	ReportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ReportExport is a rendered report ready to be served or stored
type ReportExport struct {
	CaseNumber  string
	Filename    string
	ContentType string
	Body        []byte
}

// ReportExporter renders case reports and statistics to files
type ReportExporter struct {
	cases   *CaseService
	pdf     *PDFRenderer
	storage StorageProvider
}

// NewReportExporter wires an exporter. pdf and storage may be nil.
func NewReportExporter(cases *CaseService, pdf *PDFRenderer, storage StorageProvider) *ReportExporter {
	return &ReportExporter{cases: cases, pdf: pdf, storage: storage}
}

// ExportCaseReport renders the case report in format
func (e *ReportExporter) ExportCaseReport(ctx context.Context, caseID, format string) (*ReportExport, error) {
	contentType, ok := reportContentTypes[format]
	if !ok {
		return nil, validationError("unsupported report format %q", format)
	}
	if format == ReportFormatPDF && e.pdf == nil {
		return nil, validationError("pdf rendering is not configured")
	}

	report, err := e.cases.GenerateCaseReport(ctx, caseID)
	if err != nil {
		return nil, err
	}

	var body []byte
	switch format {
	case ReportFormatHTML, ReportFormatPDF:
		page, err := RenderReportHTML(report)
		if err != nil {
			return nil, err
		}
		body = []byte(page)
		if format == ReportFormatPDF {
			if body, err = e.pdf.Render(ctx, page, DefaultPDFOptions()); err != nil {
				return nil, err
			}
		}
	case ReportFormatXLSX:
		if body, err = RenderReportXLSX(report); err != nil {
			return nil, err
		}
	}

	return &ReportExport{
		CaseNumber:  report.Case.CaseNumber,
		Filename:    fmt.Sprintf("%s-report.%s", report.Case.CaseNumber, format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

// ArchiveCaseReport renders the report and keeps a copy in blob storage
func (e *ReportExporter) ArchiveCaseReport(ctx context.Context, caseID, format string) (string, error) {
	if e.storage == nil {
		return "", validationError("storage is not configured")
	}
	export, err := e.ExportCaseReport(ctx, caseID, format)
	if err != nil {
		return "", err
	}
	key := CaseReportKey(export.CaseNumber, format, e.cases.cfg.Now())
	if _, err := e.storage.Put(ctx, key, bytes.NewReader(export.Body), export.ContentType, int64(len(export.Body))); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	log.Printf("[CASE] archived %s report for %s at %s", format, export.CaseNumber, key)
	return key, nil
}

// ExportStatistics renders filtered case statistics as a spreadsheet
func (e *ReportExporter) ExportStatistics(ctx context.Context, filter CaseFilter) (*ReportExport, error) {
	stats, err := e.cases.GetCaseStatistics(ctx, filter)
	if err != nil {
		return nil, err
	}
	body, err := RenderStatisticsXLSX(stats, filter, e.cases.cfg.Now())
	if err != nil {
		return nil, err
	}
	return &ReportExport{
		Filename:    fmt.Sprintf("case-statistics-%s.xlsx", e.cases.cfg.Now().UTC().Format("20060102")),
		ContentType: reportContentTypes[ReportFormatXLSX],
		Body:        body,
	}, nil
}

// --- HTML ---

var reportPolicy = bluemonday.UGCPolicy()

var reportBody = template.Must(template.New("report").Funcs(template.FuncMap{
	"date":  func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}).Parse(`<h1>Case Report {{.Case.CaseNumber}}</h1>
<p><strong>{{.Case.Title}}</strong> ({{.Case.PracticeArea}}, {{.Case.Status}})</p>
<p>Generated {{date .GeneratedAt}}</p>
<h2>Progress</h2>
<table>
<tr><th>Tasks</th><td>{{.Metrics.CompletedTasks}} of {{.Metrics.TotalTasks}} completed ({{.Metrics.TaskCompletionPct}}%)</td></tr>
<tr><th>Overdue</th><td>{{.Metrics.OverdueTasks}}</td></tr>
<tr><th>Documents</th><td>{{.Metrics.TotalDocuments}}</td></tr>
<tr><th>Upcoming appointments</th><td>{{.Metrics.UpcomingAppointments}}</td></tr>
</table>
<h2>Financials ({{.Financials.Currency}})</h2>
<table>
<tr><th>Retainer</th><td>{{money .Financials.Retainer}}</td></tr>
<tr><th>Billed</th><td>{{money .Financials.Billed}}</td></tr>
<tr><th>Paid</th><td>{{money .Financials.Paid}}</td></tr>
<tr><th>Expenses</th><td>{{money .Financials.Expenses}}</td></tr>
<tr><th>Outstanding</th><td>{{money .Financials.Outstanding}}</td></tr>
</table>
<h2>Tasks</h2>
<table>
<tr><th>Title</th><th>Type</th><th>Priority</th><th>Status</th></tr>
{{range .Tasks}}<tr><td>{{.Title}}</td><td>{{.Type}}</td><td>{{.Priority}}</td><td>{{.Status}}</td></tr>
{{end}}</table>
<h2>Documents</h2>
<ul>
{{range .DocumentTypes}}<li>{{.Type}}: {{.Count}}</li>
{{end}}</ul>
<h2>Timeline</h2>
<ul>
{{range .Timeline}}<li>{{date .Timestamp}} {{.Description}}</li>
{{end}}</ul>
<h2>Communications</h2>
<ul>
{{range .Communications}}<li>{{date .Timestamp}} [{{.Kind}}] {{if .Subject}}{{.Subject}}: {{end}}{{.Body}}</li>
{{end}}</ul>
`))

const reportShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 11pt; color: #222; }
h1 { font-size: 18pt; margin-bottom: 4pt; }
h2 { font-size: 13pt; margin-top: 16pt; border-bottom: 1px solid #ccc; }
table { border-collapse: collapse; width: 100%%; }
th, td { text-align: left; padding: 3pt 6pt; border-bottom: 1px solid #eee; }
</style>
</head>
<body>
%s
</body>
</html>`

type documentTypeCount struct {
	Type  string
	Count int
}

// RenderReportHTML renders the report as a standalone HTML page
func RenderReportHTML(report *CaseReport) (string, error) {
	types := make([]documentTypeCount, 0, len(report.DocumentTypeCounts))
	for t, n := range report.DocumentTypeCounts {
		types = append(types, documentTypeCount{Type: t, Count: n})
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Type < types[j].Type })

	data := struct {
		*CaseReport
		DocumentTypes []documentTypeCount
	}{report, types}

	var buf bytes.Buffer
	if err := reportBody.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return fmt.Sprintf(reportShell, reportPolicy.Sanitize(buf.String())), nil
}

// --- XLSX ---

// RenderReportXLSX renders the report as a workbook with one sheet per section
func RenderReportXLSX(report *CaseReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	const summary = "Summary"
	f.SetSheetName("Sheet1", summary)
	rows := [][]interface{}{
		{"Case number", report.Case.CaseNumber},
		{"Title", report.Case.Title},
		{"Practice area", report.Case.PracticeArea},
		{"Status", report.Case.Status},
		{"Opened", report.Case.CreatedAt.UTC().Format("2006-01-02")},
		{"Generated", report.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Total tasks", report.Metrics.TotalTasks},
		{"Completed tasks", report.Metrics.CompletedTasks},
		{"Completion %", report.Metrics.TaskCompletionPct},
		{"Overdue tasks", report.Metrics.OverdueTasks},
		{"Documents", report.Metrics.TotalDocuments},
		{"Upcoming appointments", report.Metrics.UpcomingAppointments},
		{"Currency", report.Financials.Currency},
		{"Retainer", report.Financials.Retainer},
		{"Billed", report.Financials.Billed},
		{"Paid", report.Financials.Paid},
		{"Expenses", report.Financials.Expenses},
		{"Outstanding", report.Financials.Outstanding},
	}
	if err := writeRows(f, summary, nil, rows); err != nil {
		return nil, err
	}
	f.SetCellStyle(summary, "A1", fmt.Sprintf("A%d", len(rows)), headerStyle)
	f.SetColWidth(summary, "A", "A", 24)
	f.SetColWidth(summary, "B", "B", 40)

	taskRows := make([][]interface{}, 0, len(report.Tasks))
	for _, t := range report.Tasks {
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.UTC().Format("2006-01-02")
		}
		taskRows = append(taskRows, []interface{}{t.Title, t.Type, t.Priority, t.Status, due})
	}
	if err := addSheet(f, "Tasks", []string{"Title", "Type", "Priority", "Status", "Due"}, taskRows, headerStyle); err != nil {
		return nil, err
	}

	docRows := make([][]interface{}, 0, len(report.Documents))
	for _, d := range report.Documents {
		docRows = append(docRows, []interface{}{d.Name, d.Type, d.Size, d.CreatedAt.UTC().Format("2006-01-02")})
	}
	if err := addSheet(f, "Documents", []string{"Name", "Type", "Size", "Uploaded"}, docRows, headerStyle); err != nil {
		return nil, err
	}

	timelineRows := make([][]interface{}, 0, len(report.Timeline))
	for _, ev := range report.Timeline {
		timelineRows = append(timelineRows, []interface{}{ev.Timestamp.UTC().Format(time.RFC3339), ev.Type, ev.Description, ev.ActorOrAssignee})
	}
	if err := addSheet(f, "Timeline", []string{"When", "Type", "Description", "Actor"}, timelineRows, headerStyle); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderStatisticsXLSX renders statistics and the filter they were computed with
func RenderStatisticsXLSX(stats *CaseStatistics, filter CaseFilter, at time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	const overview = "Overview"
	f.SetSheetName("Sheet1", overview)
	rows := [][]interface{}{
		{"Generated", at.UTC().Format(time.RFC3339)},
		{"Total cases", stats.TotalCases},
		{"Average closed case duration (days)", stats.AverageCaseDurationDays},
		{"Filter: status", filter.Status},
		{"Filter: practice area", filter.PracticeArea},
		{"Filter: attorney", filter.AttorneyID},
		{"Filter: client", filter.ClientID},
	}
	if err := writeRows(f, overview, nil, rows); err != nil {
		return nil, err
	}
	f.SetCellStyle(overview, "A1", fmt.Sprintf("A%d", len(rows)), headerStyle)
	f.SetColWidth(overview, "A", "A", 38)

	if err := addSheet(f, "By status", []string{"Status", "Cases"}, breakdownRows(stats.StatusBreakdown), headerStyle); err != nil {
		return nil, err
	}
	if err := addSheet(f, "By practice area", []string{"Practice area", "Cases"}, breakdownRows(stats.PracticeAreaBreakdown), headerStyle); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf.Bytes(), nil
}

func breakdownRows(counts map[string]int64) [][]interface{} {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]interface{}, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []interface{}{k, counts[k]})
	}
	return rows
}

func addSheet(f *excelize.File, name string, headers []string, rows [][]interface{}, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", name, err)
	}
	if err := writeRows(f, name, headers, rows); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(name, "A1", last, headerStyle)
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	f.SetColWidth(name, "A", lastCol, 20)
	return nil
}

func writeRows(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	start := 1
	if len(headers) > 0 {
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			if err := f.SetCellValue(sheet, cell, h); err != nil {
				return err
			}
		}
		start = 2
	}
	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, start+r)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}
