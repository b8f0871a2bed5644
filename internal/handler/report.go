package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"github.com/alextaweke/internet-cafe/internal/billing"
	"github.com/alextaweke/internet-cafe/internal/model"
	"github.com/alextaweke/internet-cafe/internal/repository"
)

// ReportHandler serves the revenue reports.  Daily reports aggregate the
// sessions that ended on a given day; period reports aggregate payments
// recorded since the period start.
type ReportHandler struct {
	Sessions *repository.SessionRepo
	Payments *repository.PaymentRepo
}

func NewReportHandler(sessions *repository.SessionRepo, payments *repository.PaymentRepo) *ReportHandler {
	if sessions == nil || payments == nil {
		panic("nil dependency passed to NewReportHandler")
	}
	return &ReportHandler{Sessions: sessions, Payments: payments}
}

type dailyReport struct {
	Date          string                `json:"date"`
	TotalSessions int                   `json:"totalSessions"`
	TotalAmount   float64               `json:"totalAmount"`
	Sessions      []model.SessionDetail `json:"sessions"`
}

type chartPoint struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type periodReport struct {
	Period        string       `json:"period"`
	StartDate     string       `json:"startDate"`
	TotalAmount   float64      `json:"totalAmount"`
	TotalPayments int          `json:"totalPayments"`
	ChartData     []chartPoint `json:"chartData"`
}

// Daily handles GET /reports/daily?date=YYYY-MM-DD.  Without a date it
// reports on today.
func (h *ReportHandler) Daily(c echo.Context) error {
	day := time.Now().UTC()
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fail(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		day = parsed
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	sessions, err := h.Sessions.ListClosedBetween(c.Request().Context(), from, to)
	if err != nil {
		return failFromErr(c, err)
	}

	total := 0.0
	for _, s := range sessions {
		if s.TotalAmount != nil {
			total += *s.TotalAmount
		}
	}
	report := dailyReport{
		Date:          from.Format("2006-01-02"),
		TotalSessions: len(sessions),
		TotalAmount:   billing.Round2(total),
		Sessions:      sessions,
	}
	return respond(c, http.StatusOK, report, "Success")
}

// Period handles GET /reports/:period for week, month and year.
func (h *ReportHandler) Period(c echo.Context) error {
	report, err := h.buildPeriodReport(c.Request().Context(), c.Param("period"))
	if err != nil {
		if errors.Is(err, errBadPeriod) {
			return fail(c, http.StatusBadRequest, err.Error())
		}
		return failFromErr(c, err)
	}
	return respond(c, http.StatusOK, report, "Success")
}

// Export handles GET /reports/:period/export, returning the period report
// as an xlsx workbook.
func (h *ReportHandler) Export(c echo.Context) error {
	report, err := h.buildPeriodReport(c.Request().Context(), c.Param("period"))
	if err != nil {
		if errors.Is(err, errBadPeriod) {
			return fail(c, http.StatusBadRequest, err.Error())
		}
		return failFromErr(c, err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Revenue"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return failFromErr(c, err)
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetSheetRow(sheet, "A1", &[]interface{}{"Period", report.Period})
	_ = f.SetSheetRow(sheet, "A2", &[]interface{}{"Start date", report.StartDate})
	_ = f.SetSheetRow(sheet, "A3", &[]interface{}{"Total payments", report.TotalPayments})
	_ = f.SetSheetRow(sheet, "A4", &[]interface{}{"Total amount", report.TotalAmount})
	_ = f.SetSheetRow(sheet, "A6", &[]interface{}{"Date", "Amount"})
	for i, p := range report.ChartData {
		cell := fmt.Sprintf("A%d", 7+i)
		_ = f.SetSheetRow(sheet, cell, &[]interface{}{p.Date, p.Amount})
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return failFromErr(c, err)
	}

	name := fmt.Sprintf("revenue-%s-%s.xlsx", report.Period, time.Now().UTC().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

var errBadPeriod = errors.New("period must be week, month or year")

func (h *ReportHandler) buildPeriodReport(ctx context.Context, period string) (*periodReport, error) {
	now := time.Now().UTC()

	var start time.Time
	switch period {
	case "week":
		start = now.AddDate(0, 0, -7)
	case "month":
		start = now.AddDate(0, -1, 0)
	case "year":
		start = now.AddDate(-1, 0, 0)
	default:
		return nil, errBadPeriod
	}
	// The window starts at midnight so payments made earlier on the first
	// day are included.
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	payments, err := h.Payments.ListSince(ctx, start)
	if err != nil {
		return nil, err
	}

	total := 0.0
	byDay := make(map[string]float64)
	for _, p := range payments {
		total += p.Amount
		byDay[p.PaymentTime.Format("2006-01-02")] += p.Amount
	}

	chart := make([]chartPoint, 0, len(byDay))
	for date, amount := range byDay {
		chart = append(chart, chartPoint{Date: date, Amount: billing.Round2(amount)})
	}
	sort.Slice(chart, func(i, j int) bool { return chart[i].Date < chart[j].Date })

	return &periodReport{
		Period:        period,
		StartDate:     start.Format("2006-01-02"),
		TotalAmount:   billing.Round2(total),
		TotalPayments: len(payments),
		ChartData:     chart,
	}, nil
}
