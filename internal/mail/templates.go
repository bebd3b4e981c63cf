package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// BudgetAlertData fills the budget-alert template. Amounts are preformatted
// decimal strings.
type BudgetAlertData struct {
	Username       string
	AccountName    string
	BudgetAmount   string
	TotalExpense   string
	Remaining      string
	PercentageUsed string
}

// CategoryLine is one per-category expense row in the monthly report.
type CategoryLine struct {
	Category string
	Amount   string
}

// MonthlyReportData fills the monthly-report template.
type MonthlyReportData struct {
	Username         string
	Month            string
	TotalIncome      string
	TotalExpense     string
	Net              string
	TransactionCount int
	ByCategory       []CategoryLine
	Insights         []string
}

// RenderBudgetAlert renders the budget-alert email body.
func RenderBudgetAlert(data BudgetAlertData) (string, error) {
	return render("budget_alert.html", data)
}

// RenderMonthlyReport renders the monthly-report email body.
func RenderMonthlyReport(data MonthlyReportData) (string, error) {
	return render("monthly_report.html", data)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
