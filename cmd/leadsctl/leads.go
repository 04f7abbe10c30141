package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/goliatone/go-leads-dashboard/components/leads"
)

// SessionFlags are the credentials used by the read-only subcommands.
type SessionFlags struct {
	Email    string `required:"" env:"LEADS_EMAIL" help:"Admin email."`
	Password string `required:"" env:"LEADS_PASSWORD" help:"Admin password."`
	JSON     bool   `help:"Print JSON instead of a table."`
}

type leadsCmd struct {
	SessionFlags `embed:""`

	Search    string `short:"s" help:"Case-insensitive search over name, email and company."`
	Sort      string `default:"name" enum:"id,name,email,department,status" help:"Sort column."`
	Direction string `default:"ascending" enum:"ascending,descending" help:"Sort direction."`
	Page      int    `default:"1" help:"Page number, starting at 1."`
	PageSize  int    `name:"page-size" help:"Rows per page (defaults to leads.page_size)."`

	out io.Writer
}

type leadCmd struct {
	SessionFlags `embed:""`

	ID        int `arg:"" help:"Lead id."`
	Quotation int `short:"q" help:"Quotation id to open (defaults to the latest submitted one)."`

	out io.Writer
}

type hashPasswordCmd struct {
	Password string `arg:"" help:"Plain text password to hash."`

	out io.Writer
}

// loginApp builds an app that keeps its session in memory so the CLI never replaces the
// identity persisted by a running server.
func loginApp(ctx context.Context, g *Globals, flags SessionFlags) (*app, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	a, err := newApp(ctx, cfg, appOptions{Storage: leads.NewInMemoryStorage()})
	if err != nil {
		return nil, err
	}
	if _, err := a.service.Login(ctx, flags.Email, flags.Password); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (cmd *leadsCmd) Run(ctx context.Context, g *Globals) error {
	a, err := loginApp(ctx, g, cmd.SessionFlags)
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.service.Session().Wait()

	page, err := a.service.Leads(ctx, cmd.query())
	if err != nil {
		return err
	}
	out := writerOr(cmd.out)
	if cmd.JSON {
		return writeJSON(out, page)
	}
	return printLeadTable(out, page)
}

func (cmd *leadsCmd) query() leads.TableQuery {
	return leads.TableQuery{
		Search:    cmd.Search,
		SortKey:   cmd.Sort,
		Direction: cmd.Direction,
		Page:      cmd.Page,
		PageSize:  cmd.PageSize,
	}
}

func (cmd *leadCmd) Run(ctx context.Context, g *Globals) error {
	a, err := loginApp(ctx, g, cmd.SessionFlags)
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.service.Session().Wait()

	detail, err := a.service.LeadDetail(ctx, cmd.ID, cmd.Quotation)
	if err != nil {
		return err
	}
	out := writerOr(cmd.out)
	if cmd.JSON {
		return writeJSON(out, detail)
	}
	return printLeadDetail(out, detail)
}

func (cmd *hashPasswordCmd) Run() error {
	hash, err := leads.HashPassword(cmd.Password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(writerOr(cmd.out), hash)
	return err
}

func printLeadTable(out io.Writer, page leads.TablePage) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tCOMPANY\tSTATUS\tQUOTATIONS\tCREATED")
	for _, row := range page.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			row.ID, row.Name, row.Email, row.Department, row.Status, len(row.Quotations), row.CreatedAt)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\npage %d of %d, %d of %d leads, sorted by %s %s\n",
		page.Page, page.Pages, page.Filtered, page.Total, page.Sort.Key, page.Sort.Direction)
	return err
}

func printLeadDetail(out io.Writer, detail leads.LeadDetail) error {
	lead := detail.Lead
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Lead\t#%d %s\n", lead.ID, lead.Name)
	fmt.Fprintf(tw, "Company\t%s\n", lead.Department)
	fmt.Fprintf(tw, "Email\t%s\n", lead.ContactInfo.Email)
	fmt.Fprintf(tw, "Mobile\t%s\n", lead.ContactInfo.Mobile)
	fmt.Fprintf(tw, "Status\t%s\n", lead.Status)
	fmt.Fprintf(tw, "Created\t%s\n", lead.CreatedAt)
	if err := tw.Flush(); err != nil {
		return err
	}
	if !detail.HasQuotations || detail.Selected == nil {
		_, err := fmt.Fprintln(out, "\nNo quotations found for this lead.")
		return err
	}

	fmt.Fprintln(out, "\nQuotations")
	for _, item := range detail.Quotations {
		marker := " "
		if item.Selected {
			marker = "*"
		}
		fmt.Fprintf(out, " %s #%d %s %s\n", marker, item.ID, item.Status, item.CreatedAt)
	}

	q := detail.Selected
	printPlans(out, "HR plans", q.HRPlans)
	if q.IncludeMaternity {
		printPlans(out, "Maternity plans", q.MaternityPlans)
	}
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nPremiums")
	fmt.Fprintf(tw, "HR\t%s\n", q.Premiums.HRLabel)
	fmt.Fprintf(tw, "Maternity\t%s\n", q.Premiums.MaternityLabel)
	fmt.Fprintf(tw, "Total payable\t%s\n", q.Premiums.TotalLabel)
	if q.WaiverPercentage != nil {
		fmt.Fprintf(tw, "Waiver\t%g%%\n", *q.WaiverPercentage)
	}
	return tw.Flush()
}

func printPlans(out io.Writer, title string, plans []leads.PlanLine) {
	fmt.Fprintf(out, "\n%s\n", title)
	if len(plans) == 0 {
		fmt.Fprintln(out, "  none")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, plan := range plans {
		fmt.Fprintf(tw, "  %s\t%d lives\t%s\n", plan.Plan, plan.Lives, plan.PremiumLabel)
	}
	_ = tw.Flush()
}

func writeJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func writerOr(out io.Writer) io.Writer {
	if out == nil {
		return os.Stdout
	}
	return out
}

// maskEmail hides the local part of an address for log lines.
func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return email
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}
