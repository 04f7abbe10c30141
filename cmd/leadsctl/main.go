package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/common-nighthawk/go-figure"
	"github.com/mattn/go-isatty"
)

type Globals struct {
	Config   string   `short:"c" type:"path" env:"LEADS_CONFIG" help:"Path to the YAML configuration file."`
	EnvFile  []string `name:"env-file" default:".env" help:"Dotenv files loaded before the configuration (missing files are skipped)."`
	LogLevel string   `name:"log-level" help:"Override logging.level (debug, info, warn, error)."`
	NoBanner bool     `name:"no-banner" help:"Do not print the startup banner."`
}

type cli struct {
	Globals

	Serve        serveCmd        `cmd:"" default:"1" help:"Serve the admin dashboard, the JSON API and the metrics endpoint."`
	Leads        leadsCmd        `cmd:"" help:"Log in and print a page of the lead table."`
	Lead         leadCmd         `cmd:"" help:"Log in and print the detail of one lead."`
	HashPassword hashPasswordCmd `cmd:"" name:"hash-password" help:"Print a bcrypt hash for a credentials entry."`
}

func main() {
	var app cli
	ctx := kong.Parse(&app,
		kong.Name("leadsctl"),
		kong.Description("Admin dashboard for insurance quotation leads."),
		kong.UsageOnError(),
	)
	if !app.NoBanner && ctx.Command() == "serve" && isatty.IsTerminal(os.Stderr.Fd()) {
		fmt.Fprintln(os.Stderr, figure.NewFigure("leadsctl", "cybermedium", true).String())
	}
	ctx.BindTo(context.Background(), (*context.Context)(nil))
	err := ctx.Run(&app.Globals)
	ctx.FatalIfErrorf(err)
}
