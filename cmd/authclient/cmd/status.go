package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/spf13/cobra"
)

var (
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle   = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	sectionStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			rec, err := a.sessions.Load()
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, renderStatus(rec, rec != nil && a.resolver.IsExpired(rec)))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func renderStatus(rec *session.Record, expired bool) string {
	if rec == nil {
		return sectionStyle.Render(warnStyle.Render("Signed out"))
	}

	var b strings.Builder
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	if expired {
		b.WriteString(warnStyle.Render("Session expired"))
	} else {
		b.WriteString(okStyle.Render("Signed in"))
	}
	b.WriteString("\n")

	if id, err := session.IdentityClaims(rec); err == nil {
		if id.Name != "" {
			row("Name", id.Name)
		}
		if id.Email != "" {
			row("Email", id.Email)
		}
		if id.Subject != "" {
			row("Subject", id.Subject)
		}
	}
	if utils.HasValue(rec.Audience) {
		row("Audience", *rec.Audience)
	}
	if utils.HasValue(rec.Scope) {
		row("Scope", *rec.Scope)
	}
	if t, ok := rec.ExpiresAtTime(); ok {
		row("Expires", t.Local().Format(time.RFC1123))
	} else {
		row("Expires", "unknown")
	}
	row("Refresh", yesNo(utils.HasValue(rec.RefreshToken)))

	return sectionStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func yesNo(b bool) string {
	if b {
		return "stored"
	}
	return "none"
}
