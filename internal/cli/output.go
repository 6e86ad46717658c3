package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"goose/internal/gateway"
	"goose/internal/session"
	gstrings "goose/pkg/strings"
)

const timeLayout = "2006-01-02 15:04"

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func header(cols ...string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = text.FgHiCyan.Sprint(c)
	}
	return row
}

// RenderAPIKeys writes keys as a table.
func RenderAPIKeys(w io.Writer, keys []gateway.APIKey) {
	if len(keys) == 0 {
		fmt.Fprintln(w, text.FgYellow.Sprint("No API keys found"))
		return
	}

	t := newTable(w)
	t.AppendHeader(header("ID", "NAME", "KEY", "CREATED", "LAST USED"))
	for _, k := range keys {
		lastUsed := text.FgHiBlack.Sprint("never")
		if k.LastUsedAt != nil {
			lastUsed = formatTime(*k.LastUsedAt)
		}
		t.AppendRow(table.Row{k.ID, gstrings.Cell(k.Name, gstrings.DefaultCellMaxLen), k.KeyMasked, formatTime(k.CreatedAt), lastUsed})
	}
	t.Render()
}

// RenderProfile writes the user as a two-column table.
func RenderProfile(w io.Writer, p *session.UserProfile) {
	t := newTable(w)
	t.AppendHeader(header("FIELD", "VALUE"))
	t.AppendRows([]table.Row{
		{"ID", p.ID},
		{"Email", p.Email},
		{"Name", gstrings.Cell(p.DisplayName, gstrings.DefaultCellMaxLen)},
		{"Identity", p.ExternalIdentityID},
	})
	t.Render()
}

// StatusText colors a session state for status output.
func StatusText(s session.State) string {
	switch s {
	case session.StateAuthenticated:
		return text.FgGreen.Sprint("Signed in")
	case session.StateAnonymous:
		return text.FgYellow.Sprint("Not signed in")
	default:
		return text.FgHiBlack.Sprint(s.String())
	}
}

// Success formats a one-line confirmation.
func Success(format string, args ...interface{}) string {
	return fmt.Sprintf("%s %s", text.FgGreen.Sprint("✓"), fmt.Sprintf(format, args...))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
