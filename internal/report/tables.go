package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"CaseScanner/internal/domain"
)

const maxPreview = 60

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// WriteNotifications prints one line per notification with capture counts.
func WriteNotifications(w io.Writer, notifications []domain.Notification, total int) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "NPJ", "Tipo", "Adverso", "Data", "Status", "Andamentos", "Documentos"})
	for _, n := range notifications {
		t.AppendRow(table.Row{
			n.ID,
			n.CaseID.String(),
			preview(n.Type),
			preview(n.AdverseParty),
			n.Date.String(),
			string(n.Status),
			len(n.Activities),
			len(n.Documents),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", strconv.Itoa(total), ""})
	t.Render()
}

// WriteNotificationDetail prints a notification with every captured activity and document.
func WriteNotificationDetail(w io.Writer, n domain.Notification) {
	head := newTable(w)
	head.AppendRows([]table.Row{
		{"ID", n.ID},
		{"NPJ", n.CaseID.String()},
		{"Tipo", n.Type},
		{"Adverso", n.AdverseParty},
		{"Data", n.Date.String()},
		{"Status", string(n.Status)},
	})
	if n.ArchivedFrom != "" {
		head.AppendRow(table.Row{"Arquivado de", string(n.ArchivedFrom)})
	}
	head.Render()

	if len(n.Activities) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"Data", "Andamento", "Texto"})
		for _, a := range n.Activities {
			text := ""
			if a.Text != nil {
				text = *a.Text
			}
			t.AppendRow(table.Row{a.Date.String(), a.Type, text})
		}
		t.Render()
	}

	if len(n.Documents) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"Data", "Arquivo", "Caminho"})
		for _, d := range n.Documents {
			t.AppendRow(table.Row{d.Date.String(), d.Filename, d.RelativePath})
		}
		t.Render()
	}
}

// WriteLogs prints execution logs, newest first as given.
func WriteLogs(w io.Writer, logs []domain.ExecutionLog, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Execução", "Duração", "Média/NPJ", "Notificações", "Andamentos", "Documentos", "Sucesso", "Falha", "Crítico"})
	for _, l := range logs {
		critical := ""
		if l.Critical {
			critical = preview(l.CriticalReason)
			if critical == "" {
				critical = "sim"
			}
		}
		t.AppendRow(table.Row{
			l.StartedAt.In(loc).Format(timestampLayout),
			FormatDuration(l.Duration),
			FormatDuration(l.AverageCaseDuration),
			l.NotificationsSaved,
			l.ActivitiesCaptured,
			l.DocumentsDownloaded,
			l.CasesSucceeded,
			l.CasesFailed,
			critical,
		})
	}
	t.Render()
}

// WriteTypes prints the distinct notification types.
func WriteTypes(w io.Writer, types []string) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Tipo de notificação"})
	for _, typ := range types {
		t.AppendRow(table.Row{typ})
	}
	t.Render()
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxPreview {
		return s
	}
	return string(runes[:maxPreview-1]) + "…"
}
