// Package report renders run summaries and listings for the terminal and chat channels.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/fatih/color"

	"CaseScanner/internal/domain"
)

const (
	timestampLayout = "02/01/2006 15:04:05"
	rule            = "============================================================"
)

// FormatDuration renders seconds below a minute with two decimals, longer spans as minutes and seconds.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "0 segundos"
	}
	secs := d.Seconds()
	if secs < 60 {
		return fmt.Sprintf("%.2f segundos", secs)
	}
	minutes := math.Floor(secs / 60)
	rest := math.Floor(secs - minutes*60)
	return fmt.Sprintf("%d minuto(s) e %d segundo(s)", int(minutes), int(rest))
}

// Summary is the plain-text run summary sent to chat channels.
func Summary(run domain.ExecutionLog, loc *time.Location) string {
	var b strings.Builder
	writeSummary(&b, run, loc, false)
	return b.String()
}

// WriteSummary prints the run summary, highlighting failures when colored is set.
func WriteSummary(w io.Writer, run domain.ExecutionLog, loc *time.Location, colored bool) {
	writeSummary(w, run, loc, colored)
}

func writeSummary(w io.Writer, run domain.ExecutionLog, loc *time.Location, colored bool) {
	if loc == nil {
		loc = time.UTC
	}

	title := color.New(color.Bold)
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	for _, c := range []*color.Color{title, ok, bad} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	failed := ok
	if run.CasesFailed > 0 {
		failed = bad
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, title.Sprintf("RESUMO DA EXECUÇÃO (%s)", run.StartedAt.In(loc).Format(timestampLayout)))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "- Tempo Total de Execução: %s\n", FormatDuration(run.Duration))
	fmt.Fprintf(w, "- Média por NPJ Processado: %s\n", FormatDuration(run.AverageCaseDuration))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "- Notificações Novas Salvas: %d\n", run.NotificationsSaved)
	fmt.Fprintf(w, "- Andamentos Capturados: %d\n", run.ActivitiesCaptured)
	fmt.Fprintf(w, "- Documentos Baixados: %d\n", run.DocumentsDownloaded)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "- Processos com Sucesso: %s\n", ok.Sprint(run.CasesSucceeded))
	fmt.Fprintf(w, "- Processos com Falha: %s\n", failed.Sprint(run.CasesFailed))
	if run.Critical {
		fmt.Fprintf(w, "- %s %s\n", bad.Sprint("Falha crítica:"), run.CriticalReason)
	}
	fmt.Fprintln(w, rule)
}
