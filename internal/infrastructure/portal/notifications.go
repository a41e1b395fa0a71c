package portal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"CaseScanner/internal/config"
	"CaseScanner/internal/domain"
)

const (
	columnCase    = "NPJ"
	columnAdverse = "Adverso Principal"
	columnDate    = "Gerada em"
	columnDaysAgo = "Qtd Dias Gerada"
)

// FetchNotifications walks every configured notification list. A broken list is logged and skipped.
func (c *Client) FetchNotifications(ctx context.Context, now time.Time) ([]domain.Notification, error) {
	c.debug("fetch notifications", "tasks", len(c.cfg.NotificationTasks))

	var all []domain.Notification
	for _, task := range c.cfg.NotificationTasks {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		if task.URL == "" {
			c.debug("notification task has no url", "task", task.Name)
			continue
		}

		found, err := c.fetchTask(ctx, task, now)
		if err != nil {
			c.warn("notification task failed", "task", task.Name, "error", err)
			continue
		}
		c.debug("notification task done", "task", task.Name, "count", len(found))
		all = append(all, found...)
	}

	return all, nil
}

func (c *Client) fetchTask(ctx context.Context, task config.NotificationTaskConfig, now time.Time) ([]domain.Notification, error) {
	lookup, err := c.fetchDocument(ctx, task.URL, c.cfg.NavigationTimeout)
	if err != nil {
		return nil, err
	}
	if !lookup.Ok() {
		return nil, fmt.Errorf("notification list %s", lookup.State)
	}

	table := lookup.Value.Find("table").First()
	if task.TableID != "" {
		table = lookup.Value.Find(fmt.Sprintf(`table[id=%q]`, task.TableID)).First()
	}
	if table.Length() == 0 {
		return nil, fmt.Errorf("notification table: %w", domain.ErrNotFound)
	}

	return parseNotificationTable(table, task.Name, now, c.warn), nil
}

func parseNotificationTable(table *goquery.Selection, taskName string, now time.Time, warn func(string, ...interface{})) []domain.Notification {
	columns := map[string]int{}
	table.Find("thead th").Each(func(i int, th *goquery.Selection) {
		columns[strings.TrimSpace(th.Text())] = i
	})

	caseCol, ok := columns[columnCase]
	if !ok {
		warn("notification table without case column", "task", taskName)
		return nil
	}

	var out []domain.Notification
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		caseID, err := domain.ParseCaseID(cellText(cells, caseCol))
		if err != nil {
			warn("skip notification row", "task", taskName, "error", err)
			return
		}

		n := domain.Notification{
			CaseID: caseID,
			Type:   taskName,
			Status: domain.StatusPending,
		}
		if col, ok := columns[columnAdverse]; ok {
			n.AdverseParty = cellText(cells, col)
		}

		day, err := notificationDay(cells, columns, now)
		if err != nil {
			warn("skip notification row", "task", taskName, "case", caseID.String(), "error", err)
			return
		}
		n.Date = day
		out = append(out, n)
	})
	return out
}

// notificationDay prefers the generation date and falls back to the age in days.
func notificationDay(cells *goquery.Selection, columns map[string]int, now time.Time) (domain.Day, error) {
	if col, ok := columns[columnDate]; ok {
		if raw := firstField(cellText(cells, col)); raw != "" {
			return domain.ParseDay(raw)
		}
	}
	if col, ok := columns[columnDaysAgo]; ok {
		raw := cellText(cells, col)
		days, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return domain.Day{}, &domain.ParseError{Field: "days", Value: raw, Err: err}
		}
		return domain.NewDay(now).AddDays(-days), nil
	}
	return domain.Day{}, &domain.ParseError{Field: "date", Value: "", Err: domain.ErrNotFound}
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
