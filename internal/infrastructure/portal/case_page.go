package portal

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"CaseScanner/internal/domain"
	"CaseScanner/internal/ports"
)

const (
	activityTableSelector = "table[bb-expandable-table]"
	activityRowSelector   = `tr[ng-repeat-start="item in grupoMes.itens"]`
	detailLinkSelector    = `a[bb-tooltip="Detalhar publicação"]`
	detailTextSelector    = `texto-grande-detalhar p[align='justify']`
	summarySelector       = "div.col-xs-24.ta-left > span.ng-binding"
	documentTableSelector = `table[ng-table="vm.tabelaDocumento"]`
	downloadLinkSelector  = "a[href*='/download/']"
	expandableTriggerAttr = "bb-expandable-trigger"
	minDocumentCells      = 5
)

type casePage struct {
	client *Client
	caseID domain.CaseID
	doc    *goquery.Document
}

var _ ports.CasePage = (*casePage)(nil)

func (p *casePage) ActivityRows(context.Context) (domain.Lookup[[]ports.ActivityRow], error) {
	if p.doc.Find(activityTableSelector).Length() == 0 && p.doc.Find(activityRowSelector).Length() == 0 {
		return domain.NotFound[[]ports.ActivityRow](), nil
	}
	return domain.Found(parseActivities(p.client, p.doc)), nil
}

func parseActivities(client *Client, doc *goquery.Document) []ports.ActivityRow {
	var rows []ports.ActivityRow
	doc.Find(activityRowSelector).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		row := &activityRow{
			client: client,
			kind:   cellText(cells, 1),
			date:   cellText(cells, 4),
		}
		if href, ok := tr.Find(detailLinkSelector).First().Attr("href"); ok {
			row.detailURL = strings.TrimSpace(href)
		}
		if trigger, ok := tr.Attr(expandableTriggerAttr); ok {
			row.summary = expandedSummary(doc, trigger)
		}
		rows = append(rows, row)
	})
	return rows
}

func expandedSummary(doc *goquery.Document, trigger string) string {
	id := strings.TrimPrefix(strings.TrimSpace(trigger), "#")
	if id == "" {
		return ""
	}
	target := doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	})
	return strings.TrimSpace(target.Find(summarySelector).First().Text())
}

func (p *casePage) DocumentRows(ctx context.Context) (domain.Lookup[[]ports.DocumentRow], error) {
	doc := p.doc
	if p.client.cfg.DocumentsPath != "" {
		docPath, err := p.client.casePath(p.client.cfg.DocumentsPath, p.caseID)
		if err != nil {
			return domain.Lookup[[]ports.DocumentRow]{}, err
		}
		lookup, err := p.client.fetchDocument(ctx, docPath, p.client.cfg.NavigationTimeout)
		if err != nil {
			return domain.Lookup[[]ports.DocumentRow]{}, fmt.Errorf("open documents of %s: %w", p.caseID, err)
		}
		if !lookup.Ok() {
			return domain.Lookup[[]ports.DocumentRow]{State: lookup.State}, nil
		}
		doc = lookup.Value
	}

	table := doc.Find(documentTableSelector)
	if table.Length() == 0 {
		return domain.NotFound[[]ports.DocumentRow](), nil
	}
	return domain.Found(parseDocuments(p.client, table)), nil
}

func parseDocuments(client *Client, table *goquery.Selection) []ports.DocumentRow {
	var rows []ports.DocumentRow
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < minDocumentCells {
			return
		}
		link := tr.Find(downloadLinkSelector).First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		rows = append(rows, &documentRow{
			client: client,
			date:   cellText(cells, cells.Length()-2),
			name:   strings.TrimSpace(link.Text()),
			href:   strings.TrimSpace(href),
		})
	})
	return rows
}

func cellText(cells *goquery.Selection, i int) string {
	return strings.TrimSpace(cells.Eq(i).Text())
}

type activityRow struct {
	client    *Client
	date      string
	kind      string
	summary   string
	detailURL string
}

var _ ports.ActivityRow = (*activityRow)(nil)

func (r *activityRow) Date() string    { return r.date }
func (r *activityRow) Type() string    { return r.kind }
func (r *activityRow) Summary() string { return r.summary }

// Detail follows the publication link and reads the justified paragraph of the modal.
func (r *activityRow) Detail(ctx context.Context) (domain.Lookup[string], error) {
	if r.detailURL == "" {
		return domain.NotFound[string](), nil
	}

	lookup, err := r.client.fetchDocument(ctx, r.detailURL, r.client.cfg.DetailTimeout)
	if err != nil {
		return domain.Lookup[string]{}, fmt.Errorf("expand publication: %w", err)
	}
	if !lookup.Ok() {
		return domain.Lookup[string]{State: lookup.State}, nil
	}

	text := lookup.Value.Find(detailTextSelector).First()
	if text.Length() == 0 {
		return domain.NotFound[string](), nil
	}
	return domain.Found(strings.TrimSpace(text.Text())), nil
}

type documentRow struct {
	client *Client
	date   string
	name   string
	href   string
}

var _ ports.DocumentRow = (*documentRow)(nil)

func (r *documentRow) Date() string     { return r.date }
func (r *documentRow) Filename() string { return r.name }

// Download fetches the file body. The name comes from Content-Disposition, the link text or the URL.
func (r *documentRow) Download(ctx context.Context) (domain.Download, error) {
	resp, lookup, err := r.client.fetch(ctx, r.href, r.client.cfg.DownloadTimeout)
	if err != nil {
		return domain.Download{}, err
	}
	switch lookup.State {
	case domain.LookupTimeout:
		return domain.Download{}, fmt.Errorf("download %s: %w", r.href, domain.ErrTimeout)
	case domain.LookupNotFound:
		return domain.Download{}, fmt.Errorf("download %s: %w", r.href, domain.ErrNotFound)
	}

	name := dispositionFilename(resp.Header().Get("Content-Disposition"))
	if name == "" {
		name = r.name
	}
	if name == "" {
		name = urlBase(r.href)
	}

	return domain.Download{Filename: name, Body: resp.Body()}, nil
}

func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["filename"])
}

func urlBase(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		raw = u.Path
	}
	base := path.Base(raw)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
