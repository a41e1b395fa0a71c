package portal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CaseScanner/internal/config"
	"CaseScanner/internal/domain"
)

const casePageHTML = `
<html><body>
  <h1><i class="ci ci--barcode"></i> 2024/0001-000</h1>
  <table bb-expandable-table>
    <tbody>
      <tr ng-repeat-start="item in grupoMes.itens" bb-expandable-trigger="#and-1">
        <td></td><td>PUBLICACAO DJ/DO</td><td></td><td></td><td>10/01/2024 09:00</td>
        <td><a bb-tooltip="Detalhar publicação" href="/detalhe/1">ver</a></td>
      </tr>
      <tr id="and-1"><td><div class="col-xs-24 ta-left"><span class="ng-binding">Resumo publicação</span></div></td></tr>
      <tr ng-repeat-start="item in grupoMes.itens" bb-expandable-trigger="and-2">
        <td></td><td>Juntada</td><td></td><td></td><td>09/01/2024</td>
      </tr>
      <tr id="and-2"><td><div class="col-xs-24 ta-left"><span class="ng-binding"> Petição juntada </span></div></td></tr>
      <tr ng-repeat-start="item in grupoMes.itens">
        <td></td><td>PUBLICACAO DJ/DO</td><td></td><td></td><td>08/01/2024</td>
        <td><a bb-tooltip="Detalhar publicação" href="/detalhe/lento">ver</a></td>
      </tr>
    </tbody>
  </table>
</body></html>`

const documentsHTML = `
<html><body>
  <table ng-table="vm.tabelaDocumento">
    <tbody>
      <tr><td>1</td><td><a href="/download/10">peticao.pdf</a></td><td>PDF</td><td>01/02/2024</td><td>ações</td></tr>
      <tr><td>curta</td></tr>
      <tr><td>2</td><td>sem link</td><td>PDF</td><td>02/02/2024</td><td>ações</td></tr>
      <tr><td>3</td><td><a href="/download/11/laudo.pdf"></a></td><td>PDF</td><td>03/02/2024</td><td>ações</td></tr>
    </tbody>
  </table>
</body></html>`

const detailHTML = `
<html><body>
  <texto-grande-detalhar><p align="justify">  Intimação completa da parte autora.  </p></texto-grande-detalhar>
</body></html>`

func newPortal(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/processo/20240001/0/1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "JSESSIONID=abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(casePageHTML))
	})
	mux.HandleFunc("/processo/20240009/0/1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>Processo não localizado</p></body></html>`))
	})
	mux.HandleFunc("/documentos/20240001/0/1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(documentsHTML))
	})
	mux.HandleFunc("/detalhe/1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(detailHTML))
	})
	mux.HandleFunc("/detalhe/lento", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux.HandleFunc("/download/10", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="peticao_final.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	mux.HandleFunc("/download/11/laudo.pdf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("laudo"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient(config.PortalConfig{
		BaseURL:       server.URL,
		CasePath:      "/processo/",
		DocumentsPath: "/documentos/",
		Cookie:        "JSESSIONID=abc",
		DetailTimeout: 100 * time.Millisecond,
	}, nil)
	return server, client
}

func TestOpenCaseActivities(t *testing.T) {
	t.Parallel()

	_, client := newPortal(t)
	ctx := context.Background()

	page, err := client.OpenCase(ctx, "2024/0001-000")
	if err != nil {
		t.Fatalf("OpenCase error: %v", err)
	}

	lookup, err := page.ActivityRows(ctx)
	if err != nil {
		t.Fatalf("ActivityRows error: %v", err)
	}
	if !lookup.Ok() || len(lookup.Value) != 3 {
		t.Fatalf("expected 3 activity rows, got %+v", lookup)
	}

	first := lookup.Value[0]
	if first.Type() != "PUBLICACAO DJ/DO" || first.Date() != "10/01/2024 09:00" {
		t.Fatalf("unexpected first row: %s %s", first.Type(), first.Date())
	}
	if first.Summary() != "Resumo publicação" {
		t.Fatalf("unexpected summary: %q", first.Summary())
	}

	detail, err := first.Detail(ctx)
	if err != nil {
		t.Fatalf("Detail error: %v", err)
	}
	if !detail.Ok() || detail.Value != "Intimação completa da parte autora." {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	second := lookup.Value[1]
	if second.Summary() != "Petição juntada" {
		t.Fatalf("unexpected summary: %q", second.Summary())
	}
	missing, err := second.Detail(ctx)
	if err != nil || missing.State != domain.LookupNotFound {
		t.Fatalf("expected not found detail, got %+v %v", missing, err)
	}

	slow, err := lookup.Value[2].Detail(ctx)
	if err != nil {
		t.Fatalf("slow detail error: %v", err)
	}
	if slow.State != domain.LookupTimeout {
		t.Fatalf("expected timeout, got %s", slow.State)
	}
}

func TestOpenCaseDocuments(t *testing.T) {
	t.Parallel()

	_, client := newPortal(t)
	ctx := context.Background()

	page, err := client.OpenCase(ctx, "2024/0001-000")
	if err != nil {
		t.Fatalf("OpenCase error: %v", err)
	}

	lookup, err := page.DocumentRows(ctx)
	if err != nil {
		t.Fatalf("DocumentRows error: %v", err)
	}
	if !lookup.Ok() || len(lookup.Value) != 2 {
		t.Fatalf("expected 2 document rows, got %+v", lookup)
	}

	row := lookup.Value[0]
	if row.Date() != "01/02/2024" || row.Filename() != "peticao.pdf" {
		t.Fatalf("unexpected row: %s %s", row.Date(), row.Filename())
	}

	file, err := row.Download(ctx)
	if err != nil {
		t.Fatalf("Download error: %v", err)
	}
	if file.Filename != "peticao_final.pdf" || string(file.Body) != "%PDF-1.4" {
		t.Fatalf("unexpected download: %s %q", file.Filename, file.Body)
	}

	unnamed, err := lookup.Value[1].Download(ctx)
	if err != nil {
		t.Fatalf("Download error: %v", err)
	}
	if unnamed.Filename != "laudo.pdf" {
		t.Fatalf("expected name from url, got %s", unnamed.Filename)
	}
}

func TestOpenCaseNotFound(t *testing.T) {
	t.Parallel()

	_, client := newPortal(t)
	ctx := context.Background()

	for _, id := range []domain.CaseID{"2024/0009-000", "2023/0404-001"} {
		_, err := client.OpenCase(ctx, id)
		var navErr *domain.NavigationError
		if !errors.As(err, &navErr) {
			t.Fatalf("expected navigation error for %s, got %v", id, err)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for %s, got %v", id, err)
		}
	}

	if _, err := client.OpenCase(ctx, "bad"); err == nil {
		t.Fatalf("expected parse error for malformed case id")
	}
}

func TestFetchNotifications(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/tarefas/publicacao", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
		<table id="outra"><thead><tr><th>Nada</th></tr></thead></table>
		<table id="lista">
		  <thead><tr><th>NPJ</th><th>Adverso Principal</th><th>Gerada em</th></tr></thead>
		  <tbody>
		    <tr><td>2024/0001-000</td><td>Fulano de Tal</td><td>10/01/2024 08:00</td></tr>
		    <tr><td>invalido</td><td>x</td><td>10/01/2024</td></tr>
		  </tbody>
		</table>`))
	})
	mux.HandleFunc("/tarefas/documentos", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
		<table>
		  <thead><tr><th>NPJ</th><th>Qtd Dias Gerada</th></tr></thead>
		  <tbody><tr><td>2024/0002-001</td><td> 3 </td></tr></tbody>
		</table>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(config.PortalConfig{
		BaseURL: server.URL,
		NotificationTasks: []config.NotificationTaskConfig{
			{Name: "Publicação", URL: "/tarefas/publicacao", TableID: "lista"},
			{Name: "Sem lista", URL: "/tarefas/inexistente"},
			{Name: "Documentos", URL: server.URL + "/tarefas/documentos"},
			{Name: "Sem url"},
		},
	}, nil)

	now := time.Date(2024, time.January, 10, 15, 0, 0, 0, time.UTC)
	got, err := client.FetchNotifications(context.Background(), now)
	if err != nil {
		t.Fatalf("FetchNotifications error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}

	if got[0].CaseID != "2024/0001-000" || got[0].AdverseParty != "Fulano de Tal" || got[0].Date.String() != "10/01/2024" {
		t.Fatalf("unexpected first notification: %+v", got[0])
	}
	if got[0].Type != "Publicação" || got[0].Status != domain.StatusPending {
		t.Fatalf("unexpected first notification type/status: %+v", got[0])
	}
	if got[1].CaseID != "2024/0002-001" || got[1].Date.String() != "07/01/2024" {
		t.Fatalf("unexpected second notification: %+v", got[1])
	}
}

func TestDownloadNameHelpers(t *testing.T) {
	t.Parallel()

	if got := dispositionFilename(`attachment; filename="a b.pdf"`); got != "a b.pdf" {
		t.Fatalf("unexpected disposition name: %q", got)
	}
	if got := dispositionFilename("garbage;;"); got != "" {
		t.Fatalf("expected empty name, got %q", got)
	}
	if got := urlBase("/download/7/arquivo.pdf?token=1"); got != "arquivo.pdf" {
		t.Fatalf("unexpected url base: %q", got)
	}
}
