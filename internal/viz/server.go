package viz

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/solsim/internal/presentation/tui"
	"github.com/aretw0/solsim/pkg/results"
)

// Meta describes a results table.
type Meta struct {
	Runs        int      `json:"runs"`
	StepsPerRun int      `json:"steps_per_run"`
	Rows        int      `json:"rows"`
	Quantities  []string `json:"quantities"`
}

// MetaOf summarizes table.
func MetaOf(table *results.Table) Meta {
	return Meta{
		Runs:        table.Runs(),
		StepsPerRun: table.StepsPerRun(),
		Rows:        table.Len(),
		Quantities:  table.Quantities(),
	}
}

var page = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>solsim results</title></head>
<body>
<h1>Simulation results</h1>
<p>Runs: {{.Meta.Runs}} &middot; Steps per run: {{.Meta.StepsPerRun}} &middot; Rows: {{.Meta.Rows}}</p>
<form method="get" action="/">
{{range .Options}}<label><input type="checkbox" name="q" value="{{.Name}}"{{if .Checked}} checked{{end}}> {{.Name}}</label>
{{end}}<button type="submit">Show</button>
</form>
<table border="1">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

type option struct {
	Name    string
	Checked bool
}

type pageData struct {
	Meta    Meta
	Options []option
	Columns []string
	Rows    [][]string
}

// NewHandler serves table: an HTML page at /, the selected table as JSON at
// /api/results and its metadata at /api/meta. Quantities are selected with
// repeated q parameters; none selects all of them.
func NewHandler(table *results.Table) http.Handler {
	meta := MetaOf(table)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		selected, view := selection(table, req)
		data := pageData{Meta: meta, Columns: view.Columns()}
		for _, q := range meta.Quantities {
			data.Options = append(data.Options, option{Name: q, Checked: selected[q]})
		}
		for i := range view.Len() {
			row := view.Row(i)
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = results.FormatValue(v)
			}
			data.Rows = append(data.Rows, cells)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := page.Execute(w, data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	r.Get("/api/meta", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, meta)
	})

	r.Get("/api/results", func(w http.ResponseWriter, req *http.Request) {
		_, view := selection(table, req)
		writeJSON(w, view)
	})

	r.Get("/api/results.md", func(w http.ResponseWriter, req *http.Request) {
		_, view := selection(table, req)
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(tui.Summary(view) + view.Markdown()))
	})

	return r
}

func selection(table *results.Table, req *http.Request) (map[string]bool, *results.Table) {
	names := req.URL.Query()["q"]
	if len(names) == 0 {
		names = table.Quantities()
	}
	selected := make(map[string]bool, len(names))
	for _, n := range names {
		selected[n] = true
	}
	return selected, table.Select(names...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Serve runs handler on addr until ctx is cancelled. ready, when set,
// receives the bound address once the listener is open.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger, ready func(addr string)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting results viewer", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()
	if ready != nil {
		ready(ln.Addr().String())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// HTTPViewer serves the table in-process until ctx is cancelled.
type HTTPViewer struct {
	Addr   string
	Logger *slog.Logger
	// Ready, when set, receives the URL once the viewer listens.
	Ready func(url string)
}

// Show serves table until ctx ends.
func (v *HTTPViewer) Show(ctx context.Context, table *results.Table) error {
	logger := v.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	addr := v.Addr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	return Serve(ctx, addr, NewHandler(table), logger, func(bound string) {
		if v.Ready != nil {
			v.Ready("http://" + bound)
		}
	})
}
