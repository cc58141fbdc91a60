// ABOUTME: HTTP handlers for admin UI pages.
// ABOUTME: Serves the dashboard and generic CRUD, import and export pages for every registered table.

package admin

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ekoru/admin/internal/backend"
	apierrors "github.com/ekoru/admin/internal/errors"
	"github.com/ekoru/admin/internal/fields"
	"github.com/ekoru/admin/internal/form"
	"github.com/ekoru/admin/internal/metrics"
	"github.com/ekoru/admin/internal/operation"
	"github.com/ekoru/admin/internal/record"
	"github.com/ekoru/admin/internal/seed"
	"github.com/ekoru/admin/internal/store"
	"github.com/ekoru/admin/internal/table"
	"github.com/ekoru/admin/internal/transfer"
	"github.com/go-chi/chi/v5"
)

// maxUploadSize caps import uploads.
const maxUploadSize = 10 << 20

// OptionsSource lists a table's rows as relation choices.
type OptionsSource interface {
	Options(ctx context.Context, table, labelField string) ([]fields.Option, error)
}

// Counter reports how many rows a table holds.
type Counter interface {
	Count(ctx context.Context, table string) (int, error)
}

// ImportHistory records and lists import runs.
type ImportHistory interface {
	LogImport(ctx context.Context, run *store.ImportRun) error
	GetImportRuns(ctx context.Context, q store.ImportRunQuery) ([]*store.ImportRun, error)
}

type Handlers struct {
	backend  backend.Backend
	history  ImportHistory
	metrics  *metrics.Metrics
	exporter *transfer.Exporter
	seeder   *seed.Generator
	seedDst  seed.Target
	pageSize int
}

// Option configures Handlers.
type Option func(*Handlers)

// WithHistory records imports and lists them on the import page.
func WithHistory(h ImportHistory) Option {
	return func(hs *Handlers) { hs.history = h }
}

// WithMetrics reports imports and exports to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(hs *Handlers) { hs.metrics = m }
}

// WithExporter replaces the default exporter.
func WithExporter(e *transfer.Exporter) Option {
	return func(hs *Handlers) { hs.exporter = e }
}

// WithPageSize sets the list page size used when the request has none.
func WithPageSize(n int) Option {
	return func(hs *Handlers) { hs.pageSize = n }
}

// WithSeeder enables the per-table "Generate" action writing into dst.
func WithSeeder(g *seed.Generator, dst seed.Target) Option {
	return func(hs *Handlers) { hs.seeder, hs.seedDst = g, dst }
}

func NewHandlers(b backend.Backend, opts ...Option) *Handlers {
	h := &Handlers{
		backend:  b,
		exporter: transfer.NewExporter(transfer.Options{}),
		pageSize: table.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.pageSize < 1 {
		h.pageSize = table.DefaultPageSize
	}
	return h
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/", h.dashboard)
		r.Route("/{table}", func(r chi.Router) {
			r.Use(requireTable)
			r.Get("/", h.list)
			r.Post("/", h.create)
			r.Get("/new", h.newForm)
			r.Post("/generate", h.generate)
			r.Get("/export", h.export)
			r.Get("/template", h.template)
			r.Get("/import", h.importPage)
			r.Post("/import", h.importFile)
			r.Get("/{id}/edit", h.editForm)
			r.Post("/{id}", h.update)
			r.Delete("/{id}", h.delete)
		})
	})
}

// requireTable answers 404 for tables missing from the field registry.
func requireTable(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "table")
		if !fields.HasFieldConfig(name) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusNotFound)
			renderPage(w, "not-found", notFoundPage{
				page:    newPage("Not found", ""),
				Message: fmt.Sprintf("There is no table named %q.", name),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type navItem struct {
	Name  string
	Label string
}

// page holds what the layout needs.
type page struct {
	Title  string
	Active string
	Nav    []navItem
	Flash  string
}

func newPage(title, active string) page {
	tables := fields.Tables()
	nav := make([]navItem, len(tables))
	for i, t := range tables {
		nav[i] = navItem{Name: t, Label: tableLabel(t)}
	}
	return page{Title: title, Active: active, Nav: nav}
}

type tableCard struct {
	Name       string
	Label      string
	Count      int
	CountKnown bool
	Operations []operation.Kind
}

type dashboardPage struct {
	page
	Tables []tableCard
}

type listPage struct {
	page
	Table       string
	CanCreate   bool
	CanImport   bool
	CanGenerate bool
	Search      string
	Page        int
	PageSize    int
	TableHTML   template.HTML
}

type formPage struct {
	page
	Error    string
	FormHTML template.HTML
}

type importOutcome struct {
	Errors   []string
	RowCount int
	Created  int
	Failures []importFailure
}

type importFailure struct {
	Row     int
	Message string
}

type importPage struct {
	page
	Table    string
	Required []string
	Result   *importOutcome
	History  []*store.ImportRun
}

type notConfiguredPage struct {
	page
	Table string
	Kind  operation.Kind
}

type notFoundPage struct {
	page
	Message string
}

var flashMessages = map[string]string{
	"created":   "Record created.",
	"updated":   "Record updated.",
	"deleted":   "Record deleted.",
	"generated": "Sample records generated.",
}

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	counter, canCount := h.backend.(Counter)

	var cards []tableCard
	for _, name := range fields.Tables() {
		card := tableCard{Name: name, Label: tableLabel(name)}
		for _, k := range []operation.Kind{operation.KindList, operation.KindCreate, operation.KindUpdate, operation.KindDelete, operation.KindBulkImport} {
			if operation.Get(name, k) != nil {
				card.Operations = append(card.Operations, k)
			}
		}
		if canCount {
			n, err := counter.Count(r.Context(), name)
			if err != nil {
				log.Printf("admin: count %s: %v", name, err)
			} else {
				card.Count, card.CountKnown = n, true
			}
		}
		cards = append(cards, card)
	}

	w.Header().Set("Content-Type", "text/html")
	renderPage(w, "dashboard", dashboardPage{page: newPage("Dashboard", ""), Tables: cards})
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	if !operation.HasListQuery(name) {
		h.notConfigured(w, name, operation.KindList, http.StatusOK)
		return
	}

	q := r.URL.Query()
	t := table.New(h.backend, h.pageSize)
	t.SetTable(name)
	t.SetPageSize(intParam(q, "page_size", h.pageSize))
	t.SetPage(intParam(q, "page", 1))
	t.SetSearch(q.Get("q"))
	// failures stay in the view and render with a retry link
	_ = t.Load(r.Context())
	v := t.View()

	opts := table.RenderOptions{
		PageURL: func(p int) string {
			pq := url.Values{}
			pq.Set("page", strconv.Itoa(p))
			pq.Set("page_size", strconv.Itoa(t.Request().PageSize))
			if v.Search != "" {
				pq.Set("q", v.Search)
			}
			return "/admin/" + name + "?" + pq.Encode()
		},
		RetryURL: r.URL.RequestURI(),
	}
	if operation.HasUpdateMutation(name) {
		opts.Edit = func(row record.Row) string {
			return "/admin/" + name + "/" + url.PathEscape(row.ID()) + "/edit"
		}
	}
	if operation.HasDeleteMutation(name) {
		opts.Delete = func(row record.Row) string {
			return "/admin/" + name + "/" + url.PathEscape(row.ID())
		}
	}
	fragment := table.Render(v, opts)

	w.Header().Set("Content-Type", "text/html")
	if r.Header.Get("HX-Request") == "true" {
		w.Write([]byte(fragment))
		return
	}

	p := newPage(tableLabel(name), name)
	p.Flash = flashMessages[q.Get("flash")]
	pageNum, pageSize := t.Request().Page, t.Request().PageSize
	if v.PageInfo != nil {
		pageNum, pageSize = v.PageInfo.CurrentPage, v.PageInfo.PageSize
	}
	renderPage(w, "list", listPage{
		page:        p,
		Table:       name,
		CanCreate:   operation.HasCreateMutation(name),
		CanImport:   operation.HasBulkImportMutation(name),
		CanGenerate: h.seeder != nil && h.seedDst != nil,
		Search:      v.Search,
		Page:        pageNum,
		PageSize:    pageSize,
		TableHTML:   template.HTML(fragment),
	})
}

func (h *Handlers) newForm(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	if !operation.HasCreateMutation(name) {
		h.notConfigured(w, name, operation.KindCreate, http.StatusOK)
		return
	}
	f := form.New(fields.GetFieldConfig(name), record.Row{}, nil, nil)
	h.loadRelationOptions(r.Context(), f)
	h.renderForm(w, http.StatusOK, name, "New "+tableLabel(name), f, "/admin/"+name, "")
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	if !operation.HasCreateMutation(name) {
		h.notConfigured(w, name, operation.KindCreate, http.StatusNotImplemented)
		return
	}
	if err := r.ParseForm(); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidBody, "invalid form data")
		return
	}

	var f *form.Form
	f = form.New(fields.GetFieldConfig(name), record.Row{}, func(ctx context.Context, values record.Row) error {
		_, err := backend.Create(ctx, h.backend, name, dropEmptyPasswords(f.Fields(), values))
		return err
	}, nil)
	f.Bind(r.PostForm)

	h.submit(w, r, f, name, "New "+tableLabel(name), "/admin/"+name, "created")
}

func (h *Handlers) editForm(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	id := chi.URLParam(r, "id")
	if !operation.HasUpdateMutation(name) {
		h.notConfigured(w, name, operation.KindUpdate, http.StatusOK)
		return
	}
	row, err := backend.Find(r.Context(), h.backend, name, id)
	if err != nil {
		h.renderError(w, err)
		return
	}
	f := form.New(fields.GetFieldConfig(name), record.StripMeta(row), nil, nil)
	h.loadRelationOptions(r.Context(), f)
	h.renderForm(w, http.StatusOK, name, "Edit "+tableLabel(name), f, "/admin/"+name+"/"+url.PathEscape(id), "")
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	id := chi.URLParam(r, "id")
	if !operation.HasUpdateMutation(name) {
		h.notConfigured(w, name, operation.KindUpdate, http.StatusNotImplemented)
		return
	}
	if err := r.ParseForm(); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidBody, "invalid form data")
		return
	}
	row, err := backend.Find(r.Context(), h.backend, name, id)
	if err != nil {
		h.renderError(w, err)
		return
	}

	var f *form.Form
	f = form.New(fields.GetFieldConfig(name), record.StripMeta(row), func(ctx context.Context, values record.Row) error {
		_, err := backend.Update(ctx, h.backend, name, id, dropEmptyPasswords(f.Fields(), values))
		return err
	}, nil)
	f.Bind(r.PostForm)

	h.submit(w, r, f, name, "Edit "+tableLabel(name), "/admin/"+name+"/"+url.PathEscape(id), "updated")
}

// submit runs the form and either redirects to the list or renders the
// form again with its errors.
func (h *Handlers) submit(w http.ResponseWriter, r *http.Request, f *form.Form, name, title, action, flash string) {
	err := f.Submit(r.Context())
	if err == nil {
		http.Redirect(w, r, "/admin/"+name+"?flash="+flash, http.StatusSeeOther)
		return
	}

	status, _ := apierrors.Classify(err)
	msg := ""
	var verr *form.ValidationError
	if !stderrors.As(err, &verr) {
		log.Printf("admin: save %s: %v", name, err)
		msg = err.Error()
	}
	h.loadRelationOptions(r.Context(), f)
	h.renderForm(w, status, name, title, f, action, msg)
}

func (h *Handlers) delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	id := chi.URLParam(r, "id")

	if err := backend.Delete(r.Context(), h.backend, name, id); err != nil {
		log.Printf("admin: delete %s %s: %v", name, id, err)
		apierrors.WriteFromError(w, err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/admin/"+name+"?flash=deleted", http.StatusSeeOther)
}

func (h *Handlers) generate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	if h.seeder == nil || h.seedDst == nil {
		apierrors.WriteFromError(w, backend.NotConfigured(name, "generate"))
		return
	}
	results, err := h.seeder.Seed(r.Context(), h.seedDst, []string{name}, seed.DefaultCount)
	if err != nil {
		log.Printf("admin: generate %s: %v", name, err)
		apierrors.WriteFromError(w, err)
		return
	}
	for _, res := range results {
		log.Printf("admin: generated %d %s rows (%d failed)", res.Created, res.Table, res.Failed)
	}
	http.Redirect(w, r, "/admin/"+name+"?flash=generated", http.StatusSeeOther)
}

func (h *Handlers) export(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	format, err := transfer.ParseFormat(r.URL.Query().Get("format"))
	if r.URL.Query().Get("format") == "" {
		format, err = transfer.FormatExcel, nil
	}
	if err != nil {
		apierrors.WriteFromError(w, err)
		return
	}
	if !operation.HasListQuery(name) {
		apierrors.WriteFromError(w, backend.NotConfigured(name, operation.KindList))
		return
	}

	rows, err := table.FetchAll(r.Context(), h.backend, name, 100)
	if err != nil {
		log.Printf("admin: export %s: %v", name, err)
		apierrors.WriteFromError(w, err)
		return
	}

	var buf bytes.Buffer
	sum, err := h.exporter.Export(&buf, format, rows, name, nil)
	if err != nil {
		apierrors.WriteFromError(w, err)
		return
	}
	h.metrics.ObserveExport(name, string(format), sum.DroppedCells)
	log.Printf("admin: exported %d %s rows as %s", sum.Rows, name, format)

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, sum.Filename))
	w.Header().Set("X-Dropped-Cells", strconv.Itoa(sum.DroppedCells))
	w.Write(buf.Bytes())
}

func (h *Handlers) template(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")

	var buf bytes.Buffer
	sum, err := h.exporter.ExportTemplate(&buf, name, fields.Names(fields.GetFieldConfig(name)))
	if err != nil {
		apierrors.WriteFromError(w, err)
		return
	}
	w.Header().Set("Content-Type", transfer.FormatExcel.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, sum.Filename))
	w.Write(buf.Bytes())
}

func (h *Handlers) importPage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	if !operation.HasBulkImportMutation(name) {
		h.notConfigured(w, name, operation.KindBulkImport, http.StatusOK)
		return
	}
	h.renderImport(r.Context(), w, http.StatusOK, name, nil)
}

func (h *Handlers) importFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	if !operation.HasBulkImportMutation(name) {
		h.notConfigured(w, name, operation.KindBulkImport, http.StatusNotImplemented)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		apierrors.WriteError(w, http.StatusRequestEntityTooLarge, apierrors.ErrRequestEntityTooBig, "upload too large or malformed")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrMissingField, "a file is required", "file")
		return
	}
	defer file.Close()

	format, err := transfer.ParseFormat(filepath.Ext(header.Filename))
	if err != nil {
		apierrors.WriteFromError(w, err)
		return
	}

	ctx := r.Context()
	run := &store.ImportRun{TableName: name, Filename: header.Filename, Format: string(format)}
	outcome := &importOutcome{}
	status := http.StatusOK

	res, err := transfer.Import(ctx, file, format, transfer.ValidationFor(fields.GetFieldConfig(name)))
	switch {
	case err != nil:
		log.Printf("admin: import %s from %s: %v", name, header.Filename, err)
		outcome.Errors = []string{err.Error()}
		status = http.StatusBadRequest
	case !res.Success:
		outcome.Errors = res.Errors
		outcome.RowCount = res.RowCount
		status = http.StatusUnprocessableEntity
	default:
		outcome.RowCount = res.RowCount
		bulk, err := backend.BulkCreate(ctx, h.backend, name, res.Data)
		if err != nil {
			log.Printf("admin: bulk import %s: %v", name, err)
			outcome.Errors = []string{err.Error()}
			status, _ = apierrors.Classify(err)
			break
		}
		outcome.Created = bulk.Created
		for _, f := range bulk.Failures {
			outcome.Failures = append(outcome.Failures, importFailure{Row: f.Index + 1, Message: f.Message})
		}
	}

	run.RowCount = outcome.RowCount
	run.Created = outcome.Created
	run.Failed = len(outcome.Failures)
	run.Error = strings.Join(outcome.Errors, "; ")
	h.metrics.ObserveImport(name, string(format), len(outcome.Errors) == 0, run.Created, run.Failed)
	if h.history != nil {
		if err := h.history.LogImport(ctx, run); err != nil {
			log.Printf("admin: record import of %s: %v", name, err)
		}
	}
	log.Printf("admin: import %s from %s: %d rows, %d created, %d failed", name, header.Filename, run.RowCount, run.Created, run.Failed)

	h.renderImport(ctx, w, status, name, outcome)
}

func (h *Handlers) renderImport(ctx context.Context, w http.ResponseWriter, status int, name string, outcome *importOutcome) {
	data := importPage{
		page:     newPage("Import "+tableLabel(name), name),
		Table:    name,
		Required: transfer.ValidationFor(fields.GetFieldConfig(name)).RequiredColumns,
		Result:   outcome,
	}
	if h.history != nil {
		runs, err := h.history.GetImportRuns(ctx, store.ImportRunQuery{TableName: name, Limit: 10})
		if err != nil {
			log.Printf("admin: list imports of %s: %v", name, err)
		}
		data.History = runs
	}
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	renderPage(w, "import", data)
}

func (h *Handlers) renderForm(w http.ResponseWriter, status int, name, title string, f *form.Form, action, msg string) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	renderPage(w, "form", formPage{
		page:     newPage(title, name),
		Error:    msg,
		FormHTML: template.HTML(f.Render(action, "/admin/"+name)),
	})
}

func (h *Handlers) renderError(w http.ResponseWriter, err error) {
	status, _ := apierrors.Classify(err)
	if status == http.StatusNotFound {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		renderPage(w, "not-found", notFoundPage{page: newPage("Not found", ""), Message: err.Error()})
		return
	}
	log.Printf("admin: %v", err)
	apierrors.WriteFromError(w, err)
}

func (h *Handlers) notConfigured(w http.ResponseWriter, name string, kind operation.Kind, status int) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	renderPage(w, "not-configured", notConfiguredPage{
		page:  newPage(tableLabel(name), name),
		Table: name,
		Kind:  kind,
	})
}

// loadRelationOptions fills the choices of every relation field, from
// OptionsSource when the backend offers it and by reading the related
// table otherwise. Failures leave the field as a plain text input.
func (h *Handlers) loadRelationOptions(ctx context.Context, f *form.Form) {
	for _, d := range f.Fields() {
		if d.Kind != fields.KindRelation || d.Hidden {
			continue
		}
		opts, err := h.relationOptions(ctx, d)
		if err != nil {
			log.Printf("admin: options for %s from %s: %v", d.Name, d.RelatedTable, err)
			continue
		}
		f.SetRelationOptions(d.Name, opts)
	}
}

func (h *Handlers) relationOptions(ctx context.Context, d fields.Descriptor) ([]fields.Option, error) {
	if src, ok := h.backend.(OptionsSource); ok {
		return src.Options(ctx, d.RelatedTable, d.LabelField())
	}
	rows, err := table.FetchAll(ctx, h.backend, d.RelatedTable, 100)
	if err != nil {
		return nil, err
	}
	opts := make([]fields.Option, 0, len(rows))
	for _, row := range rows {
		label := record.Stringify(row.Value(d.LabelField()))
		if label == "" {
			label = row.ID()
		}
		opts = append(opts, fields.Option{Label: label, Value: row.ID()})
	}
	return opts, nil
}

// dropEmptyPasswords removes blank password fields so a stored password
// is only replaced when a new one is typed.
func dropEmptyPasswords(descriptors []fields.Descriptor, values record.Row) record.Row {
	for _, d := range descriptors {
		if d.Kind != fields.KindPassword {
			continue
		}
		if v, ok := values.Get(d.Name); ok && (v == nil || record.Stringify(v) == "") {
			values.Delete(d.Name)
		}
	}
	return values
}

func intParam(q url.Values, key string, fallback int) int {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// tableLabel turns "blog_posts" into "Blog posts".
func tableLabel(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
