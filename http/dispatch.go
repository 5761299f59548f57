package http

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/packway"
)

type requestKey struct{}

// request is the state of one routed request. It is built fresh for every
// call and never shared.
type request struct {
	kind routeKind
	// name is the repository identifier, file the captured file path or
	// service name.
	name string
	file string
	repo packway.Repository
}

// pushes reports whether the request runs receive-pack.
func (req *request) pushes(r *http.Request) bool {
	switch req.kind {
	case routePack:
		return req.file == string(packway.ServiceReceivePack)
	case routeInfoRefs:
		return r.URL.Query().Get("service") == string(packway.ServiceReceivePack)
	default:
		return false
	}
}

// route matches the request against the route table and validates it before
// any filesystem access, then hands it to the read or write chain.
func (h *Handler) route(w http.ResponseWriter, r *http.Request) {
	path, err := packway.CleanRequestPath(r.URL.EscapedPath())
	if err != nil {
		HandleError(w, r, fmt.Errorf("route %q: %w", r.URL.EscapedPath(), packway.ErrInvalidInput))
		return
	}

	rt, name, file, ok := match(path)
	if !ok {
		HandleError(w, r, fmt.Errorf("route %q: %w", path, packway.ErrNotFound))
		return
	}

	if r.Method != rt.method {
		HandleError(w, r, fmt.Errorf("route %q: %s: %w", path, r.Method, packway.ErrMethodNotAllowed))
		return
	}

	if !packway.IsValidRepoPath(path) {
		HandleError(w, r, fmt.Errorf("route %q: %w", path, packway.ErrInvalidInput))
		return
	}

	req := &request{
		kind: rt.kind,
		name: strings.Trim(name, "/"),
		file: file,
	}

	next := h.read
	if req.pushes(r) {
		next = h.write
	}
	next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestKey{}, req)))
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(requestKey{}).(*request)
	if !ok {
		HandleError(w, r, errors.New("serve: request was not routed"))
		return
	}

	repoPath, err := h.root.Resolve(req.name)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	req.repo = h.factory(repoPath)
	if !req.repo.Exists() {
		HandleError(w, r, fmt.Errorf("repository %q: %w", req.name, packway.ErrNotFound))
		return
	}

	switch req.kind {
	case routePack:
		h.servicePack(w, r, req)
	case routeInfoRefs:
		h.infoRefs(w, r, req)
	case routeTextFile:
		h.sendFile(w, r, req.repo, req.file, "text/plain", noCache)
	case routeInfoPacks:
		h.sendFile(w, r, req.repo, req.file, "text/plain; charset=utf-8", noCacheInfoPacks)
	case routeLooseObject:
		h.sendFile(w, r, req.repo, req.file, "application/x-git-loose-object", cacheForever)
	case routePackFile:
		h.sendFile(w, r, req.repo, req.file, "application/x-git-packed-objects", cacheForever)
	case routeIdxFile:
		h.sendFile(w, r, req.repo, req.file, "application/x-git-packed-objects-toc", cacheForever)
	}
}

func (h *Handler) servicePack(w http.ResponseWriter, r *http.Request, req *request) {
	svc := packway.Service(req.file)

	if ct := r.Header.Get("Content-Type"); ct != svc.RequestContentType() {
		HandleError(w, r, fmt.Errorf("%s: content type %q: %w", svc, ct, packway.ErrForbidden))
		return
	}

	allowed, err := h.allowed(r.Context(), req.repo, svc)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if !allowed {
		HandleError(w, r, fmt.Errorf("%s on %q: %w", svc, req.name, packway.ErrForbidden))
		return
	}

	var body io.Reader = r.Body
	if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			HandleError(w, r, fmt.Errorf("%s: gzip body: %w: %w", svc, packway.ErrInvalidInput, err))
			return
		}
		defer func() { _ = gz.Close() }()
		body = gz
	}

	h.exchange(w, r, req, svc, body)
}

func (h *Handler) infoRefs(w http.ResponseWriter, r *http.Request, req *request) {
	ctx := r.Context()
	query := r.URL.Query()

	if !query.Has("service") {
		if err := req.repo.UpdateServerInfo(ctx); err != nil {
			if errors.Is(err, packway.ErrLaunch) {
				HandleError(w, r, err)
				return
			}
			slog.WarnContext(ctx, "update server info failed", "repository", req.name, "error", err)
		}
		h.sendFile(w, r, req.repo, "info/refs", "text/plain; charset=utf-8", noCache)
		return
	}

	svc, err := packway.ParseService(query.Get("service"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	allowed, err := h.allowed(ctx, req.repo, svc)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if !allowed {
		// Same response as an unknown service.
		HandleError(w, r, fmt.Errorf("%s on %q: %w", svc, req.name, packway.ErrNotFound))
		return
	}

	h.exchange(w, r, req, svc, nil)
}

func (h *Handler) allowed(ctx context.Context, repo packway.Repository, svc packway.Service) (bool, error) {
	allowed, err := h.config.Policy.Allowed(ctx, repo, svc)
	if err != nil {
		return false, err
	}
	if !allowed {
		h.config.Metrics.denied(string(svc))
	}
	return allowed, nil
}

// exchange runs svc against the repository and streams its output. A nil in
// means ref advertisement. The status line and headers are only committed
// once the process is running, so a launch failure still gets a 500.
func (h *Handler) exchange(w http.ResponseWriter, r *http.Request, req *request, svc packway.Service, in io.Reader) {
	ctx := r.Context()
	advertise := in == nil

	contentType := svc.ResultContentType()
	if advertise {
		contentType = svc.AdvertisementContentType()
	}

	rc := http.NewResponseController(w)
	out := &countingWriter{w: w, flush: rc.Flush}

	var counted *countingReader
	if in != nil {
		// git reads the request body while its output is already being
		// streamed. HTTP/1 would otherwise close the body on the first flush.
		if err := rc.EnableFullDuplex(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			slog.WarnContext(ctx, "failed to enable full duplex", "repository", req.name, "error", err)
		}
		counted = &countingReader{r: in}
		in = counted
	}

	committed := false
	opts := packway.PackOptions{
		AdvertiseRefs: advertise,
		Started: func() {
			hdr := w.Header()
			hdr.Set("Content-Type", contentType)
			if advertise {
				noCache(hdr)
			}
			w.WriteHeader(http.StatusOK)
			_ = rc.Flush()
			committed = true
		},
	}

	ex := packway.Exchange{
		ID:            uuid.New(),
		Repository:    req.name,
		Service:       svc,
		AdvertiseRefs: advertise,
		StartedAt:     time.Now().UTC(),
	}

	h.config.Metrics.exchangeStarted()
	err := req.repo.HandlePack(ctx, svc, in, out, opts)

	ex.FinishedAt = time.Now().UTC()
	ex.BytesOut = out.n.Load()
	if counted != nil {
		ex.BytesIn = counted.n.Load()
	}
	ex.Status = packway.ExchangeOK
	if err != nil {
		ex.Status = packway.ExchangeFailed
	}

	h.config.Metrics.exchangeFinished(string(svc), ex.BytesIn, ex.BytesOut)
	h.record(ctx, ex)

	if err == nil {
		return
	}
	if !committed {
		HandleError(w, r, err)
		return
	}
	if ctx.Err() != nil {
		slog.InfoContext(ctx, "client went away during exchange", "repository", req.name, "service", svc)
		return
	}
	slog.WarnContext(ctx, "exchange failed after response started", "repository", req.name, "service", svc, "error", err)
}

func (h *Handler) record(ctx context.Context, ex packway.Exchange) {
	if h.config.Exchanges == nil {
		return
	}
	// The exchange is logged even when the client has already gone away.
	if err := h.config.Exchanges.Record(context.WithoutCancel(ctx), ex); err != nil {
		slog.WarnContext(ctx, "failed to record exchange", "id", ex.ID, "error", err)
	}
}

// sendFile serves path from repo with the given content type and cache policy.
func (h *Handler) sendFile(w http.ResponseWriter, r *http.Request, repo packway.Repository, path, contentType string, cache func(http.Header)) {
	s, err := repo.File(path)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", contentType)
	cache(hdr)

	if p, ok := s.Path(); ok {
		f, err := os.Open(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				err = fmt.Errorf("%s: %w", path, packway.ErrNotFound)
			}
			HandleError(w, r, err)
			return
		}
		defer func() { _ = f.Close() }()

		http.ServeContent(w, r, "", s.ModTime(), f)
		return
	}

	hdr.Set("Last-Modified", s.ModTime().UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	if _, err := s.WriteTo(w); err != nil {
		slog.WarnContext(r.Context(), "failed to stream file", "path", path, "error", err)
	}
}

const expiredDate = "Fri, 01 Jan 1980 00:00:00 GMT"

func noCache(h http.Header) {
	h.Set("Expires", expiredDate)
	h.Set("Pragma", "no-cache")
	h.Set("Cache-Control", "no-cache, max-age=0, must-revalidate")
}

func noCacheInfoPacks(h http.Header) {
	h.Set("Expires", expiredDate)
	h.Set("Pragma", "no-cache")
	h.Set("Cache-Control", "no-cache")
}

func cacheForever(h http.Header) {
	now := time.Now().UTC()
	h.Set("Date", now.Format(http.TimeFormat))
	h.Set("Expires", now.AddDate(1, 0, 0).Format(http.TimeFormat))
	h.Set("Cache-Control", "public, max-age=31536000")
}

type countingWriter struct {
	w     io.Writer
	flush func() error
	n     atomic.Int64
}

// Write forwards p and flushes so each chunk reaches the client immediately.
func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n.Add(int64(n))
	if err != nil {
		return n, err
	}
	_ = c.flush()
	return n, nil
}

// countingReader may still be read by a relay goroutine after the exchange
// returns, so its count is atomic.
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
