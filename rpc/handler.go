// Package rpc implements the abstract gateway issuing GET/POST commands
// to a Tezos node, grounded on blockwatch.cc/tzgo's rpc.Client command
// surface (see DESIGN.md). It knows nothing about block/operation
// decoding; it returns sanitized JSON bytes and lets callers (package
// decode) interpret them.
package rpc

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/moneytrackio/conseil/tezos"
)

// Config carries the connection-pool and timeout knobs from spec §6.
type Config struct {
	Scheme string
	Host   string
	Port   int
	Prefix string // appended before "chains/main/", may be empty

	GetResponseEntityTimeout  time.Duration
	PostResponseEntityTimeout time.Duration

	// RateLimit bounds requests/sec issued to the node; Burst allows a
	// short burst above that steady rate. Zero RateLimit disables
	// limiting.
	RateLimit rate.Limit
	Burst     int

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// Handler is the RpcHandler of spec §4.1: two operations, Get and Post,
// and a single atomic "rejecting" flag used for graceful shutdown.
type Handler struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	rejecting  atomic.Bool
	log        *logrus.Entry
}

// New constructs a Handler against the given node configuration.
func New(cfg Config, log *logrus.Entry) *Handler {
	base := cfg.Scheme + "://" + cfg.Host
	if cfg.Port != 0 {
		base += ":" + strconv.Itoa(cfg.Port)
	}
	base += "/" + strings.TrimPrefix(cfg.Prefix, "/") + "chains/main/"

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}

	return &Handler{
		cfg:     cfg,
		baseURL: base,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        cfg.MaxIdleConns,
				MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
				IdleConnTimeout:     cfg.IdleConnTimeout,
			},
		},
		limiter: limiter,
		log:     log,
	}
}

// Get issues a GET request for command, a partial path segment appended
// to the handler's base URL, and returns the sanitized response body.
func (h *Handler) Get(ctx context.Context, command string) ([]byte, error) {
	return h.do(ctx, http.MethodGet, command, nil, h.cfg.GetResponseEntityTimeout)
}

// Post issues a POST request for command with an optional JSON payload.
func (h *Handler) Post(ctx context.Context, command string, payload []byte) ([]byte, error) {
	return h.do(ctx, http.MethodPost, command, payload, h.cfg.PostResponseEntityTimeout)
}

// Shutdown performs a compare-and-set of the rejecting flag to true and
// closes the pool's idle connections, then returns; it does not wait
// for in-flight requests or their connections to finish. Every
// call that observes the CAS having already succeeded fails immediately
// with tezos.ErrShutdown without touching the network — there is no
// attempt to model this with a general monoid; it is a plain boolean
// guard (spec §9, open question 2).
func (h *Handler) Shutdown() {
	if !h.rejecting.CompareAndSwap(false, true) {
		return
	}
	h.httpClient.CloseIdleConnections()
}

func (h *Handler) do(ctx context.Context, method, command string, payload []byte, timeout time.Duration) ([]byte, error) {
	if h.rejecting.Load() {
		return nil, tezos.ErrShutdown
	}

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, tezos.WithKind(tezos.KindTransport, err)
		}
	}

	reqID := uuid.NewString()
	u := h.baseURL + strings.TrimPrefix(command, "/")
	entry := h.log.WithField("rpc_id", reqID).WithField("method", method).WithField("url", u)

	reqCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = strings.NewReader(string(payload))
	}
	req, err := http.NewRequestWithContext(reqCtx, method, u, body)
	if err != nil {
		return nil, tezos.WithKind(tezos.KindTransport, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	entry.Debug("rpc call")
	resp, err := h.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, tezos.WithKind(tezos.KindTimeout, err)
		}
		if h.rejecting.Load() {
			return nil, tezos.ErrShutdown
		}
		return nil, tezos.WithKind(tezos.KindTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, tezos.WithKind(tezos.KindTimeout, err)
		}
		return nil, tezos.WithKind(tezos.KindTransport, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{URL: u}
	}
	if resp.StatusCode >= 400 {
		return nil, tezos.Errorf(tezos.KindTransport, "rpc %s %s: status %d: %s", method, u, resp.StatusCode, string(raw))
	}

	return sanitize(raw), nil
}

// NotFoundError distinguishes the node's 404 from other transport
// failures so callers (the genesis edge case, spec §3/§6) can treat it
// as "empty" rather than as an error.
type NotFoundError struct{ URL string }

func (e *NotFoundError) Error() string { return "rpc: 404 not found: " + e.URL }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// sanitize strips non-printable ASCII control characters from a raw
// response body before it is handed to a JSON decoder, per spec §4.1 /
// §6 ("responses are sanitized ... before return").
func sanitize(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for _, r := range string(raw) {
		if r == '\n' || r == '\t' || r == '\r' || !unicode.IsControl(r) {
			out = append(out, string(r)...)
		}
	}
	return out
}
