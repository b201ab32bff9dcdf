package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dispatch-cost-service/internal/domain"
	"dispatch-cost-service/internal/platform/metrics"
	"dispatch-cost-service/internal/platform/obs"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultProfile = "car"

	healthTimeout = 5 * time.Second
)

var errNoPath = errors.New("provider returned no path")

// malformedError marks a response body the provider should never have sent.
type malformedError struct{ err error }

func (e *malformedError) Error() string { return "malformed route payload: " + e.err.Error() }
func (e *malformedError) Unwrap() error { return e.err }

type Options struct {
	BaseURL        string
	APIKey         string
	DefaultProfile string
	// Timeout bounds each attempt, not the whole lookup.
	Timeout    time.Duration
	RateLimit  float64
	RateBurst  int
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// GraphHopperProvider implements RouteProvider against the GraphHopper /route API.
//
// A lookup issues a query-encoded GET first and, if that fails for any reason
// other than cancellation of the caller's context, exactly one body-encoded POST.
// The provider is safe for concurrent use.
type GraphHopperProvider struct {
	session        *http.Client
	baseURL        string
	apiKey         string
	defaultProfile string
	timeout        time.Duration
	limiter        *rate.Limiter
	metrics        *metrics.Metrics
}

func NewGraphHopperProvider(opts Options) (*GraphHopperProvider, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("graphhopper: base url is empty")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("graphhopper: parse base url: %w", err)
	}

	g := &GraphHopperProvider{
		session:        opts.HTTPClient,
		baseURL:        base,
		apiKey:         opts.APIKey,
		defaultProfile: opts.DefaultProfile,
		timeout:        opts.Timeout,
		metrics:        opts.Metrics,
	}
	if g.session == nil {
		g.session = &http.Client{}
	}
	if g.defaultProfile == "" {
		g.defaultProfile = DefaultProfile
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return g, nil
}

func (g *GraphHopperProvider) GetRoute(
	ctx context.Context,
	origin domain.Point,
	destination domain.Point,
	profile string,
) (_ domain.RouteResult, err error) {
	defer obs.Time(ctx, "graphhopper.GetRoute")(&err)

	if err := origin.Validate(); err != nil {
		return domain.RouteResult{}, err
	}
	if err := destination.Validate(); err != nil {
		return domain.RouteResult{}, err
	}
	if strings.TrimSpace(profile) == "" {
		profile = g.defaultProfile
	}

	route, getErr := g.attempt(ctx, http.MethodGet, func(actx context.Context) (*http.Request, error) {
		return g.newRequest(actx, http.MethodGet, g.queryURL(origin, destination, profile), nil)
	})
	if getErr == nil {
		return route, nil
	}
	if ctx.Err() != nil {
		return domain.RouteResult{}, fmt.Errorf("get route: %w", ctx.Err())
	}

	obs.L(ctx).Warn("routing query failed, retrying with body request",
		zap.String("origin", origin.String()),
		zap.String("destination", destination.String()),
		zap.Error(getErr),
	)
	g.metrics.ObserveFallback()

	body, err := json.Marshal(routeRequest{
		Points:        [][]float64{origin.LonLat(), destination.LonLat()},
		Profile:       profile,
		PointsEncoded: false,
		Instructions:  false,
	})
	if err != nil {
		return domain.RouteResult{}, domain.Wrap(domain.KindComputation, "get route", fmt.Errorf("encode body: %w", err))
	}

	route, postErr := g.attempt(ctx, http.MethodPost, func(actx context.Context) (*http.Request, error) {
		return g.newRequest(actx, http.MethodPost, g.endpoint("/route", nil), bytes.NewReader(body))
	})
	if postErr == nil {
		return route, nil
	}
	if ctx.Err() != nil {
		return domain.RouteResult{}, fmt.Errorf("get route: %w", ctx.Err())
	}

	var me *malformedError
	if errors.As(postErr, &me) {
		return domain.RouteResult{}, &domain.Error{
			Kind: domain.KindComputation,
			Op:   "get route",
			Msg:  fmt.Sprintf("%s -> %s", origin, destination),
			Err:  postErr,
		}
	}
	return domain.RouteResult{}, &domain.Error{
		Kind: domain.KindExternalService,
		Op:   "get route",
		Msg:  fmt.Sprintf("%s -> %s: query attempt: %v", origin, destination, getErr),
		Err:  postErr,
	}
}

// attempt runs one request under its own timeout and decodes the first path.
func (g *GraphHopperProvider) attempt(
	ctx context.Context,
	method string,
	makeReq func(context.Context) (*http.Request, error),
) (_ domain.RouteResult, err error) {
	actx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		g.metrics.ObserveRouting(method, outcome, time.Since(start).Seconds())
	}()

	req, err := makeReq(actx)
	if err != nil {
		return domain.RouteResult{}, err
	}

	resp, err := g.do(req)
	if err != nil {
		return domain.RouteResult{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.RouteResult{}, fmt.Errorf("read body: %w", err)
	}

	return decodeRoute(raw)
}

func (g *GraphHopperProvider) queryURL(origin, destination domain.Point, profile string) string {
	q := url.Values{}
	q.Add("point", formatPoint(origin))
	q.Add("point", formatPoint(destination))
	q.Set("profile", profile)
	q.Set("points_encoded", "false")
	q.Set("instructions", "false")
	q.Set("elevation", "false")
	return g.endpoint("/route", q)
}

// formatPoint renders "lat,lon" in plain decimal notation; %v would switch
// to exponent form for values near zero.
func formatPoint(p domain.Point) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}

func (g *GraphHopperProvider) endpoint(path string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	if g.apiKey != "" {
		q.Set("key", g.apiKey)
	}
	if len(q) == 0 {
		return g.baseURL + path
	}
	return g.baseURL + path + "?" + q.Encode()
}

// Ping checks the provider health endpoint.
func (g *GraphHopperProvider) Ping(ctx context.Context) (err error) {
	defer obs.Time(ctx, "graphhopper.Ping")(&err)

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := g.newRequest(ctx, http.MethodGet, g.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := g.do(req)
	if err != nil {
		return domain.Wrap(domain.KindExternalService, "ping routing provider", err)
	}
	resp.Body.Close()
	return nil
}
