package rpc

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/Conflux-Chain/gas-estimation/util"
	"github.com/Conflux-Chain/gas-estimation/util/metrics"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// JsonClient fetches JSON documents from vendor gas price APIs over HTTP.
//
// Identical requests issued within the configured cache TTL share one upstream
// response, so several estimators polling the same endpoint do not multiply the
// request rate against a rate limited API.
type JsonClient struct {
	client  *fasthttp.Client
	timeout time.Duration
	cache   *util.ResponseCache
}

func NewJsonClientFromViper() *JsonClient {
	return NewJsonClient(
		httpClientCfg.RequestTimeout, httpClientCfg.MaxConnsPerHost,
		httpClientCfg.CacheSize, httpClientCfg.CacheTTL,
	)
}

func NewJsonClient(timeout time.Duration, maxConnsPerHost, cacheSize int, cacheTTL time.Duration) *JsonClient {
	c := &JsonClient{
		client: &fasthttp.Client{
			Name:                "gas-estimation",
			MaxConnsPerHost:     maxConnsPerHost,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
		timeout: timeout,
	}

	if cacheTTL > 0 {
		c.cache = util.NewResponseCache(cacheSize, cacheTTL)
	}

	return c
}

// GetJSON sends a GET request to rawurl and decodes the response body into out.
func (c *JsonClient) GetJSON(ctx context.Context, rawurl string, headers map[string]string, out interface{}) error {
	var (
		body []byte
		err  error
	)

	if c.cache != nil {
		body, err = c.cache.GetOrLoad(rawurl, func() ([]byte, error) {
			return c.get(ctx, rawurl, headers)
		})
	} else {
		body, err = c.get(ctx, rawurl, headers)
	}

	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.WithMessagef(err, "failed to decode response from %v", rawurl)
	}

	return nil
}

func (c *JsonClient) get(ctx context.Context, rawurl string, headers map[string]string) (body []byte, err error) {
	host := hostOf(rawurl)
	start := time.Now()
	defer func() {
		metrics.Registry.Client.Update(host, "GET", err, start)
	}()

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI(rawurl)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err = c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, errors.WithMessagef(err, "failed to request %v", rawurl)
	}

	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		logrus.WithFields(logrus.Fields{
			"url":    rawurl,
			"status": code,
			"body":   string(resp.Body()),
		}).Debug("Unexpected HTTP status from gas price vendor")

		return nil, errors.Errorf("unexpected HTTP status %v from %v", code, host)
	}

	// response body is only valid until the response is released
	body = append([]byte(nil), resp.Body()...)
	return body, nil
}

func hostOf(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil || u.Host == "" {
		return Url2NodeName(rawurl)
	}

	return u.Host
}
