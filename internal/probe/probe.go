// Package probe tests whether a connection profile reaches an Elasticsearch
// instance, the way the driver would connect: same endpoint resolution, TLS
// policy, proxy and credentials. Tester.Callback plugs it into an editor
// session as the testConnection callback.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/koustreak/dsneditor/internal/editor"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/logger"
	"github.com/koustreak/dsneditor/internal/profile"
)

// Config holds probe settings that are not part of a DSN.
type Config struct {
	// Timeout bounds a probe when the profile sets no request timeout.
	Timeout   time.Duration `mapstructure:"timeout" validate:"min=0"`
	UserAgent string        `mapstructure:"user_agent"`
}

// DefaultConfig returns production-ready defaults
func DefaultConfig() *Config {
	return &Config{
		Timeout:   10 * time.Second,
		UserAgent: "dsnedit",
	}
}

// ClusterInfo is the part of the Elasticsearch root endpoint reply that the
// probe reports.
type ClusterInfo struct {
	Name        string `json:"name"`
	ClusterName string `json:"cluster_name"`
	ClusterUUID string `json:"cluster_uuid"`
	Version     struct {
		Number string `json:"number"`
	} `json:"version"`
}

func (c *ClusterInfo) String() string {
	return fmt.Sprintf("%s (Elasticsearch %s)", c.ClusterName, c.Version.Number)
}

// Tester probes connection profiles.
type Tester struct {
	cfg *Config
	log *logger.Logger
}

// NewTester creates a Tester. A nil cfg uses DefaultConfig.
func NewTester(cfg *Config, log *logger.Logger) *Tester {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Global()
	}
	return &Tester{cfg: cfg, log: log.With().Str("component", "probe").Logger()}
}

// BaseURL resolves the endpoint of p: the Cloud ID when set, else server and
// port over http or https depending on the TLS policy.
func BaseURL(p *profile.Profile) (string, error) {
	if p.CloudID != "" {
		ep, err := DecodeCloudID(p.CloudID)
		if err != nil {
			return "", err
		}
		return ep.URL(), nil
	}
	if p.Server == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "no server or Cloud ID configured")
	}

	port := p.Port
	if port == 0 {
		port = profile.DefaultPort
	}
	scheme := "https"
	if p.TLSPolicy == profile.TLSDisabled {
		scheme = "http"
	}
	return scheme + "://" + net.JoinHostPort(p.Server, strconv.Itoa(port)), nil
}

// Client builds the HTTP client the probe uses for p.
func (t *Tester) Client(p *profile.Profile) (*http.Client, error) {
	policy := p.TLSPolicy
	if p.CloudID != "" && policy < profile.TLSHostnameCheck {
		policy = profile.TLSHostnameCheck
	}
	tlsCfg, err := TLSConfig(policy, p.CertificatePath)
	if err != nil {
		return nil, err
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = tlsCfg
	if err := applyProxy(tr, p); err != nil {
		return nil, err
	}

	timeout := t.cfg.Timeout
	if p.RequestTimeout > 0 {
		timeout = time.Duration(p.RequestTimeout) * time.Second
	}

	client := &http.Client{Transport: tr, Timeout: timeout}
	if !p.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client, nil
}

// Probe issues `GET /` against the profile's endpoint and returns the
// cluster identity.
func (t *Tester) Probe(ctx context.Context, p *profile.Profile) (*ClusterInfo, error) {
	base, err := BaseURL(p)
	if err != nil {
		return nil, err
	}
	client, err := t.Client(p)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/", nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid endpoint", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.cfg.UserAgent)
	switch {
	case p.APIKey != "":
		req.Header.Set("Authorization", "ApiKey "+p.APIKey)
	case p.Username != "":
		req.SetBasicAuth(p.Username, p.Password)
	}

	log := t.log.With().Str("url", base).Str("tls", p.TLSPolicy.String()).Bool("proxy", p.ProxyEnabled).Logger()
	log.Debug("probing endpoint")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		mapped := mapError(err, base)
		log.ErrorWith("probe failed", err, nil)
		return nil, mapped
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		log.With().Int("status", resp.StatusCode).Logger().Warn("probe rejected")
		return nil, err
	}

	var info ClusterInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "endpoint did not answer like Elasticsearch", err)
	}

	log.InfoWith("probe succeeded", map[string]interface{}{
		"cluster":    info.ClusterName,
		"version":    info.Version.Number,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return &info, nil
}

// ProbeString decodes connStr and probes it.
func (t *Tester) ProbeString(ctx context.Context, connStr string) (*ClusterInfo, error) {
	p, err := profile.Decode(connStr)
	if err != nil {
		return nil, err
	}
	return t.Probe(ctx, p)
}

// Callback adapts the Tester to the editor's testConnection contract.
func (t *Tester) Callback() editor.Callback {
	return func(ctx context.Context, connStr string, _ editor.Flags) (int, string) {
		if _, err := t.ProbeString(ctx, connStr); err != nil {
			if errs.IsInvalidInput(err) || errs.IsParseFailed(err) {
				return editor.StatusInvalid, errs.Message(err)
			}
			return editor.StatusGeneric, errs.Message(err)
		}
		return editor.StatusOK, ""
	}
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errs.Newf(errs.ErrKindPermissionDenied, "authentication failed (HTTP %d)", resp.StatusCode)
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return errs.Newf(errs.ErrKindConnectionFailed, "server redirected to %s (HTTP %d)", resp.Header.Get("Location"), resp.StatusCode)
	default:
		return errs.Newf(errs.ErrKindConnectionFailed, "unexpected HTTP status %d", resp.StatusCode)
	}
}
