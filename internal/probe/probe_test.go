package probe

import (
	"context"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/koustreak/dsneditor/internal/editor"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/logger"
	"github.com/koustreak/dsneditor/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rootReply = `{"name":"node-1","cluster_name":"docker-cluster","cluster_uuid":"u1","version":{"number":"8.13.0"}}`

func esHandler(t *testing.T, check func(r *http.Request) int) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if code := check(r); code != http.StatusOK {
				w.WriteHeader(code)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(rootReply))
	})
}

func profileFor(t *testing.T, rawURL string, policy profile.TLSPolicy) *profile.Profile {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	p := profile.Default()
	p.Server = u.Hostname()
	p.Port = port
	p.TLSPolicy = policy
	return p
}

func writeServerCA(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ca.pem")
	block := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(path, block, 0o600))
	return path
}

func newTester() *Tester {
	return NewTester(nil, logger.Nop())
}

func TestProbe_PlainHTTP(t *testing.T) {
	srv := httptest.NewServer(esHandler(t, func(r *http.Request) int {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "elastic" || pass != "changeme" {
			return http.StatusUnauthorized
		}
		return http.StatusOK
	}))
	defer srv.Close()

	p := profileFor(t, srv.URL, profile.TLSDisabled)
	p.Username = "elastic"
	p.Password = "changeme"

	info, err := newTester().Probe(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "docker-cluster", info.ClusterName)
	assert.Equal(t, "8.13.0", info.Version.Number)
	assert.Equal(t, "docker-cluster (Elasticsearch 8.13.0)", info.String())
}

func TestProbe_APIKey(t *testing.T) {
	srv := httptest.NewServer(esHandler(t, func(r *http.Request) int {
		if r.Header.Get("Authorization") != "ApiKey secret-key" {
			return http.StatusForbidden
		}
		return http.StatusOK
	}))
	defer srv.Close()

	p := profileFor(t, srv.URL, profile.TLSDisabled)
	p.Username = "ignored"
	p.APIKey = "secret-key"

	_, err := newTester().Probe(context.Background(), p)
	assert.NoError(t, err)
}

func TestProbe_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(esHandler(t, func(*http.Request) int { return http.StatusUnauthorized }))
	defer srv.Close()

	_, err := newTester().Probe(context.Background(), profileFor(t, srv.URL, profile.TLSDisabled))
	require.Error(t, err)
	assert.True(t, errs.IsPermissionDenied(err))
	assert.Equal(t, "authentication failed (HTTP 401)", errs.Message(err))
}

func TestProbe_TLSPolicies(t *testing.T) {
	srv := httptest.NewTLSServer(esHandler(t, nil))
	defer srv.Close()
	ca := writeServerCA(t, srv)

	tests := []struct {
		name    string
		policy  profile.TLSPolicy
		host    string
		caPath  string
		wantErr bool
	}{
		{name: "no validation", policy: profile.TLSNoValidation},
		{name: "hostname check without CA", policy: profile.TLSHostnameCheck, wantErr: true},
		{name: "hostname check with CA", policy: profile.TLSHostnameCheck, caPath: ca},
		{name: "full with CA", policy: profile.TLSFull, caPath: ca},
		{name: "name mismatch fails hostname check", policy: profile.TLSHostnameCheck, host: "localhost", caPath: ca, wantErr: true},
		{name: "name mismatch passes chain-only check", policy: profile.TLSNoHostnameCheck, host: "localhost", caPath: ca},
		{name: "chain-only check still needs a trusted CA", policy: profile.TLSNoHostnameCheck, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := profileFor(t, srv.URL, tt.policy)
			p.CertificatePath = tt.caPath
			if tt.host != "" {
				p.Server = tt.host
			}

			_, err := newTester().Probe(context.Background(), p)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errs.IsConnectionFailed(err), err.Error())
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestProbe_PlainServerWithTLSPolicy(t *testing.T) {
	srv := httptest.NewServer(esHandler(t, nil))
	defer srv.Close()

	_, err := newTester().Probe(context.Background(), profileFor(t, srv.URL, profile.TLSNoValidation))
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestProbe_Redirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/es/", esHandler(t, nil))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/es/", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := profileFor(t, srv.URL, profile.TLSDisabled)
	_, err := newTester().Probe(context.Background(), p)
	assert.NoError(t, err)

	p.FollowRedirects = false
	_, err = newTester().Probe(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, errs.Message(err), "redirected")
}

func TestProbe_HTTPProxy(t *testing.T) {
	var proxied bool
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied = r.URL.Host == "es.invalid:9200"
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(rootReply))
	}))
	defer proxySrv.Close()
	u, _ := url.Parse(proxySrv.URL)
	port, _ := strconv.Atoi(u.Port())

	p := profile.Default()
	p.Server = "es.invalid"
	p.TLSPolicy = profile.TLSDisabled
	p.ProxyEnabled = true
	p.ProxyType = profile.ProxyHTTP
	p.ProxyHost = u.Hostname()
	p.ProxyPort = port

	_, err := newTester().Probe(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, proxied)
}

func TestProbe_UnsupportedProxy(t *testing.T) {
	p := profile.Default()
	p.Server = "localhost"
	p.ProxyEnabled = true
	p.ProxyType = profile.ProxySOCKS4
	p.ProxyHost = "proxy"

	_, err := newTester().Probe(context.Background(), p)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestProbe_CertificateMissing(t *testing.T) {
	p := profile.Default()
	p.Server = "localhost"
	p.TLSPolicy = profile.TLSFull
	p.CertificatePath = filepath.Join(t.TempDir(), "none.pem")

	_, err := newTester().Probe(context.Background(), p)
	assert.Equal(t, errs.ErrKindFileNotFound, errs.KindOf(err))
}

func TestProbe_Canceled(t *testing.T) {
	srv := httptest.NewServer(esHandler(t, nil))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTester().Probe(ctx, profileFor(t, srv.URL, profile.TLSDisabled))
	assert.True(t, errs.IsTimeout(err))
}

func TestCallback(t *testing.T) {
	srv := httptest.NewServer(esHandler(t, nil))
	defer srv.Close()

	cb := newTester().Callback()
	ctx := context.Background()

	code, msg := cb(ctx, profile.Encode(profileFor(t, srv.URL, profile.TLSDisabled)), 0)
	assert.Equal(t, editor.StatusOK, code)
	assert.Empty(t, msg)

	code, msg = cb(ctx, "uid=elastic", 0)
	assert.Equal(t, editor.StatusInvalid, code)
	assert.Equal(t, "no server or Cloud ID configured", msg)

	code, _ = cb(ctx, "server={broken", 0)
	assert.Equal(t, editor.StatusInvalid, code)
}

func TestBaseURL(t *testing.T) {
	p := profile.Default()
	p.Server = "es.local"
	u, err := BaseURL(p)
	require.NoError(t, err)
	assert.Equal(t, "https://es.local:9200", u)

	p.TLSPolicy = profile.TLSDisabled
	p.Server = "::1"
	p.Port = 0
	u, err = BaseURL(p)
	require.NoError(t, err)
	assert.Equal(t, "http://[::1]:9200", u)
}

func TestDecodeCloudID(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("eu-west-1.aws.found.io$es123$kb456"))
	ep, err := DecodeCloudID("prod:" + encoded)
	require.NoError(t, err)
	assert.Equal(t, "prod", ep.Name)
	assert.Equal(t, "es123.eu-west-1.aws.found.io", ep.Host)
	assert.Equal(t, "https://es123.eu-west-1.aws.found.io:443", ep.URL())

	withPort := base64.RawStdEncoding.EncodeToString([]byte("example.com:9243$abc$def"))
	ep, err = DecodeCloudID(withPort)
	require.NoError(t, err)
	assert.Equal(t, "", ep.Name)
	assert.Equal(t, "https://abc.example.com:9243", ep.URL())

	for _, bad := range []string{"", "name:!!!", "name:" + base64.StdEncoding.EncodeToString([]byte("only-host"))} {
		_, err := DecodeCloudID(bad)
		assert.True(t, errs.IsInvalidInput(err), bad)
	}
}
