package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/ocsp"
	"golang.org/x/net/proxy"

	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/profile"
)

// --- TLS ---

// TLSConfig builds the client TLS settings for a policy level. It returns nil
// for TLSDisabled. caPath, when set, replaces the system roots.
func TLSConfig(policy profile.TLSPolicy, caPath string) (*tls.Config, error) {
	if policy == profile.TLSDisabled {
		return nil, nil
	}

	roots, err := loadRoots(caPath)
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		RootCAs:    roots,
		MinVersion: tls.VersionTLS12,
	}

	switch policy {
	case profile.TLSNoValidation:
		cfg.InsecureSkipVerify = true
	case profile.TLSNoHostnameCheck:
		// chain is verified by hand, without the server name
		cfg.InsecureSkipVerify = true
		cfg.VerifyConnection = func(cs tls.ConnectionState) error {
			return verifyChain(cs, roots)
		}
	case profile.TLSHostnameCheck:
	case profile.TLSFull:
		cfg.VerifyConnection = checkStapledRevocation
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown TLS policy %d", policy)
	}
	return cfg, nil
}

func loadRoots(caPath string) (*x509.CertPool, error) {
	if caPath == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindFileNotFound, "Certificate file invalid", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "no PEM certificate found in %s", caPath)
	}
	return pool, nil
}

func verifyChain(cs tls.ConnectionState, roots *x509.CertPool) error {
	if len(cs.PeerCertificates) == 0 {
		return errors.New("server presented no certificate")
	}
	opts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: x509.NewCertPool(),
	}
	for _, c := range cs.PeerCertificates[1:] {
		opts.Intermediates.AddCert(c)
	}
	_, err := cs.PeerCertificates[0].Verify(opts)
	return err
}

// checkStapledRevocation rejects a handshake whose stapled OCSP response
// marks the leaf certificate as revoked.
func checkStapledRevocation(cs tls.ConnectionState) error {
	if len(cs.OCSPResponse) == 0 || len(cs.VerifiedChains) == 0 || len(cs.VerifiedChains[0]) < 2 {
		return nil
	}
	chain := cs.VerifiedChains[0]
	resp, err := ocsp.ParseResponseForCert(cs.OCSPResponse, chain[0], chain[1])
	if err != nil {
		return errs.Wrap(errs.ErrKindPermissionDenied, "invalid OCSP response stapled by the server", err)
	}
	if resp.Status == ocsp.Revoked {
		return errs.New(errs.ErrKindPermissionDenied, "server certificate has been revoked")
	}
	return nil
}

// --- proxy ---

// applyProxy routes tr through the profile's proxy, if enabled.
func applyProxy(tr *http.Transport, p *profile.Profile) error {
	if !p.ProxyEnabled {
		tr.Proxy = nil
		return nil
	}
	if p.ProxyHost == "" {
		return errs.New(errs.ErrKindInvalidInput, "proxy hostname is empty")
	}

	port := p.ProxyPort
	if port == 0 {
		port = profile.DefaultProxyPort(p.ProxyType)
	}
	addr := net.JoinHostPort(p.ProxyHost, strconv.Itoa(port))

	switch strings.ToUpper(string(p.ProxyType)) {
	case "HTTP", "HTTPS":
		u := &url.URL{Scheme: strings.ToLower(string(p.ProxyType)), Host: addr}
		if p.ProxyAuthEnabled {
			u.User = url.UserPassword(p.ProxyUsername, p.ProxyPassword)
		}
		tr.Proxy = http.ProxyURL(u)
		return nil

	case "SOCKS5", "SOCKS5H":
		var auth *proxy.Auth
		if p.ProxyAuthEnabled {
			auth = &proxy.Auth{User: p.ProxyUsername, Password: p.ProxyPassword}
		}
		dialer, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, "invalid SOCKS5 proxy", err)
		}
		cd, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return errs.New(errs.ErrKindInvalidInput, "SOCKS5 dialer does not support contexts")
		}
		remoteDNS := strings.EqualFold(string(p.ProxyType), string(profile.ProxySOCKS5h))
		tr.Proxy = nil
		tr.DialContext = func(ctx context.Context, network, target string) (net.Conn, error) {
			if !remoteDNS {
				resolved, err := resolveLocally(ctx, target)
				if err != nil {
					return nil, err
				}
				target = resolved
			}
			return cd.DialContext(ctx, network, target)
		}
		return nil

	default:
		return errs.Newf(errs.ErrKindInvalidInput, "%s proxies are not supported by the connection test", p.ProxyType)
	}
}

// resolveLocally replaces the host of a host:port address with its first
// resolved IP, so the proxy never sees the name.
func resolveLocally(ctx context.Context, target string) (string, error) {
	host, port, err := net.SplitHostPort(target)
	if err != nil {
		return "", err
	}
	if net.ParseIP(host) != nil {
		return target, nil
	}
	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(addrs[0], port), nil
}
