package probe

import (
	"encoding/base64"
	"net"
	"strings"

	"github.com/koustreak/dsneditor/internal/errs"
)

// CloudEndpoint is the Elasticsearch endpoint encoded in a Cloud ID.
type CloudEndpoint struct {
	Name string
	Host string
	Port string
}

// DecodeCloudID unpacks a Cloud ID of the form
// `name:base64(domain[:port]$es_uuid$kibana_uuid)`. The name prefix is
// optional. The port defaults to 443.
func DecodeCloudID(cloudID string) (*CloudEndpoint, error) {
	cloudID = strings.TrimSpace(cloudID)
	if cloudID == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "empty Cloud ID")
	}

	name, encoded := "", cloudID
	if i := strings.LastIndexByte(cloudID, ':'); i >= 0 {
		name, encoded = cloudID[:i], cloudID[i+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(padBase64(encoded))
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(padBase64(encoded))
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "Cloud ID is not valid base64", err)
	}

	parts := strings.Split(string(raw), "$")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "Cloud ID does not name an Elasticsearch instance")
	}

	domain, port := parts[0], "443"
	if h, p, err := net.SplitHostPort(domain); err == nil {
		domain, port = h, p
	}

	return &CloudEndpoint{
		Name: name,
		Host: parts[1] + "." + domain,
		Port: port,
	}, nil
}

// URL returns the https base URL of the endpoint.
func (c *CloudEndpoint) URL() string {
	return "https://" + net.JoinHostPort(c.Host, c.Port)
}

func padBase64(s string) string {
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return s
}
