// Package profile holds the typed connection profile of an Elasticsearch ODBC
// DSN, the schema that maps it onto connection-string keywords, and the
// derived control enablement an editor frontend renders from it.
//
// Usage:
//
//	p, err := profile.Decode("driver={Elasticsearch Driver};server=localhost;port=9200")
//	if err != nil {
//	    return err
//	}
//	p.Username = "elastic"
//	raw := profile.Encode(p)
package profile

import (
	"strings"

	"github.com/koustreak/dsneditor/internal/connstr"
)

// --- TLS policy ---

// TLSPolicy is the `secure` connection-string setting.
type TLSPolicy int

const (
	TLSDisabled TLSPolicy = iota
	TLSNoValidation
	TLSNoHostnameCheck
	TLSHostnameCheck
	TLSFull
)

func (t TLSPolicy) String() string {
	switch t {
	case TLSDisabled:
		return "disabled"
	case TLSNoValidation:
		return "enabled_no_validation"
	case TLSNoHostnameCheck:
		return "enabled_no_hostname_check"
	case TLSHostnameCheck:
		return "enabled_hostname_check"
	case TLSFull:
		return "enabled_full"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the five known levels.
func (t TLSPolicy) Valid() bool {
	return t >= TLSDisabled && t <= TLSFull
}

// --- enumerations ---

type ProxyType string

const (
	ProxyHTTP    ProxyType = "HTTP"
	ProxyHTTPS   ProxyType = "HTTPS"
	ProxySOCKS4  ProxyType = "SOCKS4"
	ProxySOCKS4a ProxyType = "SOCKS4a"
	ProxySOCKS5  ProxyType = "SOCKS5"
	ProxySOCKS5h ProxyType = "SOCKS5h"
)

// ProxyTypes lists the selectable proxy protocols. HTTPS is accepted on
// decode but not offered.
var ProxyTypes = []ProxyType{ProxyHTTP, ProxySOCKS4, ProxySOCKS4a, ProxySOCKS5, ProxySOCKS5h}

// ParseProxyType matches s case-insensitively against the known protocols.
func ParseProxyType(s string) (ProxyType, bool) {
	for _, t := range []ProxyType{ProxyHTTP, ProxyHTTPS, ProxySOCKS4, ProxySOCKS4a, ProxySOCKS5, ProxySOCKS5h} {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

// DefaultProxyPort returns the conventional port of a proxy protocol, or 0
// when t is unknown.
func DefaultProxyPort(t ProxyType) int {
	switch strings.ToUpper(string(t)) {
	case "HTTP":
		return 8080
	case "HTTPS":
		return 443
	case "SOCKS4", "SOCKS4A", "SOCKS5", "SOCKS5H":
		return 1080
	default:
		return 0
	}
}

type LogLevel string

const (
	LogDebug LogLevel = "DEBUG"
	LogInfo  LogLevel = "INFO"
	LogWarn  LogLevel = "WARN"
	LogError LogLevel = "ERROR"
)

var LogLevels = []LogLevel{LogDebug, LogInfo, LogWarn, LogError}

type FloatsFormat string

const (
	FloatsDefault    FloatsFormat = "default"
	FloatsScientific FloatsFormat = "scientific"
	FloatsAuto       FloatsFormat = "auto"
)

var FloatsFormats = []FloatsFormat{FloatsDefault, FloatsScientific, FloatsAuto}

type DataEncoding string

const (
	EncodingCBOR DataEncoding = "CBOR"
	EncodingJSON DataEncoding = "JSON"
)

var DataEncodings = []DataEncoding{EncodingCBOR, EncodingJSON}

type DataCompression string

const (
	CompressionAuto DataCompression = "auto"
	CompressionOn   DataCompression = "on"
	CompressionOff  DataCompression = "off"
)

var DataCompressions = []DataCompression{CompressionAuto, CompressionOn, CompressionOff}

// --- profile ---

// Profile is the complete set of settings for one DSN.
type Profile struct {
	// Identity
	Name        string `json:"name" yaml:"name" validate:"dsnname"`
	Description string `json:"description" yaml:"description"`

	// Endpoint: Server and CloudID are mutually exclusive.
	Server  string `json:"server" yaml:"server"`
	CloudID string `json:"cloud_id" yaml:"cloud_id"`
	Port    int    `json:"port" yaml:"port" validate:"min=0,max=65535"`

	// Credentials
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	APIKey   string `json:"api_key" yaml:"api_key"`

	// Security
	TLSPolicy       TLSPolicy `json:"tls_policy" yaml:"tls_policy" validate:"min=0,max=4"`
	CertificatePath string    `json:"certificate_path" yaml:"certificate_path" validate:"certfile"`

	// Proxy
	ProxyEnabled     bool      `json:"proxy_enabled" yaml:"proxy_enabled"`
	ProxyType        ProxyType `json:"proxy_type" yaml:"proxy_type" validate:"oneof=HTTP HTTPS SOCKS4 SOCKS4a SOCKS5 SOCKS5h"`
	ProxyHost        string    `json:"proxy_host" yaml:"proxy_host"`
	ProxyPort        int       `json:"proxy_port" yaml:"proxy_port" validate:"min=0,max=65535"`
	ProxyAuthEnabled bool      `json:"proxy_auth_enabled" yaml:"proxy_auth_enabled"`
	ProxyUsername    string    `json:"proxy_username" yaml:"proxy_username"`
	ProxyPassword    string    `json:"proxy_password" yaml:"proxy_password"`

	// Logging
	LoggingEnabled bool     `json:"logging_enabled" yaml:"logging_enabled"`
	LogDirectory   string   `json:"log_directory" yaml:"log_directory"`
	LogLevel       LogLevel `json:"log_level" yaml:"log_level" validate:"oneof=DEBUG INFO WARN ERROR"`

	// Protocol tuning
	RequestTimeout     int             `json:"request_timeout" yaml:"request_timeout" validate:"min=0"`
	MaxFetchRows       int             `json:"max_fetch_rows" yaml:"max_fetch_rows" validate:"min=0"`
	MaxBodySizeMB      int             `json:"max_body_size_mb" yaml:"max_body_size_mb" validate:"min=0"`
	VarcharLimit       int             `json:"varchar_limit" yaml:"varchar_limit" validate:"min=0"`
	FloatsFormat       FloatsFormat    `json:"floats_format" yaml:"floats_format" validate:"oneof=default scientific auto"`
	DataEncoding       DataEncoding    `json:"data_encoding" yaml:"data_encoding" validate:"oneof=CBOR JSON"`
	DataCompression    DataCompression `json:"data_compression" yaml:"data_compression" validate:"oneof=auto on off"`
	FollowRedirects    bool            `json:"follow_redirects" yaml:"follow_redirects"`
	ApplyLocalTimezone bool            `json:"apply_local_timezone" yaml:"apply_local_timezone"`
	AutoEscapePVA      bool            `json:"auto_escape_pva" yaml:"auto_escape_pva"`
	MultiFieldLenient  bool            `json:"multi_field_lenient" yaml:"multi_field_lenient"`
	EarlyExecution     bool            `json:"early_execution" yaml:"early_execution"`
	IndexIncludeFrozen bool            `json:"index_include_frozen" yaml:"index_include_frozen"`

	// Extra carries attributes whose keyword is not in the schema, such as
	// Driver. They are written back first, unchanged.
	Extra []connstr.Pair `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Default returns a profile with every field at its documented default.
func Default() *Profile {
	return &Profile{
		Port:              DefaultPort,
		TLSPolicy:         TLSNoValidation,
		ProxyType:         ProxyHTTP,
		LogLevel:          LogDebug,
		MaxFetchRows:      1000,
		MaxBodySizeMB:     100,
		FloatsFormat:      FloatsDefault,
		DataEncoding:      EncodingCBOR,
		DataCompression:   CompressionAuto,
		FollowRedirects:   true,
		AutoEscapePVA:     true,
		MultiFieldLenient: true,
		EarlyExecution:    true,
	}
}

// DefaultPort is the Elasticsearch REST port.
const DefaultPort = 9200

// HasEndpoint reports whether either a server or a Cloud ID is set.
func (p *Profile) HasEndpoint() bool {
	return p.Server != "" || p.CloudID != ""
}

// ApplyCloudID enforces the Cloud ID exclusivity rule: a non-empty Cloud ID
// clears the server and port. It reports whether anything was cleared.
func (p *Profile) ApplyCloudID() bool {
	if p.CloudID == "" {
		return false
	}
	changed := p.Server != "" || p.Port != 0
	p.Server = ""
	p.Port = 0
	return changed
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	c := *p
	if p.Extra != nil {
		c.Extra = append([]connstr.Pair(nil), p.Extra...)
	}
	return &c
}
