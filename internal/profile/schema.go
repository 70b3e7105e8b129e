package profile

import (
	"strconv"
	"strings"

	"github.com/koustreak/dsneditor/internal/connstr"
	"github.com/koustreak/dsneditor/internal/errs"
)

// Connection-string keywords, spelled the way the driver writes them.
const (
	KeyDSN                = "dsn"
	KeyDescription        = "description"
	KeyUsername           = "uid"
	KeyPassword           = "pwd"
	KeyAPIKey             = "APIKey"
	KeyCloudID            = "cloudid"
	KeyServer             = "server"
	KeyPort               = "port"
	KeyCAPath             = "capath"
	KeySecure             = "secure"
	KeyProxyEnabled       = "ProxyEnabled"
	KeyProxyType          = "ProxyType"
	KeyProxyHost          = "ProxyHost"
	KeyProxyPort          = "ProxyPort"
	KeyProxyAuthEnabled   = "ProxyAuthEnabled"
	KeyProxyAuthUID       = "ProxyAuthUID"
	KeyProxyAuthPWD       = "ProxyAuthPWD"
	KeyTraceFile          = "tracefile"
	KeyTraceLevel         = "tracelevel"
	KeyTraceEnabled       = "traceenabled"
	KeyTimeout            = "Timeout"
	KeyMaxFetchSize       = "MaxFetchSize"
	KeyMaxBodySizeMB      = "MaxBodySizeMB"
	KeyVarcharLimit       = "VarcharLimit"
	KeyScientificFloats   = "ScientificFloats"
	KeyPacking            = "Packing"
	KeyCompression        = "Compression"
	KeyFollow             = "Follow"
	KeyApplyTZ            = "ApplyTZ"
	KeyAutoEscapePVA      = "AutoEscapePVA"
	KeyEarlyExecution     = "EarlyExecution"
	KeyMultiFieldLenient  = "MultiFieldLenient"
	KeyIndexIncludeFrozen = "IndexIncludeFrozen"
)

// Group is the form section a field belongs to.
type Group string

const (
	GroupBasic    Group = "basic"
	GroupSecurity Group = "security"
	GroupProxy    Group = "proxy"
	GroupLogging  Group = "logging"
	GroupMisc     Group = "misc"
)

// Control is the kind of input a frontend renders for a field.
type Control string

const (
	ControlText   Control = "text"
	ControlSecret Control = "secret"
	ControlNumber Control = "number"
	ControlCheck  Control = "check"
	ControlChoice Control = "choice"
	ControlFile   Control = "file"
	ControlDir    Control = "dir"
)

// Field describes one connection-string keyword and how it maps onto a
// Profile.
type Field struct {
	Key     string
	Aliases []string
	Label   string
	Group   Group
	Control Control
	Choices []string
	Default string

	// Braced fields are always written inside braces.
	Braced bool

	get func(*Profile) string
	set func(*Profile, string) error
}

// Get returns the encoded value of the field in p.
func (f Field) Get(p *Profile) string {
	return f.get(p)
}

// Set decodes value into p. A malformed value leaves p untouched and returns
// an ErrKindInvalidInput error.
func (f Field) Set(p *Profile, value string) error {
	return f.set(p, value)
}

// Matches reports whether key names this field, directly or via an alias.
func (f Field) Matches(key string) bool {
	if strings.EqualFold(f.Key, key) {
		return true
	}
	for _, a := range f.Aliases {
		if strings.EqualFold(a, key) {
			return true
		}
	}
	return false
}

// Lookup finds the schema field for key.
func Lookup(key string) (Field, bool) {
	for _, f := range Schema {
		if f.Matches(key) {
			return f, true
		}
	}
	return Field{}, false
}

// Schema is the ordered field set. Encode writes fields in this order.
var Schema = []Field{
	// Basic
	textField(KeyDSN, "Name", GroupBasic, func(p *Profile) *string { return &p.Name }),
	textField(KeyDescription, "Description", GroupBasic, func(p *Profile) *string { return &p.Description }),
	{
		Key: KeyUsername, Label: "Username", Group: GroupBasic, Control: ControlText,
		get: func(p *Profile) string { return strings.TrimSpace(p.Username) },
		set: func(p *Profile, v string) error { p.Username = v; return nil },
	},
	secretField(KeyPassword, "Password", GroupBasic, func(p *Profile) *string { return &p.Password }),
	secretField(KeyAPIKey, "API Key", GroupBasic, func(p *Profile) *string { return &p.APIKey }),
	{
		Key: KeyCloudID, Label: "Cloud ID", Group: GroupBasic, Control: ControlText, Braced: true,
		get: func(p *Profile) string { return strings.TrimSpace(connstr.StripBraces(p.CloudID)) },
		set: func(p *Profile, v string) error { p.CloudID = strings.TrimSpace(connstr.StripBraces(v)); return nil },
	},
	{
		Key: KeyServer, Aliases: []string{"hostname"}, Label: "Hostname", Group: GroupBasic, Control: ControlText,
		get: func(p *Profile) string { return strings.TrimSpace(p.Server) },
		set: func(p *Profile, v string) error { p.Server = strings.TrimSpace(v); return nil },
	},
	portField(KeyPort, "Port", GroupBasic, strconv.Itoa(DefaultPort), func(p *Profile) *int { return &p.Port }),

	// Security
	{
		Key: KeySecure, Label: "TLS policy", Group: GroupSecurity, Control: ControlChoice,
		Choices: []string{"0", "1", "2", "3", "4"}, Default: "1",
		get: func(p *Profile) string { return strconv.Itoa(int(p.TLSPolicy)) },
		set: func(p *Profile, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || !TLSPolicy(n).Valid() {
				return invalidValue(KeySecure, v)
			}
			p.TLSPolicy = TLSPolicy(n)
			return nil
		},
	},
	{
		Key: KeyCAPath, Label: "Certificate file", Group: GroupSecurity, Control: ControlFile,
		get: func(p *Profile) string { return p.CertificatePath },
		set: func(p *Profile, v string) error { p.CertificatePath = v; return nil },
	},

	// Proxy
	boolField(KeyProxyEnabled, "Enable proxy", GroupProxy, false, func(p *Profile) *bool { return &p.ProxyEnabled }),
	{
		Key: KeyProxyType, Label: "Proxy type", Group: GroupProxy, Control: ControlChoice,
		Choices: enumStrings(ProxyTypes), Default: string(ProxyHTTP),
		get: func(p *Profile) string { return string(p.ProxyType) },
		set: func(p *Profile, v string) error {
			t, ok := ParseProxyType(v)
			if !ok {
				return invalidValue(KeyProxyType, v)
			}
			p.ProxyType = t
			return nil
		},
	},
	textField(KeyProxyHost, "Proxy hostname", GroupProxy, func(p *Profile) *string { return &p.ProxyHost }),
	portField(KeyProxyPort, "Proxy port", GroupProxy, "", func(p *Profile) *int { return &p.ProxyPort }),
	boolField(KeyProxyAuthEnabled, "Enable proxy authentication", GroupProxy, false, func(p *Profile) *bool { return &p.ProxyAuthEnabled }),
	textField(KeyProxyAuthUID, "Proxy username", GroupProxy, func(p *Profile) *string { return &p.ProxyUsername }),
	secretField(KeyProxyAuthPWD, "Proxy password", GroupProxy, func(p *Profile) *string { return &p.ProxyPassword }),

	// Logging
	{
		Key: KeyTraceFile, Label: "Log directory", Group: GroupLogging, Control: ControlDir,
		get: func(p *Profile) string { return p.LogDirectory },
		set: func(p *Profile, v string) error { p.LogDirectory = v; return nil },
	},
	{
		Key: KeyTraceLevel, Label: "Log level", Group: GroupLogging, Control: ControlChoice,
		Choices: enumStrings(LogLevels), Default: string(LogDebug),
		get: func(p *Profile) string { return string(p.LogLevel) },
		set: func(p *Profile, v string) error {
			for _, l := range LogLevels {
				if strings.EqualFold(string(l), strings.TrimSpace(v)) {
					p.LogLevel = l
					return nil
				}
			}
			return invalidValue(KeyTraceLevel, v)
		},
	},
	{
		Key: KeyTraceEnabled, Label: "Enable logging", Group: GroupLogging, Control: ControlCheck, Default: "0",
		get: func(p *Profile) string {
			if p.LoggingEnabled {
				return "1"
			}
			return "0"
		},
		set: func(p *Profile, v string) error {
			v = strings.TrimSpace(v)
			if n, err := strconv.Atoi(v); err == nil {
				p.LoggingEnabled = n != 0
				return nil
			}
			switch strings.ToLower(v) {
			case "true", "yes", "on":
				p.LoggingEnabled = true
			case "false", "no", "off":
				p.LoggingEnabled = false
			default:
				return invalidValue(KeyTraceEnabled, v)
			}
			return nil
		},
	},

	// Misc
	intField(KeyTimeout, "Request timeout (s)", "0", func(p *Profile) *int { return &p.RequestTimeout }),
	intField(KeyMaxFetchSize, "Max page size (rows)", "1000", func(p *Profile) *int { return &p.MaxFetchRows }),
	intField(KeyMaxBodySizeMB, "Max page length (MB)", "100", func(p *Profile) *int { return &p.MaxBodySizeMB }),
	intField(KeyVarcharLimit, "Varchar limit", "0", func(p *Profile) *int { return &p.VarcharLimit }),
	enumField(KeyScientificFloats, "Floats format", FloatsFormats, func(p *Profile) *FloatsFormat { return &p.FloatsFormat }),
	enumField(KeyPacking, "Data encoding", DataEncodings, func(p *Profile) *DataEncoding { return &p.DataEncoding }),
	enumField(KeyCompression, "Data compression", DataCompressions, func(p *Profile) *DataCompression { return &p.DataCompression }),
	boolField(KeyFollow, "Follow HTTP redirects", GroupMisc, true, func(p *Profile) *bool { return &p.FollowRedirects }),
	boolField(KeyApplyTZ, "Use local timezone", GroupMisc, false, func(p *Profile) *bool { return &p.ApplyLocalTimezone }),
	boolField(KeyAutoEscapePVA, "Auto-escape PVAs", GroupMisc, true, func(p *Profile) *bool { return &p.AutoEscapePVA }),
	boolField(KeyEarlyExecution, "Early query execution", GroupMisc, true, func(p *Profile) *bool { return &p.EarlyExecution }),
	boolField(KeyMultiFieldLenient, "Multi value field lenient", GroupMisc, true, func(p *Profile) *bool { return &p.MultiFieldLenient }),
	boolField(KeyIndexIncludeFrozen, "Include frozen indices", GroupMisc, false, func(p *Profile) *bool { return &p.IndexIncludeFrozen }),
}

// --- field constructors ---

func textField(key, label string, group Group, ref func(*Profile) *string) Field {
	return Field{
		Key: key, Label: label, Group: group, Control: ControlText,
		get: func(p *Profile) string { return *ref(p) },
		set: func(p *Profile, v string) error { *ref(p) = v; return nil },
	}
}

func secretField(key, label string, group Group, ref func(*Profile) *string) Field {
	f := textField(key, label, group, ref)
	f.Control = ControlSecret
	return f
}

// portField writes 0 as an empty value and reads an empty value as 0.
func portField(key, label string, group Group, def string, ref func(*Profile) *int) Field {
	return Field{
		Key: key, Label: label, Group: group, Control: ControlNumber, Default: def,
		get: func(p *Profile) string {
			if n := *ref(p); n != 0 {
				return strconv.Itoa(n)
			}
			return ""
		},
		set: func(p *Profile, v string) error {
			v = strings.TrimSpace(v)
			if v == "" {
				*ref(p) = 0
				return nil
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return invalidValue(key, v)
			}
			*ref(p) = n
			return nil
		},
	}
}

func intField(key, label, def string, ref func(*Profile) *int) Field {
	return Field{
		Key: key, Label: label, Group: GroupMisc, Control: ControlNumber, Default: def,
		get: func(p *Profile) string { return strconv.Itoa(*ref(p)) },
		set: func(p *Profile, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return invalidValue(key, v)
			}
			*ref(p) = n
			return nil
		},
	}
}

func boolField(key, label string, group Group, def bool, ref func(*Profile) *bool) Field {
	return Field{
		Key: key, Label: label, Group: group, Control: ControlCheck, Default: strconv.FormatBool(def),
		get: func(p *Profile) string { return strconv.FormatBool(*ref(p)) },
		set: func(p *Profile, v string) error { *ref(p) = ParseBool(v); return nil },
	}
}

func enumField[T ~string](key, label string, values []T, ref func(*Profile) *T) Field {
	return Field{
		Key: key, Label: label, Group: GroupMisc, Control: ControlChoice,
		Choices: enumStrings(values), Default: string(values[0]),
		get: func(p *Profile) string { return string(*ref(p)) },
		set: func(p *Profile, v string) error {
			for _, e := range values {
				if strings.EqualFold(string(e), strings.TrimSpace(v)) {
					*ref(p) = e
					return nil
				}
			}
			return invalidValue(key, v)
		},
	}
}

func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// ParseBool is false only for "no", "false" and "0" (any case).
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "no", "false", "0":
		return false
	default:
		return true
	}
}

func invalidValue(key, value string) error {
	return errs.Newf(errs.ErrKindInvalidInput, "invalid value %q for %s", value, key)
}
