package profile

// Mode selects between editing a stored DSN and completing a connect request.
type Mode int

const (
	// ModeEdit edits a User/System DSN: a name is required to save.
	ModeEdit Mode = iota
	// ModeConnect serves a connect request: the action button reads
	// "Connect" and the name is not asked for.
	ModeConnect
)

func (m Mode) String() string {
	if m == ModeConnect {
		return "connect"
	}
	return "edit"
}

// SaveLabel is the caption of the accepting action in mode m.
func (m Mode) SaveLabel() string {
	if m == ModeConnect {
		return "Connect"
	}
	return "Save"
}

// Enablement is the set of controls a frontend should offer for input.
type Enablement struct {
	Name        bool `json:"name"`
	Description bool `json:"description"`

	Server  bool `json:"server"`
	Port    bool `json:"port"`
	CloudID bool `json:"cloud_id"`

	TLS         bool `json:"tls"`
	Certificate bool `json:"certificate"`

	LogDirectory bool `json:"log_directory"`
	LogLevel     bool `json:"log_level"`

	ProxyType     bool `json:"proxy_type"`
	ProxyHost     bool `json:"proxy_host"`
	ProxyPort     bool `json:"proxy_port"`
	ProxyAuth     bool `json:"proxy_auth"`
	ProxyUsername bool `json:"proxy_username"`
	ProxyPassword bool `json:"proxy_password"`

	Save bool `json:"save"`
	Test bool `json:"test"`
}

// ComputeEnablement derives the control state from p. It does not modify p;
// clearing the server and port for a Cloud ID is Profile.ApplyCloudID.
func ComputeEnablement(p *Profile, mode Mode) Enablement {
	cloud := p.CloudID != ""
	endpoint := p.HasEndpoint()
	proxy := p.ProxyEnabled

	e := Enablement{
		Name:        mode != ModeConnect,
		Description: mode != ModeConnect,

		Server:  !cloud,
		Port:    !cloud,
		CloudID: p.Server == "",

		TLS:         !cloud,
		Certificate: !cloud,

		LogDirectory: p.LoggingEnabled,
		LogLevel:     p.LoggingEnabled,

		ProxyType:     proxy,
		ProxyHost:     proxy,
		ProxyPort:     proxy,
		ProxyAuth:     proxy,
		ProxyUsername: proxy && p.ProxyAuthEnabled,
		ProxyPassword: proxy && p.ProxyAuthEnabled,

		Test: endpoint,
	}

	if mode == ModeConnect {
		e.Save = endpoint
	} else {
		e.Save = p.Name != "" && endpoint
	}
	return e
}

// Field reports whether the control bound to keyword key is enabled.
// Keywords without an enablement rule are always enabled.
func (e Enablement) Field(key string) bool {
	f, ok := Lookup(key)
	if !ok {
		return true
	}
	switch f.Key {
	case KeyDSN:
		return e.Name
	case KeyDescription:
		return e.Description
	case KeyServer:
		return e.Server
	case KeyPort:
		return e.Port
	case KeyCloudID:
		return e.CloudID
	case KeySecure:
		return e.TLS
	case KeyCAPath:
		return e.Certificate
	case KeyTraceFile:
		return e.LogDirectory
	case KeyTraceLevel:
		return e.LogLevel
	case KeyProxyType:
		return e.ProxyType
	case KeyProxyHost:
		return e.ProxyHost
	case KeyProxyPort:
		return e.ProxyPort
	case KeyProxyAuthEnabled:
		return e.ProxyAuth
	case KeyProxyAuthUID:
		return e.ProxyUsername
	case KeyProxyAuthPWD:
		return e.ProxyPassword
	default:
		return true
	}
}
