package profile

import (
	"strings"
	"testing"

	"github.com/koustreak/dsneditor/internal/connstr"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip_Defaults(t *testing.T) {
	want := Default()

	got, err := Decode(Encode(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecode_EmptyStringGivesDefaults(t *testing.T) {
	got, err := Decode("")
	require.NoError(t, err)
	assert.Equal(t, Default(), got)
}

func TestDecode_Defaults(t *testing.T) {
	p, err := Decode("")
	require.NoError(t, err)

	assert.Equal(t, 9200, p.Port)
	assert.Equal(t, TLSNoValidation, p.TLSPolicy)
	assert.Equal(t, ProxyHTTP, p.ProxyType)
	assert.Equal(t, LogDebug, p.LogLevel)
	assert.False(t, p.LoggingEnabled)
	assert.Equal(t, 0, p.RequestTimeout)
	assert.Equal(t, 1000, p.MaxFetchRows)
	assert.Equal(t, 100, p.MaxBodySizeMB)
	assert.Equal(t, 0, p.VarcharLimit)
	assert.Equal(t, FloatsDefault, p.FloatsFormat)
	assert.Equal(t, EncodingCBOR, p.DataEncoding)
	assert.Equal(t, CompressionAuto, p.DataCompression)
	assert.True(t, p.FollowRedirects)
	assert.False(t, p.ApplyLocalTimezone)
	assert.True(t, p.AutoEscapePVA)
	assert.True(t, p.EarlyExecution)
	assert.True(t, p.MultiFieldLenient)
	assert.False(t, p.IndexIncludeFrozen)
}

func TestDecode_CloudIDBraces(t *testing.T) {
	p, err := Decode("cloudid={abc}")
	require.NoError(t, err)
	assert.Equal(t, "abc", p.CloudID)

	out := Encode(p)
	assert.Contains(t, out, "cloudid={abc}")
}

func TestEncode_EmptyCloudIDIsBraced(t *testing.T) {
	assert.Contains(t, Encode(Default()), "cloudid={}")
}

func TestEncode_CloudIDDropsServerAndSecure(t *testing.T) {
	p := Default()
	p.Server = "localhost"
	p.CloudID = "name:abc"
	p.TLSPolicy = TLSFull

	attrs, err := connstr.Parse(Encode(p))
	require.NoError(t, err)

	assert.False(t, attrs.Has(KeySecure))
	server, _ := attrs.Get(KeyServer)
	port, _ := attrs.Get(KeyPort)
	assert.Empty(t, server)
	assert.Empty(t, port)
}

func TestDecode_ValueConversions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, p *Profile)
	}{
		{
			name:  "hostname alias",
			input: "hostname=localhost",
			check: func(t *testing.T, p *Profile) { assert.Equal(t, "localhost", p.Server) },
		},
		{
			name:  "server wins over hostname",
			input: "hostname=a;server=b",
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, "b", p.Server)
				assert.Empty(t, p.Extra)
			},
		},
		{
			name:  "keywords are case-insensitive",
			input: "SERVER=es;PORT=9201;uId=elastic",
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, "es", p.Server)
				assert.Equal(t, 9201, p.Port)
				assert.Equal(t, "elastic", p.Username)
			},
		},
		{
			name:  "malformed numbers keep defaults",
			input: "port=abc;MaxFetchSize=lots;Timeout=30",
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, 9200, p.Port)
				assert.Equal(t, 1000, p.MaxFetchRows)
				assert.Equal(t, 30, p.RequestTimeout)
			},
		},
		{
			name:  "empty port clears it",
			input: "port=",
			check: func(t *testing.T, p *Profile) { assert.Equal(t, 0, p.Port) },
		},
		{
			name:  "secure out of range keeps default",
			input: "secure=9",
			check: func(t *testing.T, p *Profile) { assert.Equal(t, TLSNoValidation, p.TLSPolicy) },
		},
		{
			name:  "secure levels",
			input: "secure=4",
			check: func(t *testing.T, p *Profile) { assert.Equal(t, TLSFull, p.TLSPolicy) },
		},
		{
			name:  "booleans false only for no false 0",
			input: "Follow=No;ApplyTZ=yes;AutoEscapePVA=0;EarlyExecution=FALSE;IndexIncludeFrozen=1;ProxyEnabled=on",
			check: func(t *testing.T, p *Profile) {
				assert.False(t, p.FollowRedirects)
				assert.True(t, p.ApplyLocalTimezone)
				assert.False(t, p.AutoEscapePVA)
				assert.False(t, p.EarlyExecution)
				assert.True(t, p.IndexIncludeFrozen)
				assert.True(t, p.ProxyEnabled)
			},
		},
		{
			name:  "traceenabled numeric",
			input: "traceenabled=2;tracelevel=warn",
			check: func(t *testing.T, p *Profile) {
				assert.True(t, p.LoggingEnabled)
				assert.Equal(t, LogWarn, p.LogLevel)
			},
		},
		{
			name:  "unknown enums keep defaults",
			input: "Packing=XML;Compression=maybe;ScientificFloats=Auto;ProxyType=socks5h",
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, EncodingCBOR, p.DataEncoding)
				assert.Equal(t, CompressionAuto, p.DataCompression)
				assert.Equal(t, FloatsAuto, p.FloatsFormat)
				assert.Equal(t, ProxySOCKS5h, p.ProxyType)
			},
		},
		{
			name:  "unknown keywords preserved in order",
			input: "Driver={Elasticsearch Driver};server=x;Foo=bar",
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, []connstr.Pair{
					{Key: "Driver", Value: "Elasticsearch Driver", Braced: true},
					{Key: "Foo", Value: "bar"},
				}, p.Extra)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(tt.input)
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestDecode_MalformedString(t *testing.T) {
	_, err := Decode("server={localhost")
	require.Error(t, err)
	assert.True(t, errs.IsParseFailed(err))
}

func TestEncode_Format(t *testing.T) {
	p := Default()
	p.Name = "Local ES"
	p.Username = "  elastic "
	p.Server = "localhost"
	p.LoggingEnabled = true
	p.Extra = []connstr.Pair{{Key: "Driver", Value: "Elasticsearch Driver"}}

	out := Encode(p)

	assert.True(t, strings.HasPrefix(out, "Driver={Elasticsearch Driver};dsn={Local ES};"), out)
	assert.Contains(t, out, ";uid=elastic;")
	assert.Contains(t, out, ";server=localhost;port=9200;secure=1;")
	assert.Contains(t, out, ";traceenabled=1;")
	assert.Contains(t, out, ";Follow=true;ApplyTZ=false;")
	assert.Contains(t, out, ";ProxyPort=;")
}

func TestEncode_ExtraCannotShadowSchema(t *testing.T) {
	p := Default()
	p.Server = "real"
	p.Extra = []connstr.Pair{{Key: "SERVER", Value: "shadow"}}

	attrs, err := connstr.Parse(Encode(p))
	require.NoError(t, err)
	server, _ := attrs.Get(KeyServer)
	assert.Equal(t, "real", server)
}

func TestRoundTrip_EditedProfile(t *testing.T) {
	p := Default()
	p.Name = "prod"
	p.Description = "Reporting; read only"
	p.Server = "es.internal"
	p.Port = 9243
	p.Username = "reporter"
	p.Password = "p=a;ss"
	p.TLSPolicy = TLSFull
	p.ProxyEnabled = true
	p.ProxyType = ProxySOCKS5
	p.ProxyHost = "proxy"
	p.ProxyPort = 1080
	p.LogLevel = LogError
	p.VarcharLimit = 256
	p.Extra = []connstr.Pair{{Key: "Driver", Value: "Elasticsearch Driver", Braced: true}}

	got, err := Decode(Encode(p))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestApplyCloudID(t *testing.T) {
	p := Default()
	p.Server = "localhost"
	assert.False(t, p.ApplyCloudID())
	assert.Equal(t, "localhost", p.Server)

	p.CloudID = "abc"
	assert.True(t, p.ApplyCloudID())
	assert.Empty(t, p.Server)
	assert.Zero(t, p.Port)
}

func TestComputeEnablement_CloudID(t *testing.T) {
	p := Default()
	p.Server = "localhost"

	e := ComputeEnablement(p, ModeEdit)
	assert.True(t, e.Server)
	assert.True(t, e.Port)
	assert.True(t, e.TLS)
	assert.False(t, e.CloudID, "cloud id locked while a server is typed")

	p.CloudID = "abc"
	p.ApplyCloudID()
	e = ComputeEnablement(p, ModeEdit)
	assert.Empty(t, p.Server)
	assert.Zero(t, p.Port)
	assert.False(t, e.Server)
	assert.False(t, e.Port)
	assert.False(t, e.TLS)
	assert.False(t, e.Certificate)
	assert.True(t, e.CloudID)

	p.CloudID = ""
	e = ComputeEnablement(p, ModeEdit)
	assert.True(t, e.Server)
	assert.True(t, e.Port)
	assert.True(t, e.TLS)
	assert.True(t, e.Certificate)
}

func TestComputeEnablement_Actions(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		dsn      string
		server   string
		cloudID  string
		wantSave bool
		wantTest bool
	}{
		{"edit without endpoint", ModeEdit, "n", "", "", false, false},
		{"edit without name", ModeEdit, "", "h", "", false, true},
		{"edit with name and server", ModeEdit, "n", "h", "", true, true},
		{"edit with name and cloud id", ModeEdit, "n", "", "c", true, true},
		{"connect without name", ModeConnect, "", "h", "", true, true},
		{"connect without endpoint", ModeConnect, "n", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			p.Name, p.Server, p.CloudID = tt.dsn, tt.server, tt.cloudID

			e := ComputeEnablement(p, tt.mode)
			assert.Equal(t, tt.wantSave, e.Save)
			assert.Equal(t, tt.wantTest, e.Test)
		})
	}
}

func TestComputeEnablement_Groups(t *testing.T) {
	p := Default()
	e := ComputeEnablement(p, ModeConnect)
	assert.False(t, e.Name)
	assert.False(t, e.Description)
	assert.False(t, e.LogDirectory)
	assert.False(t, e.ProxyHost)
	assert.False(t, e.ProxyUsername)

	p.LoggingEnabled = true
	p.ProxyEnabled = true
	e = ComputeEnablement(p, ModeEdit)
	assert.True(t, e.Name)
	assert.True(t, e.LogDirectory)
	assert.True(t, e.LogLevel)
	assert.True(t, e.ProxyHost)
	assert.True(t, e.ProxyAuth)
	assert.False(t, e.ProxyUsername)

	p.ProxyAuthEnabled = true
	e = ComputeEnablement(p, ModeEdit)
	assert.True(t, e.ProxyUsername)
	assert.True(t, e.ProxyPassword)

	p.ProxyEnabled = false
	e = ComputeEnablement(p, ModeEdit)
	assert.False(t, e.ProxyPassword)
	assert.False(t, e.Field(KeyProxyAuthUID))
	assert.True(t, e.Field(KeyTimeout))
	assert.True(t, e.Field("Driver"))
}

func TestDefaultProxyPort(t *testing.T) {
	assert.Equal(t, 8080, DefaultProxyPort(ProxyHTTP))
	assert.Equal(t, 443, DefaultProxyPort(ProxyHTTPS))
	for _, pt := range []ProxyType{ProxySOCKS4, ProxySOCKS4a, ProxySOCKS5, ProxySOCKS5h} {
		assert.Equal(t, 1080, DefaultProxyPort(pt), pt)
	}
	assert.Zero(t, DefaultProxyPort("FTP"))
}

func TestFieldSet_RejectsMalformed(t *testing.T) {
	p := Default()
	f, ok := Lookup("PORT")
	require.True(t, ok)

	err := f.Set(p, "ninety")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
	assert.Equal(t, 9200, p.Port)
}

func TestSchema_KeysUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, f := range Schema {
		k := strings.ToLower(f.Key)
		assert.False(t, seen[k], "duplicate keyword %s", f.Key)
		seen[k] = true
	}
}
