// Package validate checks a connection profile before it is saved or tested.
//
// The three file-system and naming checks are plain functions so that
// frontends can run them when the user picks a value (browse dialogs); Profile
// runs them together with the struct-tag rules declared on profile.Profile.
package validate

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"unicode/utf8"

	validator "github.com/go-playground/validator/v10"

	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/profile"
)

// MaxNameLength is the longest DSN name the driver manager accepts.
const MaxNameLength = 255

// User-facing messages.
const (
	MsgNameTooLong      = "Name must be less than 255 characters"
	MsgNameBackslash    = `Name cannot contain backslash \ characters`
	MsgCertificateFile  = "Certificate file invalid"
	MsgLogDirectory     = "Log directory invalid, path does not exist"
	MsgPortRange        = "Port must be between 1 and 65535"
	MsgProxyPortRange   = "Proxy port must be between 1 and 65535"
	MsgProxyHostMissing = "Proxy hostname is required when the proxy is enabled"
)

// Name checks a DSN name. The empty name passes.
func Name(name string) error {
	if utf8.RuneCountInString(name) > MaxNameLength {
		return errs.New(errs.ErrKindInvalidLength, MsgNameTooLong)
	}
	if strings.Contains(name, `\`) {
		return errs.New(errs.ErrKindInvalidCharacter, MsgNameBackslash)
	}
	return nil
}

// CertificateFile checks that path names an existing, non-empty regular
// file. The empty path passes.
func CertificateFile(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return errs.Wrap(errs.ErrKindFileNotFound, MsgCertificateFile, err)
	}
	if info.Size() == 0 {
		return errs.New(errs.ErrKindEmptyFile, MsgCertificateFile)
	}
	return nil
}

// LogDirectory checks that path names an existing directory. It always
// passes when logging is disabled or the path is empty.
func LogDirectory(path string, loggingEnabled bool) error {
	if !loggingEnabled || path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return errs.Wrap(errs.ErrKindDirectoryNotFound, MsgLogDirectory, err)
	}
	return nil
}

// --- profile validation ---

var checker = newChecker()

func newChecker() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Registration only fails on an empty tag or a nil func.
	_ = v.RegisterValidation("dsnname", func(fl validator.FieldLevel) bool {
		return Name(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("certfile", func(fl validator.FieldLevel) bool {
		return CertificateFile(fl.Field().String()) == nil
	})

	v.RegisterStructValidation(crossFieldRules, profile.Profile{})
	return v
}

func crossFieldRules(sl validator.StructLevel) {
	p := sl.Current().Interface().(profile.Profile)

	if p.CloudID == "" && p.Server != "" && (p.Port < 1 || p.Port > 65535) {
		sl.ReportError(p.Port, "port", "Port", "port_required", "")
	}
	if p.ProxyEnabled {
		if p.ProxyHost == "" {
			sl.ReportError(p.ProxyHost, "proxy_host", "ProxyHost", "proxy_host_required", "")
		}
		if p.ProxyPort < 1 || p.ProxyPort > 65535 {
			sl.ReportError(p.ProxyPort, "proxy_port", "ProxyPort", "proxy_port_required", "")
		}
	}
	if LogDirectory(p.LogDirectory, p.LoggingEnabled) != nil {
		sl.ReportError(p.LogDirectory, "log_directory", "LogDirectory", "logdir", "")
	}
}

// Profile validates every field of p and returns one error per failed rule,
// each carrying a user-facing message. A nil result means p can be saved.
func Profile(p *profile.Profile) []error {
	if p == nil {
		return []error{errs.New(errs.ErrKindInvalidInput, "no connection profile")}
	}
	err := checker.Struct(p)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []error{errs.Wrap(errs.ErrKindInvalidInput, "profile validation failed", err)}
	}

	out := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, fieldError(p, fe))
	}
	return out
}

// fieldError converts a validator failure into an *errs.Error.
func fieldError(p *profile.Profile, fe validator.FieldError) error {
	field := fe.Field()

	switch fe.Tag() {
	case "dsnname":
		return Name(p.Name)
	case "certfile":
		return CertificateFile(p.CertificatePath)
	case "logdir":
		return LogDirectory(p.LogDirectory, p.LoggingEnabled)
	case "port_required":
		return errs.New(errs.ErrKindInvalidInput, MsgPortRange)
	case "proxy_port_required":
		return errs.New(errs.ErrKindInvalidInput, MsgProxyPortRange)
	case "proxy_host_required":
		return errs.New(errs.ErrKindInvalidInput, MsgProxyHostMissing)
	case "min":
		return errs.Newf(errs.ErrKindInvalidInput, "%s must be at least %s (got: %v)", field, fe.Param(), fe.Value())
	case "max":
		return errs.Newf(errs.ErrKindInvalidInput, "%s must be at most %s (got: %v)", field, fe.Param(), fe.Value())
	case "oneof":
		return errs.Newf(errs.ErrKindInvalidInput, "%s must be one of: %s (got: %v)",
			field, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	default:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("%s validation failed: %s (got: %v)", field, fe.Tag(), fe.Value()))
	}
}

// Messages flattens errors into their user-facing messages.
func Messages(list []error) []string {
	out := make([]string, 0, len(list))
	for _, err := range list {
		out = append(out, errs.Message(err))
	}
	return out
}
