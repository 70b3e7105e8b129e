// Package release turns a driver build into an installer plan: the version
// strings the package is labelled with, and a declarative description of
// what the MSI contains and requires.
package release

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/koustreak/dsneditor/internal/errs"
)

// Arch is the target platform of a package.
type Arch string

const (
	ArchX64 Arch = "x64"
	ArchX86 Arch = "x86"
)

// Bitness returns "64bit" or "32bit".
func (a Arch) Bitness() string {
	if a == ArchX64 {
		return "64bit"
	}
	return "32bit"
}

// platformSuffix is the platform component build tooling appends to the
// version.
func (a Arch) platformSuffix() string {
	if a == ArchX64 {
		return "-windows-x86_64"
	}
	return "-windows-x86"
}

// ParseArch accepts x64/amd64/x86_64 and x86/386/i386.
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x64", "amd64", "x86_64", "64", "64bit":
		return ArchX64, nil
	case "x86", "386", "i386", "32", "32bit":
		return ArchX86, nil
	}
	return "", errs.Newf(errs.ErrKindInvalidInput, "unknown architecture %q", s)
}

const (
	snapshotSuffix = "-SNAPSHOT"
	docsIndex      = "https://www.elastic.co/guide/en/elasticsearch/sql-odbc/index.html"
	docsVersioned  = "https://www.elastic.co/guide/en/elasticsearch/sql-odbc/%s/index.html"
)

// Version is a parsed release version string such as
// "8.13.0-windows-x86_64" or "8.14.0-beta1-SNAPSHOT-windows-x86".
type Version struct {
	// Full is the string as given; it names the output file.
	Full string `yaml:"full"`
	// Release is Full without the platform and snapshot components.
	Release  string `yaml:"release"`
	Snapshot bool   `yaml:"snapshot"`
	// PreRelease is "-beta1" style, or empty.
	PreRelease string `yaml:"pre_release,omitempty"`
	// Core is the numeric part, at least major.minor.patch.
	Core *version.Version `yaml:"-"`
	// DocumentationURL points at the versioned guide for GA releases and at
	// the unversioned index otherwise.
	DocumentationURL string `yaml:"documentation_url"`
}

// ParseVersion parses full for the given architecture.
func ParseVersion(full string, arch Arch) (*Version, error) {
	if strings.TrimSpace(full) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "version string is empty")
	}

	v := &Version{Full: full}
	rel := strings.ReplaceAll(full, arch.platformSuffix(), "")
	if strings.Contains(rel, snapshotSuffix) {
		v.Snapshot = true
		rel = strings.ReplaceAll(rel, snapshotSuffix, "")
	}

	core := rel
	if strings.Contains(rel, "-") {
		parts := strings.Split(rel, "-")
		if len(parts) > 2 {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "unexpected version string: %s", full)
		}
		core = parts[0]
		v.PreRelease = "-" + parts[1]
	}
	v.Release = rel

	parsed, err := version.NewVersion(core)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "unexpected version string: "+full, err)
	}
	v.Core = parsed

	v.DocumentationURL = docsIndex
	if v.PreRelease == "" {
		v.DocumentationURL = fmt.Sprintf(docsVersioned, docsVersion(core))
	}
	return v, nil
}

// ProductVersion is the four-part numeric version Windows Installer
// compares, e.g. "8.13.0.0".
func (v *Version) ProductVersion() string {
	seg := v.Core.Segments()
	for len(seg) < 4 {
		seg = append(seg, 0)
	}
	parts := make([]string, 4)
	for i := range parts {
		parts[i] = strconv.Itoa(seg[i])
	}
	return strings.Join(parts, ".")
}

// MSIVersion is the product version with the pre-release tag appended.
func (v *Version) MSIVersion() string {
	return v.ProductVersion() + v.PreRelease
}

// docsVersion drops trailing ".0" components: 7.10.0 -> 7.10, 8.0.0 -> 8.
func docsVersion(core string) string {
	parts := strings.Split(core, ".")
	for len(parts) > 1 && parts[len(parts)-1] == "0" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}
