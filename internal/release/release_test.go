package release

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/dsneditor/internal/errs"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		full     string
		arch     Arch
		release  string
		snapshot bool
		pre      string
		docs     string
		product  string
		msi      string
	}{
		{
			full: "8.13.0-windows-x86_64", arch: ArchX64, release: "8.13.0",
			docs:    "https://www.elastic.co/guide/en/elasticsearch/sql-odbc/8.13/index.html",
			product: "8.13.0.0", msi: "8.13.0.0",
		},
		{
			full: "7.10.0-SNAPSHOT-windows-x86", arch: ArchX86, release: "7.10.0", snapshot: true,
			docs:    "https://www.elastic.co/guide/en/elasticsearch/sql-odbc/7.10/index.html",
			product: "7.10.0.0", msi: "7.10.0.0",
		},
		{
			full: "8.13.0-SNAPSHOT-SNAPSHOT-windows-x86_64-windows-x86_64", arch: ArchX64, release: "8.13.0", snapshot: true,
			docs:    "https://www.elastic.co/guide/en/elasticsearch/sql-odbc/8.13/index.html",
			product: "8.13.0.0", msi: "8.13.0.0",
		},
		{
			full: "8.0.0", arch: ArchX64, release: "8.0.0",
			docs:    "https://www.elastic.co/guide/en/elasticsearch/sql-odbc/8/index.html",
			product: "8.0.0.0", msi: "8.0.0.0",
		},
		{
			full: "8.14.1-beta1-SNAPSHOT-windows-x86_64", arch: ArchX64, release: "8.14.1-beta1", snapshot: true, pre: "-beta1",
			docs:    "https://www.elastic.co/guide/en/elasticsearch/sql-odbc/index.html",
			product: "8.14.1.0", msi: "8.14.1.0-beta1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.full, func(t *testing.T) {
			v, err := ParseVersion(tt.full, tt.arch)
			require.NoError(t, err)
			assert.Equal(t, tt.full, v.Full)
			assert.Equal(t, tt.release, v.Release)
			assert.Equal(t, tt.snapshot, v.Snapshot)
			assert.Equal(t, tt.pre, v.PreRelease)
			assert.Equal(t, tt.docs, v.DocumentationURL)
			assert.Equal(t, tt.product, v.ProductVersion())
			assert.Equal(t, tt.msi, v.MSIVersion())
		})
	}
}

func TestParseVersion_Errors(t *testing.T) {
	// an x64 platform suffix is not stripped for an x86 build
	for _, full := range []string{"", "8.1.0-alpha-beta", "eight", "8.1.0-windows-x86_64"} {
		t.Run(full, func(t *testing.T) {
			_, err := ParseVersion(full, ArchX86)
			assert.True(t, errs.IsInvalidInput(err))
		})
	}
}

func TestParseArch(t *testing.T) {
	a, err := ParseArch("amd64")
	require.NoError(t, err)
	assert.Equal(t, ArchX64, a)
	a, err = ParseArch("386")
	require.NoError(t, err)
	assert.Equal(t, ArchX86, a)
	_, err = ParseArch("arm")
	assert.True(t, errs.IsInvalidInput(err))
}

func writeBuild(t *testing.T, files ...string) (string, string) {
	t.Helper()
	builds := t.TempDir()
	dir := filepath.Join(builds, "esodbc-8.13.0-windows-x86_64")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644))
	}
	return builds, "/downloads/esodbc-8.13.0-windows-x86_64.zip"
}

func TestBuildPlan(t *testing.T) {
	builds, zip := writeBuild(t, "esodbcu8w.dll", "dsneditor.dll", "LICENSE.rtf", "README.txt")

	p, err := BuildPlan(PlanOptions{FullVersion: "8.13.0-windows-x86_64", BuildsDir: builds, ZipPath: zip, Arch: ArchX64})
	require.NoError(t, err)

	assert.Equal(t, "esodbcu8w.dll", p.Driver.File)
	assert.Equal(t, DriverName, p.Driver.Name)
	assert.Equal(t, []string{"LICENSE.rtf", "README.txt", "dsneditor.dll"}, p.Files)
	assert.Equal(t, "e87c5d53-fddf-4539-9447-49032ed527bb", p.UpgradeGUID)
	assert.Equal(t, `%ProgramFiles%\Elastic\ODBCDriver\8.13.0.0`, p.InstallDir)
	assert.Equal(t, "esodbc-8.13.0-windows-x86_64", p.OutFileName)
	assert.Equal(t, "ODBC Unicode driver for Elasticsearch (8.13.0.0) 64bit", p.Description)
	require.Len(t, p.LaunchConditions, 3)
	assert.Equal(t, MsgRequiresVCRedist, p.LaunchConditions[1].Message)
	assert.True(t, p.MajorUpgrade.Disallow)

	var buf bytes.Buffer
	require.NoError(t, p.WriteYAML(&buf))
	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "8.13.0.0", decoded["msi_version"])
	assert.Contains(t, buf.String(), "documentation_url: https://www.elastic.co/guide/en/elasticsearch/sql-odbc/8.13/index.html")
}

func TestBuildPlan_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		kind  errs.ErrKind
	}{
		{"no dll", []string{"LICENSE.rtf"}, errs.ErrKindFileNotFound},
		{"ambiguous dll", []string{"a.dll", "b.dll", "LICENSE.rtf"}, errs.ErrKindInvalidInput},
		{"no license", []string{"esodbc.dll"}, errs.ErrKindFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builds, zip := writeBuild(t, tt.files...)
			_, err := BuildPlan(PlanOptions{FullVersion: "8.13.0", BuildsDir: builds, ZipPath: zip})
			assert.Equal(t, tt.kind, errs.KindOf(err))
		})
	}

	_, err := BuildPlan(PlanOptions{FullVersion: "8.13.0", BuildsDir: t.TempDir(), ZipPath: "missing.zip"})
	assert.Equal(t, errs.ErrKindDirectoryNotFound, errs.KindOf(err))
}
