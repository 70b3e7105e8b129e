package release

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/dsneditor/internal/errs"
)

// DriverName is the ODBC driver name the package registers.
const DriverName = "Elasticsearch Driver"

// Upgrade codes per platform. They must never change between releases.
var upgradeGUIDs = map[Arch]string{
	ArchX64: "e87c5d53-fddf-4539-9447-49032ed527bb",
	ArchX86: "ef6b65e0-20c3-43e3-a5e3-24e2ee8c84cb",
}

// vcRedistKeys is the registry key the VC++ 2017 runtime registers.
var vcRedistKeys = map[Arch]string{
	ArchX64: `SOFTWARE\WOW6432Node\Microsoft\VisualStudio\14.0\VC\Runtimes\x64`,
	ArchX86: `SOFTWARE\WOW6432Node\Microsoft\VisualStudio\14.0\VC\Runtimes\x86`,
}

// PlanOptions are the installer builder's inputs.
type PlanOptions struct {
	FullVersion string
	BuildsDir   string
	// ZipPath names the driver archive; its base name without extension is
	// the directory under BuildsDir holding the unpacked files.
	ZipPath string
	Arch    Arch
}

// Plan describes one MSI package.
type Plan struct {
	Name             string            `yaml:"name"`
	Description      string            `yaml:"description"`
	Platform         Arch              `yaml:"platform"`
	InstallScope     string            `yaml:"install_scope"`
	UpgradeGUID      string            `yaml:"upgrade_guid"`
	Version          *Version          `yaml:"version"`
	ProductVersion   string            `yaml:"product_version"`
	MSIVersion       string            `yaml:"msi_version"`
	OutFileName      string            `yaml:"out_file_name"`
	InstallDir       string            `yaml:"install_dir"`
	SourceDir        string            `yaml:"source_dir"`
	License          string            `yaml:"license"`
	Driver           DriverFile        `yaml:"driver"`
	Files            []string          `yaml:"files"`
	Properties       []Property        `yaml:"properties"`
	LaunchConditions []LaunchCondition `yaml:"launch_conditions"`
	MajorUpgrade     MajorUpgrade      `yaml:"major_upgrade"`
	ControlPanel     ControlPanel      `yaml:"control_panel"`
}

// DriverFile is the library registered as the ODBC driver.
type DriverFile struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

// Property is an installer property. A property with a RegistrySearch is
// filled in from the registry at install time.
type Property struct {
	Name           string          `yaml:"name"`
	Value          string          `yaml:"value,omitempty"`
	Ref            bool            `yaml:"ref,omitempty"`
	RegistrySearch *RegistrySearch `yaml:"registry_search,omitempty"`
}

type RegistrySearch struct {
	Hive  string `yaml:"hive"`
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
	Win64 bool   `yaml:"win64"`
}

// LaunchCondition aborts the install with Message when Condition is false.
type LaunchCondition struct {
	Condition string `yaml:"condition"`
	Message   string `yaml:"message"`
}

type MajorUpgrade struct {
	AllowDowngrades             bool   `yaml:"allow_downgrades"`
	AllowSameVersionUpgrades    bool   `yaml:"allow_same_version_upgrades"`
	Disallow                    bool   `yaml:"disallow"`
	DisallowUpgradeErrorMessage string `yaml:"disallow_upgrade_error_message"`
	DowngradeErrorMessage       string `yaml:"downgrade_error_message"`
}

type ControlPanel struct {
	Manufacturer string `yaml:"manufacturer"`
	AboutURL     string `yaml:"about_url"`
	HelpURL      string `yaml:"help_url"`
	Icon         string `yaml:"icon"`
}

// Messages shown by the package.
const (
	MsgRequiresWindows10 = "This installer requires at least Windows 10 or Windows Server 2016."
	MsgRequiresVCRedist  = "This installer requires the Visual C++ 2017 Redistributable. " +
		"Please install Visual C++ 2017 Redistributable and then run this installer again."
	MsgRequiresNetFx = "This installer requires at least .NET Framework 4.0 in order to run the configuration editor. " +
		"Please install .NET Framework 4.0 and then run this installer again."
	MsgDisallowUpgrade = "An existing version is already installed, please uninstall before continuing."
	MsgDowngrade       = "A more recent version is already installed, please uninstall before continuing."
)

// BuildPlan inspects the unpacked driver build and assembles the plan.
func BuildPlan(opts PlanOptions) (*Plan, error) {
	if opts.Arch == "" {
		opts.Arch = ArchX64
	}
	v, err := ParseVersion(opts.FullVersion, opts.Arch)
	if err != nil {
		return nil, err
	}

	zipDir := strings.TrimSuffix(filepath.Base(opts.ZipPath), filepath.Ext(opts.ZipPath))
	src := filepath.Join(opts.BuildsDir, zipDir)

	files, err := listFiles(src)
	if err != nil {
		return nil, err
	}
	dll, err := driverLibrary(files)
	if err != nil {
		return nil, err
	}
	license := filepath.Join(src, "LICENSE.rtf")
	if _, err := os.Stat(license); err != nil {
		return nil, errs.Wrap(errs.ErrKindFileNotFound, "LICENSE.rtf not found in "+src, err)
	}

	others := make([]string, 0, len(files))
	for _, f := range files {
		if f != dll {
			others = append(others, f)
		}
	}

	isX64 := opts.Arch == ArchX64
	msiVersion := v.MSIVersion()

	return &Plan{
		Name:           "Elasticsearch ODBC Driver",
		Description:    "ODBC Unicode driver for Elasticsearch (" + msiVersion + ") " + opts.Arch.Bitness(),
		Platform:       opts.Arch,
		InstallScope:   "perMachine",
		UpgradeGUID:    upgradeGUIDs[opts.Arch],
		Version:        v,
		ProductVersion: v.ProductVersion(),
		MSIVersion:     msiVersion,
		OutFileName:    "esodbc-" + v.Full,
		InstallDir:     `%ProgramFiles%\Elastic\ODBCDriver\` + msiVersion,
		SourceDir:      src,
		License:        license,
		Driver:         DriverFile{Name: DriverName, File: dll},
		Files:          others,
		Properties: []Property{
			{Name: "WIXUI_EXITDIALOGOPTIONALCHECKBOXTEXT", Value: "Launch ODBC Data Source Administrator after installation"},
			{Name: "WIXUI_EXITDIALOGOPTIONALCHECKBOX", Value: "1"},
			{Name: "WixShellExecTarget", Value: "odbcad32.exe"},
			{Name: "NETFRAMEWORK40FULL", Ref: true},
			{Name: "VS2017REDISTINSTALLED", RegistrySearch: &RegistrySearch{
				Hive:  "HKLM",
				Key:   vcRedistKeys[opts.Arch],
				Value: "Installed",
				Win64: isX64,
			}},
		},
		LaunchConditions: []LaunchCondition{
			{
				Condition: "Installed OR (NOT ((VersionNT64 = 1000 AND MsiNTProductType = 1) OR (VersionNT64 = 1000 AND MsiNTProductType <> 1)))",
				Message:   MsgRequiresWindows10,
			},
			{Condition: "Installed OR VS2017REDISTINSTALLED", Message: MsgRequiresVCRedist},
			{Condition: "Installed OR NETFRAMEWORK40FULL", Message: MsgRequiresNetFx},
		},
		MajorUpgrade: MajorUpgrade{
			Disallow:                    true,
			DisallowUpgradeErrorMessage: MsgDisallowUpgrade,
			DowngradeErrorMessage:       MsgDowngrade,
		},
		ControlPanel: ControlPanel{
			Manufacturer: "Elasticsearch B.V.",
			AboutURL:     "https://www.elastic.co/products/stack/elasticsearch-sql",
			HelpURL:      "https://discuss.elastic.co/c/elasticsearch",
			Icon:         "ODBC.ico",
		},
	}, nil
}

// WriteYAML encodes p.
func (p *Plan) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "failed to encode plan", err)
	}
	return enc.Close()
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrKindDirectoryNotFound, "driver build directory not found: "+dir, err)
		}
		return nil, errs.Wrap(errs.ErrKindUnknown, "failed to read "+dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// driverLibrary picks the driver DLL: the only DLL, or the only one whose
// name starts with "esodbc".
func driverLibrary(files []string) (string, error) {
	var dlls, named []string
	for _, f := range files {
		if !strings.EqualFold(filepath.Ext(f), ".dll") {
			continue
		}
		dlls = append(dlls, f)
		if strings.HasPrefix(strings.ToLower(f), "esodbc") {
			named = append(named, f)
		}
	}
	switch {
	case len(dlls) == 1:
		return dlls[0], nil
	case len(named) == 1:
		return named[0], nil
	case len(dlls) == 0:
		return "", errs.New(errs.ErrKindFileNotFound, "no driver DLL in the build directory")
	default:
		return "", errs.Newf(errs.ErrKindInvalidInput, "cannot tell the driver DLL apart: %s", strings.Join(dlls, ", "))
	}
}
