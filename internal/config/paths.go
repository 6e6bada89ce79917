package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the file locations of one installation. The host reads
// the license and trial files from here; the issuer keeps its data next to
// its executable.
type Paths struct {
	ExecutableDir string
	AppDataDir    string
	LogsDir       string

	// Installed license: primary location first, then the legacy
	// location next to the executable.
	LicenseFile       string
	LegacyLicenseFile string

	// Co-located verification key, preferred over the built-in one
	PublicKeyFile string

	TrialFile       string
	TrialMirrorFile string

	IssuerDataDir string
}

// GetPaths resolves paths for the running executable and the current user.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user config dir: %w", err)
	}

	// The mirror lives outside the app data dir so removing that
	// directory alone does not reset the trial.
	mirrorBase, err := os.UserCacheDir()
	if err != nil {
		mirrorBase = configDir
	}

	return ResolvePaths(filepath.Dir(exe), filepath.Join(configDir, AppDirName), filepath.Join(mirrorBase, AppDirName)), nil
}

// ResolvePaths lays out every path from the three base directories
func ResolvePaths(exeDir, appDataDir, mirrorDir string) *Paths {
	return &Paths{
		ExecutableDir:     exeDir,
		AppDataDir:        appDataDir,
		LogsDir:           filepath.Join(appDataDir, "logs"),
		LicenseFile:       filepath.Join(appDataDir, LicenseFileName),
		LegacyLicenseFile: filepath.Join(exeDir, LicenseFileName),
		PublicKeyFile:     filepath.Join(exeDir, PublicKeyFileName),
		TrialFile:         filepath.Join(appDataDir, TrialFileName),
		TrialMirrorFile:   filepath.Join(mirrorDir, TrialMirrorFileName),
		IssuerDataDir:     filepath.Join(exeDir, DefaultIssuerDir),
	}
}

// HostPaths resolves the host paths and applies the Host overrides in c
func (c *Config) HostPaths() (*Paths, error) {
	paths, err := GetPaths()
	if err != nil {
		return nil, err
	}
	return c.applyHostOverrides(paths), nil
}

func (c *Config) applyHostOverrides(p *Paths) *Paths {
	if dir := c.Host.AppDataDir; dir != "" {
		mirror := filepath.Dir(p.TrialMirrorFile)
		if c.Host.MirrorDir != "" {
			mirror = c.Host.MirrorDir
		}
		resolved := *ResolvePaths(p.ExecutableDir, dir, mirror)
		resolved.PublicKeyFile = p.PublicKeyFile
		*p = resolved
	} else if c.Host.MirrorDir != "" {
		p.TrialMirrorFile = filepath.Join(c.Host.MirrorDir, TrialMirrorFileName)
	}
	if c.Host.PublicKeyPath != "" {
		p.PublicKeyFile = c.Host.PublicKeyPath
	}
	return p
}

// IssuerDataDir returns the configured issuer data directory, defaulting to
// a directory next to the executable.
func (c *Config) IssuerDataDir() (string, error) {
	if c.Issuer.DataDir != "" {
		return filepath.Abs(c.Issuer.DataDir)
	}
	paths, err := GetPaths()
	if err != nil {
		return "", err
	}
	return paths.IssuerDataDir, nil
}

// LicenseCandidates lists where an installed license is looked for, in order
func (p *Paths) LicenseCandidates() []string {
	return []string{p.LicenseFile, p.LegacyLicenseFile}
}

// ExecutableRelative returns a path relative to the executable directory
func (p *Paths) ExecutableRelative(subpath string) string {
	return filepath.Join(p.ExecutableDir, subpath)
}

// EnsureDirectories creates the per-user directories
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.AppDataDir,
		p.LogsDir,
		filepath.Dir(p.TrialMirrorFile),
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LogPathResolution logs the resolved paths at debug level
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("app_data", p.AppDataDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("license",
			slog.String("primary", p.LicenseFile),
			slog.String("legacy", p.LegacyLicenseFile),
			slog.String("public_key", p.PublicKeyFile),
		),
		slog.Group("trial",
			slog.String("primary", p.TrialFile),
			slog.String("mirror", p.TrialMirrorFile),
		))
}
