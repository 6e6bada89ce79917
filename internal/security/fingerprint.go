package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
)

// Prober isolates every operating-system query that feeds the fingerprint.
// Each method returns "" when the value cannot be determined.
type Prober interface {
	CPUModel() string
	Hostname() string
	Platform() string
	Arch() string
	MachineGUID() string
}

// SystemProber reads the host's real hardware and OS identifiers
type SystemProber struct {
	logger *slog.Logger
}

// NewSystemProber creates a prober for the current machine
func NewSystemProber(logger *slog.Logger) *SystemProber {
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemProber{logger: logger.With(slog.String("component", "fingerprint"))}
}

// CPUModel returns the model name of the first logical CPU
func (p *SystemProber) CPUModel() string {
	infos, err := cpu.Info()
	if err != nil || len(infos) == 0 {
		if err != nil {
			p.logger.Debug("cpu model unavailable", slog.String("error", err.Error()))
		}
		return ""
	}
	return strings.TrimSpace(infos[0].ModelName)
}

// Hostname returns the machine hostname, lowercased and trimmed
func (p *SystemProber) Hostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		p.logger.Debug("hostname unavailable", slog.String("error", err.Error()))
		return ""
	}
	return strings.ToLower(strings.TrimSpace(hostname))
}

// Platform returns the operating system tag
func (p *SystemProber) Platform() string {
	return runtime.GOOS
}

// Arch returns the CPU architecture tag
func (p *SystemProber) Arch() string {
	return runtime.GOARCH
}

// MachineGUID returns the OS installation GUID. Only Windows has one; see
// machineGUID in the platform files.
func (p *SystemProber) MachineGUID() string {
	guid, err := machineGUID()
	if err != nil {
		p.logger.Debug("machine guid unavailable", slog.String("error", err.Error()))
		return ""
	}
	return guid
}

// FingerprintComponents are the raw inputs of a fingerprint, in hash order
type FingerprintComponents struct {
	CPUModel    string `json:"cpuModel"`
	Hostname    string `json:"hostname"`
	Platform    string `json:"platform"`
	Arch        string `json:"arch"`
	MachineGUID string `json:"machineGuid"`
}

func (c FingerprintComponents) factors() []string {
	return []string{c.CPUModel, c.Hostname, c.Platform, c.Arch, c.MachineGUID}
}

// FingerprintGenerator derives the hardware identifier used to bind
// licenses and trial records to one machine. Results are not cached.
type FingerprintGenerator struct {
	prober Prober
}

// NewFingerprintGenerator creates a generator over the given prober
func NewFingerprintGenerator(prober Prober) *FingerprintGenerator {
	return &FingerprintGenerator{prober: prober}
}

// Components probes the machine once and returns the raw inputs
func (g *FingerprintGenerator) Components() FingerprintComponents {
	return FingerprintComponents{
		CPUModel:    g.prober.CPUModel(),
		Hostname:    g.prober.Hostname(),
		Platform:    g.prober.Platform(),
		Arch:        g.prober.Arch(),
		MachineGUID: g.prober.MachineGUID(),
	}
}

// Compute returns the 64-char lowercase hex SHA-256 of the components
// joined with "|". Empty components keep their position. Never fails.
func (g *FingerprintGenerator) Compute() string {
	return HashComponents(g.Components())
}

// HashComponents hashes already-probed components
func HashComponents(c FingerprintComponents) string {
	sum := sha256.Sum256([]byte(strings.Join(c.factors(), "|")))
	return hex.EncodeToString(sum[:])
}

// ComputeFingerprint fingerprints the current machine
func ComputeFingerprint() string {
	return NewFingerprintGenerator(NewSystemProber(nil)).Compute()
}
