package security

import (
	"regexp"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/shared/testutil"
)

var hexFingerprint = regexp.MustCompile(`^[0-9a-f]{64}$`)

func baseProber() testutil.StaticProber {
	return testutil.StaticProber{
		CPU:     "Intel(R) Core(TM) i7-9700 CPU @ 3.00GHz",
		Host:    "muhasebe-pc",
		OS:      "windows",
		CPUArch: "amd64",
		GUID:    "6f1c2d3e-0000-4a5b-9c8d-112233445566",
	}
}

func TestFingerprintGenerator_KnownValue(t *testing.T) {
	g := NewFingerprintGenerator(baseProber())
	assert.Equal(t, "b8929923ce88651e688ddd7923f06b22f10f2675e45e7ff0bc71f27e99322d40", g.Compute())
}

func TestFingerprintGenerator_Deterministic(t *testing.T) {
	g := NewFingerprintGenerator(baseProber())

	first := g.Compute()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, g.Compute())
	}
	assert.Regexp(t, hexFingerprint, first)
}

func TestFingerprintGenerator_SensitiveToEachInput(t *testing.T) {
	base := NewFingerprintGenerator(baseProber()).Compute()

	tests := []struct {
		name   string
		mutate func(p *testutil.StaticProber)
	}{
		{"cpu model", func(p *testutil.StaticProber) { p.CPU = "AMD Ryzen 7 5800X" }},
		{"hostname", func(p *testutil.StaticProber) { p.Host = "muhasebe-pc2" }},
		{"platform", func(p *testutil.StaticProber) { p.OS = "linux" }},
		{"arch", func(p *testutil.StaticProber) { p.CPUArch = "arm64" }},
		{"machine guid", func(p *testutil.StaticProber) { p.GUID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseProber()
			tt.mutate(&p)
			assert.NotEqual(t, base, NewFingerprintGenerator(p).Compute())
		})
	}
}

func TestFingerprintGenerator_EmptyFieldsKeepPosition(t *testing.T) {
	allEmpty := NewFingerprintGenerator(testutil.StaticProber{}).Compute()
	assert.Equal(t, "45ca31c3315a5978f40438aab46040d75e99c9b125c2fd01db6e10ac80bef906", allEmpty)

	// "x" in the first slot must not collide with "x" in the second
	a := HashComponents(FingerprintComponents{CPUModel: "x"})
	b := HashComponents(FingerprintComponents{Hostname: "x"})
	assert.NotEqual(t, a, b)
}

func TestFingerprintGenerator_Components(t *testing.T) {
	c := NewFingerprintGenerator(baseProber()).Components()

	assert.Equal(t, "muhasebe-pc", c.Hostname)
	assert.Equal(t, "windows", c.Platform)
	assert.Equal(t, HashComponents(c), NewFingerprintGenerator(baseProber()).Compute())
}

func TestSystemProber(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	p := NewSystemProber(logger)

	assert.Equal(t, runtime.GOOS, p.Platform())
	assert.Equal(t, runtime.GOARCH, p.Arch())
	assert.Equal(t, p.Hostname(), p.Hostname())
	if runtime.GOOS != "windows" {
		assert.Empty(t, p.MachineGUID())
	}

	fp := ComputeFingerprint()
	assert.Regexp(t, hexFingerprint, fp)
	assert.Equal(t, fp, ComputeFingerprint())
}
