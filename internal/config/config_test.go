package config

import (
	"testing"

	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{EnvTarget, EnvPolicy, EnvTrace, EnvLogLevel, EnvJobs, EnvNoColor, "NO_COLOR"} {
		t.Setenv(name, "")
	}
	c := Load()
	assert.Equal(t, c.Target, "host")
	assert.Equal(t, c.Policy, "default")
	assert.Equal(t, c.Trace, false)
	assert.Equal(t, c.LogLevel, logrus.WarnLevel)
	assert.Check(t, c.Jobs >= 1)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(EnvTarget, "ppc64")
	t.Setenv(EnvPolicy, "ring")
	t.Setenv(EnvTrace, "1")
	t.Setenv(EnvLogLevel, "info")
	t.Setenv(EnvJobs, "3")
	c := Load()
	assert.Equal(t, c.Target, "ppc64")
	assert.Equal(t, c.Policy, "ring")
	assert.Equal(t, c.Trace, true)
	assert.Equal(t, c.LogLevel, logrus.DebugLevel)
	assert.Equal(t, c.Jobs, 3)
}

func TestLoadSeesLaterChanges(t *testing.T) {
	t.Setenv(EnvTarget, "aarch64")
	assert.Equal(t, Load().Target, "aarch64")
	t.Setenv(EnvTarget, "riscv64")
	t.Setenv(EnvNoColor, "1")
	c := Load()
	assert.Equal(t, c.Target, "riscv64")
	assert.Equal(t, c.NoColor, true)
}
