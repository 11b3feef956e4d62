// Completion: 100% - Environment configuration complete
package config

import (
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/xyproto/env/v2"
)

// Environment variables read by the tool
const (
	EnvTarget   = "REGALLOC_TARGET"
	EnvPolicy   = "REGALLOC_POLICY"
	EnvTrace    = "REGALLOC_TRACE"
	EnvLogLevel = "REGALLOC_LOG_LEVEL"
	EnvJobs     = "REGALLOC_JOBS"
	EnvNoColor  = "REGALLOC_NO_COLOR"
)

// Config holds the settings flags start from
type Config struct {
	Target   string
	Policy   string
	Trace    bool
	LogLevel logrus.Level
	Jobs     int
	NoColor  bool
}

// Load reads the environment again, so values set after startup are seen
func Load() Config {
	env.Load()
	c := Config{
		Target:  env.Str(EnvTarget, "host"),
		Policy:  env.Str(EnvPolicy, "default"),
		Trace:   env.Bool(EnvTrace),
		Jobs:    env.Int(EnvJobs, runtime.NumCPU()),
		NoColor: env.Bool(EnvNoColor) || env.Has("NO_COLOR"),
	}
	if c.Jobs < 1 {
		c.Jobs = 1
	}
	c.LogLevel = logrus.WarnLevel
	if lvl, err := logrus.ParseLevel(env.Str(EnvLogLevel, "warning")); err == nil {
		c.LogLevel = lvl
	}
	if c.Trace && c.LogLevel < logrus.DebugLevel {
		c.LogLevel = logrus.DebugLevel
	}
	return c
}
