package config

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLogLevel(t *testing.T) {
	tt := map[string]logrus.Level{
		"debug":  logrus.DebugLevel,
		"info":   logrus.InfoLevel,
		"warn":   logrus.WarnLevel,
		"error":  logrus.ErrorLevel,
		"fatal":  logrus.FatalLevel,
		"panic":  logrus.PanicLevel,
		"chatty": logrus.DebugLevel,
		"":       logrus.DebugLevel,
	}

	for in, exp := range tt {
		if got := LogLevel(in); got != exp {
			t.Fatalf("LogLevel(%q) should be %v, not %v", in, exp, got)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	conf := NewDefaultConfig()

	if conf.BindAddr != DefaultBindAddr {
		t.Fatalf("BindAddr should be %s, not %s", DefaultBindAddr, conf.BindAddr)
	}
	if conf.DialTimeout != 0 {
		t.Fatalf("dialing should not time out by default")
	}
	if conf.MaxLineSize != DefaultMaxLineSize {
		t.Fatalf("MaxLineSize should be %d, not %d", DefaultMaxLineSize, conf.MaxLineSize)
	}

	entry := conf.Logger()
	if entry.Data["prefix"] != "gossipchain" {
		t.Fatalf("logger should carry the gossipchain prefix, got %v", entry.Data)
	}
	if entry.Logger.Level != logrus.DebugLevel {
		t.Fatalf("logger level should follow LogLevel, got %v", entry.Logger.Level)
	}
}

func TestLoggerMoniker(t *testing.T) {
	conf := NewTestConfig(t, logrus.InfoLevel)
	conf.Moniker = "alice"

	entry := conf.Logger()
	if entry.Data["moniker"] != "alice" {
		t.Fatalf("logger should carry the moniker, got %v", entry.Data)
	}
	if entry.Logger.Level != logrus.InfoLevel {
		t.Fatalf("test logger level should be kept, got %v", entry.Logger.Level)
	}
}

func TestLoggerSharedConfig(t *testing.T) {
	conf := NewDefaultConfig()
	conf.LogLevel = "warn"

	var wg sync.WaitGroup
	levels := make([]logrus.Level, 8)
	for i := range levels {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			levels[i] = conf.Logger().Logger.Level
		}(i)
	}
	wg.Wait()

	for i, l := range levels {
		if l != logrus.WarnLevel {
			t.Fatalf("logger %d level should be warn, got %v", i, l)
		}
	}
	if conf.logger != nil {
		t.Fatalf("Logger should not store a logger in the config")
	}

	custom := logrus.New()
	conf.SetLogger(custom)
	if conf.Logger().Logger != custom {
		t.Fatalf("Logger should use the logger set with SetLogger")
	}
}
