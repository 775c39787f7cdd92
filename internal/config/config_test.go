package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blang/semver"
	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	got, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("Load() returned diff (-want/+got):\n%s", diff)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("BANKFLOW_BASE_URL", PublicParaBank)
	t.Setenv("BANKFLOW_BROWSER", "firefox")
	t.Setenv("BANKFLOW_HEADLESS", "false")
	t.Setenv("BANKFLOW_EXPECT_TIMEOUT", "2s")
	t.Setenv("BANKFLOW_SHARE_COOKIES", "1")
	t.Setenv("BANKFLOW_PROXY", " localhost:1080 ")

	got, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	want := Default()
	want.BaseURL = PublicParaBank
	want.Browser = Firefox
	want.Headless = false
	want.ExpectTimeout = 2 * time.Second
	want.ShareCookies = true
	want.Proxy = "localhost:1080"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() returned diff (-want/+got):\n%s", diff)
	}
}

func TestLoadBadValues(t *testing.T) {
	t.Setenv("BANKFLOW_HEADLESS", "sometimes")
	t.Setenv("BANKFLOW_PAGE_LOAD_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("Load() returned nil error, want one for bad boolean and duration")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	const contents = "BANKFLOW_ARTIFACTS_DIR=/tmp/bankflow\nBANKFLOW_MIN_DRIVER_VERSION=114.0\n"
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("BANKFLOW_ARTIFACTS_DIR")
		os.Unsetenv("BANKFLOW_MIN_DRIVER_VERSION")
	})

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) returned error: %v", path, err)
	}
	if got.ArtifactsDir != "/tmp/bankflow" {
		t.Errorf("ArtifactsDir = %q, want %q", got.ArtifactsDir, "/tmp/bankflow")
	}
	v, ok, err := got.MinVersion()
	if err != nil || !ok {
		t.Fatalf("MinVersion() = %v, %t, %v", v, ok, err)
	}
	if want := semver.MustParse("114.0.0"); !v.Equals(want) {
		t.Errorf("MinVersion() = %v, want %v", v, want)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("Load() of a missing file returned nil error")
	}
}

func TestBindFlags(t *testing.T) {
	c := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.BindFlags(fs)
	args := []string{
		"-parabank_url=http://localhost:8080",
		"-browser=firefox",
		"-headless=false",
		"-expect_timeout=1s",
		"-share_cookies",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) returned error: %v", args, err)
	}
	want := Default()
	want.BaseURL = "http://localhost:8080"
	want.Browser = Firefox
	want.Headless = false
	want.ExpectTimeout = time.Second
	want.ShareCookies = true
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("flags returned diff (-want/+got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		desc    string
		mutate  func(*Config)
		wantErr bool
	}{
		{desc: "defaults", mutate: func(*Config) {}},
		{desc: "firefox on public bank", mutate: func(c *Config) {
			c.Browser = Firefox
			c.BaseURL = PublicParaBank
		}},
		{desc: "unknown browser", mutate: func(c *Config) { c.Browser = "lynx" }, wantErr: true},
		{desc: "relative base URL", mutate: func(c *Config) { c.BaseURL = "parabank" }, wantErr: true},
		{desc: "half sauce credentials", mutate: func(c *Config) { c.SauceUser = "u" }, wantErr: true},
		{desc: "remote and sauce", mutate: func(c *Config) {
			c.SauceUser, c.SauceKey = "u", "k"
			c.RemoteURL = "http://localhost:4444/wd/hub"
		}, wantErr: true},
		{desc: "bad version", mutate: func(c *Config) { c.MinDriverVersion = "latest" }, wantErr: true},
	}
	for _, tc := range tests {
		c := Default()
		tc.mutate(&c)
		err := c.Validate()
		if tc.wantErr != (err != nil) {
			t.Errorf("%s: Validate() = %v, want error %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestTargets(t *testing.T) {
	c := Default()
	if !c.Local() || c.Sauce() {
		t.Errorf("Default(): Local() = %t, Sauce() = %t, want true, false", c.Local(), c.Sauce())
	}
	c.SauceUser, c.SauceKey = "u", "k"
	if c.Local() || !c.Sauce() {
		t.Errorf("with credentials: Local() = %t, Sauce() = %t, want false, true", c.Local(), c.Sauce())
	}
}
