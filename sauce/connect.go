package sauce

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/golang/glog"
)

var newExecCommand = exec.Command

// Tunnel manages a Sauce Connect process so that Sauce Labs browsers can
// reach HTTP endpoints on the local machine, such as a locally served bank.
type Tunnel struct {
	// Path is the path to the Sauce Connect binary.
	Path string
	// UserName and AccessKey are the credentials used to authenticate with Sauce Labs.
	UserName, AccessKey string
	// Name identifies the tunnel; sessions opt in through
	// Capabilities.TunnelName.
	Name string
	// Region is the Sauce data center; DefaultRegion when empty.
	Region string
	// LogFile is the location of the log file that the binary should create.
	LogFile string
	// ReadyTimeout bounds the wait for the tunnel; one minute when zero.
	ReadyTimeout time.Duration
	// Args are additional arguments to provide to the binary.
	Args []string

	cmd *exec.Cmd
}

func (t *Tunnel) args(readyPath, pidPath string) []string {
	region := t.Region
	if region == "" {
		region = DefaultRegion
	}
	args := append([]string(nil), t.Args...)
	if t.UserName != "" {
		args = append(args, "--user", t.UserName)
	}
	if t.AccessKey != "" {
		args = append(args, "--api-key", t.AccessKey)
	}
	if t.Name != "" {
		args = append(args, "--tunnel-name", t.Name)
	}
	args = append(args, "--region", region)
	if t.LogFile != "" {
		args = append(args, "--logfile", t.LogFile)
	}
	return append(args, "--readyfile", readyPath, "--pidfile", pidPath)
}

// Start launches the tunnel and blocks until it accepts connections.
func (t *Tunnel) Start() error {
	dir, err := os.MkdirTemp("", "bankflow-sauce-connect")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir) // ignore error.

	// The ready file is touched by the tunnel process when it is ready to
	// accept connections.
	readyPath := filepath.Join(dir, "ready")
	pidPath := filepath.Join(dir, "pid")

	t.cmd = newExecCommand(t.Path, t.args(readyPath, pidPath)...)
	if glog.V(1) {
		t.cmd.Stdout = os.Stdout
		t.cmd.Stderr = os.Stderr
	}
	if err := t.cmd.Start(); err != nil {
		return err
	}

	timeout := t.ReadyTimeout
	if timeout == 0 {
		timeout = time.Minute
	}
	for deadline := time.Now().Add(timeout); time.Now().Before(deadline); {
		time.Sleep(250 * time.Millisecond)
		if _, err := os.Stat(readyPath); err == nil {
			glog.Infof("sauce connect tunnel %q ready", t.Name)
			return nil
		}
	}
	t.Stop() // ignore error.
	return fmt.Errorf("sauce connect tunnel %q did not become ready within %v", t.Name, timeout)
}

// Stop terminates the tunnel process.
func (t *Tunnel) Stop() error {
	if t.cmd == nil || t.cmd.Process == nil {
		return nil
	}
	if err := t.cmd.Process.Kill(); err != nil {
		return err
	}
	t.cmd.Wait() // reports the kill signal.
	return nil
}
