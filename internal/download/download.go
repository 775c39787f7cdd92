// Package download fetches the browsers and drivers a local bankflow run
// needs.
package download

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

// File describes how to download a file from the Web.
type File struct {
	URL  string
	Name string
	// Hash is the expected hex digest; empty skips verification.
	Hash     string
	HashType string // default is sha256
	// Rename, if set, moves Rename[0] to Rename[1] after unpacking.
	Rename []string
	// Browser marks browser archives, which are large.
	Browser bool
}

// Path returns where f is stored under dir.
func (f File) Path(dir string) string {
	return filepath.Join(dir, f.Name)
}

// SauceConnectFile describes how to download the Sauce Connect binary.
var SauceConnectFile = File{
	URL:    "https://saucelabs.com/downloads/sc-4.9.2-linux.tar.gz",
	Name:   "sauce-connect.tar.gz",
	Rename: []string{"sc-4.9.2-linux", "sauce-connect"},
}

// FirefoxFile describes the Firefox release version, or the latest nightly
// when version is empty.
func FirefoxFile(version string) File {
	if version == "" {
		return File{
			URL:     "https://download.mozilla.org/?product=firefox-nightly-latest-ssl&os=linux64&lang=en-US",
			Name:    "firefox-nightly.tar.bz2",
			Browser: true,
		}
	}
	v := url.PathEscape(version)
	return File{
		URL:     "https://download-installer.cdn.mozilla.net/pub/firefox/releases/" + v + "/linux-x86_64/en-US/firefox-" + v + ".tar.bz2",
		Name:    "firefox.tar.bz2",
		Browser: true,
	}
}

var newExecCommand = exec.CommandContext

// Download fetches file into dir unless a copy with the expected hash is
// already there, then unpacks and renames it.
func Download(ctx context.Context, file File, dir string) error {
	if file.Hash != "" && fileSameHash(file, dir) {
		glog.Infof("Skipping file %q which has already been downloaded.", file.Name)
	} else {
		glog.Infof("Downloading %q from %q", file.Name, file.URL)
		if err := downloadFile(ctx, file, dir); err != nil {
			return err
		}
	}

	if err := unpack(ctx, file, dir); err != nil {
		return err
	}

	if rename := file.Rename; len(rename) == 2 {
		from := filepath.Join(dir, rename[0])
		to := filepath.Join(dir, rename[1])
		glog.Infof("Renaming %q to %q", from, to)
		os.RemoveAll(to) // Ignore error.
		if err := os.Rename(from, to); err != nil {
			glog.Warningf("Error renaming %q to %q: %v", from, to, err)
		}
	}
	return nil
}

// DownloadAll downloads files concurrently into dir. The first failure
// cancels the remaining downloads.
func DownloadAll(ctx context.Context, files []File, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := Download(ctx, file, dir); err != nil {
				return fmt.Errorf("error handling %s: %w", file.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func newHash(hashType string) hash.Hash {
	switch strings.ToLower(hashType) {
	case "md5":
		return md5.New()
	case "sha1":
		return sha1.New()
	}
	return sha256.New()
}

func downloadFile(ctx context.Context, file File, dir string) (err error) {
	f, err := os.Create(file.Path(dir))
	if err != nil {
		return fmt.Errorf("error creating %q: %w", file.Path(dir), err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing %q: %w", file.Path(dir), closeErr)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.URL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: error downloading %q: %w", file.Name, file.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: error downloading %q: %s", file.Name, file.URL, resp.Status)
	}

	if file.Hash == "" {
		if _, err := io.Copy(f, resp.Body); err != nil {
			return fmt.Errorf("%s: error downloading %q: %w", file.Name, file.URL, err)
		}
		return nil
	}
	h := newHash(file.HashType)
	if _, err := io.Copy(io.MultiWriter(f, h), resp.Body); err != nil {
		return fmt.Errorf("%s: error downloading %q: %w", file.Name, file.URL, err)
	}
	if sum := hex.EncodeToString(h.Sum(nil)); sum != file.Hash {
		return fmt.Errorf("%s: got %s hash %q, want %q", file.Name, file.HashType, sum, file.Hash)
	}
	return nil
}

func fileSameHash(file File, dir string) bool {
	f, err := os.Open(file.Path(dir))
	if err != nil {
		return false
	}
	defer f.Close()

	h := newHash(file.HashType)
	if _, err := io.Copy(h, f); err != nil {
		return false
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if sum != file.Hash {
		glog.Warningf("File %q: got hash %q, expect hash %q", file.Name, sum, file.Hash)
		return false
	}
	return true
}

func unpack(ctx context.Context, file File, dir string) error {
	var args []string
	switch path.Ext(file.Name) {
	case ".zip":
		args = []string{"unzip", "-d", dir, "-o", file.Path(dir)}
	case ".gz":
		args = []string{"tar", "-xzf", file.Path(dir), "-C", dir}
	case ".bz2":
		args = []string{"tar", "-xjf", file.Path(dir), "-C", dir}
	default:
		return nil
	}

	glog.Infof("Unpacking %q", file.Path(dir))
	if out, err := newExecCommand(ctx, args[0], args[1:]...).CombinedOutput(); err != nil {
		return fmt.Errorf("error unpacking %q: %w\n%s", file.Name, err, out)
	}
	return nil
}
