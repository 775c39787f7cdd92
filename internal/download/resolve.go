package download

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/go-github/v27/github"
)

// Chromium snapshots live in a public Cloud Storage bucket.
const (
	ChromiumBucket = "chromium-browser-snapshots"

	chromiumPrefix       = "Linux_x64"
	chromiumLastChange   = "Linux_x64/LAST_CHANGE"
	chromiumArchive      = "chrome-linux.zip"
	chromeDriverArchive  = "chromedriver_linux64.zip"
	chromeDriverFilename = "chromedriver.zip"
)

// ObjectStore reads objects of a Cloud Storage bucket.
type ObjectStore interface {
	// ReadObject returns the contents of the object name.
	ReadObject(ctx context.Context, name string) ([]byte, error)
	// Attrs returns the download link and MD5 digest of the object name.
	Attrs(ctx context.Context, name string) (link string, md5 []byte, err error)
}

type bucket struct {
	b *storage.BucketHandle
}

// Bucket adapts a Cloud Storage bucket to ObjectStore.
func Bucket(c *storage.Client, name string) ObjectStore {
	return bucket{b: c.Bucket(name)}
}

func (b bucket) ReadObject(ctx context.Context, name string) ([]byte, error) {
	r, err := b.b.Object(name).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b bucket) Attrs(ctx context.Context, name string) (string, []byte, error) {
	attrs, err := b.b.Object(name).Attrs(ctx)
	if err != nil {
		return "", nil, err
	}
	return attrs.MediaLink, attrs.MD5, nil
}

// ChromiumFiles describes the Chromium snapshot and matching chromedriver of
// build, or of the latest snapshot when build is empty.
func ChromiumFiles(ctx context.Context, store ObjectStore, build string) ([]File, error) {
	gcsPath := fmt.Sprintf("gs://%s/", ChromiumBucket)
	if build == "" {
		data, err := store.ReadObject(ctx, chromiumLastChange)
		if err != nil {
			return nil, fmt.Errorf("cannot read from %s%s file: %w", gcsPath, chromiumLastChange, err)
		}
		build = strings.TrimSpace(string(data))
	}

	object := func(name string) (File, error) {
		p := path.Join(chromiumPrefix, build, name)
		link, sum, err := store.Attrs(ctx, p)
		if err != nil {
			return File{}, fmt.Errorf("cannot get the attrs of %s%s: %w", gcsPath, p, err)
		}
		f := File{URL: link, Name: name}
		if len(sum) > 0 {
			f.Hash, f.HashType = hex.EncodeToString(sum), "md5"
		}
		return f, nil
	}

	browser, err := object(chromiumArchive)
	if err != nil {
		return nil, err
	}
	browser.Browser = true
	driver, err := object(chromeDriverArchive)
	if err != nil {
		return nil, err
	}
	driver.Name = chromeDriverFilename
	driver.Rename = []string{"chromedriver_linux64/chromedriver", "chromedriver"}
	return []File{browser, driver}, nil
}

// LatestRelease describes the asset of the latest GitHub release of
// owner/repo whose name matches assetName, stored as localName.
func LatestRelease(ctx context.Context, client *github.Client, owner, repo, assetName, localName string) (File, error) {
	assetNameRE, err := regexp.Compile(assetName)
	if err != nil {
		return File{}, fmt.Errorf("invalid asset name regular expression %q: %w", assetName, err)
	}
	rel, _, err := client.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return File{}, err
	}
	for _, a := range rel.Assets {
		if !assetNameRE.MatchString(a.GetName()) {
			continue
		}
		u := a.GetBrowserDownloadURL()
		if u == "" {
			return File{}, fmt.Errorf("%s does not have a download URL", a.GetName())
		}
		return File{Name: localName, URL: u}, nil
	}
	return File{}, fmt.Errorf("release for %s not found at https://github.com/%s/%s/releases", assetName, owner, repo)
}

// GeckodriverFile describes the latest Linux geckodriver release.
func GeckodriverFile(ctx context.Context, client *github.Client) (File, error) {
	return LatestRelease(ctx, client, "mozilla", "geckodriver", `geckodriver-.*linux64\.tar\.gz$`, "geckodriver.tar.gz")
}

// Plan selects what Resolve fetches.
type Plan struct {
	// Browsers includes the browser archives, not only the drivers.
	Browsers bool
	// ChromiumBuild pins a snapshot; empty means the latest.
	ChromiumBuild string
	// FirefoxVersion pins a release; empty means the latest nightly.
	FirefoxVersion string
	SauceConnect   bool
}

// Resolve turns p into the list of files to download. store and gh may be
// nil to leave out Chromium or geckodriver.
func Resolve(ctx context.Context, p Plan, store ObjectStore, gh *github.Client) ([]File, error) {
	var files []File
	if store != nil {
		chromium, err := ChromiumFiles(ctx, store, p.ChromiumBuild)
		if err != nil {
			return nil, err
		}
		files = append(files, chromium...)
	}
	if gh != nil {
		gecko, err := GeckodriverFile(ctx, gh)
		if err != nil {
			return nil, err
		}
		files = append(files, gecko)
	}
	if p.Browsers {
		files = append(files, FirefoxFile(p.FirefoxVersion))
	}
	if p.SauceConnect {
		files = append(files, SauceConnectFile)
	}
	if !p.Browsers {
		drivers := files[:0]
		for _, f := range files {
			if !f.Browser {
				drivers = append(drivers, f)
			}
		}
		files = drivers
	}
	return files, nil
}
