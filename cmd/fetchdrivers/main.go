// Binary fetchdrivers downloads the browsers and WebDriver servers that a
// local bankflow run drives.
package main

import (
	"context"
	"flag"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/golang/glog"
	"github.com/google/go-github/v27/github"
	"google.golang.org/api/option"

	"github.com/wanmail/bankflow/internal/download"
)

const (
	// desiredChromiumBuild is the known snapshot of Chromium to download from
	// the chromium-browser-snapshots/Linux_x64 bucket.
	//
	// Update this periodically.
	desiredChromiumBuild = "1181205" // This corresponds to version 120.0.6099.0

	// desiredFirefoxVersion is the known version of Firefox to download.
	//
	// Update this periodically.
	desiredFirefoxVersion = "124.0"
)

var (
	dir              = flag.String("dir", "third_party", "The directory to download into.")
	downloadBrowsers = flag.Bool("download_browsers", true, "If true, download the Firefox and Chromium browsers.")
	downloadLatest   = flag.Bool("download_latest", false, "If true, download the latest versions.")
	chromium         = flag.Bool("chromium", true, "If true, download Chromium and chromedriver.")
	gecko            = flag.Bool("geckodriver", true, "If true, download the latest geckodriver.")
	sauceConnect     = flag.Bool("sauce_connect", false, "If true, download the Sauce Connect binary.")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	plan := download.Plan{
		Browsers:       *downloadBrowsers,
		ChromiumBuild:  desiredChromiumBuild,
		FirefoxVersion: desiredFirefoxVersion,
		SauceConnect:   *sauceConnect,
	}
	if *downloadLatest {
		plan.ChromiumBuild = ""
		plan.FirefoxVersion = ""
	}

	var store download.ObjectStore
	if *chromium {
		client, err := storage.NewClient(ctx, option.WithHTTPClient(http.DefaultClient))
		if err != nil {
			glog.Exitf("cannot create a storage client for downloading the chrome browser: %v", err)
		}
		defer client.Close()
		store = download.Bucket(client, download.ChromiumBucket)
	}
	var gh *github.Client
	if *gecko {
		gh = github.NewClient(nil)
	}

	files, err := download.Resolve(ctx, plan, store, gh)
	if err != nil {
		glog.Exitf("Unable to resolve downloads: %v", err)
	}
	if err := download.DownloadAll(ctx, files, *dir); err != nil {
		glog.Exit(err)
	}
	glog.Infof("Downloaded %d files into %s", len(files), *dir)
}
