package webdriver

import (
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/BurntSushi/xgbutil"
	"github.com/google/go-cmp/cmp"
)

func TestFrameBuffer(t *testing.T) {
	if _, err := exec.LookPath("Xvfb"); err != nil {
		t.Skip("Xvfb is not installed")
	}
	if _, err := exec.LookPath("xauth"); err != nil {
		t.Skip("xauth is not installed")
	}

	// There appears to be a race condition when closing an xgb connection
	// before the FrameBuffer instance. A short sleep solves the problem.
	tests := []struct {
		desc          string
		options       FrameBufferOptions
		width, height int
	}{
		{
			// The default Xvfb screen size is "1280x1024x8".
			desc:   "default behavior",
			width:  1280,
			height: 1024,
		},
		{
			desc:    "with screen size",
			options: FrameBufferOptions{ScreenSize: fmt.Sprintf("%dx%dx%d", 1024, 768, 24)},
			width:   1024,
			height:  768,
		},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			frameBuffer, err := NewFrameBufferWithOptions(tc.options)
			if err != nil {
				t.Fatalf("Could not create frame buffer: %s", err.Error())
			}
			defer frameBuffer.Stop()

			if frameBuffer.Display == "" {
				t.Fatalf("frameBuffer.Display is empty")
			}

			d, err := xgbutil.NewConnDisplay(":" + frameBuffer.Display)
			if err != nil {
				t.Fatalf("could not connect to display %q: %s", frameBuffer.Display, err.Error())
			}
			defer time.Sleep(time.Second * 2)
			defer d.Conn().Close()
			s := d.Screen()
			if diff := cmp.Diff(tc.width, int(s.WidthInPixels)); diff != "" {
				t.Fatalf("screen width diff (-want/+got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.height, int(s.HeightInPixels)); diff != "" {
				t.Fatalf("screen height diff (-want/+got):\n%s", diff)
			}
		})
	}
}
