// Binary bankflow runs the ParaBank end-to-end workflow once in a real
// browser and exits with status 1 if any step fails.
//
// Settings come from BANKFLOW_* environment variables, an optional .env file
// and flags, in increasing precedence. For example:
//
//	bankflow -driver_path=third_party/chromedriver -parabank_url=https://parabank.parasoft.com
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"github.com/wanmail/bankflow/internal/config"
	"github.com/wanmail/bankflow/internal/harness"
	"github.com/wanmail/bankflow/scenario"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()
	defer glog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		glog.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, "FAIL:", err)
		glog.Flush()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) (err error) {
	h, err := harness.Start(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			glog.Warningf("shutting down: %v", cerr)
		}
	}()

	report, err := h.Run(ctx)
	for _, s := range report.Completed {
		fmt.Printf("ok   %-16s %v\n", s.Name, s.Duration)
	}
	if err != nil {
		for _, a := range h.Artifacts {
			fmt.Printf("artifact %s\n", a)
		}
		return err
	}
	st := report.State
	fmt.Printf("PASS run %s: user %s, account %s, %d transactions of %s\n",
		h.RunID, st.Identity.Username, st.NewAccountID, len(st.Transactions), scenario.DefaultAmounts.BillPay)
	return nil
}
