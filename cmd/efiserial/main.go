package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cybroslabs/libserialio-go/board"
	"github.com/cybroslabs/libserialio-go/efi"
	"github.com/cybroslabs/libserialio-go/selftest"
	"github.com/cybroslabs/libserialio-go/serialio"
	"go.uber.org/zap"
	"k8s.io/utils/ptr"
)

var (
	boardFile = flag.String("board", "board.toml", "Board description.")
	echo      = flag.Bool("echo", false, "Echo received bytes until interrupted.")
	poll      = flag.Duration("poll", 5*time.Millisecond, "Delay between reads while the line is idle.")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := board.Load(*boardFile)
	if err != nil {
		return err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	b, err := board.Attach(cfg, logger)
	if err != nil {
		logger.Warnw("some serial devices are unavailable", zap.Error(err))
	}
	defer func() { _ = b.Close() }()

	dir := efi.NewDirectory()
	dir.SetLogger(logger)
	if err := serialio.Register(dir, b.Registry, serialio.WithLogger(logger)); err != nil {
		return err
	}

	runner := selftest.NewRunner(logger, selftest.SerialUnit())
	if _, err := runner.Run(selftest.ExecuteBeforeBootExit, &selftest.Env{Directory: dir, Logger: logger}); err != nil {
		return err
	}

	if !*echo {
		return nil
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return echoLoop(ctx, dir, logger)
}

func echoLoop(ctx context.Context, dir *efi.Directory, logger *zap.SugaredLogger) error {
	iface, err := dir.LocateProtocol(serialio.Guid)
	if err != nil {
		return err
	}
	p := iface.(*serialio.Protocol)
	logger.Infof("echoing through the Serial I/O protocol, poll interval %s", *poll)

	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		size := ptr.To(uint64(len(buf)))
		switch st := p.Read(p, size, buf); st {
		case efi.Success:
			if st := p.Write(p, size, buf[:*size]); st != efi.Success {
				return fmt.Errorf("write: %w", st.Err())
			}
		case efi.Timeout:
			time.Sleep(*poll)
		default:
			return fmt.Errorf("read: %w", st.Err())
		}
	}
}
