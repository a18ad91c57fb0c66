package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/fs"
	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/logger"
	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/metrics"
	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/store"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/timeutil"
)

// runMount opens the database, builds the file system, mounts it, and blocks
// until it is unmounted (by the kernel, by SIGINT, or by a failed mount).
func runMount(dbPath, mountPoint string) error {
	logger.Init(logger.Options{Level: opts.LogLevel})

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	fileSystem := fs.New(&fs.Config{
		Store: st,
		Clock: timeutil.RealClock(),
		Uid:   uint32(os.Getuid()),
		Gid:   uint32(os.Getgid()),
	})

	mountCfg := &fuse.MountConfig{
		FSName:     "joplinfs",
		Subtype:    "joplinfs",
		VolumeName: "joplinfs",
		Options:    mountOptions(),
	}

	logger.Infof("mounting %s at %s", dbPath, mountPoint)
	mfs, err := fuse.Mount(mountPoint, fileSystem.Server(), mountCfg)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	ctx, cancelMetrics := context.WithCancel(context.Background())
	defer cancelMetrics()
	if opts.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, opts.MetricsAddr); err != nil {
				logger.Errorf("metrics server: %v", err)
			}
		}()
	}

	registerSIGINTHandler(mountPoint)

	if err := mfs.Join(context.Background()); err != nil {
		return fmt.Errorf("MountedFileSystem.Join: %w", err)
	}

	logger.Infof("unmounted cleanly")
	return nil
}

func mountOptions() map[string]string {
	o := make(map[string]string)
	if opts.AutoUnmount {
		o["auto_unmount"] = ""
	}
	if opts.AllowRoot {
		o["allow_root"] = ""
	}
	if opts.AllowOther {
		o["allow_other"] = ""
	}
	return o
}

// registerSIGINTHandler arranges for Ctrl-C (SIGINT) and SIGTERM to unmount
// cleanly rather than leaving a stale mountpoint behind.
func registerSIGINTHandler(mountPoint string) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for range signalChan {
			logger.Infof("received interrupt, attempting to unmount %s", mountPoint)
			if err := fuse.Unmount(mountPoint); err != nil {
				logger.Errorf("failed to unmount in response to interrupt: %v", err)
				continue
			}
			return
		}
	}()
}
