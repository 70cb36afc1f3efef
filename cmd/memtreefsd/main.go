// Command memtreefsd mounts an in-memory, size-bounded filesystem volume.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/memtreefs/memtree"
	"github.com/memtreefs/memtree/config"
	"github.com/memtreefs/memtree/internal/util"
)

func main() {
	var (
		sizeStr  string
		caseSens bool
		label    string
		fsName   string
		security string
		debug    bool
		verbose  int
	)
	flag.StringVar(&sizeStr, "size", "", "Volume byte budget, decimal with optional K/M/G/T suffix. Default 2G, minimum 512.")
	flag.BoolVar(&caseSens, "case-sensitive", false, "Compare names byte-wise instead of ordinal-ignore-case.")
	flag.StringVar(&label, "label", "", "Volume label.")
	flag.StringVar(&fsName, "file-system-name", "", "Filesystem type string reported to the host driver.")
	flag.StringVar(&security, "security", "", "SDDL string applied to the root's security descriptor.")
	flag.BoolVar(&debug, "debug", false, "Enable fuse debug logging.")
	flag.IntVar(&verbose, "verbose", 3, "Log verbosity level between 1 (error) and 5 (trace). Default is 3 (info).")
	flag.IntVar(&verbose, "v", 3, "--verbose (shorthand)")
	flag.Parse()

	util.InitializeLogger(verbosityToLevel(verbose))
	logger := util.GetLogger("main")

	mnt := flag.Arg(0)
	if mnt == "" {
		logger.Fatal().Msg("mount point not specified; it must be passed as the argument")
	}

	override := &config.ConfigOverride{
		CaseInsensitive: util.Pointer(!caseSens),
		Debug:           util.Pointer(debug),
	}
	if sizeStr != "" {
		size, err := config.ParseSize(sizeStr)
		if err != nil {
			logger.Fatal().Err(err).Str("size", sizeStr).Msg("invalid --size")
		}
		if size < config.MinTotalSize {
			logger.Fatal().Int64("size", size).Int64("minimum", config.MinTotalSize).Msg("--size below minimum")
		}
		override.TotalSize = util.Pointer(size)
	}
	if label != "" {
		override.Label = util.Pointer(label)
		override.Name = util.Pointer(label)
	}
	if fsName != "" {
		override.FsName = util.Pointer(fsName)
	}
	if security != "" {
		override.SecuritySDDL = util.Pointer(security)
	}

	cfg := config.NewConfig(override)
	if cfg.VolumeID == "" {
		cfg.VolumeID = uuid.New().String()
	}

	logger.Info().
		Int64("size", cfg.TotalSize).
		Bool("caseInsensitive", cfg.CaseInsensitive).
		Str("label", cfg.Label).
		Str("mountpoint", mnt).
		Msg("initializing volume")

	tree, err := memtree.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build volume")
	}

	server, err := memtree.Mount(tree, mnt, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to mount filesystem")
	}
	if err := server.Serve(); err != nil {
		logger.Fatal().Err(err).Msg("failed to serve filesystem")
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	logger.Info().Str("mountpoint", mnt).Msg("filesystem mounted successfully")

	sig := <-signalChan
	logger.Info().Str("signal", sig.String()).Msg("received signal, unmounting filesystem")

	if err := server.Unmount(); err != nil {
		logger.Error().Err(err).Msg("failed to unmount filesystem")
		os.Exit(1)
	}
	logger.Info().Msg("filesystem unmounted successfully")
}

func verbosityToLevel(verbose int) util.LogLevel {
	if verbose < 1 {
		verbose = 1
	}
	if verbose > 5 {
		verbose = 5
	}
	levels := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	return levels[verbose-1]
}
