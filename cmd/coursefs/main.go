package main

import (
	"flag"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/brettbedarf/coursefs/config"
	"github.com/brettbedarf/coursefs/internal/util"
	"github.com/brettbedarf/coursefs/portal"
	"github.com/brettbedarf/coursefs/server"
	"github.com/brettbedarf/coursefs/transport"
)

func main() {
	// Parse command line arguments
	var (
		baseURL  string
		courseID string
		token    string
		cfgPath  string
		verbose  int
		umount   bool
	)
	flag.StringVar(&baseURL, "base-url", "https://ilias.studium.kit.edu", "Base URL of the course portal")
	flag.StringVar(&baseURL, "b", "https://ilias.studium.kit.edu", "--base-url (shorthand)")
	flag.StringVar(&courseID, "course-id", "",
		"Course id to use as the root node. Defaults to the personal desktop when unset.")
	flag.StringVar(&token, "token", "", "Session token for the portal API")
	flag.StringVar(&cfgPath, "config", "", "Path to config file (yaml or json)")
	flag.StringVar(&cfgPath, "c", "", "--config (shorthand)")
	flag.BoolVar(&umount, "umount", false,
		"Unmount the fs first if needed before mounting again. Useful for debuggers that don't exit properly.")
	flag.BoolVar(&umount, "u", false, "--umount (shorthand)")
	flag.IntVar(&verbose, "verbose", 3, "Log verbosity level between 1 (error) and 5 (trace). Default is 3 (info).")
	flag.IntVar(&verbose, "v", 3, "--verbose (shorthand)")
	flag.Parse()

	// Initialize logger
	if verbose < config.ErrorVerbose {
		verbose = config.ErrorVerbose
	}
	if verbose > config.TraceVerbose {
		verbose = config.TraceVerbose
	}
	logLvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	util.InitializeLogger(logLvls[verbose-1])
	logger := util.GetLogger("main")

	// Build config: file overrides first, then CLI verbosity on top
	override := &config.ConfigOverride{}
	if cfgPath != "" {
		var err error
		override, err = config.LoadConfigOverrideFile(cfgPath)
		if err != nil {
			logger.Fatal().Err(err).Str("config", cfgPath).Msg("Failed to load config file")
		}
	}
	override.LogLvl = &verbose
	cfg := config.NewConfig(override)

	mnt := flag.Arg(0)
	logger.Info().Int("verbose", verbose).Str("base-url", baseURL).Str("mnt", mnt).Msg("CourseFS initializing")
	if mnt == "" {
		logger.Fatal().Msg("Mount point not specified; it must be passed as the argument")
	}
	// Try unmount if requested
	if umount { // send cli command
		cmd := exec.Command("fusermount", "-u", mnt)
		// we ignore error here if not already mounted
		cmd.Run() // nolint:errcheck
	}

	// Shared session headers for listing and download requests
	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	hc := &http.Client{Timeout: time.Duration(cfg.HTTPTimeout) * time.Second}

	source := portal.NewClient(baseURL, hc, headers)
	tp := transport.NewClient(hc, headers)

	root := source.DesktopRoot()
	if courseID != "" {
		root = source.CourseRoot(courseID)
	}

	fs := server.New(cfg, source, tp, root)
	if err := fs.Serve(mnt); err != nil {
		logger.Fatal().Err(err).Msg("Failed to mount filesystem")
	}

	// Setup signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	logger.Info().Str("mountpoint", mnt).Msg("Filesystem mounted successfully")

	// Wait for termination signal
	sig := <-signalChan
	logger.Info().Str("signal", sig.String()).Msg("Received signal, unmounting filesystem")

	if err := fs.Unmount(); err != nil {
		logger.Error().Err(err).Msg("Failed to unmount filesystem")
	} else {
		logger.Info().Msg("Filesystem unmounted successfully")
	}
}
