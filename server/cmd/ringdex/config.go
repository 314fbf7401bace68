// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"decred.org/ringdex/dex"
	"decred.org/ringdex/server/claim"
	"decred.org/ringdex/server/db/driver/badger"
	"decred.org/ringdex/server/db/driver/bolt"
	"decred.org/ringdex/server/db/driver/pg"
	dexsrv "decred.org/ringdex/server/dex"
	"decred.org/ringdex/server/engine"
	"decred.org/ringdex/server/ring"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/ethereum/go-ethereum/common"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename  = "ringdex.conf"
	defaultLogFilename     = "ringdex.log"
	defaultDataDirname     = "data"
	defaultLogLevel        = "info"
	defaultLogDirname      = "logs"
	defaultGenesisFilename = "genesis.json"
	defaultBatchFilename   = "batch.json"
	defaultMaxLogZips      = 16
	defaultDBDriver        = bolt.DriverName
	defaultPGHost          = "127.0.0.1:5432"
	defaultPGPort          = "5432"
	defaultPGUser          = "ringdex"
	defaultPGDBName        = "ringdex"
	defaultBoltFilename    = "ledger.db"
	defaultBadgerDirname   = "ledger"
)

var (
	defaultAppDataDir = dcrutil.AppDataDir("ringdex", false)
)

type procOpts struct {
	CPUProfile string
}

// ringConf is the data that is required to run the engine on a batch.
type ringConf struct {
	DexConf     *dexsrv.DexConf
	GenesisPath string
	BatchPath   string
	ResultsPath string
	LogMaker    *dex.LoggerMaker
}

type flagsData struct {
	// General application behavior
	AppDataDir  string `short:"A" long:"appdata" description:"Path to application home directory"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir      string `long:"logdir" description:"Directory to log output."`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	MaxLogZips  int    `long:"maxlogzips" description:"The number of zipped log files created by the log rotator to be retained. Setting to 0 will keep all."`
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`

	Testnet bool `long:"testnet" description:"Use the test network (default mainnet)"`
	Simnet  bool `long:"simnet" description:"Use the simulation test network (default mainnet)"`

	EngineAddress string        `long:"engineaddress" description:"The engine's address. Orders are signed for a particular engine address."`
	FeeAsset      string        `long:"feeasset" description:"The address of the asset that fees and rebates are paid in."`
	MaxRingSize   int           `long:"maxringsize" description:"The maximum number of orders in a ring."`
	CVSThreshold  string        `long:"cvsthreshold" description:"The fairness bound on the coefficient of variation of the rate discounts, scaled by 1e6."`
	ClaimExpiry   time.Duration `long:"claimexpiry" description:"How long a pre-registered ring hash is reserved for its fee recipient."`
	GenesisPath   string        `long:"genesis" description:"Path to the genesis JSON file with the registered assets and initial balances."`
	BatchPath     string        `long:"batch" description:"Path to the JSON file of ring submissions, cancellations, and cutoffs to process."`
	ResultsPath   string        `long:"results" description:"Path to write the JSON results of the batch to. The results are only logged if unset."`

	CPUProfile string `long:"cpuprofile" description:"File for CPU profiling."`

	DBDriver     string `long:"dbdriver" description:"The ledger database driver {bolt, badger, pg}."`
	PGDBName     string `long:"pgdbname" description:"PostgreSQL DB name."`
	PGUser       string `long:"pguser" description:"PostgreSQL DB user."`
	PGPass       string `long:"pgpass" description:"PostgreSQL DB password."`
	PGHost       string `long:"pghost" description:"PostgreSQL server host:port or UNIX socket (e.g. /run/postgresql)."`
	HidePGConfig bool   `long:"hidepgconfig" description:"Blocks logging of the PostgreSQL db configuration on system start up."`
}

// cleanAndExpandPath expands environment variables and leading ~ in the passed
// path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Do not try to clean the empty string
	if path == "" {
		return ""
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows cmd.exe-style
	// %VARIABLE%, but the variables can still be expanded via POSIX-style
	// $VARIABLE.
	path = os.ExpandEnv(path)
	if !strings.HasPrefix(path, "~") {
		return filepath.Clean(path)
	}

	// Expand initial ~ to the current user's home directory, or ~otheruser to
	// otheruser's home directory.  On Windows, both forward and backward
	// slashes can be used.
	path = path[1:]

	var pathSeparators string
	if runtime.GOOS == "windows" {
		pathSeparators = string(os.PathSeparator) + "/"
	} else {
		pathSeparators = string(os.PathSeparator)
	}

	userName := ""
	if i := strings.IndexAny(path, pathSeparators); i != -1 {
		userName = path[:i]
		path = path[i:]
	}

	homeDir := ""
	var u *user.User
	var err error
	if userName == "" {
		u, err = user.Current()
	} else {
		u, err = user.Lookup(userName)
	}
	if err == nil {
		homeDir = u.HomeDir
	}
	// Fallback to CWD if user lookup fails or user has no home directory.
	if homeDir == "" {
		homeDir = "."
	}

	return filepath.Join(homeDir, path)
}

// parseAddress parses a hex address. An empty string is the zero address.
func parseAddress(s, what string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s %q", what, s)
	}
	return common.HexToAddress(s), nil
}

// parseThreshold parses a decimal CVS threshold. An empty string means the
// default.
func parseThreshold(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	threshold, ok := new(big.Int).SetString(s, 10)
	if !ok || threshold.Sign() < 0 {
		return nil, fmt.Errorf("invalid CVS threshold %q", s)
	}
	return threshold, nil
}

// splitPGHost splits a PostgreSQL host:port, adding the default port if it is
// missing. UNIX socket paths are returned with an empty port.
func splitPGHost(hostport string) (host, port string, err error) {
	if strings.HasPrefix(hostport, "/") {
		return hostport, "", nil
	}
	host, port, err = net.SplitHostPort(hostport)
	if err != nil {
		if !strings.Contains(err.Error(), "missing port in address") {
			return "", "", fmt.Errorf("invalid DB host %q: %w", hostport, err)
		}
		host, port = hostport, defaultPGPort
	}
	if host == "" {
		return "", "", fmt.Errorf("invalid DB host %q: no host", hostport)
	}
	if port == "" {
		port = defaultPGPort
	}
	return host, port, nil
}

// dbConf creates the configuration of the selected ledger driver. File based
// ledgers are stored in dataDir.
func dbConf(cfg *flagsData, dataDir string) (*dexsrv.DBConf, error) {
	switch cfg.DBDriver {
	case bolt.DriverName:
		return &dexsrv.DBConf{
			Driver: bolt.DriverName,
			Config: &bolt.Config{Path: filepath.Join(dataDir, defaultBoltFilename)},
		}, nil
	case badger.DriverName:
		return &dexsrv.DBConf{
			Driver: badger.DriverName,
			Config: &badger.Config{Path: filepath.Join(dataDir, defaultBadgerDirname)},
		}, nil
	case pg.DriverName:
		host, port, err := splitPGHost(cfg.PGHost)
		if err != nil {
			return nil, err
		}
		return &dexsrv.DBConf{
			Driver: pg.DriverName,
			Config: &pg.Config{
				Host:         host,
				Port:         port,
				User:         cfg.PGUser,
				Pass:         cfg.PGPass,
				DBName:       cfg.PGDBName,
				HidePGConfig: cfg.HidePGConfig,
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown DB driver %q", cfg.DBDriver)
}

// loadConfig initializes and parses the config using a config file and command
// line options.
func loadConfig() (*ringConf, *procOpts, error) {
	loadConfigError := func(err error) (*ringConf, *procOpts, error) {
		return nil, nil, err
	}

	// Default config
	cfg := flagsData{
		AppDataDir: defaultAppDataDir,
		// Defaults for ConfigFile, LogDir, and DataDir are set relative to
		// AppDataDir. They are not to be set here.
		MaxLogZips:  defaultMaxLogZips,
		DebugLevel:  defaultLogLevel,
		MaxRingSize: engine.DefaultMaxRingSize,
		ClaimExpiry: claim.DefaultExpiry,
		GenesisPath: defaultGenesisFilename,
		BatchPath:   defaultBatchFilename,
		DBDriver:    defaultDBDriver,
		PGDBName:    defaultPGDBName,
		PGUser:      defaultPGUser,
		PGHost:      defaultPGHost,
	}

	// Pre-parse the command line options to see if an alternative config file
	// or the version flag was specified. Any errors aside from the help message
	// error can be ignored here since they will be caught by the final parse
	// below.
	var preCfg flagsData // zero values as defaults
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		} else if e != nil && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
	}

	// Show the version and exit if the version flag was specified.
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n",
			appName, Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// Special show command to list supported subsystems and exit.
	if preCfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// If a non-default appdata folder is specified on the command line, it may
	// be necessary adjust the config file location. If the the config file
	// location was not specified on the command line, the default location
	// should be under the non-default appdata directory. However, if the config
	// file was specified on the command line, it should be used regardless of
	// the appdata directory.
	if preCfg.AppDataDir != "" {
		// appdata was set on the command line. If it is not absolute, make it
		// relative to cwd.
		cfg.AppDataDir, err = filepath.Abs(cleanAndExpandPath(preCfg.AppDataDir))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unable to determine working directory: %v", err)
			os.Exit(1)
		}
	}
	isDefaultConfigFile := preCfg.ConfigFile == ""
	if isDefaultConfigFile {
		preCfg.ConfigFile = filepath.Join(cfg.AppDataDir, defaultConfigFilename)
	} else if !filepath.IsAbs(preCfg.ConfigFile) {
		preCfg.ConfigFile = filepath.Join(cfg.AppDataDir, preCfg.ConfigFile)
	}

	// Config file name for logging.
	configFile := "NONE (defaults)"

	// Load additional config from file.
	var configFileError error
	parser := flags.NewParser(&cfg, flags.Default)
	// Do not error default config file is missing.
	if _, err := os.Stat(preCfg.ConfigFile); os.IsNotExist(err) {
		// Non-default config file must exist.
		if !isDefaultConfigFile {
			fmt.Fprintln(os.Stderr, err)
			return loadConfigError(err)
		}
		// Warn about missing default config file, but continue.
		fmt.Printf("Config file (%s) does not exist. Using defaults.\n",
			preCfg.ConfigFile)
	} else {
		// The config file exists, so attempt to parse it.
		err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		if err != nil {
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) {
				fmt.Fprintln(os.Stderr, err)
				parser.WriteHelp(os.Stderr)
				return loadConfigError(err)
			}
			configFileError = err
		}
		configFile = preCfg.ConfigFile
	}

	// Parse command line options again to ensure they take precedence.
	_, err = parser.Parse()
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return loadConfigError(err)
	}

	// Warn about missing config file after the final command line parse
	// succeeds. This prevents the warning on help messages and invalid options.
	if configFileError != nil {
		fmt.Printf("%v\n", configFileError)
		return loadConfigError(configFileError)
	}

	// Select the network.
	var numNets int
	network := dex.Mainnet
	if cfg.Testnet {
		numNets++
		network = dex.Testnet
	}
	if cfg.Simnet {
		numNets++
		network = dex.Simnet
	}
	if numNets > 1 {
		err := fmt.Errorf("both testnet and simnet flags specified")
		fmt.Fprintln(os.Stderr, err)
		return loadConfigError(err)
	}

	// Create the app data directory if it doesn't already exist.
	err = os.MkdirAll(cfg.AppDataDir, 0700)
	if err != nil {
		// Show a nicer error message if it's because a symlink is linked to a
		// directory that does not exist (probably because it's not mounted).
		var e *os.PathError
		if errors.As(err, &e) && os.IsExist(err) {
			if link, lerr := os.Readlink(e.Path); lerr == nil {
				str := "is symlink %s -> %s mounted?"
				err = fmt.Errorf(str, e.Path, link)
			}
		}

		err := fmt.Errorf("failed to create home directory: %v", err)
		fmt.Fprintln(os.Stderr, err)
		return loadConfigError(err)
	}

	// If datadir or logdir are defaults or non-default relative paths, prepend
	// the appdata directory.
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(cfg.AppDataDir, defaultDataDirname)
	} else if !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(cfg.AppDataDir, cfg.DataDir)
	}
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.AppDataDir, defaultLogDirname)
	} else if !filepath.IsAbs(cfg.LogDir) {
		cfg.LogDir = filepath.Join(cfg.AppDataDir, cfg.LogDir)
	}

	// Append the network type to the data directory so it is "namespaced" per
	// network. The ledger of one network must never be used for another.
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.DataDir = filepath.Join(cfg.DataDir, network.String())
	// Create the data folder if it does not exist.
	err = os.MkdirAll(cfg.DataDir, 0700)
	if err != nil {
		return loadConfigError(err)
	}

	logRotator = nil
	// Append the network type to the log directory so it is "namespaced"
	// per network in the same fashion as the data directory.
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.LogDir = filepath.Join(cfg.LogDir, network.String())

	// Ensure that all specified files are absolute paths, prepending the
	// appdata path if not.
	for _, path := range []*string{&cfg.GenesisPath, &cfg.BatchPath, &cfg.ResultsPath} {
		if *path == "" {
			continue
		}
		*path = cleanAndExpandPath(*path)
		if !filepath.IsAbs(*path) {
			*path = filepath.Join(cfg.AppDataDir, *path)
		}
	}

	// Initialize log rotation. After log rotation has been initialized, the
	// logger variables may be used. This creates the LogDir if needed.
	if cfg.MaxLogZips < 0 {
		cfg.MaxLogZips = 0
	}
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename), cfg.MaxLogZips)

	log.Infof("App data folder: %s", cfg.AppDataDir)
	log.Infof("Data folder:     %s", cfg.DataDir)
	log.Infof("Log folder:      %s", cfg.LogDir)
	log.Infof("Config file:     %s", configFile)

	// Parse, validate, and set debug log level(s).
	logMaker, err := parseAndSetDebugLevels(cfg.DebugLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return loadConfigError(err)
	}

	engineAddr, err := parseAddress(cfg.EngineAddress, "engine address")
	if err != nil {
		return loadConfigError(err)
	}
	feeAsset, err := parseAddress(cfg.FeeAsset, "fee asset")
	if err != nil {
		return loadConfigError(err)
	}
	if feeAsset == (common.Address{}) {
		return loadConfigError(errors.New("a fee asset is required"))
	}
	if cfg.MaxRingSize < ring.MinRingSize {
		return loadConfigError(fmt.Errorf("max ring size %d is less than %d",
			cfg.MaxRingSize, ring.MinRingSize))
	}
	cvsThreshold, err := parseThreshold(cfg.CVSThreshold)
	if err != nil {
		return loadConfigError(err)
	}

	dbCfg, err := dbConf(&cfg, cfg.DataDir)
	if err != nil {
		return loadConfigError(err)
	}

	rc := &ringConf{
		DexConf: &dexsrv.DexConf{
			Network:       network,
			DBConf:        dbCfg,
			EngineAddress: engineAddr,
			FeeAsset:      feeAsset,
			MaxRingSize:   cfg.MaxRingSize,
			CVSThreshold:  cvsThreshold,
			ClaimExpiry:   cfg.ClaimExpiry,
		},
		GenesisPath: cfg.GenesisPath,
		BatchPath:   cfg.BatchPath,
		ResultsPath: cfg.ResultsPath,
		LogMaker:    logMaker,
	}

	opts := &procOpts{
		CPUProfile: cfg.CPUProfile,
	}

	return rc, opts, nil
}
