// ABOUTME: Config package for the speechbridge client
// ABOUTME: Layered settings and slog setup
// Package config loads client settings with viper.
//
// Sources, lowest priority first: built-in defaults, a yaml config file,
// a .env file in the working directory, SPEECHBRIDGE_-prefixed
// environment variables (SPEECHBRIDGE_TRANSPORT_URL, ...) and
// command-line flags. A token written as "${VAR}" is read from VAR.
//
// Example:
//
//	fs := pflag.NewFlagSet("speechbridge", pflag.ExitOnError)
//	config.RegisterFlags(fs)
//	fs.Parse(os.Args[1:])
//	cfgFile, _ := fs.GetString("config")
//	cfg, err := config.Load(cfgFile, fs)
//	logger := config.SetupLogging(cfg.Logging, os.Stdout)
package config
