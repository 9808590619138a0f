package config

import (
	"flag"
	"fmt"

	log "github.com/sirupsen/logrus"
)

var (
	Mode = flag.String("mode", "DEV", "logging mode, DEV or PROD")
)

// InitLog configures the global logger from Mode. It must be called after
// flag.Parse.
func InitLog() {
	if err := setupLog(*Mode); err != nil {
		panic(err)
	}
}

func setupLog(mode string) error {
	switch mode {
	case "DEV":
		log.SetLevel(log.DebugLevel)
		log.SetFormatter(&log.TextFormatter{
			ForceColors: true,
		})
	case "PROD":
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown environment %q", mode)
	}
	return nil
}
