package configs

import (
	"flag"
	"os"

	"github.com/vaporchat/vapor/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file location from the --config
// flag, the VAPOR_CONFIG env var, or a list of conventional candidates. An
// empty result means "run on defaults".
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("VAPOR_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"/etc/vapor/config.yaml",
			"/app/config.yaml", // common in Docker
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
