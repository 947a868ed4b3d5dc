package config

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	ConfigFileEnvVar      = "VPKI_CONFIG_FILE"
	DefaultConfigFilePath = "/etc/vpki/config.yml"
)

func DecodeStruct[E any](source interface{}) (E, error) {
	var target E
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &target,
	})
	if err != nil {
		return target, err
	}

	if err := decoder.Decode(source); err != nil {
		var zero E
		return zero, fmt.Errorf("could not decode struct: %w", err)
	}
	return target, nil
}

func EncodeStruct[E any](source E) (map[string]interface{}, error) {
	var target map[string]interface{}
	err := mapstructure.Decode(source, &target)
	if err != nil {
		return nil, fmt.Errorf("could not decode struct: %w", err)
	}
	return target, nil
}

func readConfig[E any](configFilePath string, defaults *E) (*E, error) {
	vp := viper.New()
	defaultsMap := map[string]interface{}{}

	var config E
	if defaults != nil {
		// fields missing in the config file keep their default value
		config = *defaults
		mapstructure.Decode(defaults, &defaultsMap)

		for key, value := range defaultsMap {
			if value != nil && value != "" {
				vp.SetDefault(key, value)
			}
		}
	}

	vp.SetConfigFile(configFilePath)
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error while processing config file: %w", err)
	}

	err := vp.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	return &config, nil
}

// LoadConfig reads the file pointed by VPKI_CONFIG_FILE, falling back to
// the standard path when the variable is unset or the file can not be read.
func LoadConfig[E any](defaults *E) (*E, error) {
	var err error
	var conf *E

	configFileEnv := os.Getenv(ConfigFileEnvVar)
	loadStandardPaths := true

	if configFileEnv != "" {
		loadStandardPaths = false
		log.Infof("loading config file from %s", configFileEnv)
		conf, err = readConfig[E](configFileEnv, defaults)

		if err != nil {
			log.Warnf("failed to load config file specified in ENV '%s' variable. will try to load from standard paths: %s", ConfigFileEnvVar, err)
			loadStandardPaths = true
		}
	} else {
		log.Infof("ENV '%s' variable not set, will try to load from standard paths", ConfigFileEnvVar)
	}

	if loadStandardPaths {
		conf, err = readConfig[E](DefaultConfigFilePath, defaults)
	}
	if err != nil {
		return nil, err
	}

	return conf, nil
}
