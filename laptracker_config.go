package laptracker

import (
	"fmt"
	"os"

	"github.com/etcd-io/bbolt"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type Configuration struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Store      StoreConfig      `yaml:"store"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Server     ServerConfig     `yaml:"server"`
}

type HTTPConfig struct {
	Hostname string `yaml:"hostname"`
	BaseURL  string `yaml:"base_url"`
}

type MonitoringConfig struct {
	Enabled bool `yaml:"enabled"`
}

type ServerConfig struct {
	AuditLogging bool `yaml:"audit_logging"`
}

type StoreConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

func (s *StoreConfig) BuildStore() (Store, error) {
	switch s.Type {
	case "boltdb":
		db, err := bbolt.Open(s.Path, 0644, nil)

		if err != nil {
			return nil, err
		}

		return NewBoltStore(db), nil
	case "json":
		return NewJSONStore(s.Path), nil
	default:
		return nil, fmt.Errorf("laptracker: invalid store type (%s), must be either boltdb/json", s.Type)
	}
}

func ReadConfig(location string) (conf *Configuration, err error) {
	f, err := os.Open(location)

	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open config file %s", location)
	}

	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&conf); err != nil {
		return nil, errors.Wrap(err, "couldn't parse config file")
	}

	if conf.HTTP.Hostname == "" {
		conf.HTTP.Hostname = "0.0.0.0:8772"
	}

	return conf, nil
}
