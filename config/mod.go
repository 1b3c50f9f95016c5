// Package config defines the configuration file of sealbox and the resolution
// of the command inputs.
package config

import (
	"os"
	"path/filepath"
	"time"

	"go.dedis.ch/sealbox/seal/keyserver"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// DefaultPath is the default path of the configuration file.
const DefaultPath = "sealbox.yaml"

// Account is the configuration of the local account.
type Account struct {
	KeyFile string `yaml:"keyfile"`
}

// Ledger is the configuration of the ledger client.
type Ledger struct {
	URL     string        `yaml:"url"`
	Package string        `yaml:"package,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
}

// Seal is the configuration of the threshold encryption service. The servers
// are read from the committee file when they are not listed.
type Seal struct {
	Threshold int                `yaml:"threshold"`
	Committee string             `yaml:"committee,omitempty"`
	Servers   []keyserver.Member `yaml:"servers,omitempty"`
	Timeout   time.Duration      `yaml:"timeout"`
}

// Blob is the configuration of the blob store client.
type Blob struct {
	Publisher  string        `yaml:"publisher"`
	Aggregator string        `yaml:"aggregator"`
	Epochs     int           `yaml:"epochs"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Session is the configuration of the key request sessions.
type Session struct {
	TTL time.Duration `yaml:"ttl"`
}

// Serve is the configuration of the local development network.
type Serve struct {
	Listen  string `yaml:"listen"`
	DataDir string `yaml:"datadir"`
}

// Log is the configuration of the logger.
type Log struct {
	Level string `yaml:"level,omitempty"`
}

// Config is the content of the configuration file.
type Config struct {
	Account Account `yaml:"account"`
	Ledger  Ledger  `yaml:"ledger"`
	Seal    Seal    `yaml:"seal"`
	Blob    Blob    `yaml:"blob"`
	Results string  `yaml:"results"`
	Session Session `yaml:"session"`
	Serve   Serve   `yaml:"serve"`
	Log     Log     `yaml:"log"`
}

// Default returns the configuration that targets a local development network
// with its default settings.
func Default() Config {
	return Config{
		Account: Account{KeyFile: filepath.Join(".sealbox", "account.key")},
		Ledger: Ledger{
			URL:     "http://127.0.0.1:9000/rpc",
			Timeout: 10 * time.Second,
		},
		Seal: Seal{
			Threshold: 2,
			Committee: filepath.Join(".sealbox", "committee.yaml"),
			Timeout:   10 * time.Second,
		},
		Blob: Blob{
			Publisher:  "http://127.0.0.1:9000",
			Aggregator: "http://127.0.0.1:9000",
			Epochs:     5,
			Timeout:    10 * time.Second,
		},
		Results: filepath.Join(".sealbox", "results.yaml"),
		Session: Session{TTL: 10 * time.Minute},
		Serve: Serve{
			Listen:  "127.0.0.1:9000",
			DataDir: filepath.Join(".sealbox", "data"),
		},
	}
}

// Load reads the configuration file. The missing values are set to their
// default. A missing file is the default configuration.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}

	if err != nil {
		return cfg, xerrors.Errorf("failed to read config: %v", err)
	}

	var file Config

	err = yaml.UnmarshalStrict(data, &file)
	if err != nil {
		return cfg, xerrors.Errorf("failed to decode config '%s': %v", path, err)
	}

	cfg.merge(file)

	err = cfg.Validate()
	if err != nil {
		return cfg, xerrors.Errorf("invalid config '%s': %v", path, err)
	}

	return cfg, nil
}

// Save writes the configuration file.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return xerrors.Errorf("failed to encode config: %v", err)
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		return xerrors.Errorf("failed to write config: %v", err)
	}

	return nil
}

// Validate returns an error if a value is out of range.
func (c Config) Validate() error {
	if c.Seal.Threshold < 1 {
		return xerrors.Errorf("invalid threshold %d", c.Seal.Threshold)
	}

	if len(c.Seal.Servers) > 0 && c.Seal.Threshold > len(c.Seal.Servers) {
		return xerrors.Errorf("threshold %d above the %d servers",
			c.Seal.Threshold, len(c.Seal.Servers))
	}

	if c.Blob.Epochs < 1 {
		return xerrors.Errorf("invalid number of epochs %d", c.Blob.Epochs)
	}

	if c.Session.TTL <= 0 {
		return xerrors.Errorf("invalid session TTL %v", c.Session.TTL)
	}

	return nil
}

// Committee returns the committee of key servers, either listed in the
// configuration or read from the committee file.
func (c Config) Committee() (keyserver.Committee, error) {
	if len(c.Seal.Servers) > 0 {
		return keyserver.Committee{Threshold: c.Seal.Threshold, Members: c.Seal.Servers}, nil
	}

	if c.Seal.Committee == "" {
		return keyserver.Committee{}, xerrors.New("no key servers configured")
	}

	committee, err := keyserver.LoadCommittee(c.Seal.Committee)
	if err != nil {
		return committee, err
	}

	committee.Threshold = c.Seal.Threshold

	return committee, nil
}

func (c *Config) merge(o Config) {
	setString(&c.Account.KeyFile, o.Account.KeyFile)

	setString(&c.Ledger.URL, o.Ledger.URL)
	setString(&c.Ledger.Package, o.Ledger.Package)
	setDuration(&c.Ledger.Timeout, o.Ledger.Timeout)

	setInt(&c.Seal.Threshold, o.Seal.Threshold)
	setString(&c.Seal.Committee, o.Seal.Committee)
	setDuration(&c.Seal.Timeout, o.Seal.Timeout)

	if len(o.Seal.Servers) > 0 {
		c.Seal.Servers = o.Seal.Servers
	}

	setString(&c.Blob.Publisher, o.Blob.Publisher)
	setString(&c.Blob.Aggregator, o.Blob.Aggregator)
	setInt(&c.Blob.Epochs, o.Blob.Epochs)
	setDuration(&c.Blob.Timeout, o.Blob.Timeout)

	setString(&c.Results, o.Results)
	setDuration(&c.Session.TTL, o.Session.TTL)

	setString(&c.Serve.Listen, o.Serve.Listen)
	setString(&c.Serve.DataDir, o.Serve.DataDir)

	setString(&c.Log.Level, o.Log.Level)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
