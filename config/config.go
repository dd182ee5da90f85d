package config

import (
	"os"
	"path"

	"github.com/agorascan/agorascan-node/common/utils"
	"github.com/naoina/toml"
)

type Common struct {
	Level       string `toml:"level"` // alpha, dev, prod
	ServiceName string `toml:"service_name"`
}

type LogInfo struct {
	Path       string `toml:"path"`
	MaxAgeHour int    `toml:"max_age_hour"`
	RotateHour int    `toml:"rotate_hour"`
	AlertURL   string `toml:"alert_url"` // operator webhook for error-level events
}

type Server struct {
	Address     string `toml:"address"`
	Port        int    `toml:"port"`         // public read API
	PrivatePort int    `toml:"private_port"` // write API, reachable from the consensus node only
	IntakeQueue int    `toml:"intake_queue"` // warn threshold for the serial queue depth
}

type Agora struct {
	Endpoint string `toml:"endpoint"` // consensus node base URL
}

type Database struct {
	Driver          string `toml:"driver"` // mysql or sqlite3
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	Name            string `toml:"name"` // database name, or file path for sqlite3
	PoolLimit       int    `toml:"pool_limit"`
	MultiStatements bool   `toml:"multi_statements"`
}

type Pool struct {
	Path string `toml:"path"` // leveldb directory for the tx-pool projection
}

type Consensus struct {
	GenesisTimestamp     int64  `toml:"genesis_timestamp"`
	BlockIntervalSeconds uint64 `toml:"block_interval_seconds"`
	ValidatorCycle       uint64 `toml:"validator_cycle"` // 20 for test nets, 1008 for mainnet
}

type Governance struct {
	Enabled          bool   `toml:"enabled"`
	MetadataEndpoint string `toml:"metadata_endpoint"`
	GraceBlocks      uint64 `toml:"grace_blocks"` // blocks between vote end and tally
}

type Config struct {
	Common     Common
	Server     Server
	Agora      Agora
	Database   Database
	Pool       Pool
	LogInfo    LogInfo
	Consensus  Consensus
	Governance Governance
}

func NewConfig(filepath string) (*Config, error) {
	if filepath == "" {
		workDir, _ := os.Getwd()
		rootDir := utils.FindProjectRoot(workDir)
		filepath = path.Join(rootDir, "config", "config.toml")
	}

	if file, err := os.Open(filepath); err != nil {
		return nil, err
	} else {
		defer file.Close()

		c := new(Config)
		if err := toml.NewDecoder(file).Decode(c); err != nil {
			return nil, err
		} else {
			c.sanitize()
			return c, nil
		}
	}
}

func (p *Config) sanitize() {
	if len(p.LogInfo.Path) > 0 && p.LogInfo.Path[0] == byte('~') {
		p.LogInfo.Path = path.Join(utils.HomeDir(), p.LogInfo.Path[1:])
	}
	if len(p.Pool.Path) > 0 && p.Pool.Path[0] == byte('~') {
		p.Pool.Path = path.Join(utils.HomeDir(), p.Pool.Path[1:])
	}
	if p.Database.Driver == "" {
		p.Database.Driver = "mysql"
	}
	if p.Server.IntakeQueue <= 0 {
		p.Server.IntakeQueue = 1024
	}
	if p.Consensus.BlockIntervalSeconds == 0 {
		p.Consensus.BlockIntervalSeconds = 600
	}
	if p.Consensus.ValidatorCycle == 0 {
		p.Consensus.ValidatorCycle = 1008
	}
	if p.Governance.GraceBlocks == 0 {
		p.Governance.GraceBlocks = 7
	}
}

func (p *Config) GetConfig() *Config {
	return p
}
