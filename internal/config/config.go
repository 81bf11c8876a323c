package config

import (
	"encoding/xml"
	"io"
	"os"
	"sync"
)

var (
	cfg  *APIConfig
	once sync.Once
)

// APIConfig represents the root element.
type APIConfig struct {
	XMLName     xml.Name         `xml:"API"`
	RequestDump bool             `xml:"REQUEST_DUMP,attr"`
	Context     ContextConfig    `xml:"CONTEXT"`
	Exam        ExamConfig       `xml:"EXAM"`
	Pagination  PaginationConfig `xml:"PAGINATION"`
	DB          DBConfig         `xml:"DB"`
}

// ContextConfig holds basic server settings.
type ContextConfig struct {
	Port     int    `xml:"PORT"`
	Host     string `xml:"HOST"`
	Path     string `xml:"PATH"`
	TimeZone string `xml:"TIME_ZONE"`
}

// ExamConfig holds exam-token and rate-limit settings.
type ExamConfig struct {
	TokenTTLMinutes  int     `xml:"TOKEN_TTL_MINUTES"`
	TokenIssuePerSec float64 `xml:"TOKEN_ISSUE_PER_SEC"`
	TokenIssueBurst  int     `xml:"TOKEN_ISSUE_BURST"`
}

// PaginationConfig holds pagination settings.
type PaginationConfig struct {
	PageSize int `xml:"PAGE_SIZE"`
}

// DBConfig holds database connection settings.
type DBConfig struct {
	Initialize bool         `xml:"INITIALIZE"`
	Host       string       `xml:"HOST"`
	Port       int          `xml:"PORT"`
	Driver     string       `xml:"DRIVER"`
	SSLMode    string       `xml:"SSL_MODE"`
	Name       string       `xml:"NAME"`
	Username   string       `xml:"USERNAME"`
	Password   DBPassword   `xml:"PASSWORD"`
	Pool       DBPoolConfig `xml:"POOL"`
}

// DBPassword holds password details. Type selects how the value is sourced:
// "plain" uses the element text, "env" reads the named environment variable,
// "prompt" asks on the terminal at startup.
type DBPassword struct {
	Type  string `xml:"TYPE,attr"`
	Value string `xml:",chardata"`
}

// DBPoolConfig holds database connection pooling settings.
type DBPoolConfig struct {
	MaxOpenConns    int `xml:"MAX_OPEN_CONNS"`
	MaxIdleConns    int `xml:"MAX_IDLE_CONNS"`
	ConnMaxLifetime int `xml:"CONN_MAX_LIFETIME"`
}

// LoadConfig loads and parses the XML configuration from the given file.
func LoadConfig(xmlPath string) (*APIConfig, error) {
	var loadErr error
	once.Do(func() {
		f, err := os.Open(xmlPath)
		if err != nil {
			loadErr = err
			return
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			loadErr = err
			return
		}

		var newCfg APIConfig
		if err := xml.Unmarshal(data, &newCfg); err != nil {
			loadErr = err
			return
		}

		applyDefaults(&newCfg)
		cfg = &newCfg
	})

	if loadErr != nil {
		return nil, loadErr
	}
	if cfg == nil {
		return nil, os.ErrInvalid
	}
	return cfg, nil
}

func applyDefaults(c *APIConfig) {
	if c.Exam.TokenTTLMinutes <= 0 {
		c.Exam.TokenTTLMinutes = 10
	}
	if c.Exam.TokenIssuePerSec <= 0 {
		c.Exam.TokenIssuePerSec = 1
	}
	if c.Exam.TokenIssueBurst <= 0 {
		c.Exam.TokenIssueBurst = 5
	}
	if c.Pagination.PageSize <= 0 {
		c.Pagination.PageSize = 20
	}
}

// GetConfig returns the loaded configuration.
func GetConfig() *APIConfig {
	return cfg
}
