package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App      App      `yaml:"app"`
	Database Database `yaml:"database"`
	Allows   Allows   `yaml:"allows"`
	Security Security `yaml:"security"`
	Broker   Broker   `yaml:"broker"`
}

type App struct {
	Name string `yaml:"name"`
	Port string `yaml:"port"`
	Host string `yaml:"host"`
}

type Database struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	Name string `yaml:"name"`
}

type Allows struct {
	Methods []string `yaml:"methods"`
	Origins []string `yaml:"origins"`
	Headers []string `yaml:"headers"`
}

type Security struct {
	EncryptionKey   string `yaml:"encryption_key"`
	MetaVerifyToken string `yaml:"meta_verify_token"`
}

// Broker enables the cross-instance live-update bridge when URL is set.
// With an empty URL fan-out stays in-process only.
type Broker struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

func InitConfig() *Config {
	var configs Config
	file_name, _ := filepath.Abs("./config.yaml")
	yaml_file, _ := os.ReadFile(file_name)
	yaml.Unmarshal(yaml_file, &configs)

	// Override with environment variables if they exist (for Docker)
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		configs.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		configs.Database.Port = dbPort
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		configs.Database.User = dbUser
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		configs.Database.Pass = dbPassword
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		configs.Database.Name = dbName
	}

	// Override app configuration with environment variables
	if appHost := os.Getenv("APP_HOST"); appHost != "" {
		configs.App.Host = appHost
	}
	if appPort := os.Getenv("APP_PORT"); appPort != "" {
		configs.App.Port = appPort
	}
	if appName := os.Getenv("APP_NAME"); appName != "" {
		configs.App.Name = appName
	}

	// Security overrides
	if encKey := os.Getenv("ENCRYPTION_KEY"); encKey != "" {
		configs.Security.EncryptionKey = encKey
	}
	if verifyToken := os.Getenv("META_VERIFY_TOKEN"); verifyToken != "" {
		configs.Security.MetaVerifyToken = verifyToken
	}

	// Broker overrides
	if brokerURL := os.Getenv("BROKER_URL"); brokerURL != "" {
		configs.Broker.URL = brokerURL
	}
	if brokerExchange := os.Getenv("BROKER_EXCHANGE"); brokerExchange != "" {
		configs.Broker.Exchange = brokerExchange
	}
	if configs.Broker.Exchange == "" {
		configs.Broker.Exchange = "inbox.events"
	}

	return &configs
}
