package util

import (
	"encoding/json"
	"fmt"
	"os"
	"rankbacktest/internal/logger"
)

type Secrets struct {
	Db   *DbSecrets `json:"db,omitempty"`
	Port int        `json:"port,omitempty"`
}

type DbSecrets struct {
	Host      string `json:"host"`
	User      string `json:"user"`
	Port      string `json:"port"`
	Password  string `json:"password"`
	Database  string `json:"database"`
	EnableSsl bool   `json:"enableSsl"`
}

func (t DbSecrets) ToConnectionStr() string {
	x := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s",
		t.Host, t.Port, t.User, t.Password, t.Database)
	if !t.EnableSsl {
		x += " sslmode=disable"
	}
	return x
}

// SecretsFileKey overrides the env-derived secrets path.
const SecretsFileKey = "RANKBACKTEST_SECRETS"

func secretsPath() string {
	if p := os.Getenv(SecretsFileKey); p != "" {
		return p
	}
	switch os.Getenv(logger.EnvKey) {
	case "dev":
		return "secrets-dev.json"
	case "test":
		return "secrets-test.json"
	}
	return "/go/src/app/secrets.json"
}

func LoadSecrets() (*Secrets, error) {
	secretsFile := secretsPath()
	f, err := os.ReadFile(secretsFile)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", secretsFile, err)
	}

	secrets := Secrets{}
	err = json.Unmarshal(f, &secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", secretsFile, err)
	}

	return &secrets, nil
}
