package keybackend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Credential is a username and its password. Password may be an argon2id
// hash as printed by "packway passwd" or a plain value.
type Credential struct {
	Username string `json:"username" yaml:"username" mapstructure:"username"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
}

// LoadCredentialsFromFile loads credentials from a JSON or YAML file.
// Files ending in .json are read as JSON, anything else as YAML.
// The file should contain a list of credentials:
//
//	- username: alice
//	  password: $argon2id$v=19$m=65536,t=1,p=2$...
//	- username: ci
//	  password: plain-secret
//
// Returns a map of username to password.
func LoadCredentialsFromFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var creds []Credential
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &creds)
	} else {
		err = yaml.Unmarshal(data, &creds)
	}
	if err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}

	users := make(map[string]string, len(creds))
	for _, c := range creds {
		if c.Username != "" && c.Password != "" {
			users[c.Username] = c.Password
		}
	}

	return users, nil
}
