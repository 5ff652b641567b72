// Package config loads the connection profile used by the mbrtuctl command
// line tool: a YAML file on disk, overridden by any flags the user passed.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes how mbrtuctl should open and use a serial connection.
type Profile struct {
	Port        string `yaml:"port"`
	BaudRate    int    `yaml:"baud_rate"`
	DataBits    int    `yaml:"data_bits"`
	Parity      string `yaml:"parity"`
	StopBits    int    `yaml:"stop_bits"`
	FlowControl string `yaml:"flow_control"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	SlaveID     int    `yaml:"slave_id"`
	LogLevel    string `yaml:"log_level"`
}

// Default returns the profile used when no config file is present.
func Default() Profile {
	return Profile{
		Port:        "",
		BaudRate:    115200,
		DataBits:    8,
		Parity:      "none",
		StopBits:    1,
		FlowControl: "none",
		TimeoutMs:   1000,
		SlaveID:     1,
		LogLevel:    "info",
	}
}

// Load reads a profile from path, starting from Default() and overriding
// whichever fields the file sets. A missing file is not an error; it
// yields the default profile.
func Load(path string) (Profile, error) {
	profile := Default()
	if path == "" {
		return profile, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return profile, nil
		}
		return profile, err
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, err
	}
	return profile, nil
}

// Save writes profile to path as YAML.
func Save(path string, profile Profile) error {
	data, err := yaml.Marshal(profile)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
