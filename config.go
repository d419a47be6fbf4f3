package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/horgh/config"
	"github.com/pkg/errors"
)

// Config holds a server's configuration.
type Config struct {
	ListenHost string
	ListenPort string

	// TLS is optional. Both must be set to enable it.
	TLSCert string
	TLSKey  string

	ServerName  string
	ServerInfo  string
	Version     string
	CreatedDate string
	MOTD        string

	MaxNickLength int

	// Period of time to wait before waking the server up to sweep for dead
	// clients (maximum).
	WakeupTime time.Duration

	// Period of time a client can be idle before we send it a PING.
	PingTime time.Duration

	// Period of time a client can be idle before we consider it dead.
	DeadTime time.Duration

	// Default channel modes applied to a channel at creation, e.g. "+nt".
	// Must parse cleanly as a channel mode string (see IsChannelModeString).
	DefaultChannelModes string

	// Oper name to password.
	Opers map[string]string
}

// checkAndParseConfig checks configuration keys are present and in an
// acceptable format.
//
// We parse some values into alternate representations.
//
// This function populates the Directory's Config, including its Opers map.
func (d *Directory) checkAndParseConfig(file string) error {
	configMap, err := config.ReadStringMap(file)
	if err != nil {
		return errors.Wrap(err, "unable to read configuration file")
	}

	requiredKeys := []string{
		"listen-host",
		"listen-port",
		"server-name",
		"server-info",
		"version",
		"created-date",
		"motd",
		"max-nick-length",
		"wakeup-time",
		"ping-time",
		"dead-time",
		"default-channel-modes",
		"opers-config",
	}

	// Check each key we want is present and non-blank.
	for _, key := range requiredKeys {
		v, exists := configMap[key]
		if !exists {
			return fmt.Errorf("missing required key: %s", key)
		}

		if len(v) == 0 {
			return fmt.Errorf("configuration value is blank: %s", key)
		}
	}

	// Populate our struct.

	d.Config.ListenHost = configMap["listen-host"]
	d.Config.ListenPort = configMap["listen-port"]
	d.Config.ServerName = configMap["server-name"]
	d.Config.ServerInfo = configMap["server-info"]
	d.Config.Version = configMap["version"]
	d.Config.CreatedDate = configMap["created-date"]
	d.Config.MOTD = configMap["motd"]

	// TLS is optional: only one key present is a config error.
	tlsCert, hasCert := configMap["tls-cert"]
	tlsKey, hasKey := configMap["tls-key"]
	if hasCert != hasKey {
		return fmt.Errorf("tls-cert and tls-key must both be set, or both unset")
	}
	d.Config.TLSCert = tlsCert
	d.Config.TLSKey = tlsKey

	nickLen64, err := strconv.ParseInt(configMap["max-nick-length"], 10, 8)
	if err != nil {
		return fmt.Errorf("max nick length is not valid: %s", err)
	}
	d.Config.MaxNickLength = int(nickLen64)

	d.Config.WakeupTime, err = time.ParseDuration(configMap["wakeup-time"])
	if err != nil {
		return fmt.Errorf("wakeup time is in invalid format: %s", err)
	}

	d.Config.PingTime, err = time.ParseDuration(configMap["ping-time"])
	if err != nil {
		return fmt.Errorf("ping time is in invalid format: %s", err)
	}

	d.Config.DeadTime, err = time.ParseDuration(configMap["dead-time"])
	if err != nil {
		return fmt.Errorf("dead time is in invalid format: %s", err)
	}

	// Validate the default channel modes using the same mode parser the
	// channel itself uses. This is the same check CHANMODES config
	// validation in a client library would do.
	if !IsChannelModeString(configMap["default-channel-modes"]) {
		return fmt.Errorf("default-channel-modes is not a valid mode string: %s",
			configMap["default-channel-modes"])
	}
	d.Config.DefaultChannelModes = configMap["default-channel-modes"]

	opers, err := config.ReadStringMap(configMap["opers-config"])
	if err != nil {
		return errors.Wrap(err, "unable to load opers config")
	}
	d.Config.Opers = opers

	return nil
}
