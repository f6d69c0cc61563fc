// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Thermoquad/mitp/pkg/config"
	"github.com/Thermoquad/mitp/pkg/transport"
)

const passwordEnv = "MITP_PASSWORD"

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// connectionOptions builds transport options from the connection flags
func connectionOptions() (transport.Options, error) {
	opts := transport.Options{
		Port:        portName,
		Baud:        baudRate,
		URL:         wsURL,
		Username:    wsUsername,
		NoSSLVerify: wsNoSSLVerify,
	}
	if opts.URL == "" && opts.Port == "" {
		if ports, err := transport.ListSerialPorts(); err == nil && len(ports) > 0 {
			return opts, fmt.Errorf("either --port or --url must be specified (available ports: %s)", strings.Join(ports, ", "))
		}
		return opts, errors.New("either --port or --url must be specified")
	}
	if opts.URL != "" && opts.Username != "" {
		password, err := GetPassword()
		if err != nil {
			return opts, err
		}
		opts.Password = password
	}
	return opts, nil
}

// OpenConnection opens either a serial or WebSocket connection based on flags
func OpenConnection() (transport.Connection, string, error) {
	opts, err := connectionOptions()
	if err != nil {
		return nil, "", err
	}
	conn, err := transport.Open(opts)
	if err != nil {
		return nil, "", err
	}
	return conn, opts.Describe(), nil
}

// loadConfig reads the configuration file and lets connection flags replace
// the heat pump channel
func loadConfig() (*config.Config, error) {
	cfg, err := config.Read(configPath)
	if err != nil {
		return nil, err
	}

	if portName != "" || wsURL != "" {
		opts, err := connectionOptions()
		if err != nil {
			return nil, err
		}
		cfg.HeatPump = config.ChannelConfig{
			Port:        opts.Port,
			Baud:        opts.Baud,
			URL:         opts.URL,
			Username:    opts.Username,
			Password:    opts.Password,
			NoSSLVerify: opts.NoSSLVerify,
		}
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
