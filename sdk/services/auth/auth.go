// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package auth persists API credentials and validates them against the
// backend.
package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/viper"

	"github.com/elpelech/kagglehub/sdk/config"
	"github.com/elpelech/kagglehub/sdk/kerrors"
	"github.com/elpelech/kagglehub/sdk/utils"
)

// Login stores the given credentials in the Viper state and persists them to
// the INI, after checking them against the authenticated hello endpoint.
func Login(ctx context.Context, username, key string) error {
	if username == "" || key == "" {
		return &kerrors.ValidationError{Message: "both a username and an API key are required"}
	}

	conf, err := config.LoadConfig()
	if err != nil {
		return err
	}
	conf.Api.Username = username
	conf.Api.Key = key

	if err := verify(ctx, conf); err != nil {
		return err
	}

	viper.Set(utils.KaggleUsername, username)
	viper.Set(utils.KaggleKey, key)
	if err := config.UpdateIniFromStruct(config.IniPath(), viper.GetString(utils.CurrentEnvironment)); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}

	utils.Infof("Credentials for %s saved to %s", username, utils.DisplayPath(config.IniPath()))
	return nil
}

// Whoami returns the username the current configuration authenticates as.
func Whoami(ctx context.Context) (string, error) {
	conf, err := config.LoadConfig()
	if err != nil {
		return "", err
	}
	if err := verify(ctx, conf); err != nil {
		return "", err
	}
	username, _, err := conf.Credentials()
	return username, err
}

// verify calls the authenticated hello endpoint; a 401/403 surfaces as an
// UnauthenticatedError from the transport.
func verify(ctx context.Context, conf config.Config) error {
	if _, _, err := conf.Credentials(); err != nil {
		return err
	}
	api := config.NewApiHTTP(nil, conf.Api)
	body, _, err := api.Do(ctx, "GET", api.BuildURL([]string{"hello"}, nil), nil)
	if err != nil {
		return err
	}

	// some deployments report auth failures inside a 2xx body
	var m map[string]any
	if json.Unmarshal(body, &m) == nil {
		if code, ok := m["code"].(float64); ok && int(code) == 401 {
			msg, _ := m["message"].(string)
			if msg == "" {
				msg = "invalid credentials"
			}
			return &kerrors.UnauthenticatedError{Message: msg}
		}
	}
	return nil
}
