// Package config maps the viper configuration and the environment secrets
// onto the settings of each broadcast component.
package config
