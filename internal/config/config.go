/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Model    ModelConfig    `mapstructure:"model"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Server   ServerConfig   `mapstructure:"server"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Dialect                        string `mapstructure:"dialect"`
	Path                           string `mapstructure:"path"` // sqlite file path
	Host                           string `mapstructure:"host"`
	Port                           int    `mapstructure:"port"`
	User                           string `mapstructure:"user"`
	Password                       string `mapstructure:"password"`
	DBName                         string `mapstructure:"dbname"`
	SSLMode                        string `mapstructure:"sslmode"`
	CloudSQLInstanceConnectionName string `mapstructure:"cloudsql_instance_connection_name"`
	UsePrivateIP                   bool   `mapstructure:"cloudsql_use_private_ip"`
}

// ModelConfig holds generative model configuration.
type ModelConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Model is the preferred model name. Empty means "walk the default
	// fallback chain".
	Model string `mapstructure:"name"`
}

// PipelineConfig bounds the question-answering pipeline.
type PipelineConfig struct {
	RowCap          int           `mapstructure:"row_cap"`
	TableCap        int           `mapstructure:"table_cap"`
	SampleTables    int           `mapstructure:"sample_tables"`
	SampleRows      int           `mapstructure:"sample_rows"`
	AgentTimeout    time.Duration `mapstructure:"agent_timeout"`
	AgentIterations int           `mapstructure:"agent_iterations"`
}

// ServerConfig holds the HTTP surface configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// GetConfig returns the default configuration. Connection settings are
// overridden by flags in cmd/root.go and by the environment.
func GetConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Dialect: "sqlite",
			Path:    "extended_sample_data.db",
			Host:    "localhost",
			SSLMode: "disable",
		},
		Pipeline: PipelineConfig{
			RowCap:          1000,
			TableCap:        10,
			SampleTables:    3,
			SampleRows:      2,
			AgentTimeout:    15 * time.Second,
			AgentIterations: 3,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load builds a Config from defaults plus the environment. Flags are layered
// on afterwards by the command layer.
func Load() (*Config, error) {
	v := viper.New()

	def := GetConfig()
	v.SetDefault("database.dialect", def.Database.Dialect)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("database.host", def.Database.Host)
	v.SetDefault("database.sslmode", def.Database.SSLMode)
	v.SetDefault("pipeline.row_cap", def.Pipeline.RowCap)
	v.SetDefault("pipeline.table_cap", def.Pipeline.TableCap)
	v.SetDefault("pipeline.sample_tables", def.Pipeline.SampleTables)
	v.SetDefault("pipeline.sample_rows", def.Pipeline.SampleRows)
	v.SetDefault("pipeline.agent_timeout", def.Pipeline.AgentTimeout)
	v.SetDefault("pipeline.agent_iterations", def.Pipeline.AgentIterations)
	v.SetDefault("server.addr", def.Server.Addr)

	v.SetEnvPrefix("SQL_ASSISTANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("model.api_key", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind API key env var: %w", err)
	}
	if err := v.BindEnv("model.name", "SQL_ASSISTANT_MODEL"); err != nil {
		return nil, fmt.Errorf("failed to bind model env var: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return &cfg, nil
}
