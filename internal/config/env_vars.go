package config

import "strings"

type EnvVars struct {
	AppName    string `env:"APP_NAME"     envDefault:"Auth Client"`
	Env        string `env:"ENV"          envDefault:"DEV"`
	LogLevel   string `env:"LOG_LEVEL"    envDefault:"info"`
	DataFolder string `env:"DATA_FOLDER"  envDefault:"./data"`
	APIBaseURL string `env:"API_BASE_URL"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return strings.TrimSpace(e.AppName)
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(strings.TrimSpace(e.Env))
}

func (e EnvVars) GetLogLevel() string {
	return strings.ToLower(strings.TrimSpace(e.LogLevel))
}

func (e EnvVars) GetDataFolder() string {
	return strings.TrimSpace(e.DataFolder)
}

// GetAPIBaseURL returns the resource server base URL without a trailing slash.
func (e EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(strings.TrimSpace(e.APIBaseURL), "/")
}
