package config

type Config struct {
	EnvConfig *EnvConfig
	Accounts  AccountMap
}

func NewConfig() *Config {
	envConfig := LoadEnvConfig()
	accounts := ParseAccountMap(envConfig.Instagram.AccountMapRaw)

	return &Config{
		EnvConfig: envConfig,
		Accounts:  accounts,
	}
}
