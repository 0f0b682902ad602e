package configuration

type Configuration struct {
	HttpAddr string `usage:"HTTP address"`
	Dir      string `usage:"data directory"`

	ReadOnly        bool `usage:"open the database read-only"`
	CreateIfMissing bool `usage:"create the database directory when it does not exist"`
	CacheSize       int  `usage:"btree nodes kept for reuse"`
	WriteBufferSize int  `usage:"journal write buffer in bytes"`
	SyncIntervalMs  int  `usage:"journal fsync interval in milliseconds, 0 syncs every commit"`

	Tables    string `usage:"YAML file with table definitions created on start"`
	Namespace string `usage:"prefix of change notification channels"`
	LogLevel  string `usage:"debug, info, warn or error"`

	ApiKey            string `usage:"API key, empty disables authentication"`
	ApiSecret         string `usage:"API secret"`
	EnableCompression bool   `usage:"gzip responses"`
	HttpsEnabled      bool   `usage:"serve HTTPS"`
	HttpsSelfsigned   bool   `usage:"serve HTTPS with a self-signed certificate"`

	Version    bool `usage:"show version and exit"`
	ShowBanner bool `usage:"show big banner"`
	ShowConfig bool `usage:"print config"`
}

func Default() Configuration {
	return Configuration{
		HttpAddr:        "127.0.0.1:8080",
		Dir:             "data",
		CreateIfMissing: true,
		CacheSize:       32,
		WriteBufferSize: 1024 * 1024,
		SyncIntervalMs:  1000,
		Namespace:       "public",
		LogLevel:        "info",
		ShowBanner:      true,
	}
}
