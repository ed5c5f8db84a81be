package types

type Neo4jConfig struct {
	Url      string `default:"bolt://localhost:7687"`
	Username string `default:"neo4j"`
	Password string
}

type LogConfig struct {
	Level      string `default:"info"`
	Path       string `default:"console"`
	MaxSizeMB  int    `default:"100"`
	MaxBackups int    `default:"5"`
	MaxAgeDays int    `default:"28"`
}

type ServerConfig struct {
	Addr string `default:":8080"`
	// timeouts in seconds
	ReadTimeout  int `default:"10"`
	WriteTimeout int `default:"30"`
}

type FeedConfig struct {
	// MaxProbes caps binary search probes across all channels of a request.
	MaxProbes int `default:"30"`
	// MaxReads caps item timestamp reads across all channels of a request.
	MaxReads    int `default:"600"`
	Parallelism int `default:"4"`
}

type HealthConfig struct {
	Schedule string `default:"@every 30s"`
}

type Config struct {
	Log    LogConfig
	Neo4j  Neo4jConfig
	Server ServerConfig
	Feed   FeedConfig
	Health HealthConfig
}
