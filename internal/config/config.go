package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Bus         BusConfig         `mapstructure:"bus"`
	VectorIndex VectorIndexConfig `mapstructure:"vectorindex"`
	BehaviorLog BehaviorLogConfig `mapstructure:"behaviorlog"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Graph       GraphConfig       `mapstructure:"graph"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	Recommend   RecommendConfig   `mapstructure:"recommendation"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type BusConfig struct {
	Brokers                 []string `mapstructure:"brokers"`
	ConsumerGroup           string   `mapstructure:"consumer_group"`
	PrefetchLimit           int      `mapstructure:"prefetch_limit"`
	RecommendByUserQueue    string   `mapstructure:"recommend_by_user_queue"`
	SetUserDescriptionQueue string   `mapstructure:"set_user_description_queue"`
	DLQSuffix               string   `mapstructure:"dlq_suffix"`
}

type VectorIndexConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	APIKey           string        `mapstructure:"api_key"`
	EventsCollection string        `mapstructure:"events_collection"`
	UsersCollection  string        `mapstructure:"users_collection"`
	VectorSize       int           `mapstructure:"vector_size"`
	OnDisk           bool          `mapstructure:"on_disk"`
	RecencyWindow    time.Duration `mapstructure:"recency_window"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

type BehaviorLogConfig struct {
	Addr     string `mapstructure:"addr"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type CatalogConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type GraphConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type EmbeddingConfig struct {
	PythonPath  string        `mapstructure:"python_path"`
	ModelName   string        `mapstructure:"model_name"`
	Dimensions  int           `mapstructure:"dimensions"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	RedisAddr   string        `mapstructure:"redis_addr"`
}

// RecommendConfig names every tunable spec.md §4 describes as a fixed
// constant, so the blend quotas and generator bounds are configuration,
// not magic numbers scattered through the code.
type RecommendConfig struct {
	StaticLimit                         int           `mapstructure:"static_limit"`
	DynamicLookback                     time.Duration `mapstructure:"dynamic_lookback"`
	DynamicConsideredInteractions       int           `mapstructure:"dynamic_considered_interactions"`
	ExplicitCoefficient                 int           `mapstructure:"explicit_coefficient"`
	DynamicExtraCandidates              int           `mapstructure:"dynamic_extra_candidates"`
	CollaborativeLookback               time.Duration `mapstructure:"collaborative_lookback"`
	CollaborativeConsideredInteractions int           `mapstructure:"collaborative_considered_interactions"`
	CollaborativePerEventLimit          int           `mapstructure:"collaborative_per_event_limit"`
	CollaborativeLimit                  int           `mapstructure:"collaborative_limit"`
	DecayRate                           float64       `mapstructure:"decay_rate"`
	JitterAmplitude                     float64       `mapstructure:"jitter_amplitude"`
	MinByGroup                          int           `mapstructure:"min_by_group"`
	BlendLimit                          int           `mapstructure:"blend_limit"`
	GeneratorTimeout                    time.Duration `mapstructure:"generator_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Port        string `mapstructure:"port"`
	MetricsPath string `mapstructure:"metrics_path"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	viper.SetDefault("bus.consumer_group", "recommender")
	viper.SetDefault("bus.prefetch_limit", 10)
	viper.SetDefault("bus.recommend_by_user_queue", "recommendations.requests.by_user")
	viper.SetDefault("bus.set_user_description_queue", "resonanse_api.requests.set_user_description")
	viper.SetDefault("bus.dlq_suffix", ".dlq")

	viper.SetDefault("vectorindex.port", 6334)
	viper.SetDefault("vectorindex.events_collection", "events_collection")
	viper.SetDefault("vectorindex.users_collection", "users_collection")
	viper.SetDefault("vectorindex.vector_size", 384)
	viper.SetDefault("vectorindex.on_disk", true)
	viper.SetDefault("vectorindex.recency_window", "4320h") // 180 days
	viper.SetDefault("vectorindex.request_timeout", "2s")

	viper.SetDefault("behaviorlog.database", "resonanse")

	viper.SetDefault("catalog.max_connections", 10)
	viper.SetDefault("catalog.connect_timeout", "10s")

	viper.SetDefault("graph.enabled", false)

	viper.SetDefault("embedding.python_path", "python3")
	viper.SetDefault("embedding.model_name", "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2")
	viper.SetDefault("embedding.dimensions", 384)
	viper.SetDefault("embedding.cache_ttl", "24h")
	viper.SetDefault("embedding.call_timeout", "3s")
	viper.SetDefault("embedding.redis_addr", "localhost:6379")

	viper.SetDefault("recommendation.static_limit", 10)
	viper.SetDefault("recommendation.dynamic_lookback", "168h") // 7 days
	viper.SetDefault("recommendation.dynamic_considered_interactions", 100)
	viper.SetDefault("recommendation.explicit_coefficient", 5)
	viper.SetDefault("recommendation.dynamic_extra_candidates", 10)
	viper.SetDefault("recommendation.collaborative_lookback", "168h")
	viper.SetDefault("recommendation.collaborative_considered_interactions", 100)
	viper.SetDefault("recommendation.collaborative_per_event_limit", 10)
	viper.SetDefault("recommendation.collaborative_limit", 10)
	viper.SetDefault("recommendation.decay_rate", 0.002)
	viper.SetDefault("recommendation.jitter_amplitude", 0.03)
	viper.SetDefault("recommendation.min_by_group", 2)
	viper.SetDefault("recommendation.blend_limit", 10)
	viper.SetDefault("recommendation.generator_timeout", "1500ms")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.port", "9090")
	viper.SetDefault("monitoring.metrics_path", "/metrics")
}
