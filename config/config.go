package config

import "github.com/caarlos0/env/v6"

type Config struct {
    // HTTP server configuration
    HTTP struct {
        // Port the API listens on
        Port string `env:"HTTP_PORT" envDefault:"5250"`

        // Comma-separated list of allowed CORS origins
        AllowedOrigins []string `env:"HTTP_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

        // HMAC secret used to verify caller tokens
        TokenSecret string `env:"HTTP_TOKEN_SECRET" envDefault:"dev-secret"`
    }

    // Neo4j graph store configuration
    Graph struct {
        URI      string `env:"NEO4J_URI" envDefault:"bolt://localhost:7687"`
        Username string `env:"NEO4J_USERNAME" envDefault:"neo4j"`
        Password string `env:"NEO4J_PASSWORD" envDefault:"neo4j"`

        // Radius in meters for NEAR and NEAR_PROPERTY edges
        ProximityRadius float64 `env:"GRAPH_PROXIMITY_RADIUS" envDefault:"500"`
    }

    // Redis reservation store configuration
    Redis struct {
        Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
        Password string `env:"REDIS_PASSWORD" envDefault:""`
        DB       int    `env:"REDIS_DB" envDefault:"0"`
    }

    // MongoDB marketplace database (buyer profiles, property listings)
    Mongo struct {
        URI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
        Database string `env:"MONGO_DATABASE" envDefault:"casaviva"`
    }

    // Repair scheduler configuration
    Repair struct {
        // Delay between retries of a failed propagation (in seconds)
        RetryDelay int `env:"REPAIR_RETRY_DELAY" envDefault:"300"`

        // CPU utilization percentage above which retries are deferred
        MaxCPUPercent float64 `env:"REPAIR_MAX_CPU_PERCENT" envDefault:"30"`

        // How often the scheduler checks for due jobs (in seconds)
        TickInterval int `env:"REPAIR_TICK_INTERVAL" envDefault:"30"`
    }

    // Bulk livability scoring configuration
    Scoring struct {
        // Number of property ids per batch
        BatchSize int `env:"SCORING_BATCH_SIZE" envDefault:"100"`

        // Number of concurrent scoring workers
        WorkerCount int `env:"SCORING_WORKER_COUNT" envDefault:"2"`

        // Maximum number of retries for failed batches
        MaxRetries int `env:"SCORING_MAX_RETRIES" envDefault:"3"`

        // Delay between retries in seconds
        RetryDelay int `env:"SCORING_RETRY_DELAY" envDefault:"5"`
    }
}

func LoadConfig() (*Config, error) {
    cfg := &Config{}
    if err := env.Parse(cfg); err != nil {
        return nil, err
    }
    return cfg, nil
}
