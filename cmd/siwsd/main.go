package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/halcyon-id/siws/adapters/events"
	"github.com/halcyon-id/siws/adapters/page"
	"github.com/halcyon-id/siws/adapters/store"
	"github.com/halcyon-id/siws/adapters/tokenizer"
	"github.com/halcyon-id/siws/internal/config"
	"github.com/halcyon-id/siws/ports"
	"github.com/halcyon-id/siws/service"
	"github.com/halcyon-id/siws/transport/http"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg := config.FromEnv()

	// Tokens are only ever verified by this process, so an ephemeral key is
	// fine: restarting invalidates in-flight challenges and sessions, which
	// users recover from by signing in again.
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to generate signing key")
	}

	var kv ports.Store
	var eventPub ports.EventPublisher = events.NopPublisher{}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to parse Redis URL")
		}
		redisClient := redis.NewClient(opts)
		kv = store.NewRedisStore(redisClient)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create Redis publisher")
		}
		eventPub = events.NewWatermillPublisher(publisher)
	} else {
		log.Warn().Msg("REDIS_URL not set, using in-memory store; replay protection does not span instances")
		kv = store.NewMemoryStore()
	}

	renderer, err := page.NewHTMLRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize renderer")
	}

	jwtTokenizer := tokenizer.NewJWTTokenizer(signKey)
	sessions := service.NewSessionService(jwtTokenizer, kv, eventPub, log)
	provider := service.NewProvider(kv, jwtTokenizer, sessions, service.ProviderConfig{
		ChainID:        cfg.ChainID,
		Statement:      cfg.Statement,
		ValidityWindow: cfg.ValidityWindow,
		AllowedWallets: cfg.AllowedWallets,
		ConnectTimeout: cfg.ConnectTimeout,
	}, log)

	router := http.SetupRouter(provider, sessions, renderer, log)

	log.Info().Str("addr", cfg.ListenAddr).Str("chain", cfg.ChainID).Msg("starting siws provider")
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
