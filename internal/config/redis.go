package config

import (
    "context"
    "crypto/tls"
    "log"
    "net"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the Redis that backs the API rate limiter and
// the run-history cache.  The simulation itself never touches Redis.
// Variables:
//   REDIS_ENABLED – false skips Redis entirely
//   REDIS_ADDR – host:port, overridden by REDIS_HOST and REDIS_PORT together
//   REDIS_PASSWORD, REDIS_DB – credentials and database number
//   REDIS_TLS – connect over TLS
// It returns nil when Redis is disabled or does not answer a ping; callers
// then run without caching and rate limiting.
func NewRedisClient() *redis.Client {
    if !envBool("REDIS_ENABLED", true) {
        return nil
    }
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        addr = net.JoinHostPort(host, port)
    }
    opts := &redis.Options{
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
    }
    if envBool("REDIS_TLS", false) {
        host, _, _ := net.SplitHostPort(addr)
        opts.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(opts)

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        log.Printf("redis: %s unreachable, rate limiting and caching disabled: %v", addr, err)
        _ = client.Close()
        return nil
    }
    return client
}
