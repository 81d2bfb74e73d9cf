package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisRegistry provides Redis-based service registration. Agents use it to
// announce themselves so operators can inspect the live fleet; the planner's
// capability registry polls agent cards directly and does not depend on it.
type RedisRegistry struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	logger    Logger
}

// NewRedisRegistry creates a Redis registry client and verifies connectivity.
func NewRedisRegistry(redisURL, namespace string, ttl time.Duration) (*RedisRegistry, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL %q: %w: %v", redisURL, ErrInvalidConfiguration, err)
	}

	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 5 * time.Second
	opt.WriteTimeout = 5 * time.Second

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if namespace == "" {
		namespace = "tripmaster"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &RedisRegistry{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
		logger:    &NoOpLogger{},
	}, nil
}

// SetLogger sets the logger used for registration events.
func (r *RedisRegistry) SetLogger(logger Logger) {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	r.logger = logger
}

func (r *RedisRegistry) serviceKey(id string) string {
	return fmt.Sprintf("%s:services:%s", r.namespace, id)
}

func (r *RedisRegistry) capabilityKey(capabilityID string) string {
	return fmt.Sprintf("%s:capabilities:%s", r.namespace, capabilityID)
}

// Register stores the service record with a TTL and indexes its capabilities.
func (r *RedisRegistry) Register(ctx context.Context, info *ServiceInfo) error {
	info.LastSeen = time.Now()

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal registration: %w", err)
	}

	if err := r.client.Set(ctx, r.serviceKey(info.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	for _, cap := range info.Capabilities {
		capKey := r.capabilityKey(cap.CapabilityID)
		if err := r.client.SAdd(ctx, capKey, info.ID).Err(); err != nil {
			continue // index entries are best-effort
		}
		r.client.Expire(ctx, capKey, r.ttl*2)
	}

	r.logger.Debug("Service registered", map[string]interface{}{
		"service_id": info.ID,
		"ttl_sec":    int(r.ttl.Seconds()),
	})
	return nil
}

// Unregister removes the service record and its capability index entries.
func (r *RedisRegistry) Unregister(ctx context.Context, id string) error {
	data, err := r.client.Get(ctx, r.serviceKey(id)).Result()
	if err == nil {
		var info ServiceInfo
		if json.Unmarshal([]byte(data), &info) == nil {
			for _, cap := range info.Capabilities {
				r.client.SRem(ctx, r.capabilityKey(cap.CapabilityID), id)
			}
		}
	}
	return r.client.Del(ctx, r.serviceKey(id)).Err()
}

// ListServices returns all currently registered services.
func (r *RedisRegistry) ListServices(ctx context.Context) ([]*ServiceInfo, error) {
	pattern := fmt.Sprintf("%s:services:*", r.namespace)
	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}

	services := make([]*ServiceInfo, 0, len(keys))
	for _, key := range keys {
		data, err := r.client.Get(ctx, key).Result()
		if err != nil {
			continue // expired between KEYS and GET
		}
		var info ServiceInfo
		if err := json.Unmarshal([]byte(data), &info); err != nil {
			continue
		}
		services = append(services, &info)
	}
	return services, nil
}

// StartHeartbeat re-registers the service at half the TTL interval until the
// context is canceled, keeping the registration alive.
func (r *RedisRegistry) StartHeartbeat(ctx context.Context, info *ServiceInfo) {
	interval := r.ttl / 2
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Register(ctx, info); err != nil {
					r.logger.Warn("Heartbeat registration failed", map[string]interface{}{
						"service_id": info.ID,
						"error":      err.Error(),
					})
				}
			}
		}
	}()
}

// Close releases the Redis connection.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
