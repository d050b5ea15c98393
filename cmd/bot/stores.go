package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"pump-trader/internal/config"
	"pump-trader/internal/engine"
	"pump-trader/internal/events"
	"pump-trader/internal/storage"
	chstore "pump-trader/internal/storage/clickhouse"
	"pump-trader/internal/storage/file"
	"pump-trader/internal/storage/memory"
	"pump-trader/internal/storage/migrations"
	"pump-trader/internal/storage/postgres"
	redisstore "pump-trader/internal/storage/redis"
)

// stores holds every persistence backend the bot writes to.
type stores struct {
	snapshots storage.SnapshotStore
	seenMints storage.SeenMintStore
	sink      storage.TradeSink  // fan-out of every configured sink
	query     storage.TradeStore // the store /api/trades reads
	publisher *events.Publisher
	closers   []io.Closer
	queryRank int
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

func (s *stores) close() {
	for _, c := range s.closers {
		_ = c.Close()
	}
}

// openStores connects the configured backends and runs migrations.
// Seen mints follow the snapshot backend so both survive a restart together.
func openStores(ctx context.Context, cfg config.Config, log zerolog.Logger) (*stores, error) {
	st := &stores{}
	sc := cfg.Storage
	fail := func(err error) (*stores, error) {
		st.close()
		return nil, fmt.Errorf("%w: %w", engine.ErrInitialization, err)
	}

	var pool *postgres.Pool
	needPostgres := sc.SnapshotBackend == config.BackendPostgres || cfg.HasTradeSink(config.BackendPostgres)
	if needPostgres {
		p, err := postgres.NewPool(ctx, sc.PostgresDSN, postgres.WithAppName("pump-trader-"+string(cfg.Mode)))
		if err != nil {
			return fail(err)
		}
		pool = p
		st.closers = append(st.closers, closerFunc(p.Close))
		applied, err := migrations.RunPostgresMigrations(ctx, p)
		if err != nil {
			return fail(err)
		}
		log.Info().Strs("files", applied).Msg("postgres migrations applied")
	}

	switch sc.SnapshotBackend {
	case config.BackendFile:
		st.snapshots = file.NewSnapshotStore(sc.SnapshotPath)
		st.seenMints = memory.NewSeenMintStore()
	case config.BackendRedis:
		rdb, err := redisstore.NewClient(ctx, redisstore.Config{
			Addr:     sc.RedisAddr,
			Password: sc.RedisPassword,
			DB:       sc.RedisDB,
			Prefix:   sc.KeyPrefix,
		})
		if err != nil {
			return fail(err)
		}
		st.closers = append(st.closers, rdb)
		st.snapshots = redisstore.NewSnapshotStore(rdb, sc.KeyPrefix)
		st.seenMints = redisstore.NewSeenMintStore(rdb, sc.KeyPrefix)
	case config.BackendPostgres:
		st.snapshots = postgres.NewSnapshotStore(pool, sc.KeyPrefix)
		st.seenMints = postgres.NewSeenMintStore(pool)
	default:
		st.snapshots = memory.NewSnapshotStore()
		st.seenMints = memory.NewSeenMintStore()
	}

	var sinks storage.MultiSink
	for _, name := range sc.TradeSinks {
		switch strings.ToLower(name) {
		case config.BackendCSV:
			tl := file.NewTradeLog(sc.TradeLogPath)
			sinks = append(sinks, tl)
			st.preferQuery(tl, config.BackendCSV)
		case config.BackendPostgres:
			ts := postgres.NewTradeStore(pool)
			sinks = append(sinks, ts)
			st.preferQuery(ts, config.BackendPostgres)
		case config.BackendClickhouse:
			conn, err := migrations.RunClickhouseMigrations(ctx, sc.ClickhouseDSN)
			if err != nil {
				return fail(err)
			}
			st.closers = append(st.closers, conn)
			ts := chstore.NewTradeStore(conn)
			sinks = append(sinks, ts)
			st.preferQuery(ts, config.BackendClickhouse)
		case config.BackendKafka:
			w := events.NewWriter(events.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
			st.publisher = events.NewPublisher(w, string(cfg.Mode))
			st.closers = append(st.closers, st.publisher)
			sinks = append(sinks, st.publisher)
		case config.BackendMemory:
			ms := memory.NewTradeStore()
			sinks = append(sinks, ms)
			st.preferQuery(ms, config.BackendMemory)
		}
	}
	if st.query == nil {
		ms := memory.NewTradeStore()
		sinks = append(sinks, ms)
		st.query = ms
	}
	st.sink = sinks

	log.Info().
		Str("snapshot_backend", sc.SnapshotBackend).
		Strs("trade_sinks", sc.TradeSinks).
		Msg("storage ready")
	return st, nil
}

// queryPriority orders queryable trade stores; the highest ranked serves /api/trades.
var queryPriority = map[string]int{
	config.BackendMemory:     1,
	config.BackendCSV:        2,
	config.BackendClickhouse: 3,
	config.BackendPostgres:   4,
}

func (s *stores) preferQuery(ts storage.TradeStore, backend string) {
	if s.query == nil || queryPriority[backend] > s.queryRank {
		s.query = ts
		s.queryRank = queryPriority[backend]
	}
}
