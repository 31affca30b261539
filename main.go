package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"voyager.com/tableserver/bot"
	"voyager.com/tableserver/caching"
	"voyager.com/tableserver/game"
	"voyager.com/tableserver/gateway"
	"voyager.com/tableserver/history"
	"voyager.com/tableserver/ledger"
	"voyager.com/tableserver/logging"
	"voyager.com/tableserver/nats"
	"voyager.com/tableserver/poker"
	"voyager.com/tableserver/registry"
	"voyager.com/tableserver/rest"
	"voyager.com/tableserver/simulation"
	"voyager.com/tableserver/timer"
	"voyager.com/tableserver/tournament"
	"voyager.com/tableserver/util"
)

var delayConfigFile *string
var fillBots *bool
var testDeal *bool
var numDeals *uint
var dealPlayers *uint
var dealGameType *string
var mainLogger = logging.GetZeroLogger("main::main", nil)

func init() {
	delayConfigFile = flag.String("delays", "delays.yaml", "YAML file containing pause times")
	fillBots = flag.Bool("fill-bots", true, "seats bots in the free seats of new cash tables")
	testDeal = flag.Bool("test-deal", false, "deals and counts hand categories")
	numDeals = flag.Uint("num-deals", 100000, "number of test deals when -test-deal is set")
	dealPlayers = flag.Uint("deal-players", 6, "players per test deal")
	dealGameType = flag.String("deal-game", string(game.NLH), "game type of the test deals (NLH or PLO)")
}

func main() {
	err := run()
	if err != nil {
		mainLogger.Error().Msg(err.Error())
		os.Exit(1)
	}
}

func run() error {
	logLevel := util.Env.GetZeroLogLogLevel()
	fmt.Printf("Setting log level to %s\n", logLevel)
	zerolog.SetGlobalLevel(logLevel)
	flag.Parse()

	if *testDeal {
		report, err := simulation.Run(simulation.Options{
			GameType:   game.GameType(*dealGameType),
			NumPlayers: int(*dealPlayers),
			NumDeals:   int(*numDeals),
		})
		if err != nil {
			return err
		}
		return report.Render(os.Stdout)
	}

	delays, err := loadDelays(*delayConfigFile)
	if err != nil {
		return err
	}

	store, closeStore, err := historyStore()
	if err != nil {
		return err
	}
	defer closeStore()
	recorder := history.NewRecorder(store)

	balances, closeLedger, err := playerLedger()
	if err != nil {
		return err
	}
	defer closeLedger()

	scheduler := timer.NewController(func(key game.TaskKey, err interface{}) {
		mainLogger.Error().
			Str(logging.TableIDKey, key.TableID).
			Str(logging.TimerPurposeKey, string(key.Purpose)).
			Msgf("Timer task panicked: %v", err)
	})
	defer scheduler.Stop()

	evaluator := poker.NewEvaluator()
	manager := registry.NewManager(registry.Config{
		Scheduler: scheduler,
		Evaluator: evaluator,
		Recorder:  recorder,
		Ledger:    balances,
		Decider:   bot.NewPolicy(bot.DefaultConfig(), evaluator, nil),
		Delays:    delays,
		FillBots:  *fillBots,
	})

	hub := gateway.NewHub(gateway.DefaultConfig(), manager, balances)
	manager.AddListener(hub)
	notifiers := tournament.Notifiers{hub}

	if natsURL := util.Env.GetNatsURL(); natsURL != "" {
		mainLogger.Info().Msgf("NATS URL: %s", natsURL)
		nc, err := natsgo.Connect(natsURL)
		if err != nil {
			return errors.Wrap(err, "Error connecting to NATS server")
		}
		defer nc.Close()
		publisher := nats.NewPublisher(nc)
		manager.AddListener(publisher)
		notifiers = append(notifiers, publisher)
		sub, err := nats.SubscribeActions(nc, manager)
		if err != nil {
			return err
		}
		defer sub.Close()
	} else {
		mainLogger.Info().Msg("NATS_URL is not set. Running without the message bus.")
	}

	coordinator := tournament.NewCoordinator(manager, balances, scheduler, notifiers)
	manager.AddListener(coordinator)

	server := &rest.Server{
		Tables:      manager,
		History:     recorder,
		Ledger:      balances,
		Tournaments: coordinator,
		Websocket:   hub,
	}
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", util.Env.GetHTTPPort()),
		Handler: server.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errc := make(chan error, 1)
	go func() {
		mainLogger.Info().Msgf("Listening on %s", httpServer.Addr)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "HTTP server failed")
		}
		return nil
	case <-ctx.Done():
	}
	mainLogger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		mainLogger.Warn().Err(err).Msg("HTTP server did not shut down cleanly")
	}
	for _, t := range manager.Tables() {
		manager.DestroyTable(t.ID())
	}
	return nil
}

func loadDelays(file string) (game.Delays, error) {
	if util.Env.ShouldDisableDelays() {
		mainLogger.Info().Msg("Delays are disabled")
		return game.NoDelays(), nil
	}
	if _, err := os.Stat(file); os.IsNotExist(err) {
		mainLogger.Info().Msgf("Delay config %s not found. Using defaults.", file)
		return game.DefaultDelays(), nil
	}
	delays, err := game.ParseDelayConfig(file)
	if err != nil {
		return game.Delays{}, errors.Wrap(err, "Error while parsing delay config")
	}
	return delays, nil
}

func historyStore() (history.Store, func(), error) {
	var store history.Store
	closeStore := func() {}
	switch method := util.Env.GetPersistMethod(); method {
	case "redis":
		redisURL := fmt.Sprintf("%s:%d", util.Env.GetRedisHost(), util.Env.GetRedisPort())
		mainLogger.Info().Msgf("Hand history is kept in redis at %s", redisURL)
		rs := history.NewRedisStore(redisURL, util.Env.GetRedisPW(), util.Env.GetRedisDB())
		store = rs
		closeStore = func() { rs.Close() }
	case "memory":
		store = history.NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("unsupported persist method %s", method)
	}
	cached, err := caching.NewHistoryCache(store, util.Env.GetHistoryCacheSize())
	if err != nil {
		return nil, nil, errors.Wrap(err, "Error creating hand history cache")
	}
	return cached, closeStore, nil
}

func playerLedger() (ledger.Ledger, func(), error) {
	defaultBalance := util.Env.GetDefaultBalance()
	switch method := util.Env.GetLedgerMethod(); method {
	case "postgres":
		pl, err := ledger.NewPostgresLedger(util.Env.GetPostgresConnStr(), defaultBalance)
		if err != nil {
			return nil, nil, err
		}
		return pl, func() { pl.Close() }, nil
	case "memory":
		return ledger.NewMemoryLedger(defaultBalance), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported ledger method %s", method)
	}
}
