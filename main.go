package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cryptowatch/sentinel/internal/repo"
	"github.com/cryptowatch/sentinel/internal/schedule"
	"github.com/cryptowatch/sentinel/internal/service/alert"
	"github.com/cryptowatch/sentinel/internal/service/exchange"
	"github.com/cryptowatch/sentinel/internal/service/exchange/binance"
	"github.com/cryptowatch/sentinel/internal/service/exchange/coingecko"
	"github.com/cryptowatch/sentinel/internal/service/exchange/cryptocompare"
	"github.com/cryptowatch/sentinel/internal/service/market"
	"github.com/cryptowatch/sentinel/internal/service/monitor"
	"github.com/cryptowatch/sentinel/internal/service/report"
	"github.com/cryptowatch/sentinel/ioc"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func initViper() {

	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.dev.yaml", "specify config file")
	pflag.Parse()

	viper.SetConfigFile(*file)
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s \n", err))
	}

}

type engineOptions struct {
	TickInterval       time.Duration `mapstructure:"tick_interval"`
	ReportScanInterval time.Duration `mapstructure:"report_scan_interval"`
}

func initEngineOptions() engineOptions {
	opts := engineOptions{
		TickInterval:       5 * time.Second,
		ReportScanInterval: time.Minute,
	}
	if err := viper.UnmarshalKey("engine", &opts); err != nil {
		panic(err)
	}
	return opts
}

func main() {
	initViper()

	db := ioc.InitDB()
	if err := repo.InitTables(db); err != nil {
		panic(err)
	}
	taskRepo := repo.NewTaskRepo(db)
	alertRepo := repo.NewAlertRepo(db)
	reportRepo := repo.NewReportRepo(db)

	bian := ioc.InitBinanceCli()
	source := exchange.NewFailoverSource(
		binance.NewPriceSource(bian),
		cryptocompare.NewPriceSource(),
		coingecko.NewPriceSource(),
	)

	gatewayCfg := market.DefaultConfig()
	if err := viper.UnmarshalKey("market", &gatewayCfg); err != nil {
		panic(err)
	}
	gateway := market.NewCachedGateway(source, gatewayCfg)

	channels := ioc.InitChannels()
	alertCfg := alert.DefaultConfig()
	if err := viper.UnmarshalKey("alert", &alertCfg); err != nil {
		panic(err)
	}
	dispatcher := alert.NewDispatcher(alertRepo, taskRepo, alertCfg, channels...)

	engineCfg := monitor.DefaultEngineConfig()
	if err := viper.UnmarshalKey("engine", &engineCfg); err != nil {
		panic(err)
	}
	engine := monitor.NewEngine(taskRepo, gateway, dispatcher, engineCfg)
	reporter := report.NewReporter(reportRepo, gateway, channels...)

	opts := initEngineOptions()
	runner := schedule.NewRunner()
	runner.Schedule(engine, opts.TickInterval)
	runner.Schedule(reporter, opts.ReportScanInterval)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("sentinel started", "tick_interval", opts.TickInterval)
	runner.Start(ctx)
	slog.Info("sentinel stopped")
}
