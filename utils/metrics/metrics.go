package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Cycle outcomes
const (
	ResultExecuted      = "executed"
	ResultNoOpportunity = "no_opportunity"
	ResultRejected      = "rejected"
	ResultError         = "error"
)

// EngineMetrics tracks the arbitrage loop
type EngineMetrics struct {
	Cycles         *prometheus.CounterVec
	CycleDuration  prometheus.Histogram
	FetchErrors    *prometheus.CounterVec
	Decisions      *prometheus.CounterVec
	Rejections     prometheus.Counter
	Balances       *prometheus.GaugeVec
	Price          *prometheus.GaugeVec
	GasCostUSD     *prometheus.GaugeVec
	Trades         prometheus.Counter
	ProfitUSD      prometheus.Counter
	PortfolioValue prometheus.Gauge
	WinRate        prometheus.Gauge
}

// NewEngineMetrics registers engine metrics on reg
func NewEngineMetrics(namespace string, reg prometheus.Registerer) *EngineMetrics {
	factory := promauto.With(reg)

	return &EngineMetrics{
		Cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of arbitrage cycles by result",
		}, []string{"result"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time taken by one arbitrage cycle",
			Buckets:   prometheus.DefBuckets,
		}),
		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Total number of failed external reads",
		}, []string{"chain", "source"}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Total number of evaluator decisions by reason",
		}, []string{"reason"}),
		Rejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_rejections_total",
			Help:      "Total number of trades rejected at commit time",
		}),
		Balances: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "balance",
			Help:      "Paper balance per chain and asset",
		}, []string{"chain", "asset"}),
		Price: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "base_to_quote_price",
			Help:      "Latest normalized base to quote price per chain",
		}, []string{"chain"}),
		GasCostUSD: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gas_cost_usd",
			Help:      "Latest estimated round trip gas cost per chain in USD",
		}, []string{"chain"}),
		Trades: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Total number of paper trades applied",
		}),
		ProfitUSD: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profit_usd_total",
			Help:      "Cumulative positive net profit in USD",
		}),
		PortfolioValue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_value_usd",
			Help:      "Sum of all balances valued at one USD per unit",
		}),
		WinRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "win_rate",
			Help:      "Share of trades with positive net profit",
		}),
	}
}

// NewRegistry returns a registry carrying the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Serve exposes gatherer on addr/metrics until ctx is done
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
