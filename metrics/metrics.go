// Package metrics exports bridge activity to prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	Requests         *prometheus.CounterVec
	IssueOutcomes    *prometheus.CounterVec
	Slashed          prometheus.Counter
	Minted           prometheus.Counter
	VaultsRegistered prometheus.Counter

	// set by the expiry watcher and the relay syncer
	ExpiredRedeems prometheus.Gauge
	ExpiredIssues  prometheus.Gauge
	RelayHeight    prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onebtc_requests_total",
				Help: "Issue and redeem state transitions since start.",
			},
			[]string{"kind", "transition"},
		),
		IssueOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onebtc_issue_outcomes_total",
				Help: "Executed issues by payment outcome.",
			},
			[]string{"outcome"},
		),
		Slashed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "onebtc_slashed_collateral_total",
				Help: "Collateral slashed from vaults, in the smallest unit.",
			},
		),
		Minted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "onebtc_minted_total",
				Help: "Pegged tokens minted, in satoshi.",
			},
		),
		VaultsRegistered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "onebtc_vaults_registered_total",
				Help: "Vaults registered since start.",
			},
		),
		ExpiredRedeems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "onebtc_expired_redeems",
				Help: "Pending redeems past their payment period.",
			},
		),
		ExpiredIssues: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "onebtc_expired_issues",
				Help: "Pending issues past their period.",
			},
		),
		RelayHeight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "onebtc_relay_height",
				Help: "Best btc block height known to the relay.",
			},
		),
	}
	m.registry.MustRegister(m.Requests, m.IssueOutcomes, m.Slashed, m.Minted,
		m.VaultsRegistered, m.ExpiredRedeems, m.ExpiredIssues, m.RelayHeight)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe updates the counters for one committed event.
func (m *Metrics) Observe(ev agreement.Event) {
	switch e := ev.(type) {
	case *agreement.VaultRegisteredEvent:
		m.VaultsRegistered.Inc()
	case *agreement.IssueRequestEvent:
		m.Requests.WithLabelValues("issue", "request").Inc()
	case *agreement.IssueCompleteEvent:
		m.Requests.WithLabelValues("issue", "complete").Inc()
		m.IssueOutcomes.WithLabelValues(e.Outcome).Inc()
	case *agreement.IssueCancelEvent:
		m.Requests.WithLabelValues("issue", "cancel").Inc()
	case *agreement.RedeemRequestEvent:
		m.Requests.WithLabelValues("redeem", "request").Inc()
	case *agreement.RedeemCompleteEvent:
		m.Requests.WithLabelValues("redeem", "complete").Inc()
	case *agreement.RedeemCancelEvent:
		m.Requests.WithLabelValues("redeem", "cancel").Inc()
	case *agreement.SlashCollateralEvent:
		m.Slashed.Add(float64(e.Amount))
	case *agreement.MintEvent:
		m.Minted.Add(float64(e.Amount))
	}
}

// Loop consumes events until ctx is done.
func (m *Metrics) Loop(ctx context.Context, ch <-chan agreement.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			m.Observe(ev)
		}
	}
}
