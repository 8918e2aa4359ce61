package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/haulshare/core/logger"
	coremetrics "github.com/kilianp07/haulshare/core/metrics"
)

// InfluxConfig locates the InfluxDB bucket receiving points.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes allocation and opportunity points to InfluxDB using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig, log logger.Logger) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.OrNop(log),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig, log logger.Logger) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAllocation writes one allocation point per run.
func (s *InfluxSink) RecordAllocation(ev coremetrics.AllocationEvent) error {
	p := write.NewPointWithMeasurement("allocation").
		AddTag("company_id", ev.CompanyID).
		AddTag("component", "allocator").
		AddField("routes", ev.Routes).
		AddField("deliveries", ev.Deliveries).
		AddField("unassigned", ev.Unassigned).
		AddField("mean_utilization", round3(ev.MeanUtilization)).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordOpportunity writes an opportunity lifecycle point.
func (s *InfluxSink) RecordOpportunity(ev coremetrics.OpportunityEvent) error {
	p := write.NewPointWithMeasurement("opportunity").
		AddTag("opportunity_id", ev.OpportunityID).
		AddTag("stage", ev.Stage)
	if ev.HubID != "" {
		p = p.AddTag("hub_id", ev.HubID)
	}
	p = p.AddField("carbon_saved_kg", round3(ev.CarbonSavedKg)).
		AddField("distance_km", round3(ev.DistanceKm)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordSynergySearch writes a synergy search point.
func (s *InfluxSink) RecordSynergySearch(ev coremetrics.SynergySearchEvent) error {
	p := write.NewPointWithMeasurement("synergy_search").
		AddTag("truck_id", ev.TruckID).
		AddField("candidates", ev.Candidates).
		AddField("high_probability", ev.HighProbability).
		SetTime(ev.Time)
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
