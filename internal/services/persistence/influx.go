package persistence

import (
	"context"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxConfig selects the bucket the dashboards read from.
type InfluxConfig struct {
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

// Enabled reports whether enough is configured to write points.
func (c InfluxConfig) Enabled() bool {
	return c.InfluxURL != "" && c.InfluxToken != "" && c.InfluxOrg != "" && c.InfluxBucket != ""
}

// Sink receives every stored sample.
type Sink interface {
	Write(ctx context.Context, s Sample) error
}

// InfluxSink writes one point per sample: measurement <kind>, tags
// sensor_id and plant_id, field value.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

func NewInfluxSink(client influxdb2.Client, cfg InfluxConfig) *InfluxSink {
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
	}
}

func (s *InfluxSink) Write(ctx context.Context, smp Sample) error {
	tags := map[string]string{
		"sensor_id": strconv.Itoa(smp.SensorID),
		"plant_id":  strconv.Itoa(smp.PlantID),
	}
	fields := map[string]interface{}{
		"value": smp.Value,
	}
	point := influxdb2.NewPoint(string(smp.Measurement), tags, fields, smp.Time)
	return s.writeAPI.WritePoint(ctx, point)
}

func (s *InfluxSink) Close() { s.client.Close() }
