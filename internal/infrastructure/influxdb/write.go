package influxdb

import (
	"strconv"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/climate-bridge/internal/telemetry"
)

// Measurement names.
const (
	MeasurementClimate = "climate"
	MeasurementRelay   = "relay"
	MeasurementStatus  = "device_status"
	MeasurementConfig  = "device_config"
)

// ObserveMessage queues the points for a stored telemetry message. It has the
// telemetry.UpdateObserver signature and never blocks.
func (c *Client) ObserveMessage(msg *telemetry.Message) {
	if !c.IsConnected() {
		return
	}
	for _, p := range Points(c.device, msg) {
		c.writeAPI.WritePoint(p)
	}
}

// Points converts a telemetry message into InfluxDB points stamped with its
// arrival time. Messages without a numeric value yield no points.
func Points(device string, msg *telemetry.Message) []*write.Point {
	tags := map[string]string{"device": device}

	switch v := msg.Value.(type) {
	case telemetry.SensorReading:
		fields := map[string]interface{}{
			"temp":  v.Temp,
			"hum":   v.Hum,
			"alert": v.Alert,
		}
		if v.Setpoint != nil {
			fields["setpoint"] = *v.Setpoint
		}
		return []*write.Point{write.NewPoint(MeasurementClimate, tags, fields, msg.ReceivedAt)}

	case telemetry.RelayStates:
		points := make([]*write.Point, 0, len(v))
		for id := 1; id <= telemetry.RelayCount; id++ {
			st, ok := v.Get(id)
			if !ok {
				continue
			}
			relayTags := map[string]string{"device": device, "relay": strconv.Itoa(id)}
			points = append(points, write.NewPoint(MeasurementRelay, relayTags, map[string]interface{}{
				"state": st.State,
				"mode":  int64(st.Mode),
			}, msg.ReceivedAt))
		}
		return points

	case telemetry.DeviceStatus:
		return []*write.Point{write.NewPoint(MeasurementStatus, tags, map[string]interface{}{
			"online": v.Online(),
			"status": string(v),
		}, msg.ReceivedAt)}

	case telemetry.DeviceConfig:
		fields := map[string]interface{}{}
		addField(fields, "setpoint", v.Setpoint)
		addField(fields, "hysteresis", v.Hysteresis)
		addField(fields, "temp_max", v.TempMax)
		addField(fields, "temp_min", v.TempMin)
		if len(fields) == 0 {
			return nil
		}
		return []*write.Point{write.NewPoint(MeasurementConfig, tags, fields, msg.ReceivedAt)}
	}
	return nil
}

func addField(fields map[string]interface{}, name string, v *float64) {
	if v != nil {
		fields[name] = *v
	}
}
