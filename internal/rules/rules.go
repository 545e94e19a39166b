// Package rules evaluates sensor readings against fixed clinical and
// environmental thresholds. Evaluation is pure: it touches no storage and
// never fails.
package rules

import (
	"fmt"

	"github.com/HerbHall/havenwatch/pkg/models"
)

// Thresholds. A reading must strictly cross a bound to raise an alert.
const (
	HeartRateHigh   = 100
	HeartRateLow    = 55
	BloodOxygenLow  = 92
	SystolicHigh    = 140
	DiastolicHigh   = 90
	TemperatureHigh = 30.0
	TemperatureLow  = 15.0
	HumidityHigh    = 70
	HumidityLow     = 30
	AirQualityLow   = 50
	GasLevelHigh    = 50
)

// Candidate is an alert the engine wants raised. It has no identity or
// status until the alert manager persists it.
type Candidate struct {
	Type     models.AlertType
	Severity models.Severity
	Message  string
}

// EvaluateHealth returns the candidates raised by one health reading, in
// heart rate, blood oxygen, blood pressure order. Blood pressure text that
// does not parse as "S/D" is skipped.
func EvaluateHealth(r models.HealthReading, name string) []Candidate {
	var out []Candidate

	switch {
	case r.HeartRate > HeartRateHigh:
		out = append(out, health(models.SeverityHigh,
			"High heart rate detected for %s: %d bpm", name, r.HeartRate))
	case r.HeartRate < HeartRateLow:
		out = append(out, health(models.SeverityHigh,
			"Low heart rate detected for %s: %d bpm", name, r.HeartRate))
	}

	if r.BloodOxygen < BloodOxygenLow {
		out = append(out, health(models.SeverityCritical,
			"Low blood oxygen detected for %s: %d%%", name, r.BloodOxygen))
	}

	if sys, dia, ok := models.ParseBloodPressure(r.BloodPressure); ok {
		if sys > SystolicHigh || dia > DiastolicHigh {
			out = append(out, health(models.SeverityMedium,
				"High blood pressure detected for %s: %d/%d mmHg", name, sys, dia))
		}
	}

	return out
}

// EvaluateEnvironment returns the candidates raised by one environment
// reading, in temperature, humidity, air quality, gas level order.
func EvaluateEnvironment(r models.EnvironmentReading, name string) []Candidate {
	var out []Candidate

	switch {
	case r.RoomTemperature > TemperatureHigh:
		out = append(out, environment(models.SeverityMedium,
			"High room temperature detected for %s: %.1f°C", name, r.RoomTemperature))
	case r.RoomTemperature < TemperatureLow:
		out = append(out, environment(models.SeverityMedium,
			"Low room temperature detected for %s: %.1f°C", name, r.RoomTemperature))
	}

	switch {
	case r.Humidity > HumidityHigh:
		out = append(out, environment(models.SeverityLow,
			"High humidity detected for %s: %d%%", name, r.Humidity))
	case r.Humidity < HumidityLow:
		out = append(out, environment(models.SeverityLow,
			"Low humidity detected for %s: %d%%", name, r.Humidity))
	}

	if r.AirQuality < AirQualityLow {
		out = append(out, environment(models.SeverityMedium,
			"Poor air quality detected for %s: %d/100", name, r.AirQuality))
	}

	if r.GasLevel > GasLevelHigh {
		out = append(out, environment(models.SeverityCritical,
			"High gas level detected for %s: %d%%", name, r.GasLevel))
	}

	return out
}

func health(sev models.Severity, format string, args ...any) Candidate {
	return Candidate{Type: models.AlertTypeHealth, Severity: sev, Message: fmt.Sprintf(format, args...)}
}

func environment(sev models.Severity, format string, args ...any) Candidate {
	return Candidate{Type: models.AlertTypeEnvironment, Severity: sev, Message: fmt.Sprintf(format, args...)}
}
