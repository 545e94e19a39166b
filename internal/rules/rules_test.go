package rules

import (
	"strings"
	"testing"

	"github.com/HerbHall/havenwatch/pkg/models"
)

const name = "Margaret Hale"

func normalHealth() models.HealthReading {
	return models.HealthReading{HeartRate: 72, BloodPressure: "120/80", BloodOxygen: 97}
}

func normalEnvironment() models.EnvironmentReading {
	return models.EnvironmentReading{RoomTemperature: 21.5, Humidity: 45, AirQuality: 85, GasLevel: 8}
}

func TestEvaluateHealth_NormalReadingRaisesNothing(t *testing.T) {
	if got := EvaluateHealth(normalHealth(), name); len(got) != 0 {
		t.Errorf("EvaluateHealth(normal) = %+v, want none", got)
	}
}

func TestEvaluateEnvironment_NormalReadingRaisesNothing(t *testing.T) {
	if got := EvaluateEnvironment(normalEnvironment(), name); len(got) != 0 {
		t.Errorf("EvaluateEnvironment(normal) = %+v, want none", got)
	}
}

func TestEvaluateHealth_SingleBreach(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.HealthReading)
		severity models.Severity
		message  string
	}{
		{"high heart rate", func(r *models.HealthReading) { r.HeartRate = 120 },
			models.SeverityHigh, "High heart rate detected for Margaret Hale: 120 bpm"},
		{"low heart rate", func(r *models.HealthReading) { r.HeartRate = 50 },
			models.SeverityHigh, "Low heart rate detected for Margaret Hale: 50 bpm"},
		{"low blood oxygen", func(r *models.HealthReading) { r.BloodOxygen = 88 },
			models.SeverityCritical, "Low blood oxygen detected for Margaret Hale: 88%"},
		{"high systolic", func(r *models.HealthReading) { r.BloodPressure = "150/80" },
			models.SeverityMedium, "High blood pressure detected for Margaret Hale: 150/80 mmHg"},
		{"high diastolic", func(r *models.HealthReading) { r.BloodPressure = "130/95" },
			models.SeverityMedium, "High blood pressure detected for Margaret Hale: 130/95 mmHg"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := normalHealth()
			tc.mutate(&r)
			got := EvaluateHealth(r, name)
			if len(got) != 1 {
				t.Fatalf("got %d candidates, want 1: %+v", len(got), got)
			}
			if got[0].Type != models.AlertTypeHealth {
				t.Errorf("Type = %q, want %q", got[0].Type, models.AlertTypeHealth)
			}
			if got[0].Severity != tc.severity {
				t.Errorf("Severity = %q, want %q", got[0].Severity, tc.severity)
			}
			if got[0].Message != tc.message {
				t.Errorf("Message = %q, want %q", got[0].Message, tc.message)
			}
		})
	}
}

func TestEvaluateEnvironment_SingleBreach(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.EnvironmentReading)
		severity models.Severity
		message  string
	}{
		{"high temperature", func(r *models.EnvironmentReading) { r.RoomTemperature = 32.4 },
			models.SeverityMedium, "High room temperature detected for Margaret Hale: 32.4°C"},
		{"low temperature", func(r *models.EnvironmentReading) { r.RoomTemperature = 12.0 },
			models.SeverityMedium, "Low room temperature detected for Margaret Hale: 12.0°C"},
		{"high humidity", func(r *models.EnvironmentReading) { r.Humidity = 85 },
			models.SeverityLow, "High humidity detected for Margaret Hale: 85%"},
		{"low humidity", func(r *models.EnvironmentReading) { r.Humidity = 22 },
			models.SeverityLow, "Low humidity detected for Margaret Hale: 22%"},
		{"poor air quality", func(r *models.EnvironmentReading) { r.AirQuality = 40 },
			models.SeverityMedium, "Poor air quality detected for Margaret Hale: 40/100"},
		{"high gas level", func(r *models.EnvironmentReading) { r.GasLevel = 75 },
			models.SeverityCritical, "High gas level detected for Margaret Hale: 75%"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := normalEnvironment()
			tc.mutate(&r)
			got := EvaluateEnvironment(r, name)
			if len(got) != 1 {
				t.Fatalf("got %d candidates, want 1: %+v", len(got), got)
			}
			if got[0].Type != models.AlertTypeEnvironment {
				t.Errorf("Type = %q, want %q", got[0].Type, models.AlertTypeEnvironment)
			}
			if got[0].Severity != tc.severity {
				t.Errorf("Severity = %q, want %q", got[0].Severity, tc.severity)
			}
			if got[0].Message != tc.message {
				t.Errorf("Message = %q, want %q", got[0].Message, tc.message)
			}
		})
	}
}

func TestEvaluate_BoundariesDoNotAlert(t *testing.T) {
	h := models.HealthReading{HeartRate: 100, BloodPressure: "140/90", BloodOxygen: 92}
	if got := EvaluateHealth(h, name); len(got) != 0 {
		t.Errorf("upper health bounds raised %+v", got)
	}
	h.HeartRate = 55
	if got := EvaluateHealth(h, name); len(got) != 0 {
		t.Errorf("heart rate 55 raised %+v", got)
	}

	e := models.EnvironmentReading{RoomTemperature: 30.0, Humidity: 70, AirQuality: 50, GasLevel: 50}
	if got := EvaluateEnvironment(e, name); len(got) != 0 {
		t.Errorf("upper environment bounds raised %+v", got)
	}
	e.RoomTemperature, e.Humidity = 15.0, 30
	if got := EvaluateEnvironment(e, name); len(got) != 0 {
		t.Errorf("lower environment bounds raised %+v", got)
	}
}

func TestEvaluateHealth_MalformedBloodPressureIsSkipped(t *testing.T) {
	for _, bp := range []string{"", "abc", "120", "120/", "/80", "high/low"} {
		r := normalHealth()
		r.BloodPressure = bp
		if got := EvaluateHealth(r, name); len(got) != 0 {
			t.Errorf("BloodPressure %q raised %+v", bp, got)
		}
	}
}

func TestEvaluateHealth_MultipleBreachesInOrder(t *testing.T) {
	r := models.HealthReading{HeartRate: 130, BloodPressure: "170/110", BloodOxygen: 85}
	got := EvaluateHealth(r, name)
	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got))
	}
	wantPrefixes := []string{"High heart rate", "Low blood oxygen", "High blood pressure"}
	for i, p := range wantPrefixes {
		if !strings.HasPrefix(got[i].Message, p) {
			t.Errorf("candidate[%d] = %q, want prefix %q", i, got[i].Message, p)
		}
	}
}

func TestEvaluateEnvironment_AllBreachesInOrder(t *testing.T) {
	r := models.EnvironmentReading{RoomTemperature: 35.0, Humidity: 90, AirQuality: 20, GasLevel: 80}
	got := EvaluateEnvironment(r, name)
	wantSev := []models.Severity{models.SeverityMedium, models.SeverityLow, models.SeverityMedium, models.SeverityCritical}
	if len(got) != len(wantSev) {
		t.Fatalf("got %d candidates, want %d", len(got), len(wantSev))
	}
	for i, sev := range wantSev {
		if got[i].Severity != sev {
			t.Errorf("candidate[%d].Severity = %q, want %q", i, got[i].Severity, sev)
		}
		if !strings.Contains(got[i].Message, name) {
			t.Errorf("candidate[%d] message %q missing resident name", i, got[i].Message)
		}
	}
}
