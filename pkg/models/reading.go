package models

import (
	"strconv"
	"strings"
	"time"
)

// HealthReading is one vital-sign sample for a resident.
type HealthReading struct {
	ID            int64     `json:"id"`
	ResidentID    int64     `json:"resident_id"`
	HeartRate     int       `json:"heart_rate" example:"72"`
	BloodPressure string    `json:"blood_pressure" example:"120/80"`
	BloodOxygen   int       `json:"blood_oxygen" example:"97"`
	Timestamp     time.Time `json:"timestamp"`
}

// ParseBloodPressure splits "S/D" text into systolic and diastolic values.
// ok is false when the text is not two integers separated by a slash.
func ParseBloodPressure(s string) (systolic, diastolic int, ok bool) {
	left, right, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found {
		return 0, 0, false
	}
	sys, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return 0, 0, false
	}
	dia, err := strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return 0, 0, false
	}
	return sys, dia, true
}

// FormatBloodPressure renders systolic and diastolic values as "S/D".
func FormatBloodPressure(systolic, diastolic int) string {
	return strconv.Itoa(systolic) + "/" + strconv.Itoa(diastolic)
}

// EnvironmentReading is one room-sensor sample for a resident.
type EnvironmentReading struct {
	ID              int64     `json:"id"`
	ResidentID      int64     `json:"resident_id"`
	RoomTemperature float64   `json:"room_temperature" example:"21.5"`
	Humidity        int       `json:"humidity" example:"45"`
	AirQuality      int       `json:"air_quality" example:"85"`
	GasLevel        int       `json:"gas_level" example:"8"`
	Timestamp       time.Time `json:"timestamp"`
}

// HealthAverages summarizes health readings over a window.
type HealthAverages struct {
	ResidentID  int64   `json:"resident_id"`
	Samples     int     `json:"samples"`
	HeartRate   float64 `json:"heart_rate"`
	BloodOxygen float64 `json:"blood_oxygen"`
}

// EnvironmentAverages summarizes environment readings over a window.
type EnvironmentAverages struct {
	ResidentID      int64   `json:"resident_id"`
	Samples         int     `json:"samples"`
	RoomTemperature float64 `json:"room_temperature"`
	Humidity        float64 `json:"humidity"`
	AirQuality      float64 `json:"air_quality"`
	GasLevel        float64 `json:"gas_level"`
}
