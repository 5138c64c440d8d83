// Package export writes measurement series to Parquet files using
// github.com/parquet-go/parquet-go.
package export

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/i474232898/env-timeseries/internal/series"
)

// Row is one exported point. Absent measurements are written as nulls.
type Row struct {
	LocationID string    `parquet:"location_id,snappy"`
	Dataset    string    `parquet:"dataset,snappy,dict"`
	RecordedAt time.Time `parquet:"recorded_at,snappy"`

	Temperature   *float64 `parquet:"temperature,optional,snappy"`
	Humidity      *float64 `parquet:"humidity,optional,snappy"`
	Pressure      *float64 `parquet:"pressure,optional,snappy"`
	WindSpeed     *float64 `parquet:"wind_speed,optional,snappy"`
	WindDirection *float64 `parquet:"wind_direction,optional,snappy"`
	Precipitation *float64 `parquet:"precipitation,optional,snappy"`
	CloudCover    *float64 `parquet:"cloud_cover,optional,snappy"`
	PM10          *float64 `parquet:"pm10,optional,snappy"`
	PM25          *float64 `parquet:"pm2_5,optional,snappy"`
	CO            *float64 `parquet:"co,optional,snappy"`
	CO2           *float64 `parquet:"co2,optional,snappy"`
	NO2           *float64 `parquet:"no2,optional,snappy"`
	SO2           *float64 `parquet:"so2,optional,snappy"`
	O3            *float64 `parquet:"o3,optional,snappy"`
	CH4           *float64 `parquet:"ch4,optional,snappy"`
	UV            *float64 `parquet:"uv,optional,snappy"`
}

// Rows converts a series into export rows, preserving order.
func Rows(locationID, dataset string, points series.Series) []Row {
	rows := make([]Row, 0, len(points))
	for _, p := range points {
		rows = append(rows, Row{
			LocationID:    locationID,
			Dataset:       dataset,
			RecordedAt:    p.Time.UTC(),
			Temperature:   p.Get(series.Temperature),
			Humidity:      p.Get(series.Humidity),
			Pressure:      p.Get(series.Pressure),
			WindSpeed:     p.Get(series.WindSpeed),
			WindDirection: p.Get(series.WindDirection),
			Precipitation: p.Get(series.Precipitation),
			CloudCover:    p.Get(series.CloudCover),
			PM10:          p.Get(series.PM10),
			PM25:          p.Get(series.PM25),
			CO:            p.Get(series.CO),
			CO2:           p.Get(series.CO2),
			NO2:           p.Get(series.NO2),
			SO2:           p.Get(series.SO2),
			O3:            p.Get(series.O3),
			CH4:           p.Get(series.CH4),
			UV:            p.Get(series.UV),
		})
	}
	return rows
}

// Write encodes the series as a Parquet file into w.
func Write(w io.Writer, locationID, dataset string, points series.Series) (int, error) {
	writer := parquet.NewGenericWriter[Row](w)
	rows := Rows(locationID, dataset, points)
	n, err := writer.Write(rows)
	if err != nil {
		_ = writer.Close()
		return n, fmt.Errorf("write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return n, fmt.Errorf("close parquet writer: %w", err)
	}
	return n, nil
}

// WriteFile creates path and writes the series to it.
func WriteFile(path, locationID, dataset string, points series.Series) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	n, err := Write(file, locationID, dataset, points)
	if err != nil {
		return n, err
	}
	return n, file.Sync()
}
