package stationindex

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samirrijal/voltroute/internal/core/domain"
)

// Dataset columns, matched case-insensitively.
const (
	colStationID = "station id"
	colLatitude  = "latitude"
	colLongitude = "longitude"
	colRating    = "reviews (rating)"
	colCost      = "cost (usd/kwh)"
	colCharger   = "charger type"
)

// LoadZip reads the first CSV file inside the zip archive at path.
func LoadZip(path string) ([]domain.Station, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()
	return ReadZip(&zr.Reader)
}

// ReadZip reads the first CSV file in zr.
func ReadZip(zr *zip.Reader) ([]domain.Station, error) {
	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		return ReadCSV(rc)
	}
	return nil, fmt.Errorf("no csv file found inside the zip archive")
}

// ReadCSV parses station rows. Rows without a usable coordinate, placed at
// (0,0), or rated off the 0-5 scale are skipped.
func ReadCSV(r io.Reader) ([]domain.Station, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	for _, required := range []string{colStationID, colLatitude, colLongitude} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	stations := make([]domain.Station, 0, 1024)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		lat, errLat := strconv.ParseFloat(getField(record, cols, colLatitude), 64)
		lon, errLon := strconv.ParseFloat(getField(record, cols, colLongitude), 64)
		if errLat != nil || errLon != nil || (lat == 0 && lon == 0) {
			continue
		}
		pos := domain.GeoPoint{Lat: lat, Lon: lon}
		if pos.Validate() != nil {
			continue
		}

		rating := parseOptional(getField(record, cols, colRating))
		if !domain.ValidRating(rating) {
			continue
		}

		stations = append(stations, domain.Station{
			ID:           getField(record, cols, colStationID),
			Location:     pos,
			Rating:       rating,
			CostPerKWh:   parseOptional(getField(record, cols, colCost)),
			ChargerClass: getField(record, cols, colCharger),
		})
	}
	return stations, nil
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		// Strip BOM from first column
		col = strings.TrimPrefix(col, "\xef\xbb\xbf")
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

func getField(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseOptional(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
