package decode

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrNoHeader is returned when a log contains no recognizable telemetry
// header row.
var ErrNoHeader = errors.New("no telemetry header found")

type column int

const (
	colTime column = iota
	colLatitude
	colLongitude
	colAltitude
	colSpeed
	colBattery
	colSatellites
	colPitch
	colRoll
	colYaw
)

// columnNames maps normalized header tokens (lowercased, unit suffix
// stripped) to telemetry columns.
var columnNames = map[string]column{
	"time":       colTime,
	"timestamp":  colTime,
	"latitude":   colLatitude,
	"lat":        colLatitude,
	"longitude":  colLongitude,
	"lon":        colLongitude,
	"lng":        colLongitude,
	"altitude":   colAltitude,
	"alt":        colAltitude,
	"height":     colAltitude,
	"speed":      colSpeed,
	"velocity":   colSpeed,
	"battery":    colBattery,
	"satellites": colSatellites,
	"sats":       colSatellites,
	"pitch":      colPitch,
	"roll":       colRoll,
	"yaw":        colYaw,
	"heading":    colYaw,
}

// rowParser consumes csv rows one at a time: metadata key/value rows until
// the header is found, data rows after. It is shared by the direct CSV
// path and the external decoder runner.
type rowParser struct {
	meta    Metadata
	columns map[int]column
	timeMs  bool      // time column carries milliseconds, not seconds
	start   time.Time // first absolute timestamp seen
	started bool
}

// row consumes one csv row. Data rows return a record; metadata and
// header rows return (nil, nil). A data row that cannot be parsed returns
// an error.
func (p *rowParser) row(fields []string) (*Record, error) {
	if p.columns == nil {
		if cols, timeMs, ok := parseHeader(fields); ok {
			p.columns = cols
			p.timeMs = timeMs
			return nil, nil
		}
		p.scanMetadata(fields)
		return nil, nil
	}
	return p.parseRecord(fields)
}

// metadata returns the per-file metadata gathered so far.
func (p *rowParser) metadata() Metadata {
	meta := p.meta
	if meta.StartTime == nil && p.started {
		start := p.start
		meta.StartTime = &start
	}
	return meta
}

// parseHeader recognizes a telemetry header row: it must map a time
// column plus both coordinates.
func parseHeader(fields []string) (cols map[int]column, timeMs bool, ok bool) {
	cols = make(map[int]column, len(fields))
	for i, f := range fields {
		name := strings.ToLower(strings.TrimSpace(f))
		unit := ""
		if j := strings.IndexByte(name, '('); j >= 0 {
			unit = strings.Trim(name[j:], "()")
			name = strings.TrimSpace(name[:j])
		}

		col, known := columnNames[name]
		if !known {
			continue
		}
		cols[i] = col
		if col == colTime && unit == "ms" {
			timeMs = true
		}
	}

	var hasTime, hasLat, hasLon bool
	for _, col := range cols {
		switch col {
		case colTime:
			hasTime = true
		case colLatitude:
			hasLat = true
		case colLongitude:
			hasLon = true
		}
	}
	if !hasTime || !hasLat || !hasLon {
		return nil, false, false
	}
	return cols, timeMs, true
}

// scanMetadata interprets a pre-header row as a key/value pair.
func (p *rowParser) scanMetadata(fields []string) {
	if len(fields) < 2 {
		return
	}

	key := strings.ToLower(strings.TrimSpace(fields[0]))
	value := strings.TrimSpace(fields[1])
	if value == "" {
		return
	}

	switch key {
	case "model", "drone model", "aircraft":
		p.meta.DroneModel = &value
	case "serial", "serial number", "drone serial":
		p.meta.DroneSerial = &value
	case "date", "start", "start time":
		if ts, err := parseTimestamp(value); err == nil {
			p.meta.StartTime = &ts
		}
	}
}

func (p *rowParser) parseRecord(fields []string) (*Record, error) {
	rec := &Record{TimestampMs: -1}

	for idx, col := range p.columns {
		if idx >= len(fields) {
			continue
		}
		value := strings.TrimSpace(fields[idx])
		if value == "" {
			continue
		}

		if col == colTime {
			ms, err := p.parseTime(value)
			if err != nil {
				return nil, fmt.Errorf("parsing time %q: %w", value, err)
			}
			rec.TimestampMs = ms
			continue
		}

		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", value, err)
		}

		switch col {
		case colLatitude:
			rec.Latitude = &f
		case colLongitude:
			rec.Longitude = &f
		case colAltitude:
			rec.Altitude = &f
		case colSpeed:
			rec.Speed = &f
		case colBattery:
			n := int64(f)
			rec.Battery = &n
		case colSatellites:
			n := int64(f)
			rec.Satellites = &n
		case colPitch:
			rec.Pitch = &f
		case colRoll:
			rec.Roll = &f
		case colYaw:
			rec.Yaw = &f
		}
	}

	if rec.TimestampMs < 0 {
		return nil, errors.New("record has no timestamp")
	}
	return rec, nil
}

// parseTime accepts relative numeric timestamps (seconds, or milliseconds
// when the header said so) and absolute RFC 3339 timestamps, which become
// relative to the first one seen.
func (p *rowParser) parseTime(value string) (int64, error) {
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		if p.timeMs {
			return int64(f), nil
		}
		return int64(f * 1000), nil
	}

	ts, err := parseTimestamp(value)
	if err != nil {
		return 0, err
	}
	if !p.started {
		p.start = ts
		p.started = true
	}
	return ts.Sub(p.start).Milliseconds(), nil
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.DateTime, "2006-01-02 15:04:05.000"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// ParseCSV decodes a text flight log. Rows before the header are treated
// as metadata; malformed data rows are skipped. Records are returned
// ordered by timestamp.
func ParseCSV(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var parser rowParser
	var records []*Record

	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}

		rec, err := parser.row(fields)
		if err != nil {
			continue // tolerate individual bad rows
		}
		if rec != nil {
			records = append(records, rec)
		}
	}

	if parser.columns == nil {
		return nil, ErrNoHeader
	}

	slices.SortStableFunc(records, func(a, b *Record) int {
		return cmp.Compare(a.TimestampMs, b.TimestampMs)
	})

	return &Result{Meta: parser.metadata(), Records: records}, nil
}
