package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testLog = `model,Mini 4 Pro
serial,QX55001234
time(ms),latitude,longitude,altitude(m),speed(m/s),battery(%),satellites,pitch,roll,yaw
0,-33.8600,151.2000,0.0,0.0,100,12,0.0,0.0,180.0
1000,-33.8598,151.2003,5.5,2.1,99,12,-3.2,0.5,181.0
2000,-33.8595,151.2007,12.0,4.0,98,13,1.0,0.1,183.0
3000,-33.8591,151.2012,18.0,5.2,97,13,0.2,-0.4,185.0
`

func writeTestLog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing test log: %v", err)
	}
	return path
}

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	s := NewSqliteStore(filepath.Join(t.TempDir(), "flights.sqlite"))
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error: %v", err)
		}
	})
	return s
}

func TestImportListDetailDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	logPath := writeTestLog(t, "flight.csv", testLog)

	res, err := s.ImportLog(ctx, logPath)
	if err != nil {
		t.Fatalf("ImportLog() error: %v", err)
	}
	if !res.Success {
		t.Fatalf("import rejected: %s", res.Message)
	}
	if res.PointCount != 4 {
		t.Errorf("point count = %d, want 4", res.PointCount)
	}
	if res.FlightID == nil {
		t.Fatal("import did not return a flight id")
	}

	t.Run("list", func(t *testing.T) {
		flights, err := s.ListFlights(ctx)
		if err != nil {
			t.Fatalf("ListFlights() error: %v", err)
		}
		if len(flights) != 1 {
			t.Fatalf("got %d flights, want 1", len(flights))
		}

		f := flights[0]
		if f.FileName != "flight.csv" {
			t.Errorf("file name = %q", f.FileName)
		}
		if f.DroneModel == nil || *f.DroneModel != "Mini 4 Pro" {
			t.Errorf("model = %v, want Mini 4 Pro", f.DroneModel)
		}
		if f.DurationSecs == nil || *f.DurationSecs != 3.0 {
			t.Errorf("duration = %v, want 3s", f.DurationSecs)
		}
		if f.MaxAltitude == nil || *f.MaxAltitude != 18.0 {
			t.Errorf("max altitude = %v, want 18", f.MaxAltitude)
		}
		if f.MaxSpeed == nil || *f.MaxSpeed != 5.2 {
			t.Errorf("max speed = %v, want 5.2", f.MaxSpeed)
		}
		if f.TotalDistance == nil || *f.TotalDistance <= 0 {
			t.Errorf("total distance = %v, want positive", f.TotalDistance)
		}
		if f.PointCount != 4 {
			t.Errorf("point count = %d, want 4", f.PointCount)
		}
	})

	t.Run("detail", func(t *testing.T) {
		detail, err := s.FlightDetail(ctx, *res.FlightID, 0)
		if err != nil {
			t.Fatalf("FlightDetail() error: %v", err)
		}

		if err := detail.Telemetry.Validate(); err != nil {
			t.Errorf("telemetry channels: %v", err)
		}
		if detail.Telemetry.Len() != 4 {
			t.Fatalf("got %d samples, want 4", detail.Telemetry.Len())
		}
		if got := detail.Telemetry.Time[3]; got != 3.0 {
			t.Errorf("last time = %v, want 3.0", got)
		}
		if len(detail.Track) != 4 {
			t.Errorf("got %d track points, want 4", len(detail.Track))
		}
		if detail.Home == nil {
			t.Fatal("home point not stored")
		}
		if detail.Home.Lat != -33.86 || detail.Home.Lon != 151.2 {
			t.Errorf("home = %+v", detail.Home)
		}
	})

	t.Run("downsampling keeps the last sample", func(t *testing.T) {
		detail, err := s.FlightDetail(ctx, *res.FlightID, 2)
		if err != nil {
			t.Fatalf("FlightDetail() error: %v", err)
		}
		n := detail.Telemetry.Len()
		if n > 2 {
			t.Errorf("got %d samples for a budget of 2", n)
		}
		if got := detail.Telemetry.Time[n-1]; got != 3.0 {
			t.Errorf("last time = %v, want the final sample kept", got)
		}
	})

	t.Run("duplicate import is rejected", func(t *testing.T) {
		dupPath := writeTestLog(t, "copy.csv", testLog)
		dup, err := s.ImportLog(ctx, dupPath)
		if err != nil {
			t.Fatalf("ImportLog() error: %v", err)
		}
		if dup.Success {
			t.Error("duplicate file content was imported twice")
		}
		if !strings.Contains(dup.Message, "already imported") {
			t.Errorf("message = %q", dup.Message)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.DeleteFlight(ctx, *res.FlightID); err != nil {
			t.Fatalf("DeleteFlight() error: %v", err)
		}

		flights, err := s.ListFlights(ctx)
		if err != nil {
			t.Fatalf("ListFlights() error: %v", err)
		}
		if len(flights) != 0 {
			t.Errorf("got %d flights after delete, want 0", len(flights))
		}

		if _, err := s.FlightDetail(ctx, *res.FlightID, 0); err == nil {
			t.Error("detail of a deleted flight did not fail")
		}

		if err := s.DeleteFlight(ctx, *res.FlightID); err == nil {
			t.Error("deleting a missing flight did not fail")
		}
	})
}

func TestDownsample(t *testing.T) {
	series := func(n int) []telemetryData {
		samples := make([]telemetryData, n)
		for i := range samples {
			samples[i] = telemetryData{TimestampMs: int64(i * 100)}
		}
		return samples
	}

	t.Run("never exceeds the budget", func(t *testing.T) {
		for _, tc := range []struct{ n, budget int }{
			{10, 5},
			{10, 9},
			{100, 7},
			{5000, 4999},
			{3, 1},
		} {
			got := downsample(series(tc.n), tc.budget)
			if len(got) > tc.budget {
				t.Errorf("downsample(%d, %d) returned %d samples", tc.n, tc.budget, len(got))
			}
			if last := got[len(got)-1].TimestampMs; last != int64((tc.n-1)*100) {
				t.Errorf("downsample(%d, %d) dropped the final sample, last = %d", tc.n, tc.budget, last)
			}
			if got[0].TimestampMs != 0 && tc.budget > 1 {
				t.Errorf("downsample(%d, %d) dropped the first sample", tc.n, tc.budget)
			}
		}
	})

	t.Run("within budget passes through", func(t *testing.T) {
		samples := series(4)
		if got := downsample(samples, 4); len(got) != 4 {
			t.Errorf("got %d samples, want all 4", len(got))
		}
		if got := downsample(samples, 0); len(got) != 4 {
			t.Errorf("zero budget dropped samples: got %d", len(got))
		}
	})
}

func TestImportFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		s := newTestStore(t)
		res, err := s.ImportLog(ctx, "/nonexistent/flight.csv")
		if err != nil {
			t.Fatalf("ImportLog() error: %v", err)
		}
		if res.Success || res.PointCount != 0 {
			t.Errorf("got %+v, want failure with zero points", res)
		}
	})

	t.Run("no telemetry header", func(t *testing.T) {
		s := newTestStore(t)
		path := writeTestLog(t, "junk.csv", "random,text\nwith,no header\n")
		res, err := s.ImportLog(ctx, path)
		if err != nil {
			t.Fatalf("ImportLog() error: %v", err)
		}
		if res.Success {
			t.Error("headerless file was imported")
		}
	})

	t.Run("unsupported format without decoder", func(t *testing.T) {
		s := newTestStore(t)
		path := writeTestLog(t, "flight.dat", "\x00\x01\x02")
		res, err := s.ImportLog(ctx, path)
		if err != nil {
			t.Fatalf("ImportLog() error: %v", err)
		}
		if res.Success {
			t.Error("binary file was imported without a decoder")
		}
		if !strings.Contains(res.Message, "unsupported") {
			t.Errorf("message = %q", res.Message)
		}
	})
}

func TestImportLargeBatch(t *testing.T) {
	ctx := context.Background()
	s := NewSqliteStore(filepath.Join(t.TempDir(), "flights.sqlite"), WithBatchSize(16))
	defer s.Close()

	var sb strings.Builder
	sb.WriteString("time(ms),latitude,longitude,altitude(m)\n")
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&sb, "%d,%f,%f,%d\n", i*100, -33.86+float64(i)*1e-5, 151.2+float64(i)*1e-5, i)
	}
	path := writeTestLog(t, "long.csv", sb.String())

	res, err := s.ImportLog(ctx, path)
	if err != nil {
		t.Fatalf("ImportLog() error: %v", err)
	}
	if !res.Success || res.PointCount != 100 {
		t.Fatalf("got %+v, want 100 points imported", res)
	}

	detail, err := s.FlightDetail(ctx, *res.FlightID, 0)
	if err != nil {
		t.Fatalf("FlightDetail() error: %v", err)
	}
	if detail.Telemetry.Len() != 100 {
		t.Errorf("got %d samples, want 100", detail.Telemetry.Len())
	}
}
