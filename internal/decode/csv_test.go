package decode

import (
	"errors"
	"strings"
	"testing"
)

const sampleLog = `model,Mavic Air 2
serial,3N4XK9T001
date,2024-06-02 10:15:00
time(ms),latitude,longitude,altitude(m),speed(m/s),battery(%),satellites,pitch,roll,yaw
0,-33.8600,151.2000,0.0,0.0,100,12,0.0,0.0,180.0
1000,-33.8598,151.2003,5.5,2.1,99,12,-3.2,0.5,181.0
2000,-33.8595,151.2007,,4.0,,13,1.0,,183.0
3000,-33.8591,151.2012,18.0,5.2,97,13,0.2,-0.4,185.0
`

func TestParseCSV(t *testing.T) {
	res, err := ParseCSV(strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("ParseCSV() error: %s", err)
	}

	t.Run("metadata", func(t *testing.T) {
		if res.Meta.DroneModel == nil || *res.Meta.DroneModel != "Mavic Air 2" {
			t.Errorf("model = %v, want Mavic Air 2", res.Meta.DroneModel)
		}
		if res.Meta.DroneSerial == nil || *res.Meta.DroneSerial != "3N4XK9T001" {
			t.Errorf("serial = %v", res.Meta.DroneSerial)
		}
		if res.Meta.StartTime == nil {
			t.Error("start time was not picked up from the date row")
		}
	})

	t.Run("records", func(t *testing.T) {
		if len(res.Records) != 4 {
			t.Fatalf("got %d records, want 4", len(res.Records))
		}

		first := res.Records[0]
		if first.TimestampMs != 0 {
			t.Errorf("first timestamp = %d, want 0", first.TimestampMs)
		}
		if first.Latitude == nil || *first.Latitude != -33.86 {
			t.Errorf("first latitude = %v", first.Latitude)
		}
		if first.Battery == nil || *first.Battery != 100 {
			t.Errorf("first battery = %v", first.Battery)
		}
	})

	t.Run("empty fields become nil channels", func(t *testing.T) {
		rec := res.Records[2]
		if rec.Altitude != nil {
			t.Errorf("altitude = %v, want nil", *rec.Altitude)
		}
		if rec.Battery != nil {
			t.Errorf("battery = %v, want nil", *rec.Battery)
		}
		if rec.Roll != nil {
			t.Errorf("roll = %v, want nil", *rec.Roll)
		}
		if rec.Speed == nil || *rec.Speed != 4.0 {
			t.Errorf("speed = %v, want 4.0", rec.Speed)
		}
	})
}

func TestParseCSVSecondsTime(t *testing.T) {
	log := "time,lat,lon\n0.0,1.0,2.0\n1.5,1.1,2.1\n"
	res, err := ParseCSV(strings.NewReader(log))
	if err != nil {
		t.Fatalf("ParseCSV() error: %s", err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(res.Records))
	}
	if got := res.Records[1].TimestampMs; got != 1500 {
		t.Errorf("timestamp = %d ms, want 1500", got)
	}
}

func TestParseCSVAbsoluteTime(t *testing.T) {
	log := "timestamp,latitude,longitude\n" +
		"2024-06-02T10:15:00Z,1.0,2.0\n" +
		"2024-06-02T10:15:02Z,1.1,2.1\n"

	res, err := ParseCSV(strings.NewReader(log))
	if err != nil {
		t.Fatalf("ParseCSV() error: %s", err)
	}
	if got := res.Records[1].TimestampMs; got != 2000 {
		t.Errorf("timestamp = %d ms, want relative 2000", got)
	}
	if res.Meta.StartTime == nil {
		t.Error("absolute timestamps should set the start time")
	}
}

func TestParseCSVUnordered(t *testing.T) {
	log := "time(ms),lat,lon\n2000,1.2,2.2\n0,1.0,2.0\n1000,1.1,2.1\n"
	res, err := ParseCSV(strings.NewReader(log))
	if err != nil {
		t.Fatalf("ParseCSV() error: %s", err)
	}

	for i := 1; i < len(res.Records); i++ {
		if res.Records[i].TimestampMs < res.Records[i-1].TimestampMs {
			t.Fatalf("records are not time ordered: %d before %d",
				res.Records[i-1].TimestampMs, res.Records[i].TimestampMs)
		}
	}
}

func TestParseCSVMalformedRows(t *testing.T) {
	log := "time(ms),lat,lon\n0,1.0,2.0\nnot-a-time,1.1,2.1\n1000,1.2,2.2\n"
	res, err := ParseCSV(strings.NewReader(log))
	if err != nil {
		t.Fatalf("ParseCSV() error: %s", err)
	}
	if len(res.Records) != 2 {
		t.Errorf("got %d records, want the bad row skipped", len(res.Records))
	}
}

func TestParseCSVNoHeader(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("just,some,junk\n1,2,3\n"))
	if !errors.Is(err, ErrNoHeader) {
		t.Errorf("error = %v, want ErrNoHeader", err)
	}
}
