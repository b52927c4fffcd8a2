package store

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/serve_sense/internal/imu"
	"github.com/relabs-tech/serve_sense/internal/packet"
)

func testPacket(session, seq uint16) packet.ServePacket {
	return packet.ServePacket{
		Millis:   uint32(1000 + seq),
		Session:  session,
		Sequence: seq,
		Sample: imu.Sample{
			Ax: 0.5, Ay: -0.25, Az: 0.9844,
			Gx: -12.5, Gy: 249, Gz: 0,
		},
		Flags: packet.FlagCapture,
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "serves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordSample(t *testing.T) {
	db := openTestDB(t)

	for seq := uint16(0); seq < 5; seq++ {
		require.NoError(t, db.RecordSample(testPacket(1, seq)))
	}
	require.NoError(t, db.RecordSample(testPacket(2, 0)))

	n, err := db.SessionSampleCount(1)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = db.SessionSampleCount(2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.SessionSampleCount(9)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRecordSampleRoundtrip(t *testing.T) {
	db := openTestDB(t)

	p := testPacket(7, 42)
	p.Flags |= packet.FlagMarker
	require.NoError(t, db.RecordSample(p))

	var (
		millis, session, sequence int
		ax, gz                    float64
		capture, marker           int
	)
	err := db.QueryRow(
		`SELECT millis, session, sequence, ax, gz, capture, marker FROM samples`,
	).Scan(&millis, &session, &sequence, &ax, &gz, &capture, &marker)
	require.NoError(t, err)

	assert.Equal(t, 1042, millis)
	assert.Equal(t, 7, session)
	assert.Equal(t, 42, sequence)
	assert.InDelta(t, 0.5, ax, 1e-6)
	assert.InDelta(t, 0.0, gz, 1e-6)
	assert.Equal(t, 1, capture)
	assert.Equal(t, 1, marker)
}

func TestRecordResult(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.RecordResult("good-serve:42.0,20.0,18.0,20.0"))
	require.NoError(t, db.RecordResult("UNKNOWN:30.0,25.0,25.0,20.0"))

	var label string
	var p0 float64
	err := db.QueryRow(`SELECT label, p0 FROM results ORDER BY id LIMIT 1`).Scan(&label, &p0)
	require.NoError(t, err)
	assert.Equal(t, "good-serve", label)
	assert.InDelta(t, 42.0, p0, 1e-6)

	assert.Error(t, db.RecordResult("not a result"), "malformed messages must be rejected")
}

func TestSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serves.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.RecordSample(testPacket(1, 0)))
	require.NoError(t, db.Close())

	// Reopening must keep existing rows.
	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	n, err := db.SessionSampleCount(1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCSVRecorder(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewCSVRecorder(dir)
	require.NoError(t, err)

	require.NoError(t, rec.Append(testPacket(1, 0)))
	p := testPacket(1, 1)
	p.Flags |= packet.FlagMarker
	require.NoError(t, rec.Append(p))
	assert.Equal(t, 2, rec.Rows())
	require.NoError(t, rec.Close())

	f, err := os.Open(rec.Path())
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two data rows")

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"1000", "1", "0",
		"0.5000", "-0.2500", "0.9844", "-12.5000", "249.0000", "0.0000",
		"1", "0",
	}, rows[1])
	assert.Equal(t, "1", rows[2][10], "marker column")
}
