// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/bureau-foundation/flowmirror/lib/flowapi"
)

// fakeSource serves canned segment bodies keyed by start date.
type fakeSource struct {
	segments  []flowapi.Archive
	bodies    map[string][]byte
	downloads int
}

func (f *fakeSource) ListArchives(ctx context.Context, archiveType string) ([]flowapi.Archive, error) {
	return f.segments, nil
}

func (f *fakeSource) DownloadArchive(ctx context.Context, segment flowapi.Archive) (io.ReadCloser, error) {
	f.downloads++
	body, ok := f.bodies[segment.StartDate.String()]
	if !ok {
		return nil, errors.New("no body for segment")
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func gzipLines(t *testing.T, lines ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	for _, line := range lines {
		if _, err := writer.Write([]byte(line + "\n")); err != nil {
			t.Fatalf("writing gzip fixture: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing gzip fixture: %v", err)
	}
	return buf.Bytes()
}

func TestReadDecodesRecords(t *testing.T) {
	segment := flowapi.Archive{
		ArchiveType: flowapi.ArchiveTypeRun,
		Period:      flowapi.PeriodDaily,
		StartDate:   flowapi.MustDate("2024-01-05"),
		RecordCount: 2,
	}
	source := &fakeSource{bodies: map[string][]byte{
		"2024-01-05": gzipLines(t,
			`{"id": 11, "exit_type": "completed"}`,
			`{"id": 12, "exit_type": "expired"}`,
		),
	}}

	runs, err := Read[flowapi.Run](context.Background(), source, segment)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("decoded %d runs, want 2", len(runs))
	}
	if runs[0].ID != 11 || runs[1].ExitType != "expired" {
		t.Errorf("unexpected runs: %+v", runs)
	}
}

func TestReadSkipsEmptySegment(t *testing.T) {
	segment := flowapi.Archive{RecordCount: 0}
	source := &fakeSource{}

	records, err := Read[flowapi.Run](context.Background(), source, segment)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if records != nil {
		t.Errorf("records = %v, want nil", records)
	}
	if source.downloads != 0 {
		t.Errorf("downloads = %d, want 0", source.downloads)
	}
}

func TestReadCountMismatchIsIntegrityError(t *testing.T) {
	segment := flowapi.Archive{
		ArchiveType: flowapi.ArchiveTypeRun,
		Period:      flowapi.PeriodMonthly,
		StartDate:   flowapi.MustDate("2024-02-01"),
		RecordCount: 3,
	}
	source := &fakeSource{bodies: map[string][]byte{
		"2024-02-01": gzipLines(t, `{"id": 1}`, `{"id": 2}`),
	}}

	records, err := Read[flowapi.Run](context.Background(), source, segment)
	var integrityErr *IntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("Read error = %v, want IntegrityError", err)
	}
	if integrityErr.Declared != 3 || integrityErr.Decoded != 2 {
		t.Errorf("IntegrityError = %+v, want declared 3 decoded 2", integrityErr)
	}
	if records != nil {
		t.Errorf("records = %v, want nil on integrity failure", records)
	}
}

func TestReadCorruptBody(t *testing.T) {
	segment := flowapi.Archive{
		StartDate:   flowapi.MustDate("2024-03-01"),
		RecordCount: 1,
	}
	source := &fakeSource{bodies: map[string][]byte{
		"2024-03-01": []byte("not gzip at all"),
	}}

	if _, err := Read[flowapi.Run](context.Background(), source, segment); err == nil {
		t.Fatal("Read succeeded on corrupt body, want error")
	}
}
